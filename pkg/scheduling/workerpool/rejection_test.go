package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/pauseflow/internal/testutil"
)

// saturate occupies the single worker and fills the queue of a pool built
// with WorkerCount 1 and QueueSize 1. The returned gate releases the worker.
func saturate(t *testing.T, pool Pool) *testutil.Gate {
	t.Helper()
	gate := testutil.NewGate()
	testutil.AssertNoError(t, pool.Submit(TaskFunc(gate.Wait)))
	<-gate.Started()
	testutil.AssertNoError(t, pool.Submit(&TestTask{Executed: new(int32)}))
	return gate
}

func TestAbortPolicy(t *testing.T) {
	pool := newTestPool(t, Config{WorkerCount: 1, QueueSize: 1})
	gate := saturate(t, pool)
	defer gate.Open()

	err := pool.Submit(&TestTask{Executed: new(int32)})
	testutil.AssertEqual(t, errors.Is(err, ErrQueueFull), true)
}

func TestDiscardPolicy(t *testing.T) {
	pool := newTestPool(t, Config{WorkerCount: 1, QueueSize: 1, Rejection: DiscardPolicy})
	gate := saturate(t, pool)

	dropped := &TestTask{Executed: new(int32)}
	testutil.AssertNoError(t, pool.Submit(dropped))
	testutil.AssertEqual(t, pool.QueueSize(), 1)

	gate.Open()
	<-pool.Shutdown()
	testutil.AssertEqual(t, atomic.LoadInt32(dropped.Executed), int32(0))
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(2))

	// Shutdown is never discarded silently
	late := &TestTask{Executed: new(int32)}
	testutil.AssertEqual(t, errors.Is(pool.Submit(late), ErrPoolShutdown), true)
	testutil.AssertEqual(t, atomic.LoadInt32(late.Executed), int32(0))
}

func TestCallerRunsPolicy(t *testing.T) {
	pool := newTestPool(t, Config{WorkerCount: 1, QueueSize: 1, Rejection: CallerRunsPolicy})
	gate := saturate(t, pool)
	defer gate.Open()

	inline := &TestTask{Executed: new(int32)}
	testutil.AssertNoError(t, pool.Submit(inline))
	testutil.AssertEqual(t, atomic.LoadInt32(inline.Executed), int32(1))

	// Once shut down, the task is rejected instead of run
	pool.ShutdownFast()
	late := &TestTask{Executed: new(int32)}
	testutil.AssertEqual(t, errors.Is(pool.Submit(late), ErrPoolShutdown), true)
	testutil.AssertEqual(t, atomic.LoadInt32(late.Executed), int32(0))
}

func TestBlockPolicy(t *testing.T) {
	pool := newTestPool(t, Config{WorkerCount: 1, QueueSize: 1, Rejection: BlockPolicy})
	gate := saturate(t, pool)

	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.Submit(&TestTask{Executed: new(int32)})
	}()

	select {
	case err := <-submitted:
		t.Fatalf("blocking submit returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	gate.Open()
	testutil.AssertNoError(t, <-submitted)
	<-pool.Shutdown()
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(3))
}

func TestRejectionFunc(t *testing.T) {
	var reasons []error
	policy := RejectionFunc(func(_ context.Context, _ Task, p Pool, reason error) error {
		reasons = append(reasons, reason)
		return nil
	})

	pool := newTestPool(t, Config{WorkerCount: 1, QueueSize: 1, Rejection: policy})
	gate := saturate(t, pool)

	testutil.AssertNoError(t, pool.Submit(&TestTask{Executed: new(int32)}))
	gate.Open()
	<-pool.Shutdown()
	testutil.AssertNoError(t, pool.Submit(&TestTask{Executed: new(int32)}))

	testutil.AssertEqual(t, len(reasons), 2)
	testutil.AssertEqual(t, errors.Is(reasons[0], ErrQueueFull), true)
	testutil.AssertEqual(t, errors.Is(reasons[1], ErrPoolShutdown), true)
}

func TestPolicyByName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"", true},
		{"abort", true},
		{"discard", true},
		{"caller-runs", true},
		{"block", true},
		{"retry", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, ok := PolicyByName(tt.name)
			testutil.AssertEqual(t, ok, tt.ok)
			testutil.AssertEqual(t, policy != nil, tt.ok)
		})
	}
}
