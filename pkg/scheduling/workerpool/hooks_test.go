package workerpool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vnykmshr/pauseflow/internal/testutil"
)

func TestChainHooks(t *testing.T) {
	var order []string
	record := func(s string) func(WorkerInfo) {
		return func(WorkerInfo) { order = append(order, s) }
	}

	chained := ChainHooks(
		Hooks{OnPause: record("a"), OnTerminated: func() { order = append(order, "a-term") }},
		Hooks{},
		Hooks{OnPause: record("b")},
	)

	chained.OnPause(WorkerInfo{})
	chained.OnTerminated()

	testutil.AssertEqual(t, strings.Join(order, ","), "a,b,a-term")
	testutil.AssertEqual(t, chained.OnResume == nil, true)
	testutil.AssertEqual(t, chained.OnTaskStart == nil, true)
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a pool's hooks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogHooks(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res := newResults()
	pool := newTestPool(t, Config{
		Name:        "logged",
		WorkerCount: 1,
		Hooks:       ChainHooks(LogHooks(logger), res.hooks()),
	})

	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(ctx context.Context) error {
		return errors.New("disk full")
	})))
	res.next(t)

	pool.Pause()
	testutil.AssertEventually(t, func() bool { return strings.Contains(buf.String(), "worker paused") })
	<-pool.Shutdown()

	out := buf.String()
	for _, want := range []string{
		"worker started",
		"task started",
		"task failed",
		"disk full",
		"worker=logged-worker-1",
		"pool terminated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksNilLogger(t *testing.T) {
	hooks := LogHooks(nil)
	testutil.AssertEqual(t, hooks.OnTaskComplete != nil, true)
}
