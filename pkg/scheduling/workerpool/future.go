package workerpool

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	futurePending int32 = iota
	futureRunning
	futureDone
	futureCancelled
)

// Future is the handle for value-returning work. A Future is itself a Task:
// the pool runs it like any other, and a caller holding a Future returned by
// ShutdownFast or ShutdownNow may execute it directly.
type Future[T any] struct {
	id    uuid.UUID
	fn    func(ctx context.Context) (T, error)
	state atomic.Int32
	done  chan struct{}
	value T
	err   error
}

// NewFuture wraps fn in a pending Future.
func NewFuture[T any](fn func(ctx context.Context) (T, error)) *Future[T] {
	return &Future[T]{
		id:   uuid.New(),
		fn:   fn,
		done: make(chan struct{}),
	}
}

// SubmitCallable wraps fn in a Future and submits it to p.
// With DiscardPolicy a rejected Future is never completed; callers using that
// policy should bound Get with a context.
func SubmitCallable[T any](p Pool, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	if fn == nil {
		return nil, fmt.Errorf("%s: callable cannot be nil", module)
	}
	f := NewFuture(fn)
	if err := p.Submit(f); err != nil {
		return nil, err
	}
	return f, nil
}

// ID returns the unique identifier of the future.
func (f *Future[T]) ID() uuid.UUID {
	return f.id
}

// Execute implements Task. It runs the wrapped function at most once and
// returns ErrFutureCancelled for a future that was canceled or already ran.
// A panic is recorded as the future's error and then re-raised so the pool
// reports it like any other task panic.
func (f *Future[T]) Execute(ctx context.Context) error {
	if !f.state.CompareAndSwap(futurePending, futureRunning) {
		return ErrFutureCancelled
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		f.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		f.state.Store(futureDone)
		close(f.done)
		panic(r)
	}()

	value, err := f.fn(ctx)
	f.value, f.err = value, err
	completed = true
	f.state.Store(futureDone)
	close(f.done)
	return err
}

// Get waits for the result or for ctx to be done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the future has completed or was canceled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel prevents the future from running if it has not started.
// It returns false if the future is already running or finished.
func (f *Future[T]) Cancel() bool {
	if !f.state.CompareAndSwap(futurePending, futureCancelled) {
		return false
	}
	f.err = ErrFutureCancelled
	close(f.done)
	return true
}

// IsDone reports whether the future completed or was canceled.
func (f *Future[T]) IsDone() bool {
	s := f.state.Load()
	return s == futureDone || s == futureCancelled
}

// IsCancelled reports whether Cancel succeeded.
func (f *Future[T]) IsCancelled() bool {
	return f.state.Load() == futureCancelled
}
