package workerpool

import (
	"context"
	"errors"
)

// RejectionPolicy decides what happens to a task that could not be queued.
//
// Rejected is called without the pool lock held. reason is ErrPoolShutdown or
// ErrQueueFull. The returned error is what Submit returns.
type RejectionPolicy interface {
	Rejected(ctx context.Context, task Task, pool Pool, reason error) error
}

// RejectionFunc adapts a function to the RejectionPolicy interface.
type RejectionFunc func(ctx context.Context, task Task, pool Pool, reason error) error

// Rejected implements RejectionPolicy.
func (f RejectionFunc) Rejected(ctx context.Context, task Task, pool Pool, reason error) error {
	return f(ctx, task, pool, reason)
}

var (
	// AbortPolicy returns the rejection reason to the caller. It is the default.
	AbortPolicy RejectionPolicy = RejectionFunc(func(_ context.Context, _ Task, _ Pool, reason error) error {
		return reason
	})

	// DiscardPolicy silently drops the task when the queue is full, and
	// rejects once the pool is shutting down.
	DiscardPolicy RejectionPolicy = RejectionFunc(func(_ context.Context, _ Task, _ Pool, reason error) error {
		if errors.Is(reason, ErrPoolShutdown) {
			return reason
		}
		return nil
	})

	// CallerRunsPolicy runs the task on the submitting goroutine when the
	// queue is full, and rejects once the pool is shutting down.
	CallerRunsPolicy RejectionPolicy = RejectionFunc(func(ctx context.Context, task Task, _ Pool, reason error) error {
		if errors.Is(reason, ErrPoolShutdown) {
			return reason
		}
		return task.Execute(ctx)
	})

	// BlockPolicy blocks the submitter until queue space frees up. Once the
	// pool is shutting down the task is rejected, since no space will free up
	// for new work.
	BlockPolicy RejectionPolicy = RejectionFunc(func(ctx context.Context, task Task, pool Pool, reason error) error {
		if errors.Is(reason, ErrPoolShutdown) {
			return reason
		}
		return pool.SubmitWithContext(ctx, task)
	})
)

// PolicyByName returns the policy registered under name: "abort", "discard",
// "caller-runs" or "block". The empty name selects AbortPolicy.
func PolicyByName(name string) (RejectionPolicy, bool) {
	switch name {
	case "", "abort":
		return AbortPolicy, true
	case "discard":
		return DiscardPolicy, true
	case "caller-runs":
		return CallerRunsPolicy, true
	case "block":
		return BlockPolicy, true
	default:
		return nil, false
	}
}
