// Package context holds small context helpers shared by pauseflow packages.
//
// Tasks running on a workerpool are interrupted by cancellation of their
// context, so these helpers let task code tell an interrupt apart from a
// timeout without inspecting errors by hand.
package context

import (
	"context"
	"errors"
	"time"
)

// WithOptionalTimeout returns a child of parent bounded by timeout.
// A timeout <= 0 means no bound; the parent is returned with a no-op cancel.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// IsInterrupted reports whether ctx was canceled explicitly rather than by a
// deadline. For workerpool tasks this means a hard shutdown is in progress.
func IsInterrupted(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
