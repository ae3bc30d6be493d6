package workerpool

import (
	"errors"
	"fmt"

	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
)

var (
	// ErrPoolShutdown is the rejection reason once any shutdown has started.
	ErrPoolShutdown = fmt.Errorf("%w: worker pool has been shut down", gferrors.ErrRejectedExecution)

	// ErrQueueFull is the rejection reason when a bounded queue has no space.
	ErrQueueFull = fmt.Errorf("%w: task queue is full (%w)", gferrors.ErrRejectedExecution, gferrors.ErrCapacityExceeded)

	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("task panicked")

	// ErrFutureCancelled is returned by a Future canceled before it started.
	ErrFutureCancelled = errors.New("future cancelled")
)
