package workerpool

import (
	"context"
	"log/slog"
)

// Hooks are optional lifecycle callbacks. A nil field is a no-op.
//
// Hooks are side-effect extension points for logging, metrics, tracing or
// per-worker setup; they cannot change scheduling. Task and worker hooks run
// on the worker goroutine without the pool lock held. OnPause and OnResume run
// on the worker goroutine while the pool lock is held, which keeps them
// strictly ordered with concurrent Pause and Resume calls but means a slow
// OnPause or OnResume delays every caller of Pause, Resume and IsPaused.
// OnTerminated runs once, on the goroutine that observes the last worker exit.
//
// A panicking hook kills its worker. The pool logs the failure and starts a
// replacement while it is running or shutting down gracefully.
type Hooks struct {
	// OnWorkerStart is called when a worker starts.
	// Useful for per-worker initialization (e.g., database connections).
	OnWorkerStart func(w WorkerInfo)

	// OnWorkerStop is called when a worker exits normally.
	OnWorkerStop func(w WorkerInfo)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(w WorkerInfo, task Task)

	// OnTaskComplete is called after a task completes (success, error or panic).
	OnTaskComplete func(w WorkerInfo, result Result)

	// OnPause is called when a worker is about to wait because the pool is paused.
	OnPause func(w WorkerInfo)

	// OnResume is called when a worker leaves the pause wait, either because
	// the pool was resumed or because a shutdown released it.
	OnResume func(w WorkerInfo)

	// OnTerminated is called once after every worker has exited.
	OnTerminated func()
}

// ChainHooks returns Hooks that call each of hs in order.
func ChainHooks(hs ...Hooks) Hooks {
	var chained Hooks

	for _, h := range hs {
		if f := h.OnWorkerStart; f != nil {
			prev := chained.OnWorkerStart
			chained.OnWorkerStart = func(w WorkerInfo) {
				if prev != nil {
					prev(w)
				}
				f(w)
			}
		}
		if f := h.OnWorkerStop; f != nil {
			prev := chained.OnWorkerStop
			chained.OnWorkerStop = func(w WorkerInfo) {
				if prev != nil {
					prev(w)
				}
				f(w)
			}
		}
		if f := h.OnTaskStart; f != nil {
			prev := chained.OnTaskStart
			chained.OnTaskStart = func(w WorkerInfo, task Task) {
				if prev != nil {
					prev(w, task)
				}
				f(w, task)
			}
		}
		if f := h.OnTaskComplete; f != nil {
			prev := chained.OnTaskComplete
			chained.OnTaskComplete = func(w WorkerInfo, result Result) {
				if prev != nil {
					prev(w, result)
				}
				f(w, result)
			}
		}
		if f := h.OnPause; f != nil {
			prev := chained.OnPause
			chained.OnPause = func(w WorkerInfo) {
				if prev != nil {
					prev(w)
				}
				f(w)
			}
		}
		if f := h.OnResume; f != nil {
			prev := chained.OnResume
			chained.OnResume = func(w WorkerInfo) {
				if prev != nil {
					prev(w)
				}
				f(w)
			}
		}
		if f := h.OnTerminated; f != nil {
			prev := chained.OnTerminated
			chained.OnTerminated = func() {
				if prev != nil {
					prev()
				}
				f()
			}
		}
	}

	return chained
}

// LogHooks returns Hooks that log lifecycle events to logger.
// Task starts are logged at Debug, failures at Warn, everything else at Info.
func LogHooks(logger *slog.Logger) Hooks {
	if logger == nil {
		logger = slog.Default()
	}

	return Hooks{
		OnWorkerStart: func(w WorkerInfo) {
			logger.Debug("worker started", "worker", w.Name, "worker_id", w.ID)
		},
		OnWorkerStop: func(w WorkerInfo) {
			logger.Debug("worker stopped", "worker", w.Name, "worker_id", w.ID)
		},
		OnTaskStart: func(w WorkerInfo, task Task) {
			logger.Debug("task started", "worker", w.Name)
		},
		OnTaskComplete: func(w WorkerInfo, result Result) {
			if result.Error != nil {
				logger.Warn("task failed",
					"worker", w.Name,
					"duration", result.Duration,
					"error", result.Error)
				return
			}
			logger.LogAttrs(context.Background(), slog.LevelDebug, "task completed",
				slog.String("worker", w.Name),
				slog.Duration("duration", result.Duration),
				slog.Duration("queue_wait", result.QueueWait))
		},
		OnPause: func(w WorkerInfo) {
			logger.Info("worker paused", "worker", w.Name)
		},
		OnResume: func(w WorkerInfo) {
			logger.Info("worker resumed", "worker", w.Name)
		},
		OnTerminated: func() {
			logger.Info("pool terminated")
		},
	}
}
