package workerpool

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
	"github.com/vnykmshr/pauseflow/pkg/common/validation"
)

const module = "workerpool"

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// The context is canceled when the pool is shut down with ShutdownNow,
	// so long-running tasks should watch ctx.Done().
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// WorkerInfo identifies a worker in hooks and results.
type WorkerInfo struct {
	// ID is assigned by the pool and never reused, including for replacements.
	ID int

	// Name is assigned by the WorkerFactory.
	Name string
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error returned by the task, or the recovered panic
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// QueueWait is how long the task waited in the queue before being claimed
	QueueWait time.Duration

	// Worker identifies which worker executed the task
	Worker WorkerInfo
}

// State is the externally visible lifecycle state of a pool.
type State int

const (
	// StateRunning accepts and executes tasks.
	StateRunning State = iota
	// StatePaused accepts tasks but workers do not claim new ones.
	StatePaused
	// StateShuttingDown rejects new tasks and finishes queued and running ones.
	StateShuttingDown
	// StateShuttingDownFast rejects new tasks, queued ones were drained, running ones finish.
	StateShuttingDownFast
	// StateShuttingDownNow is like StateShuttingDownFast with running tasks interrupted.
	StateShuttingDownNow
	// StateTerminated means every worker has exited.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateShuttingDown:
		return "shutting-down"
	case StateShuttingDownFast:
		return "shutting-down-fast"
	case StateShuttingDownNow:
		return "shutting-down-now"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Pool represents a fixed-size worker pool whose task claiming can be paused.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// If the pool is shutting down or a bounded queue is full, the configured
	// RejectionPolicy decides the outcome; the default returns the reason.
	Submit(task Task) error

	// SubmitWithTimeout submits a task, waiting up to timeout for queue space.
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// SubmitWithContext submits a task, waiting for queue space until ctx is done.
	// The context applies to the queuing operation, not the task execution itself.
	SubmitWithContext(ctx context.Context, task Task) error

	// Pause stops workers from claiming further tasks. Running tasks are not
	// affected. Returns false if the pool can no longer be paused.
	Pause() bool

	// Resume lets workers claim tasks again. No-op if not paused.
	Resume()

	// IsPaused reports whether the pool is paused. The value may be stale by
	// the time the caller observes it.
	IsPaused() bool

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks will be accepted, but queued tasks will be completed.
	// A paused pool stays paused. Returns a channel that closes on termination.
	Shutdown() <-chan struct{}

	// ShutdownFast rejects new tasks, returns the queued tasks that had not been
	// claimed (in submission order) and resumes the pool so workers can exit.
	// Running tasks complete normally.
	ShutdownFast() []Task

	// ShutdownNow is ShutdownFast plus interruption: the context of every
	// running task is canceled. The pool can never be paused afterwards.
	ShutdownNow() []Task

	// AwaitTermination blocks until every worker has exited after a shutdown.
	// It returns early with an error wrapping ctx.Err() if ctx is done first;
	// the pool is not affected.
	AwaitTermination(ctx context.Context) error

	// Done returns a channel that is closed once the pool has terminated.
	Done() <-chan struct{}

	// IsShutdown reports whether any shutdown variant has been called.
	IsShutdown() bool

	// IsTerminated reports whether the pool has terminated.
	IsTerminated() bool

	// State returns the current lifecycle state.
	State() State

	// SetHooks replaces every lifecycle hook at once.
	SetHooks(hooks Hooks)

	// Name returns the pool name used for worker naming, logs and metrics.
	Name() string

	// Size returns the number of workers in the pool.
	Size() int

	// LiveWorkers returns the number of worker goroutines currently alive.
	LiveWorkers() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks accepted by the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name identifies the pool in worker names, logs and metrics.
	// Defaults to "workerpool".
	Name string

	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// If 0, an unbounded queue is used.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// Context is the parent of every task context. Canceling it interrupts
	// running and future tasks but does not shut the pool down.
	Context context.Context

	// Factory starts worker goroutines. Defaults to NewNamedFactory(Name).
	Factory WorkerFactory

	// Rejection handles tasks that cannot be queued. Defaults to AbortPolicy.
	Rejection RejectionPolicy

	// Hooks are the initial lifecycle callbacks. See SetHooks.
	Hooks Hooks

	// PanicHandler is called when a task panics.
	// If nil, the panic is converted into the Result error.
	PanicHandler func(task Task, recovered interface{})

	// Logger receives framework events such as worker replacement.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

type phase int

const (
	phaseRunning phase = iota
	phaseShutdown
	phaseShutdownFast
	phaseShutdownNow
	phaseTerminated
)

// workerPool implements the Pool interface.
type workerPool struct {
	config    Config
	name      string
	logger    *slog.Logger
	factory   WorkerFactory
	rejection RejectionPolicy
	hooks     atomic.Pointer[Hooks]

	// mu guards the queue, the pause flag, the phase and the worker counters.
	// changed is signalled on enqueue, pause changes and phase changes;
	// notFull when queue space frees up.
	mu            sync.Mutex
	changed       *sync.Cond
	notFull       *sync.Cond
	queue         taskQueue
	paused        bool
	phase         phase
	live          int
	activeWorkers int
	nextWorkerID  int

	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64

	runCtx    context.Context
	interrupt context.CancelFunc
	done      chan struct{}
}

// worker represents a single worker in the pool.
type worker struct {
	info WorkerInfo
	pool *workerPool

	// started is set once OnWorkerStart has returned.
	started bool
}

// New creates a new worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) (Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
// Invalid parameters return a *errors.ValidationError matching
// errors.ErrInvalidArgument; no goroutines are started in that case.
func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive(module, "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "QueueSize", config.QueueSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration(module, "TaskTimeout", config.TaskTimeout); err != nil {
		return nil, err
	}

	name := config.Name
	if name == "" {
		name = "workerpool"
	}

	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := &workerPool{
		config:    config,
		name:      name,
		logger:    logger.With("component", module, "pool", name),
		factory:   config.Factory,
		rejection: config.Rejection,
		queue:     newTaskQueue(config.QueueSize),
		done:      make(chan struct{}),
	}
	if pool.factory == nil {
		pool.factory = NewNamedFactory(name)
	}
	if pool.rejection == nil {
		pool.rejection = AbortPolicy
	}
	hooks := config.Hooks
	pool.hooks.Store(&hooks)
	pool.changed = sync.NewCond(&pool.mu)
	pool.notFull = sync.NewCond(&pool.mu)
	pool.runCtx, pool.interrupt = context.WithCancel(parent)

	// Create and start workers
	for i := 0; i < config.WorkerCount; i++ {
		pool.mu.Lock()
		w := pool.reserveWorkerLocked()
		pool.mu.Unlock()

		if err := pool.startWorker(w); err != nil {
			pool.ShutdownNow()
			<-pool.done
			return nil, gferrors.NewOperationError(module, "NewWithConfig", err).
				WithContext("starting worker " + w.String())
		}
	}

	return pool, nil
}

func (w *worker) String() string {
	if w.info.Name != "" {
		return w.info.Name
	}
	return "#" + strconv.Itoa(w.info.ID)
}
