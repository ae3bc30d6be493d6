package workerpool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/pauseflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry atomic.Pointer[metrics.Registry]
	enabled  atomic.Bool
}

var _ metrics.Instrumentable = (*MetricsPool)(nil)

// NewWithMetrics creates a new worker pool with metrics enabled.
func NewWithMetrics(workerCount int, name string) (Pool, error) {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	config := metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}

	return NewWithConfigAndMetrics(Config{
		Name:        name,
		WorkerCount: workerCount,
	}, config)
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
// The pool name is used as the pool_name label.
func NewWithConfigAndMetrics(config Config, metricsConfig metrics.Config) (Pool, error) {
	basePool, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}

	if !metricsConfig.Enabled {
		return basePool, nil
	}

	return Instrument(basePool, metricsConfig.Resolve()), nil
}

// Instrument decorates an existing pool with the collectors in registry.
func Instrument(pool Pool, registry *metrics.Registry) *MetricsPool {
	mp := &MetricsPool{
		pool: pool,
		name: pool.Name(),
	}
	mp.registry.Store(registry)
	mp.enabled.Store(true)

	// Initialize metrics
	mp.updateMetrics()
	return mp
}

// metricsFor returns the registry while metrics are enabled, nil otherwise.
func (mp *MetricsPool) metricsFor() *metrics.Registry {
	if !mp.enabled.Load() {
		return nil
	}
	return mp.registry.Load()
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	reg := mp.metricsFor()
	if reg == nil {
		return
	}

	reg.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	reg.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	reg.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))

	paused := 0.0
	if mp.pool.IsPaused() {
		paused = 1
	}
	reg.WorkerPoolPaused.WithLabelValues(mp.name).Set(paused)
}

func (mp *MetricsPool) recordSubmit(err error) error {
	if reg := mp.metricsFor(); reg != nil {
		if err != nil {
			reg.TasksRejected.WithLabelValues(mp.name).Inc()
		} else {
			reg.TasksSubmitted.WithLabelValues(mp.name).Inc()
		}
		mp.updateMetrics()
	}
	return err
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	if task == nil {
		return mp.recordSubmit(mp.pool.Submit(nil))
	}
	return mp.recordSubmit(mp.pool.Submit(mp.wrap(task)))
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return mp.SubmitWithContext(ctx, task)
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.recordSubmit(mp.pool.SubmitWithContext(ctx, nil))
	}
	return mp.recordSubmit(mp.pool.SubmitWithContext(ctx, mp.wrap(task)))
}

func (mp *MetricsPool) wrap(task Task) Task {
	return &metricsTask{
		original:   task,
		pool:       mp,
		submitTime: time.Now(),
	}
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	pool       *MetricsPool
	submitTime time.Time
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) (err error) {
	start := time.Now()
	if reg := mt.pool.metricsFor(); reg != nil {
		reg.TaskQueueWait.WithLabelValues(mt.pool.name).Observe(start.Sub(mt.submitTime).Seconds())
	}

	panicked := true
	defer func() {
		reg := mt.pool.metricsFor()
		if reg == nil {
			return
		}
		reg.TaskDuration.WithLabelValues(mt.pool.name).Observe(time.Since(start).Seconds())
		if panicked || err != nil {
			reg.TasksFailed.WithLabelValues(mt.pool.name).Inc()
		} else {
			reg.TasksCompleted.WithLabelValues(mt.pool.name).Inc()
		}
	}()

	err = mt.original.Execute(ctx)
	panicked = false
	return err
}

// Unwrap returns the task that was submitted to the MetricsPool.
func (mt *metricsTask) Unwrap() Task {
	return mt.original
}

// Unwrap returns the caller's task for a task wrapped by a decorator such as
// MetricsPool. Other tasks are returned unchanged.
func Unwrap(task Task) Task {
	for {
		u, ok := task.(interface{ Unwrap() Task })
		if !ok {
			return task
		}
		task = u.Unwrap()
	}
}

// Pause stops workers from claiming new tasks.
func (mp *MetricsPool) Pause() bool {
	wasPaused := mp.pool.IsPaused()
	ok := mp.pool.Pause()
	if reg := mp.metricsFor(); reg != nil && ok {
		if !wasPaused {
			reg.PauseTransitions.WithLabelValues(mp.name, "pause").Inc()
		}
		mp.updateMetrics()
	}
	return ok
}

// Resume lets workers claim tasks again.
func (mp *MetricsPool) Resume() {
	wasPaused := mp.pool.IsPaused()
	mp.pool.Resume()
	if reg := mp.metricsFor(); reg != nil {
		if wasPaused && !mp.pool.IsPaused() {
			reg.PauseTransitions.WithLabelValues(mp.name, "resume").Inc()
		}
		mp.updateMetrics()
	}
}

// IsPaused reports whether the pool is paused.
func (mp *MetricsPool) IsPaused() bool {
	return mp.pool.IsPaused()
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	done := mp.pool.Shutdown()
	mp.updateMetrics()
	return done
}

// ShutdownFast drains the queue and returns the caller's original tasks.
func (mp *MetricsPool) ShutdownFast() []Task {
	return mp.drained(mp.pool.ShutdownFast())
}

// ShutdownNow drains the queue, interrupts running tasks and returns the
// caller's original tasks.
func (mp *MetricsPool) ShutdownNow() []Task {
	return mp.drained(mp.pool.ShutdownNow())
}

func (mp *MetricsPool) drained(tasks []Task) []Task {
	for i, t := range tasks {
		tasks[i] = Unwrap(t)
	}
	if reg := mp.metricsFor(); reg != nil {
		reg.TasksDrained.WithLabelValues(mp.name).Add(float64(len(tasks)))
		mp.updateMetrics()
	}
	return tasks
}

// AwaitTermination blocks until the pool terminates or ctx is done.
func (mp *MetricsPool) AwaitTermination(ctx context.Context) error {
	return mp.pool.AwaitTermination(ctx)
}

// Done returns a channel that is closed once the pool has terminated.
func (mp *MetricsPool) Done() <-chan struct{} {
	return mp.pool.Done()
}

// IsShutdown reports whether any shutdown variant has been called.
func (mp *MetricsPool) IsShutdown() bool {
	return mp.pool.IsShutdown()
}

// IsTerminated reports whether the pool has terminated.
func (mp *MetricsPool) IsTerminated() bool {
	return mp.pool.IsTerminated()
}

// State returns the current lifecycle state.
func (mp *MetricsPool) State() State {
	return mp.pool.State()
}

// SetHooks replaces the hooks of the underlying pool. Tasks seen by the
// hooks are the wrapped tasks; use Unwrap to recover the original.
func (mp *MetricsPool) SetHooks(hooks Hooks) {
	mp.pool.SetHooks(hooks)
}

// Name returns the pool name.
func (mp *MetricsPool) Name() string {
	return mp.name
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// LiveWorkers returns the number of worker goroutines currently alive.
func (mp *MetricsPool) LiveWorkers() int {
	return mp.pool.LiveWorkers()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	queueSize := mp.pool.QueueSize()

	if reg := mp.metricsFor(); reg != nil {
		reg.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(queueSize))
	}

	return queueSize
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	activeWorkers := mp.pool.ActiveWorkers()

	if reg := mp.metricsFor(); reg != nil {
		reg.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(activeWorkers))
	}

	return activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}

// EnableMetrics enables metrics collection.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		mp.registry.Store(metrics.NewRegistry(config.Registry))
	}
	mp.enabled.Store(config.Enabled)
	mp.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	return mp.enabled.Load()
}
