package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	gfcontext "github.com/vnykmshr/pauseflow/pkg/common/context"
	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
	"github.com/vnykmshr/pauseflow/pkg/common/validation"
)

// Submit adds a task to the pool for execution.
// The task runs with a context derived from Config.Context that is canceled
// by ShutdownNow.
func (p *workerPool) Submit(task Task) error {
	if err := validation.ValidateNotNil(module, "task", task); err != nil {
		return err
	}

	err := p.offer(task)
	if err == nil {
		return nil
	}
	return p.rejection.Rejected(context.Background(), task, p, err)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.SubmitWithContext(ctx, task)
}

// SubmitWithContext adds a task to the pool, blocking while a bounded queue is
// full. It returns ErrPoolShutdown if the pool shuts down first and an error
// wrapping ctx.Err() if ctx is done first. The rejection policy is not consulted.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if err := validation.ValidateNotNil(module, "task", task); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cannot submit task: context canceled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != phaseRunning {
		return ErrPoolShutdown
	}
	if !p.queue.Full() {
		p.enqueueLocked(task)
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.notFull.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	for {
		if p.phase != phaseRunning {
			return ErrPoolShutdown
		}
		if !p.queue.Full() {
			p.enqueueLocked(task)
			return nil
		}
		if err := ctx.Err(); err != nil {
			// Pass on a wakeup this goroutine may have consumed.
			p.notFull.Signal()
			return fmt.Errorf("cannot submit task: context canceled: %w", err)
		}
		p.notFull.Wait()
	}
}

// offer enqueues task without blocking, or returns the rejection reason.
func (p *workerPool) offer(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase != phaseRunning {
		return ErrPoolShutdown
	}
	if p.queue.Full() {
		return ErrQueueFull
	}
	p.enqueueLocked(task)
	return nil
}

func (p *workerPool) enqueueLocked(task Task) {
	p.queue.Push(queuedTask{task: task, enqueued: time.Now()})
	p.totalSubmitted.Add(1)
	p.changed.Signal()
}

// Pause stops workers from claiming new tasks. It is refused once a fast or
// hard shutdown has started; a graceful shutdown can still be paused.
func (p *workerPool) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase >= phaseShutdownFast {
		return false
	}
	if !p.paused {
		p.paused = true
		p.changed.Broadcast()
	}
	return true
}

// Resume clears the pause flag and wakes every waiting worker.
func (p *workerPool) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		p.paused = false
		p.changed.Broadcast()
	}
}

// IsPaused reports whether the pool is paused.
func (p *workerPool) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.mu.Lock()
	if p.phase == phaseRunning {
		p.phase = phaseShutdown
		p.changed.Broadcast()
		p.notFull.Broadcast()
	}
	terminated := p.terminateIfIdleLocked()
	p.mu.Unlock()

	if terminated {
		p.finishTermination()
	}
	return p.done
}

// ShutdownFast drains the queue and lets running tasks finish.
func (p *workerPool) ShutdownFast() []Task {
	return p.stop(phaseShutdownFast)
}

// ShutdownNow drains the queue and interrupts running tasks.
func (p *workerPool) ShutdownNow() []Task {
	return p.stop(phaseShutdownNow)
}

func (p *workerPool) stop(target phase) []Task {
	p.mu.Lock()
	if p.phase < target {
		p.phase = target
	}
	drained := p.queue.Drain()
	p.paused = false
	if target == phaseShutdownNow {
		p.interrupt()
	}
	p.changed.Broadcast()
	p.notFull.Broadcast()
	terminated := p.terminateIfIdleLocked()
	p.mu.Unlock()

	if terminated {
		p.finishTermination()
	}
	return drained
}

// AwaitTermination blocks until the pool terminates or ctx is done.
func (p *workerPool) AwaitTermination(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await termination: %w: %w", gferrors.ErrInterrupted, ctx.Err())
	}
}

// Done returns a channel that is closed once the pool has terminated.
func (p *workerPool) Done() <-chan struct{} {
	return p.done
}

// IsShutdown reports whether any shutdown variant has been called.
func (p *workerPool) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase != phaseRunning
}

// IsTerminated reports whether the pool has terminated.
func (p *workerPool) IsTerminated() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// State returns the current lifecycle state.
func (p *workerPool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case phaseRunning:
		if p.paused {
			return StatePaused
		}
		return StateRunning
	case phaseShutdown:
		return StateShuttingDown
	case phaseShutdownFast:
		return StateShuttingDownFast
	case phaseShutdownNow:
		return StateShuttingDownNow
	default:
		return StateTerminated
	}
}

// SetHooks replaces every lifecycle hook at once.
func (p *workerPool) SetHooks(hooks Hooks) {
	p.hooks.Store(&hooks)
}

// Name returns the pool name.
func (p *workerPool) Name() string {
	return p.name
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// LiveWorkers returns the number of worker goroutines currently alive.
func (p *workerPool) LiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeWorkers
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// terminateIfIdleLocked moves the pool to the terminated phase once a
// shutdown has started and no worker is left. It reports whether it did;
// the caller must then call finishTermination without the lock.
func (p *workerPool) terminateIfIdleLocked() bool {
	if p.live > 0 || p.phase == phaseRunning || p.phase == phaseTerminated {
		return false
	}
	p.phase = phaseTerminated
	p.paused = false
	p.interrupt()
	return true
}

// finishTermination runs OnTerminated and then releases Done waiters, so
// AwaitTermination returning implies the hook has completed. It is called
// exactly once, by whoever observed terminateIfIdleLocked return true.
func (p *workerPool) finishTermination() {
	defer close(p.done)
	if f := p.hooks.Load().OnTerminated; f != nil {
		f()
	}
}

// reserveWorkerLocked counts a new worker as live before it is started, so a
// concurrent shutdown cannot terminate the pool underneath it.
func (p *workerPool) reserveWorkerLocked() *worker {
	w := &worker{pool: p}
	w.info.ID = p.nextWorkerID
	p.nextWorkerID++
	p.live++
	return w
}

// startWorker runs w through the factory and undoes the reservation on failure.
func (p *workerPool) startWorker(w *worker) error {
	err := p.factory.Spawn(w.run)
	if err == nil {
		return nil
	}

	p.mu.Lock()
	p.live--
	terminated := p.terminateIfIdleLocked()
	p.mu.Unlock()

	if terminated {
		p.finishTermination()
	}
	return err
}

// workerExited accounts for a worker leaving its loop. A worker that died
// while the pool still needs workers is replaced, unless it died in
// OnWorkerStart: its replacement would run the same hook and die again.
func (p *workerPool) workerExited(w *worker, died bool) {
	p.mu.Lock()
	p.live--
	var replacement *worker
	if died && w.started && p.phase < phaseShutdownFast {
		replacement = p.reserveWorkerLocked()
	}
	terminated := p.terminateIfIdleLocked()
	p.mu.Unlock()

	if terminated {
		p.finishTermination()
	}
	if died && !w.started {
		p.logger.Error("worker died during start, not replacing", "worker", w.String())
		return
	}
	if replacement == nil {
		return
	}

	if err := p.startWorker(replacement); err != nil {
		p.logger.Error("failed to replace worker", "worker", w.String(), "error", err)
		return
	}
	p.logger.Warn("replaced worker", "worker", w.String(), "replacement_id", replacement.info.ID)
}

// run is the main loop for a worker.
func (w *worker) run(name string) {
	p := w.pool
	w.info.Name = name

	exited := false
	defer func() {
		if !exited {
			p.logger.Error("worker died", "worker", name, "panic", recover())
		}
		p.workerExited(w, !exited)
	}()

	hooks := p.hooks.Load()
	if hooks.OnWorkerStart != nil {
		hooks.OnWorkerStart(w.info)
	}
	w.started = true

	for {
		qt, ok := p.claim(w)
		if !ok {
			break
		}
		w.executeTask(qt)
	}

	if f := p.hooks.Load().OnWorkerStop; f != nil {
		f(w.info)
	}
	exited = true
}

// claim blocks until a task may be run by w, or reports false when w should exit.
func (p *workerPool) claim(w *worker) (queuedTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		switch {
		case p.phase >= phaseShutdownFast:
			return queuedTask{}, false
		case p.phase == phaseShutdown && p.queue.Len() == 0:
			return queuedTask{}, false
		case p.paused:
			p.waitWhilePausedLocked(w)
			continue
		}

		if qt, ok := p.queue.Pop(); ok {
			p.activeWorkers++
			p.notFull.Signal()
			return qt, true
		}
		p.changed.Wait()
	}
}

// waitWhilePausedLocked parks w until the pool is resumed or a shutdown makes
// the pause irrelevant. A graceful shutdown with an empty queue releases the
// worker since nothing is left to defer.
func (p *workerPool) waitWhilePausedLocked(w *worker) {
	hooks := p.hooks.Load()
	if hooks.OnPause != nil {
		hooks.OnPause(w.info)
	}

	for p.paused && p.phase < phaseShutdownFast &&
		!(p.phase == phaseShutdown && p.queue.Len() == 0) {
		p.changed.Wait()
	}

	if hooks.OnResume != nil {
		hooks.OnResume(w.info)
	}
}

// executeTask runs a claimed task and reports it to the task hooks.
func (w *worker) executeTask(qt queuedTask) {
	p := w.pool
	defer func() {
		p.mu.Lock()
		p.activeWorkers--
		p.mu.Unlock()
	}()

	hooks := p.hooks.Load()
	if hooks.OnTaskStart != nil {
		hooks.OnTaskStart(w.info, qt.task)
	}

	result := w.runTask(qt)
	p.totalCompleted.Add(1)

	if hooks.OnTaskComplete != nil {
		hooks.OnTaskComplete(w.info, result)
	}
}

// runTask executes the task, recovering panics into the result.
func (w *worker) runTask(qt queuedTask) (result Result) {
	p := w.pool
	start := time.Now()
	result = Result{
		Task:      qt.task,
		QueueWait: start.Sub(qt.enqueued),
		Worker:    w.info,
	}

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(qt.task, r)
				result.Error = nil
			} else {
				result.Error = fmt.Errorf("%w: %v\nStack trace:\n%s", ErrTaskPanicked, r, debug.Stack())
			}
		}
		result.Duration = time.Since(start)
	}()

	// Apply TaskTimeout if configured
	ctx, cancel := gfcontext.WithOptionalTimeout(p.runCtx, p.config.TaskTimeout)
	defer cancel()

	result.Error = qt.task.Execute(ctx)
	return result
}
