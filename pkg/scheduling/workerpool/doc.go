/*
Package workerpool provides a fixed-size worker pool whose task claiming can be paused.

A pool owns a fixed number of worker goroutines that take tasks from one shared
FIFO queue. Pausing stops workers from claiming further tasks without touching
the tasks they are already running; resuming lets them continue in queue order.

Basic usage:

	pool, err := workerpool.New(4, 100) // 4 workers, queue size 100
	if err != nil {
		return err
	}
	defer pool.Shutdown()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Pausing:

	pool.Pause()       // running tasks finish, queued tasks wait
	pool.Submit(task)  // still accepted, stays queued
	pool.Resume()      // workers claim again, oldest first

Pause returns false once ShutdownFast or ShutdownNow has been called. A pool
may be paused during a graceful shutdown, in which case queued work is held
until Resume or a faster shutdown.

Shutdown Variants:

	<-pool.Shutdown()             // graceful: queued and running tasks complete
	pending := pool.ShutdownFast() // queued tasks are returned, running ones finish
	pending := pool.ShutdownNow()  // like ShutdownFast, running task contexts are canceled

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.AwaitTermination(ctx); err != nil {
		log.Printf("workers still running: %v", err)
	}

ShutdownFast and ShutdownNow resume a paused pool so its workers can exit. Tasks
they return have never started and never will; the caller owns them. Go has no
thread interruption, so ShutdownNow cancels the context passed to every task.
Tasks that ignore ctx.Done() run to completion.

Results and Futures:

Task outcomes are reported through Hooks:

	pool.SetHooks(workerpool.Hooks{
		OnTaskComplete: func(w workerpool.WorkerInfo, r workerpool.Result) {
			if r.Error != nil {
				log.Printf("%s: task failed after %v: %v", w.Name, r.Duration, r.Error)
			}
		},
	})

Value-returning work goes through SubmitCallable:

	f, err := workerpool.SubmitCallable(pool, func(ctx context.Context) (int, error) {
		return compute(ctx)
	})
	if err != nil {
		return err
	}
	n, err := f.Get(ctx)

Rejection:

Submit refuses a task once any shutdown has started (ErrPoolShutdown) or when a
bounded queue is full (ErrQueueFull). Both wrap errors.ErrRejectedExecution. The
configured RejectionPolicy decides what Submit returns: AbortPolicy (default),
DiscardPolicy, CallerRunsPolicy or BlockPolicy. SubmitWithContext always waits
for queue space instead.

Failure Handling:

Task errors and panics are captured into Result.Error and never stop a worker.
A worker killed by a panicking hook is replaced through the WorkerFactory while
the pool is running or shutting down gracefully.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
IsPaused, QueueSize and the other introspection methods return snapshots.
*/
package workerpool
