/*
Package scheduling provides task execution primitives whose progress can be paused.

This package groups three components:

  - workerpool: Fixed worker pool for concurrent task execution with pause/resume
  - scheduler: Recurring pause windows defined by cron expressions
  - distributed: Pause and resume many pools at once through Redis

Worker Pool:

The worker pool provides controlled concurrent execution:

	pool, _ := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	pool.Submit(task)

	pool.Pause()  // running tasks finish, queued ones wait
	pool.Resume()

	// Stop early and get back what never ran
	unstarted := pool.ShutdownFast()

Pause Windows:

	sched, _ := scheduler.New(pool)
	sched.AddWindow(scheduler.Window{
		Name:     "backup",
		PauseAt:  "0 1 * * *",
		ResumeAt: "30 1 * * *",
	})
	sched.Start()
	defer func() { <-sched.Stop() }()

Fleet Control:

	ctrl, _ := distributed.NewController(distributed.Config{Redis: client})
	sub, _ := ctrl.Attach(ctx, pool)
	defer sub.Close()

All scheduling components are thread-safe and integrate with context
for cancellation and timeout handling.
*/
package scheduling
