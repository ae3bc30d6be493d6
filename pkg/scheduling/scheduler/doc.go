/*
Package scheduler pauses a worker pool during recurring, cron-defined windows.

A Window pairs a pause expression with a resume expression. Between a pause
event and the next resume event the window is active and the target stays
paused; queued work waits and resumes in order once the window closes.

Basic Usage:

	pool, _ := workerpool.New(8, 1000)

	s, err := scheduler.New(pool, scheduler.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	// Hold batch work during business hours on weekdays
	err = s.AddWindow(scheduler.Window{
		Name:     "business-hours",
		PauseAt:  "0 9 * * 1-5",
		ResumeAt: "0 17 * * 1-5",
	})

	s.Start()
	defer func() { <-s.Stop() }()

Expressions:

Expressions use the standard five cron fields or a descriptor:

	"30 14 * * 1-5"   - 2:30 PM on weekdays
	"0 0-23/2 * * *"  - Every 2 hours
	"@daily"          - Every day at midnight

WithSeconds enables an optional leading seconds field.

Reconciliation:

Start evaluates every window against the current time. A window is considered
active when its next resume comes before its next pause, so a process started
in the middle of a window pauses the target immediately instead of waiting for
the next pause event.

Overlapping Windows:

Pause is idempotent, so a window opening while another is active simply
re-asserts the pause. Resume is only issued when the last active window closes.
*/
package scheduler
