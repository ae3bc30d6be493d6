/*
Package pauseflow provides a pausable fixed-size worker pool for Go applications.

Task Scheduling (pkg/scheduling):
  - workerpool: Fixed worker pool with pause/resume, three shutdown variants and futures
  - scheduler: Cron-defined pause windows
  - distributed: Fleet-wide pause and resume through Redis

Observability:
  - metrics: Prometheus collectors for pools, windows and remote commands
  - observability/tracing: OpenTelemetry spans for tasks and pauses

Example usage:

	import (
		"github.com/vnykmshr/pauseflow/pkg/scheduling/workerpool"
	)

	pool, _ := workerpool.New(5, 100) // 5 workers, queue 100

	pool.Pause()
	pool.Submit(task) // queued, not started
	pool.Resume()     // workers pick it up

	<-pool.Shutdown()
*/
package pauseflow
