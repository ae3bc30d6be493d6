// Package metrics provides Prometheus instrumentation for pauseflow components.
//
// # Quick Start
//
// Wrap a worker pool with metrics collection on the default registry:
//
//	pool, err := workerpool.NewWithConfigAndMetrics(
//		workerpool.Config{Name: "ingest", WorkerCount: 5},
//		metrics.DefaultConfig(),
//	)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	pool, err := workerpool.NewWithConfigAndMetrics(
//		workerpool.Config{Name: "ingest", WorkerCount: 4},
//		metrics.Config{Enabled: true, Registry: registry},
//	)
//
// # Available Metrics
//
// Worker pool (label pool_name):
//
//   - pauseflow_workerpool_tasks_submitted_total
//   - pauseflow_workerpool_tasks_rejected_total
//   - pauseflow_workerpool_tasks_completed_total
//   - pauseflow_workerpool_tasks_failed_total
//   - pauseflow_workerpool_tasks_drained_total
//   - pauseflow_workerpool_task_duration_seconds
//   - pauseflow_workerpool_task_queue_wait_seconds
//   - pauseflow_workerpool_size
//   - pauseflow_workerpool_active_workers
//   - pauseflow_workerpool_queued_tasks
//   - pauseflow_workerpool_paused
//   - pauseflow_workerpool_pause_transitions_total (extra label action)
//
// Pause windows (labels window, action):
//
//   - pauseflow_scheduler_window_transitions_total
//
// Remote control (labels key, action):
//
//   - pauseflow_distributed_commands_total
//
// A Registry registers every collector with its registerer on creation, so
// create at most one Registry per prometheus.Registerer.
package metrics
