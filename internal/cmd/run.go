package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/pauseflow/internal/config"
	"github.com/vnykmshr/pauseflow/pkg/metrics"
	"github.com/vnykmshr/pauseflow/pkg/observability/tracing"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/distributed"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/workerpool"
)

type runOptions struct {
	configPath   string
	workers      int
	queue        int
	tasks        int
	taskDuration time.Duration
	metricsAddr  string
	redisAddr    string
	redisKey     string
	trace        string
}

// runEnv carries the process surroundings so tests can supply their own.
type runEnv struct {
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	signals <-chan os.Signal
}

// NewRunCmd creates and returns the run subcommand for the pausepool CLI.
func NewRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pausable worker pool over a batch of demo tasks",
		Long: `Run a worker pool that executes a batch of demo tasks.

Once every task has been submitted the pool shuts down gracefully and the
command exits when the last task has finished.

Signals:
  SIGUSR1          Pause: running tasks finish, queued tasks wait
  SIGUSR2          Resume
  SIGINT/SIGTERM   First: stop accepting work and drop the queue
                   Second: also interrupt running tasks

Pause windows from the config file and a Redis fleet key (--redis-addr)
pause and resume the pool as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger, err := loggerFor(cmd)
			if err != nil {
				return err
			}

			signals := make(chan os.Signal, 2)
			signal.Notify(signals, controlSignals...)
			defer signal.Stop(signals)

			return runPool(cmd.Context(), cfg, opts, runEnv{
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
				logger:  logger,
				signals: signals,
			})
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of workers (overrides config)")
	cmd.Flags().IntVarP(&opts.queue, "queue", "q", 0, "Queue capacity, 0 for unbounded (overrides config)")
	cmd.Flags().IntVarP(&opts.tasks, "tasks", "n", 100, "Number of demo tasks to submit")
	cmd.Flags().DurationVar(&opts.taskDuration, "task-duration", 50*time.Millisecond, "How long each demo task runs")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Attach to fleet pause control at this Redis address (overrides config)")
	cmd.Flags().StringVar(&opts.redisKey, "redis-key", "", "Fleet key prefix (overrides config)")
	cmd.Flags().StringVar(&opts.trace, "trace", "", "Trace exporter: stdout")

	return cmd
}

// loadRunConfig reads the config file, if any, and applies explicitly set flags.
func loadRunConfig(cmd *cobra.Command, opts runOptions) (*config.FileConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Pool.Workers = opts.workers
	}
	if flags.Changed("queue") {
		cfg.Pool.QueueSize = opts.queue
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr = opts.redisAddr
	}
	if flags.Changed("redis-key") {
		cfg.Redis.Key = opts.redisKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPool(ctx context.Context, cfg *config.FileConfig, opts runOptions, env runEnv) error {
	logger := env.logger

	poolConfig, err := cfg.WorkerPoolConfig()
	if err != nil {
		return err
	}
	poolConfig.Logger = logger

	hooks := []workerpool.Hooks{workerpool.LogHooks(logger)}
	if opts.trace != "" {
		tp, err := newTracerProvider(opts.trace, env.errOut)
		if err != nil {
			return err
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
		hooks = append(hooks, tracing.Hooks(tp.Tracer("pausepool"), tracing.WithPoolName(poolConfig.Name)))
	}
	poolConfig.Hooks = workerpool.ChainHooks(hooks...)

	base, err := workerpool.NewWithConfig(poolConfig)
	if err != nil {
		return err
	}

	var (
		pool     workerpool.Pool = base
		registry *metrics.Registry
		gatherer *prometheus.Registry
	)
	if cfg.Metrics.Addr != "" {
		gatherer = prometheus.NewRegistry()
		gatherer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = metrics.NewRegistry(gatherer)
		pool = workerpool.Instrument(base, registry)
	}

	// Setup failures below must not leave workers behind.
	abort := func(err error) error {
		pool.ShutdownNow()
		<-pool.Done()
		return err
	}

	if windows := cfg.SchedulerWindows(); len(windows) > 0 {
		loc, err := cfg.Location()
		if err != nil {
			return abort(err)
		}
		sched, err := scheduler.New(pool,
			scheduler.WithLocation(loc),
			scheduler.WithLogger(logger),
			scheduler.WithMetrics(registry),
		)
		if err != nil {
			return abort(err)
		}
		for _, w := range windows {
			if err := sched.AddWindow(w); err != nil {
				return abort(err)
			}
		}
		if err := sched.Start(); err != nil {
			return abort(err)
		}
		defer func() { <-sched.Stop() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Protocol: cfg.Redis.Protocol,
		})
		defer func() { _ = client.Close() }()

		timeout, err := cfg.RedisTimeout()
		if err != nil {
			return abort(err)
		}
		ctrl, err := distributed.NewController(distributed.Config{
			Redis:        client,
			Key:          cfg.Redis.Key,
			RedisTimeout: timeout,
			Logger:       logger,
			Metrics:      registry,
		})
		if err != nil {
			return abort(err)
		}
		sub, err := ctrl.Attach(gctx, pool)
		if err != nil {
			return abort(err)
		}
		defer func() { _ = sub.Close() }()
	}

	if gatherer != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-pool.Done():
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		for i := 0; i < opts.tasks; i++ {
			if err := pool.Submit(demoTask(i, opts.taskDuration)); err != nil {
				if errors.Is(err, workerpool.ErrPoolShutdown) {
					return nil
				}
				logger.Warn("task rejected", "task", i, "error", err)
			}
		}
		logger.Info("all tasks submitted", "tasks", opts.tasks)
		pool.Shutdown()
		return nil
	})

	g.Go(func() error {
		return control(gctx, pool, env)
	})

	err = g.Wait()
	_, _ = fmt.Fprintf(env.out, "submitted=%d completed=%d state=%s\n",
		pool.TotalSubmitted(), pool.TotalCompleted(), pool.State())
	return err
}

// control reacts to signals until the pool terminates.
func control(ctx context.Context, pool workerpool.Pool, env runEnv) error {
	interrupts := 0
	for {
		select {
		case <-pool.Done():
			return nil
		case <-ctx.Done():
			pool.ShutdownNow()
			<-pool.Done()
			return nil
		case sig := <-env.signals:
			switch {
			case pauseSignal != nil && sig == pauseSignal:
				if !pool.Pause() {
					env.logger.Warn("pause refused", "state", pool.State())
				}
			case resumeSignal != nil && sig == resumeSignal:
				pool.Resume()
			default:
				interrupts++
				if interrupts == 1 {
					drained := pool.ShutdownFast()
					_, _ = fmt.Fprintf(env.out, "shutting down: %d queued tasks drained (signal again to interrupt running tasks)\n", len(drained))
				} else {
					drained := pool.ShutdownNow()
					_, _ = fmt.Fprintf(env.out, "interrupting running tasks: %d queued tasks drained\n", len(drained))
				}
			}
		}
	}
}

func demoTask(id int, d time.Duration) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("task %d: %w", id, ctx.Err())
		}
	})
}

func newTracerProvider(kind string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch kind {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q (supported: stdout)", kind)
	}
}
