// Package tracing records OpenTelemetry spans for worker pool activity.
//
// Hooks builds workerpool.Hooks that open one span per executed task and one
// per pause wait. The spans are rooted at the worker because hooks cannot alter
// the context a task receives; use WrapTask when the task itself should run
// inside the span.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnykmshr/pauseflow/pkg/scheduling/workerpool"
)

const (
	// TaskSpanName is the name of spans covering one task execution.
	TaskSpanName = "workerpool.task"

	// PauseSpanName is the name of spans covering a worker's pause wait.
	PauseSpanName = "workerpool.pause"
)

// Attribute keys set on pool spans.
const (
	WorkerIDKey   = attribute.Key("workerpool.worker.id")
	WorkerNameKey = attribute.Key("workerpool.worker.name")
	PoolNameKey   = attribute.Key("workerpool.name")
	QueueWaitKey  = attribute.Key("workerpool.task.queue_wait_ms")
)

// spans tracks the open span of each worker. A worker runs one task or one
// pause wait at a time, so the worker ID is a sufficient key.
type spans struct {
	mu   sync.Mutex
	open map[int]trace.Span
}

func (s *spans) put(id int, span trace.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[id] = span
}

func (s *spans) take(id int) (trace.Span, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.open[id]
	delete(s.open, id)
	return span, ok
}

// Option configures Hooks.
type Option func(*options)

type options struct {
	poolName string
}

// WithPoolName tags every span with the given pool name.
func WithPoolName(name string) Option {
	return func(o *options) {
		o.poolName = name
	}
}

// Hooks returns workerpool hooks that record task and pause spans on tracer.
// Combine with other hooks through workerpool.ChainHooks.
func Hooks(tracer trace.Tracer, opts ...Option) workerpool.Hooks {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	tasks := &spans{open: make(map[int]trace.Span)}
	pauses := &spans{open: make(map[int]trace.Span)}

	attrs := func(w workerpool.WorkerInfo) []attribute.KeyValue {
		kv := []attribute.KeyValue{
			WorkerIDKey.Int(w.ID),
			WorkerNameKey.String(w.Name),
		}
		if o.poolName != "" {
			kv = append(kv, PoolNameKey.String(o.poolName))
		}
		return kv
	}

	return workerpool.Hooks{
		OnTaskStart: func(w workerpool.WorkerInfo, _ workerpool.Task) {
			_, span := tracer.Start(context.Background(), TaskSpanName,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs(w)...))
			tasks.put(w.ID, span)
		},
		OnTaskComplete: func(w workerpool.WorkerInfo, r workerpool.Result) {
			span, ok := tasks.take(w.ID)
			if !ok {
				return
			}
			span.SetAttributes(QueueWaitKey.Int64(r.QueueWait.Milliseconds()))
			if r.Error != nil {
				span.RecordError(r.Error)
				span.SetStatus(codes.Error, r.Error.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		},
		OnPause: func(w workerpool.WorkerInfo) {
			_, span := tracer.Start(context.Background(), PauseSpanName,
				trace.WithAttributes(attrs(w)...))
			pauses.put(w.ID, span)
		},
		OnResume: func(w workerpool.WorkerInfo) {
			if span, ok := pauses.take(w.ID); ok {
				span.End()
			}
		},
		OnWorkerStop: func(w workerpool.WorkerInfo) {
			// A worker that exits mid-task or mid-pause leaves nothing behind.
			if span, ok := tasks.take(w.ID); ok {
				span.End()
			}
			if span, ok := pauses.take(w.ID); ok {
				span.End()
			}
		},
	}
}

// WrapTask returns a task that runs inside a span named name, so the task
// can create child spans from its context.
func WrapTask(tracer trace.Tracer, name string, task workerpool.Task) workerpool.Task {
	return &tracedTask{tracer: tracer, name: name, task: task}
}

type tracedTask struct {
	tracer trace.Tracer
	name   string
	task   workerpool.Task
}

func (t *tracedTask) Execute(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, t.name)
	defer span.End()

	err := t.task.Execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Unwrap returns the wrapped task.
func (t *tracedTask) Unwrap() workerpool.Task {
	return t.task
}
