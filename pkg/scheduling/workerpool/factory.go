package workerpool

import (
	"fmt"
	"sync/atomic"
)

// WorkerFactory starts the goroutines that back pool workers.
//
// Spawn must either start run on a new goroutine and return nil, or return an
// error without running it. The name passed to run identifies the worker.
type WorkerFactory interface {
	Spawn(run func(name string)) error
}

// FactoryFunc adapts a function to the WorkerFactory interface.
type FactoryFunc func(run func(name string)) error

// Spawn implements WorkerFactory.
func (f FactoryFunc) Spawn(run func(name string)) error {
	return f(run)
}

// NamedFactory names workers "<prefix>-worker-<n>" with its own counter, so
// two pools never share a numbering sequence.
type NamedFactory struct {
	prefix string
	seq    atomic.Int64
}

// NewNamedFactory creates a NamedFactory for the given prefix.
func NewNamedFactory(prefix string) *NamedFactory {
	return &NamedFactory{prefix: prefix}
}

// Spawn implements WorkerFactory.
func (f *NamedFactory) Spawn(run func(name string)) error {
	name := fmt.Sprintf("%s-worker-%d", f.prefix, f.seq.Add(1))
	go run(name)
	return nil
}

// Spawned returns the number of workers started by the factory.
func (f *NamedFactory) Spawned() int64 {
	return f.seq.Load()
}
