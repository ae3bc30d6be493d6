package testutil

import (
	"context"
	"sync"
)

// MockPausable records Pause and Resume calls. It is used by the scheduler and
// distributed tests in place of a real pool.
type MockPausable struct {
	mu      sync.Mutex
	paused  bool
	pauses  int
	resumes int
	refuse  bool
}

// NewMockPausable creates a MockPausable in the running state.
func NewMockPausable() *MockPausable {
	return &MockPausable{}
}

// Pause marks the target paused unless it was configured to refuse.
func (m *MockPausable) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	if m.refuse {
		return false
	}
	m.paused = true
	return true
}

// Resume clears the paused flag.
func (m *MockPausable) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
	m.paused = false
}

// IsPaused reports the current flag.
func (m *MockPausable) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Pauses returns the number of Pause calls.
func (m *MockPausable) Pauses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

// Resumes returns the number of Resume calls.
func (m *MockPausable) Resumes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumes
}

// SetRefuse makes subsequent Pause calls fail, as a terminated pool would.
func (m *MockPausable) SetRefuse(refuse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuse = refuse
}

// Gate is a task body that blocks until released. Started is closed when the
// first caller enters Wait.
type Gate struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Wait blocks until Open is called or ctx is done and returns ctx.Err() in the
// latter case.
func (g *Gate) Wait(ctx context.Context) error {
	g.startOnce.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Started returns a channel closed once a caller is blocked in Wait.
func (g *Gate) Started() <-chan struct{} {
	return g.started
}

// Open releases every current and future Wait call.
func (g *Gate) Open() {
	g.closeOnce.Do(func() { close(g.release) })
}
