package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
	"github.com/vnykmshr/pauseflow/pkg/common/validation"
	"github.com/vnykmshr/pauseflow/pkg/metrics"
)

const module = "scheduler"

// Pausable is the control surface the scheduler drives. A workerpool.Pool
// satisfies it.
type Pausable interface {
	Pause() bool
	Resume()
}

// Window is a recurring period during which the target is paused.
// PauseAt and ResumeAt are cron expressions: five fields
// ("minute hour day month weekday") or a descriptor such as "@daily".
// A leading "CRON_TZ=Zone" overrides the scheduler location.
type Window struct {
	Name     string
	PauseAt  string
	ResumeAt string
}

// Action identifies a window transition.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

// Transition is a computed upcoming window event.
type Transition struct {
	Window string
	Action Action
	At     time.Time
}

type window struct {
	Window
	pause      cron.Schedule
	resume     cron.Schedule
	nextPause  time.Time
	nextResume time.Time
	active     bool
}

// insideAt reports whether t falls between a pause and the following resume.
// That is the case exactly when the next resume comes before the next pause.
func (w *window) insideAt(t time.Time) bool {
	return w.resume.Next(t).Before(w.pause.Next(t))
}

func (w *window) schedule(t time.Time) {
	w.nextPause = w.pause.Next(t)
	w.nextResume = w.resume.Next(t)
}

func (w *window) due(t time.Time) bool {
	return !t.Before(w.nextPause) || !t.Before(w.nextResume)
}

// Scheduler pauses a target during cron-defined windows.
//
// Overlapping windows are allowed: the target is paused when any window opens
// and resumed only when the last active window closes. The scheduler does not
// resume the target when stopped.
type Scheduler struct {
	target       Pausable
	parser       cron.Parser
	location     *time.Location
	tickInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Registry

	mu      sync.Mutex
	windows map[string]*window
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone cron expressions are evaluated in.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger for window transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records window transitions in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Scheduler) {
		s.metrics = reg
	}
}

// WithTickInterval sets how often due transitions are checked (default: 1s).
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithSeconds accepts an optional leading seconds field in expressions.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a stopped scheduler driving target.
func New(target Pausable, opts ...Option) (*Scheduler, error) {
	if err := validation.ValidateNotNil(module, "target", target); err != nil {
		return nil, err
	}

	s := &Scheduler{
		target:       target,
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		location:     time.Local,
		tickInterval: time.Second,
		now:          time.Now,
		logger:       slog.Default(),
		windows:      make(map[string]*window),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", module)

	return s, nil
}

// Validate parses both expressions of w without adding it.
func (s *Scheduler) Validate(w Window) error {
	_, err := s.compile(w)
	return err
}

func (s *Scheduler) compile(w Window) (*window, error) {
	if err := validation.ValidateNotEmpty(module, "Window.Name", w.Name); err != nil {
		return nil, err
	}

	pause, err := s.parser.Parse(w.PauseAt)
	if err != nil {
		return nil, gferrors.NewValidationError(module, "Window.PauseAt", w.PauseAt, err.Error()).
			WithHint("use five cron fields or a descriptor such as @daily")
	}
	resume, err := s.parser.Parse(w.ResumeAt)
	if err != nil {
		return nil, gferrors.NewValidationError(module, "Window.ResumeAt", w.ResumeAt, err.Error()).
			WithHint("use five cron fields or a descriptor such as @daily")
	}

	return &window{Window: w, pause: pause, resume: resume}, nil
}

// AddWindow registers a pause window. On a running scheduler the target is
// paused immediately if the current time falls inside the new window.
func (s *Scheduler) AddWindow(w Window) error {
	compiled, err := s.compile(w)
	if err != nil {
		return err
	}

	now := s.now().In(s.location)

	s.mu.Lock()
	if _, exists := s.windows[w.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%s: window %q already exists, remove it first", module, w.Name)
	}
	compiled.schedule(now)
	opened := false
	if s.running && compiled.insideAt(now) {
		compiled.active = true
		opened = true
	}
	s.windows[w.Name] = compiled
	s.mu.Unlock()

	if opened {
		s.apply(compiled.Name, ActionPause)
	}
	return nil
}

// RemoveWindow unregisters a window. Removing the last active window of a
// running scheduler resumes the target.
func (s *Scheduler) RemoveWindow(name string) bool {
	s.mu.Lock()
	w, exists := s.windows[name]
	if !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.windows, name)
	closed := s.running && w.active && !s.anyActiveLocked()
	s.mu.Unlock()

	if closed {
		s.apply(name, ActionResume)
	}
	return true
}

// Windows returns the registered windows sorted by name.
func (s *Scheduler) Windows() []Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w.Window)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InWindow returns the name of the first window, by name, that contains t.
func (s *Scheduler) InWindow(t time.Time) (string, bool) {
	t = t.In(s.location)

	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, w := range s.windows {
		if w.insideAt(t) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

// NextTransition returns the earliest window event strictly after t.
func (s *Scheduler) NextTransition(t time.Time) (Transition, bool) {
	t = t.In(s.location)

	s.mu.Lock()
	defer s.mu.Unlock()

	var next Transition
	found := false
	consider := func(name string, action Action, at time.Time) {
		if at.IsZero() {
			return
		}
		if !found || at.Before(next.At) || (at.Equal(next.At) && name < next.Window) {
			next = Transition{Window: name, Action: action, At: at}
			found = true
		}
	}
	for name, w := range s.windows {
		consider(name, ActionPause, w.pause.Next(t))
		consider(name, ActionResume, w.resume.Next(t))
	}
	return next, found
}

// Start reconciles the target with the current time and begins driving
// transitions. If now falls inside any window the target is paused at once.
func (s *Scheduler) Start() error {
	now := s.now().In(s.location)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("%s: already running, call Stop() first", module)
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	var opened []string
	for name, w := range s.windows {
		w.schedule(now)
		w.active = w.insideAt(now)
		if w.active {
			opened = append(opened, name)
		}
	}
	done, stopped := s.done, s.stopped
	s.mu.Unlock()

	if len(opened) > 0 {
		sort.Strings(opened)
		for _, name := range opened {
			s.record(name, "open")
		}
		s.apply(opened[0], ActionPause)
	}

	go s.run(done, stopped)
	return nil
}

// Stop halts the scheduler. The returned channel closes once the loop exits.
// The target is left in whatever state the last transition put it in.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		if s.stopped == nil {
			s.stopped = make(chan struct{})
			close(s.stopped)
		}
		return s.stopped
	}
	s.running = false
	close(s.done)
	return s.stopped
}

func (s *Scheduler) run(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick applies every transition due at now.
func (s *Scheduler) tick(now time.Time) {
	now = now.In(s.location)

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	wasActive := s.anyActiveLocked()
	var opened, closed []string
	for name, w := range s.windows {
		if !w.due(now) {
			continue
		}
		active := w.insideAt(now)
		w.schedule(now)
		if active == w.active {
			continue
		}
		w.active = active
		if active {
			opened = append(opened, name)
		} else {
			closed = append(closed, name)
		}
	}
	isActive := s.anyActiveLocked()
	s.mu.Unlock()

	sort.Strings(opened)
	sort.Strings(closed)
	for _, name := range closed {
		s.record(name, "close")
	}
	for _, name := range opened {
		s.record(name, "open")
	}

	switch {
	case len(opened) > 0:
		s.apply(opened[0], ActionPause)
	case wasActive && !isActive:
		s.apply(closed[len(closed)-1], ActionResume)
	}
}

func (s *Scheduler) anyActiveLocked() bool {
	for _, w := range s.windows {
		if w.active {
			return true
		}
	}
	return false
}

func (s *Scheduler) record(name, action string) {
	if s.metrics != nil {
		s.metrics.WindowTransitions.WithLabelValues(name, action).Inc()
	}
}

// apply drives the target outside the scheduler lock.
func (s *Scheduler) apply(name string, action Action) {
	switch action {
	case ActionPause:
		if !s.target.Pause() {
			s.logger.Warn("target refused pause", "window", name)
			return
		}
		s.logger.Info("pause window opened", "window", name)
	case ActionResume:
		s.target.Resume()
		s.logger.Info("pause window closed", "window", name)
	}
}
