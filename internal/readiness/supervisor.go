package readiness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"orchestrator/pkg/logging"
)

const subsystem = "Readiness"

// State is the position of a Supervisor in its lifecycle.
type State int

const (
	NotStarted State = iota
	Polling
	Ready
	TimedOut
	// Cancelled means the caller's context ended before a verdict.
	Cancelled
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Polling:
		return "Polling"
	case Ready:
		return "Ready"
	case TimedOut:
		return "TimedOut"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Ready || s == TimedOut || s == Cancelled
}

var (
	// ErrNotReady matches every *NotReadyError.
	ErrNotReady = errors.New("marker did not appear in time")

	// ErrAlreadyStarted is returned when Poll is called on a supervisor that
	// has already been polled.
	ErrAlreadyStarted = errors.New("readiness: supervisor already started")
)

// NotReadyError reports a marker that was still absent after the last
// allowed attempt.
type NotReadyError struct {
	Marker   string
	Purpose  string
	Attempts int
	Interval time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("did not become %s in time: %s not found after %d attempts at %s intervals",
		e.Purpose, e.Marker, e.Attempts, e.Interval)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// Supervisor polls for the existence of a marker file. It only looks at the
// path; neither the file content nor the process that writes it is checked.
type Supervisor struct {
	marker      string
	interval    time.Duration
	maxAttempts int
	purpose     string
	watch       bool
	check       func(path string) bool

	mu       sync.RWMutex
	state    State
	attempts int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithWatch wakes the poll loop as soon as the marker is created instead of
// waiting out the full interval. The attempt budget is unchanged. When no
// file watch can be set up the supervisor polls as usual.
func WithWatch() Option {
	return func(s *Supervisor) {
		s.watch = true
	}
}

// WithPurpose names what the marker signals, for messages and errors.
func WithPurpose(purpose string) Option {
	return func(s *Supervisor) {
		s.purpose = purpose
	}
}

// New creates a Supervisor that checks marker up to maxAttempts times, interval
// apart. maxAttempts below 1 is treated as 1 and a negative interval as zero.
func New(marker string, interval time.Duration, maxAttempts int, opts ...Option) *Supervisor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if interval < 0 {
		interval = 0
	}
	s := &Supervisor{
		marker:      marker,
		interval:    interval,
		maxAttempts: maxAttempts,
		purpose:     "ready",
		check:       exists,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Attempts returns how many checks have been made so far.
func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Marker returns the polled path.
func (s *Supervisor) Marker() string {
	return s.marker
}

func (s *Supervisor) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	logging.Debug(subsystem, "%s: %s -> %s", s.marker, from, to)
}

// Poll blocks until the marker exists, the attempt budget is spent or ctx
// ends. The first check happens immediately; each following check waits one
// interval first. It returns nil when Ready, a *NotReadyError when TimedOut and
// ctx.Err() when Cancelled. A Supervisor can be polled once.
func (s *Supervisor) Poll(ctx context.Context) error {
	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = Polling
	s.mu.Unlock()
	logging.Debug(subsystem, "%s: waiting to become %s (%d attempts, %s interval)", s.marker, s.purpose, s.maxAttempts, s.interval)

	var wake <-chan struct{}
	if s.watch {
		w := newWatch(s.marker)
		defer w.close()
		if w.active() {
			wake = w.created()
		} else {
			logging.Debug(subsystem, "%s: no file watch, polling every %s", s.marker, s.interval)
		}
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			s.transition(Cancelled)
			return err
		}

		s.mu.Lock()
		s.attempts = attempt
		s.mu.Unlock()

		if s.check(s.marker) {
			s.transition(Ready)
			logging.Info(subsystem, "%s is %s after %d attempt(s)", s.marker, s.purpose, attempt)
			return nil
		}

		if attempt >= s.maxAttempts {
			s.transition(TimedOut)
			err := &NotReadyError{Marker: s.marker, Purpose: s.purpose, Attempts: attempt, Interval: s.interval}
			logging.Warn(subsystem, "%v", err)
			return err
		}

		if err := s.sleep(ctx, wake); err != nil {
			s.transition(Cancelled)
			return err
		}
	}
}

func (s *Supervisor) sleep(ctx context.Context, wake <-chan struct{}) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-wake:
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WaitForReady polls for a marker that signals readiness.
func WaitForReady(ctx context.Context, marker string, interval time.Duration, maxAttempts int, opts ...Option) error {
	opts = append([]Option{WithPurpose("ready")}, opts...)
	return New(marker, interval, maxAttempts, opts...).Poll(ctx)
}

// WaitForStop polls for a marker that signals a completed shutdown.
func WaitForStop(ctx context.Context, marker string, interval time.Duration, maxAttempts int, opts ...Option) error {
	opts = append([]Option{WithPurpose("stopped")}, opts...)
	return New(marker, interval, maxAttempts, opts...).Poll(ctx)
}
