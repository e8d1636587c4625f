// Package timer provides a self re-arming periodic timer. Each tick is a
// single-shot [time.AfterFunc] that, when it fires, schedules the next one
// against a fixed deadline before running the action. The period therefore
// does not stretch with the action's run time, and a stop is observed within
// one tick.
//
// Ticks never overlap: a deadline that arrives while the previous action is
// still running is skipped, and missed deadlines are not replayed.
package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrInvalidInterval is returned when the interval is not strictly positive.
	ErrInvalidInterval = errors.New("timer interval must be positive")

	// ErrNilAction is returned when no action is supplied.
	ErrNilAction = errors.New("timer action must not be nil")
)

// RepeatedTimer runs an action every interval until stopped.
type RepeatedTimer struct {
	interval time.Duration
	action   func()
	logger   *slog.Logger

	mu      sync.Mutex // protects timer, next, running and stopped
	timer   *time.Timer
	next    time.Time
	running bool
	stopped bool

	inflight sync.WaitGroup
}

// Option configures a RepeatedTimer.
type Option func(*RepeatedTimer)

// WithLogger sets the logger used to report recovered action panics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *RepeatedTimer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a RepeatedTimer and arms its first tick. The action runs for
// the first time once interval has elapsed, never during New.
func New(interval time.Duration, action func(), opts ...Option) (*RepeatedTimer, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	if action == nil {
		return nil, ErrNilAction
	}

	t := &RepeatedTimer{
		interval: interval,
		action:   action,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.mu.Lock()
	t.next = time.Now().Add(t.interval)
	t.timer = time.AfterFunc(t.interval, t.fire)
	t.mu.Unlock()

	return t, nil
}

// Interval returns the configured tick period.
func (t *RepeatedTimer) Interval() time.Duration {
	return t.interval
}

// Stop cancels the pending tick. A tick that is already running finishes;
// the tick it armed never fires. Stop is idempotent and terminal.
func (t *RepeatedTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	t.stopped = true

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Stopped reports whether Stop has been called.
func (t *RepeatedTimer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

// Wait blocks until the in-flight action, if any, has returned. Call it after
// Stop, and never from inside the action.
func (t *RepeatedTimer) Wait() {
	t.inflight.Wait()
}

func (t *RepeatedTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	t.next = nextDeadline(t.next, t.interval, time.Now())
	t.timer = time.AfterFunc(time.Until(t.next), t.fire)

	if t.running {
		t.mu.Unlock()
		t.logger.Debug("previous tick still running, skipping", slog.Duration("interval", t.interval))

		return
	}

	t.running = true
	t.inflight.Add(1)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()

		t.inflight.Done()
	}()

	t.run()
}

// nextDeadline returns the first deadline on the grid prev + k*interval
// (k >= 1) that lies after now.
func nextDeadline(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	if next.After(now) {
		return next
	}

	missed := now.Sub(next)/interval + 1

	return next.Add(missed * interval)
}

// run executes the action once. A panic is logged and swallowed so a single
// bad tick does not end the schedule.
func (t *RepeatedTimer) run() {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("timer action panicked", slog.Any("error", r))
		}
	}()

	t.action()
}
