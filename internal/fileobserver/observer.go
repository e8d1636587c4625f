// Package fileobserver polls a fixed set of files for modification-time
// changes and reports each changed path to a callback.
//
// The set of watched files is captured once, when the observer is created.
// Paths that do not exist at that moment are skipped for good, and files that
// appear later are never picked up. Use [Observer.Tracked] to see which paths
// made it into the set.
package fileobserver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/texdown/internal/timer"
)

// DefaultInterval is the sweep period used when no interval is configured.
const DefaultInterval = 5 * time.Second

// ErrNilCallback is returned when New is called without a callback.
var ErrNilCallback = errors.New("observer callback must not be nil")

// MissingPolicy decides what a sweep does with a tracked file that has
// disappeared.
type MissingPolicy int

const (
	// MissingRetain keeps the entry and its last timestamp and retries on
	// the next sweep. A file that is recreated with a newer modification
	// time triggers the callback again.
	MissingRetain MissingPolicy = iota

	// MissingDrop removes the entry permanently.
	MissingDrop
)

// String returns the config name of the policy.
func (p MissingPolicy) String() string {
	switch p {
	case MissingRetain:
		return "retain"
	case MissingDrop:
		return "drop"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", int(p))
	}
}

// ParseMissingPolicy converts a config value into a MissingPolicy.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "", "retain":
		return MissingRetain, nil
	case "drop":
		return MissingDrop, nil
	default:
		return MissingRetain, fmt.Errorf("invalid missing-file policy %q: must be one of retain, drop", s)
	}
}

// StatFunc returns file information for a path. It matches [os.Stat].
type StatFunc func(path string) (fs.FileInfo, error)

// WatchEntry is a tracked file and the modification time recorded for it at
// the previous sweep.
type WatchEntry struct {
	Path         string
	LastModified time.Time
}

// Observer periodically compares the modification times of its tracked
// files against the recorded ones.
type Observer struct {
	callback func(path string)
	interval time.Duration
	missing  MissingPolicy
	logger   *slog.Logger
	stat     StatFunc
	onSweep  func(tracked int)

	// sweepMu serializes sweeps. mu protects entries and is never held
	// while the callback runs, so snapshots do not wait for a sweep.
	sweepMu sync.Mutex
	mu      sync.RWMutex
	entries []WatchEntry

	timer   *timer.RepeatedTimer
	stopped atomic.Bool
}

// Option configures an Observer.
type Option func(*Observer)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(o *Observer) {
		o.interval = d
	}
}

// WithLogger sets the logger that receives sweep diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMissingPolicy sets the policy for files that vanish between sweeps.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(o *Observer) {
		o.missing = p
	}
}

// WithStatFunc replaces os.Stat.
func WithStatFunc(stat StatFunc) Option {
	return func(o *Observer) {
		if stat != nil {
			o.stat = stat
		}
	}
}

// WithSweepHook registers fn to run at the end of every sweep with the
// number of files still tracked. Like the callback, fn runs on the sweep
// goroutine and must not call Sweep.
func WithSweepHook(fn func(tracked int)) Option {
	return func(o *Observer) {
		o.onSweep = fn
	}
}

// New records the current modification time of every existing path and
// starts sweeping every interval. Paths that cannot be stat'ed or that name
// directories are skipped without error; duplicates are tracked once.
//
// The callback runs on the sweep goroutine and must not call Sweep or Wait.
// Tracked and Entries are safe to call from it.
func New(paths []string, callback func(path string), opts ...Option) (*Observer, error) {
	if callback == nil {
		return nil, ErrNilCallback
	}

	o := &Observer{
		callback: callback,
		interval: DefaultInterval,
		missing:  MissingRetain,
		logger:   slog.Default(),
		stat:     os.Stat,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.interval <= 0 {
		return nil, fmt.Errorf("creating observer: %w", timer.ErrInvalidInterval)
	}

	o.capture(paths)

	t, err := timer.New(o.interval, o.Sweep, timer.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("creating observer: %w", err)
	}

	o.timer = t

	return o, nil
}

func (o *Observer) capture(paths []string) {
	seen := make(map[string]bool, len(paths))

	for _, p := range paths {
		if seen[p] {
			continue
		}

		fi, err := o.stat(p)
		if err != nil {
			o.logger.Debug("skipping unreadable path", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}

		if fi.IsDir() {
			o.logger.Debug("skipping directory", slog.String("path", p))
			continue
		}

		seen[p] = true
		o.entries = append(o.entries, WatchEntry{Path: p, LastModified: fi.ModTime()})
	}

	o.logger.Debug("observer initialised",
		slog.Int("tracked", len(o.entries)),
		slog.Int("requested", len(paths)),
		slog.Duration("interval", o.interval),
	)
}

// Sweep checks every tracked file once and invokes the callback for each
// file whose modification time advanced since the previous sweep. It runs
// on every tick and may also be called directly; concurrent calls are
// serialized. After Stop, Sweep does nothing.
func (o *Observer) Sweep() {
	o.sweepMu.Lock()
	defer o.sweepMu.Unlock()

	if o.stopped.Load() {
		return
	}

	// Sweeps are the only writers, so the snapshot stays current until it
	// is published below.
	current := o.Entries()
	kept := current[:0]

	for _, e := range current {
		if o.check(&e) {
			kept = append(kept, e)
		}
	}

	o.mu.Lock()
	o.entries = kept
	o.mu.Unlock()

	if o.onSweep != nil {
		o.onSweep(len(kept))
	}
}

// check updates e in place and reports whether it stays tracked.
func (o *Observer) check(e *WatchEntry) bool {
	fi, err := o.stat(e.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("stat failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			return true
		}

		if o.missing == MissingDrop {
			o.logger.Info("watched file removed, no longer tracking", slog.String("path", e.Path))
			return false
		}

		o.logger.Debug("watched file missing, retrying next sweep", slog.String("path", e.Path))

		return true
	}

	modified := fi.ModTime()
	if !modified.After(e.LastModified) {
		return true
	}

	o.logger.Debug("change detected",
		slog.String("path", e.Path),
		slog.Time("previous", e.LastModified),
		slog.Time("modified", modified),
	)

	o.dispatch(e.Path)
	e.LastModified = modified

	return true
}

func (o *Observer) dispatch(path string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("observer callback panicked", slog.String("path", path), slog.Any("error", r))
		}
	}()

	o.callback(path)
}

// Tracked returns the paths currently being watched, in tracking order.
// During a sweep it reports the set as of the previous sweep.
func (o *Observer) Tracked() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	paths := make([]string, len(o.entries))
	for i, e := range o.entries {
		paths[i] = e.Path
	}

	return paths
}

// Entries returns a copy of the tracked entries. It does not wait for a
// sweep in progress.
func (o *Observer) Entries() []WatchEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entries := make([]WatchEntry, len(o.entries))
	copy(entries, o.entries)

	return entries
}

// Interval returns the sweep period.
func (o *Observer) Interval() time.Duration {
	return o.interval
}

// Stop ends the periodic sweeps. A sweep already in progress completes.
// Stop is idempotent.
func (o *Observer) Stop() {
	o.stopped.Store(true)
	o.timer.Stop()
}

// Wait blocks until a sweep started by the timer has finished. Call it after
// Stop, and never from inside the callback.
func (o *Observer) Wait() {
	o.timer.Wait()
}
