package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/texdown/internal/fileobserver"
	"github.com/hupe1980/texdown/internal/metrics"
)

// ErrNothingToWatch is returned by Run when none of the requested paths
// could be tracked.
var ErrNothingToWatch = errors.New("no watchable files")

// RunFunc is called each time a watched file needs converting.
type RunFunc func(ctx context.Context, path string) (*RunResult, error)

// RunResult holds the output of a single conversion.
type RunResult struct {
	OutputPath string
}

// Options configures the watch behaviour.
type Options struct {
	// Paths are the files to watch. The set is fixed at startup.
	Paths []string

	// Interval is the period between polling sweeps.
	Interval time.Duration

	// Missing decides what happens to files that disappear.
	Missing fileobserver.MissingPolicy

	// Notify enables the filesystem-event fast path.
	Notify bool

	// Debounce is the quiet period applied to filesystem events.
	Debounce time.Duration

	// Initial converts every tracked file once before watching.
	Initial bool

	// Metrics records conversions, sweeps and events. Nil disables it.
	Metrics *metrics.Metrics

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Interval: fileobserver.DefaultInterval,
		Missing:  fileobserver.MissingRetain,
		Debounce: 200 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// runner serializes conversions and the status lines they print.
type runner struct {
	mu    sync.Mutex
	opts  Options
	runFn RunFunc
}

// Run starts watching and blocks until the context is cancelled or a
// SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}

	// Trap SIGINT / SIGTERM for graceful shutdown.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &runner{opts: opts, runFn: runFn}

	observer, err := fileobserver.New(opts.Paths, func(path string) {
		r.run(sigCtx, path, path)
	},
		fileobserver.WithInterval(opts.Interval),
		fileobserver.WithMissingPolicy(opts.Missing),
		fileobserver.WithLogger(opts.Logger),
		fileobserver.WithSweepHook(opts.Metrics.ObserveSweep),
	)
	if err != nil {
		return fmt.Errorf("starting observer: %w", err)
	}

	tracked := observer.Tracked()
	if len(tracked) == 0 {
		observer.Stop()
		return ErrNothingToWatch
	}

	opts.Metrics.SetTrackedFiles(len(tracked))
	reportSkipped(opts, tracked)

	fmt.Fprintf(opts.Out, "watching %d file(s) (interval=%s, missing=%s, notify=%t)\n",
		len(tracked), observer.Interval(), opts.Missing, opts.Notify)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error

	debouncer := NewDebouncer(opts.Debounce, func(_ string) {
		observer.Sweep()
	})

	if opts.Notify {
		notifier, notifyErr := newNotifier(tracked)
		if notifyErr != nil {
			opts.Logger.Warn("filesystem notifications unavailable, polling only",
				slog.String("error", notifyErr.Error()))
		} else {
			defer notifier.Close()

			events = notifier.Events
			watchErrs = notifier.Errors
		}
	}

	if opts.Initial {
		for _, p := range tracked {
			if sigCtx.Err() != nil {
				break
			}

			r.run(sigCtx, p, p+" (initial)")
		}
	}

	relevant := make(map[string]bool, len(tracked))
	for _, p := range tracked {
		relevant[filepath.Clean(p)] = true
	}

	for {
		select {
		case <-sigCtx.Done():
			debouncer.Stop()
			debouncer.Wait()
			observer.Stop()
			observer.Wait()

			fmt.Fprintln(opts.Out, "\nshutting down watcher")

			return nil

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}

			if !isRelevant(event, relevant) {
				continue
			}

			opts.Logger.Debug("filesystem event", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			opts.Metrics.IncEvents()
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// run executes a single conversion and prints the status line. Once ctx is
// done, pending conversions are skipped; a conversion already started runs
// to completion on a context detached from the shutdown signal.
func (r *runner) run(ctx context.Context, path, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil {
		r.opts.Logger.Debug("shutting down, skipping conversion", slog.String("path", path))
		return
	}

	start := time.Now()
	now := start.Format("15:04:05")

	result, err := r.runFn(context.WithoutCancel(ctx), path)
	r.opts.Metrics.ObserveConversion(time.Since(start), err)

	if err != nil {
		fmt.Fprintf(r.opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	if result != nil && result.OutputPath != "" {
		fmt.Fprintf(r.opts.Out, "[%s] %s → OK (%s)\n", now, trigger, result.OutputPath)
		return
	}

	fmt.Fprintf(r.opts.Out, "[%s] %s → OK\n", now, trigger)
}

func reportSkipped(opts Options, tracked []string) {
	ok := make(map[string]bool, len(tracked))
	for _, p := range tracked {
		ok[p] = true
	}

	for _, p := range opts.Paths {
		if !ok[p] {
			fmt.Fprintf(opts.Out, "  skipped: %s (not a readable file)\n", p)
		}
	}
}

// newNotifier watches the parent directory of every tracked file. Editors
// often replace files by rename, which a watch on the file itself would
// lose.
func newNotifier(tracked []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	added := make(map[string]bool)

	for _, p := range tracked {
		dir := filepath.Dir(filepath.Clean(p))
		if added[dir] {
			continue
		}

		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watching directory %q: %w", dir, err)
		}

		added[dir] = true
	}

	return watcher, nil
}

// isRelevant reports whether event touches one of the tracked files.
func isRelevant(event fsnotify.Event, tracked map[string]bool) bool {
	if event.Op == 0 {
		return false
	}

	// Only care about write, create, remove, rename.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return tracked[filepath.Clean(event.Name)]
}
