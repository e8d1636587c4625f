package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/fileobserver"
	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/metrics"
	"github.com/hupe1980/texdown/internal/pandoc"
	"github.com/hupe1980/texdown/internal/watch"
)

func newWatchCommand() *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch <files...>",
		Short: "Watch Markdown files and re-convert them on change",
		Long: `Watch checks the given Markdown files for modification-time changes
every --interval and converts each changed file to PDF.

The set of files is fixed when the command starts: files that do not
exist yet are skipped, and new files are not picked up. A file that
disappears is kept and checked again on every sweep unless
--missing=drop is set.

With --notify, filesystem events on the files' directories trigger an
extra check after a --debounce quiet period, so edits are converted
without waiting for the next interval.

With --metrics-addr, conversion and sweep counters are served in the
Prometheus text format on /metrics.

Press Ctrl+C to stop.`,
		Example: `  texdown watch notes.md
  texdown watch --interval 1s --initial -o build "chapters/*.md"
  texdown watch --notify thesis.md
  texdown watch --metrics-addr :9464 notes.md`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: markdownArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args, initial)
		},
	}

	registerOutputFlags(cmd)
	registerWatchFlags(cmd)
	registerFlagCompletions(cmd)
	cmd.Flags().BoolVar(&initial, "initial", false, "convert every file once before watching")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string, initial bool) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	files, err := resolveInputs(args, cfg)
	if err != nil {
		return err
	}

	policy, err := fileobserver.ParseMissingPolicy(cfg.Missing)
	if err != nil {
		return usageError(err)
	}

	conv := newConverter(cfg, logger)

	v, err := conv.CheckVersion(ctx, pandoc.MinVersion)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	logger.Debug("using pandoc", slog.String("version", v.String()))

	m, stopMetrics, err := startMetrics(ctx, cmd, cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	runFn := func(fnCtx context.Context, path string) (*watch.RunResult, error) {
		out, convErr := conv.Convert(fnCtx, path)
		if convErr != nil {
			return nil, convErr
		}

		return &watch.RunResult{OutputPath: out}, nil
	}

	watchOpts := watch.Options{
		Paths:    files,
		Interval: cfg.Interval,
		Missing:  policy,
		Notify:   cfg.Notify,
		Debounce: cfg.Debounce,
		Initial:  initial,
		Metrics:  m,
		Logger:   logging.Component(logger, "watch"),
		Out:      cmd.ErrOrStderr(),
	}

	if err := watch.Run(ctx, watchOpts, runFn); err != nil {
		if errors.Is(err, watch.ErrNothingToWatch) {
			return usageError(err)
		}

		return err
	}

	return nil
}

// startMetrics serves Prometheus metrics on addr until the returned stop
// function is called. An empty addr disables metrics and returns a nil
// *metrics.Metrics.
func startMetrics(ctx context.Context, cmd *cobra.Command, addr string, logger *slog.Logger) (*metrics.Metrics, func(), error) {
	if addr == "" {
		return nil, func() {}, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, usageError(fmt.Errorf("listening for metrics on %s: %w", addr, err))
	}

	m := metrics.New()
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if serveErr := metrics.Serve(srvCtx, ln, m.Handler(), logging.Component(logger, "metrics")); serveErr != nil {
			logger.Error("metrics server failed", slog.String("error", serveErr.Error()))
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "metrics on http://%s/metrics\n", ln.Addr())

	return m, func() {
		cancel()
		<-done
	}, nil
}
