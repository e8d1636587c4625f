// Package metrics exposes watch-mode counters in the Prometheus text format.
//
// All methods on a nil *Metrics are no-ops, so callers can record
// unconditionally and leave metrics disabled by passing nil.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "texdown"

// Result label values for the conversions counter.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// shutdownTimeout bounds the graceful shutdown of the metrics server.
const shutdownTimeout = 5 * time.Second

// Metrics holds the watch-mode collectors and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	conversions        *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	trackedFiles       prometheus.Gauge
	sweeps             prometheus.Counter
	events             prometheus.Counter
}

// New creates a registry with the texdown collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Number of pandoc conversions by result.",
		}, []string{"result"}),
		conversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Pandoc conversion time distribution in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2.0, 10),
		}),
		trackedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_files",
			Help:      "Number of files being watched for changes.",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Number of modification-time sweeps over the watched files.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fs_events_total",
			Help:      "Number of relevant filesystem notifications received.",
		}),
	}

	m.reg.MustRegister(
		m.conversions,
		m.conversionDuration,
		m.trackedFiles,
		m.sweeps,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Report both results from the first scrape on.
	m.conversions.WithLabelValues(ResultOK)
	m.conversions.WithLabelValues(ResultError)

	return m
}

// ObserveConversion records one conversion that took d and failed with err,
// if err is non-nil.
func (m *Metrics) ObserveConversion(d time.Duration, err error) {
	if m == nil {
		return
	}

	result := ResultOK
	if err != nil {
		result = ResultError
	}

	m.conversions.WithLabelValues(result).Inc()
	m.conversionDuration.Observe(d.Seconds())
}

// SetTrackedFiles records the size of the watched set.
func (m *Metrics) SetTrackedFiles(n int) {
	if m == nil {
		return
	}

	m.trackedFiles.Set(float64(n))
}

// ObserveSweep counts a completed sweep that left tracked files in the
// watched set.
func (m *Metrics) ObserveSweep(tracked int) {
	if m == nil {
		return
	}

	m.sweeps.Inc()
	m.trackedFiles.Set(float64(tracked))
}

// IncEvents counts a relevant filesystem notification.
func (m *Metrics) IncEvents() {
	if m == nil {
		return
	}

	m.events.Inc()
}

// Handler serves the registry on /metrics.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()

	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	}

	return mux
}

// Serve serves handler on ln until ctx is cancelled, then shuts the server
// down gracefully. It returns nil after a cancellation-triggered shutdown.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}()

	logger.Debug("serving metrics", slog.String("addr", ln.Addr().String()))

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}

	<-stopped

	return nil
}
