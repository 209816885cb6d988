// Package metrics exposes watch activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobdeck/internal/poller"
)

const (
	namespace = "jobdeck"
	subsystem = "watch"
)

var _ poller.Observer = (*Watch)(nil)

// Watch holds the watch metrics, labelled by search name.
type Watch struct {
	registry *prometheus.Registry

	polls       *prometheus.CounterVec
	newJobs     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewWatch registers the watch metrics on a private registry.
func NewWatch() *Watch {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Watch{
		registry: reg,
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "polls_total",
			Help:      "Polls of a saved search by outcome.",
		}, []string{"search", "outcome"}),
		newJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "new_jobs_total",
			Help:      "Jobs reported as new.",
		}, []string{"search"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_records_total",
			Help:      "Listings that could not be normalized.",
		}, []string{"search"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one poll, all pages included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"search"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll.",
		}, []string{"search"}),
	}
}

// ObservePoll records one poll.
func (w *Watch) ObservePoll(search string, stats poller.Stats, err error) {
	w.duration.WithLabelValues(search).Observe(stats.Duration.Seconds())
	if err != nil {
		w.polls.WithLabelValues(search, "error").Inc()
		return
	}
	w.polls.WithLabelValues(search, "ok").Inc()
	w.newJobs.WithLabelValues(search).Add(float64(stats.New))
	w.dropped.WithLabelValues(search).Add(float64(stats.Dropped))
	w.lastSuccess.WithLabelValues(search).SetToCurrentTime()
}

// Handler serves the metrics in the Prometheus text format.
func (w *Watch) Handler() http.Handler {
	return promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (w *Watch) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
