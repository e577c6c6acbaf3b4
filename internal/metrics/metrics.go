// Package metrics exposes Prometheus collectors for the promo watcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promowatch_runs_total",
			Help: "Total completed runs, labeled by decision outcome or error.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promowatch_run_duration_seconds",
			Help:    "Histogram of full run-cycle durations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	runsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "promowatch_runs_in_flight",
			Help: "1 while a run cycle is executing, else 0.",
		},
	)

	runsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promowatch_runs_dropped_total",
			Help: "Run requests dropped because a run was already in flight.",
		},
	)

	scrapeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promowatch_scrape_failures_total",
			Help: "Scrape attempts that failed on navigation, timeout or selector miss.",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promowatch_notifications_total",
			Help: "Notifications dispatched, labeled by message variant.",
		},
		[]string{"variant"},
	)

	dispatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promowatch_dispatch_failures_total",
			Help: "Notification dispatches that failed after state was persisted.",
		},
	)
)

// Handler returns an http.Handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one completed run cycle.
func ObserveRun(outcome string, duration time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveRunDropped counts a run request dropped by the single-flight guard.
func ObserveRunDropped() {
	runsDroppedTotal.Inc()
}

// SetRunInFlight flips the in-flight gauge.
func SetRunInFlight(inFlight bool) {
	if inFlight {
		runsInFlight.Set(1)
		return
	}
	runsInFlight.Set(0)
}

// ObserveScrapeFailure counts a failed scrape attempt.
func ObserveScrapeFailure() {
	scrapeFailuresTotal.Inc()
}

// ObserveNotification counts a dispatched notification.
func ObserveNotification(variant string) {
	notificationsTotal.WithLabelValues(variant).Inc()
}

// ObserveDispatchFailure counts a failed dispatch.
func ObserveDispatchFailure() {
	dispatchFailuresTotal.Inc()
}
