// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram

	// Entry metrics, labeled by terminal state
	EntriesTotal *prometheus.CounterVec

	// Fetch metrics
	FetchesTotal  *prometheus.CounterVec // labeled by store, result
	FetchDuration *prometheus.HistogramVec

	// History metrics
	QuotesAppended prometheus.Counter
	QuotesRejected *prometheus.CounterVec // labeled by cause
	QuotesArchived prometheus.Counter

	// Notification metrics, labeled by trigger
	NotificationsTotal  *prometheus.CounterVec
	NotificationsFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "game_deal_tracker"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Number of evaluator cycles run.",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one evaluator cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		EntriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Watchlist entries seen per terminal state.",
		}, []string{"state"}),
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Per-store fetch attempts by result.",
		}, []string{"store", "result"}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of per-store fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"store"}),
		QuotesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_appended_total",
			Help:      "Quotes appended to the price history.",
		}),
		QuotesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_rejected_total",
			Help:      "Quotes rejected before or during append, by cause.",
		}, []string{"cause"}),
		QuotesArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_archived_total",
			Help:      "Quotes written to the analytic archive.",
		}),
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications emitted, by trigger.",
		}, []string{"trigger"}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notification deliveries that returned an error.",
		}),
	}
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
