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
	// Tracker loop metrics
	TicksTotal    prometheus.Counter
	TickDuration  prometheus.Histogram
	TokensUpdated prometheus.Counter
	PurgedPoints  prometheus.Counter
	ActiveTokens  prometheus.Gauge
	PendingTokens prometheus.Gauge
	HistoryPoints prometheus.Gauge

	// Price API metrics
	APICallLatency *prometheus.HistogramVec
	BatchResults   *prometheus.CounterVec

	// Admission metrics
	CandidatesSubmitted *prometheus.CounterVec
	LifecycleEvents     *prometheus.CounterVec
	ValidationFailures  prometheus.Counter

	// Sink metrics
	SnapshotsEmitted prometheus.Counter
	SnapshotsDropped prometheus.Counter
	SinkErrors       *prometheus.CounterVec
	PublishLatency   *prometheus.HistogramVec
	WSClients        prometheus.Gauge

	// Journal metrics
	JournalDropped     prometheus.Counter
	JournalWriteErrors prometheus.Counter

	// Health metrics
	LastSuccessfulTick prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_price_tracker"
	}

	return &Metrics{
		// Tracker loop metrics
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "ticks_total",
			Help:      "Total number of update ticks",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one update tick in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}),
		TokensUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "tokens_updated_total",
			Help:      "Total number of token price updates appended",
		}),
		PurgedPoints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "purged_points_total",
			Help:      "Total number of price points removed by retention",
		}),
		ActiveTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "active_tokens",
			Help:      "Current number of tracked tokens",
		}),
		PendingTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "pending_tokens",
			Help:      "Current number of candidates awaiting validation",
		}),
		HistoryPoints: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "history_points",
			Help:      "Current number of retained price points",
		}),

		// Price API metrics
		APICallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "priceapi",
			Name:      "call_latency_seconds",
			Help:      "Price API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		BatchResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "priceapi",
			Name:      "batch_results_total",
			Help:      "Total number of batch fetches by outcome",
		}, []string{"outcome"}),

		// Admission metrics
		CandidatesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "candidates_submitted_total",
			Help:      "Total number of candidate submissions by result",
		}, []string{"result"}),
		LifecycleEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "lifecycle_events_total",
			Help:      "Total number of token lifecycle transitions by kind",
		}, []string{"kind"}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "validation_failures_total",
			Help:      "Total number of failed candidate validations",
		}),

		// Sink metrics
		SnapshotsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "snapshots_emitted_total",
			Help:      "Total number of snapshots emitted",
		}),
		SnapshotsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "snapshots_dropped_total",
			Help:      "Total number of snapshots dropped because the publish queue was full",
		}),
		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of sink errors by sink",
		}, []string{"sink"}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "publish_latency_seconds",
			Help:      "Downstream publish latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"publisher"}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "websocket_clients",
			Help:      "Current number of connected websocket clients",
		}),

		// Journal metrics
		JournalDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "events_dropped_total",
			Help:      "Total number of lifecycle events dropped because the buffer was full",
		}),
		JournalWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of failed lifecycle batch writes",
		}),

		// Health metrics
		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of last tick that updated at least one token",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick records one tracker tick.
func RecordTick(updated int, seconds float64, unixNow int64) {
	DefaultMetrics.TicksTotal.Inc()
	DefaultMetrics.TickDuration.Observe(seconds)
	DefaultMetrics.TokensUpdated.Add(float64(updated))
	if updated > 0 {
		DefaultMetrics.LastSuccessfulTick.Set(float64(unixNow))
	}
}

// RecordPurge records points removed by retention.
func RecordPurge(points int) {
	DefaultMetrics.PurgedPoints.Add(float64(points))
}

// UpdateRegistrySizes updates the registry gauges.
func UpdateRegistrySizes(active, pending, points int) {
	DefaultMetrics.ActiveTokens.Set(float64(active))
	DefaultMetrics.PendingTokens.Set(float64(pending))
	DefaultMetrics.HistoryPoints.Set(float64(points))
}

// RecordAPICall records price API call latency by status ("200", "429", "error", ...).
func RecordAPICall(status string, seconds float64) {
	DefaultMetrics.APICallLatency.WithLabelValues(status).Observe(seconds)
}

// RecordBatchResult records the outcome of one batch fetch.
func RecordBatchResult(outcome string) {
	DefaultMetrics.BatchResults.WithLabelValues(outcome).Inc()
}

// RecordCandidate records a candidate submission result ("accepted", "duplicate", "invalid").
func RecordCandidate(result string) {
	DefaultMetrics.CandidatesSubmitted.WithLabelValues(result).Inc()
}

// RecordLifecycle records a token lifecycle transition.
func RecordLifecycle(kind string) {
	DefaultMetrics.LifecycleEvents.WithLabelValues(kind).Inc()
}

// RecordValidationFailure increments the failed validation counter.
func RecordValidationFailure() {
	DefaultMetrics.ValidationFailures.Inc()
}

// RecordSnapshotEmitted increments the emitted snapshot counter.
func RecordSnapshotEmitted() {
	DefaultMetrics.SnapshotsEmitted.Inc()
}

// RecordSnapshotDropped increments the dropped snapshot counter.
func RecordSnapshotDropped() {
	DefaultMetrics.SnapshotsDropped.Inc()
}

// RecordSinkError records a swallowed sink failure.
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}

// RecordPublish records downstream publish latency.
func RecordPublish(publisher string, seconds float64) {
	DefaultMetrics.PublishLatency.WithLabelValues(publisher).Observe(seconds)
}

// UpdateWSClients sets the websocket client gauge.
func UpdateWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordJournalDropped increments the dropped lifecycle event counter.
func RecordJournalDropped() {
	DefaultMetrics.JournalDropped.Inc()
}

// RecordJournalWriteError increments the failed journal write counter.
func RecordJournalWriteError() {
	DefaultMetrics.JournalWriteErrors.Inc()
}
