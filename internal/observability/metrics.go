// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Indexer metrics
	EventsApplied  *prometheus.CounterVec
	EventsSkipped  prometheus.Counter
	EventFailures  *prometheus.CounterVec
	ApplyLatency   *prometheus.HistogramVec
	TokensCreated  prometheus.Counter
	TradesIndexed  *prometheus.CounterVec
	LastBlock      prometheus.Gauge
	RawEventsTotal *prometheus.CounterVec

	// Sink metrics
	SinkErrors *prometheus.CounterVec

	// Health metrics
	LastSuccessfulApply prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "rodeo"
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_applied_total",
			Help:      "Total number of events applied by kind",
		}, []string{"kind"}),
		EventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_skipped_total",
			Help:      "Total number of events at or below the cursor",
		}),
		EventFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "event_failures_total",
			Help:      "Total number of events that failed to apply by kind and error class",
		}, []string{"kind", "class"}),
		ApplyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "apply_latency_seconds",
			Help:      "Latency of applying one event including commit",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		TokensCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "tokens_created_total",
			Help:      "Total number of tokens created",
		}),
		TradesIndexed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "trades_indexed_total",
			Help:      "Total number of trades indexed by side",
		}, []string{"side"}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "last_applied_block",
			Help:      "Block of the last applied event",
		}),
		RawEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "raw_events_total",
			Help:      "Total number of events recorded to the raw event log by outcome",
		}, []string{"outcome"}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of failed sink deliveries by sink",
		}, []string{"sink"}),
		LastSuccessfulApply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_apply_timestamp",
			Help:      "Unix timestamp of last successfully applied event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordApplied records a committed event of kind at block.
func (m *Metrics) RecordApplied(kind string, block uint64, took time.Duration) {
	if m == nil {
		return
	}
	m.EventsApplied.WithLabelValues(kind).Inc()
	m.ApplyLatency.WithLabelValues(kind).Observe(took.Seconds())
	m.LastBlock.Set(float64(block))
	m.LastSuccessfulApply.SetToCurrentTime()
}

// RecordSkipped records an event skipped by the cursor.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.EventsSkipped.Inc()
}

// RecordFailure records an event that failed to apply.
func (m *Metrics) RecordFailure(kind, class string) {
	if m == nil {
		return
	}
	m.EventFailures.WithLabelValues(kind, class).Inc()
}

// RecordTokenCreated increments the tokens created counter.
func (m *Metrics) RecordTokenCreated() {
	if m == nil {
		return
	}
	m.TokensCreated.Inc()
}

// RecordTrade increments the trades indexed counter.
func (m *Metrics) RecordTrade(side string) {
	if m == nil {
		return
	}
	m.TradesIndexed.WithLabelValues(side).Inc()
}

// RecordRawEvent records a raw event log insert outcome ("inserted" or "duplicate").
func (m *Metrics) RecordRawEvent(outcome string) {
	if m == nil {
		return
	}
	m.RawEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordSinkError records a failed sink delivery.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}
