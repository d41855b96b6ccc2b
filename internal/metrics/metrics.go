package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Engagement read path
	BatchReadsTotal    prometheus.CounterVec
	BatchReadDuration  prometheus.HistogramVec
	BatchReadSize      prometheus.HistogramVec
	DedupCoalescedTotal prometheus.Counter

	// Engagement write path
	MutationsTotal  prometheus.CounterVec
	RollbacksTotal  prometheus.Counter
	FanoutPublishes prometheus.CounterVec

	// Reconciliation
	InvalidationsTotal prometheus.CounterVec
	PollerRunsTotal    prometheus.Counter

	// WebSocket
	WSActiveConnections prometheus.Gauge
	WSMessagesTotal     prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			BatchReadsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_batch_reads_total",
					Help: "Total number of batched engagement reads",
				},
				[]string{"status"},
			),
			BatchReadDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "engagement_batch_read_duration_seconds",
					Help:    "Batched engagement read latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1},
				},
				[]string{"status"},
			),
			BatchReadSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "engagement_batch_read_size",
					Help:    "Number of photo ids per batched read",
					Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
				},
				[]string{"status"},
			),
			DedupCoalescedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "engagement_dedup_coalesced_total",
					Help: "Batch reads coalesced onto an identical in-flight request",
				},
			),

			MutationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_mutations_total",
					Help: "Total number of reaction mutations",
				},
				[]string{"operation", "status"},
			),
			RollbacksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "engagement_rollbacks_total",
					Help: "Optimistic mutations rolled back after dispatch failure",
				},
			),
			FanoutPublishes: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_fanout_publishes_total",
					Help: "Fan-out events published after confirmed mutations",
				},
				[]string{"kind"},
			),

			InvalidationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_invalidations_total",
					Help: "Invalidation events received, by outcome",
				},
				[]string{"outcome"},
			),
			PollerRunsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "engagement_poller_runs_total",
					Help: "Fallback poller executions",
				},
			),

			WSActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_active_connections",
					Help: "Currently connected websocket clients",
				},
			),
			WSMessagesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_total",
					Help: "WebSocket messages by direction",
				},
				[]string{"direction"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
