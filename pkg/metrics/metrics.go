package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lock metrics
	LockWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beaver_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a named lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"lock_name"},
	)

	LockTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beaver_lock_timeouts_total",
			Help: "Total number of lock acquisitions that exceeded their timeout",
		},
		[]string{"lock_name"},
	)

	// Queue metrics
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beaver_queue_depth",
			Help: "Number of pending items in a priority queue",
		},
		[]string{"queue_name"},
	)

	// Channel metrics
	ChannelSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beaver_channel_subscribers",
			Help: "Number of live subscriptions on a channel in this process",
		},
		[]string{"channel_name"},
	)

	ChannelFanoutLagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beaver_channel_fanout_lag_seconds",
			Help: "Age of the oldest message not yet delivered by the fan-out loop",
		},
		[]string{"channel_name"},
	)

	// Vector index metrics
	VectorSearchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beaver_vector_search_seconds",
			Help:    "Latency of a vector search, including any sync step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection_name"},
	)

	VectorCompactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beaver_vector_compactions_total",
			Help: "Total number of vector index compactions run by this process",
		},
		[]string{"collection_name"},
	)

	VectorRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beaver_vector_rebuilds_total",
			Help: "Total number of full base/delta rebuilds triggered by a stale epoch",
		},
		[]string{"collection_name"},
	)

	// Collection metrics
	CollectionIndexSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beaver_collection_index_seconds",
			Help:    "Latency of indexing one document across all sub-structures",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection_name"},
	)
)

func init() {
	prometheus.MustRegister(
		LockWaitSeconds,
		LockTimeoutsTotal,
		QueueDepth,
		ChannelSubscribers,
		ChannelFanoutLagSeconds,
		VectorSearchSeconds,
		VectorCompactionsTotal,
		VectorRebuildsTotal,
		CollectionIndexSeconds,
	)
}

// Handler returns the Prometheus HTTP handler for a process that wants to
// expose these metrics; beaver itself never starts an HTTP server (that is
// the external server collaborator's job).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
