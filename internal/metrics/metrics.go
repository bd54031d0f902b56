// Package metrics provides Prometheus metrics for the winisorts servers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsAdded counts paper writes by outcome.
	RecordsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winisorts",
			Name:      "records_added_total",
			Help:      "Total number of record writes",
		},
		[]string{"status"},
	)

	// FeedSubscribers tracks open websocket feed connections.
	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "winisorts",
			Name:      "feed_subscribers",
			Help:      "Number of open feed subscriptions",
		},
	)

	// SnapshotSize observes how many records each pushed snapshot carries.
	SnapshotSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "winisorts",
			Name:      "snapshot_size",
			Help:      "Distribution of pushed snapshot sizes",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// ClassifyTotal counts classification requests by outcome.
	ClassifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winisorts",
			Name:      "classify_total",
			Help:      "Total number of classification requests",
		},
		[]string{"status"},
	)

	// ClassifyDuration measures classification latency.
	ClassifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "winisorts",
			Name:      "classify_duration_seconds",
			Help:      "Duration of classification requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ErrorsTotal counts errors by operation.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winisorts",
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation"},
	)
)

func RecordAdd(status string) {
	RecordsAdded.WithLabelValues(status).Inc()
}

func RecordSnapshot(size int) {
	SnapshotSize.Observe(float64(size))
}

// RecordClassify records one classification and its duration in seconds.
func RecordClassify(status string, duration float64) {
	ClassifyTotal.WithLabelValues(status).Inc()
	ClassifyDuration.Observe(duration)
}

func RecordError(operation string) {
	ErrorsTotal.WithLabelValues(operation).Inc()
}
