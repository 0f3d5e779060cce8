package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	NotificationsIngested *prometheus.CounterVec
	FanoutSize            prometheus.Histogram
	FeedQueries           prometheus.Counter
	FeedQueryLatency      prometheus.Histogram
	MarkOps               *prometheus.CounterVec
	ExpireOps             prometheus.Counter
	KafkaMessages         *prometheus.CounterVec
	StorageErrors         *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		NotificationsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedhub_notifications_ingested_total",
			Help: "Total notifications accepted for fanout, by source",
		}, []string{"source"}),

		FanoutSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedhub_fanout_audience_size",
			Help:    "Audience size per fanned-out notification",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		FeedQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_feed_queries_total",
			Help: "Total recipient timeline queries",
		}),

		FeedQueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedhub_feed_query_duration_seconds",
			Help:    "Timeline query latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		MarkOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedhub_mark_operations_total",
			Help: "Seen and unseen toggle operations",
		}, []string{"direction"}), // "seen" or "unseen"

		ExpireOps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "feedhub_expire_operations_total",
			Help: "Total notifications administratively expired",
		}),

		KafkaMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedhub_kafka_messages_total",
			Help: "Kafka ingress messages by topic and result",
		}, []string{"topic", "result"}), // result: "ok", "invalid", "failed"

		StorageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "feedhub_storage_errors_total",
			Help: "Backing-store failures by operation",
		}, []string{"op"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordIngested records a notification accepted for fanout.
func (m *Metrics) RecordIngested(source string, audience int) {
	m.NotificationsIngested.WithLabelValues(source).Inc()
	m.FanoutSize.Observe(float64(audience))
}

// RecordFeedQuery records a timeline query and its latency.
func (m *Metrics) RecordFeedQuery(seconds float64) {
	m.FeedQueries.Inc()
	m.FeedQueryLatency.Observe(seconds)
}

// RecordMark records a seen/unseen toggle batch.
func (m *Metrics) RecordMark(direction string) {
	m.MarkOps.WithLabelValues(direction).Inc()
}

// RecordExpire records administratively expired notifications.
func (m *Metrics) RecordExpire(count int) {
	m.ExpireOps.Add(float64(count))
}

// RecordKafkaMessage records one Kafka ingress message outcome.
func (m *Metrics) RecordKafkaMessage(topic, result string) {
	m.KafkaMessages.WithLabelValues(topic, result).Inc()
}

// RecordStorageError records a backing-store failure.
func (m *Metrics) RecordStorageError(op string) {
	m.StorageErrors.WithLabelValues(op).Inc()
}
