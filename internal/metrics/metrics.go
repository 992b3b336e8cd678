// Package metrics exposes the observation points the monitoring stack scrapes
// from /metrics. Nothing here is consulted by the core logic itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weather_consumer_messages_processed_total",
		Help: "Total number of telemetry messages processed successfully",
	})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_consumer_messages_rejected_total",
		Help: "Total number of telemetry messages rejected by validation",
	}, []string{"reason"})

	MessagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_consumer_messages_failed_total",
		Help: "Total number of telemetry messages that exhausted retries",
	}, []string{"reason"})

	ConsumerLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_consumer_queue_lag",
		Help: "Messages waiting in the topic behind the consumer group",
	})

	ProcessingTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_consumer_processing_time_seconds",
		Help:    "Time taken to process one telemetry message",
		Buckets: prometheus.DefBuckets,
	})

	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_alerts_notifications_sent_total",
		Help: "Total number of alert notifications dispatched",
	}, []string{"severity"})

	RuleSnapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_alerts_rule_snapshot_size",
		Help: "Number of enabled rules in the active snapshot",
	})
)
