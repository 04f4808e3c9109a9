package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer metrics carry topic and consumer_group labels so each stage of the
// review pipeline can be watched independently. Producer metrics only need the
// topic.
var (
	consumerLabels = []string{"topic", "consumer_group"}
	producerLabels = []string{"topic"}
)

func consumerCounter(name, help string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, consumerLabels)
}

func producerCounter(name, help string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, producerLabels)
}

var (
	// ConsumerMessagesProcessed counts the total number of successfully processed messages.
	ConsumerMessagesProcessed = consumerCounter(
		"kafka_consumer_messages_processed_total",
		"Total number of successfully processed Kafka messages",
	)

	// ConsumerMessagesFailed counts the total number of messages that exhausted retries.
	ConsumerMessagesFailed = consumerCounter(
		"kafka_consumer_messages_failed_total",
		"Total number of Kafka messages that failed all retries (sent to DLQ or dropped)",
	)

	// ConsumerProcessingDuration observes the duration of message handler execution.
	ConsumerProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Duration of Kafka message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		consumerLabels,
	)

	// ConsumerMessagesReceived counts total messages fetched from Kafka (before processing).
	ConsumerMessagesReceived = consumerCounter(
		"kafka_consumer_messages_received_total",
		"Total number of Kafka messages received (fetched from broker)",
	)

	// ConsumerMessagesDuplicate counts messages skipped by idempotency middleware.
	ConsumerMessagesDuplicate = consumerCounter(
		"kafka_consumer_messages_duplicate_total",
		"Total number of duplicate Kafka messages skipped by idempotency guard",
	)

	// ProducerMessagesPublished counts the total number of messages published.
	ProducerMessagesPublished = producerCounter(
		"kafka_producer_messages_published_total",
		"Total number of Kafka messages published",
	)

	// ProducerPublishErrors counts the total number of publish failures.
	ProducerPublishErrors = producerCounter(
		"kafka_producer_publish_errors_total",
		"Total number of Kafka publish errors",
	)

	// ProducerPublishDuration observes the duration of publish operations.
	ProducerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Duration of Kafka publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		producerLabels,
	)

	// ConsumerDLQPublished counts messages sent to DLQ.
	ConsumerDLQPublished = consumerCounter(
		"kafka_consumer_dlq_published_total",
		"Total number of messages published to dead-letter queue",
	)
)
