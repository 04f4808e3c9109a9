package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries is the maximum number of times a message handler will be
// attempted before the message is committed and skipped (poison pill protection).
const maxHandlerRetries = 3

// Handler is a function that processes a Kafka event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// EnableDLQ routes messages that exhaust all handler retries to a
	// dead-letter topic instead of dropping them.
	EnableDLQ bool
}

// Consumer wraps the kafka-go reader for consuming events.
type Consumer struct {
	reader    *kafka.Reader
	dlq       *DLQProducer
	logger    *slog.Logger
	handler   Handler
	closeOnce sync.Once
}

// NewConsumer creates a new Kafka consumer for a specific topic and group.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	var dlq *DLQProducer
	if cfg.EnableDLQ {
		dlq = NewDLQProducer(cfg.Brokers, logger)
	}

	return &Consumer{
		reader:  r,
		dlq:     dlq,
		logger:  logger,
		handler: handler,
	}
}

// Start begins consuming messages. It blocks until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	topic := c.reader.Config().Topic
	group := c.reader.Config().GroupID

	c.logger.Info("consumer started",
		slog.String("topic", topic),
		slog.String("group", group),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", slog.String("topic", topic))
			return c.Close()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
				continue
			}
			ConsumerMessagesReceived.WithLabelValues(topic, group).Inc()

			if stop := c.processMessage(ctx, msg, topic, group); stop {
				return nil
			}
		}
	}
}

// processMessage decodes, handles, and commits one fetched message. The
// returned stop flag is true only when the context was canceled mid-retry.
// Every path commits: an uncommittable message would wedge the partition.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, topic, group string) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
		)
		ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
		c.commit(ctx, msg, "failed to commit bad message")
		return false
	}

	lastErr, canceled := c.handleWithRetry(ctx, event, msg, topic, group)
	if canceled {
		return true
	}

	if lastErr != nil {
		ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
		c.logger.Error("handler failed after all retries, skipping poison message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("retries", maxHandlerRetries),
		)
		if c.dlq != nil {
			if dlqErr := c.dlq.Publish(ctx, msg, lastErr, group); dlqErr != nil {
				c.logger.Error("failed to dead-letter message", slog.String("error", dlqErr.Error()))
			} else {
				ConsumerDLQPublished.WithLabelValues(topic, group).Inc()
			}
		}
		c.commit(ctx, msg, "failed to commit poison message")
		return false
	}

	ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()
	c.commit(ctx, msg, "failed to commit message")
	return false
}

// handleWithRetry runs the handler up to maxHandlerRetries times with linear
// backoff between attempts. It returns the last handler error, or canceled
// true if the context expired while waiting to retry.
func (c *Consumer) handleWithRetry(ctx context.Context, event *Event, msg kafka.Message, topic, group string) (lastErr error, canceled bool) {
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		start := time.Now()
		err := c.handler(ctx, event)
		ConsumerProcessingDuration.WithLabelValues(topic, group).Observe(time.Since(start).Seconds())
		if err == nil {
			return nil, false
		}

		lastErr = err
		c.logger.Warn("handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxHandlerRetries),
		)

		if attempt < maxHandlerRetries {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return lastErr, true
			case <-time.After(backoff):
			}
		}
	}
	return lastErr, false
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, failLog string) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error(failLog, slog.String("error", err.Error()))
	}
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		err = c.reader.Close()
	})
	return err
}

// TopicPrefix is the standard prefix for all Raterly Kafka topics.
const TopicPrefix = "raterly"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
