// Package consumer provides a consumer-group wrapper that shields handlers
// from the Kafka client library.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed Kafka record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes consumed messages. Returning an error withholds the
// commit so the message is redelivered on the next rebalance or restart;
// handlers must be idempotent.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer runs a consumer group over a fixed set of topics.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New creates a consumer joined to the given group.
func New(brokers []string, group string, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("velum"),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is cancelled. Records are committed one at a time
// after their handler succeeds. On a handler error the rest of the batch is
// dropped; consumption resumes from the last committed offset once the
// group rebalances or the process restarts.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			msg := &Message{
				Topic:     record.Topic,
				Partition: record.Partition,
				Offset:    record.Offset,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.WarnContext(ctx, "handler failed, abandoning batch for redelivery",
					"topic", record.Topic,
					"offset", record.Offset,
					"error", err,
				)
				break
			}
			if err := c.client.CommitRecords(ctx, record); err != nil {
				c.logger.WarnContext(ctx, "kafka commit failed",
					"topic", record.Topic,
					"offset", record.Offset,
					"error", err,
				)
			}
		}
	}
}
