package producer

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer wraps a franz-go client for synchronous publishing. Audit volume
// is low, so sync acks are worth the simpler error handling.
type Producer struct {
	client *kgo.Client
}

// New creates a producer connected to the given brokers.
func New(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("velum"),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer client: %w", err)
	}
	return &Producer{client: client}, nil
}

// Publish produces a single record and waits for the broker ack.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
