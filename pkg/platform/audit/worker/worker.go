// Package worker relays audit events from the postgres outbox to Kafka.
//
// The outbox write happens in the same transaction as the domain change, so
// the relay can ship events with at-least-once delivery and no dual-write
// window. Consumers dedupe on the event id.
package worker

import (
	"context"
	"log/slog"
	"time"

	audit "velum/pkg/platform/audit"
	"velum/pkg/platform/audit/store/postgres"

	"github.com/google/uuid"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// OutboxStore fetches and settles pending outbox entries.
type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, entryIDs []uuid.UUID) error
}

// Publisher ships a single record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Relay polls the outbox and publishes pending entries to the per-category
// audit topics.
type Relay struct {
	store       OutboxStore
	producer    Publisher
	logger      *slog.Logger
	topicPrefix string
	interval    time.Duration
	batchSize   int
}

// Option configures a Relay.
type Option func(*Relay)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize sets how many entries a single poll ships.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewRelay creates an outbox relay.
func NewRelay(store OutboxStore, producer Publisher, topicPrefix string, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:       store,
		producer:    producer,
		logger:      logger,
		topicPrefix: topicPrefix,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		"interval", r.interval,
		"batch_size", r.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// drain ships batches until the outbox is empty.
func (r *Relay) drain(ctx context.Context) error {
	for {
		entries, err := r.store.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			topic := audit.TopicFor(r.topicPrefix, audit.AuditEvent(entry.EventType).Category())
			if err := r.producer.Publish(ctx, topic, []byte(entry.ID.String()), entry.Payload); err != nil {
				// Publish order within the batch is preserved; stop at the
				// first failure and settle what already shipped.
				r.logger.WarnContext(ctx, "outbox publish failed",
					"entry_id", entry.ID,
					"event_type", entry.EventType,
					"error", err,
				)
				break
			}
			published = append(published, entry.ID)
		}

		if len(published) > 0 {
			if err := r.store.MarkPublished(ctx, published); err != nil {
				// Entries will be republished; consumers dedupe on event id.
				return err
			}
		}
		if len(published) < len(entries) {
			return nil
		}
	}
}
