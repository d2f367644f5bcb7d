// Package clinical provides a fail-closed audit publisher for regulated
// events.
//
// The publisher emits clinical events with synchronous, fail-closed
// semantics. Events are written to the outbox and the caller blocks until
// the write succeeds. If the write fails, an error is returned and the
// calling operation MUST fail.
//
// Use for: twin_created, simulation_requested, simulation_completed,
// count_decryption_requested, count_revealed
package clinical

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "velum/pkg/platform/audit"
	"velum/pkg/requestcontext"
)

// Publisher emits clinical events with fail-closed semantics.
// All writes are synchronous: the caller blocks until persistence succeeds
// or fails.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a clinical publisher.
// The store must be outbox-backed for guaranteed delivery.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a clinical event to the audit store.
// Returns error if persistence fails - the caller MUST fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.ClinicalEvent) error {
	start := time.Now()

	if event.Action == "" {
		return fmt.Errorf("clinical event requires Action")
	}
	if !event.TwinID.IsValid() && event.CategoryLabel == "" {
		return fmt.Errorf("clinical event requires a twin id or a category label")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	// Synchronous write - this is the critical path
	if err := p.store.Append(ctx, event.ToEvent()); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: clinical audit failed",
				"action", event.Action,
				"twin_id", event.TwinID,
				"category", event.CategoryLabel,
				"error", err,
			)
		}
		return fmt.Errorf("clinical audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()

	return nil
}

// Close is a no-op for the synchronous clinical publisher.
func (p *Publisher) Close() error {
	return nil
}
