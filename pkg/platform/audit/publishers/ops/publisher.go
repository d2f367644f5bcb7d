// Package ops provides best-effort tracking for operational audit events.
//
// Operational events are observability data, not evidence. The tracker is
// fail-open end to end: events pass a sampler, a bounded queue, and a
// circuit breaker around the store, and any of the three may drop them.
// Losing an ops event never blocks or fails the operation that produced it.
//
// Use for: tracker_swept and other housekeeping outcomes.
package ops

import (
	"context"
	"log/slog"
	"time"

	"velum/pkg/platform/audit"
	"velum/pkg/platform/circuit"
	"velum/pkg/requestcontext"
)

const (
	defaultQueueSize     = 1024
	defaultProbeInterval = 10 * time.Second
)

// Tracker records operational audit events on a best-effort basis.
//
// Track is safe for concurrent use and never blocks. A single Run goroutine
// drains the queue and persists events through the circuit breaker. While
// the breaker is open, queued events are dropped except for a periodic
// probe write that lets the breaker close again once the store recovers.
type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics

	queue chan audit.OpsEvent

	// lastProbe is touched only by the Run goroutine.
	lastProbe     time.Time
	probeInterval time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(t *Tracker) {
		t.sampler = s
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Tracker) {
		t.breaker = b
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.queue = make(chan audit.OpsEvent, n)
		}
	}
}

// WithProbeInterval sets how often an open breaker lets a probe write through.
func WithProbeInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.probeInterval = d
		}
	}
}

// New creates an ops tracker backed by the given store.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:         store,
		sampler:       NewSampler(1.0),
		breaker:       circuit.New("audit-ops", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:        slog.Default(),
		queue:         make(chan audit.OpsEvent, defaultQueueSize),
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track enqueues an operational audit event. It never blocks: sampled-out
// events and events that do not fit the queue are counted and discarded.
func (t *Tracker) Track(ctx context.Context, event audit.OpsEvent) {
	if event.Action == "" {
		t.logger.WarnContext(ctx, "ops audit event missing action, dropped")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if !t.sampler.ShouldSample(event.Action) {
		t.metrics.IncSampled()
		return
	}

	select {
	case t.queue <- event:
	default:
		t.metrics.IncQueueDropped()
		t.logger.WarnContext(ctx, "ops audit queue full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Run drains the queue until ctx is cancelled. Events still queued at
// shutdown are dropped.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.InfoContext(ctx, "ops audit tracker started", "queue_size", cap(t.queue))
	for {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "ops audit tracker stopped", "queued", len(t.queue))
			return ctx.Err()
		case event := <-t.queue:
			t.persist(ctx, event)
		}
	}
}

func (t *Tracker) persist(ctx context.Context, event audit.OpsEvent) {
	if t.breaker.IsOpen() && !t.probeDue() {
		t.metrics.IncCircuitBreakerDropped()
		return
	}

	if err := t.store.Append(ctx, event.ToEvent()); err != nil {
		t.metrics.IncPersistFailures()
		t.lastProbe = time.Now()
		_, change := t.breaker.RecordFailure()
		if change.Opened {
			t.metrics.SetCircuitBreakerState(true)
			t.logger.WarnContext(ctx, "ops audit circuit breaker opened",
				"action", event.Action,
				"error", err,
			)
		}
		return
	}

	t.metrics.IncTracked()
	_, change := t.breaker.RecordSuccess()
	if change.Closed {
		t.metrics.SetCircuitBreakerState(false)
		t.logger.InfoContext(ctx, "ops audit circuit breaker closed")
	}
}

// probeDue reports whether an open breaker should let the next event
// through as a recovery probe. Only the Run goroutine calls it.
func (t *Tracker) probeDue() bool {
	now := time.Now()
	if now.Sub(t.lastProbe) < t.probeInterval {
		return false
	}
	t.lastProbe = now
	return true
}
