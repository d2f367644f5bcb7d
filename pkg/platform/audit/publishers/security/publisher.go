// Package security provides a non-blocking audit publisher for security
// events. Every event lands in a bounded ring the admin surface can read
// back; when a store is wired, events are also forwarded to it on a
// background goroutine. Emission never blocks the request path.
package security

import (
	"context"
	"log/slog"
	"sync/atomic"

	audit "velum/pkg/platform/audit"
	"velum/pkg/requestcontext"
)

// Publisher emits security events with fire-and-forget semantics.
type Publisher struct {
	ring    *RingBuffer
	forward chan audit.SecurityEvent
	store   audit.Store
	logger  *slog.Logger
	dropped atomic.Int64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithStore forwards emitted events to a persistent store.
func WithStore(store audit.Store) Option {
	return func(p *Publisher) {
		p.store = store
	}
}

// WithLogger sets a logger for forwarding failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithCapacity sets how many recent events the admin-facing ring retains.
func WithCapacity(n int) Option {
	return func(p *Publisher) {
		p.ring = NewRingBuffer(n)
	}
}

func New(opts ...Option) *Publisher {
	p := &Publisher{
		ring:    NewRingBuffer(0),
		forward: make(chan audit.SecurityEvent, 1024),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records the event in the ring and queues it for store forwarding.
// Never blocks; when the forward queue is full the event is still retained
// in the ring but not persisted.
func (p *Publisher) Emit(ctx context.Context, event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityWarning
	}

	p.ring.Append(event)

	if p.store == nil {
		return
	}
	select {
	case p.forward <- event:
	default:
		p.dropped.Add(1)
	}
}

// Run forwards queued events to the store until ctx is cancelled. Without a
// store it just waits for cancellation so the caller can treat both modes
// uniformly.
func (p *Publisher) Run(ctx context.Context) error {
	if p.store == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-p.forward:
			if err := p.store.Append(ctx, event.ToEvent()); err != nil {
				if p.logger != nil {
					p.logger.WarnContext(ctx, "security audit forwarding failed",
						"action", event.Action, "error", err)
				}
			}
		}
	}
}

// Recent returns up to n retained events, newest first.
func (p *Publisher) Recent(n int) []audit.SecurityEvent {
	return p.ring.Recent(n)
}

// Dropped returns how many events could not be queued for persistence.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// RecordRejectedCallback captures a rejected oracle-callback attempt with
// the client metadata from the request context. Satisfies the callback-auth
// middleware's recorder interface.
func (p *Publisher) RecordRejectedCallback(ctx context.Context, reason string) {
	p.Emit(ctx, audit.SecurityEvent{
		Subject:   requestcontext.ClientIP(ctx),
		Action:    string(audit.EventCallbackUnauthorized),
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: NormalizeUserAgent(requestcontext.UserAgent(ctx)),
		RequestID: requestcontext.RequestID(ctx),
		Severity:  audit.SeverityCritical,
	})
}
