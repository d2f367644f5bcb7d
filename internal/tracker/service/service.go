// Package service owns the pending-request ledger: registration at issuance,
// atomic resolution on callback, and sweeps retiring abandoned entries.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"velum/internal/tracker/metrics"
	"velum/internal/tracker/models"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/sentinel"
	"velum/pkg/requestcontext"
)

// PendingStore is the persistence surface the service needs.
type PendingStore interface {
	Register(ctx context.Context, entry models.PendingRequest) error
	Resolve(ctx context.Context, requestID id.RequestID) (models.PendingRequest, error)
	List(ctx context.Context) ([]models.PendingRequest, error)
	Sweep(ctx context.Context, cutoff time.Time) ([]models.PendingRequest, error)
	Len(ctx context.Context) (int, error)
}

// OpsTracker records housekeeping outcomes, fire-and-forget.
type OpsTracker interface {
	Track(ctx context.Context, event audit.OpsEvent)
}

// Service mediates every pending-entry transition.
type Service struct {
	store   PendingStore
	logger  *slog.Logger
	ops     OpsTracker
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithOpsTracker(ops OpsTracker) Option {
	return func(s *Service) {
		s.ops = ops
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store PendingStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterPending files a pending entry for a freshly issued oracle request.
func (s *Service) RegisterPending(ctx context.Context, requestID id.RequestID, kind models.RequestKind, target models.CallbackTarget) error {
	entry, err := models.NewPendingRequest(requestID, kind, target, requestcontext.Now(ctx))
	if err != nil {
		return err
	}

	if err := s.store.Register(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeDuplicateRequest, "request id already pending")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register pending request")
	}

	s.metrics.IncrementRegistered()
	s.refreshPendingGauge(ctx)
	return nil
}

// ResolvePending consumes the pending entry for a callback. Exactly one
// caller wins a given request id; everyone else gets UnknownRequest.
func (s *Service) ResolvePending(ctx context.Context, requestID id.RequestID) (models.PendingRequest, error) {
	entry, err := s.store.Resolve(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementUnknownResolution()
			return models.PendingRequest{}, dErrors.New(dErrors.CodeUnknownRequest, "no pending request for id")
		}
		return models.PendingRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve pending request")
	}

	s.metrics.IncrementResolved()
	s.refreshPendingGauge(ctx)
	return entry, nil
}

// ListPending returns the unresolved entries, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]models.PendingRequest, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
	}
	return entries, nil
}

// Sweep retires entries older than the given age and returns them. Each
// retired entry is recorded as an ops event; their callbacks, should they
// still arrive, will resolve as UnknownRequest.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) ([]models.PendingRequest, error) {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(-olderThan)

	retired, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep pending requests")
	}

	for _, entry := range retired {
		if s.ops != nil {
			s.ops.Track(ctx, audit.OpsEvent{
				Timestamp: now,
				Subject:   "request:" + entry.RequestID.String(),
				Action:    string(audit.EventTrackerSwept),
				Reason:    fmt.Sprintf("pending since %s", entry.RegisteredAt.Format(time.RFC3339)),
				RequestID: requestcontext.RequestID(ctx),
			})
		}
	}

	if len(retired) > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "swept pending requests",
			"request_id", requestcontext.RequestID(ctx),
			"retired", len(retired),
			"older_than", olderThan.String(),
			"event", string(audit.EventTrackerSwept),
			"log_type", "audit",
		)
	}

	s.metrics.AddSwept(len(retired))
	s.refreshPendingGauge(ctx)
	return retired, nil
}

// RunSweeps periodically retires entries older than maxAge until the context
// is cancelled. Run under the process errgroup.
func (s *Service) RunSweeps(ctx context.Context, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx, maxAge); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "background sweep failed", "error", err)
			}
		}
	}
}

func (s *Service) refreshPendingGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.store.Len(ctx); err == nil {
		s.metrics.SetPending(n)
	}
}
