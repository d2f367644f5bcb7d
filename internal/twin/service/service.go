// Package service orchestrates the twin lifecycle: creation, lookup, and
// result access. Simulation requests and callbacks live in the coordinator,
// which drives this package's store through the same interfaces.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"velum/internal/twin/metrics"
	"velum/internal/twin/models"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/sentinel"
	"velum/pkg/requestcontext"
)

// TwinStore is the persistence surface the service needs.
type TwinStore interface {
	Create(ctx context.Context, organType, physioData, geneticMarkers id.Ciphertext, now time.Time) (*models.Twin, error)
	FindByID(ctx context.Context, twinID id.TwinID) (*models.Twin, error)
}

// ClinicalPublisher persists regulated audit events with fail-closed
// semantics.
type ClinicalPublisher interface {
	Emit(ctx context.Context, event audit.ClinicalEvent) error
}

// Service exposes twin creation and read operations.
type Service struct {
	store    TwinStore
	logger   *slog.Logger
	clinical ClinicalPublisher
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClinicalPublisher(publisher ClinicalPublisher) Option {
	return func(s *Service) {
		s.clinical = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store TwinStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTwin allocates a new twin holding the three ciphertext handles.
// The creation event is clinical: if it cannot be persisted the twin is
// still allocated (ids are never reused) but the call fails, so callers
// must treat the id as unusable and retry.
func (s *Service) CreateTwin(ctx context.Context, organType, physioData, geneticMarkers id.Ciphertext) (*models.Twin, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	twin, err := s.store.Create(ctx, organType, physioData, geneticMarkers, now)
	if err != nil {
		// Convert invariant violations to validation errors for API response
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, err.Error())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create twin")
	}

	if s.clinical != nil {
		event := audit.ClinicalEvent{
			Timestamp: now,
			TwinID:    twin.ID,
			Action:    string(audit.EventTwinCreated),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.OperatorID(ctx),
		}
		if err := s.clinical.Emit(ctx, event); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "twin created",
			"twin_id", twin.ID,
			"event", string(audit.EventTwinCreated),
			"log_type", "audit",
		)
	}
	s.observeCreate(start)

	return twin, nil
}

// GetTwin returns the twin by id.
func (s *Service) GetTwin(ctx context.Context, twinID id.TwinID) (*models.Twin, error) {
	start := time.Now()

	twin, err := s.store.FindByID(ctx, twinID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "twin not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load twin")
	}

	s.observeGet(start)
	return twin, nil
}

// GetResult returns the twin's simulation result record. Unrevealed results
// carry empty placeholder texts with revealed=false; callers poll this until
// the oracle callback lands.
func (s *Service) GetResult(ctx context.Context, twinID id.TwinID) (models.SimulationResult, error) {
	twin, err := s.GetTwin(ctx, twinID)
	if err != nil {
		return models.SimulationResult{}, err
	}
	return twin.Result, nil
}

func (s *Service) observeCreate(start time.Time) {
	if s.metrics != nil {
		s.metrics.IncrementTwinCreated()
		s.metrics.ObserveCreate(time.Since(start))
	}
}

func (s *Service) observeGet(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGet(time.Since(start))
	}
}
