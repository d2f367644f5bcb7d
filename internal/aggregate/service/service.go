// Package service owns the category counters: blind increments in the
// ciphertext domain, decryption requests through the oracle, and the
// decrypted snapshot cache. The encrypted counter is the authority; a
// snapshot is a point-in-time reading and nothing more.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"velum/internal/aggregate/metrics"
	"velum/internal/aggregate/models"
	"velum/internal/oracle"
	trackerModels "velum/internal/tracker/models"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/sentinel"
	"velum/pkg/requestcontext"
)

// CounterStore is the encrypted-counter surface the service needs.
type CounterStore interface {
	Increment(ctx context.Context, category id.Category, init func() (id.Ciphertext, error), add func(current id.Ciphertext) (id.Ciphertext, error)) error
	Snapshot(ctx context.Context, category id.Category) (id.Ciphertext, error)
	Categories(ctx context.Context) ([]id.Category, error)
}

// SnapshotStore caches decrypted point-in-time counts.
type SnapshotStore interface {
	Put(ctx context.Context, snapshot models.CountSnapshot) error
	Get(ctx context.Context, category id.Category) (models.CountSnapshot, error)
	GetMany(ctx context.Context, categories []id.Category) (map[id.Category]models.CountSnapshot, error)
}

// Tracker registers and resolves pending oracle requests.
type Tracker interface {
	RegisterPending(ctx context.Context, requestID id.RequestID, kind trackerModels.RequestKind, target trackerModels.CallbackTarget) error
	ResolvePending(ctx context.Context, requestID id.RequestID) (trackerModels.PendingRequest, error)
}

// Engine is the ciphertext arithmetic the counter needs.
type Engine interface {
	EncryptZero() (id.Ciphertext, error)
	EncryptOne() (id.Ciphertext, error)
	AddCiphertexts(a, b id.Ciphertext) (id.Ciphertext, error)
}

// Oracle issues count decryption requests and verifies result proofs.
type Oracle interface {
	IssueDecryptionRequest(ctx context.Context, payload []id.Ciphertext, target oracle.CallbackTarget) (id.RequestID, error)
	VerifyProof(ctx context.Context, requestID id.RequestID, clearValues []string, proof []byte) error
}

// ClinicalPublisher persists regulated audit events with fail-closed
// semantics.
type ClinicalPublisher interface {
	Emit(ctx context.Context, event audit.ClinicalEvent) error
}

// SecurityPublisher records rejected callbacks. Fire-and-forget.
type SecurityPublisher interface {
	Emit(ctx context.Context, event audit.SecurityEvent)
}

// CategorySummary pairs an observed category with its latest snapshot, if
// one was ever decrypted.
type CategorySummary struct {
	Category id.Category
	Snapshot *models.CountSnapshot
}

// Service exposes the aggregate counter operations.
type Service struct {
	counters  CounterStore
	snapshots SnapshotStore
	tracker   Tracker
	engine    Engine
	oracle    Oracle

	logger   *slog.Logger
	clinical ClinicalPublisher
	security SecurityPublisher
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

func WithSecurityPublisher(publisher SecurityPublisher) Option {
	return func(s *Service) {
		s.security = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(counters CounterStore, snapshots SnapshotStore, tracker Tracker, engine Engine, orc Oracle, opts ...Option) *Service {
	s := &Service{
		counters:  counters,
		snapshots: snapshots,
		tracker:   tracker,
		engine:    engine,
		oracle:    orc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BlindIncrement adds one to the category's encrypted counter, initializing
// it to an encrypted zero on first observation. The running value is never
// decrypted here.
func (s *Service) BlindIncrement(ctx context.Context, category id.Category) error {
	start := time.Now()

	err := s.counters.Increment(ctx, category,
		s.engine.EncryptZero,
		func(current id.Ciphertext) (id.Ciphertext, error) {
			one, err := s.engine.EncryptOne()
			if err != nil {
				return nil, err
			}
			return s.engine.AddCiphertexts(current, one)
		})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to increment category counter")
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "category counter incremented", "category", category)
	}
	s.metrics.IncrementApplied(time.Since(start))
	s.refreshCategoriesGauge(ctx)
	return nil
}

// ListCategories returns every observed category with its latest snapshot
// where one exists.
func (s *Service) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	categories, err := s.counters.Categories(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list categories")
	}

	found, err := s.snapshots.GetMany(ctx, categories)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load snapshots")
	}

	summaries := make([]CategorySummary, 0, len(categories))
	for _, category := range categories {
		summary := CategorySummary{Category: category}
		if snapshot, ok := found[category]; ok {
			summary.Snapshot = &snapshot
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetCount returns the latest decrypted snapshot for an observed category.
func (s *Service) GetCount(ctx context.Context, category id.Category) (models.CountSnapshot, error) {
	if _, err := s.counters.Snapshot(ctx, category); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.CountSnapshot{}, dErrors.New(dErrors.CodeUnknownCategory, "category never observed")
		}
		return models.CountSnapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read category counter")
	}

	snapshot, err := s.snapshots.Get(ctx, category)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.CountSnapshot{}, dErrors.New(dErrors.CodeNotFound, "no decrypted count yet; request a decryption")
		}
		return models.CountSnapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load snapshot")
	}
	return snapshot, nil
}

// RequestDecryption packages the category's current ciphertext, issues an
// oracle decryption request, and registers the returned id with the tracker.
// The clear count arrives later through ApplyDecryptedCount.
func (s *Service) RequestDecryption(ctx context.Context, category id.Category) (id.RequestID, error) {
	ct, err := s.counters.Snapshot(ctx, category)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeUnknownCategory, "category never observed")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read category counter")
	}

	requestID, err := s.oracle.IssueDecryptionRequest(ctx, []id.Ciphertext{ct}, oracle.TargetDecryptedCount)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.GetCode(err), "failed to issue decryption request")
	}

	if err := s.tracker.RegisterPending(ctx, requestID, trackerModels.KindCount,
		trackerModels.CallbackTarget{Category: category}); err != nil {
		// The issued request is now orphaned; its callback will resolve as
		// UnknownRequest and land in the security log.
		return "", err
	}

	if s.clinical != nil {
		event := audit.ClinicalEvent{
			Timestamp:       requestcontext.Now(ctx),
			CategoryLabel:   category.String(),
			Action:          string(audit.EventCountRequested),
			OracleRequestID: requestID.String(),
			RequestID:       requestcontext.RequestID(ctx),
			ActorID:         requestcontext.OperatorID(ctx),
		}
		if err := s.clinical.Emit(ctx, event); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "count decryption requested",
			"category", category,
			"oracle_request_id", requestID,
			"request_id", requestcontext.RequestID(ctx),
			"event", string(audit.EventCountRequested),
			"log_type", "audit",
		)
	}
	s.metrics.IncrementDecryptionRequested()
	return requestID, nil
}

// ApplyDecryptedCount lands an oracle count callback: resolves the pending
// entry, verifies the proof, and publishes the snapshot. The encrypted
// counter is not touched; the snapshot is informational only.
func (s *Service) ApplyDecryptedCount(ctx context.Context, requestID id.RequestID, count uint64, proof []byte) (models.CountSnapshot, error) {
	entry, err := s.tracker.ResolvePending(ctx, requestID)
	if err != nil {
		s.recordRejection(ctx, audit.EventCallbackUnknownRequest, requestID, "no pending entry for request id", audit.SeverityWarning)
		return models.CountSnapshot{}, err
	}
	if entry.Kind != trackerModels.KindCount {
		// Consumed regardless: a kind mismatch means the id reached the
		// wrong callback endpoint, and recovery is a fresh request.
		s.recordRejection(ctx, audit.EventCallbackUnknownRequest, requestID, "request id does not expect a count result", audit.SeverityWarning)
		return models.CountSnapshot{}, dErrors.New(dErrors.CodeUnknownRequest, "request id does not expect a count result")
	}

	clearValues := []string{strconv.FormatUint(count, 10)}
	if err := s.oracle.VerifyProof(ctx, requestID, clearValues, proof); err != nil {
		s.recordRejection(ctx, audit.EventCallbackInvalidProof, requestID, "proof does not match decrypted count", audit.SeverityCritical)
		return models.CountSnapshot{}, dErrors.New(dErrors.CodeInvalidProof, "proof does not match decrypted count")
	}

	now := requestcontext.Now(ctx)
	snapshot := models.CountSnapshot{
		Category:    entry.Target.Category,
		Count:       count,
		DecryptedAt: now,
	}

	if s.clinical != nil {
		event := audit.ClinicalEvent{
			Timestamp:       now,
			CategoryLabel:   entry.Target.Category.String(),
			Action:          string(audit.EventCountRevealed),
			OracleRequestID: requestID.String(),
			RequestID:       requestcontext.RequestID(ctx),
		}
		if err := s.clinical.Emit(ctx, event); err != nil {
			return models.CountSnapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
		}
	}

	if err := s.snapshots.Put(ctx, snapshot); err != nil {
		return models.CountSnapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store snapshot")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "count revealed",
			"category", entry.Target.Category,
			"count", count,
			"oracle_request_id", requestID,
			"event", string(audit.EventCountRevealed),
			"log_type", "audit",
		)
	}
	s.metrics.IncrementSnapshotApplied()
	return snapshot, nil
}

func (s *Service) recordRejection(ctx context.Context, action audit.AuditEvent, requestID id.RequestID, reason string, severity audit.Severity) {
	if s.security == nil {
		return
	}
	s.security.Emit(ctx, audit.SecurityEvent{
		Subject:         "request:" + requestID.String(),
		Action:          string(action),
		Reason:          reason,
		IP:              requestcontext.ClientIP(ctx),
		UserAgent:       requestcontext.UserAgent(ctx),
		OracleRequestID: requestID.String(),
		RequestID:       requestcontext.RequestID(ctx),
		Severity:        severity,
	})
}

func (s *Service) refreshCategoriesGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if categories, err := s.counters.Categories(ctx); err == nil {
		s.metrics.SetKnownCategories(len(categories))
	}
}
