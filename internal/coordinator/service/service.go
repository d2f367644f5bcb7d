// Package service implements the result coordinator: the request half
// captures a twin's payload and issues the oracle decryption request, the
// callback half verifies the delivered proof, applies the one-time reveal,
// and feeds the aggregate counters. The tracker entry is the only
// correlation between the two halves.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelCodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	aggModels "velum/internal/aggregate/models"
	"velum/internal/coordinator/metrics"
	"velum/internal/coordinator/predictor"
	"velum/internal/oracle"
	trackerModels "velum/internal/tracker/models"
	twinModels "velum/internal/twin/models"
	id "velum/pkg/domain"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/sentinel"
	"velum/pkg/requestcontext"
)

var tracer = otel.Tracer("velum/internal/coordinator")

// TwinStore is the twin persistence surface the coordinator needs.
type TwinStore interface {
	FindByID(ctx context.Context, twinID id.TwinID) (*twinModels.Twin, error)
	SetParams(ctx context.Context, twinID id.TwinID, params *twinModels.SimulationParams) error
	Execute(ctx context.Context, twinID id.TwinID, validate func(*twinModels.Twin) error, mutate func(*twinModels.Twin)) (*twinModels.Twin, error)
}

// Tracker registers and resolves pending oracle requests.
type Tracker interface {
	RegisterPending(ctx context.Context, requestID id.RequestID, kind trackerModels.RequestKind, target trackerModels.CallbackTarget) error
	ResolvePending(ctx context.Context, requestID id.RequestID) (trackerModels.PendingRequest, error)
}

// Aggregate is the category-counter surface: blind increments on completed
// simulations, plus the count-callback entry point the coordinator fronts.
type Aggregate interface {
	BlindIncrement(ctx context.Context, category id.Category) error
	ApplyDecryptedCount(ctx context.Context, requestID id.RequestID, count uint64, proof []byte) (aggModels.CountSnapshot, error)
}

// Engine is the ciphertext arithmetic used to build the oracle payload.
type Engine interface {
	EncryptZero() (id.Ciphertext, error)
	AddCiphertexts(a, b id.Ciphertext) (id.Ciphertext, error)
	IsInitialized(ct id.Ciphertext) bool
}

// Oracle issues simulation decryption requests and verifies result proofs.
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

// Service coordinates the oracle request/callback protocol.
type Service struct {
	twins     TwinStore
	tracker   Tracker
	aggregate Aggregate
	engine    Engine
	oracle    Oracle
	predictor predictor.Predictor

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
func New(twins TwinStore, tracker Tracker, aggregate Aggregate, engine Engine, orc Oracle, pred predictor.Predictor, opts ...Option) *Service {
	s := &Service{
		twins:     twins,
		tracker:   tracker,
		aggregate: aggregate,
		engine:    engine,
		oracle:    orc,
		predictor: pred,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestDrugSimulation issues a drug-response simulation for the twin. The
// procedure branch of the payload is zero-filled so the wire shape never
// reveals which kind was requested.
func (s *Service) RequestDrugSimulation(ctx context.Context, twinID id.TwinID, drugCompound, dosage id.Ciphertext) (id.RequestID, error) {
	if !s.engine.IsInitialized(drugCompound) || !s.engine.IsInitialized(dosage) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "simulation parameters must be initialized ciphertexts")
	}

	zero, err := s.engine.EncryptZero()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to zero-fill unused branch")
	}

	params := &twinModels.SimulationParams{
		Kind:          twinModels.SimulationDrug,
		DrugCompound:  drugCompound,
		Dosage:        dosage,
		ProcedureType: zero,
		SubmittedAt:   requestcontext.Now(ctx),
	}
	return s.requestSimulation(ctx, twinID, params)
}

// RequestSurgerySimulation issues a procedure simulation for the twin. Both
// drug-branch fields are zero-filled.
func (s *Service) RequestSurgerySimulation(ctx context.Context, twinID id.TwinID, procedureType id.Ciphertext) (id.RequestID, error) {
	if !s.engine.IsInitialized(procedureType) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "simulation parameters must be initialized ciphertexts")
	}

	compoundZero, err := s.engine.EncryptZero()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to zero-fill unused branch")
	}
	dosageZero, err := s.engine.EncryptZero()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to zero-fill unused branch")
	}

	params := &twinModels.SimulationParams{
		Kind:          twinModels.SimulationSurgery,
		DrugCompound:  compoundZero,
		Dosage:        dosageZero,
		ProcedureType: procedureType,
		SubmittedAt:   requestcontext.Now(ctx),
	}
	return s.requestSimulation(ctx, twinID, params)
}

func (s *Service) requestSimulation(ctx context.Context, twinID id.TwinID, params *twinModels.SimulationParams) (id.RequestID, error) {
	ctx, span := tracer.Start(ctx, "coordinator.requestSimulation", trace.WithAttributes(
		attribute.Int64("twin_id", int64(twinID)),
		attribute.String("kind", string(params.Kind)),
	))
	defer span.End()
	start := time.Now()

	twin, err := s.twins.FindByID(ctx, twinID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInvalidTwin, "twin id is not allocated")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load twin")
	}

	merged, err := s.mergeParams(params)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to merge simulation parameters")
	}

	// Overwrites any previous pending set. Requests already issued keep the
	// payload captured at their own issuance.
	if err := s.twins.SetParams(ctx, twinID, params); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending parameters")
	}

	payload := []id.Ciphertext{twin.OrganType, twin.PhysiologicalData, twin.GeneticMarkers, merged}
	requestID, err := s.oracle.IssueDecryptionRequest(ctx, payload, oracle.TargetSimulationResult)
	if err != nil {
		span.SetStatus(otelCodes.Error, err.Error())
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to issue simulation request")
	}
	span.SetAttributes(attribute.String("oracle_request_id", requestID.String()))

	if err := s.tracker.RegisterPending(ctx, requestID, trackerModels.KindSimulation, trackerModels.CallbackTarget{TwinID: twinID}); err != nil {
		// The oracle request is already in flight; its callback will fail
		// UnknownRequest and land in the security log.
		return "", err
	}

	if s.clinical != nil {
		event := audit.ClinicalEvent{
			Timestamp:       requestcontext.Now(ctx),
			TwinID:          twinID,
			Action:          string(audit.EventSimulationRequested),
			OracleRequestID: requestID.String(),
			RequestID:       requestcontext.RequestID(ctx),
			ActorID:         requestcontext.OperatorID(ctx),
		}
		if err := s.clinical.Emit(ctx, event); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "simulation requested",
			"twin_id", twinID,
			"kind", params.Kind,
			"oracle_request_id", requestID,
			"request_id", requestcontext.RequestID(ctx),
			"event", string(audit.EventSimulationRequested),
			"log_type", "audit",
		)
	}
	s.metrics.IncrementRequested(string(params.Kind))
	s.metrics.ObserveRequest(time.Since(start))
	return requestID, nil
}

// mergeParams folds the three parameter branches into the single fourth
// payload field. Unused branches hold encryptions of zero, so the sum
// carries exactly the active branch.
func (s *Service) mergeParams(params *twinModels.SimulationParams) (id.Ciphertext, error) {
	merged, err := s.engine.AddCiphertexts(params.DrugCompound, params.Dosage)
	if err != nil {
		return nil, err
	}
	return s.engine.AddCiphertexts(merged, params.ProcedureType)
}

// ProcessSimulationResult lands an oracle simulation callback. Resolution
// consumes the tracker entry even when a later step rejects the callback;
// recovery is issuing a fresh request.
func (s *Service) ProcessSimulationResult(ctx context.Context, requestID id.RequestID, clearValues []string, proof []byte) (*twinModels.Twin, error) {
	ctx, span := tracer.Start(ctx, "coordinator.processSimulationResult", trace.WithAttributes(
		attribute.String("oracle_request_id", requestID.String()),
	))
	defer span.End()
	start := time.Now()

	twin, err := s.processSimulationResult(ctx, requestID, clearValues, proof)
	if err != nil {
		span.SetStatus(otelCodes.Error, err.Error())
	}
	s.metrics.IncrementCallback(outcomeLabel(err))
	s.metrics.ObserveCallback(time.Since(start))
	return twin, err
}

func (s *Service) processSimulationResult(ctx context.Context, requestID id.RequestID, clearValues []string, proof []byte) (*twinModels.Twin, error) {
	entry, err := s.tracker.ResolvePending(ctx, requestID)
	if err != nil {
		s.recordRejection(ctx, audit.EventCallbackUnknownRequest, requestID, "no pending entry for request id", audit.SeverityWarning)
		return nil, err
	}
	if entry.Kind != trackerModels.KindSimulation {
		// Consumed regardless: the id reached the wrong callback endpoint,
		// and recovery is a fresh request.
		s.recordRejection(ctx, audit.EventCallbackUnknownRequest, requestID, "request id does not expect a simulation result", audit.SeverityWarning)
		return nil, dErrors.New(dErrors.CodeUnknownRequest, "request id does not expect a simulation result")
	}
	twinID := entry.Target.TwinID

	if len(clearValues) != oracle.SimulationPayloadSize {
		s.recordRejection(ctx, audit.EventCallbackInvalidProof, requestID, "clear values do not match the issued payload shape", audit.SeverityCritical)
		return nil, dErrors.New(dErrors.CodeInvalidProof, "clear values do not match the issued payload shape")
	}

	twin, err := s.twins.FindByID(ctx, twinID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load twin for callback")
	}
	if twin.Result.Revealed {
		s.recordRejection(ctx, audit.EventCallbackAlreadyRevealed, requestID, "simulation result already revealed", audit.SeverityWarning)
		return nil, dErrors.New(dErrors.CodeAlreadyRevealed, "simulation result already revealed")
	}

	if err := s.oracle.VerifyProof(ctx, requestID, clearValues, proof); err != nil {
		s.recordRejection(ctx, audit.EventCallbackInvalidProof, requestID, "proof does not match clear values", audit.SeverityCritical)
		return nil, dErrors.New(dErrors.CodeInvalidProof, "proof does not match clear values")
	}

	// Everything below is derivable before the one-time write; nothing has
	// mutated yet if any of it rejects.
	category, err := id.ParseCategory(clearValues[0])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "clear values carry no usable category label")
	}

	prediction, err := s.predictor.Predict(clearValues)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "predictor rejected clear values")
	}

	now := requestcontext.Now(ctx)
	revealed, err := s.twins.Execute(ctx, twinID,
		func(t *twinModels.Twin) error { return t.CanReveal() },
		func(t *twinModels.Twin) {
			t.ApplyReveal(prediction.PredictedEffect, prediction.RiskAssessment, prediction.RecommendedAdjustment, now)
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyRevealed) {
			// Lost the race against a concurrent callback for this twin.
			s.recordRejection(ctx, audit.EventCallbackAlreadyRevealed, requestID, "simulation result already revealed", audit.SeverityWarning)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply simulation result")
	}

	if err := s.aggregate.BlindIncrement(ctx, category); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count completed simulation")
	}

	if s.clinical != nil {
		event := audit.ClinicalEvent{
			Timestamp:       now,
			TwinID:          twinID,
			CategoryLabel:   category.String(),
			Action:          string(audit.EventSimulationCompleted),
			RiskAssessment:  prediction.RiskAssessment,
			OracleRequestID: requestID.String(),
			RequestID:       requestcontext.RequestID(ctx),
		}
		if err := s.clinical.Emit(ctx, event); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "simulation result revealed",
			"twin_id", twinID,
			"category", category,
			"risk_assessment", prediction.RiskAssessment,
			"oracle_request_id", requestID,
			"request_id", requestcontext.RequestID(ctx),
			"event", string(audit.EventSimulationCompleted),
			"log_type", "audit",
		)
	}
	return revealed, nil
}

// ApplyDecryptedCount forwards a count callback to the aggregate side. Both
// callback entry points live on the coordinator so the oracle dispatcher
// and the callback transport share a single surface.
func (s *Service) ApplyDecryptedCount(ctx context.Context, requestID id.RequestID, count uint64, proof []byte) (aggModels.CountSnapshot, error) {
	ctx, span := tracer.Start(ctx, "coordinator.applyDecryptedCount", trace.WithAttributes(
		attribute.String("oracle_request_id", requestID.String()),
	))
	defer span.End()

	snapshot, err := s.aggregate.ApplyDecryptedCount(ctx, requestID, count, proof)
	if err != nil {
		span.SetStatus(otelCodes.Error, err.Error())
	}
	return snapshot, err
}

// DeliverSimulationResult implements the local oracle dispatcher.
func (s *Service) DeliverSimulationResult(ctx context.Context, requestID id.RequestID, clearValues []string, proof []byte) error {
	_, err := s.ProcessSimulationResult(ctx, requestID, clearValues, proof)
	return err
}

// DeliverDecryptedCount implements the local oracle dispatcher.
func (s *Service) DeliverDecryptedCount(ctx context.Context, requestID id.RequestID, count uint64, proof []byte) error {
	_, err := s.ApplyDecryptedCount(ctx, requestID, count, proof)
	return err
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

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "revealed"
	case dErrors.HasCode(err, dErrors.CodeUnknownRequest):
		return "unknown_request"
	case dErrors.HasCode(err, dErrors.CodeAlreadyRevealed):
		return "already_revealed"
	case dErrors.HasCode(err, dErrors.CodeInvalidProof):
		return "invalid_proof"
	default:
		return "error"
	}
}
