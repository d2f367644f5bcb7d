// Package handler exposes the coordinator over HTTP: simulation requests on
// the operator surface and the callback entry points the oracle runtime
// posts results to. The callback routes carry their own authentication and
// must never be mounted on the operator router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	aggModels "velum/internal/aggregate/models"
	twinModels "velum/internal/twin/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/httputil"
	"velum/pkg/requestcontext"
)

// Service defines the coordinator operations the handlers need.
type Service interface {
	RequestDrugSimulation(ctx context.Context, twinID id.TwinID, drugCompound, dosage id.Ciphertext) (id.RequestID, error)
	RequestSurgerySimulation(ctx context.Context, twinID id.TwinID, procedureType id.Ciphertext) (id.RequestID, error)
	ProcessSimulationResult(ctx context.Context, requestID id.RequestID, clearValues []string, proof []byte) (*twinModels.Twin, error)
	ApplyDecryptedCount(ctx context.Context, requestID id.RequestID, count uint64, proof []byte) (aggModels.CountSnapshot, error)
}

// Handler wires the operator-facing simulation endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a simulation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts simulation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/twins/{twinID}/simulations/drug", h.HandleDrugSimulation)
	r.Post("/twins/{twinID}/simulations/surgery", h.HandleSurgerySimulation)
}

// HandleDrugSimulation handles POST /twins/{twinID}/simulations/drug requests.
func (h *Handler) HandleDrugSimulation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	twinID, err := id.ParseTwinID(chi.URLParam(r, "twinID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DrugSimulationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	oracleRequestID, err := h.service.RequestDrugSimulation(ctx, twinID, req.ParsedDrugCompound(), req.ParsedDosage())
	if err != nil {
		h.logger.ErrorContext(ctx, "drug simulation request failed",
			"request_id", requestID,
			"twin_id", twinID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "drug simulation requested",
		"request_id", requestID,
		"twin_id", twinID,
		"oracle_request_id", oracleRequestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusAccepted, SimulationRequestedResponse{
		TwinID:          int64(twinID),
		Kind:            string(twinModels.SimulationDrug),
		OracleRequestID: oracleRequestID.String(),
	})
}

// HandleSurgerySimulation handles POST /twins/{twinID}/simulations/surgery requests.
func (h *Handler) HandleSurgerySimulation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	twinID, err := id.ParseTwinID(chi.URLParam(r, "twinID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SurgerySimulationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	oracleRequestID, err := h.service.RequestSurgerySimulation(ctx, twinID, req.ParsedProcedureType())
	if err != nil {
		h.logger.ErrorContext(ctx, "surgery simulation request failed",
			"request_id", requestID,
			"twin_id", twinID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "surgery simulation requested",
		"request_id", requestID,
		"twin_id", twinID,
		"oracle_request_id", oracleRequestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusAccepted, SimulationRequestedResponse{
		TwinID:          int64(twinID),
		Kind:            string(twinModels.SimulationSurgery),
		OracleRequestID: oracleRequestID.String(),
	})
}

// CallbackHandler wires the oracle-facing callback endpoints.
type CallbackHandler struct {
	service Service
	logger  *slog.Logger
}

// NewCallbackHandler constructs a callback handler with its dependencies.
func NewCallbackHandler(service Service, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		service: service,
		logger:  logger,
	}
}

// Register mounts callback endpoints on the router.
func (h *CallbackHandler) Register(r chi.Router) {
	r.Post("/callbacks/simulation-result", h.HandleSimulationResult)
	r.Post("/callbacks/decrypted-count", h.HandleDecryptedCount)
}

// HandleSimulationResult handles POST /callbacks/simulation-result requests.
func (h *CallbackHandler) HandleSimulationResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SimulationResultCallback](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	twin, err := h.service.ProcessSimulationResult(ctx, req.ParsedRequestID(), req.ClearValues, req.ParsedProof())
	if err != nil {
		// Rejected callbacks are routine; the service has already recorded
		// the security event.
		h.logger.WarnContext(ctx, "simulation callback rejected",
			"request_id", requestID,
			"oracle_request_id", req.ParsedRequestID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "simulation callback applied",
		"request_id", requestID,
		"oracle_request_id", req.ParsedRequestID(),
		"twin_id", twin.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, SimulationAppliedResponse{
		OracleRequestID: req.ParsedRequestID().String(),
		TwinID:          int64(twin.ID),
		Revealed:        twin.Result.Revealed,
	})
}

// HandleDecryptedCount handles POST /callbacks/decrypted-count requests.
func (h *CallbackHandler) HandleDecryptedCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[DecryptedCountCallback](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snapshot, err := h.service.ApplyDecryptedCount(ctx, req.ParsedRequestID(), req.Count, req.ParsedProof())
	if err != nil {
		h.logger.WarnContext(ctx, "count callback rejected",
			"request_id", requestID,
			"oracle_request_id", req.ParsedRequestID(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "count callback applied",
		"request_id", requestID,
		"oracle_request_id", req.ParsedRequestID(),
		"category", snapshot.Category,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, CountAppliedResponse{
		OracleRequestID: req.ParsedRequestID().String(),
		Category:        snapshot.Category.String(),
		Count:           snapshot.Count,
	})
}
