package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"velum/internal/twin/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/httputil"
	"velum/pkg/requestcontext"
)

// Service defines the interface for twin lifecycle operations.
type Service interface {
	CreateTwin(ctx context.Context, organType, physioData, geneticMarkers id.Ciphertext) (*models.Twin, error)
	GetTwin(ctx context.Context, twinID id.TwinID) (*models.Twin, error)
	GetResult(ctx context.Context, twinID id.TwinID) (models.SimulationResult, error)
}

// Handler wires twin endpoints to the twin service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a twin handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts twin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/twins", h.HandleCreate)
	r.Get("/twins/{twinID}", h.HandleGet)
	r.Get("/twins/{twinID}/result", h.HandleGetResult)
}

// HandleCreate handles POST /twins requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateTwinRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	twin, err := h.service.CreateTwin(ctx,
		req.ParsedOrganType(), req.ParsedPhysiologicalData(), req.ParsedGeneticMarkers())
	if err != nil {
		h.logger.ErrorContext(ctx, "twin creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "twin created",
		"request_id", requestID,
		"twin_id", twin.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromTwin(twin))
}

// HandleGet handles GET /twins/{twinID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	twinID, err := id.ParseTwinID(chi.URLParam(r, "twinID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	twin, err := h.service.GetTwin(ctx, twinID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromTwin(twin))
}

// HandleGetResult handles GET /twins/{twinID}/result requests.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	twinID, err := id.ParseTwinID(chi.URLParam(r, "twinID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.GetResult(ctx, twinID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(twinID, result))
}
