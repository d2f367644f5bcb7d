package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"velum/internal/aggregate/models"
	"velum/internal/aggregate/service"
	id "velum/pkg/domain"
	"velum/pkg/platform/httputil"
	"velum/pkg/requestcontext"
)

// Service defines the interface for aggregate count operations.
type Service interface {
	ListCategories(ctx context.Context) ([]service.CategorySummary, error)
	GetCount(ctx context.Context, category id.Category) (models.CountSnapshot, error)
	RequestDecryption(ctx context.Context, category id.Category) (id.RequestID, error)
}

// Handler wires aggregate count endpoints to the aggregate service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an aggregate handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts aggregate endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/categories", h.HandleListCategories)
	r.Get("/categories/{category}/count", h.HandleGetCount)
	r.Post("/categories/{category}/count/decryptions", h.HandleRequestDecryption)
}

// HandleListCategories handles GET /categories requests.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.service.ListCategories(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSummaries(summaries, requestcontext.Now(ctx)))
}

// HandleGetCount handles GET /categories/{category}/count requests.
func (h *Handler) HandleGetCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, err := id.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snapshot, err := h.service.GetCount(ctx, category)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snapshot, requestcontext.Now(ctx)))
}

// HandleRequestDecryption handles POST /categories/{category}/count/decryptions requests.
func (h *Handler) HandleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	category, err := id.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	oracleRequestID, err := h.service.RequestDecryption(ctx, category)
	if err != nil {
		h.logger.ErrorContext(ctx, "count decryption request failed",
			"request_id", requestID,
			"category", category,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "count decryption requested",
		"request_id", requestID,
		"category", category,
		"oracle_request_id", oracleRequestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusAccepted, DecryptionRequestedResponse{
		Category:        category.String(),
		OracleRequestID: oracleRequestID.String(),
	})
}
