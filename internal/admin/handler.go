// Package admin exposes the operator-only surface: tracker sweeps, pending
// inspection, and the recent security event log. Mount behind the admin role
// middleware.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"velum/internal/tracker/models"
	dErrors "velum/pkg/domain-errors"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/httputil"
	"velum/pkg/requestcontext"
)

const (
	defaultSecurityLimit = 50
	maxSecurityLimit     = 500
)

// TrackerService exposes the sweep and inspection operations.
type TrackerService interface {
	ListPending(ctx context.Context) ([]models.PendingRequest, error)
	Sweep(ctx context.Context, olderThan time.Duration) ([]models.PendingRequest, error)
}

// SecurityLog is the in-process ring of recent security events.
type SecurityLog interface {
	Recent(n int) []audit.SecurityEvent
	Dropped() int64
}

// Handler wires admin endpoints to the tracker service and security log.
type Handler struct {
	tracker    TrackerService
	security   SecurityLog
	logger     *slog.Logger
	defaultAge time.Duration
}

// New constructs an admin handler. defaultAge is the sweep cutoff used when
// a sweep request does not name one.
func New(tracker TrackerService, security SecurityLog, defaultAge time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		tracker:    tracker,
		security:   security,
		logger:     logger,
		defaultAge: defaultAge,
	}
}

// Register mounts admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tracker/sweeps", h.HandleSweep)
	r.Get("/admin/tracker/pending", h.HandleListPending)
	r.Get("/admin/audit/security", h.HandleSecurityEvents)
}

// SweepRequest is the optional HTTP request body for POST
// /admin/tracker/sweeps.
type SweepRequest struct {
	OlderThan string `json:"older_than"`
}

// HandleSweep handles POST /admin/tracker/sweeps requests. An empty body
// sweeps with the configured default age.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	olderThan := h.defaultAge
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.OlderThan != "" {
		parsed, err := time.ParseDuration(req.OlderThan)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "older_than must be a non-negative duration"))
			return
		}
		olderThan = parsed
	}

	retired, err := h.tracker.Sweep(ctx, olderThan)
	if err != nil {
		h.logger.ErrorContext(ctx, "tracker sweep failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tracker sweep requested",
		"request_id", requestID,
		"operator_id", requestcontext.OperatorID(ctx),
		"older_than", olderThan.String(),
		"retired", len(retired),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSweep(olderThan, retired))
}

// HandleListPending handles GET /admin/tracker/pending requests.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.tracker.ListPending(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPending(entries))
}

// HandleSecurityEvents handles GET /admin/audit/security requests. The
// limit query parameter bounds the returned window, newest first.
func (h *Handler) HandleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultSecurityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxSecurityLimit)
	}

	events := h.security.Recent(limit)
	httputil.WriteJSON(w, http.StatusOK, FromSecurityEvents(events, h.security.Dropped()))
}
