package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	trackerModels "velum/internal/tracker/models"
	trackerService "velum/internal/tracker/service"
	trackerStore "velum/internal/tracker/store"
	id "velum/pkg/domain"
	"velum/pkg/platform/audit"
	"velum/pkg/platform/audit/publishers/security"
	"velum/pkg/requestcontext"
)

func TestSweepViaHandler(t *testing.T) {
	env := newAdminEnv(t)
	env.registerPending(t, "req-stale", time.Now().Add(-2*time.Hour))
	env.registerPending(t, "req-fresh", time.Now())

	t.Run("empty body sweeps with the default age", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/tracker/sweeps", nil)
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 sweeping, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp SweepResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode sweep response: %v", err)
		}
		if resp.Total != 1 {
			t.Fatalf("expected 1 retired entry, got %d", resp.Total)
		}
		if resp.Retired[0].RequestID != "req-stale" {
			t.Fatalf("expected req-stale retired, got %q", resp.Retired[0].RequestID)
		}
	})

	t.Run("invalid older_than yields 400", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"older_than":"soon"}`))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/tracker/sweeps", body)
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("explicit older_than overrides the default", func(t *testing.T) {
		env.registerPending(t, "req-recent", time.Now().Add(-2*time.Minute))

		body := bytes.NewReader([]byte(`{"older_than":"1m"}`))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/tracker/sweeps", body)
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp SweepResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode sweep response: %v", err)
		}
		if resp.OlderThan != "1m0s" {
			t.Fatalf("expected older_than 1m0s, got %q", resp.OlderThan)
		}
		if resp.Total != 1 || resp.Retired[0].RequestID != "req-recent" {
			t.Fatalf("expected only req-recent retired, got %+v", resp.Retired)
		}
	})
}

func TestListPendingViaHandler(t *testing.T) {
	env := newAdminEnv(t)
	env.registerPending(t, "req-1", time.Now())

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/tracker/pending", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp PendingListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode pending response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 pending entry, got %d", resp.Total)
	}
	entry := resp.Pending[0]
	if entry.RequestID != "req-1" || entry.Kind != string(trackerModels.KindSimulation) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.TwinID != 7 {
		t.Fatalf("expected twin_id 7, got %d", entry.TwinID)
	}
}

func TestSecurityEventsViaHandler(t *testing.T) {
	env := newAdminEnv(t)
	for range 3 {
		env.security.Emit(context.Background(), audit.SecurityEvent{
			Subject:  "203.0.113.4",
			Action:   string(audit.EventCallbackUnauthorized),
			Reason:   "bad secret",
			IP:       "203.0.113.4",
			Severity: audit.SeverityCritical,
		})
	}

	t.Run("returns recent events newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/audit/security?limit=2", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp SecurityEventsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode security response: %v", err)
		}
		if resp.Total != 2 {
			t.Fatalf("expected 2 events, got %d", resp.Total)
		}
		if resp.Events[0].Action != string(audit.EventCallbackUnauthorized) {
			t.Fatalf("unexpected action %q", resp.Events[0].Action)
		}
		if resp.Events[0].Severity != string(audit.SeverityCritical) {
			t.Fatalf("unexpected severity %q", resp.Events[0].Severity)
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/audit/security?limit=0", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

type adminEnv struct {
	router   http.Handler
	tracker  *trackerService.Service
	security *security.Publisher
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := trackerService.New(trackerStore.NewInMemoryStore(), trackerService.WithLogger(logger))
	sec := security.New(security.WithLogger(logger))

	h := New(tracker, sec, time.Hour, logger)
	r := chi.NewRouter()
	h.Register(r)
	return &adminEnv{router: r, tracker: tracker, security: sec}
}

func (e *adminEnv) registerPending(t *testing.T, requestID string, registeredAt time.Time) {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), registeredAt)
	err := e.tracker.RegisterPending(ctx, id.RequestID(requestID), trackerModels.KindSimulation,
		trackerModels.CallbackTarget{TwinID: 7})
	if err != nil {
		t.Fatalf("failed to register %s: %v", requestID, err)
	}
}
