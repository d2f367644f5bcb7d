package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"velum/internal/admin"
	aggregatehandler "velum/internal/aggregate/handler"
	coordinatorhandler "velum/internal/coordinator/handler"
	"velum/internal/platform/metrics"
	"velum/internal/platform/middleware"
	twinhandler "velum/internal/twin/handler"
)

const requestTimeout = 30 * time.Second

// routerDeps carries everything the HTTP surface mounts. Construction stays
// in main; this file only arranges routes and middleware.
type routerDeps struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	validator        middleware.JWTValidator
	callbackVerifier middleware.CallbackVerifier
	callbackRecorder middleware.SecurityRecorder

	twins       *twinhandler.Handler
	simulations *coordinatorhandler.Handler
	categories  *aggregatehandler.Handler
	admin       *admin.Handler
	callbacks   *coordinatorhandler.CallbackHandler

	ready func(ctx context.Context) error
}

func newRouter(deps routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recovery(deps.logger))
	r.Use(middleware.Latency(deps.metrics))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.ready))
	r.Method(http.MethodGet, "/metrics", deps.metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(deps.validator, deps.logger))

		deps.twins.Register(api)
		deps.simulations.Register(api)
		deps.categories.Register(api)

		api.Group(func(adm chi.Router) {
			adm.Use(middleware.RequireAdmin(deps.logger))
			deps.admin.Register(adm)
		})
	})

	// The callback surface carries its own credential; operator tokens are
	// not accepted here.
	r.Route("/internal", func(internal chi.Router) {
		internal.Use(middleware.ContentTypeJSON)
		internal.Use(middleware.RequireCallbackAuth(deps.callbackVerifier, deps.logger, deps.callbackRecorder))

		deps.callbacks.Register(internal)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
