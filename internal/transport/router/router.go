// Package router assembles the HTTP surface: middleware chain, API
// routes, health, and metrics.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	brhandler "safeband/internal/bracelet/handler"
	gfhandler "safeband/internal/geofence/handler"
	"safeband/pkg/platform/httputil"
	"safeband/pkg/platform/middleware/admin"
	"safeband/pkg/platform/middleware/auth"
	"safeband/pkg/platform/middleware/metadata"
	"safeband/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing dependency.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	JWTSigningKey string
	AdminKeyHash  string
	Bracelets     *brhandler.Handler
	Geofence      *gfhandler.Handler
	HealthChecks  []HealthCheck
}

// New builds the chi router.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.RequestTime)

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Bearer(deps.JWTSigningKey))
			deps.Bracelets.Register(r)
			deps.Geofence.Register(r)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin.RequireKey(deps.AdminKeyHash))
			deps.Bracelets.RegisterAdmin(r)
		})
	})

	return r
}

// healthHandler reports per-dependency status; any failing probe turns
// the response into a 503.
func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[check.Name] = err.Error()
				continue
			}
			body[check.Name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
