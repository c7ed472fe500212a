// Package httptransport assembles the public HTTP surface: shared middleware,
// the domain handlers and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"blurifier/internal/platform/metrics"
	"blurifier/pkg/platform/httputil"
	"blurifier/pkg/platform/middleware/request"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the router needs. Registry and Metrics may be
// nil in tests.
type Deps struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Health   []HealthCheck
	Handlers []Registrar
}

// NewRouter wires middleware and every public endpoint. Trailing slashes are
// stripped so "/api/submit/" and "/api/submit" route identically.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(request.ClientMetadata)
	r.Use(request.Time)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/ping", handlePing)
	r.Get("/healthz", handleHealth(d.Health, d.Logger))
	if d.Registry != nil {
		r.Handle("/metrics", metrics.Handler(d.Registry))
	}
	for _, h := range d.Handlers {
		h.Register(r)
	}
	return r
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"ping": "pong"})
}

func handleHealth(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", c.Name, "error", err)
				body[c.Name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			body[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
