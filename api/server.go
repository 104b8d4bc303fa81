/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Access log: zerolog line per request (hlog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests from the browser client

ROUTE GROUPS:
  /                       Endpoint index
  /healthz                Liveness
  /metrics                Prometheus (optional)
  /scenarios              Demo scenarios
  /points/{user_id}/*     Balances, credit, spend, ledger, history

SECURITY NOTE:
  No authentication middleware. The user id in the path is trusted.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
)

// RouterOptions toggles optional parts of the router.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(h.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/scenarios", h.ListScenarios)

	r.Route("/points/{user_id}", func(r chi.Router) {
		r.Get("/", h.GetBalances)
		r.Delete("/", h.ResetAccount)
		r.Post("/add", h.AddPoints)
		r.Post("/subtract", h.SpendPoints)
		r.Get("/transactions", h.GetTransactions)
		r.Get("/history", h.GetHistory)
		r.Post("/scenarios/{scenario_id}", h.LoadScenario)
	})

	return r
}
