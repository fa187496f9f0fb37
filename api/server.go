/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/sales/*       Sale configuration and queries
  /api/purchases/*   Purchase submission
  /api/admin/*       Admin operations
  /api/scenarios/*   Demo scenarios (dev only)
  /metrics           Prometheus scrape endpoint
  /healthz           Liveness probe

SECURITY NOTE:
  No authentication middleware. Admin endpoints trust the
  X-Caller-Account header; deploy behind an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Caller-Account"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.ConfigureSale)
			r.Get("/live", h.ListLiveSales)
			r.Get("/{item}", h.GetSale)
			r.Patch("/{item}", h.UpdateSale)
			r.Post("/{item}/status", h.SetSaleStatus)
			r.Get("/{item}/buyers/{buyer}", h.GetBuyerStatus)
		})

		// Purchase routes
		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", h.Purchase)
			r.Post("/batch", h.PurchaseBatch)
			r.Post("/batch/aggregated", h.PurchaseBatchAggregated)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/pause", h.SetPaused)
			r.Post("/recipient", h.SetRecipient)
			r.Post("/withdraw/items", h.WithdrawItems)
			r.Post("/withdraw/funds", h.WithdrawFunds)
			r.Post("/sweep", h.SweepExpired)
		})

		// Scenario routes (dev only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	if h.Metrics != nil {
		r.Get("/metrics", h.Metrics.ServeHTTP)
	}
	r.Get("/healthz", h.Health)

	return r
}
