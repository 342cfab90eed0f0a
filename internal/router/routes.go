package router

import "github.com/go-chi/chi/v5"

// setupRoutes configures all HTTP routes for the API.
func (r *Router) setupRoutes() {
	r.mux.Get("/health", r.handlers.Health)
	r.mux.Get("/api/v1/metrics", r.handlers.GetMetrics)

	r.mux.Route("/api/v1/notifications", func(nr chi.Router) {
		nr.Get("/", r.handlers.ListNotifications)
		nr.Get("/{id}", r.handlers.GetNotification)
		nr.Post("/{id}/retry", r.handlers.RetryNotification)
	})
}
