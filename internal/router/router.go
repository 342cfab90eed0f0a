// Package router provides HTTP routing configuration for the admin API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Smart-Services-NE/notification-service/internal/handlers"
	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
)

// Router wraps the chi mux and provides route configuration.
type Router struct {
	mux      chi.Router
	handlers *handlers.Handlers
	counters telemetry.CounterSink
}

// NewRouter creates a new router with all routes configured.
// counters may be nil.
func NewRouter(h *handlers.Handlers, counters telemetry.CounterSink) *Router {
	r := &Router{
		mux:      chi.NewRouter(),
		handlers: h,
		counters: counters,
	}
	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.Recoverer)
	r.mux.Use(metricsMiddleware(counters))
	r.setupRoutes()
	return r
}

// Handler returns the HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	return r.mux
}
