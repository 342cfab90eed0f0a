package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Smart-Services-NE/notification-service/internal/handlers"
	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
)

// NewServer creates a new HTTP server with the router configured.
func NewServer(port int, h *handlers.Handlers, counters telemetry.CounterSink) *http.Server {
	router := NewRouter(h, counters)
	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
