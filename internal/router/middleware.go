package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
)

const (
	counterHTTPRequests = "http.requests"
	counterHTTPErrors   = "http.errors"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware counts API requests and logs them at debug.
func metricsMiddleware(counters telemetry.CounterSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Probes and metrics scrapes are not counted
			if r.URL.Path == "/health" || r.URL.Path == "/api/v1/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if counters != nil {
				counters.Add(counterHTTPRequests, 1)
				counters.Add("http."+strings.ToLower(r.Method), 1)
				if wrapped.statusCode >= 400 {
					counters.Add(counterHTTPErrors, 1)
				}
			}

			slog.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
