// Package handlers provides HTTP handlers for the notification admin API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/processor"
	"github.com/Smart-Services-NE/notification-service/pkg/metrics"
)

const (
	// MaxListLimit caps the limit query parameter.
	MaxListLimit = 1000
	// DefaultListLimit applies when no limit is given.
	DefaultListLimit = 100

	healthTimeout = 2 * time.Second
)

// NotificationService is the processor surface the API exposes.
type NotificationService interface {
	Get(ctx context.Context, notificationID string) (*events.NotificationRecord, error)
	ListPending(ctx context.Context, limit int) ([]events.NotificationRecord, error)
	ListFailed(ctx context.Context, limit int) ([]events.NotificationRecord, error)
	ListRetrying(ctx context.Context, limit int) ([]events.NotificationRecord, error)
	ListRetryable(ctx context.Context, limit int) ([]events.NotificationRecord, error)
	Retry(ctx context.Context, notificationID string) processor.RetryResult
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SnapshotSource exposes in-process counters.
type SnapshotSource interface {
	Snapshot() *metrics.Snapshot
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	service   NotificationService
	health    HealthChecker
	snapshots SnapshotSource
}

// NewHandlers creates a new handlers instance. health and snapshots may be nil.
func NewHandlers(service NotificationService, health HealthChecker, snapshots SnapshotSource) *Handlers {
	return &Handlers{service: service, health: health, snapshots: snapshots}
}

// ListResponse is the body of the list endpoint.
type ListResponse struct {
	Notifications []events.NotificationRecord `json:"notifications"`
	Count         int                         `json:"count"`
}

// ListNotifications returns records by status, oldest first.
// GET /api/v1/notifications?status=pending|failed|retrying|retryable&limit=N
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}

	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = "retryable"
	}

	list, ok := h.listerFor(status)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"status must be one of: pending, failed, retrying, retryable")
		return
	}

	recs, err := list(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list notifications", "status", status, "error", err)
		writeError(w, http.StatusServiceUnavailable, string(processor.CodeDataLayer), "failed to list notifications")
		return
	}

	if recs == nil {
		recs = []events.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Notifications: recs, Count: len(recs)})
}

// listerFor maps a status query value to its list operation. Sent records
// are not listable.
func (h *Handlers) listerFor(status string) (func(context.Context, int) ([]events.NotificationRecord, error), bool) {
	if status == "retryable" {
		return h.service.ListRetryable, true
	}
	parsed, err := events.ParseStatus(status)
	if err != nil {
		return nil, false
	}
	switch parsed {
	case events.StatusPending:
		return h.service.ListPending, true
	case events.StatusFailed:
		return h.service.ListFailed, true
	case events.StatusRetrying:
		return h.service.ListRetrying, true
	default:
		return nil, false
	}
}

// GetNotification returns one record.
// GET /api/v1/notifications/{id}
func (h *Handlers) GetNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get notification", "notification_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, string(processor.CodeDataLayer), "failed to get notification")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, string(processor.CodeNotFound), "notification record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RetryNotification makes one more delivery attempt.
// POST /api/v1/notifications/{id}/retry
func (h *Handlers) RetryNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res := h.service.Retry(r.Context(), id)
	if res.Success {
		writeJSON(w, http.StatusOK, res)
		return
	}

	status := http.StatusInternalServerError
	if res.Error != nil {
		switch res.Error.Code {
		case processor.CodeNotFound:
			status = http.StatusNotFound
		case processor.CodeSendFailed:
			status = http.StatusBadGateway
		case processor.CodeDataLayer, processor.CodeCancelled:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, res)
}

// Health reports service health.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMetrics returns the current delivery counters.
// GET /api/v1/metrics
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics collector not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.snapshots.Snapshot())
}

func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return DefaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
		return 0, false
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, processor.ErrorInfo{Code: processor.ErrorCode(code), Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
