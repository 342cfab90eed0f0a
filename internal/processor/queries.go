package processor

import (
	"context"
	"fmt"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// Get returns a single record, or nil when it does not exist.
func (p *Processor) Get(ctx context.Context, notificationID string) (*events.NotificationRecord, error) {
	rec, err := p.store.GetByID(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification %s: %w", notificationID, err)
	}
	return rec, nil
}

// ListPending returns Pending records, oldest first.
func (p *Processor) ListPending(ctx context.Context, limit int) ([]events.NotificationRecord, error) {
	return p.list(ctx, limit, events.StatusPending)
}

// ListFailed returns Failed records, oldest first.
func (p *Processor) ListFailed(ctx context.Context, limit int) ([]events.NotificationRecord, error) {
	return p.list(ctx, limit, events.StatusFailed)
}

// ListRetrying returns Retrying records, oldest first.
func (p *Processor) ListRetrying(ctx context.Context, limit int) ([]events.NotificationRecord, error) {
	return p.list(ctx, limit, events.StatusRetrying)
}

// ListRetryable returns Failed and Retrying records, oldest first.
func (p *Processor) ListRetryable(ctx context.Context, limit int) ([]events.NotificationRecord, error) {
	return p.list(ctx, limit, events.StatusFailed, events.StatusRetrying)
}

func (p *Processor) list(ctx context.Context, limit int, statuses ...events.Status) ([]events.NotificationRecord, error) {
	recs, err := p.store.ListByStatus(ctx, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications by status %v: %w", statuses, err)
	}
	return recs, nil
}
