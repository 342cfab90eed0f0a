// Package processor runs the notification delivery state machine:
// validate, dedup, persist, send with retry, finalize, publish the outcome.
package processor

import (
	"context"

	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
)

// DeliveryStore persists delivery records. *database.DB satisfies it.
type DeliveryStore interface {
	// Create inserts rec. A second record for the same message_id yields database.ErrDuplicateKey.
	Create(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error)

	// Update persists the delivery fields of an existing record.
	Update(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error)

	// GetByID returns nil, nil when the record does not exist.
	GetByID(ctx context.Context, id string) (*events.NotificationRecord, error)

	// GetByMessageID returns nil, nil when the record does not exist.
	GetByMessageID(ctx context.Context, messageID string) (*events.NotificationRecord, error)

	// ListByStatus returns records in any of statuses, oldest first.
	ListByStatus(ctx context.Context, statuses []events.Status, limit int) ([]events.NotificationRecord, error)
}

// MailSender sends one email and returns the provider message id.
type MailSender interface {
	Send(ctx context.Context, req *events.EmailRequest) (string, error)
}

// OutcomePublisher emits a delivery record onto the outcome topic.
type OutcomePublisher interface {
	Publish(ctx context.Context, rec *events.NotificationRecord) error
}

// Tracer provides spans and named counters. It has no behavioral effect.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, *telemetry.Span)
	Count(name string)
}
