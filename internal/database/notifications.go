package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// DefaultListLimit caps list queries when no positive limit is given.
const DefaultListLimit = 100

const uniqueViolation = "23505"

const recordColumns = `id, message_id, topic, subject, body, recipient, from_address, is_html,
		status, created_at, sent_at, retry_count, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*events.NotificationRecord, error) {
	var (
		rec     events.NotificationRecord
		status  string
		from    sql.NullString
		sentAt  sql.NullTime
		errText sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.MessageID,
		&rec.Topic,
		&rec.Subject,
		&rec.Body,
		&rec.Recipient,
		&from,
		&rec.IsHTML,
		&status,
		&rec.CreatedAt,
		&sentAt,
		&rec.RetryCount,
		&errText,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = events.Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if from.Valid {
		rec.FromAddress = &from.String
	}
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		rec.SentAt = &t
	}
	if errText.Valid {
		rec.ErrorMessage = &errText.String
	}
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Create inserts a new record. A record with the same message_id yields ErrDuplicateKey.
func (db *DB) Create(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error) {
	query := `
		INSERT INTO notification_records
			(id, message_id, topic, subject, body, recipient, from_address, is_html,
			 status, created_at, sent_at, retry_count, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var sentAt sql.NullTime
	if rec.SentAt != nil {
		sentAt = sql.NullTime{Time: *rec.SentAt, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, query,
		rec.ID,
		rec.MessageID,
		rec.Topic,
		rec.Subject,
		rec.Body,
		rec.Recipient,
		nullString(rec.FromAddress),
		rec.IsHTML,
		string(rec.Status),
		rec.CreatedAt,
		sentAt,
		rec.RetryCount,
		nullString(rec.ErrorMessage),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return events.NotificationRecord{}, fmt.Errorf("%w: %s", ErrDuplicateKey, rec.MessageID)
		}
		return events.NotificationRecord{}, fmt.Errorf("failed to insert notification record: %w", err)
	}

	slog.Debug("Created notification record",
		"notification_id", rec.ID,
		"message_id", rec.MessageID,
		"status", rec.Status,
	)
	return rec, nil
}

// Update persists the mutable delivery fields of an existing record.
func (db *DB) Update(ctx context.Context, rec events.NotificationRecord) (events.NotificationRecord, error) {
	query := `
		UPDATE notification_records
		SET status = $2, sent_at = $3, retry_count = $4, error_message = $5, updated_at = NOW()
		WHERE id = $1
	`
	var sentAt sql.NullTime
	if rec.SentAt != nil {
		sentAt = sql.NullTime{Time: *rec.SentAt, Valid: true}
	}

	result, err := db.conn.ExecContext(ctx, query,
		rec.ID,
		string(rec.Status),
		sentAt,
		rec.RetryCount,
		nullString(rec.ErrorMessage),
	)
	if err != nil {
		return events.NotificationRecord{}, fmt.Errorf("failed to update notification record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return events.NotificationRecord{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return events.NotificationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}

	slog.Debug("Updated notification record",
		"notification_id", rec.ID,
		"status", rec.Status,
		"retry_count", rec.RetryCount,
	)
	return rec, nil
}

// GetByID returns the record with the given id, or nil if there is none.
// An id that is not a UUID can never match and is reported as missing.
func (db *DB) GetByID(ctx context.Context, id string) (*events.NotificationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + recordColumns + ` FROM notification_records WHERE id = $1`

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification record: %w", err)
	}
	return rec, nil
}

// GetByMessageID returns the record for the given message id, or nil if there is none.
func (db *DB) GetByMessageID(ctx context.Context, messageID string) (*events.NotificationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM notification_records WHERE message_id = $1`

	rec, err := scanRecord(db.conn.QueryRowContext(ctx, query, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification record by message id: %w", err)
	}
	return rec, nil
}

// ListByStatus returns records in any of the given statuses, oldest first.
func (db *DB) ListByStatus(ctx context.Context, statuses []events.Status, limit int) ([]events.NotificationRecord, error) {
	if len(statuses) == 0 {
		return []events.NotificationRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query := `SELECT ` + recordColumns + `
		FROM notification_records
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification records: %w", err)
	}
	defer rows.Close()

	records := make([]events.NotificationRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}
	return records, nil
}
