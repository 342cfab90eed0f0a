package events

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a delivery record.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusSent     Status = "Sent"
	StatusFailed   Status = "Failed"
	StatusRetrying Status = "Retrying"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "sent":
		return StatusSent, nil
	case "failed":
		return StatusFailed, nil
	case "retrying":
		return StatusRetrying, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// NotificationRecord is the durable delivery state of one logical notification.
// Transitions return modified copies; the receiver is never changed.
type NotificationRecord struct {
	ID           string     `json:"id"`
	MessageID    string     `json:"message_id"`
	Topic        string     `json:"topic"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	Recipient    string     `json:"recipient"`
	FromAddress  *string    `json:"from_address,omitempty"`
	IsHTML       bool       `json:"is_html"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// MarkSent returns a copy in Sent state with SentAt set and the error cleared.
func (r NotificationRecord) MarkSent(now time.Time) NotificationRecord {
	t := now.UTC()
	r.Status = StatusSent
	r.SentAt = &t
	r.ErrorMessage = nil
	return r
}

// MarkFailed returns a copy in Failed state with the given error and retry count.
func (r NotificationRecord) MarkFailed(errMsg string, retryCount int) NotificationRecord {
	msg := errMsg
	r.Status = StatusFailed
	r.ErrorMessage = &msg
	r.RetryCount = retryCount
	return r
}

// MarkRetrying returns a copy in Retrying state with the retry count bumped.
func (r NotificationRecord) MarkRetrying() NotificationRecord {
	r.Status = StatusRetrying
	r.RetryCount++
	return r
}

// EmailRequest rebuilds the email this record was created for.
func (r NotificationRecord) EmailRequest() *EmailRequest {
	req := &EmailRequest{
		To:      r.Recipient,
		Subject: r.Subject,
		Body:    r.Body,
		IsHTML:  r.IsHTML,
	}
	if r.FromAddress != nil {
		req.From = *r.FromAddress
	}
	return req
}
