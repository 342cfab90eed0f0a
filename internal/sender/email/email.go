// Package email sends notification emails through the configured providers.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// Sender is satisfied by provider.Registry and by any single provider.
type Sender interface {
	Send(ctx context.Context, req *events.EmailRequest) (string, error)
}

// Service is the mail sender used by the processor. It fills in the default
// From address and rejects requests no provider could deliver.
type Service struct {
	sender      Sender
	defaultFrom string
}

// NewService creates an email service.
func NewService(sender Sender, defaultFrom string) *Service {
	return &Service{sender: sender, defaultFrom: defaultFrom}
}

// Send delivers req and returns the provider message id.
func (s *Service) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("email request is nil")
	}
	if strings.TrimSpace(req.To) == "" {
		return "", fmt.Errorf("email recipient is required")
	}

	out := *req
	if out.From == "" {
		out.From = s.defaultFrom
	}
	if out.From == "" {
		return "", fmt.Errorf("email sender is required: set EMAIL_FROM or metadata from")
	}

	id, err := s.sender.Send(ctx, &out)
	if err != nil {
		return "", err
	}

	slog.Debug("Email delivered",
		"to", out.To,
		"from", out.From,
		"is_html", out.IsHTML,
		"provider_message_id", id,
	)
	return id, nil
}
