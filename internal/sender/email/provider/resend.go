package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// resendAPI is the subset of the Resend emails service used here.
type resendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendProvider implements email sending via Resend API.
type ResendProvider struct {
	emails resendAPI
}

// NewResendProvider creates a new Resend email provider.
// An empty API key leaves the provider unconfigured.
func NewResendProvider(apiKey string) *ResendProvider {
	if apiKey == "" {
		slog.Warn("RESEND_API_KEY not set, Resend provider will be unavailable")
		return &ResendProvider{}
	}

	client := resend.NewClient(apiKey)
	slog.Info("Resend email provider initialized")
	return &ResendProvider{emails: client.Emails}
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return "resend"
}

// IsConfigured returns true if Resend is properly configured.
func (p *ResendProvider) IsConfigured() bool {
	return p.emails != nil
}

// Send sends an email via Resend API and returns the Resend email id.
func (p *ResendProvider) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	if p.emails == nil {
		return "", fmt.Errorf("Resend client not initialized")
	}
	if req.To == "" {
		return "", fmt.Errorf("no recipients specified")
	}

	params := &resend.SendEmailRequest{
		From:    req.From,
		To:      []string{req.To},
		Subject: req.Subject,
	}
	if req.IsHTML {
		params.Html = req.Body
	} else {
		params.Text = req.Body
	}

	result, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("Resend send failed",
			"error", err,
			"to", req.To,
			"subject", req.Subject,
		)
		return "", fmt.Errorf("Resend send failed: %w", err)
	}

	slog.Info("Email sent via Resend",
		"provider_message_id", result.Id,
		"to", req.To,
		"subject", req.Subject,
	)
	return result.Id, nil
}
