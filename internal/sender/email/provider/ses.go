package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider implements email sending via AWS SES.
type SESProvider struct {
	client sesAPI
	region string
}

// NewSESProvider creates a new SES email provider. Credentials come from the
// default AWS chain; if loading fails the provider reports unconfigured.
func NewSESProvider(ctx context.Context, region string) *SESProvider {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		slog.Warn("Failed to load AWS config, SES provider will be unavailable", "error", err)
		return &SESProvider{region: region}
	}

	slog.Info("SES email provider initialized", "region", region)
	return &SESProvider{
		client: sesv2.NewFromConfig(cfg),
		region: region,
	}
}

// Name returns the provider name.
func (p *SESProvider) Name() string {
	return "ses"
}

// IsConfigured returns true if SES is properly configured.
func (p *SESProvider) IsConfigured() bool {
	return p.client != nil
}

// Send sends an email via AWS SES and returns the SES message id.
func (p *SESProvider) Send(ctx context.Context, req *events.EmailRequest) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("SES client not initialized")
	}
	if req.To == "" {
		return "", fmt.Errorf("no recipients specified")
	}

	var body types.Body
	if req.IsHTML {
		body.Html = &types.Content{Data: aws.String(req.Body), Charset: aws.String("UTF-8")}
	} else {
		body.Text = &types.Content{Data: aws.String(req.Body), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(req.From),
		Destination: &types.Destination{
			ToAddresses: []string{req.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String("UTF-8")},
				Body:    &body,
			},
		},
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		slog.Error("SES send failed",
			"error", err,
			"to", req.To,
			"subject", req.Subject,
		)
		return "", fmt.Errorf("SES send failed: %w", err)
	}

	id := aws.ToString(result.MessageId)
	slog.Info("Email sent via SES",
		"provider_message_id", id,
		"to", req.To,
		"subject", req.Subject,
	)
	return id, nil
}
