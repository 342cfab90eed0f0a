package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Smart-Services-NE/notification-service/internal/database"
	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/metrics"
	"github.com/Smart-Services-NE/notification-service/internal/retry"
	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
)

// Telemetry counter names.
const (
	CounterSent             = "notification.sent"
	CounterFailed           = "notification.failed"
	CounterError            = "notification.error"
	CounterRetrySuccess     = "notification.retry.success"
	CounterRetryFailed      = "notification.retry.failed"
	CounterOutcomePublished = "notification.outcome.published"
	CounterPublishFailed    = "notification.outcome.publish_failed"
)

// finalizeTimeout bounds the store update and outcome publish that follow a send.
const finalizeTimeout = 10 * time.Second

// finalizeContext keeps ctx values but not its cancellation, so the result
// of a send that already happened is still persisted after shutdown begins.
func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

// Processor orchestrates delivery of a single notification.
// It is safe for concurrent use if its collaborators are.
type Processor struct {
	store     DeliveryStore
	mail      MailSender
	publisher OutcomePublisher
	tracer    Tracer
	metrics   metrics.Recorder
	policy    retry.Policy
	now       func() time.Time
	newID     func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics sets the metrics recorder. A nil recorder keeps the no-op default.
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithTracer sets the span and counter collaborator.
func WithTracer(t Tracer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithRetryPolicy overrides the send backoff policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Processor) { p.policy = policy }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Processor) { p.newID = newID }
}

// NewProcessor creates a processor. publisher may be nil, in which case
// outcomes are not published.
func NewProcessor(store DeliveryStore, mail MailSender, publisher OutcomePublisher, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		mail:      mail,
		publisher: publisher,
		tracer:    telemetry.Noop(),
		metrics:   metrics.NewNoOp(),
		policy:    retry.DefaultPolicy(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates, deduplicates, persists and sends msg.
// Failures carry an ErrorInfo; a duplicate message_id is a success.
func (p *Processor) Process(ctx context.Context, msg *events.NotificationMessage) ProcessResult {
	start := p.now()
	ctx, span := p.tracer.StartSpan(ctx, "notification.process")
	defer span.End()

	if err := ValidateMessage(msg); err != nil {
		if msg != nil {
			slog.Warn("Invalid message received",
				"message_id", msg.MessageID,
				"topic", msg.Topic,
				"error", err,
			)
		}
		span.Tag("outcome", CodeInvalidMessage)
		return ProcessResult{Error: newError(CodeInvalidMessage, err.Error())}
	}

	span.Tag("topic", msg.Topic)
	span.Tag("message_id", msg.MessageID)
	span.Tag("recipient", msg.Recipient)

	existing, err := p.store.GetByMessageID(ctx, msg.MessageID)
	if err != nil {
		return p.dataLayerFailure(ctx, span, msg.MessageID, "look up notification record", err)
	}
	if existing != nil {
		return p.duplicate(span, existing)
	}

	req := BuildEmailRequest(msg)
	rec := events.NotificationRecord{
		ID:        p.newID(),
		MessageID: msg.MessageID,
		Topic:     msg.Topic,
		Subject:   req.Subject,
		Body:      req.Body,
		Recipient: req.To,
		IsHTML:    req.IsHTML,
		Status:    events.StatusPending,
		CreatedAt: p.now().UTC(),
	}
	if req.From != "" {
		from := req.From
		rec.FromAddress = &from
	}

	created, err := p.store.Create(ctx, rec)
	if errors.Is(err, database.ErrDuplicateKey) {
		// Another instance created it between the lookup and the insert.
		winner, gerr := p.store.GetByMessageID(ctx, msg.MessageID)
		if gerr != nil || winner == nil {
			if gerr == nil {
				gerr = err
			}
			return p.dataLayerFailure(ctx, span, msg.MessageID, "re-read concurrent notification record", gerr)
		}
		return p.duplicate(span, winner)
	}
	if err != nil {
		return p.dataLayerFailure(ctx, span, msg.MessageID, "create notification record", err)
	}

	_, sendErr := retry.Do(ctx, p.policy, "send_email", func(ctx context.Context) (string, error) {
		return p.mail.Send(ctx, req)
	})
	if sendErr != nil {
		if ctx.Err() != nil {
			return p.cancelled(span, msg.MessageID, ctx.Err())
		}
		return p.finalizeFailed(ctx, span, created, sendErr)
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()

	sent, err := p.store.Update(fctx, created.MarkSent(p.now()))
	if err != nil {
		return p.dataLayerFailure(fctx, span, msg.MessageID, "mark notification sent", err)
	}

	p.publishOutcome(fctx, &sent)

	p.metrics.RecordSent()
	p.metrics.RecordProcessed(p.now().Sub(start))
	p.tracer.Count(CounterSent)
	span.Tag("outcome", events.StatusSent)

	slog.Info("Notification sent successfully",
		"notification_id", sent.ID,
		"message_id", sent.MessageID,
		"recipient", sent.Recipient,
	)
	return ProcessResult{Success: true, Record: &sent}
}

// finalizeFailed persists the Failed record after the retry budget ran out.
func (p *Processor) finalizeFailed(ctx context.Context, span *telemetry.Span, rec events.NotificationRecord, sendErr error) ProcessResult {
	attempts := p.policy.MaxAttempts
	lastErr := sendErr
	var exhausted *retry.ExhaustedError
	if errors.As(sendErr, &exhausted) {
		attempts = exhausted.Attempts
		lastErr = exhausted.Err
	}

	slog.Error("Failed to send email after retries",
		"notification_id", rec.ID,
		"message_id", rec.MessageID,
		"attempts", attempts,
		"error", lastErr,
	)

	fctx, cancel := finalizeContext(ctx)
	defer cancel()

	failed, err := p.store.Update(fctx, rec.MarkFailed(lastErr.Error(), attempts))
	if err != nil {
		return p.dataLayerFailure(fctx, span, rec.MessageID, "mark notification failed", err)
	}

	p.publishOutcome(fctx, &failed)

	p.metrics.RecordFailed()
	p.tracer.Count(CounterFailed)
	span.Tag("outcome", events.StatusFailed)

	return ProcessResult{
		Record: &failed,
		Error:  newError(CodeSendFailed, "failed to send email: "+lastErr.Error()),
	}
}

func (p *Processor) duplicate(span *telemetry.Span, rec *events.NotificationRecord) ProcessResult {
	slog.Info("Duplicate message detected",
		"message_id", rec.MessageID,
		"notification_id", rec.ID,
		"status", rec.Status,
	)
	p.metrics.RecordDuplicate()
	span.Tag("outcome", CodeDuplicate)
	return ProcessResult{Success: true, Duplicate: true, Record: rec}
}

func (p *Processor) dataLayerFailure(ctx context.Context, span *telemetry.Span, messageID, op string, err error) ProcessResult {
	if ctx.Err() != nil {
		return p.cancelled(span, messageID, ctx.Err())
	}
	slog.Error("Failed to "+op,
		"message_id", messageID,
		"error", err,
	)
	p.metrics.RecordError()
	p.tracer.Count(CounterError)
	span.Tag("outcome", CodeDataLayer)
	return ProcessResult{Error: newError(CodeDataLayer, "failed to "+op+": "+err.Error())}
}

func (p *Processor) cancelled(span *telemetry.Span, messageID string, err error) ProcessResult {
	slog.Warn("Notification processing cancelled",
		"message_id", messageID,
		"error", err,
	)
	span.Tag("outcome", CodeCancelled)
	return ProcessResult{Error: newError(CodeCancelled, err.Error())}
}

// publishOutcome emits rec best-effort. Failures are logged and counted, never returned.
func (p *Processor) publishOutcome(ctx context.Context, rec *events.NotificationRecord) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, rec); err != nil {
		slog.Warn("Failed to publish notification outcome",
			"code", CodePublishError,
			"notification_id", rec.ID,
			"message_id", rec.MessageID,
			"status", rec.Status,
			"error", err,
		)
		p.metrics.RecordPublishError()
		p.tracer.Count(CounterPublishFailed)
		return
	}
	p.tracer.Count(CounterOutcomePublished)
}
