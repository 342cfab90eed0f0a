package processor

import (
	"context"
	"log/slog"

	"github.com/Smart-Services-NE/notification-service/internal/events"
)

// Retry makes one more delivery attempt for a stored record.
// A record that is already Sent is left untouched.
func (p *Processor) Retry(ctx context.Context, notificationID string) RetryResult {
	ctx, span := p.tracer.StartSpan(ctx, "notification.retry")
	defer span.End()
	span.Tag("notification_id", notificationID)

	rec, err := p.store.GetByID(ctx, notificationID)
	if err != nil {
		return p.retryDataLayerFailure(ctx, notificationID, "load notification record", err)
	}
	if rec == nil {
		return RetryResult{Error: newError(CodeNotFound, "notification record not found")}
	}
	span.Tag("message_id", rec.MessageID)

	if rec.Status == events.StatusSent {
		slog.Info("Notification already sent, skipping retry",
			"notification_id", rec.ID,
			"message_id", rec.MessageID,
		)
		return RetryResult{Success: true, MessageID: rec.MessageID}
	}

	p.metrics.RecordRetry()

	retrying, err := p.store.Update(ctx, rec.MarkRetrying())
	if err != nil {
		return p.retryDataLayerFailure(ctx, notificationID, "mark notification retrying", err)
	}

	_, sendErr := p.mail.Send(ctx, retrying.EmailRequest())
	if sendErr != nil && ctx.Err() != nil {
		return RetryResult{MessageID: retrying.MessageID, Error: newError(CodeCancelled, ctx.Err().Error())}
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()

	if sendErr != nil {
		slog.Error("Retry send failed",
			"notification_id", retrying.ID,
			"message_id", retrying.MessageID,
			"retry_count", retrying.RetryCount,
			"error", sendErr,
		)
		failed, err := p.store.Update(fctx, retrying.MarkFailed(sendErr.Error(), retrying.RetryCount))
		if err != nil {
			return p.retryDataLayerFailure(fctx, notificationID, "mark notification failed", err)
		}
		p.publishOutcome(fctx, &failed)
		p.metrics.RecordFailed()
		p.tracer.Count(CounterRetryFailed)
		span.Tag("outcome", events.StatusFailed)

		return RetryResult{
			MessageID: failed.MessageID,
			Error:     newError(CodeSendFailed, "failed to send email: "+sendErr.Error()),
		}
	}

	sent, err := p.store.Update(fctx, retrying.MarkSent(p.now()))
	if err != nil {
		return p.retryDataLayerFailure(fctx, notificationID, "mark notification sent", err)
	}
	p.publishOutcome(fctx, &sent)
	p.metrics.RecordSent()
	p.tracer.Count(CounterRetrySuccess)
	span.Tag("outcome", events.StatusSent)

	slog.Info("Retried notification sent",
		"notification_id", sent.ID,
		"message_id", sent.MessageID,
		"retry_count", sent.RetryCount,
	)
	return RetryResult{Success: true, MessageID: sent.MessageID}
}

func (p *Processor) retryDataLayerFailure(ctx context.Context, notificationID, op string, err error) RetryResult {
	if ctx.Err() != nil {
		return RetryResult{Error: newError(CodeCancelled, ctx.Err().Error())}
	}
	slog.Error("Failed to "+op,
		"notification_id", notificationID,
		"error", err,
	)
	p.metrics.RecordError()
	p.tracer.Count(CounterError)
	return RetryResult{Error: newError(CodeDataLayer, "failed to "+op+": "+err.Error())}
}
