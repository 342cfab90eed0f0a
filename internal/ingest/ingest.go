// Package ingest runs the consumer loop: fetch, decode, process, commit.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Smart-Services-NE/notification-service/internal/consumer"
	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/metrics"
	"github.com/Smart-Services-NE/notification-service/internal/processor"
)

const (
	DefaultIdleSleep     = 100 * time.Millisecond
	DefaultErrorCooldown = 5 * time.Second
)

// MessageReader reads and commits bus messages. *consumer.Consumer satisfies it.
type MessageReader interface {
	// Fetch returns consumer.ErrNoMessage when nothing is available.
	Fetch(ctx context.Context) (*kafka.Message, error)
	Commit(ctx context.Context, msg *kafka.Message) error
	Close() error
}

// MessageDecoder turns raw bytes into a canonical message. *decoder.Decoder satisfies it.
type MessageDecoder interface {
	Decode(ctx context.Context, topic string, raw []byte) (*events.NotificationMessage, error)
}

// MessageProcessor handles one canonical message. *processor.Processor satisfies it.
type MessageProcessor interface {
	Process(ctx context.Context, msg *events.NotificationMessage) processor.ProcessResult
}

// Config holds loop timings.
type Config struct {
	IdleSleep     time.Duration
	ErrorCooldown time.Duration
}

// Loop processes messages strictly one at a time.
type Loop struct {
	reader    MessageReader
	decoder   MessageDecoder
	processor MessageProcessor
	metrics   metrics.Recorder

	idleSleep     time.Duration
	errorCooldown time.Duration

	closeOnce sync.Once
}

// NewLoop creates an ingestion loop. A nil recorder uses the no-op one.
func NewLoop(reader MessageReader, dec MessageDecoder, proc MessageProcessor, m metrics.Recorder, cfg Config) *Loop {
	if m == nil {
		m = metrics.NewNoOp()
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = DefaultIdleSleep
	}
	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = DefaultErrorCooldown
	}
	return &Loop{
		reader:        reader,
		decoder:       dec,
		processor:     proc,
		metrics:       m,
		idleSleep:     cfg.IdleSleep,
		errorCooldown: cfg.ErrorCooldown,
	}
}

// Run consumes until ctx is cancelled, then closes the reader.
// It returns nil on cancellation; other errors never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("Starting notification ingestion loop",
		"idle_sleep", l.idleSleep,
		"error_cooldown", l.errorCooldown,
	)
	defer l.close()

	for {
		if ctx.Err() != nil {
			slog.Info("Notification ingestion loop stopped")
			return nil
		}

		err := l.step(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			slog.Info("Notification ingestion loop stopped")
			return nil
		case errors.Is(err, consumer.ErrNoMessage):
			l.sleep(ctx, l.idleSleep)
		default:
			slog.Error("Unexpected error in ingestion loop, cooling down",
				"cooldown", l.errorCooldown,
				"error", err,
			)
			l.metrics.RecordError()
			l.sleep(ctx, l.errorCooldown)
		}
	}
}

// step handles a single message. Panics from any stage become errors.
func (l *Loop) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling message: %v", r)
		}
	}()

	msg, err := l.reader.Fetch(ctx)
	if err != nil {
		return err
	}
	l.metrics.RecordReceived()

	decoded, err := l.decoder.Decode(ctx, msg.Topic, msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode message at %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}

	res := l.processor.Process(ctx, decoded)
	if !res.Success {
		code, detail := processor.ErrorCode(""), ""
		if res.Error != nil {
			code, detail = res.Error.Code, res.Error.Message
		}
		slog.Warn("Message processing failed, offset not committed",
			"message_id", decoded.MessageID,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"code", code,
			"error", detail,
		)
		return nil
	}

	if err := l.reader.Commit(ctx, msg); err != nil {
		return err
	}
	slog.Debug("Committed offset",
		"message_id", decoded.MessageID,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"duplicate", res.Duplicate,
	)
	return nil
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *Loop) close() {
	l.closeOnce.Do(func() {
		if err := l.reader.Close(); err != nil {
			slog.Error("Failed to close message reader", "error", err)
		}
	})
}
