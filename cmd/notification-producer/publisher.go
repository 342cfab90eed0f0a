package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Smart-Services-NE/notification-service/internal/decoder"
	"github.com/Smart-Services-NE/notification-service/internal/events"
	"github.com/Smart-Services-NE/notification-service/internal/generator"
)

const progressInterval = 100

type encodeFunc func(msg *events.NotificationMessage) ([]byte, error)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// runConfig holds publishing settings.
type runConfig struct {
	Brokers   string
	Topic     string
	RPS       float64
	Duration  time.Duration
	BurstSize int
}

// Validate checks that all required configuration fields are set and have valid values.
func (c *runConfig) Validate() error {
	if c.Brokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if c.RPS <= 0 && c.BurstSize <= 0 {
		return fmt.Errorf("rps must be > 0 or burst must be > 0")
	}
	if c.BurstSize == 0 && c.Duration <= 0 {
		return fmt.Errorf("duration must be > 0 when not in burst mode")
	}
	return nil
}

// avroEncoder frames messages with the registry id of their record schema.
func avroEncoder(ids map[string]int) encodeFunc {
	return func(msg *events.NotificationMessage) ([]byte, error) {
		name := decoder.NotificationMessageName
		if msg.HasWeatherData() {
			name = decoder.WeatherAlertName
		}
		id, ok := ids[name]
		if !ok {
			return nil, fmt.Errorf("no schema id registered for %s", name)
		}
		return decoder.EncodeAvro(id, msg)
	}
}

type publisher struct {
	writer    messageWriter
	generator *generator.Generator
	encode    encodeFunc
	now       func() time.Time
	sent      int
}

// Run publishes a burst when BurstSize is set, otherwise publishes at RPS until Duration elapses.
func (p *publisher) Run(ctx context.Context, cfg runConfig) error {
	if cfg.BurstSize > 0 {
		return p.runBurst(ctx, cfg.BurstSize)
	}
	return p.runContinuous(ctx, cfg.RPS, cfg.Duration)
}

func (p *publisher) runBurst(ctx context.Context, n int) error {
	slog.Info("Starting burst mode", "total_messages", n)
	start := time.Now()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			slog.Warn("Burst mode cancelled", "sent", p.sent, "requested", n)
			return err
		}
		if err := p.publishOne(ctx); err != nil {
			return err
		}
	}
	slog.Info("Burst mode completed", "total_sent", p.sent, "duration", time.Since(start))
	return nil
}

func (p *publisher) runContinuous(ctx context.Context, rps float64, duration time.Duration) error {
	slog.Info("Starting continuous mode", "target_rps", rps, "duration", duration)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / rps))
	defer ticker.Stop()
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("Continuous mode cancelled", "sent", p.sent)
			return ctx.Err()
		case <-deadline.C:
			slog.Info("Duration reached", "total_sent", p.sent)
			return nil
		case <-ticker.C:
			if err := p.publishOne(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *publisher) publishOne(ctx context.Context) error {
	msg := p.generator.Generate(p.now())
	payload, err := p.encode(msg)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.MessageID),
		Value: payload,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.MessageID, err)
	}

	p.sent++
	if p.sent == 1 {
		slog.Info("Published first message (sample)",
			"message_id", msg.MessageID,
			"recipient", msg.Recipient,
			"subject", msg.Subject,
			"weather", msg.HasWeatherData(),
		)
	}
	if p.sent%progressInterval == 0 {
		slog.Info("Publish progress", "sent", p.sent)
	}
	return nil
}
