// Package consumer provides the Kafka consumer-group reader for inbound notification topics.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	kafkautil "github.com/Smart-Services-NE/notification-service/pkg/kafka"
)

const (
	// DefaultClientID identifies this consumer to the brokers.
	DefaultClientID = "notification-service-consumer"
	// DefaultPollTimeout bounds a single Fetch call.
	DefaultPollTimeout = time.Second
)

// ErrNoMessage is returned by Fetch when nothing arrived within the poll timeout.
var ErrNoMessage = errors.New("no message available")

// Config holds consumer settings.
type Config struct {
	Brokers     string
	Topics      []string
	GroupID     string
	ClientID    string
	PollTimeout time.Duration
	Security    kafkautil.Security
}

type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer wraps a Kafka reader. Offsets are committed explicitly, never on read.
type Consumer struct {
	reader      messageFetcher
	topics      []string
	pollTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a consumer-group reader bound to cfg.Topics.
// The consumer is configured for at-least-once delivery semantics.
func NewConsumer(cfg Config) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(cfg.Brokers, cfg.Topics, cfg.GroupID); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	dialer, err := kafkautil.NewDialer(cfg.Security, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to configure consumer dialer: %w", err)
	}

	brokerList := kafkautil.ParseBrokers(cfg.Brokers)

	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topics", cfg.Topics,
		"group_id", cfg.GroupID,
		"client_id", cfg.ClientID,
		"sasl", cfg.Security.Mechanism != "",
		"tls", cfg.Security.TLS,
	)

	reader := kafka.NewReader(kafkautil.NewReaderConfig(brokerList, cfg.Topics, cfg.GroupID, dialer))
	kafkautil.LogReaderConfig()

	return newConsumer(reader, cfg.Topics, cfg.PollTimeout), nil
}

func newConsumer(reader messageFetcher, topics []string, pollTimeout time.Duration) *Consumer {
	return &Consumer{
		reader:      reader,
		topics:      topics,
		pollTimeout: pollTimeout,
	}
}

// Fetch returns the next message without committing it.
// It returns ErrNoMessage when the poll timeout elapses with nothing to read,
// and ctx.Err() when the parent context is done.
func (c *Consumer) Fetch(ctx context.Context) (*kafka.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	msg, err := c.reader.FetchMessage(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("failed to fetch message from Kafka: %w", err)
	}
	return &msg, nil
}

// Commit commits the offset for msg.
// This should be called only after the message was processed successfully.
func (c *Consumer) Commit(ctx context.Context, msg *kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, *msg); err != nil {
		return fmt.Errorf("failed to commit offset %d on %s/%d: %w", msg.Offset, msg.Topic, msg.Partition, err)
	}
	return nil
}

// Close closes the Kafka reader. Subsequent calls return the first result.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		slog.Info("Closing Kafka consumer", "topics", c.topics)
		if err := c.reader.Close(); err != nil {
			slog.Error("Error closing Kafka consumer", "error", err)
			c.closeErr = err
			return
		}
		slog.Info("Kafka consumer closed successfully")
	})
	return c.closeErr
}
