// Package producer publishes delivery outcomes to the outcome topic.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/Smart-Services-NE/notification-service/internal/events"
	kafkautil "github.com/Smart-Services-NE/notification-service/pkg/kafka"
)

const (
	// DefaultClientID identifies this producer to the brokers.
	DefaultClientID = "notification-service-producer"
	// SchemaVersion is stamped on every outcome message.
	SchemaVersion = 1
)

// Config holds producer settings.
type Config struct {
	Brokers      string
	Topic        string
	ClientID     string
	Compression  string // gzip (default), snappy, lz4, zstd or none
	RequiredAcks string // all (default), 1 or 0
	Security     kafkautil.Security
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a Kafka writer and publishes delivery records as JSON.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a Kafka producer for the outcome topic.
// Writes are synchronous so the caller sees publish failures.
func NewProducer(cfg Config) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(cfg.Brokers, cfg.Topic); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}

	transport, err := kafkautil.NewTransport(cfg.Security, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to configure producer transport: %w", err)
	}

	brokerList := kafkautil.ParseBrokers(cfg.Brokers)
	acks := kafkautil.ParseRequiredAcks(cfg.RequiredAcks)
	compression := kafkautil.ParseCompression(cfg.Compression)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // keyed by message_id
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: acks,
		Compression:  compression,
		Transport:    transport,
		Async:        false,
	}

	slog.Info("Kafka producer configured",
		"brokers", brokerList,
		"topic", cfg.Topic,
		"client_id", cfg.ClientID,
		"required_acks", int(acks),
		"compression", cfg.Compression,
		"sasl", cfg.Security.Mechanism != "",
		"tls", cfg.Security.TLS,
	)

	return &Producer{writer: writer, topic: cfg.Topic}, nil
}

// buildMessage creates a Kafka message from a delivery record.
// The message is keyed by message_id and stamped with the record's creation time.
func buildMessage(rec *events.NotificationRecord) (kafka.Message, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal notification record: %w", err)
	}

	return kafka.Message{
		Key:   []byte(rec.MessageID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(rec.MessageID)},
			{Key: "status", Value: []byte(rec.Status)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(SchemaVersion))},
		},
		Time: rec.CreatedAt,
	}, nil
}

// Publish writes the record to the outcome topic.
func (p *Producer) Publish(ctx context.Context, rec *events.NotificationRecord) error {
	msg, err := buildMessage(rec)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write outcome to Kafka topic %s: %w", p.topic, err)
	}

	slog.Debug("Published delivery outcome",
		"notification_id", rec.ID,
		"message_id", rec.MessageID,
		"status", rec.Status,
		"topic", p.topic,
	)
	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	return nil
}
