// Package kafka provides shared Kafka utilities for the notification service.
package kafka

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// ParseBrokers parses a comma-separated broker list and trims whitespace.
// Returns a slice of broker addresses.
func ParseBrokers(brokers string) []string {
	return splitList(brokers)
}

// ParseTopics parses a comma-separated topic list, dropping empty entries.
func ParseTopics(topics string) []string {
	return splitList(topics)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ValidateConsumerParams validates common consumer parameters.
// Returns an error if any parameter is invalid.
func ValidateConsumerParams(brokers string, topics []string, groupID string) error {
	if brokers == "" {
		return fmt.Errorf("brokers cannot be empty")
	}
	if len(topics) == 0 {
		return fmt.Errorf("topics cannot be empty")
	}
	if groupID == "" {
		return fmt.Errorf("groupID cannot be empty")
	}
	return nil
}

// ValidateProducerParams validates common producer parameters.
// Returns an error if any parameter is invalid.
func ValidateProducerParams(brokers, topic string) error {
	if brokers == "" {
		return fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	return nil
}

// Security holds optional SASL/TLS settings for managed clusters.
// A zero value means plaintext without authentication.
type Security struct {
	Mechanism string // "", "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512"
	Username  string
	Password  string
	TLS       bool
}

// Enabled reports whether any security setting is present.
func (s Security) Enabled() bool {
	return s.Mechanism != "" || s.TLS
}

// SASLMechanism builds the kafka-go SASL mechanism for the configured name.
// Returns nil when no mechanism is configured.
func (s Security) SASLMechanism() (sasl.Mechanism, error) {
	switch strings.ToUpper(s.Mechanism) {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", s.Mechanism)
	}
}

func (s Security) tlsConfig() *tls.Config {
	if !s.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewDialer creates a reader dialer with the given security settings applied.
func NewDialer(sec Security, clientID string) (*kafka.Dialer, error) {
	mechanism, err := sec.SASLMechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		ClientID:      clientID,
		Timeout:       DialTimeout,
		DualStack:     true,
		TLS:           sec.tlsConfig(),
		SASLMechanism: mechanism,
	}, nil
}

// NewTransport creates a writer transport with the given security settings applied.
func NewTransport(sec Security, clientID string) (*kafka.Transport, error) {
	mechanism, err := sec.SASLMechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		ClientID:    clientID,
		DialTimeout: DialTimeout,
		TLS:         sec.tlsConfig(),
		SASL:        mechanism,
	}, nil
}

// ReaderConfigValues holds the actual values used in the reader config for logging.
type ReaderConfigValues struct {
	MinBytes       int
	MaxBytes       int
	MaxWait        string
	CommitInterval string
	SessionTimeout string
}

// GetReaderConfigValues returns the actual configuration values for logging purposes.
func GetReaderConfigValues() ReaderConfigValues {
	return ReaderConfigValues{
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        MaxPollWait.String(),
		CommitInterval: "sync",
		SessionTimeout: SessionTimeout.String(),
	}
}

// LogReaderConfig logs the reader configuration values.
// Call this after creating a reader to log the actual config being used.
func LogReaderConfig() {
	cfg := GetReaderConfigValues()
	slog.Info("Kafka consumer configured",
		"min_bytes", cfg.MinBytes,
		"max_bytes", cfg.MaxBytes,
		"max_wait", cfg.MaxWait,
		"commit_interval", cfg.CommitInterval,
		"session_timeout", cfg.SessionTimeout,
	)
}

// NewReaderConfig creates a consumer-group reader configuration for at-least-once delivery.
// A single topic is bound directly; several topics use group topic subscription.
func NewReaderConfig(brokers, topics []string, groupID string, dialer *kafka.Dialer) kafka.ReaderConfig {
	cfg := kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Dialer:         dialer,
		MinBytes:       1,    // Return immediately when any data is available
		MaxBytes:       10e6, // 10MB
		MaxWait:        MaxPollWait,
		CommitInterval: CommitInterval,
		SessionTimeout: SessionTimeout,
		StartOffset:    kafka.FirstOffset, // Start from beginning if no committed offset
	}
	if len(topics) == 1 {
		cfg.Topic = topics[0]
	} else {
		cfg.GroupTopics = topics
	}
	return cfg
}

// ParseCompression maps a codec name to a kafka-go compression codec.
// Unknown or empty names fall back to gzip; "none" disables compression.
func ParseCompression(name string) kafka.Compression {
	switch strings.ToLower(name) {
	case "none":
		return 0
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

// ParseRequiredAcks maps an acks setting to kafka-go RequiredAcks.
// Unknown or empty values fall back to all in-sync replicas.
func ParseRequiredAcks(value string) kafka.RequiredAcks {
	switch strings.ToLower(value) {
	case "1", "leader":
		return kafka.RequireOne
	case "0", "none":
		return kafka.RequireNone
	default:
		return kafka.RequireAll
	}
}
