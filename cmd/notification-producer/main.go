// Command notification-producer publishes sample notification messages to
// Kafka for local and load testing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hamba/avro/v2/registry"
	"github.com/segmentio/kafka-go"

	"github.com/Smart-Services-NE/notification-service/internal/decoder"
	"github.com/Smart-Services-NE/notification-service/internal/generator"
	"github.com/Smart-Services-NE/notification-service/internal/logging"
	kafkautil "github.com/Smart-Services-NE/notification-service/pkg/kafka"
	"github.com/Smart-Services-NE/notification-service/pkg/shared"
)

func main() {
	var (
		cfg         runConfig
		genCfg      generator.Config
		recipients  string
		format      string
		registryURL string
		logLevel    string
	)
	flag.StringVar(&cfg.Brokers, "kafka-brokers", shared.GetEnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "Kafka broker addresses (comma-separated)")
	flag.StringVar(&cfg.Topic, "topic", shared.GetEnvOrDefault("PRODUCER_TOPIC", "weather-alerts"), "Kafka topic to publish to")
	flag.StringVar(&format, "format", "json", "Payload format: json or avro")
	flag.StringVar(&registryURL, "schema-registry-url", shared.GetEnvOrDefault("SCHEMA_REGISTRY_URL", ""), "Schema registry URL (required for avro)")
	flag.Float64Var(&cfg.RPS, "rps", 10.0, "Messages per second")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Duration to run (e.g., 60s, 5m)")
	flag.IntVar(&cfg.BurstSize, "burst", 0, "Burst mode: send N messages immediately, then stop (0 = continuous)")
	flag.Int64Var(&genCfg.Seed, "seed", 0, "Random seed for deterministic generation (0 = random)")
	flag.StringVar(&recipients, "recipients", shared.GetEnvOrDefault("PRODUCER_RECIPIENTS", "test@example.com"), "Recipient addresses (comma-separated)")
	flag.IntVar(&genCfg.WeatherPercent, "weather-percent", 80, "Share of messages carrying weather data (0-100)")
	flag.StringVar(&genCfg.SeverityDist, "severity-dist", generator.DefaultSeverityDist, "Severity distribution (format: SEVERITY:percent,...)")
	flag.StringVar(&genCfg.AlertTypeDist, "alert-type-dist", generator.DefaultAlertTypeDist, "Alert type distribution (format: TYPE:percent,...)")
	flag.StringVar(&genCfg.From, "from", shared.GetEnvOrDefault("EMAIL_FROM", ""), "Sender address added as metadata")
	flag.StringVar(&logLevel, "log-level", shared.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	slog.SetDefault(logging.NewLogger(os.Stdout, logging.Options{Level: logLevel, Format: "json"}))
	genCfg.Recipients = splitList(recipients)

	slog.Info("Starting notification-producer",
		"kafka_brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"format", format,
		"rps", cfg.RPS,
		"duration", cfg.Duration,
		"burst_size", cfg.BurstSize,
		"seed", genCfg.Seed,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	gen, err := generator.New(genCfg)
	if err != nil {
		slog.Error("Invalid generator configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encode, err := newEncoder(ctx, strings.ToLower(format), registryURL)
	if err != nil {
		slog.Error("Failed to configure encoder", "error", err)
		os.Exit(1)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkautil.ParseBrokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	p := &publisher{writer: writer, generator: gen, encode: encode, now: time.Now}
	if err := p.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Publishing failed", "error", err)
		os.Exit(1)
	}
	slog.Info("notification-producer stopped", "sent", p.sent)
}

// newEncoder returns the payload encoder for format. Avro registers both
// record schemas under their full names and frames payloads with the ids.
func newEncoder(ctx context.Context, format, registryURL string) (encodeFunc, error) {
	switch format {
	case "json":
		return decoder.EncodeJSON, nil
	case "avro":
		if registryURL == "" {
			return nil, fmt.Errorf("schema-registry-url cannot be empty for avro")
		}
		client, err := registry.NewClient(registryURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create schema registry client: %w", err)
		}

		ids := make(map[string]int, 2)
		for _, s := range []struct {
			name   string
			schema string
		}{
			{decoder.WeatherAlertName, decoder.WeatherAlertSchema.String()},
			{decoder.NotificationMessageName, decoder.NotificationMessageSchema.String()},
		} {
			id, _, err := client.CreateSchema(ctx, "com.weatherapp.notifications."+s.name, s.schema)
			if err != nil {
				return nil, fmt.Errorf("failed to register %s schema: %w", s.name, err)
			}
			slog.Info("Registered schema", "name", s.name, "id", id)
			ids[s.name] = id
		}
		return avroEncoder(ids), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want json or avro)", format)
	}
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
