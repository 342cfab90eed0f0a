package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hamba/avro/v2/registry"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Smart-Services-NE/notification-service/internal/config"
	"github.com/Smart-Services-NE/notification-service/internal/consumer"
	"github.com/Smart-Services-NE/notification-service/internal/database"
	"github.com/Smart-Services-NE/notification-service/internal/decoder"
	"github.com/Smart-Services-NE/notification-service/internal/handlers"
	"github.com/Smart-Services-NE/notification-service/internal/ingest"
	"github.com/Smart-Services-NE/notification-service/internal/metrics"
	"github.com/Smart-Services-NE/notification-service/internal/processor"
	"github.com/Smart-Services-NE/notification-service/internal/producer"
	"github.com/Smart-Services-NE/notification-service/internal/router"
	"github.com/Smart-Services-NE/notification-service/internal/sender/email"
	"github.com/Smart-Services-NE/notification-service/internal/sender/email/provider"
	"github.com/Smart-Services-NE/notification-service/internal/telemetry"
	pkgmetrics "github.com/Smart-Services-NE/notification-service/pkg/metrics"
	"github.com/Smart-Services-NE/notification-service/pkg/shared"
)

const shutdownTimeout = 10 * time.Second

// run wires the service and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("Connecting to PostgreSQL database")
	db, err := database.NewDB(cfg.PostgresDSN)
	if err != nil {
		slog.Info("Tip: Start Postgres with 'docker compose up -d postgres' or ensure Postgres is running")
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		slog.Info("Database schema is up to date")
	}

	collector, err := newCollector(ctx, cfg)
	if err != nil {
		return err
	}
	recorder := metrics.NewCollectorAdapter(collector)
	tracer := telemetry.New(slog.Default(), recorder)

	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	mailer, err := newMailer(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher processor.OutcomePublisher
	if cfg.OutcomeTopic != "" {
		p, err := producer.NewProducer(producer.Config{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.OutcomeTopic,
			Compression:  cfg.KafkaCompression,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Security:     cfg.Security(),
		})
		if err != nil {
			return fmt.Errorf("failed to create Kafka producer: %w", err)
		}
		defer p.Close()
		publisher = p
	} else {
		slog.Warn("Outcome topic not set, delivery outcomes will not be published")
	}

	kafkaConsumer, err := consumer.NewConsumer(consumer.Config{
		Brokers:     cfg.KafkaBrokers,
		Topics:      cfg.Topics(),
		GroupID:     cfg.ConsumerGroupID,
		PollTimeout: cfg.PollTimeout,
		Security:    cfg.Security(),
	})
	if err != nil {
		slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
		return fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	proc := processor.NewProcessor(db, mailer, publisher,
		processor.WithMetrics(recorder),
		processor.WithTracer(tracer),
		processor.WithRetryPolicy(cfg.RetryPolicy()),
	)

	loop := ingest.NewLoop(kafkaConsumer, dec, proc, recorder, ingest.Config{
		IdleSleep:     cfg.IdleSleep,
		ErrorCooldown: cfg.ErrorCooldown,
	})

	server := router.NewServer(cfg.HTTPPort, handlers.NewHandlers(proc, db, collector), recorder)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		collector.Start(gctx)
		<-gctx.Done()
		collector.Stop()
		return nil
	})

	g.Go(func() error {
		slog.Info("Starting notification ingestion loop", "topics", cfg.Topics())
		return loop.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("Starting admin API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin API failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newCollector creates the metrics collector. Without Redis it only serves
// in-process snapshots.
func newCollector(ctx context.Context, cfg *config.Config) (*pkgmetrics.Collector, error) {
	var client *redis.Client
	if cfg.RedisAddr != "" {
		c, err := shared.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		client = c
	} else {
		slog.Info("Redis address not set, metrics snapshots stay in-process")
	}

	name := shared.GetEnvOrDefault("SERVICE_NAME", "notification-service")
	collector := pkgmetrics.NewCollector(name, client)
	collector.SetReportInterval(cfg.MetricsReportInterval)
	return collector, nil
}

// newDecoder creates the payload decoder, with Avro support when a schema
// registry is configured.
func newDecoder(cfg *config.Config) (*decoder.Decoder, error) {
	if cfg.SchemaRegistryURL == "" {
		slog.Warn("Schema registry not configured, Avro payloads will be rejected")
		return decoder.New(nil), nil
	}

	var opts []registry.ClientFunc
	if cfg.SchemaRegistryKey != "" {
		opts = append(opts, registry.WithBasicAuth(cfg.SchemaRegistryKey, cfg.SchemaRegistrySecret))
	} else {
		slog.Warn("Schema registry configured without authentication", "url", cfg.SchemaRegistryURL)
	}
	client, err := registry.NewClient(cfg.SchemaRegistryURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema registry client: %w", err)
	}
	slog.Info("Schema registry configured",
		"url", cfg.SchemaRegistryURL,
		"key", shared.MaskSecret(cfg.SchemaRegistryKey),
	)
	return decoder.New(client), nil
}

// newMailer registers every email provider behind a circuit breaker and
// selects the primary and fallbacks.
func newMailer(ctx context.Context, cfg *config.Config) (*email.Service, error) {
	providers := provider.NewRegistry()
	settings := provider.DefaultBreakerSettings()

	providers.Register(provider.WithBreaker(provider.NewSMTPProvider(provider.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		SkipTLS:  cfg.SMTPSkipTLS,
	}), settings))
	providers.Register(provider.WithBreaker(provider.NewSESProvider(ctx, cfg.AWSRegion), settings))
	providers.Register(provider.WithBreaker(provider.NewResendProvider(cfg.ResendAPIKey), settings))

	if err := providers.SetPrimary(cfg.EmailProvider); err != nil {
		return nil, fmt.Errorf("failed to select email provider: %w", err)
	}
	if fallback := cfg.FallbackProviders(); len(fallback) > 0 {
		if err := providers.SetFallback(fallback...); err != nil {
			return nil, fmt.Errorf("failed to configure email fallback: %w", err)
		}
	}

	if cfg.EmailFrom == "" {
		slog.Warn("EMAIL_FROM not set, messages without a from address will fail to send")
	}
	slog.Info("Email providers ready", "providers", providers.List(), "primary", cfg.EmailProvider)
	return email.NewService(providers, cfg.EmailFrom), nil
}
