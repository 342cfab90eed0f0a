package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Smart-Services-NE/notification-service/internal/config"
	"github.com/Smart-Services-NE/notification-service/internal/logging"
	"github.com/Smart-Services-NE/notification-service/pkg/shared"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logCloser, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	slog.Info("Starting notification service",
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topics", cfg.Topics(),
		"consumer_group_id", cfg.ConsumerGroupID,
		"outcome_topic", cfg.OutcomeTopic,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"schema_registry_url", cfg.SchemaRegistryURL,
		"email_provider", cfg.EmailProvider,
		"email_fallback", cfg.FallbackProviders(),
		"resend_api_key", shared.MaskSecret(cfg.ResendAPIKey),
		"http_port", cfg.HTTPPort,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Notification service failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}

	slog.Info("Notification service stopped")
}
