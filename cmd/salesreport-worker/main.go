package main

import (
	"context"
	"errors"
	"os"
	"time"

	"salesreport/internal/cli"
	applog "salesreport/internal/log"
	"salesreport/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", applog.ComponentWorker).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting salesreport-worker",
		applog.FieldBackend, cfg.DataBackend,
		"queue", cfg.AMQPQueue)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	svc, result, err := cli.BuildReportService(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	if result.AMQP == nil {
		logger.Error("AMQP broker unreachable, cannot consume ingest requests")
		result.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	})

	w := worker.NewIngestWorker(svc, cfg.InputFile, cfg.TopN)
	if err := result.AMQP.ConsumeIngestRequests(ctx, w.HandleIngestRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("salesreport-worker stopped")
}
