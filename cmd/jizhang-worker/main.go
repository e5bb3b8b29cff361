package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jizhang/internal/amqp"
	"jizhang/internal/config"
	"jizhang/internal/export/google"
	applog "jizhang/internal/log"
	"jizhang/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appender, err := google.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Sheets export client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect AMQP", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(amqpClient, appender)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return exportWorker.Run(gctx)
	})

	logger.Info("Starting jizhang export worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped gracefully")
}
