package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jizhang/internal/amqp"
	"jizhang/internal/backend"
	"jizhang/internal/bot"
	"jizhang/internal/config"
	"jizhang/internal/line"
	applog "jizhang/internal/log"
	"jizhang/internal/parse"
	"jizhang/internal/services"
	"jizhang/internal/stats"
)

func main() {
	// .env is for local development; missing file is fine.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateLedger(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// AMQP is optional: without a broker the bot still works, only the
	// export trail is missing.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect AMQP, continuing without event stream", "error", err)
		} else {
			publisher = client
		}
	}

	ledgerService := services.NewLedgerService(result.Ledger, publisher)
	router := bot.NewRouter(
		parse.NewClassifier(cfg.ActivationToken),
		ledgerService,
		stats.New(result.Ledger),
	)
	replier := line.NewReplyClient(cfg.LineChannelAccessToken)

	srv := line.NewServer(":"+cfg.Port, cfg.LineChannelSecret, router, replier, ledgerService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting jizhang server",
			"port", cfg.Port,
			"backend", result.Kind,
			"amqp_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
