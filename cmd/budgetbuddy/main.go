package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetbuddy/internal/advisor"
	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/bank"
	"budgetbuddy/internal/config"
	apphttp "budgetbuddy/internal/http"
	"budgetbuddy/internal/ingest"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/ledger/memory"
	applog "budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store = repo
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.NewStore()
		logger.Info("Initialized memory backend")
	}

	datePolicy := ingest.DefaultToNow
	if cfg.OnInvalidDate == "reject" {
		datePolicy = ingest.RejectRow
	}
	importer := ingest.NewImporter(store, ingest.NewNormalizer(datePolicy))
	aggregator := ledger.NewAggregator(store)

	deps := apphttp.Deps{
		Importer:   importer,
		Aggregator: aggregator,
		Store:      store,
		Auth:       apphttp.NewAuthenticator(cfg.JWTSecret),
		Logger:     logger,
	}

	if cfg.BankEnabled() {
		client := bank.NewClient(bank.BaseURLForEnv(cfg.PlaidEnv), cfg.PlaidClientID, cfg.PlaidSecret)
		deps.BankClient = client
		deps.Syncer = bank.NewSyncer(client, importer)
		logger.Info("Bank provider configured", "env", cfg.PlaidEnv)
	} else {
		logger.Info("Bank sync disabled, no provider credentials")
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		deps.Publisher = amqpClient
		logger.Info("Bank syncs will run on the worker", "queue", cfg.AMQPQueue)
	}

	adv, err := advisor.New(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize advisor", "error", err)
		os.Exit(1)
	}
	deps.Advisor = adv
	if cfg.GeminiAPIKey == "" {
		logger.Info("Advisor running in basic mode, no API key")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetbuddy server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received")

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
