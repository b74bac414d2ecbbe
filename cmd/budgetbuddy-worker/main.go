package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/bank"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/ingest"
	applog "budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting budgetbuddy-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if !cfg.BankEnabled() {
		logger.Error("Bank provider credentials are required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	datePolicy := ingest.DefaultToNow
	if cfg.OnInvalidDate == "reject" {
		datePolicy = ingest.RejectRow
	}
	importer := ingest.NewImporter(repo, ingest.NewNormalizer(datePolicy))

	bankClient := bank.NewClient(bank.BaseURLForEnv(cfg.PlaidEnv), cfg.PlaidClientID, cfg.PlaidSecret)
	syncer := bank.NewSyncer(bankClient, importer)
	syncWorker := worker.NewSyncWorker(syncer)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming bank sync jobs", "queue", cfg.AMQPQueue, "env", cfg.PlaidEnv)
	if err := amqpClient.ConsumeBankSync(ctx, syncWorker.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
