package main

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cli"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/sheets/google"
	"kakeibo/internal/storage"
	"kakeibo/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting kakeibo-worker")

	cfg := cli.LoadAndValidateConfig(logger, true)

	// The worker reads the same database the web process writes.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	exporter, err := google.NewFromCredentialsFile(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.GoogleServiceAccountFile)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	syncWorker := worker.NewSyncWorker(repo, exporter, m, logger.Logger)

	if cfg.SyncOnStart {
		n, err := syncWorker.Resync(ctx)
		if err != nil {
			// Events still flow; the next resync catches up.
			logger.Error("Startup resync failed", "error", err, "exported", n)
		} else {
			logger.Info("Startup resync complete", "exported", n)
		}
	}

	logger.Info("Consuming expense events", "queue", cfg.AMQPQueue)
	if err := client.Consume(ctx, syncWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
