package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensio/internal/amqp"
	"expensio/internal/config"
	"expensio/internal/export"
	applog "expensio/internal/log"
	"expensio/internal/storage"
	"expensio/internal/worker"
)

const reconnectDelay = 5 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting expensio-worker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err,
			"path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal, err := export.NewSheetsJournalFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets journal", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets journal initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(store, journal)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			if err := consume(ctx, cfg, exportWorker); err != nil {
				logger.Error("Consumption stopped, reconnecting",
					applog.FieldError, err,
					"delay", reconnectDelay)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// consume dials the broker and processes events until the connection drops
// or the context is cancelled. The caller handles reconnecting.
func consume(ctx context.Context, cfg *config.Config, w *worker.ExportWorker) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.ConsumeExpenseEvents(ctx, func(msg *amqp.ExpenseEventMessage) error {
		return w.HandleEvent(ctx, msg)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
