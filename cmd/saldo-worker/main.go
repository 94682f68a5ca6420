package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/cli"
	"saldo/internal/config"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
	"saldo/internal/worker"
)

// source is what the worker reads accounts from.
type source interface {
	worker.AccountSource
	Close() error
}

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("SALDO_LOG_LEVEL"), os.Getenv("SALDO_LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Starting saldo-worker", "backend", cfg.Storage.Backend)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	src, err := openSource(cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	defer src.Close()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		CredentialsJSON: cfg.Sheets.CredentialsJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.Sheets.SpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(src, mirror)

	// Changes made while the worker was down have no message waiting.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeAccountSync(gctx, syncWorker.HandleSyncMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func openSource(cfg *config.Config, logger *slog.Logger) (source, error) {
	switch cfg.Storage.Backend {
	case "memory":
		if cfg.Storage.MemoryFile == "" {
			return nil, errors.New("the worker needs storage.memory_file with the memory backend")
		}
		repo, err := memory.NewFromFile(cfg.Storage.MemoryFile)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		repo, err := storage.NewSQLiteRepository(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}
