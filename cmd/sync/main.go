package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	syncapp "github.com/cartbridge/sync/internal/application/sync"
	"github.com/cartbridge/sync/internal/infrastructure/config"
	"github.com/cartbridge/sync/internal/infrastructure/legacy"
	"github.com/cartbridge/sync/internal/infrastructure/logger"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting catalog sync",
		zap.String("platform", cfg.Platform.BaseURL),
		zap.String("legacy_db", cfg.Legacy.DBName),
		zap.Int("batch_size", cfg.Sync.BatchSize),
	)

	// Stop cleanly between products on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Sync run failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// Connect to the legacy source database
	store, err := legacy.Open(&cfg.Legacy, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing source database", zap.Error(err))
		}
	}()

	// Both connectivity checks run before any product is touched so a
	// misconfigured run fails without partial writes.
	if err := store.Ping(ctx); err != nil {
		return err
	}
	hasOptionSKU, err := store.DetectOptionSKUColumn(ctx)
	if err != nil {
		return err
	}
	log.Info("Source database connected", zap.Bool("option_sku_column", hasOptionSKU))

	client, err := platform.NewClient(&platform.Config{
		BaseURL:        cfg.Platform.BaseURL,
		Token:          cfg.Platform.Token,
		TimeoutSeconds: cfg.Platform.TimeoutSeconds,
	})
	if err != nil {
		return err
	}

	runner := syncapp.NewRunner(
		store,
		client,
		cfg.Sync.CurrencyCode,
		cfg.Sync.StockLocationID,
		cfg.Legacy.ImageBaseURL,
		cfg.Sync.BatchSize,
		log,
	)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("Catalog sync completed",
		zap.Int("total", result.Total),
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	for _, f := range result.Failures {
		log.Warn("Product left unsynced",
			zap.Int("source_id", f.SourceID),
			zap.String("name", f.Name),
			zap.Error(f.Err),
		)
	}
	return nil
}
