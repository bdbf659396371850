package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/persist"
	"github.com/vyrodovalexey/inventory-tracker/internal/storage"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// app is the store with its persistence attached, shared by the TUI and the
// HTTP surface.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	kv     storage.KV
	writer *persist.Writer
	items  *store.ItemStore
}

// openApp opens the configured backend, loads the stored collection and
// starts persisting every change.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	kv, err := storage.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	adapter := storage.NewAdapter(kv, cfg.StorageKey, logger)
	writer := persist.NewWriter(adapter, logger, persist.Options{
		MaxRetries:    uint(cfg.PersistMaxRetries), //nolint:gosec // validated non-negative
		RetryInterval: cfg.PersistRetryInterval,
	})

	items := store.NewItemStore(logger)
	items.OnChange(writer.Enqueue)

	if err := items.Initialize(ctx, adapter); err != nil {
		_ = writer.Close(ctx)
		_ = kv.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	logger.Info("storage opened",
		zap.String("backend", cfg.StorageBackend),
		zap.String("path", cfg.StoragePath),
		zap.String("key", adapter.Key()),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		writer: writer,
		items:  items,
	}, nil
}

// Close writes the pending snapshot, bounded by the shutdown timeout, then
// closes the backend.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	werr := a.writer.Close(ctx)
	if werr != nil {
		werr = fmt.Errorf("flushing items: %w", werr)
	}
	kerr := a.kv.Close()
	if kerr != nil {
		kerr = fmt.Errorf("closing storage: %w", kerr)
	}
	return errors.Join(werr, kerr)
}
