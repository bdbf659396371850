package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/handler"
	"github.com/vyrodovalexey/inventory-tracker/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory over HTTP and websocket",
		Long: `Serves the item collection as a JSON API under /api/v1/items, pushes
the full collection to /ws clients after every change, and exposes /health
and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe serves until SIGINT, SIGTERM or ctx cancellation, then shuts the
// server down and writes the pending snapshot.
func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.String("server_host", cfg.ServerHost),
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
	)

	authenticator, err := auth.New(auth.Settings{
		Mode:       cfg.AuthMode,
		BasicUsers: cfg.BasicAuthUsers,
		APIKeys:    cfg.APIKeys,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub := handler.NewHub(a.items, logger)
	a.items.OnChange(hub.Broadcast)

	srv := server.New(cfg, logger, a.items, hub, authenticator)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var serveErr error
	select {
	case serveErr = <-serverErrors:
		logger.Error("server error", zap.Error(serveErr))
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	if serveErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			serveErr = err
		}
	}

	if err := a.Close(); err != nil {
		logger.Error("final write failed", zap.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}

	logger.Info("server stopped")
	return serveErr
}
