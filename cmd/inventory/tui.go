package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
}

// runTUI runs the inventory screen until the user quits. Logs go to a file
// because the screen owns stdout.
func runTUI(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logPath := cfg.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logger, err := initLogger(cfg.LogLevel, logPath)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		tui.New(a.items, logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, runErr := program.Run()
	if runErr != nil {
		logger.Error("terminal UI stopped", zap.Error(runErr))
	}

	if err := a.Close(); err != nil {
		logger.Error("final write failed", zap.Error(err))
		if runErr == nil {
			return err
		}
	}
	return runErr
}
