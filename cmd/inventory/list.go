package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/storage"
)

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored items and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the items as JSON")
	return cmd
}

// runList reads the stored collection without starting a writer.
func runList(ctx context.Context, out io.Writer, asJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := initLogger(cfg.LogLevel, "stderr")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	kv, err := storage.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		_ = kv.Close()
	}()

	items := storage.NewAdapter(kv, cfg.StorageKey, logger).Load(ctx)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	_, err = fmt.Fprintln(out, renderTable(items))
	return err
}

func renderTable(items []model.Item) string {
	if len(items) == 0 {
		return "No items in inventory yet."
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "QUANTITY", "PRICE")
	for _, item := range items {
		t.Row(item.ID, item.Name, strconv.Itoa(item.Quantity), fmt.Sprintf("$%.2f", item.Price))
	}
	return t.Render()
}
