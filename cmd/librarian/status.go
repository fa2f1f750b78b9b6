package main

import (
	"fmt"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/status"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and staging statistics",
		Long: `Show how many files are indexed, how many are ready to organize, and how long
files have been waiting in staging.

Use --format json for a machine-readable record.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	cmd.Flags().String("format", "text", "output format (text, json)")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: unknown format %q", common.ErrInvalidConfig, format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.GetStats(ctx, clockNow(), cfg.OverdueDays)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	report := status.FromStats(*stats)
	if format == "json" {
		return status.RenderJSON(cmd.OutOrStdout(), report)
	}
	return status.RenderText(cmd.OutOrStdout(), report)
}
