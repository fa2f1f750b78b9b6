package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func stagingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect the staging area",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List files waiting for manual review",
		Args:  cobra.NoArgs,
		RunE:  runStagingList,
	})

	return cmd
}

func runStagingList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	staged, err := store.ListStaged(ctx)
	if err != nil {
		return fmt.Errorf("failed to list staging: %w", err)
	}
	if len(staged) == 0 {
		_, err = fmt.Fprintln(out, cli.FormatInfo("Nothing is waiting in staging"))
		return err
	}

	now := clockNow()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("FILE"),
		cli.HeaderStyle.Render("STAGED"),
		cli.HeaderStyle.Render("REASON"),
		cli.HeaderStyle.Render("FROM")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range staged {
		age := humanize.RelTime(s.StagedAt, now, "ago", "from now")
		if s.Age(now).Hours() > float64(cfg.OverdueDays*24) {
			age = cli.WarningStyle.Render(age + " (overdue)")
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			filepath.Base(s.Path), age, s.Reason, shortPath(filepath.Dir(s.OriginalPath))); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return tw.Flush()
}
