package main

import (
	"fmt"

	"github.com/Veraticus/librarian/internal/report"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [batch]",
		Short: "Show an organization report",
		Long: `Render a report of an organize batch (the latest one by default) together with
the staging area and pending suggestions. Use --markdown for the raw markdown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReport,
	}

	cmd.Flags().Bool("markdown", false, "print raw markdown instead of rendering it")
	cmd.Flags().Int("width", 100, "wrap width for rendered output")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	raw, _ := cmd.Flags().GetBool("markdown")
	width, _ := cmd.Flags().GetInt("width")

	batchID := ""
	if len(args) == 1 {
		batchID = args[0]
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

	data, err := report.Build(ctx, store, batchID, clockNow())
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	var out string
	if raw {
		out, err = report.Markdown(data)
	} else {
		out, err = report.Render(data, width)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
