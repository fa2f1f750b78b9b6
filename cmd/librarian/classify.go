package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Show how files would be classified",
		Long: `Classify the given files against the rules and print each decision without
moving anything or touching the index.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("format", "text", "output format (text, json)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: unknown format %q", common.ErrInvalidConfig, format)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		paths = append(paths, abs)
	}

	decisions, _, err := a.indexer.Classify(ctx, paths)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		return fmt.Errorf("none of the given files could be read")
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(decisions)
	}
	return writeDecisions(cmd.OutOrStdout(), decisions)
}

func writeDecisions(w io.Writer, decisions []model.Decision) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "FILE\tACTION\tCATEGORY\tRULE\tREASON"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range decisions {
		category := d.Category
		if category == "" && len(d.Candidates) > 1 {
			category = strings.Join(d.Candidates, "|")
		}
		if category == "" {
			category = "-"
		}
		rule := d.RuleName()
		if rule == "" {
			rule = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.File.Name(), d.Action, category, rule, d.Reason); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return tw.Flush()
}
