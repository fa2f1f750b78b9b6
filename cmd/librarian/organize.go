package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/organizer"
	"github.com/spf13/cobra"
)

func organizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Move files into their category folders",
		Long: `Classify every file in the library roots and act on the result:

  HIGH confidence     moved into the category folder
  MEDIUM confidence   recorded as a suggestion (see 'librarian review')
  LOW or no match     moved into the staging area for manual review

Use --dry-run to preview the decisions without moving anything. Every move is
logged; undo the latest batch with 'librarian rollback'.`,
		Args: cobra.NoArgs,
		RunE: runOrganize,
	}

	cmd.Flags().Bool("dry-run", false, "Preview decisions without moving files")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runOrganize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		preview, err := a.indexer.Preview(ctx)
		if err != nil {
			return err
		}
		result, err := a.organizer.Apply(ctx, preview.Decisions, organizer.ApplyOptions{DryRun: true})
		if errors.Is(err, common.ErrNothingToOrganize) {
			_, err = fmt.Fprintln(out, "Nothing to organize")
			return err
		}
		if err != nil {
			return err
		}
		return writePlan(out, result)
	}

	indexed, err := a.indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	if len(indexed.Decisions) == 0 {
		_, err = fmt.Fprintln(out, cli.FormatInfo("Nothing to organize"))
		return err
	}

	summary := organizer.Summarize(indexed.Decisions)
	if !yes {
		if err := writeSummary(out, summary); err != nil {
			return err
		}
		question := fmt.Sprintf("Move %d files and record %d suggestions?",
			summary.Count(model.ActionAutoMove)+summary.Count(model.ActionManualReview),
			summary.Count(model.ActionSuggest))
		ok, err := cli.NewPrompter(cmd.InOrStdin(), out).Confirm(ctx, question)
		if err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintln(out, "Nothing moved")
			return err
		}
	}

	progress := cli.NewProgress(os.Stderr, len(indexed.Decisions), "Organizing files...")
	result, err := a.organizer.Apply(ctx, indexed.Decisions, organizer.ApplyOptions{
		OnProgress: func(model.Decision) { progress.Increment() },
	})
	progress.Finish()
	if err != nil {
		return fmt.Errorf("organize failed: %w", err)
	}

	return writeApplied(out, result)
}

func writeSummary(w io.Writer, s organizer.Summary) error {
	_, err := fmt.Fprintf(w, "Files: %d\nAuto-move: %d\nSuggest: %d\nManual review: %d\nAmbiguous: %d\nUnmatched: %d\n",
		s.Total,
		s.Count(model.ActionAutoMove),
		s.Count(model.ActionSuggest),
		s.Count(model.ActionManualReview),
		s.Ambiguous,
		s.Unmatched)
	return err
}

// writePlan prints the dry run preview: action counts followed by one row per file.
func writePlan(w io.Writer, result *organizer.Result) error {
	if _, err := fmt.Fprintln(w, "Dry run: no files were moved"); err != nil {
		return err
	}
	if err := writeSummary(w, result.Summary()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "FILE\tACTION\tCATEGORY\tDESTINATION\tREASON"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range result.Planned {
		category := p.Decision.Category
		if category == "" {
			category = "-"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(p.Decision.File.Path),
			p.Decision.Action,
			category,
			shortPath(p.Target),
			p.Decision.Reason); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return tw.Flush()
}

func writeApplied(w io.Writer, result *organizer.Result) error {
	moved, staged := 0, 0
	for _, m := range result.Moves {
		if m.Action == model.ActionManualReview {
			staged++
		} else {
			moved++
		}
	}

	lines := []string{
		cli.FormatSuccess(fmt.Sprintf("Batch %s", result.BatchID)),
		fmt.Sprintf("Moved: %d", moved),
		fmt.Sprintf("Staged: %d", staged),
		fmt.Sprintf("Suggested: %d", len(result.Suggestions)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for _, f := range result.Failures {
		fmt.Fprintln(os.Stderr, cli.FormatWarning(fmt.Sprintf("%s: %v", f.Path, f.Err)))
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d files could not be moved", len(result.Failures))
	}

	if len(result.Suggestions) > 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("Confirm suggestions with: librarian review"))
		return err
	}
	return nil
}
