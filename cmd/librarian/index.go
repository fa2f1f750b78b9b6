package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/librarian/internal/indexer"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/organizer"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the content index",
		Long: `Scan the library roots, read a content snippet from every text file, classify
each file against the rules and store the result.

Files that vanished since the last index are marked missing. Files whose content
cannot be read are classified by name only.`,
		Args: cobra.NoArgs,
		RunE: runIndex,
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	return writeIndexSummary(cmd.OutOrStdout(), result)
}

func writeIndexSummary(w io.Writer, result *indexer.Result) error {
	summary := organizer.Summarize(result.Decisions)
	unreadable := len(result.Files) - result.Readable

	_, err := fmt.Fprintf(w, `Index rebuilt
Files indexed: %d
Content readable: %d
Filename only: %d
Missing since last index: %d
Auto-move: %d
Suggest: %d
Manual review: %d
Duration: %s
`,
		len(result.Files),
		result.Readable,
		unreadable,
		result.Missing,
		summary.Count(model.ActionAutoMove),
		summary.Count(model.ActionSuggest),
		summary.Count(model.ActionManualReview),
		result.Duration.Round(time.Millisecond))
	return err
}
