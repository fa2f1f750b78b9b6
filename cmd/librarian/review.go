package main

import (
	"fmt"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Confirm or reject pending suggestions",
		Long: `Walk through medium confidence suggestions one at a time. Accepting moves the
file into the suggested folder; rejecting sends it to staging. Quitting or
pressing Ctrl-C stops the review without error; decisions already made stay
applied and can be undone with 'librarian rollback'.`,
		Args: cobra.NoArgs,
		RunE: runReview,
	}
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.store.ListPendingSuggestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list suggestions: %w", err)
	}
	if len(pending) == 0 {
		_, err = fmt.Fprintln(out, cli.FormatInfo("No suggestions are waiting for confirmation"))
		return err
	}

	if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Reviewing %d suggestions", len(pending)))); err != nil {
		return err
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out)
	batchID := a.organizer.NewBatchID()
	accepted, rejected, skipped := 0, 0, 0

	for i, s := range pending {
		choice, err := prompter.ReviewSuggestion(ctx, s, i+1, len(pending))
		if cli.IsCancelled(err) {
			break
		}
		if err != nil {
			return err
		}

		switch choice {
		case cli.ChoiceAccept:
			move, err := a.organizer.AcceptSuggestion(ctx, batchID, s)
			if err != nil {
				fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", s.Path, err)))
				continue
			}
			accepted++
			fmt.Fprintln(out, cli.FormatSuccess("Moved to "+shortPath(move.Destination)))
		case cli.ChoiceReject:
			move, err := a.organizer.RejectSuggestion(ctx, batchID, s)
			if err != nil {
				fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", s.Path, err)))
				continue
			}
			rejected++
			fmt.Fprintln(out, cli.FormatSuccess("Staged at "+shortPath(move.Destination)))
		default:
			skipped++
		}
	}

	_, err = fmt.Fprintf(out, "\nAccepted: %d\nRejected: %d\nSkipped: %d\n", accepted, rejected, skipped)
	return err
}
