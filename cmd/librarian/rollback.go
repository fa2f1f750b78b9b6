package main

import (
	"fmt"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/spf13/cobra"
)

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [batch]",
		Short: "Undo an organize batch",
		Long: `Move the files of a batch back to where they came from, newest move first.
Without a batch id the most recent batch that has not been rolled back is
undone. Files whose original location is occupied are left in place.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRollback,
	}
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	batchID := ""
	if len(args) == 1 {
		batchID = args[0]
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.organizer.Rollback(ctx, batchID)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Rolled back batch %s: %d files restored",
		result.BatchID, len(result.Restored)))); err != nil {
		return err
	}
	for _, f := range result.Failures {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%s: %v", f.Path, f.Err)))
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d files could not be restored", len(result.Failures))
	}
	return nil
}
