package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/organizer"
	"github.com/Veraticus/librarian/internal/watch"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Classify new files as they arrive",
		Long: `Watch the library roots and their subfolders and classify each new file once
it stops changing. Hidden folders, the staging area and the destination tree are
not watched. With --apply the decision is carried out immediately, each file as its own
batch; otherwise decisions are only printed. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().Bool("apply", false, "move files as they are classified")
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a file is classified")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	apply, _ := cmd.Flags().GetBool("apply")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var mu sync.Mutex
	handler := func(ctx context.Context, path string) {
		mu.Lock()
		defer mu.Unlock()

		decisions, _, err := a.indexer.Classify(ctx, []string{path})
		if err != nil || len(decisions) == 0 {
			slog.Warn("Failed to classify file", "path", path, "error", err)
			return
		}
		d := decisions[0]
		fmt.Fprintf(out, "%s %s %s (%s)\n", time.Now().Format("15:04:05"),
			cli.ActionStyle(string(d.Action)).Render(string(d.Action)), d.File.Name(), d.Reason)

		if !apply {
			return
		}
		result, err := a.organizer.Apply(ctx, []model.Decision{d}, organizer.ApplyOptions{})
		if err != nil {
			slog.Error("Failed to organize file", "path", path, "error", err)
			return
		}
		for _, f := range result.Failures {
			slog.Warn("Failed to move file", "path", f.Path, "error", f.Err)
		}
	}

	w, err := watch.New(watch.Options{
		Dirs:     a.cfg.Roots,
		Debounce: debounce,
		Filter:   func(path string) bool { return !a.scanner.Excluded(path) },
		SkipDir:  a.scanner.SkipDir,
	}, handler)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Watching %d directories. Press Ctrl-C to stop.", len(w.Watching()))))

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}
