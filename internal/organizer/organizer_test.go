package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/rules"
	"github.com/Veraticus/librarian/internal/storage"
	"github.com/Veraticus/librarian/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *storage.SQLiteStorage
	lib   testutil.Library
	clock *testutil.FixedClock
	org   *Organizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	lib := testutil.NewLibrary(t)
	engine, err := rules.NewEngine(rules.DefaultRuleSet(), rules.Layout{
		DestinationRoot: lib.Destination,
		StagingDir:      lib.Staging,
	})
	require.NoError(t, err)

	clock := &testutil.FixedClock{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	ids := 0
	store := testutil.SetupTestDB(t)
	org := New(store, engine,
		WithClock(clock),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	)

	return &fixture{store: store, lib: lib, clock: clock, org: org}
}

func (f *fixture) decisions(t *testing.T, paths ...string) []model.Decision {
	t.Helper()

	files := make([]model.FileRecord, 0, len(paths))
	for _, p := range paths {
		files = append(files, model.FileRecord{Path: p, Extension: model.ExtensionOf(p)})
	}
	decisions, err := f.org.Plan(context.Background(), files, 2)
	require.NoError(t, err)
	return decisions
}

func TestApply_RoutesByAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice := f.lib.AddFile(t, "invoice_march.pdf", "pdf")
	draft := f.lib.AddFile(t, "episode_4_draft.txt", "draft")
	unknown := f.lib.AddFile(t, "notes.xyz", "misc")

	result, err := f.org.Apply(ctx, f.decisions(t, invoice, draft, unknown), ApplyOptions{})
	require.NoError(t, err)

	assert.Equal(t, "id-1", result.BatchID)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Moves, 2)
	require.Len(t, result.Suggestions, 1)

	movedInvoice := filepath.Join(f.lib.Destination, "Financial", "invoice_march.pdf")
	assert.FileExists(t, movedInvoice)
	assert.NoFileExists(t, invoice)

	// Suggestions leave the file in place
	assert.FileExists(t, draft)
	pending, err := f.store.ListPendingSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, draft, pending[0].Path)
	assert.Equal(t, "Creative", pending[0].Category)

	stagedPath := filepath.Join(f.lib.Staging, "notes.xyz")
	assert.FileExists(t, stagedPath)
	staged, err := f.store.GetStaged(ctx, stagedPath)
	require.NoError(t, err)
	assert.Equal(t, unknown, staged.OriginalPath)
	assert.Equal(t, "no rule matched", staged.Reason)

	moves, err := f.store.GetMovesByBatch(ctx, result.BatchID)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, model.ActionAutoMove, moves[0].Action)
	assert.Equal(t, model.ActionManualReview, moves[1].Action)
}

func TestApply_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice := f.lib.AddFile(t, "invoice.pdf", "pdf")
	unknown := f.lib.AddFile(t, "notes.xyz", "misc")

	var progressed int
	result, err := f.org.Apply(ctx, f.decisions(t, invoice, unknown), ApplyOptions{
		DryRun:     true,
		OnProgress: func(model.Decision) { progressed++ },
	})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, progressed)
	assert.Empty(t, result.Moves)
	require.Len(t, result.Planned, 2)
	assert.Equal(t, filepath.Join(f.lib.Destination, "Financial", "invoice.pdf"), result.Planned[0].Target)
	assert.Equal(t, filepath.Join(f.lib.Staging, "notes.xyz"), result.Planned[1].Target)

	assert.FileExists(t, invoice)
	assert.FileExists(t, unknown)

	_, err = f.store.GetLatestBatchID(ctx)
	assert.ErrorIs(t, err, common.ErrNoBatch)
	staged, err := f.store.ListStaged(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	summary := result.Summary()
	assert.Equal(t, 1, summary.Count(model.ActionAutoMove))
	assert.Equal(t, 1, summary.Count(model.ActionManualReview))
	assert.Equal(t, 1, summary.Unmatched)
}

func TestApply_NothingToOrganize(t *testing.T) {
	f := newFixture(t)
	_, err := f.org.Apply(context.Background(), nil, ApplyOptions{})
	assert.ErrorIs(t, err, common.ErrNothingToOrganize)
}

func TestApply_CollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)

	existing := filepath.Join(f.lib.Destination, "Financial", "receipt.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o750))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o600))

	receipt := f.lib.AddFile(t, "receipt.pdf", "new")
	result, err := f.org.Apply(context.Background(), f.decisions(t, receipt), ApplyOptions{})
	require.NoError(t, err)
	require.Len(t, result.Moves, 1)

	want := filepath.Join(f.lib.Destination, "Financial", "receipt (1).pdf")
	assert.Equal(t, want, result.Moves[0].Destination)

	data, err := os.ReadFile(want) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	old, err := os.ReadFile(existing) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestApply_MissingSourceIsFailure(t *testing.T) {
	f := newFixture(t)
	gone := filepath.Join(f.lib.Inbox, "invoice_gone.pdf")

	result, err := f.org.Apply(context.Background(), f.decisions(t, gone), ApplyOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.Moves)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, gone, result.Failures[0].Path)
	assert.ErrorIs(t, result.Failures[0].Err, common.ErrSourceMissing)
}

func TestApply_CancelledContext(t *testing.T) {
	f := newFixture(t)
	invoice := f.lib.AddFile(t, "invoice.pdf", "pdf")
	decisions := f.decisions(t, invoice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.org.Apply(ctx, decisions, ApplyOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, invoice)
}

func TestRollback_RestoresLatestBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice := f.lib.AddFile(t, "invoice.pdf", "pdf")
	movie := f.lib.AddFile(t, "holiday.mp4", "video")
	unknown := f.lib.AddFile(t, "notes.xyz", "misc")

	applied, err := f.org.Apply(ctx, f.decisions(t, invoice, movie, unknown), ApplyOptions{})
	require.NoError(t, err)
	require.Len(t, applied.Moves, 3)

	f.clock.Advance(time.Hour)
	result, err := f.org.Rollback(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, applied.BatchID, result.BatchID)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Restored, 3)
	// Reverse order
	assert.Equal(t, unknown, result.Restored[0].Source)
	assert.Equal(t, invoice, result.Restored[2].Source)

	for _, p := range []string{invoice, movie, unknown} {
		assert.FileExists(t, p)
	}

	staged, err := f.store.ListStaged(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	_, err = f.org.Rollback(ctx, applied.BatchID)
	assert.ErrorIs(t, err, common.ErrAlreadyRolledBack)

	_, err = f.org.Rollback(ctx, "")
	assert.ErrorIs(t, err, common.ErrNoBatch)
}

func TestRollback_DoesNotOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invoice := f.lib.AddFile(t, "invoice.pdf", "first")
	applied, err := f.org.Apply(ctx, f.decisions(t, invoice), ApplyOptions{})
	require.NoError(t, err)

	// A new file now occupies the original path
	f.lib.AddFile(t, "invoice.pdf", "second")

	result, err := f.org.Rollback(ctx, applied.BatchID)
	require.NoError(t, err)
	assert.Empty(t, result.Restored)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, common.ErrDestinationExists)

	data, err := os.ReadFile(invoice) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRollback_UnknownBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.org.Rollback(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNoBatch)
}

func TestSuggestions_AcceptAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.lib.AddFile(t, "chapter_draft.txt", "a")
	episode := f.lib.AddFile(t, "episode_2.txt", "b")
	_, err := f.org.Apply(ctx, f.decisions(t, draft, episode), ApplyOptions{})
	require.NoError(t, err)

	pending, err := f.store.ListPendingSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	batch := f.org.NewBatchID()
	accepted, err := f.org.AcceptSuggestion(ctx, batch, pending[0])
	require.NoError(t, err)
	assert.Equal(t, model.ActionSuggest, accepted.Action)
	assert.FileExists(t, filepath.Join(f.lib.Destination, "Creative", filepath.Base(pending[0].Path)))

	rejected, err := f.org.RejectSuggestion(ctx, batch, pending[1])
	require.NoError(t, err)
	assert.Equal(t, model.ActionManualReview, rejected.Action)

	staged, err := f.store.GetStaged(ctx, rejected.Destination)
	require.NoError(t, err)
	assert.Equal(t, "suggestion rejected", staged.Reason)

	pending, err = f.store.ListPendingSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Rolling back the review batch reopens the accepted suggestion
	_, err = f.org.Rollback(ctx, batch)
	require.NoError(t, err)
	pending, err = f.store.ListPendingSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Creative", pending[0].Category)
	assert.Equal(t, "creative-drafts", pending[0].RuleName)
	assert.Equal(t, filepath.Join(f.lib.Destination, "Creative"), pending[0].Destination)
}

func TestSummarize(t *testing.T) {
	rule := &model.Rule{Name: "r"}
	decisions := []model.Decision{
		{Action: model.ActionAutoMove, Category: "Financial", Rule: rule, Candidates: []string{"Financial"}},
		{Action: model.ActionAutoMove, Category: "Financial", Rule: rule, Candidates: []string{"Financial"}},
		{Action: model.ActionSuggest, Category: "Creative", Rule: rule, Candidates: []string{"Creative"}},
		{Action: model.ActionManualReview, Rule: rule, Candidates: []string{"Financial", "Creative"}},
		{Action: model.ActionManualReview},
	}

	s := Summarize(decisions)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Count(model.ActionAutoMove))
	assert.Equal(t, 1, s.Count(model.ActionSuggest))
	assert.Equal(t, 2, s.Count(model.ActionManualReview))
	assert.Equal(t, 1, s.Ambiguous)
	assert.Equal(t, 1, s.Unmatched)
	assert.Equal(t, []CategoryCount{{Category: "Financial", Count: 2}, {Category: "Creative", Count: 1}}, s.Categories)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report.txt")

	got, err := uniquePath(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	require.NoError(t, os.WriteFile(base, nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report (1).txt"), nil, 0o600))

	got, err = uniquePath(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report (2).txt"), got)
}
