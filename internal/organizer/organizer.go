// Package organizer moves classified files into their category folders, stages
// files that need manual review, and keeps the move log used for rollback.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/rules"
	"github.com/Veraticus/librarian/internal/service"
	"github.com/google/uuid"
)

const rejectedReason = "suggestion rejected"

// Organizer applies classification decisions to the filesystem.
type Organizer struct {
	store  service.Storage
	engine *rules.Engine
	clock  service.Clock
	newID  func() string
	retry  common.RetryOptions
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithClock overrides the clock used to timestamp moves.
func WithClock(clock service.Clock) Option {
	return func(o *Organizer) {
		o.clock = clock
	}
}

// WithIDGenerator overrides batch and move id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Organizer) {
		o.newID = fn
	}
}

// WithRetryOptions sets the retry policy for filesystem moves.
func WithRetryOptions(opts common.RetryOptions) Option {
	return func(o *Organizer) {
		o.retry = opts
	}
}

// New creates an Organizer.
func New(store service.Storage, engine *rules.Engine, opts ...Option) *Organizer {
	o := &Organizer{
		store:  store,
		engine: engine,
		clock:  service.SystemClock{},
		newID:  uuid.NewString,
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ApplyOptions controls a single Apply call.
type ApplyOptions struct {
	// OnProgress is called after each decision is handled.
	OnProgress func(model.Decision)
	DryRun     bool
}

// Planned is a decision together with the concrete path the file would land on.
type Planned struct {
	Target   string
	Decision model.Decision
}

// Failure is a decision that could not be applied.
type Failure struct {
	Err  error
	Path string
}

// Result describes the outcome of Apply.
type Result struct {
	BatchID     string
	Planned     []Planned
	Moves       []model.MoveRecord
	Suggestions []model.Suggestion
	Failures    []Failure
	DryRun      bool
}

// Summary counts the planned decisions.
func (r *Result) Summary() Summary {
	decisions := make([]model.Decision, 0, len(r.Planned))
	for _, p := range r.Planned {
		decisions = append(decisions, p.Decision)
	}
	return Summarize(decisions)
}

// Plan classifies files with the organizer's engine.
func (o *Organizer) Plan(ctx context.Context, files []model.FileRecord, workers int) ([]model.Decision, error) {
	return o.engine.ClassifyAll(ctx, files, workers)
}

// Apply carries out decisions as one batch. AUTO_MOVE files go to their category
// folder, MANUAL_REVIEW files go to staging, and SUGGEST files are recorded as
// pending suggestions without moving. A dry run touches neither the filesystem
// nor storage. Per-file filesystem failures are collected in the result; storage
// failures abort the batch.
func (o *Organizer) Apply(ctx context.Context, decisions []model.Decision, opts ApplyOptions) (*Result, error) {
	if len(decisions) == 0 {
		return nil, common.ErrNothingToOrganize
	}

	result := &Result{
		BatchID: o.newID(),
		DryRun:  opts.DryRun,
		Planned: make([]Planned, 0, len(decisions)),
	}

	for _, d := range decisions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		target := plannedTarget(d)
		result.Planned = append(result.Planned, Planned{Decision: d, Target: target})

		if !opts.DryRun {
			if err := o.apply(ctx, result, d); err != nil {
				return result, err
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(d)
		}
	}

	if !opts.DryRun {
		slog.Info("Applied organize batch",
			"batch", result.BatchID,
			"moved", len(result.Moves),
			"suggested", len(result.Suggestions),
			"failed", len(result.Failures))
	}

	return result, nil
}

func (o *Organizer) apply(ctx context.Context, result *Result, d model.Decision) error {
	if d.File.Path == "" {
		result.Failures = append(result.Failures, Failure{Path: d.File.Path, Err: errors.New("empty path")})
		return nil
	}

	switch d.Action {
	case model.ActionSuggest:
		suggestion := model.Suggestion{
			Path:        d.File.Path,
			Category:    d.Category,
			Destination: d.Destination,
			RuleName:    d.RuleName(),
			BatchID:     result.BatchID,
			CreatedAt:   o.clock.Now(),
		}
		if err := o.store.SaveSuggestion(ctx, &suggestion); err != nil {
			return fmt.Errorf("failed to save suggestion for %s: %w", d.File.Path, err)
		}
		result.Suggestions = append(result.Suggestions, suggestion)
		return nil

	case model.ActionAutoMove:
		move, err := o.move(ctx, result.BatchID, d.File.Path, d.Destination, d.Category, model.ActionAutoMove, model.FileMoved)
		if err != nil {
			return o.fail(result, d.File.Path, err)
		}
		result.Moves = append(result.Moves, *move)
		return nil

	default:
		move, err := o.stage(ctx, result.BatchID, d.File.Path, d.Category, d.Reason)
		if err != nil {
			return o.fail(result, d.File.Path, err)
		}
		result.Moves = append(result.Moves, *move)
		return nil
	}
}

// fail records filesystem failures on the result and passes storage failures through.
func (o *Organizer) fail(result *Result, path string, err error) error {
	var fsErr *fsError
	if errors.As(err, &fsErr) {
		slog.Warn("Failed to move file", "path", path, "error", fsErr.err)
		result.Failures = append(result.Failures, Failure{Path: path, Err: fsErr.err})
		return nil
	}
	return err
}

// fsError marks errors that came from the filesystem rather than storage.
type fsError struct {
	err error
}

func (e *fsError) Error() string { return e.err.Error() }
func (e *fsError) Unwrap() error { return e.err }

// move relocates src into dir and records the move.
func (o *Organizer) move(ctx context.Context, batchID, src, dir, category string, action model.Action, status model.FileStatus) (*model.MoveRecord, error) {
	dest, err := o.relocate(ctx, src, filepath.Join(dir, filepath.Base(src)))
	if err != nil {
		return nil, &fsError{err: err}
	}

	record := &model.MoveRecord{
		ID:          o.newID(),
		BatchID:     batchID,
		Source:      src,
		Destination: dest,
		Category:    category,
		Action:      action,
		MovedAt:     o.clock.Now(),
	}
	if err := o.store.RecordMove(ctx, record, status); err != nil {
		return nil, fmt.Errorf("failed to record move of %s: %w", src, err)
	}
	return record, nil
}

// stage moves src into the staging area and records the staging row.
func (o *Organizer) stage(ctx context.Context, batchID, src, category, reason string) (*model.MoveRecord, error) {
	staging := o.engine.Layout().StagingDir
	record, err := o.move(ctx, batchID, src, staging, category, model.ActionManualReview, model.FileStaged)
	if err != nil {
		return nil, err
	}

	staged := &model.StagedFile{
		Path:         record.Destination,
		OriginalPath: src,
		Reason:       reason,
		BatchID:      batchID,
		StagedAt:     record.MovedAt,
	}
	if err := o.store.StageFile(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", src, err)
	}
	return record, nil
}

// relocate moves src to a free path derived from dest, retrying transient errors.
func (o *Organizer) relocate(ctx context.Context, src, dest string) (string, error) {
	var final string
	err := common.WithRetry(ctx, func() error {
		target, err := uniquePath(dest)
		if err != nil {
			return err
		}
		if err := moveFile(src, target); err != nil {
			return err
		}
		final = target
		return nil
	}, o.retry)
	return final, err
}

// AcceptSuggestion moves a suggested file into its proposed folder and resolves the
// suggestion.
func (o *Organizer) AcceptSuggestion(ctx context.Context, batchID string, s model.Suggestion) (*model.MoveRecord, error) {
	record, err := o.move(ctx, batchID, s.Path, s.Destination, s.Category, model.ActionSuggest, model.FileMoved)
	if err != nil {
		return nil, unwrapFS(err)
	}
	if err := o.store.ResolveSuggestion(ctx, s.Path, true, o.clock.Now()); err != nil {
		return record, fmt.Errorf("failed to resolve suggestion: %w", err)
	}
	return record, nil
}

// RejectSuggestion sends a suggested file to staging and resolves the suggestion.
func (o *Organizer) RejectSuggestion(ctx context.Context, batchID string, s model.Suggestion) (*model.MoveRecord, error) {
	record, err := o.stage(ctx, batchID, s.Path, s.Category, rejectedReason)
	if err != nil {
		return nil, unwrapFS(err)
	}
	if err := o.store.ResolveSuggestion(ctx, s.Path, false, o.clock.Now()); err != nil {
		return record, fmt.Errorf("failed to resolve suggestion: %w", err)
	}
	return record, nil
}

// NewBatchID returns a fresh batch id for callers that group moves themselves.
func (o *Organizer) NewBatchID() string {
	return o.newID()
}

func unwrapFS(err error) error {
	var fsErr *fsError
	if errors.As(err, &fsErr) {
		return fsErr.err
	}
	return err
}

// plannedTarget is the path a decision points at before collision handling.
func plannedTarget(d model.Decision) string {
	if d.Destination == "" || d.File.Path == "" {
		return d.Destination
	}
	return filepath.Join(d.Destination, filepath.Base(d.File.Path))
}

// RollbackResult describes the outcome of Rollback.
type RollbackResult struct {
	BatchID  string
	Restored []model.MoveRecord
	Failures []Failure
}

// Rollback undoes the moves of a batch in reverse order. An empty batch id means
// the most recent batch that has not been rolled back.
func (o *Organizer) Rollback(ctx context.Context, batchID string) (*RollbackResult, error) {
	if batchID == "" {
		latest, err := o.store.GetLatestBatchID(ctx)
		if err != nil {
			return nil, err
		}
		batchID = latest
	}

	moves, err := o.store.GetMovesByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, common.ErrNoBatch)
	}

	pending := make([]model.MoveRecord, 0, len(moves))
	for _, m := range moves {
		if !m.RolledBack() {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, common.ErrAlreadyRolledBack)
	}

	result := &RollbackResult{BatchID: batchID}
	for i := len(pending) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		m := pending[i]
		if err := o.undo(ctx, m); err != nil {
			var fsErr *fsError
			if !errors.As(err, &fsErr) {
				return result, err
			}
			slog.Warn("Failed to restore file", "path", m.Destination, "error", fsErr.err)
			result.Failures = append(result.Failures, Failure{Path: m.Destination, Err: fsErr.err})
			continue
		}
		result.Restored = append(result.Restored, m)
	}

	slog.Info("Rolled back organize batch",
		"batch", batchID,
		"restored", len(result.Restored),
		"failed", len(result.Failures))

	return result, nil
}

func (o *Organizer) undo(ctx context.Context, m model.MoveRecord) error {
	if err := common.WithRetry(ctx, func() error {
		return moveFile(m.Destination, m.Source)
	}, o.retry); err != nil {
		return &fsError{err: err}
	}

	now := o.clock.Now()
	if err := o.store.MarkMoveRolledBack(ctx, m.ID, now); err != nil {
		return fmt.Errorf("failed to mark move %s rolled back: %w", m.ID, err)
	}

	switch m.Action {
	case model.ActionManualReview:
		if err := o.store.UnstageFile(ctx, m.Destination); err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to unstage %s: %w", m.Destination, err)
		}
	case model.ActionSuggest:
		err := o.store.ReopenSuggestion(ctx, m.Source)
		if errors.Is(err, common.ErrNotFound) {
			// Only the move log survives; rebuild what it knows
			err = o.store.SaveSuggestion(ctx, &model.Suggestion{
				Path:        m.Source,
				Category:    m.Category,
				Destination: filepath.Dir(m.Destination),
				BatchID:     m.BatchID,
				CreatedAt:   now,
			})
		}
		if err != nil {
			return fmt.Errorf("failed to reopen suggestion for %s: %w", m.Source, err)
		}
	}

	return nil
}
