// Package service defines the interfaces shared between the librarian components.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/librarian/internal/model"
)

// Storage defines the contract for the persistence layer.
type Storage interface {
	// File index operations
	SaveFiles(ctx context.Context, files []model.FileRecord, indexedAt time.Time) error
	SaveDecisions(ctx context.Context, decisions []model.Decision) error
	GetFile(ctx context.Context, path string) (*model.IndexedFile, error)
	ListFiles(ctx context.Context, status model.FileStatus) ([]model.IndexedFile, error)
	SetFileStatus(ctx context.Context, path string, status model.FileStatus) error
	MarkMissing(ctx context.Context, seen []string) (int, error)

	// Move log operations
	RecordMove(ctx context.Context, move *model.MoveRecord, status model.FileStatus) error
	GetMovesByBatch(ctx context.Context, batchID string) ([]model.MoveRecord, error)
	GetLatestBatchID(ctx context.Context) (string, error)
	MarkMoveRolledBack(ctx context.Context, moveID string, at time.Time) error

	// Staging operations
	StageFile(ctx context.Context, staged *model.StagedFile) error
	UnstageFile(ctx context.Context, path string) error
	GetStaged(ctx context.Context, path string) (*model.StagedFile, error)
	ListStaged(ctx context.Context) ([]model.StagedFile, error)

	// Suggestion operations
	SaveSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	ListPendingSuggestions(ctx context.Context) ([]model.Suggestion, error)
	ResolveSuggestion(ctx context.Context, path string, accepted bool, at time.Time) error
	ReopenSuggestion(ctx context.Context, path string) error

	// Index runs and statistics
	StartIndexRun(ctx context.Context, at time.Time) (int64, error)
	FinishIndexRun(ctx context.Context, id int64, at time.Time, seen, readable int) error
	AbortIndexRun(ctx context.Context, id int64) error
	GetLatestIndexRun(ctx context.Context) (*model.IndexRun, error)
	GetStats(ctx context.Context, now time.Time, overdueDays int) (*model.Stats, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Clock supplies the current time so that time-dependent logic can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
