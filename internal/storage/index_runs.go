package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
)

// StartIndexRun opens a new index run and returns its ID.
func (s *SQLiteStorage) StartIndexRun(ctx context.Context, at time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO index_runs (started_at) VALUES (?)`, at)
	if err != nil {
		return 0, fmt.Errorf("failed to start index run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get index run ID: %w", err)
	}
	return id, nil
}

// FinishIndexRun closes an index run with its totals.
func (s *SQLiteStorage) FinishIndexRun(ctx context.Context, id int64, at time.Time, seen, readable int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE index_runs SET finished_at = ?, files_seen = ?, files_readable = ? WHERE id = ?
	`, at, seen, readable, id)
	if err != nil {
		return fmt.Errorf("failed to finish index run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("index run %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// AbortIndexRun removes an index run that never finished.
func (s *SQLiteStorage) AbortIndexRun(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM index_runs WHERE id = ? AND finished_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to abort index run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("unfinished index run %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetLatestIndexRun returns the most recently finished index run.
func (s *SQLiteStorage) GetLatestIndexRun(ctx context.Context) (*model.IndexRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var run model.IndexRun
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, files_seen, files_readable
		FROM index_runs
		WHERE finished_at IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &finished, &run.FilesSeen, &run.FilesReadable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index run: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest index run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
