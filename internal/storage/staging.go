package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
)

// StageFile records a file placed in the staging area.
func (s *SQLiteStorage) StageFile(ctx context.Context, staged *model.StagedFile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStaged(staged); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staging (path, original_path, reason, batch_id, staged_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			original_path = excluded.original_path,
			reason = excluded.reason,
			batch_id = excluded.batch_id,
			staged_at = excluded.staged_at
	`, staged.Path, staged.OriginalPath, staged.Reason, staged.BatchID, staged.StagedAt)
	if err != nil {
		return fmt.Errorf("failed to stage file: %w", err)
	}
	return nil
}

// UnstageFile removes a file from the staging table.
func (s *SQLiteStorage) UnstageFile(ctx context.Context, path string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(path, "path"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM staging WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to unstage file: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("staged file %s: %w", path, common.ErrNotFound)
	}
	return nil
}

// GetStaged returns a staged file by its staging path.
func (s *SQLiteStorage) GetStaged(ctx context.Context, path string) (*model.StagedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var f model.StagedFile
	var reason, batch sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT path, original_path, reason, batch_id, staged_at FROM staging WHERE path = ?
	`, path).Scan(&f.Path, &f.OriginalPath, &reason, &batch, &f.StagedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("staged file %s: %w", path, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staged file: %w", err)
	}
	f.Reason = reason.String
	f.BatchID = batch.String
	return &f, nil
}

// ListStaged returns staged files, oldest first.
func (s *SQLiteStorage) ListStaged(ctx context.Context) ([]model.StagedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, original_path, reason, batch_id, staged_at
		FROM staging
		ORDER BY staged_at, path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var staged []model.StagedFile
	for rows.Next() {
		var f model.StagedFile
		var reason, batch sql.NullString
		if err := rows.Scan(&f.Path, &f.OriginalPath, &reason, &batch, &f.StagedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staged file: %w", err)
		}
		f.Reason = reason.String
		f.BatchID = batch.String
		staged = append(staged, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged files: %w", err)
	}

	return staged, nil
}
