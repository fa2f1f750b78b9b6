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

const fileColumns = `path, size, mod_time, extension, content_readable, snippet,
	status, category, action, rule_name, indexed_at`

// SaveFiles upserts file records into the index. Re-indexed files become active again.
func (s *SQLiteStorage) SaveFiles(ctx context.Context, files []model.FileRecord, indexedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i, f := range files {
		if err := validateFileRecord(f); err != nil {
			return fmt.Errorf("file at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO files (path, size, mod_time, extension, content_readable, snippet, status, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				size = excluded.size,
				mod_time = excluded.mod_time,
				extension = excluded.extension,
				content_readable = excluded.content_readable,
				snippet = excluded.snippet,
				status = excluded.status,
				indexed_at = excluded.indexed_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, f := range files {
			if _, err := stmt.ExecContext(ctx,
				f.Path, f.Size, f.ModTime, f.Extension, f.ContentReadable, f.Snippet,
				model.FileActive, indexedAt,
			); err != nil {
				return fmt.Errorf("failed to save file %s: %w", f.Path, err)
			}
		}
		return nil
	})
}

// SaveDecisions records the latest classification decision for indexed files.
func (s *SQLiteStorage) SaveDecisions(ctx context.Context, decisions []model.Decision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE files SET category = ?, action = ?, rule_name = ? WHERE path = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, d := range decisions {
			if _, err := stmt.ExecContext(ctx, d.Category, d.Action, d.RuleName(), d.File.Path); err != nil {
				return fmt.Errorf("failed to save decision for %s: %w", d.File.Path, err)
			}
		}
		return nil
	})
}

// GetFile retrieves an indexed file by path.
func (s *SQLiteStorage) GetFile(ctx context.Context, path string) (*model.IndexedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListFiles returns indexed files with the given status, or all files when status is empty.
func (s *SQLiteStorage) ListFiles(ctx context.Context, status model.FileStatus) ([]model.IndexedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + fileColumns + ` FROM files`
	var args []any
	if status != "" {
		if err := validateStatus(status); err != nil {
			return nil, err
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []model.IndexedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// SetFileStatus updates the status of an indexed file.
func (s *SQLiteStorage) SetFileStatus(ctx context.Context, path string, status model.FileStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE files SET status = ? WHERE path = ?`, status, path)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("file %s: %w", path, common.ErrNotFound)
	}
	return nil
}

// MarkMissing flags active files that were not seen by the latest scan.
func (s *SQLiteStorage) MarkMissing(ctx context.Context, seen []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	present := make(map[string]bool, len(seen))
	for _, p := range seen {
		present[p] = true
	}

	active, err := s.ListFiles(ctx, model.FileActive)
	if err != nil {
		return 0, err
	}

	missing := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, f := range active {
			if present[f.Path] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE files SET status = ? WHERE path = ?`, model.FileMissing, f.Path); err != nil {
				return fmt.Errorf("failed to mark %s missing: %w", f.Path, err)
			}
			missing++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return missing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.IndexedFile, error) {
	var f model.IndexedFile
	var modTime sql.NullTime
	var extension, snippet, category, action, ruleName sql.NullString

	err := row.Scan(
		&f.Path, &f.Size, &modTime, &extension, &f.ContentReadable, &snippet,
		&f.Status, &category, &action, &ruleName, &f.IndexedAt,
	)
	if err != nil {
		return nil, err
	}

	f.ModTime = modTime.Time
	f.Extension = extension.String
	f.Snippet = snippet.String
	f.Category = category.String
	f.Action = model.Action(action.String)
	f.RuleName = ruleName.String
	return &f, nil
}
