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

// SaveSuggestion stores a pending suggestion, replacing any earlier one for the path.
func (s *SQLiteStorage) SaveSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSuggestion(suggestion); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (path, category, destination, rule_name, batch_id, created_at, resolved_at, accepted)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 0)
		ON CONFLICT(path) DO UPDATE SET
			category = excluded.category,
			destination = excluded.destination,
			rule_name = excluded.rule_name,
			batch_id = excluded.batch_id,
			created_at = excluded.created_at,
			resolved_at = NULL,
			accepted = 0
	`, suggestion.Path, suggestion.Category, suggestion.Destination, suggestion.RuleName,
		suggestion.BatchID, suggestion.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// ListPendingSuggestions returns unresolved suggestions, oldest first.
func (s *SQLiteStorage) ListPendingSuggestions(ctx context.Context) ([]model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, category, destination, rule_name, batch_id, created_at
		FROM suggestions
		WHERE resolved_at IS NULL
		ORDER BY created_at, path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		var ruleName, batch sql.NullString
		if err := rows.Scan(&sg.Path, &sg.Category, &sg.Destination, &ruleName, &batch, &sg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		sg.RuleName = ruleName.String
		sg.BatchID = batch.String
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

// ResolveSuggestion marks a pending suggestion accepted or rejected.
func (s *SQLiteStorage) ResolveSuggestion(ctx context.Context, path string, accepted bool, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(path, "path"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var resolved sql.NullTime
		err := tx.QueryRowContext(ctx, `SELECT resolved_at FROM suggestions WHERE path = ?`, path).Scan(&resolved)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("suggestion for %s: %w", path, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get suggestion: %w", err)
		}
		if resolved.Valid {
			return fmt.Errorf("suggestion for %s: %w", path, common.ErrSuggestionResolved)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE suggestions SET resolved_at = ?, accepted = ? WHERE path = ?`, at, accepted, path); err != nil {
			return fmt.Errorf("failed to resolve suggestion: %w", err)
		}
		return nil
	})
}

// ReopenSuggestion returns a resolved suggestion to the pending list, keeping
// its rule, destination and batch.
func (s *SQLiteStorage) ReopenSuggestion(ctx context.Context, path string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(path, "path"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET resolved_at = NULL, accepted = 0 WHERE path = ? AND resolved_at IS NOT NULL`, path)
	if err != nil {
		return fmt.Errorf("failed to reopen suggestion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("resolved suggestion for %s: %w", path, common.ErrNotFound)
	}
	return nil
}
