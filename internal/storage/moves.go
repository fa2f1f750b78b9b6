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

// RecordMove logs a completed move and updates the source file's index status.
func (s *SQLiteStorage) RecordMove(ctx context.Context, move *model.MoveRecord, status model.FileStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMove(move); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO moves (id, batch_id, source, destination, category, action, moved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, move.ID, move.BatchID, move.Source, move.Destination, move.Category, move.Action, move.MovedAt)
		if err != nil {
			return fmt.Errorf("failed to record move: %w", classifyError(err))
		}

		if _, err := tx.ExecContext(ctx, `UPDATE files SET status = ? WHERE path = ?`, status, move.Source); err != nil {
			return fmt.Errorf("failed to update file status: %w", err)
		}
		return nil
	})
}

// GetMovesByBatch returns the moves of a batch in the order they were made.
func (s *SQLiteStorage) GetMovesByBatch(ctx context.Context, batchID string) ([]model.MoveRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, source, destination, category, action, moved_at, rolled_back_at
		FROM moves
		WHERE batch_id = ?
		ORDER BY rowid
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get moves: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var moves []model.MoveRecord
	for rows.Next() {
		var m model.MoveRecord
		var category sql.NullString
		var rolledBack sql.NullTime
		if err := rows.Scan(&m.ID, &m.BatchID, &m.Source, &m.Destination, &category,
			&m.Action, &m.MovedAt, &rolledBack); err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		m.Category = category.String
		if rolledBack.Valid {
			t := rolledBack.Time
			m.RolledBackAt = &t
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moves: %w", err)
	}

	return moves, nil
}

// GetLatestBatchID returns the most recent batch that still has moves to roll back.
func (s *SQLiteStorage) GetLatestBatchID(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	var batchID string
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_id FROM moves
		WHERE rolled_back_at IS NULL
		ORDER BY rowid DESC
		LIMIT 1
	`).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNoBatch
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest batch: %w", err)
	}
	return batchID, nil
}

// MarkMoveRolledBack records that a move was undone and reactivates its source file.
func (s *SQLiteStorage) MarkMoveRolledBack(ctx context.Context, moveID string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(moveID, "moveID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var source string
		err := tx.QueryRowContext(ctx,
			`SELECT source FROM moves WHERE id = ? AND rolled_back_at IS NULL`, moveID).Scan(&source)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("move %s: %w", moveID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get move: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE moves SET rolled_back_at = ? WHERE id = ?`, at, moveID); err != nil {
			return fmt.Errorf("failed to mark move rolled back: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE files SET status = ? WHERE path = ?`, model.FileActive, source); err != nil {
			return fmt.Errorf("failed to reactivate file: %w", err)
		}
		return nil
	})
}
