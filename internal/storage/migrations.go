package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS files (
					path TEXT PRIMARY KEY,
					size INTEGER NOT NULL DEFAULT 0,
					mod_time DATETIME,
					extension TEXT,
					content_readable BOOLEAN NOT NULL DEFAULT 0,
					snippet TEXT,
					status TEXT NOT NULL DEFAULT 'ACTIVE',
					category TEXT,
					action TEXT,
					rule_name TEXT,
					indexed_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS moves (
					id TEXT PRIMARY KEY,
					batch_id TEXT NOT NULL,
					source TEXT NOT NULL,
					destination TEXT NOT NULL,
					category TEXT,
					action TEXT NOT NULL,
					moved_at DATETIME NOT NULL,
					rolled_back_at DATETIME
				)`,

				`CREATE TABLE IF NOT EXISTS staging (
					path TEXT PRIMARY KEY,
					original_path TEXT NOT NULL,
					reason TEXT,
					batch_id TEXT,
					staged_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS suggestions (
					path TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					destination TEXT NOT NULL,
					rule_name TEXT,
					batch_id TEXT,
					created_at DATETIME NOT NULL,
					resolved_at DATETIME,
					accepted BOOLEAN NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS index_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					started_at DATETIME NOT NULL,
					finished_at DATETIME,
					files_seen INTEGER NOT NULL DEFAULT 0,
					files_readable INTEGER NOT NULL DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add lookup indexes",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_files_status ON files(status)`,
				`CREATE INDEX IF NOT EXISTS idx_moves_batch ON moves(batch_id)`,
				`CREATE INDEX IF NOT EXISTS idx_suggestions_pending ON suggestions(resolved_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", classifyError(err))
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
