// Package storage provides the SQLite persistence layer for the librarian index.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/service"
	"github.com/mattn/go-sqlite3"
)

// Ensure SQLiteStorage implements service.Storage.
var _ service.Storage = (*SQLiteStorage)(nil)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classifyError(err))
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// classifyError maps SQLite result codes onto the common storage errors.
func classifyError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch {
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
		return fmt.Errorf("%w: %w", common.ErrDuplicateEntry, err)
	case sqliteErr.Code == sqlite3.ErrCorrupt, sqliteErr.Code == sqlite3.ErrNotADB:
		return fmt.Errorf("%w: %w", common.ErrDatabaseCorrupted, err)
	default:
		return err
	}
}
