// Package testutil provides test helpers shared across librarian packages.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/librarian/internal/storage"
)

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// Library is a temporary directory tree with an inbox, destination root and staging area.
type Library struct {
	Inbox       string
	Destination string
	Staging     string
}

// NewLibrary creates an empty library tree under t.TempDir().
func NewLibrary(t *testing.T) Library {
	t.Helper()

	root := t.TempDir()
	lib := Library{
		Inbox:       filepath.Join(root, "Inbox"),
		Destination: filepath.Join(root, "Library"),
		Staging:     filepath.Join(root, "Library", "_Staging"),
	}
	for _, dir := range []string{lib.Inbox, lib.Destination, lib.Staging} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return lib
}

// AddFile writes a file into the inbox and returns its path.
func (l Library) AddFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(l.Inbox, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// FixedClock is a settable clock for tests.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c *FixedClock) Now() time.Time {
	return c.T
}

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
