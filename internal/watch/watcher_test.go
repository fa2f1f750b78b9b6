package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestWatcher_ReportsSettledFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	c := &collector{}
	w, err := New(Options{
		Dirs:     []string{dir},
		Debounce: 50 * time.Millisecond,
		Filter:   func(path string) bool { return !strings.HasSuffix(path, ".part") },
	}, c.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	target := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(target, []byte("one"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("two"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mkv.part"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool {
		return len(c.seen()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// Writes to the same file are reported once
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{target}, c.seen())
}

func TestWatcher_WatchesSubdirectories(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	nested := filepath.Join(root, "scans", "2025")
	skipped := filepath.Join(root, "_Staging")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.MkdirAll(skipped, 0o750))

	c := &collector{}
	w, err := New(Options{
		Dirs:     []string{root},
		Debounce: 50 * time.Millisecond,
		SkipDir:  func(dir string) bool { return dir == skipped },
	}, c.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.ElementsMatch(t, []string{root, filepath.Join(root, "scans"), nested}, w.Watching())

	existing := filepath.Join(nested, "receipt.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(skipped, "notes.txt"), []byte("x"), 0o600))

	// A directory created while watching is picked up with its contents
	created := filepath.Join(root, "new", "deeper")
	require.NoError(t, os.MkdirAll(created, 0o750))
	late := filepath.Join(created, "episode_1.txt")
	require.NoError(t, os.WriteFile(late, []byte("x"), 0o600))

	assert.Eventually(t, func() bool {
		return len(c.seen()) == 2
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.ElementsMatch(t, []string{existing, late}, c.seen())
}

func TestWatcher_ContextCancelStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(Options{Dirs: []string{t.TempDir()}}, func(context.Context, string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := New(Options{Dirs: []string{t.TempDir()}}, func(context.Context, string) {})
	require.NoError(t, err)
	w.Stop()
}

func TestWatcher_NoWatchableDirs(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := New(Options{Dirs: []string{filepath.Join(t.TempDir(), "missing")}}, func(context.Context, string) {})
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Dirs: []string{"/tmp"}}, nil)
	assert.Error(t, err)

	_, err = New(Options{}, func(context.Context, string) {})
	assert.Error(t, err)
}
