// Package watch reports files that settle in the library roots.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before it is reported.
const DefaultDebounce = 2 * time.Second

// Handler is called once a path has settled. It runs on the watcher goroutine.
type Handler func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	// Filter, when set, decides whether a settled path is reported.
	Filter func(path string) bool
	// SkipDir, when set, keeps a subdirectory and everything below it unwatched.
	SkipDir  func(dir string) bool
	Dirs     []string
	Debounce time.Duration
}

// Watcher watches directories and reports created or written files after they
// stop changing.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	filter   func(string) bool
	skipDir  func(string) bool
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	dirs     []string
	debounce time.Duration
	mu       sync.Mutex
	running  bool
}

// New creates a Watcher. Call Start to begin watching.
func New(opts Options, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler is required")
	}
	if len(opts.Dirs) == 0 {
		return nil, errors.New("at least one directory to watch is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fw,
		handler:  handler,
		filter:   opts.Filter,
		skipDir:  opts.SkipDir,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		dirs:     opts.Dirs,
		debounce: debounce,
	}, nil
}

// Start adds the directories and their subdirectories and starts the event loop.
// Directories that cannot be watched are logged and skipped; Start fails only
// when none can be watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	added := 0
	for _, dir := range w.dirs {
		n, _ := w.addTree(dir)
		added += n
	}
	if added == 0 {
		_ = w.watcher.Close()
		close(w.doneCh)
		return errors.New("no directories could be watched")
	}

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		slog.Error("Failed to close watcher", "error", err)
	}
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Watching returns the directories currently watched.
func (w *Watcher) Watching() []string {
	return w.watcher.WatchList()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// addTree watches root and every subdirectory below it that is not skipped. It
// returns the number of directories added and the files already inside them.
func (w *Watcher) addTree(root string) (int, []string) {
	added := 0
	var files []string

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Cannot watch directory", "dir", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if !isHidden(path) {
				files = append(files, path)
			}
			return nil
		}
		if path != root && (isHidden(path) || (w.skipDir != nil && w.skipDir(path))) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("Cannot watch directory", "dir", path, "error", err)
			return filepath.SkipDir
		}
		slog.Debug("Watching directory", "dir", path)
		added++
		return nil
	})

	return added, files
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if isHidden(event.Name) {
		return
	}

	paths := []string{event.Name}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.skipDir != nil && w.skipDir(event.Name) {
				return
			}
			// Files can land in a new directory before it is watched
			_, paths = w.addTree(event.Name)
		}
	}

	now := time.Now()
	w.mu.Lock()
	for _, path := range paths {
		w.pending[path] = now
	}
	w.mu.Unlock()
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// flush reports paths that have been quiet for the debounce window.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var settled []string

	w.mu.Lock()
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if w.filter != nil && !w.filter(path) {
			continue
		}
		w.handler(ctx, path)
	}
}
