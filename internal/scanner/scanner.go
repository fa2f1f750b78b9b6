// Package scanner walks library roots and builds file records for classification.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Veraticus/librarian/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrBinaryContent marks files whose leading bytes are not text.
var ErrBinaryContent = errors.New("binary content")

// Options configures a scan.
type Options struct {
	Roots        []string
	Exclude      []string // glob patterns matched against base names
	Skip         []string // directories never descended into
	SnippetBytes int
	Workers      int
}

// Warning is a soft failure the caller should log; the file is still recorded.
type Warning struct {
	Err  error
	Path string
}

// Result is the outcome of a scan.
type Result struct {
	Files    []model.FileRecord
	Warnings []Warning
	Dirs     int
}

// Scanner builds file records from the filesystem.
type Scanner struct {
	skip map[string]bool
	opts Options
}

// New creates a scanner.
func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	skip := make(map[string]bool, len(opts.Skip))
	for _, dir := range opts.Skip {
		if dir != "" {
			skip[filepath.Clean(dir)] = true
		}
	}
	return &Scanner{opts: opts, skip: skip}
}

// Scan walks every root and returns records sorted by path. Missing roots are
// reported as warnings.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{}
	var paths []string

	for _, root := range s.opts.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Path: path, Err: err})
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && s.SkipDir(path) {
					return filepath.SkipDir
				}
				result.Dirs++
				return nil
			}

			if !d.Type().IsRegular() || isHidden(d.Name()) || s.excluded(d.Name()) {
				return nil
			}

			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(paths)
	records := make([]model.FileRecord, len(paths))
	present := make([]bool, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, warning, err := s.Record(path)
			if err != nil {
				// Vanished between walk and stat
				mu.Lock()
				result.Warnings = append(result.Warnings, Warning{Path: path, Err: err})
				mu.Unlock()
				return nil
			}
			records[i] = record
			present[i] = true
			if warning != nil {
				mu.Lock()
				result.Warnings = append(result.Warnings, *warning)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, ok := range present {
		if ok {
			result.Files = append(result.Files, records[i])
		}
	}
	sort.Slice(result.Warnings, func(i, j int) bool {
		return result.Warnings[i].Path < result.Warnings[j].Path
	})

	return result, nil
}

// Record builds a file record for a single path. Content problems are returned
// as a warning with ContentReadable=false; only a failed stat is an error.
func (s *Scanner) Record(path string) (model.FileRecord, *Warning, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.FileRecord{}, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return model.FileRecord{}, nil, fmt.Errorf("%s is a directory", path)
	}

	record := model.FileRecord{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Extension: model.ExtensionOf(path),
	}

	if s.opts.SnippetBytes <= 0 || info.Size() == 0 {
		return record, nil, nil
	}

	snippet, err := readSnippet(path, s.opts.SnippetBytes)
	if err != nil {
		return record, &Warning{Path: path, Err: err}, nil
	}

	record.Snippet = snippet
	record.ContentReadable = true
	return record, nil, nil
}

// Excluded reports whether a base name is filtered out by the scan options.
func (s *Scanner) Excluded(path string) bool {
	name := filepath.Base(path)
	return isHidden(name) || s.excluded(name)
}

func (s *Scanner) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range s.opts.Exclude {
		if ok, _ := filepath.Match(strings.ToLower(pattern), lower); ok {
			return true
		}
	}
	return false
}

func readSnippet(path string, limit int) (string, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the configured roots
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	buf = buf[:n]

	if n == limit {
		buf = trimPartialRune(buf)
	}
	if bytes.IndexByte(buf, 0) >= 0 || !utf8.Valid(buf) {
		return "", ErrBinaryContent
	}

	return string(buf), nil
}

// trimPartialRune drops an incomplete UTF-8 sequence cut off by the read limit.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// SkipDir reports whether scans never descend into dir.
func (s *Scanner) SkipDir(dir string) bool {
	return isHidden(filepath.Base(dir)) || s.skip[filepath.Clean(dir)]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
