// Package indexer scans the library roots, classifies what it finds, and keeps
// the file index in storage current.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/rules"
	"github.com/Veraticus/librarian/internal/scanner"
	"github.com/Veraticus/librarian/internal/service"
)

// Result summarizes one indexing pass.
type Result struct {
	Files     []model.FileRecord
	Decisions []model.Decision
	Warnings  []scanner.Warning
	RunID     int64
	Readable  int
	Missing   int
	Duration  time.Duration
}

// Indexer ties the scanner, the rule engine and storage together.
type Indexer struct {
	store   service.Storage
	scanner *scanner.Scanner
	engine  *rules.Engine
	clock   service.Clock
	workers int
}

// New creates an Indexer.
func New(store service.Storage, scn *scanner.Scanner, engine *rules.Engine, clock service.Clock, workers int) *Indexer {
	if clock == nil {
		clock = service.SystemClock{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Indexer{store: store, scanner: scn, engine: engine, clock: clock, workers: workers}
}

// Preview scans and classifies without writing anything.
func (ix *Indexer) Preview(ctx context.Context) (*Result, error) {
	start := ix.clock.Now()

	scan, err := ix.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan library: %w", err)
	}
	logWarnings(scan.Warnings)

	decisions, err := ix.engine.ClassifyAll(ctx, scan.Files, ix.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to classify files: %w", err)
	}

	return &Result{
		Files:     scan.Files,
		Decisions: decisions,
		Warnings:  scan.Warnings,
		Readable:  countReadable(scan.Files),
		Duration:  ix.clock.Now().Sub(start),
	}, nil
}

// Run rebuilds the index: it records an index run, saves every scanned file,
// flags indexed files that disappeared, and stores each file's decision.
func (ix *Indexer) Run(ctx context.Context) (*Result, error) {
	start := ix.clock.Now()

	runID, err := ix.store.StartIndexRun(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to start index run: %w", err)
	}

	result, err := ix.run(ctx, runID, start)
	if err != nil {
		// The run may have failed because ctx was cancelled
		if abortErr := ix.store.AbortIndexRun(context.WithoutCancel(ctx), runID); abortErr != nil {
			common.LogError(abortErr, "Failed to discard unfinished index run", common.Fields{"run_id": runID})
		}
		return nil, err
	}

	common.LogInfo("Index rebuilt", common.Fields{
		"files":    len(result.Files),
		"readable": result.Readable,
		"missing":  result.Missing,
		"warnings": len(result.Warnings),
		"duration": result.Duration,
	})

	return result, nil
}

func (ix *Indexer) run(ctx context.Context, runID int64, start time.Time) (*Result, error) {
	result, err := ix.Preview(ctx)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	if err := ix.store.SaveFiles(ctx, result.Files, start); err != nil {
		return nil, fmt.Errorf("failed to save files: %w", err)
	}

	seen := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		seen = append(seen, f.Path)
	}
	missing, err := ix.store.MarkMissing(ctx, seen)
	if err != nil {
		return nil, fmt.Errorf("failed to mark missing files: %w", err)
	}
	result.Missing = missing

	if err := ix.store.SaveDecisions(ctx, result.Decisions); err != nil {
		return nil, fmt.Errorf("failed to save decisions: %w", err)
	}

	finished := ix.clock.Now()
	if err := ix.store.FinishIndexRun(ctx, runID, finished, len(result.Files), result.Readable); err != nil {
		return nil, fmt.Errorf("failed to finish index run: %w", err)
	}
	result.Duration = finished.Sub(start)

	return result, nil
}

// Classify builds records for explicit paths and classifies them. Paths that
// cannot be read at all are returned as warnings.
func (ix *Indexer) Classify(ctx context.Context, paths []string) ([]model.Decision, []scanner.Warning, error) {
	var files []model.FileRecord
	var warnings []scanner.Warning
	for _, path := range paths {
		record, warning, err := ix.scanner.Record(path)
		if err != nil {
			warnings = append(warnings, scanner.Warning{Path: path, Err: err})
			continue
		}
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		files = append(files, record)
	}
	logWarnings(warnings)

	decisions, err := ix.engine.ClassifyAll(ctx, files, ix.workers)
	if err != nil {
		return nil, warnings, err
	}
	return decisions, warnings, nil
}

func logWarnings(warnings []scanner.Warning) {
	for _, w := range warnings {
		common.LogWarn("Content unavailable, classifying by filename", common.Fields{
			"path":  w.Path,
			"error": w.Err,
		})
	}
}

func countReadable(files []model.FileRecord) int {
	n := 0
	for _, f := range files {
		if f.ContentReadable {
			n++
		}
	}
	return n
}
