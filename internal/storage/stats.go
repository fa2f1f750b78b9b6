package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
)

// GetStats aggregates index and staging statistics as of now.
func (s *SQLiteStorage) GetStats(ctx context.Context, now time.Time, overdueDays int) (*model.Stats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var stats model.Stats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN content_readable THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(size), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND action = ? THEN 1 ELSE 0 END), 0)
		FROM files
		WHERE status != ?
	`, model.FileActive, model.FileActive, model.ActionAutoMove, model.FileMissing).Scan(
		&stats.FilesIndexed, &stats.FilesReadable, &stats.TotalBytes,
		&stats.ActiveFiles, &stats.ReadyToOrganize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suggestions WHERE resolved_at IS NULL`).Scan(&stats.PendingSuggest)
	if err != nil {
		return nil, fmt.Errorf("failed to count suggestions: %w", err)
	}

	staged, err := s.ListStaged(ctx)
	if err != nil {
		return nil, err
	}
	stats.StagedFiles = len(staged)

	overdue := time.Duration(overdueDays) * 24 * time.Hour
	var totalDays float64
	for _, f := range staged {
		age := f.Age(now)
		totalDays += age.Hours() / 24
		if age > overdue {
			stats.OverdueFiles++
		}
	}
	if len(staged) > 0 {
		stats.AvgStagingDays = totalDays / float64(len(staged))
	}

	run, err := s.GetLatestIndexRun(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return nil, err
	case run.FinishedAt != nil:
		stats.LastUpdated = *run.FinishedAt
	}

	return &stats, nil
}
