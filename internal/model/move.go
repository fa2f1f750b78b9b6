package model

import "time"

// MoveRecord logs a single file move so that it can be rolled back.
type MoveRecord struct {
	MovedAt      time.Time  `json:"moved_at"`
	RolledBackAt *time.Time `json:"rolled_back_at,omitempty"`
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id"`
	Source       string     `json:"source"`
	Destination  string     `json:"destination"`
	Category     string     `json:"category"`
	Action       Action     `json:"action"`
}

// RolledBack reports whether the move has been undone.
func (m MoveRecord) RolledBack() bool {
	return m.RolledBackAt != nil
}

// StagedFile is a file sitting in the staging area awaiting manual review.
type StagedFile struct {
	StagedAt     time.Time `json:"staged_at"`
	Path         string    `json:"path"`
	OriginalPath string    `json:"original_path"`
	Reason       string    `json:"reason"`
	BatchID      string    `json:"batch_id"`
}

// Age returns how long the file has been staged as of now.
func (s StagedFile) Age(now time.Time) time.Duration {
	return now.Sub(s.StagedAt)
}

// Suggestion is a proposed move waiting for external confirmation.
type Suggestion struct {
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Path        string     `json:"path"`
	Category    string     `json:"category"`
	Destination string     `json:"destination"`
	RuleName    string     `json:"rule_name"`
	BatchID     string     `json:"batch_id"`
	Accepted    bool       `json:"accepted"`
}

// IndexRun records one pass of the indexer.
type IndexRun struct {
	StartedAt     time.Time
	FinishedAt    *time.Time
	ID            int64
	FilesSeen     int
	FilesReadable int
}
