package model

import "time"

// Stats aggregates index and staging figures for status reporting.
type Stats struct {
	LastUpdated     time.Time
	FilesIndexed    int
	FilesReadable   int
	ActiveFiles     int
	ReadyToOrganize int
	StagedFiles     int
	OverdueFiles    int
	PendingSuggest  int
	TotalBytes      int64
	AvgStagingDays  float64
}

// SuccessRate is the fraction of indexed files whose content could be read.
func (s Stats) SuccessRate() float64 {
	if s.FilesIndexed == 0 {
		return 0
	}
	return float64(s.FilesReadable) / float64(s.FilesIndexed)
}
