// Package status builds the status record shown by `librarian status` and converts
// it to and from its text and JSON renderings.
package status

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/librarian/internal/model"
	"github.com/dustin/go-humanize"
)

// Heading is the first line of the text rendering.
const Heading = "System Status"

// TimeLayout is used for the "Last updated" line.
const TimeLayout = "2006-01-02 15:04:05"

const never = "never"

// Labels of the text rendering, in output order.
const (
	LabelFilesIndexed    = "Files indexed"
	LabelSuccessRate     = "Success rate"
	LabelTotalContent    = "Total content"
	LabelActiveFiles     = "Active files"
	LabelReadyToOrganize = "Ready to organize"
	LabelStagedFiles     = "Staged files"
	LabelPendingSuggest  = "Pending suggestions"
	LabelOverdueFiles    = "Overdue files"
	LabelAvgStagingDays  = "Avg staging days"
	LabelLastUpdated     = "Last updated"
)

// ErrNoStatus is returned by ParseText when the input has no status heading.
var ErrNoStatus = errors.New("no status block found")

// Report is the structured status record.
type Report struct {
	LastUpdated        *time.Time `json:"last_updated,omitempty"`
	FilesIndexed       int        `json:"files_indexed"`
	FilesReadable      int        `json:"files_readable"`
	SuccessRate        float64    `json:"success_rate"`
	TotalBytes         int64      `json:"total_bytes"`
	ActiveFiles        int        `json:"active_files"`
	ReadyToOrganize    int        `json:"ready_to_organize"`
	StagedFiles        int        `json:"staged_files"`
	PendingSuggestions int        `json:"pending_suggestions"`
	OverdueFiles       int        `json:"overdue_files"`
	AvgStagingDays     float64    `json:"avg_staging_days"`
}

// FromStats converts storage statistics into a report. SuccessRate is a
// percentage rounded to one decimal.
func FromStats(stats model.Stats) Report {
	r := Report{
		FilesIndexed:       stats.FilesIndexed,
		FilesReadable:      stats.FilesReadable,
		SuccessRate:        round1(stats.SuccessRate() * 100),
		TotalBytes:         stats.TotalBytes,
		ActiveFiles:        stats.ActiveFiles,
		ReadyToOrganize:    stats.ReadyToOrganize,
		StagedFiles:        stats.StagedFiles,
		PendingSuggestions: stats.PendingSuggest,
		OverdueFiles:       stats.OverdueFiles,
		AvgStagingDays:     round1(stats.AvgStagingDays),
	}
	if !stats.LastUpdated.IsZero() {
		t := stats.LastUpdated
		r.LastUpdated = &t
	}
	return r
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RenderText writes the plain text status block.
func RenderText(w io.Writer, r Report) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", Heading, strings.Repeat("=", len(Heading))); err != nil {
		return err
	}

	lastUpdated := never
	if r.LastUpdated != nil {
		lastUpdated = r.LastUpdated.Format(TimeLayout)
	}

	size := r.TotalBytes
	if size < 0 {
		size = 0
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		label string
		value string
	}{
		{LabelFilesIndexed, strconv.Itoa(r.FilesIndexed)},
		{LabelSuccessRate, fmt.Sprintf("%.1f%%", r.SuccessRate)},
		{LabelTotalContent, humanize.Bytes(uint64(size))},
		{LabelActiveFiles, strconv.Itoa(r.ActiveFiles)},
		{LabelReadyToOrganize, strconv.Itoa(r.ReadyToOrganize)},
		{LabelStagedFiles, strconv.Itoa(r.StagedFiles)},
		{LabelPendingSuggest, strconv.Itoa(r.PendingSuggestions)},
		{LabelOverdueFiles, strconv.Itoa(r.OverdueFiles)},
		{LabelAvgStagingDays, fmt.Sprintf("%.1f", r.AvgStagingDays)},
		{LabelLastUpdated, lastUpdated},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row.label, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ParseText reads a text status block back into a report. Unknown lines are
// ignored; a value that does not parse is an error naming its label.
func ParseText(r io.Reader) (Report, error) {
	var report Report
	found := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, Heading) {
			found = true
			continue
		}

		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)

		if err := report.set(label, value); err != nil {
			return Report{}, fmt.Errorf("%s: %w", label, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, fmt.Errorf("failed to read status: %w", err)
	}
	if !found {
		return Report{}, ErrNoStatus
	}

	if report.FilesReadable == 0 && report.FilesIndexed > 0 {
		report.FilesReadable = int(math.Round(report.SuccessRate / 100 * float64(report.FilesIndexed)))
	}
	return report, nil
}

func (r *Report) set(label, value string) error {
	var err error
	switch label {
	case LabelFilesIndexed:
		r.FilesIndexed, err = parseCount(value)
	case LabelSuccessRate:
		r.SuccessRate, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "%")), 64)
	case LabelTotalContent:
		var n uint64
		n, err = humanize.ParseBytes(value)
		r.TotalBytes = int64(n) //nolint:gosec // sizes fit in int64
	case LabelActiveFiles:
		r.ActiveFiles, err = parseCount(value)
	case LabelReadyToOrganize:
		r.ReadyToOrganize, err = parseCount(value)
	case LabelStagedFiles:
		r.StagedFiles, err = parseCount(value)
	case LabelPendingSuggest:
		r.PendingSuggestions, err = parseCount(value)
	case LabelOverdueFiles:
		r.OverdueFiles, err = parseCount(value)
	case LabelAvgStagingDays:
		r.AvgStagingDays, err = strconv.ParseFloat(value, 64)
	case LabelLastUpdated:
		if value == "" || strings.EqualFold(value, never) {
			r.LastUpdated = nil
			return nil
		}
		var t time.Time
		t, err = time.ParseInLocation(TimeLayout, value, time.Local)
		if err != nil {
			t, err = time.Parse(time.RFC3339, value)
		}
		if err == nil {
			r.LastUpdated = &t
		}
	}
	return err
}

// parseCount accepts plain and comma-grouped integers.
func parseCount(value string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(value, ",", ""))
}
