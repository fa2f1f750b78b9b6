// Package report renders markdown summaries of organize batches.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"text/template"
	"time"

	"github.com/Veraticus/librarian/internal/common"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/service"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
)

// CategoryTotal is the number of files moved into a category.
type CategoryTotal struct {
	Category string
	Count    int
}

// Data is everything a batch report shows.
type Data struct {
	GeneratedAt time.Time
	BatchID     string
	Categories  []CategoryTotal
	Moves       []model.MoveRecord
	Staged      []model.StagedFile
	Pending     []model.Suggestion
	RolledBack  int
}

// Build collects report data for a batch. An empty batch id selects the latest
// batch that has not been rolled back; with no batches at all the report covers
// only the staging area and pending suggestions.
func Build(ctx context.Context, store service.Storage, batchID string, now time.Time) (*Data, error) {
	if batchID == "" {
		latest, err := store.GetLatestBatchID(ctx)
		if err != nil && !errors.Is(err, common.ErrNoBatch) {
			return nil, err
		}
		batchID = latest
	}

	data := &Data{GeneratedAt: now, BatchID: batchID}

	if batchID != "" {
		moves, err := store.GetMovesByBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if len(moves) == 0 {
			return nil, fmt.Errorf("batch %s: %w", batchID, common.ErrNoBatch)
		}
		data.Moves = moves

		counts := make(map[string]int)
		for _, m := range moves {
			if m.RolledBack() {
				data.RolledBack++
				continue
			}
			if m.Action != model.ActionManualReview {
				counts[m.Category]++
			}
		}
		for category, count := range counts {
			data.Categories = append(data.Categories, CategoryTotal{Category: category, Count: count})
		}
		sort.Slice(data.Categories, func(i, j int) bool {
			return data.Categories[i].Category < data.Categories[j].Category
		})
	}

	staged, err := store.ListStaged(ctx)
	if err != nil {
		return nil, err
	}
	data.Staged = staged

	pending, err := store.ListPendingSuggestions(ctx)
	if err != nil {
		return nil, err
	}
	data.Pending = pending

	return data, nil
}

var funcs = template.FuncMap{
	"base": filepath.Base,
	"ago": func(now, t time.Time) string {
		return humanize.RelTime(t, now, "ago", "from now")
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

var markdown = template.Must(template.New("report").Funcs(funcs).Parse(`# Organization Report

Generated {{ date .GeneratedAt }}
{{- if .BatchID }}

## Batch ` + "`{{ .BatchID }}`" + `

{{ len .Moves }} moves recorded{{ if .RolledBack }}, {{ .RolledBack }} rolled back{{ end }}.
{{- if .Categories }}

| Category | Files |
|---|---|
{{- range .Categories }}
| {{ .Category }} | {{ .Count }} |
{{- end }}
{{- end }}
{{- if .Moves }}

| File | Action | Destination |
|---|---|---|
{{- range .Moves }}
| {{ base .Source }} | {{ .Action }}{{ if .RolledBack }} (rolled back){{ end }} | {{ .Destination }} |
{{- end }}
{{- end }}
{{- end }}

## Staging

{{ if .Staged -}}
| File | Reason | Staged |
|---|---|---|
{{- range .Staged }}
| {{ base .Path }} | {{ .Reason }} | {{ ago $.GeneratedAt .StagedAt }} |
{{- end }}
{{- else -}}
Nothing is waiting in staging.
{{- end }}

## Pending suggestions

{{ if .Pending -}}
| File | Category | Rule |
|---|---|---|
{{- range .Pending }}
| {{ base .Path }} | {{ .Category }} | {{ .RuleName }} |
{{- end }}
{{- else -}}
No suggestions are waiting for confirmation.
{{- end }}
`))

// Markdown renders the report as markdown.
func Markdown(data *Data) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Render renders the report for a terminal of the given width.
func Render(data *Data, width int) (string, error) {
	md, err := Markdown(data)
	if err != nil {
		return "", err
	}

	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
