package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Veraticus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayout = Layout{
	DestinationRoot: "/library",
	StagingDir:      "/library/_staging",
}

func newTestEngine(t *testing.T, rules []model.Rule) *Engine {
	t.Helper()
	set, err := NewRuleSet(rules, nil)
	require.NoError(t, err)
	engine, err := NewEngine(set, testLayout)
	require.NoError(t, err)
	return engine
}

func file(name string) model.FileRecord {
	return model.FileRecord{
		Path:      filepath.Join("/inbox", name),
		Extension: model.ExtensionOf(name),
	}
}

func TestEngine_Classify(t *testing.T) {
	rules := []model.Rule{
		{Name: "fin-high", Category: "Financial", Tier: model.TierHigh, Patterns: []string{"*invoice*"}},
		{Name: "work-high", Category: "Work", Tier: model.TierHigh, Patterns: []string{"*quarterly*"}},
		{Name: "fin-high-2", Category: "Financial", Tier: model.TierHigh, Patterns: []string{"*2025*"}},
		{Name: "creative-medium", Category: "Creative", Tier: model.TierMedium, Patterns: []string{"*draft*"}},
		{Name: "photo-low", Category: "Photos", Tier: model.TierLow, Patterns: []string{"*.png"}},
		{Name: "misc-low", Category: "Misc", Tier: model.TierLow, Patterns: []string{"*draft*"}},
	}

	tests := []struct {
		name         string
		file         model.FileRecord
		wantAction   model.Action
		wantCategory string
		wantRule     string
		wantDest     string
		wantCands    []string
	}{
		{
			name:       "no match goes to review",
			file:       file("notes.txt"),
			wantAction: model.ActionManualReview,
			wantDest:   testLayout.StagingDir,
		},
		{
			name:         "single high match auto moves",
			file:         file("Invoice_ACME.pdf"),
			wantAction:   model.ActionAutoMove,
			wantCategory: "Financial",
			wantRule:     "fin-high",
			wantDest:     "/library/Financial",
			wantCands:    []string{"Financial"},
		},
		{
			name:         "two high rules same category first declared wins",
			file:         file("invoice_2025.pdf"),
			wantAction:   model.ActionAutoMove,
			wantCategory: "Financial",
			wantRule:     "fin-high",
			wantDest:     "/library/Financial",
			wantCands:    []string{"Financial"},
		},
		{
			name:       "high overlap across categories forces review",
			file:       file("quarterly_invoice.pdf"),
			wantAction: model.ActionManualReview,
			wantRule:   "fin-high",
			wantDest:   testLayout.StagingDir,
			wantCands:  []string{"Financial", "Work"},
		},
		{
			name:         "medium beats low",
			file:         file("chapter_draft.docx"),
			wantAction:   model.ActionSuggest,
			wantCategory: "Creative",
			wantRule:     "creative-medium",
			wantDest:     "/library/Creative",
			wantCands:    []string{"Creative"},
		},
		{
			name:         "high beats medium",
			file:         file("invoice_draft.pdf"),
			wantAction:   model.ActionAutoMove,
			wantCategory: "Financial",
			wantRule:     "fin-high",
			wantDest:     "/library/Financial",
			wantCands:    []string{"Financial"},
		},
		{
			name:         "low match goes to review with a hint",
			file:         file("screenshot.PNG"),
			wantAction:   model.ActionManualReview,
			wantCategory: "Photos",
			wantRule:     "photo-low",
			wantDest:     testLayout.StagingDir,
			wantCands:    []string{"Photos"},
		},
		{
			name:       "empty path goes to review",
			file:       model.FileRecord{},
			wantAction: model.ActionManualReview,
			wantDest:   testLayout.StagingDir,
		},
	}

	engine := newTestEngine(t, rules)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Classify(tt.file)

			assert.Equal(t, tt.wantAction, got.Action)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantRule, got.RuleName())
			assert.Equal(t, tt.wantDest, got.Destination)
			assert.Equal(t, tt.wantCands, got.Candidates)
			assert.Equal(t, tt.file, got.File)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestEngine_NoMatchHasNoRule(t *testing.T) {
	engine := newTestEngine(t, DefaultRules())

	for _, name := range []string{"random_scan_0091.pdf", "a", "README", "data.bin"} {
		got := engine.Classify(file(name))
		assert.Equal(t, model.ActionManualReview, got.Action, name)
		assert.False(t, got.Matched(), name)
		assert.Nil(t, got.Rule, name)
	}
}

func TestEngine_DefaultRuleExamples(t *testing.T) {
	engine, err := NewEngine(DefaultRuleSet(), testLayout)
	require.NoError(t, err)

	t.Run("invoice auto moves to financial", func(t *testing.T) {
		got := engine.Classify(file("Invoice_2025_Refinery.pdf"))
		assert.Equal(t, model.ActionAutoMove, got.Action)
		assert.Equal(t, "Financial", got.Category)
		assert.Equal(t, "/library/Financial", got.Destination)
	})

	t.Run("unmatched scan goes to staging", func(t *testing.T) {
		got := engine.Classify(file("random_scan_0091.pdf"))
		assert.Equal(t, model.ActionManualReview, got.Action)
		assert.Nil(t, got.Rule)
		assert.Equal(t, testLayout.StagingDir, got.Destination)
	})

	t.Run("creative draft is suggested", func(t *testing.T) {
		got := engine.Classify(file("Episode12_ChatGPT_draft.docx"))
		assert.Equal(t, model.ActionSuggest, got.Action)
		assert.Equal(t, "Creative", got.Category)
	})
}

func TestEngine_AmbiguityIsDeterministic(t *testing.T) {
	rules := []model.Rule{
		{Name: "a", Category: "Financial", Tier: model.TierHigh, Patterns: []string{"*report*"}},
		{Name: "b", Category: "Business", Tier: model.TierHigh, Patterns: []string{"*report*"}},
	}
	engine := newTestEngine(t, rules)
	f := file("annual_report.pdf")

	first := engine.Classify(f)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, engine.Classify(f))
	}
	assert.Equal(t, model.ActionManualReview, first.Action)
	assert.Equal(t, []string{"Financial", "Business"}, first.Candidates)
}

func TestEngine_Idempotent(t *testing.T) {
	engine, err := NewEngine(DefaultRuleSet(), testLayout)
	require.NoError(t, err)

	for _, name := range []string{"Invoice_2025_Refinery.pdf", "random_scan_0091.pdf", "Episode12_ChatGPT_draft.docx", "movie.mkv"} {
		f := file(name)
		assert.Equal(t, engine.Classify(f), engine.Classify(f), name)
	}
}

func TestEngine_ContentRules(t *testing.T) {
	rules := []model.Rule{
		{
			Name:     "bill-text",
			Category: "Financial",
			Tier:     model.TierHigh,
			Match:    model.MatchSubstring,
			Target:   model.TargetContent,
			Patterns: []string{"amount due"},
		},
		{Name: "pdf-low", Category: "Documents", Tier: model.TierLow, Patterns: []string{"*.pdf"}},
	}
	engine := newTestEngine(t, rules)

	readable := file("scan.pdf")
	readable.ContentReadable = true
	readable.Snippet = "Total AMOUNT DUE: $120"

	got := engine.Classify(readable)
	assert.Equal(t, model.ActionAutoMove, got.Action)
	assert.Equal(t, "Financial", got.Category)

	// Same snippet but flagged unreadable falls back to filename rules
	unreadable := readable
	unreadable.ContentReadable = false

	got = engine.Classify(unreadable)
	assert.Equal(t, model.ActionManualReview, got.Action)
	assert.Equal(t, "pdf-low", got.RuleName())
}

func TestEngine_RegexRules(t *testing.T) {
	rules := []model.Rule{
		{Name: "tax", Category: "Financial", Tier: model.TierHigh, Match: model.MatchRegex, Patterns: []string{`^w-?2`}},
	}
	engine := newTestEngine(t, rules)

	assert.Equal(t, model.ActionAutoMove, engine.Classify(file("W2_2024.pdf")).Action)
	assert.Equal(t, model.ActionManualReview, engine.Classify(file("my_w2.pdf")).Action)
}

func TestDefaultRules_TaxRecords(t *testing.T) {
	engine, err := NewEngine(DefaultRuleSet(), testLayout)
	require.NoError(t, err)

	tests := []struct {
		name    string
		matches bool
	}{
		{"tax_return_2024.pdf", true},
		{"W2_2024.pdf", true},
		{"1099_INT_chase.pdf", true},
		{"W-2 2024.pdf", true},
		{"tax-return.pdf", true},
		{"scan-2024-w2.pdf", true},
		{"flow2.txt", false},
		{"syntaxreturns.txt", false},
		{"order-10990.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Classify(file(tt.name))
			if tt.matches {
				assert.Equal(t, model.ActionAutoMove, got.Action)
				assert.Equal(t, "tax-records", got.RuleName())
				return
			}
			assert.NotEqual(t, "tax-records", got.RuleName())
		})
	}
}

func TestEngine_ReturnedRuleIsACopy(t *testing.T) {
	engine := newTestEngine(t, []model.Rule{
		{Name: "fin", Category: "Financial", Tier: model.TierHigh, Patterns: []string{"*invoice*"}},
	})

	got := engine.Classify(file("invoice.pdf"))
	require.NotNil(t, got.Rule)
	got.Rule.Category = "Mutated"
	got.Rule.Patterns[0] = "*"

	again := engine.Classify(file("invoice.pdf"))
	assert.Equal(t, "Financial", again.Category)
	assert.Equal(t, []string{"*invoice*"}, again.Rule.Patterns)
}

func TestEngine_ClassifyAll(t *testing.T) {
	engine, err := NewEngine(DefaultRuleSet(), testLayout)
	require.NoError(t, err)

	files := make([]model.FileRecord, 0, 100)
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("scan_%03d.pdf", i)
		if i%3 == 0 {
			name = fmt.Sprintf("invoice_%03d.pdf", i)
		}
		files = append(files, file(name))
	}

	decisions, err := engine.ClassifyAll(context.Background(), files, 8)
	require.NoError(t, err)
	require.Len(t, decisions, len(files))

	for i, d := range decisions {
		assert.Equal(t, files[i].Path, d.File.Path)
		assert.Equal(t, engine.Classify(files[i]), d)
	}
}

func TestEngine_ClassifyAllCancelled(t *testing.T) {
	engine, err := NewEngine(DefaultRuleSet(), testLayout)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.ClassifyAll(ctx, []model.FileRecord{file("a.pdf"), file("b.pdf")}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine_RequiresStaging(t *testing.T) {
	_, err := NewEngine(DefaultRuleSet(), Layout{DestinationRoot: "/library"})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestEngine_FolderOverrides(t *testing.T) {
	set, err := NewRuleSet([]model.Rule{
		{Name: "fin", Category: "Financial", Tier: model.TierHigh, Patterns: []string{"*invoice*"}},
		{Name: "fun", Category: "Entertainment", Tier: model.TierHigh, Patterns: []string{"*.mkv"}},
	}, map[string]string{
		"Financial":     "Money/Invoices",
		"Entertainment": "/media/videos",
	})
	require.NoError(t, err)

	engine, err := NewEngine(set, testLayout)
	require.NoError(t, err)

	assert.Equal(t, "/library/Money/Invoices", engine.Classify(file("invoice.pdf")).Destination)
	assert.Equal(t, "/media/videos", engine.Classify(file("film.mkv")).Destination)
}
