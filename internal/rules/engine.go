package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/librarian/internal/model"
	"golang.org/x/sync/errgroup"
)

// Layout tells the engine where category folders and the staging area live.
type Layout struct {
	DestinationRoot string
	StagingDir      string
}

// Engine maps file records to classification decisions. It holds no mutable
// state after construction and is safe for concurrent use. Reloading rules means
// constructing a new Engine.
type Engine struct {
	set    RuleSet
	layout Layout
	rules  []compiledRule
}

// NewEngine compiles a rule set for classification.
func NewEngine(set RuleSet, layout Layout) (*Engine, error) {
	if strings.TrimSpace(layout.StagingDir) == "" {
		return nil, fmt.Errorf("%w: staging directory is required", ErrInvalidRule)
	}

	compiled := make([]compiledRule, 0, set.Len())
	for i, rule := range set.rules {
		cr, err := compileRule(rule, i)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", rule.Name, err)
		}
		compiled = append(compiled, cr)
	}

	return &Engine{set: set, layout: layout, rules: compiled}, nil
}

// RuleSet returns the rule set the engine was built from.
func (e *Engine) RuleSet() RuleSet {
	return e.set
}

// Layout returns the engine's folder layout.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Classify produces exactly one decision for a file record. It never touches the
// filesystem and returns the same decision for the same input.
func (e *Engine) Classify(file model.FileRecord) model.Decision {
	if strings.TrimSpace(file.Path) == "" {
		return e.review(file, nil, "", "empty path")
	}

	// Matches in declaration order, grouped by tier rank
	var matched []compiledRule
	topRank := 0
	for _, cr := range e.rules {
		if !cr.matches(file) {
			continue
		}
		matched = append(matched, cr)
		if rank := cr.rule.Tier.Rank(); rank > topRank {
			topRank = rank
		}
	}

	if len(matched) == 0 {
		return e.review(file, nil, "", "no rule matched")
	}

	var winner *compiledRule
	var categories []string
	seen := make(map[string]bool)
	for i := range matched {
		cr := &matched[i]
		if cr.rule.Tier.Rank() != topRank {
			continue
		}
		if winner == nil {
			winner = cr
		}
		if !seen[cr.rule.Category] {
			seen[cr.rule.Category] = true
			categories = append(categories, cr.rule.Category)
		}
	}

	rule := winner.rule
	rule.Patterns = append([]string(nil), rule.Patterns...)

	if len(categories) > 1 {
		d := e.review(file, &rule, "", fmt.Sprintf("ambiguous %s match: %s",
			strings.ToLower(string(rule.Tier)), strings.Join(categories, ", ")))
		d.Candidates = categories
		return d
	}

	switch rule.Tier {
	case model.TierHigh:
		return model.Decision{
			File:        file,
			Rule:        &rule,
			Action:      model.ActionAutoMove,
			Category:    rule.Category,
			Destination: e.folderFor(rule.Category),
			Reason:      fmt.Sprintf("high confidence match on rule %s", rule.Name),
			Candidates:  categories,
		}
	case model.TierMedium:
		return model.Decision{
			File:        file,
			Rule:        &rule,
			Action:      model.ActionSuggest,
			Category:    rule.Category,
			Destination: e.folderFor(rule.Category),
			Reason:      fmt.Sprintf("medium confidence match on rule %s, needs confirmation", rule.Name),
			Candidates:  categories,
		}
	default:
		d := e.review(file, &rule, rule.Category,
			fmt.Sprintf("low confidence match on rule %s", rule.Name))
		d.Candidates = categories
		return d
	}
}

// ClassifyAll classifies files concurrently on up to workers goroutines and
// returns decisions in input order.
func (e *Engine) ClassifyAll(ctx context.Context, files []model.FileRecord, workers int) ([]model.Decision, error) {
	if workers <= 0 {
		workers = 1
	}

	decisions := make([]model.Decision, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = e.Classify(file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return decisions, nil
}

func (e *Engine) review(file model.FileRecord, rule *model.Rule, category, reason string) model.Decision {
	return model.Decision{
		File:        file,
		Rule:        rule,
		Action:      model.ActionManualReview,
		Category:    category,
		Destination: e.layout.StagingDir,
		Reason:      reason,
	}
}

func (e *Engine) folderFor(category string) string {
	folder := e.set.Folder(category)
	if filepath.IsAbs(folder) {
		return folder
	}
	return filepath.Join(e.layout.DestinationRoot, folder)
}
