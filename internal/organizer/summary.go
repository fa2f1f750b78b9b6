package organizer

import (
	"sort"

	"github.com/Veraticus/librarian/internal/model"
)

// CategoryCount is the number of decisions routed to one category.
type CategoryCount struct {
	Category string
	Count    int
}

// Summary counts decisions per action and per category.
type Summary struct {
	Actions    map[model.Action]int
	Categories []CategoryCount
	Total      int
	Ambiguous  int
	Unmatched  int
}

// Count returns the number of decisions with the given action.
func (s Summary) Count(action model.Action) int {
	return s.Actions[action]
}

// Summarize builds a Summary. Categories are sorted by count, then name; decisions
// without a category are not listed there.
func Summarize(decisions []model.Decision) Summary {
	summary := Summary{
		Actions: map[model.Action]int{
			model.ActionAutoMove:     0,
			model.ActionSuggest:      0,
			model.ActionManualReview: 0,
		},
		Total: len(decisions),
	}

	byCategory := make(map[string]int)
	for _, d := range decisions {
		summary.Actions[d.Action]++
		switch {
		case len(d.Candidates) > 1:
			summary.Ambiguous++
		case !d.Matched():
			summary.Unmatched++
		}
		if d.Category != "" {
			byCategory[d.Category]++
		}
	}

	for category, count := range byCategory {
		summary.Categories = append(summary.Categories, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		if summary.Categories[i].Count != summary.Categories[j].Count {
			return summary.Categories[i].Count > summary.Categories[j].Count
		}
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	return summary
}
