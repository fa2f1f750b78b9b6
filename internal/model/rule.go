// Package model defines the core data structures for the librarian application.
package model

import (
	"fmt"
	"strings"
)

// Tier is a rule's declared reliability bucket.
type Tier string

// Confidence tiers, highest first.
const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Rank orders tiers so that a larger value wins. Unknown tiers rank zero.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t.Rank() > 0
}

// Action returns the routing action a match at this tier produces.
func (t Tier) Action() Action {
	switch t {
	case TierHigh:
		return ActionAutoMove
	case TierMedium:
		return ActionSuggest
	default:
		return ActionManualReview
	}
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown confidence tier %q (valid: HIGH, MEDIUM, LOW)", s)
	}
	return t, nil
}

// UnmarshalText lets tiers be read from config files in any case.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Action is the routing outcome of a classification.
type Action string

// Routing actions.
const (
	ActionAutoMove     Action = "AUTO_MOVE"
	ActionSuggest      Action = "SUGGEST"
	ActionManualReview Action = "MANUAL_REVIEW"
)

// MatchKind selects how a rule pattern is interpreted.
type MatchKind string

// Match kinds.
const (
	MatchGlob      MatchKind = "glob"
	MatchSubstring MatchKind = "substring"
	MatchRegex     MatchKind = "regex"
)

// Target selects what a rule pattern is evaluated against.
type Target string

// Match targets.
const (
	TargetFilename Target = "filename"
	TargetContent  Target = "content"
)

// Rule maps filename or content patterns to a category at a confidence tier.
// A rule matches when any of its patterns matches.
type Rule struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string    `json:"category" yaml:"category"`
	Tier        Tier      `json:"tier" yaml:"tier"`
	Match       MatchKind `json:"match" yaml:"match"`
	Target      Target    `json:"target" yaml:"target"`
	Patterns    []string  `json:"patterns" yaml:"patterns"`
}

// Action returns the routing action this rule produces when it wins.
func (r Rule) Action() Action {
	return r.Tier.Action()
}
