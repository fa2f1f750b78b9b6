// Package rules implements the confidence-tiered classification rule engine.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/Veraticus/librarian/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned when a rule definition cannot be loaded.
var ErrInvalidRule = errors.New("invalid rule")

// RuleSet is an immutable, ordered collection of classification rules.
// Declaration order is significant: it breaks ties inside a tier.
type RuleSet struct {
	folders map[string]string
	rules   []model.Rule
}

// NewRuleSet validates and copies rules into a RuleSet. folders optionally maps a
// category to a folder name (relative to the destination root) or absolute path.
func NewRuleSet(rules []model.Rule, folders map[string]string) (RuleSet, error) {
	seen := make(map[string]bool, len(rules))
	copied := make([]model.Rule, 0, len(rules))

	for i, rule := range rules {
		rule = normalizeRule(rule)
		if err := validateRule(rule); err != nil {
			return RuleSet{}, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
		if seen[rule.Name] {
			return RuleSet{}, fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRule, rule.Name)
		}
		seen[rule.Name] = true

		rule.Patterns = append([]string(nil), rule.Patterns...)
		copied = append(copied, rule)
	}

	f := make(map[string]string, len(folders))
	for category, folder := range folders {
		f[category] = folder
	}

	return RuleSet{rules: copied, folders: f}, nil
}

// Rules returns a copy of the rules in declaration order.
func (rs RuleSet) Rules() []model.Rule {
	out := make([]model.Rule, len(rs.rules))
	for i, r := range rs.rules {
		r.Patterns = append([]string(nil), r.Patterns...)
		out[i] = r
	}
	return out
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	return len(rs.rules)
}

// Folder returns the configured folder for a category, falling back to the category name.
func (rs RuleSet) Folder(category string) string {
	if folder, ok := rs.folders[category]; ok && folder != "" {
		return folder
	}
	return category
}

// Categories returns the distinct categories in declaration order.
func (rs RuleSet) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// ruleFile is the on-disk YAML layout of a rule set.
type ruleFile struct {
	Folders map[string]string `yaml:"folders"`
	Rules   []ruleEntry        `yaml:"rules"`
}

type ruleEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Tier        string   `yaml:"tier"`
	Match       string   `yaml:"match"`
	Target      string   `yaml:"target"`
	Patterns    []string `yaml:"patterns"`
}

// ParseRuleSet decodes a YAML rule set.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules: %w", err)
	}

	if len(file.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("%w: rule file declares no rules", ErrInvalidRule)
	}

	rules := make([]model.Rule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		tier, err := model.ParseTier(entry.Tier)
		if err != nil {
			return RuleSet{}, fmt.Errorf("rule %d (%s): %w: %v", i, entry.Name, ErrInvalidRule, err)
		}
		rules = append(rules, model.Rule{
			Name:        entry.Name,
			Description: entry.Description,
			Category:    entry.Category,
			Tier:        tier,
			Match:       model.MatchKind(strings.ToLower(entry.Match)),
			Target:      model.Target(strings.ToLower(entry.Target)),
			Patterns:    entry.Patterns,
		})
	}

	return NewRuleSet(rules, file.Folders)
}

// LoadRuleSet reads a YAML rule set from path.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // rule file path comes from user config
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRuleSet(data)
}

// MarshalYAML renders the rule set in the same layout ParseRuleSet reads.
func (rs RuleSet) MarshalYAML() (any, error) {
	file := ruleFile{Folders: rs.folders}
	for _, r := range rs.rules {
		file.Rules = append(file.Rules, ruleEntry{
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Tier:        string(r.Tier),
			Match:       string(r.Match),
			Target:      string(r.Target),
			Patterns:    r.Patterns,
		})
	}
	return file, nil
}

func normalizeRule(rule model.Rule) model.Rule {
	rule.Name = strings.TrimSpace(rule.Name)
	rule.Category = strings.TrimSpace(rule.Category)
	if rule.Match == "" {
		rule.Match = model.MatchGlob
	}
	if rule.Target == "" {
		rule.Target = model.TargetFilename
	}
	return rule
}

func validateRule(rule model.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if rule.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if !rule.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidRule, rule.Tier)
	}
	if len(rule.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalidRule)
	}

	switch rule.Target {
	case model.TargetFilename, model.TargetContent:
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidRule, rule.Target)
	}

	for _, p := range rule.Patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty pattern", ErrInvalidRule)
		}
		switch rule.Match {
		case model.MatchGlob:
			if rule.Target == model.TargetContent {
				return fmt.Errorf("%w: glob patterns only apply to filenames", ErrInvalidRule)
			}
			if _, err := path.Match(strings.ToLower(p), ""); err != nil {
				return fmt.Errorf("%w: bad glob %q: %v", ErrInvalidRule, p, err)
			}
		case model.MatchSubstring:
		case model.MatchRegex:
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("%w: bad regex %q: %v", ErrInvalidRule, p, err)
			}
		default:
			return fmt.Errorf("%w: unknown match kind %q", ErrInvalidRule, rule.Match)
		}
	}

	return nil
}
