package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/librarian/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleRules = `
folders:
  Financial: Money
rules:
  - name: invoices
    category: Financial
    tier: high
    patterns: ["*invoice*", "*refinery*"]
  - name: bills
    category: Financial
    tier: Medium
    match: substring
    target: content
    patterns: ["amount due"]
  - name: pictures
    category: Photos
    tier: LOW
    match: regex
    patterns: ['\.(png|jpe?g)$']
`

func TestParseRuleSet(t *testing.T) {
	set, err := ParseRuleSet([]byte(sampleRules))
	require.NoError(t, err)

	rules := set.Rules()
	require.Len(t, rules, 3)

	assert.Equal(t, "invoices", rules[0].Name)
	assert.Equal(t, model.TierHigh, rules[0].Tier)
	assert.Equal(t, model.MatchGlob, rules[0].Match)
	assert.Equal(t, model.TargetFilename, rules[0].Target)
	assert.Equal(t, model.ActionAutoMove, rules[0].Action())

	assert.Equal(t, model.TierMedium, rules[1].Tier)
	assert.Equal(t, model.MatchSubstring, rules[1].Match)
	assert.Equal(t, model.TargetContent, rules[1].Target)
	assert.Equal(t, model.ActionSuggest, rules[1].Action())

	assert.Equal(t, model.TierLow, rules[2].Tier)
	assert.Equal(t, model.ActionManualReview, rules[2].Action())

	assert.Equal(t, "Money", set.Folder("Financial"))
	assert.Equal(t, "Photos", set.Folder("Photos"))
	assert.Equal(t, []string{"Financial", "Photos"}, set.Categories())
}

func TestParseRuleSet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no rules",
			yaml: "rules: []",
		},
		{
			name: "unknown tier",
			yaml: `rules: [{name: a, category: X, tier: urgent, patterns: ["*"]}]`,
		},
		{
			name: "missing category",
			yaml: `rules: [{name: a, tier: high, patterns: ["*"]}]`,
		},
		{
			name: "no patterns",
			yaml: `rules: [{name: a, category: X, tier: high}]`,
		},
		{
			name: "duplicate names",
			yaml: `rules: [{name: a, category: X, tier: high, patterns: ["*x*"]}, {name: a, category: Y, tier: low, patterns: ["*y*"]}]`,
		},
		{
			name: "bad regex",
			yaml: `rules: [{name: a, category: X, tier: high, match: regex, patterns: ["(unclosed"]}]`,
		},
		{
			name: "bad glob",
			yaml: `rules: [{name: a, category: X, tier: high, patterns: ["[abc"]}]`,
		},
		{
			name: "glob against content",
			yaml: `rules: [{name: a, category: X, tier: high, target: content, patterns: ["*x*"]}]`,
		},
		{
			name: "unknown match kind",
			yaml: `rules: [{name: a, category: X, tier: high, match: fuzzy, patterns: ["x"]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestParseRuleSet_Malformed(t *testing.T) {
	_, err := ParseRuleSet([]byte("rules: [this is: not valid"))
	assert.Error(t, err)
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	set, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleSet_MarshalRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(DefaultRuleSet())
	require.NoError(t, err)

	parsed, err := ParseRuleSet(out)
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleSet().Rules(), parsed.Rules())
}

func TestRuleSet_IsImmutable(t *testing.T) {
	source := []model.Rule{
		{Name: "a", Category: "X", Tier: model.TierHigh, Patterns: []string{"*x*"}},
	}
	set, err := NewRuleSet(source, nil)
	require.NoError(t, err)

	source[0].Category = "Changed"
	source[0].Patterns[0] = "*"

	rules := set.Rules()
	rules[0].Name = "changed"

	assert.Equal(t, "X", set.Rules()[0].Category)
	assert.Equal(t, "a", set.Rules()[0].Name)
	assert.Equal(t, []string{"*x*"}, set.Rules()[0].Patterns)
}

func TestDefaultRules_Valid(t *testing.T) {
	set, err := NewRuleSet(DefaultRules(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRules()), set.Len())
}
