package rules

import (
	"path"
	"regexp"
	"strings"

	"github.com/Veraticus/librarian/internal/model"
)

// compiledRule holds a rule with its patterns prepared for matching.
type compiledRule struct {
	regexes []*regexp.Regexp
	lowered []string
	rule    model.Rule
	order   int
}

func compileRule(rule model.Rule, order int) (compiledRule, error) {
	cr := compiledRule{rule: rule, order: order}

	switch rule.Match {
	case model.MatchRegex:
		for _, p := range rule.Patterns {
			expr := p
			if !strings.HasPrefix(expr, "(?i)") {
				expr = "(?i)" + expr // Case-insensitive by default
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return compiledRule{}, err
			}
			cr.regexes = append(cr.regexes, re)
		}
	default:
		for _, p := range rule.Patterns {
			cr.lowered = append(cr.lowered, strings.ToLower(p))
		}
	}

	return cr, nil
}

// matches checks the rule against a file. Content rules never match when the
// content could not be read, which degrades classification to filename-only.
func (cr compiledRule) matches(file model.FileRecord) bool {
	var subject string
	switch cr.rule.Target {
	case model.TargetContent:
		if !file.ContentReadable || file.Snippet == "" {
			return false
		}
		subject = file.Snippet
	default:
		subject = file.Name()
	}

	switch cr.rule.Match {
	case model.MatchRegex:
		for _, re := range cr.regexes {
			if re.MatchString(subject) {
				return true
			}
		}
	case model.MatchSubstring:
		lower := strings.ToLower(subject)
		for _, p := range cr.lowered {
			if strings.Contains(lower, p) {
				return true
			}
		}
	default:
		lower := strings.ToLower(subject)
		for _, p := range cr.lowered {
			if ok, _ := path.Match(p, lower); ok {
				return true
			}
		}
	}

	return false
}
