package rules

import "github.com/Veraticus/librarian/internal/model"

// DefaultRules returns the built-in rule table used when no rules file is configured.
func DefaultRules() []model.Rule {
	return []model.Rule{
		// High confidence: moved without confirmation
		{
			Name:        "financial-documents",
			Description: "Invoices, receipts and statements",
			Category:    "Financial",
			Tier:        model.TierHigh,
			Match:       model.MatchGlob,
			Patterns:    []string{"*invoice*", "*refinery*", "*receipt*", "*statement*", "*payslip*"},
		},
		{
			Name:        "tax-records",
			Description: "Tax forms and filings",
			Category:    "Financial",
			Tier:        model.TierHigh,
			Match:       model.MatchRegex,
			Patterns:    []string{`(^|[^a-z0-9])(w-?2|1099|tax[ _-]?return)([^a-z0-9]|$)`},
		},
		{
			Name:        "media-entertainment",
			Description: "Video and audio files",
			Category:    "Entertainment",
			Tier:        model.TierHigh,
			Match:       model.MatchGlob,
			Patterns:    []string{"*.mkv", "*.mp4", "*.mov", "*.avi", "*.mp3", "*.flac", "*.m4a"},
		},

		// Medium confidence: proposed, confirmed by the user
		{
			Name:        "creative-drafts",
			Description: "Scripts, episodes and writing drafts",
			Category:    "Creative",
			Tier:        model.TierMedium,
			Match:       model.MatchGlob,
			Patterns:    []string{"*episode*", "*chatgpt*", "*draft*", "*manuscript*", "*screenplay*"},
		},
		{
			Name:        "business-documents",
			Description: "Contracts, proposals and meeting notes",
			Category:    "Business",
			Tier:        model.TierMedium,
			Match:       model.MatchGlob,
			Patterns:    []string{"*contract*", "*proposal*", "*agreement*", "*meeting*notes*"},
		},
		{
			Name:        "financial-content",
			Description: "Documents whose text reads like a bill",
			Category:    "Financial",
			Tier:        model.TierMedium,
			Match:       model.MatchSubstring,
			Target:      model.TargetContent,
			Patterns:    []string{"amount due", "invoice number", "account balance"},
		},

		// Low confidence: always reviewed by hand
		{
			Name:        "images",
			Description: "Photos and screenshots",
			Category:    "Photos",
			Tier:        model.TierLow,
			Match:       model.MatchGlob,
			Patterns:    []string{"*.png", "*.jpg", "*.jpeg", "*.heic"},
		},
		{
			Name:        "archives",
			Description: "Installers and compressed archives",
			Category:    "Archives",
			Tier:        model.TierLow,
			Match:       model.MatchGlob,
			Patterns:    []string{"*.zip", "*.dmg", "*.pkg", "*.tar.gz"},
		},
	}
}

// DefaultRuleSet returns the built-in rules as a RuleSet.
func DefaultRuleSet() RuleSet {
	rs, err := NewRuleSet(DefaultRules(), nil)
	if err != nil {
		// The built-in table is validated by tests.
		panic(err)
	}
	return rs
}
