package quote

import (
	"strings"

	"agroquote/internal/domain"
)

// classifyRule maps a table to a variant when match returns true. Rules are
// evaluated in order and the first match wins.
type classifyRule struct {
	variant domain.Variant
	match   func(title string, rows []domain.RawRow) bool
}

var municipalityTokens = []string{"municipio", "munipicio", "estado"}

var classifyRules = []classifyRule{
	{
		variant: domain.VariantRestocking,
		match: func(title string, _ []domain.RawRow) bool {
			return strings.Contains(title, "reposicao")
		},
	},
	{
		variant: domain.VariantExternal,
		match: func(title string, _ []domain.RawRow) bool {
			return containsAny(title, "chicago", "new york")
		},
	},
	{
		variant: domain.VariantFutures,
		match: func(title string, _ []domain.RawRow) bool {
			return strings.Contains(title, "pregao regular") ||
				(strings.Contains(title, "pregao") && strings.Contains(title, "b3"))
		},
	},
	{
		variant: domain.VariantRegional,
		match: func(_ string, rows []domain.RawRow) bool {
			for _, row := range rows {
				if hasStateColumn(row) {
					return true
				}
				if v, ok := row.Get(positional(0)); ok && containsAny(Fold(v), municipalityTokens...) {
					return true
				}
			}
			return false
		},
	},
}

// Classify assigns a variant to a table from its title and sample rows.
// Tables that match no rule are simple indicators.
func Classify(title string, rows []domain.RawRow) domain.Variant {
	folded := Fold(title)
	for _, r := range classifyRules {
		if r.match(folded, rows) {
			return r.variant
		}
	}
	return domain.VariantSimple
}

func hasStateColumn(row domain.RawRow) bool {
	for _, c := range row {
		if c.Label == domain.SectionLabel {
			continue
		}
		if strings.Contains(Fold(c.Label), "estado") && strings.TrimSpace(c.Value) != "" {
			return true
		}
	}
	return false
}
