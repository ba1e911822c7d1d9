package quote

import (
	"strconv"
	"strings"

	"agroquote/internal/domain"
)

// FieldRule locates one canonical field inside a raw row.
//
// Label patterns are folded substrings tried in priority order; for each
// pattern the row's cells are scanned left to right. A cell whose label
// contains any Exclude substring never matches. When no labeled cell
// yields an accepted value, the positional column_<Position> cell is used
// unless Position is negative.
type FieldRule struct {
	Patterns []string
	Exclude  []string
	Position int
	Accept   func(value string) bool
}

// ResolveField returns the first accepted non-empty value for rule.
func ResolveField(row domain.RawRow, rule FieldRule) (string, bool) {
	accept := func(v string) bool {
		if strings.TrimSpace(v) == "" {
			return false
		}
		return rule.Accept == nil || rule.Accept(v)
	}

	for _, p := range rule.Patterns {
		for _, c := range row {
			if c.Label == domain.SectionLabel {
				continue
			}
			label := Fold(c.Label)
			if !strings.Contains(label, p) || containsAny(label, rule.Exclude...) {
				continue
			}
			if accept(c.Value) {
				return strings.TrimSpace(c.Value), true
			}
		}
	}

	if rule.Position >= 0 {
		if v, ok := row.Get(positional(rule.Position)); ok && accept(v) {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ResolveNumber resolves rule restricted to values that parse as numbers.
func ResolveNumber(row domain.RawRow, rule FieldRule) *float64 {
	numeric := rule
	numeric.Accept = func(v string) bool {
		if rule.Accept != nil && !rule.Accept(v) {
			return false
		}
		_, ok := ParseNumber(v)
		return ok
	}
	v, ok := ResolveField(row, numeric)
	if !ok {
		return nil
	}
	return parseOptional(v)
}

func positional(i int) string {
	return "column_" + strconv.Itoa(i)
}
