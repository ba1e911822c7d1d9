package quote

import (
	"regexp"
	"strconv"
	"strings"
)

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// ParseNumber converts a Brazilian-formatted numeric string such as
// "1.246,72" or "+1,2" into a float. ok is false for empty input, for
// link/footer text and for anything that does not reduce to a number.
func ParseNumber(s string) (v float64, ok bool) {
	if s == "" {
		return 0, false
	}
	if folded := Fold(s); containsAny(folded, "ver historico", "atualizado") {
		return 0, false
	}

	s = strings.TrimLeft(strings.TrimSpace(s), "+")
	if strings.Contains(s, ",") {
		// Decimal comma: dots are thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = nonNumeric.ReplaceAllString(s, "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseOptional is ParseNumber returning nil on failure.
func parseOptional(s string) *float64 {
	v, ok := ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}
