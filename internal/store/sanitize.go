package store

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxTableNameLen = 50

var (
	unsafeChars    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorsRun  = regexp.MustCompile(`[\s-]+`)
	unnamedTableID = "unnamed"
)

// SanitizeTableName turns a table title into a directory name: punctuation
// is dropped, whitespace and dash runs become one underscore, the result is
// lower-cased and capped at 50 characters.
func SanitizeTableName(name string) string {
	s := unsafeChars.ReplaceAllString(name, "")
	s = separatorsRun.ReplaceAllString(s, "_")
	s = strings.ToLower(strings.Trim(s, "_"))

	if utf8.RuneCountInString(s) > maxTableNameLen {
		s = strings.TrimRight(string([]rune(s)[:maxTableNameLen]), "_")
	}
	if s == "" {
		return unnamedTableID
	}
	return s
}
