package strings

import (
	"strings"
	"unicode/utf8"
)

// MinTruncateLen is the smallest width Truncate accepts; it leaves room for
// one character plus "...".
const MinTruncateLen = 4

// Ellipsis marks truncated text.
const Ellipsis = "..."

// SingleLine collapses every run of whitespace, newlines included, into one
// space so a value fits a table cell.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most maxLen runes, ending in Ellipsis when
// anything was cut. maxLen below MinTruncateLen is raised to it.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
}

// TruncateCell prepares a value for table output: single line, at most
// maxLen runes.
func TruncateCell(s string, maxLen int) string {
	return Truncate(SingleLine(s), maxLen)
}
