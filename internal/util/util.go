// Package util provides common string helpers used across trackdash.
package util

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const utf8BOM = "\uFEFF"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// NormalizeHeader turns a CSV header cell into a comparable key.
// Strips a leading BOM, surrounding quotes and whitespace, and lowercases.
// Input: `"Ship type" ` -> `ship type`
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)
	s = strings.TrimSpace(s)
	s = FixEscapeQuotes(TrimQuotes(s))
	return strings.ToLower(strings.TrimSpace(s))
}

// IndexHeaders maps normalized header names to their column index.
// The first occurrence of a duplicated header wins.
func IndexHeaders(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// CleanLabel trims whitespace from a category label.
// Empty and whitespace-only labels collapse to "".
func CleanLabel(s string) string {
	return strings.TrimSpace(s)
}

// ToUTF8 returns s unchanged when it is valid UTF-8. Anything else is read
// as ISO-8859-1, which maps every byte to a rune, so legacy exports such as
// "Fiske\xf8r" come out as "Fiskeør".
func ToUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return out
}

// ToUTF8Record applies ToUTF8 to every cell in place.
func ToUTF8Record(rec []string) []string {
	for i := range rec {
		rec[i] = ToUTF8(rec[i])
	}
	return rec
}
