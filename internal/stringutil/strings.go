// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FoldAccents removes combining diacritical marks, so "información" becomes
// "informacion" and "MUÑOZ" becomes "MUNOZ". Returns s unchanged on failure.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases s and removes accents. Used for keyword matching only;
// user-provided values (names, CURPs) keep their original spelling.
func Fold(s string) string {
	return strings.ToLower(FoldAccents(s))
}

// NormalizeWhitespace trims s and collapses runs of whitespace into one space.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Words splits s into runs of letters and digits. Punctuation separates words.
//
// Example:
//
//	Words("¿Quién es él?") returns ["Quién", "es", "él"]
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsAlphabetic reports whether s is non-empty and made only of letters.
func IsAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// TruncateRunes shortens s to at most n runes, appending "…" when cut.
// Safe for multi-byte text in log fields.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
