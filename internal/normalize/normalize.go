// Package normalize canonicalizes vendor names and bank descriptions before
// they are compared.
package normalize

import (
	"strings"
	"unicode"
)

// corporateSuffixes are dropped wherever they appear as a whole token.
var corporateSuffixes = map[string]bool{
	"inc":         true,
	"llc":         true,
	"ltd":         true,
	"corp":        true,
	"co":          true,
	"company":     true,
	"corporation": true,
	"limited":     true,
}

// Normalize lowercases s, removes corporate suffix tokens, strips
// punctuation and collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		// "Inc." and "Co," are suffixes with trailing punctuation.
		if corporateSuffixes[strings.TrimRightFunc(f, unicode.IsPunct)] {
			continue
		}
		f = stripPunct(f)
		// Stripping can expose a suffix ("l.l.c." -> "llc") or empty the token.
		if f == "" || corporateSuffixes[f] {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Tokens returns the normalized tokens of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
