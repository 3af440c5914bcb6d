// Package slug derives URL identifiers for genres and categories.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug the catalog stores.
const MaxLength = 50

var (
	valid       = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// From turns a display name into a lowercase ASCII slug: accents are
// stripped, anything outside [a-z0-9_] becomes a hyphen, and the result is cut
// to MaxLength. It returns "" when nothing usable is left.
func From(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		default:
			return '-'
		}
	}, result)

	result = multiHyphen.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

// Valid reports whether s may be used as a slug as given.
func Valid(s string) bool {
	return len(s) <= MaxLength && valid.MatchString(s)
}
