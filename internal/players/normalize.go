package players

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a player name for identity matching: lowercase,
// diacritics stripped, punctuation dropped, whitespace collapsed.
// "José Ángel" and "jose angel" normalize to the same key.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	if stripped, _, err := transform.String(diacriticsRemover, name); err == nil {
		name = stripped
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
