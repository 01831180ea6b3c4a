package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes text for case- and diacritic-insensitive comparison:
// "Pêche " and "peche" fold to the same key.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(text))
	if err != nil {
		stripped = strings.TrimSpace(text)
	}
	return cases.Fold().String(stripped)
}
