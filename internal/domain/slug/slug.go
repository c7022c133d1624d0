// Package slug derives URL-safe slugs from titles.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters that do not decompose under NFD
var special = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "ø", "o", "Ø", "o",
	"đ", "d", "Đ", "d", "ł", "l", "Ł", "l", "œ", "oe", "Œ", "oe",
)

// Make lowercases title, strips diacritics, collapses every run of
// non-alphanumeric characters into a single "-" and trims leading and
// trailing dashes. "Sala Mare" becomes "sala-mare"; "Grădina Botanică" becomes "gradina-botanica".
func Make(title string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		special.Replace(title),
	)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	b.Grow(len(stripped))
	dash := false
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
