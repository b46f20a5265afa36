// Package showkey canonicalizes free-text show names into matching keys.
//
// Two different raw names may share a key ("Wicked — Temporada 2025" and
// "WICKED (Nuevo Teatro Alcalá)" both become "wicked"); exclusion matching
// and ordering rely on that grouping.
package showkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// descriptorCuts introduce season/venue descriptors; everything from the
// first of them onward is dropped.
const descriptorCuts = "—:–-("

// Normalize returns the matching key for raw. It never fails; an empty or
// all-descriptor input yields "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	t := stripMarks(strings.ToLower(raw))

	if i := strings.IndexAny(t, descriptorCuts); i >= 0 {
		t = t[:i]
	}

	t = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, t)

	return strings.Join(strings.Fields(t), " ")
}

// stripMarks decomposes s and drops combining diacritics (á -> a, ñ -> n).
func stripMarks(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, s)
	if err != nil {
		return s
	}
	return out
}
