// Package slug derives URL- and filter-safe identifiers from display names.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ligatures  = strings.NewReplacer("ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "ł", "l")
)

// Make lowercases name, drops diacritics and collapses every run of
// characters outside [a-z0-9] into a single underscore.
//
//	Make("Größe (cm)") == "grosse_cm"
func Make(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = ligatures.Replace(strings.ToLower(folded))

	var b strings.Builder
	pending := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Unique returns Make(name), suffixed with _2, _3, ... until taken reports false.
func Unique(name string, taken func(string) bool) string {
	base := Make(name)
	if base == "" {
		base = "field"
	}
	candidate := base
	for i := 2; taken(candidate); i++ {
		candidate = base + "_" + strconv.Itoa(i)
	}
	return candidate
}
