// Package slug turns titles and tag names into URL-safe identifiers.
package slug

import (
	"strings"
	"unicode"
)

// Make lowercases text, keeps letters and digits, treats spaces and hyphens
// as word separators and joins the words with a single hyphen. Everything
// else is dropped. Symbol-only input yields "".
//
// Make(Make(s)) == Make(s) for every s.
func Make(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSep := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-':
			pendingSep = true
		}
	}
	return b.String()
}
