// Package textnorm turns free-form search input into a lowercase ASCII token
// sequence that is safe to use in LIKE predicates.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into an ASCII base plus combining marks.
var letterFolds = strings.NewReplacer(
	"ñ", "n",
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"đ", "d",
	"ð", "d",
	"ł", "l",
	"þ", "th",
)

// Normalize lowercases s, strips diacritics, keeps only [a-z0-9 ], collapses
// whitespace and trims. Single quotes are doubled for literal safety, although
// after filtering none can remain. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = letterFolds.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err == nil {
		s = stripped
	}
	// Some precomposed letters (ñ in NFC input) only fold after decomposition.
	s = letterFolds.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	return strings.ReplaceAll(out, "'", "''")
}

// Tokens normalizes s and splits it on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// EscapeLiteral doubles single quotes so v can sit inside a SQL string literal.
func EscapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
