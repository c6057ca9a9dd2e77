package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks covers the Combining Diacritical Marks block (U+0300–U+036F).
var combiningMarks = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
})

// NormalizeTitle folds a title to a comparable ASCII form.
func NormalizeTitle(value string) string {
	lowered := strings.ToLower(value)
	decomposed, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(combiningMarks)), lowered)
	if err != nil {
		decomposed = lowered
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize returns the words of the normalized title.
func Tokenize(value string) []string {
	return strings.Fields(NormalizeTitle(value))
}
