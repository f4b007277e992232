package threat

import (
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// confusables maps characters that are visually near-identical to an ASCII
// letter onto that letter: Cyrillic look-alikes plus digit-for-letter
// substitutions. A hit anywhere in scanned content is a spoofing signal.
var confusables = map[rune]rune{
	'а': 'a', // U+0430 CYRILLIC SMALL A
	'Ь': 'b',
	'б': 'b',
	'с': 'c',
	'е': 'e',
	'н': 'h',
	'і': 'i',
	'о': 'o',
	'р': 'p',
	'ѕ': 's',
	'т': 't',
	'х': 'x',
	'у': 'y',
	'1': 'l',
}

// containsConfusables reports whether s holds any character from the
// confusable table.
func containsConfusables(s string) bool {
	for _, r := range s {
		if _, ok := confusables[r]; ok {
			return true
		}
	}
	return false
}

// asciiFold transliterates s to its closest ASCII form: combining marks are
// stripped after NFKD decomposition and confusable characters are replaced
// by the ASCII letter they imitate.
func asciiFold(s string) string {
	stripped, _, err := transform.String(transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if ascii, ok := confusables[r]; ok {
			b.WriteRune(ascii)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isHomographAttack reports whether the punycode-decoded domain contains
// confusable characters relative to its ASCII transliteration, i.e. a
// domain crafted to impersonate another.
func isHomographAttack(domain string) bool {
	decoded, err := idna.ToUnicode(domain)
	if err != nil {
		decoded = domain
	}
	return containsConfusables(decoded)
}
