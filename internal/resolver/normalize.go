package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NonVintage is the vintage slot sentinel for wines without a year. It can
// never collide with a real vintage because normalized parts are lowercase
// and vintages are digits.
const NonVintage = "NV"

// KeySeparator joins the three parts of a lookup key.
const KeySeparator = "|"

// stripMarks removes combining marks after NFD decomposition, turning
// "Château" into "Chateau".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// asciiFold covers letters that survive mark-stripping because they are
// standalone code points, not base+combining pairs.
var asciiFold = strings.NewReplacer(
	"æ", "ae", "œ", "oe", "ø", "o", "ß", "ss", "đ", "d", "ð", "d", "þ", "th", "ł", "l",
)

// Normalize turns free label text into its canonical lookup form: accents
// transliterated, lowercased, everything outside [a-z0-9 -] dropped,
// whitespace collapsed, spaces replaced with hyphens. The function is
// idempotent, so keys can safely be re-normalized.
func Normalize(text string) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		// Transliteration is best-effort. Fall through with the raw text
		// and let the character filter below produce an ASCII approximation.
		folded = text
	}
	folded = asciiFold.Replace(strings.ToLower(folded))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.ReplaceAll(strings.Join(strings.Fields(b.String()), " "), " ", "-")
}

// BuildKey derives the deterministic lookup key for a wine:
// normalize(producer) | normalize(wine) | vintage-or-NV.
func BuildKey(producer, wine, vintage string) string {
	v := strings.TrimSpace(vintage)
	if v == "" {
		v = NonVintage
	}
	return Normalize(producer) + KeySeparator + Normalize(wine) + KeySeparator + v
}

// SplitKey breaks a lookup key back into its three parts. Returns empty
// strings when the key is malformed.
func SplitKey(key string) (producer, wine, vintage string) {
	parts := strings.SplitN(key, KeySeparator, 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}
