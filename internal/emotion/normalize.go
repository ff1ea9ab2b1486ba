package emotion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize pasa a minúsculas y elimina diacríticos: "Café" y "cafe" son equivalentes.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

// tokens separa por espacios y recorta la puntuación de los bordes de cada token.
func tokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}
