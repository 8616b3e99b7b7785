package enrichment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/go-place-enrichment/internal/textutil"
)

const maxSentences = 5

// Normalize applies the content policy to generated text: no URLs, no emoji,
// single spaces, and at most five sentences. Texts with fewer than three
// sentences are kept whole. Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	cleaned := textutil.Clean(raw)
	if cleaned == "" {
		return ""
	}
	sentences := splitSentences(cleaned)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

// splitSentences cuts after '.', '!' or '?' when the next rune is whitespace.
func splitSentences(s string) []string {
	var sentences []string
	start := 0
	for i, r := range s {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(s) {
			break
		}
		if nr, _ := utf8.DecodeRuneInString(s[next:]); unicode.IsSpace(nr) {
			if sentence := strings.TrimSpace(s[start:next]); sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = next
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
