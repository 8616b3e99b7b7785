// Package textutil holds the content-policy text filters shared by the
// places client and the description normalizer.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
)

var urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)\S*`)

// urlTrailingPunct is kept after a stripped URL so sentence boundaries survive.
const urlTrailingPunct = `.,!?;:)]}"'`

// StripURLs removes http(s):// and bare www. tokens. Punctuation that closes
// the token is left in place.
func StripURLs(s string) string {
	return urlPattern.ReplaceAllStringFunc(s, func(m string) string {
		u := strings.TrimRight(m, urlTrailingPunct)
		return " " + m[len(u):]
	})
}

// StripEmoji removes emoji sequences and any stray emoji-range code points
// (joiners, variation selectors, regional indicators) left behind. Only
// non-ASCII runs go through gomoji so digits, '#' and '*' survive.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		i := strings.IndexFunc(s, func(r rune) bool { return r >= utf8.RuneSelf })
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		j := strings.IndexFunc(s, func(r rune) bool { return r < utf8.RuneSelf })
		if j < 0 {
			j = len(s)
		}
		b.WriteString(gomoji.RemoveEmojis(s[:j]))
		s = s[j:]
	}
	return strings.Map(func(r rune) rune {
		if IsEmojiRune(r) {
			return -1
		}
		return r
	}, b.String())
}

// IsEmojiRune reports whether r falls in a pictographic or emoji-modifier block.
func IsEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // mahjong through symbols & pictographs ext-A
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2300 && r <= 0x23FF, r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r == 0x200D, r == 0x20E3:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return false
}

// CollapseWhitespace turns every run of Unicode whitespace into one space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean strips URLs and emoji and collapses whitespace, repeating until the
// text is stable so that removals cannot splice a new URL together.
func Clean(s string) string {
	for {
		next := CollapseWhitespace(StripEmoji(StripURLs(s)))
		if next == s {
			return next
		}
		s = next
	}
}

// Truncate cuts s to at most n runes, trimming trailing space.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRightFunc(string(runes[:n]), unicode.IsSpace)
}
