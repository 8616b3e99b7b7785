package enrichment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-place-enrichment/internal/textutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "two sentences are kept",
			input: "A calm deck over the bay. Come at golden hour.",
			want:  "A calm deck over the bay. Come at golden hour.",
		},
		{
			name:  "seven sentences keep the first five",
			input: "One. Two! Three? Four. Five. Six. Seven.",
			want:  "One. Two! Three? Four. Five.",
		},
		{
			name:  "urls and emoji are removed",
			input: "Sunsets here are unreal 🌅. Menu at https://example.com/menu and www.example.com. Go early.",
			want:  "Sunsets here are unreal . Menu at and . Go early.",
		},
		{
			name:  "whitespace collapsed",
			input: "  Quiet   corner.\n\nGood coffee.\tFriendly staff.  ",
			want:  "Quiet corner. Good coffee. Friendly staff.",
		},
		{
			name:  "sentence ending in a url still splits",
			input: "Great (see https://x.y). Nice! Fine? Yes. Wow. More. Extra.",
			want:  "Great (see ). Nice! Fine? Yes. Wow.",
		},
		{
			name:  "unicode whitespace collapsed",
			input: "Calm\u2003\u2003spot. Good\vtea\v\vhere.\u00a0Quiet.",
			want:  "Calm spot. Good tea here. Quiet.",
		},
		{
			name:  "decimal points do not split",
			input: "Rated 4.6 by locals. Open late.",
			want:  "Rated 4.6 by locals. Open late.",
		},
		{
			name:  "empty",
			input: "  🌅 https://x.y ",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeInvariants(t *testing.T) {
	inputs := []string{
		"",
		"Plain.",
		"One. Two. Three. Four. Five. Six. Seven. Eight.",
		"Wow!! So good?! Yes... really. ok",
		"Visit http://a.b/c 🍹🍹 now.   Then   www.d.e!",
		"ww🌅w.example.com is spliced. Still fine.",
		"Emoji 👨‍👩‍👧 family 🇵🇹 flag ☕ coffee. Next one.",
		strings.Repeat("Long sentence with words. ", 12),
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "idempotence for %q", in)

		lower := strings.ToLower(once)
		assert.NotContains(t, lower, "http://")
		assert.NotContains(t, lower, "https://")
		assert.NotContains(t, lower, "www.")
		for _, r := range once {
			assert.False(t, textutil.IsEmojiRune(r), "emoji %U in %q", r, once)
		}
		assert.LessOrEqual(t, len(splitSentences(once)), maxSentences)
		assert.NotContains(t, once, "  ")
	}
}
