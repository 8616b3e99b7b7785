package enrichment

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

const systemInstructions = `You write short place descriptions for a local recommendations map.
Write like a well-travelled local friend: warm, specific and grounded in the details you are given.
Lead with the vibe and atmosphere of the place, then what it is good for.
Write 3 to 5 sentences of plain prose.
Do not use emoji.
Do not use bullet points or lists.
Do not include links or URLs.
Avoid marketing language and tourist cliches such as "hidden gem", "must-visit" or "something for everyone".
Do not invent facts that are not supported by the data.`

const userHeader = "Write a description for the place below using only the data provided."

// BuildPrompt renders the instructions for one place. Lines are emitted only
// for fields that carry data.
func BuildPrompt(aiCtx types.AiContext) types.Prompt {
	name := strings.TrimSpace(aiCtx.Name)
	if name == "" {
		name = "this place"
	}

	var b strings.Builder
	b.WriteString(userHeader)
	b.WriteString("\n\nPlace name: ")
	b.WriteString(name)

	var data []string
	if addr := strings.TrimSpace(aiCtx.FormattedAddress); addr != "" {
		data = append(data, "Address: "+addr)
	}
	if placeTypes := nonEmpty(aiCtx.Types); len(placeTypes) > 0 {
		data = append(data, "Types: "+strings.Join(placeTypes, ", "))
	}
	if aiCtx.Rating != nil {
		rating := fmt.Sprintf("Rating: %.1f", *aiCtx.Rating)
		if aiCtx.RatingCount != nil {
			rating += fmt.Sprintf(" (%d ratings)", *aiCtx.RatingCount)
		}
		data = append(data, rating)
	}
	if summary := strings.TrimSpace(aiCtx.EditorialSummary); summary != "" {
		data = append(data, "Editorial summary: "+summary)
	}
	if snippets := nonEmpty(aiCtx.ReviewSnippets); len(snippets) > 0 {
		lines := make([]string, 0, len(snippets)+1)
		lines = append(lines, "Review snippets:")
		for _, s := range snippets {
			lines = append(lines, "- "+s)
		}
		data = append(data, strings.Join(lines, "\n"))
	}

	if len(data) > 0 {
		b.WriteString("\n\nGoogle data:\n")
		b.WriteString(strings.Join(data, "\n"))
	}

	return types.Prompt{System: systemInstructions, User: b.String()}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
