package client

import (
	"fmt"
	"strings"

	"github.com/parallaxchat/parallax/provider"
)

// FallbackSummary is shown when the evaluation pass cannot produce one.
const FallbackSummary = "The comparative summary is unavailable right now."

// evaluationInstruction fixes the summary's shape so every run renders the
// same structure: majority view, minority view, then the breakdown heading.
const evaluationInstruction = `You will be shown a user's prompt and the answers several AI assistants gave to it.
Write a neutral, non-judgmental comparative summary. Do not pick a winner and do not rate the assistants.
Start with a single sentence stating the view the majority of the answers share.
Follow with a single sentence noting any minority view, or stating that there is none.
Then write the literal heading "Detailed Breakdown:" and, under it, bullet notes on the concrete differences and similarities between the answers.`

// BuildEvaluationPrompt deterministically assembles the follow-up prompt
// from the original prompt and every successful provider's labeled response.
// Providers appear in canonical order, so the same inputs always produce the
// same prompt.
func BuildEvaluationPrompt(originalPrompt string, responses map[provider.Key]string) string {
	var sb strings.Builder
	sb.WriteString(evaluationInstruction)
	sb.WriteString("\n\nOriginal prompt:\n")
	sb.WriteString(originalPrompt)
	sb.WriteString("\n\nAnswers:\n")
	for _, key := range provider.Keys() {
		text, ok := responses[key]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n%s\n", key.Label(), text)
	}
	return sb.String()
}
