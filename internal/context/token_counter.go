package context

import (
	"unicode/utf8"

	"github.com/embedchat/embedchat/internal/chat"
)

// charsPerToken is the average number of characters per token for the
// OpenAI-style tokenizers the widget talks to. Four is a reasonable fit for
// English prose and close enough for budgeting purposes.
const charsPerToken = 4

// TokenEstimator approximates token counts from character length. The
// numbers it produces are estimates for budget decisions, not exact
// tokenizer output; do not use them for billing.
type TokenEstimator struct{}

// NewTokenEstimator creates a new token estimator.
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{}
}

// Estimate returns the approximate token count of text, rounding up.
// Empty text yields zero.
func (te *TokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	return (chars + charsPerToken - 1) / charsPerToken
}

// EstimateMessages sums the estimated token counts of all message contents.
func (te *TokenEstimator) EstimateMessages(messages []chat.Message) int {
	total := 0
	for _, m := range messages {
		total += te.Estimate(m.Content)
	}
	return total
}
