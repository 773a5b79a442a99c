package context

import (
	"regexp"
	"strings"

	"github.com/embedchat/embedchat/internal/chat"
)

const (
	// userMessageLength is the truncation limit for historical user messages.
	userMessageLength = 500
	// compressedMessageLength is the fallback truncation limit for assistant
	// messages with no sentence boundary near the start.
	compressedMessageLength = 200
)

var (
	fencedCodeRe    = regexp.MustCompile("(?s)```.*?```")
	citationMarkRe  = regexp.MustCompile(`\[\d+\]`)
	markdownMarkRe  = regexp.MustCompile(`[#*_]+`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
	firstSentenceRe = regexp.MustCompile(`^[^.!?]*[.!?]`)
)

// MessageCompressor reduces historical messages to short summaries while
// preserving role semantics. Compression is lossy and one-directional; it is
// applied only to the view sent upstream, never to stored history.
type MessageCompressor struct{}

// NewMessageCompressor creates a new message compressor.
func NewMessageCompressor() *MessageCompressor {
	return &MessageCompressor{}
}

// Compress returns a shortened copy of the message with the same role.
// User messages are truncated; assistant messages are cleaned of markup and
// reduced to their first sentence. Other roles pass through unchanged.
func (mc *MessageCompressor) Compress(m chat.Message) chat.Message {
	switch m.Role {
	case chat.RoleUser:
		return chat.Message{Role: m.Role, Content: truncateRunes(m.Content, userMessageLength)}
	case chat.RoleAssistant:
		return chat.Message{Role: m.Role, Content: mc.compressAssistant(m.Content)}
	default:
		return m
	}
}

// compressAssistant strips code blocks, citation markers and markdown
// decoration, then keeps the first sentence of what remains.
func (mc *MessageCompressor) compressAssistant(content string) string {
	cleaned := fencedCodeRe.ReplaceAllString(content, "[code]")
	cleaned = citationMarkRe.ReplaceAllString(cleaned, "")
	cleaned = markdownMarkRe.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRunRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	summary := cleaned
	if sentence := firstSentenceRe.FindString(cleaned); sentence != "" {
		summary = strings.TrimSpace(sentence)
	} else {
		summary = truncateRunes(cleaned, compressedMessageLength)
	}

	if len(summary) < len(cleaned) {
		summary += "..."
	}
	return summary
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
