package context

import (
	"strings"
	"testing"

	"github.com/embedchat/embedchat/internal/chat"
)

func TestMessageCompressor_UserMessages(t *testing.T) {
	mc := NewMessageCompressor()

	t.Run("short user message unchanged", func(t *testing.T) {
		msg := chat.NewUserMessage("how do I reset my password?")
		got := mc.Compress(msg)
		if got.Role != chat.RoleUser {
			t.Errorf("role changed to %q", got.Role)
		}
		if got.Content != msg.Content {
			t.Errorf("short message modified: %q", got.Content)
		}
	})

	t.Run("long user message truncated to 500", func(t *testing.T) {
		msg := chat.NewUserMessage(strings.Repeat("q", 800))
		got := mc.Compress(msg)
		if len([]rune(got.Content)) != 500 {
			t.Errorf("truncated length = %d, expected 500", len([]rune(got.Content)))
		}
	})
}

func TestMessageCompressor_AssistantMessages(t *testing.T) {
	mc := NewMessageCompressor()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "first sentence kept",
			input:    "The answer is 42. Here is a much longer explanation that should be dropped entirely.",
			expected: "The answer is 42....",
		},
		{
			name:     "code block replaced",
			input:    "Use this:\n```go\nfmt.Println(\"hi\")\n```\nDone. More text follows here.",
			expected: "Use this: [code] Done....",
		},
		{
			name:     "citation markers stripped",
			input:    "See the docs [1] for details [2]. Trailing text.",
			expected: "See the docs for details ....",
		},
		{
			name:     "markdown markers stripped",
			input:    "# Heading\n**Bold** answer here. And more.",
			expected: "Heading Bold answer here....",
		},
		{
			name:     "single sentence without trailing text",
			input:    "Just one sentence.",
			expected: "Just one sentence.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mc.Compress(chat.NewAssistantMessage(tt.input))
			if got.Role != chat.RoleAssistant {
				t.Errorf("role changed to %q", got.Role)
			}
			if got.Content != tt.expected {
				t.Errorf("Compress() = %q, expected %q", got.Content, tt.expected)
			}
		})
	}
}

func TestMessageCompressor_NoSentenceBoundary(t *testing.T) {
	mc := NewMessageCompressor()

	input := strings.Repeat("word ", 100) // no terminator anywhere
	got := mc.Compress(chat.NewAssistantMessage(input))

	if !strings.HasSuffix(got.Content, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got.Content)
	}
	body := strings.TrimSuffix(got.Content, "...")
	if len([]rune(body)) > compressedMessageLength {
		t.Errorf("body length = %d, expected <= %d", len([]rune(body)), compressedMessageLength)
	}
}

// Compression never grows content beyond the cleaned length plus the
// ellipsis, and user compression never grows content at all.
func TestMessageCompressor_Monotonicity(t *testing.T) {
	mc := NewMessageCompressor()

	inputs := []string{
		"short",
		strings.Repeat("a", 1000),
		"Sentence one. Sentence two. Sentence three.",
		"```\ncode\n``` trailing prose with no end",
	}

	for _, input := range inputs {
		user := mc.Compress(chat.NewUserMessage(input))
		if len(user.Content) > len(input) {
			t.Errorf("user compression grew %d -> %d", len(input), len(user.Content))
		}
		assistant := mc.Compress(chat.NewAssistantMessage(input))
		if len(assistant.Content) > len(input)+len("...")+len("[code]") {
			t.Errorf("assistant compression grew %d -> %d", len(input), len(assistant.Content))
		}
	}
}

func TestMessageCompressor_SystemPassthrough(t *testing.T) {
	mc := NewMessageCompressor()

	msg := chat.Message{Role: chat.RoleSystem, Content: "You are a helpful assistant. Be brief."}
	got := mc.Compress(msg)
	if got != msg {
		t.Errorf("system message modified: %+v", got)
	}
}
