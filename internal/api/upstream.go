package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/embedchat/embedchat/internal/chat"
	"github.com/embedchat/embedchat/internal/config"
)

// Upstream wraps the OpenAI-compatible completion API the proxy forwards
// to. Any endpoint speaking the chat completions protocol works; the base
// URL comes from configuration.
type Upstream struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewUpstream creates an upstream client from proxy configuration.
func NewUpstream(cfg config.ProxyConfig) *Upstream {
	timeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Upstream{
		// Retrying is a user-triggered action in the widget; the proxy
		// reports upstream failures instead of retrying behind its back.
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.UpstreamURL),
			option.WithMaxRetries(0),
		),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Complete forwards a conversation to the upstream and returns the
// assistant's reply content. The message is appended after the history
// unless the history already ends with it.
func (u *Upstream) Complete(ctx context.Context, message string, history []chat.Message, model string) (string, error) {
	if model == "" {
		model = u.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	if len(history) == 0 || history[len(history)-1].Role != chat.RoleUser || history[len(history)-1].Content != message {
		messages = append(messages, openai.UserMessage(message))
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	completion, err := u.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("upstream returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// upstreamStatus extracts the HTTP status of an upstream failure, or 502
// when the failure carries none (network errors, timeouts).
func upstreamStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return apiErr.StatusCode
	}
	return 502
}
