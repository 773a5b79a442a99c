package chat

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a conversation. Messages are immutable once
// created; ordering is chronological and append-only.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Snapshot is the serialized form of a widget session that survives across
// page loads within a browser session.
type Snapshot struct {
	History       []Message `json:"history"`
	HasInteracted bool      `json:"hasInteracted"`
	TraceID       string    `json:"traceId"`
}
