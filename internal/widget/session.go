package widget

import (
	stdcontext "context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/embedchat/embedchat/internal/chat"
	"github.com/embedchat/embedchat/internal/citations"
	"github.com/embedchat/embedchat/internal/config"
	"github.com/embedchat/embedchat/internal/context"
	"github.com/embedchat/embedchat/internal/events"
	"github.com/embedchat/embedchat/internal/history"
	"github.com/embedchat/embedchat/internal/markdown"
	"github.com/embedchat/embedchat/internal/transport"
)

// Sender is the outbound transport the session talks through. Satisfied by
// *transport.Client; tests substitute fakes.
type Sender interface {
	Send(ctx stdcontext.Context, message string, history []chat.Message, traceID string) (*transport.Reply, error)
}

// StateChange is the payload published on every widget state event.
type StateChange struct {
	Message    *chat.Message        `json:"message,omitempty"`
	HTML       string               `json:"html,omitempty"`
	References []citations.Citation `json:"references,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Reply is a fully prepared assistant response: the raw content as stored,
// and the presentation form with citations resolved and references
// appended.
type Reply struct {
	Raw        string               `json:"raw"`
	HTML       string               `json:"html"`
	References []citations.Citation `json:"references"`
}

// Session is the state layer of one embedded chat widget. It owns the
// history store and runs the send pipeline: append, optimize, transport,
// resolve, render, persist, notify.
//
// A session serializes its own sends: a second Send while one is
// outstanding fails with transport.ErrSendInFlight instead of racing the
// first response into history.
type Session struct {
	cfg       config.WidgetConfig
	store     *history.Store
	optimizer *context.HistoryOptimizer
	resolver  *citations.Resolver
	renderer  *markdown.Renderer
	sender    Sender
	broker    *events.Broker[StateChange]
	sending   atomic.Bool
}

// NewSession creates a widget session and restores any prior snapshot from
// storage. broker may be nil when no consumer subscribes to state changes.
func NewSession(cfg config.WidgetConfig, storage history.SessionStorage, sender Sender, broker *events.Broker[StateChange]) *Session {
	store := history.NewStore(storage, cfg.MaxHistoryMessages)
	if store.Restore() {
		log.Printf("restored widget session %s with %d messages", store.TraceID(), store.Len())
	}

	return &Session{
		cfg:   cfg,
		store: store,
		optimizer: context.NewHistoryOptimizer(context.OptimizerOptions{
			MaxHistoryTokens:         cfg.MaxHistoryTokens,
			AlwaysKeepRecentMessages: cfg.AlwaysKeepRecentMessages,
		}),
		resolver: citations.NewResolver(),
		renderer: markdown.NewRenderer(),
		sender:   sender,
		broker:   broker,
	}
}

// Send runs one user message through the full pipeline and returns the
// prepared assistant reply. Transport failures come back classified; the
// user message stays in history either way so a retry resends naturally.
func (s *Session) Send(ctx stdcontext.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	if !s.sending.CompareAndSwap(false, true) {
		return nil, transport.ErrSendInFlight
	}
	defer s.sending.Store(false)

	s.store.MarkInteracted()
	userMsg := chat.NewUserMessage(text)
	s.store.Append(userMsg)
	s.persist()
	s.publish(events.EventMessageAppended, StateChange{Message: &userMsg})

	optimized := s.optimizer.Optimize(s.store.Messages())

	reply, err := s.sender.Send(ctx, text, optimized, s.store.TraceID())
	if err != nil {
		s.publish(events.EventSendFailed, StateChange{Error: UserMessage(err)})
		return nil, err
	}

	s.store.SetTraceID(reply.TraceID)
	assistantMsg := chat.NewAssistantMessage(reply.Content)
	s.store.Append(assistantMsg)
	s.store.Trim()
	s.persist()
	s.publish(events.EventMessageAppended, StateChange{Message: &assistantMsg})

	prepared, err := s.prepare(reply.Content, reply.Sources)
	if err != nil {
		return nil, err
	}
	s.publish(events.EventReplyResolved, StateChange{
		Message:    &assistantMsg,
		HTML:       prepared.HTML,
		References: prepared.References,
	})
	return prepared, nil
}

// prepare renders assistant markdown and resolves citations against the
// reply's sources.
func (s *Session) prepare(content string, sources []citations.SourceRecord) (*Reply, error) {
	rendered, err := s.renderer.Render(content)
	if err != nil {
		return nil, fmt.Errorf("failed to render reply: %w", err)
	}

	resolution := s.resolver.Resolve(rendered, sources)
	html := resolution.Text
	if refs := citations.ReferencesHTML(resolution.References); refs != "" {
		html += refs
	}

	return &Reply{Raw: content, HTML: html, References: resolution.References}, nil
}

// Clear resets the conversation. The interaction flag survives and the
// welcome message reappears on the presentation side only.
func (s *Session) Clear() {
	s.store.Clear()
	s.persist()
	s.publish(events.EventHistoryCleared, StateChange{})
}

// History returns a copy of the stored conversation.
func (s *Session) History() []chat.Message {
	return s.store.Messages()
}

// HasInteracted reports whether the user has sent anything yet.
func (s *Session) HasInteracted() bool {
	return s.store.HasInteracted()
}

// TraceID returns the session continuity token.
func (s *Session) TraceID() string {
	return s.store.TraceID()
}

// WelcomeHTML renders the configured welcome message. The welcome message
// is presentation-only; it is never part of the history.
func (s *Session) WelcomeHTML() string {
	if s.cfg.WelcomeMessage == "" {
		return ""
	}
	html, err := s.renderer.Render(s.cfg.WelcomeMessage)
	if err != nil {
		return ""
	}
	return html
}

// Persist flushes the session snapshot, e.g. on widget open/close.
func (s *Session) Persist() {
	s.persist()
}

func (s *Session) persist() {
	if err := s.store.Persist(); err != nil {
		log.Printf("failed to persist widget session: %v", err)
	}
}

func (s *Session) publish(eventType events.EventType, payload StateChange) {
	if s.broker != nil {
		s.broker.Publish(eventType, payload)
	}
}

// UserMessage translates a transport failure into the message shown in the
// widget. Retrying is left to the user.
func UserMessage(err error) string {
	if errors.Is(err, transport.ErrSendInFlight) {
		return "Please wait for the current reply to finish."
	}
	var sendErr *transport.SendError
	if !errors.As(err, &sendErr) {
		return "Something went wrong. Please try again."
	}
	switch sendErr.Category {
	case transport.ErrorNetwork:
		return "Connection problem. Check your network and try again."
	case transport.ErrorTimeout:
		return "The request timed out. Please try again."
	case transport.ErrorRateLimit:
		return "Too many requests right now. Wait a moment and try again."
	case transport.ErrorServer:
		return "The assistant is having trouble. Please try again shortly."
	case transport.ErrorAuth:
		return "This chat is not available right now."
	case transport.ErrorClient:
		return "That message could not be processed."
	default:
		return "Something went wrong. Please try again."
	}
}
