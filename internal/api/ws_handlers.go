package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/embedchat/embedchat/internal/chat"
	"github.com/embedchat/embedchat/internal/events"
	"github.com/embedchat/embedchat/internal/history"
	"github.com/embedchat/embedchat/internal/transport"
	"github.com/embedchat/embedchat/internal/widget"
)

const wsWriteTimeout = 10 * time.Second

// wsCommand is an inbound frame from the embedding page.
type wsCommand struct {
	Type    string `json:"type"` // "send" or "clear"
	Message string `json:"message,omitempty"`
}

// wsEvent is an outbound frame: either the initial session state or a
// widget state-change event.
type wsEvent struct {
	Type      string             `json:"type"`
	Payload   widget.StateChange `json:"payload,omitempty"`
	History   []chat.Message     `json:"history,omitempty"`
	Welcome   string             `json:"welcome,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// upstreamSender adapts the proxy's upstream client to the widget's
// transport contract so server-hosted sessions skip the HTTP hop.
type upstreamSender struct {
	upstream *Upstream
}

func (us *upstreamSender) Send(ctx context.Context, message string, hist []chat.Message, traceID string) (*transport.Reply, error) {
	content, err := us.upstream.Complete(ctx, message, hist, "")
	if err != nil {
		status := upstreamStatus(err)
		return nil, &transport.SendError{
			Category:   transport.ClassifyStatus(status),
			StatusCode: status,
			Message:    err.Error(),
		}
	}
	return &transport.Reply{Content: content, TraceID: traceID}, nil
}

// handleWidgetWebSocket hosts one widget session per connection. The
// browser side renders; all conversation state lives here.
func (s *Server) handleWidgetWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	broker := events.NewBroker[widget.StateChange]()
	defer broker.Shutdown()
	eventCh := broker.Subscribe(ctx)

	session := widget.NewSession(
		s.cfg.Widget,
		s.sessionStorage(r),
		&upstreamSender{upstream: s.upstream},
		broker,
	)

	// gorilla/websocket allows one concurrent writer; everything outbound
	// funnels through this goroutine.
	writes := make(chan wsEvent, 16)
	go func() {
		for {
			select {
			case ev := <-writes:
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for ev := range eventCh {
			select {
			case writes <- wsEvent{Type: string(ev.Type), Payload: ev.Payload, Timestamp: ev.Timestamp.Unix()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	writes <- wsEvent{
		Type:      "session.init",
		History:   session.History(),
		Welcome:   session.WelcomeHTML(),
		Timestamp: time.Now().Unix(),
	}

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			session.Persist()
			return
		}

		switch cmd.Type {
		case "send":
			// Errors surface to the page as send.failed events; nothing
			// else to do here.
			if _, err := session.Send(ctx, cmd.Message); err != nil {
				s.logger.Warn("widget send failed", "trace", session.TraceID(), "error", err)
			}
		case "clear":
			session.Clear()
		default:
			s.logger.Warn("unknown widget command", "type", cmd.Type)
		}
	}
}

// sessionStorage picks the snapshot backend for a connection: file-backed
// under the configured session directory when a session key is supplied,
// in-memory otherwise.
func (s *Server) sessionStorage(r *http.Request) history.SessionStorage {
	dir := s.cfg.Widget.SessionDir
	if dir == "" {
		return history.NewMemoryStorage()
	}
	key := r.URL.Query().Get("session")
	if key == "" || uuid.Validate(key) != nil {
		key = uuid.NewString()
	}
	storage, err := history.NewFileStorage(filepath.Join(dir, key))
	if err != nil {
		s.logger.Warn("falling back to in-memory session storage", "error", err)
		return history.NewMemoryStorage()
	}
	return storage
}
