package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/embedchat/embedchat/internal/chat"
)

// chatRequest is the wire contract the widget posts. History arrives
// already optimized by the widget's state layer; the proxy forwards it
// as-is.
type chatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
	Model   string         `json:"model"`
	TraceID string         `json:"traceId"`
}

// chatResponse mirrors the OpenAI choices shape the widget expects.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	TraceID string       `json:"traceId"`
}

type chatChoice struct {
	Message chatChoiceMessage `json:"message"`
}

type chatChoiceMessage struct {
	Content string `json:"content"`
}

const maxMessageLength = 4000

// handleChat forwards one chat turn to the upstream completion API.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Proxy.APIKey == "" {
		s.writeError(w, "proxy is not configured", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.writeError(w, "message is required", http.StatusBadRequest)
		return
	}
	if len(req.Message) > maxMessageLength {
		s.writeError(w, "message too long", http.StatusBadRequest)
		return
	}

	// A trace ID correlates a browser session's requests; mint one for
	// first-time callers and echo it back.
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	content, err := s.upstream.Complete(r.Context(), req.Message, req.History, req.Model)
	if err != nil {
		s.logger.Error("upstream completion failed", "trace", traceID, "error", err)
		s.writeError(w, "upstream request failed", upstreamStatus(err))
		return
	}

	s.writeJSON(w, chatResponse{
		Choices: []chatChoice{{Message: chatChoiceMessage{Content: content}}},
		TraceID: traceID,
	})
}
