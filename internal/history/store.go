package history

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/embedchat/embedchat/internal/chat"
)

// snapshotKey is the fixed key the session snapshot lives under.
const snapshotKey = "embedchat-session"

// defaultMaxMessages caps how many messages the log retains.
const defaultMaxMessages = 50

// Store is the ordered, size-bounded conversation log for one widget
// session. It owns the chat messages exclusively; callers get copies.
//
// Store is not safe for concurrent use. The widget session serializes all
// mutations, matching the single-threaded event model of the browser widget.
type Store struct {
	storage     SessionStorage
	maxMessages int

	messages      []chat.Message
	hasInteracted bool
	traceID       string
}

// NewStore creates a history store backed by the given session storage.
// maxMessages <= 0 selects the default cap.
func NewStore(storage SessionStorage, maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	return &Store{
		storage:     storage,
		maxMessages: maxMessages,
		traceID:     uuid.NewString(),
	}
}

// Append adds a message to the end of the log.
func (s *Store) Append(m chat.Message) {
	s.messages = append(s.messages, m)
}

// Trim evicts oldest messages until the log is within its cap. Safe to call
// repeatedly; a no-op when already within bounds.
func (s *Store) Trim() {
	if len(s.messages) > s.maxMessages {
		s.messages = s.messages[len(s.messages)-s.maxMessages:]
	}
}

// Messages returns a copy of the current history in chronological order.
func (s *Store) Messages() []chat.Message {
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// HasInteracted reports whether the user has interacted with the widget.
func (s *Store) HasInteracted() bool {
	return s.hasInteracted
}

// MarkInteracted records that the user has interacted with the widget.
func (s *Store) MarkInteracted() {
	s.hasInteracted = true
}

// TraceID returns the session's continuity token.
func (s *Store) TraceID() string {
	return s.traceID
}

// SetTraceID replaces the continuity token, e.g. when the transport echoes a
// server-assigned one. Empty values are ignored.
func (s *Store) SetTraceID(id string) {
	if id != "" {
		s.traceID = id
	}
}

// Persist serializes the session snapshot to storage. Called after any
// state-affecting event.
func (s *Store) Persist() error {
	snapshot := chat.Snapshot{
		History:       s.messages,
		HasInteracted: s.hasInteracted,
		TraceID:       s.traceID,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.storage.Set(snapshotKey, data)
}

// Restore loads a prior snapshot if present and reports whether one was
// found. Corrupt snapshots are treated as absent: initialization must never
// fail because of bad session data. Call exactly once, before any Append.
func (s *Store) Restore() bool {
	data, ok := s.storage.Get(snapshotKey)
	if !ok {
		return false
	}

	var snapshot chat.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Printf("discarding unreadable session snapshot: %v", err)
		return false
	}

	s.messages = snapshot.History
	s.hasInteracted = snapshot.HasInteracted
	if snapshot.TraceID != "" {
		s.traceID = snapshot.TraceID
	}

	// A snapshot written under a larger cap may exceed ours; trimming here
	// keeps the length invariant across restores too.
	s.Trim()
	return true
}

// Clear empties the history. The interaction flag and trace ID survive; the
// welcome message is presentation-only and never stored here.
func (s *Store) Clear() {
	s.messages = nil
}
