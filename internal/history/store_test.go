package history

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/embedchat/embedchat/internal/chat"
)

func TestStore_AppendAndTrim(t *testing.T) {
	s := NewStore(NewMemoryStorage(), 3)

	for i := 0; i < 7; i++ {
		s.Append(chat.NewUserMessage(fmt.Sprintf("message %d", i)))
		s.Trim()
		if s.Len() > 3 {
			t.Fatalf("store grew to %d after trim", s.Len())
		}
	}

	got := s.Messages()
	if len(got) != 3 {
		t.Fatalf("got %d messages, expected 3", len(got))
	}
	// Survivors are the most recent entries in original order.
	for i, want := range []string{"message 4", "message 5", "message 6"} {
		if got[i].Content != want {
			t.Errorf("got[%d].Content = %q, expected %q", i, got[i].Content, want)
		}
	}
}

func TestStore_PersistRestore(t *testing.T) {
	storage := NewMemoryStorage()

	s := NewStore(storage, 10)
	s.Append(chat.NewUserMessage("hi"))
	s.Append(chat.NewAssistantMessage("Hello. How can I help?"))
	s.MarkInteracted()
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	restored := NewStore(storage, 10)
	if !restored.Restore() {
		t.Fatal("Restore() = false, expected snapshot to be found")
	}
	if restored.Len() != 2 {
		t.Errorf("restored %d messages, expected 2", restored.Len())
	}
	if !restored.HasInteracted() {
		t.Error("hasInteracted lost across restore")
	}
	if restored.TraceID() != s.TraceID() {
		t.Errorf("trace ID changed: %q -> %q", s.TraceID(), restored.TraceID())
	}
}

func TestStore_RestoreTrimsOversizedSnapshot(t *testing.T) {
	storage := NewMemoryStorage()

	big := NewStore(storage, 20)
	for i := 0; i < 10; i++ {
		big.Append(chat.NewUserMessage(fmt.Sprintf("m%d", i)))
	}
	if err := big.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	small := NewStore(storage, 4)
	if !small.Restore() {
		t.Fatal("Restore() = false")
	}
	if small.Len() != 4 {
		t.Errorf("restored length = %d, expected 4", small.Len())
	}
	if got := small.Messages()[0].Content; got != "m6" {
		t.Errorf("oldest survivor = %q, expected m6", got)
	}
}

func TestStore_RestoreMalformedSnapshot(t *testing.T) {
	storage := NewMemoryStorage()
	if err := storage.Set("embedchat-session", []byte("{not json")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	s := NewStore(storage, 10)
	if s.Restore() {
		t.Error("Restore() = true for malformed snapshot")
	}
	if s.Len() != 0 {
		t.Errorf("store has %d messages after failed restore, expected 0", s.Len())
	}
}

func TestStore_RestoreAbsent(t *testing.T) {
	s := NewStore(NewMemoryStorage(), 10)
	if s.Restore() {
		t.Error("Restore() = true with no snapshot present")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(NewMemoryStorage(), 10)
	s.Append(chat.NewUserMessage("hi"))
	s.MarkInteracted()
	trace := s.TraceID()

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("history not emptied: %d messages", s.Len())
	}
	if !s.HasInteracted() {
		t.Error("Clear() reset hasInteracted")
	}
	if s.TraceID() != trace {
		t.Error("Clear() changed trace ID")
	}
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	storage, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}

	if _, ok := storage.Get("missing"); ok {
		t.Error("Get() found a value for an absent key")
	}

	if err := storage.Set("k", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := storage.Get("k")
	if !ok || string(got) != `{"a":1}` {
		t.Errorf("Get() = %q, %v", got, ok)
	}

	if err := storage.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := storage.Get("k"); ok {
		t.Error("value survived Delete()")
	}
	if err := storage.Delete("k"); err != nil {
		t.Errorf("Delete() of absent key returned error = %v", err)
	}
}
