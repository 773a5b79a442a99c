package events

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBufferSize = 16

// EventType identifies a widget state change.
type EventType string

const (
	// EventMessageAppended fires when a message lands in the history store.
	EventMessageAppended EventType = "message.appended"
	// EventReplyResolved fires when an assistant reply has been through
	// citation resolution and is ready to render.
	EventReplyResolved EventType = "reply.resolved"
	// EventHistoryCleared fires when the conversation is reset.
	EventHistoryCleared EventType = "history.cleared"
	// EventSendFailed fires when a send fails; the payload carries the
	// classified error category for user-facing messaging.
	EventSendFailed EventType = "send.failed"
)

// Event is one published state change.
type Event[T any] struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Broker is a small publish-subscribe hub for widget state changes. The
// state layer publishes; UI consumers (the WebSocket gateway, tests)
// subscribe. Slow subscribers drop events rather than block the widget.
type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[chan Event[T]]struct{}
	done chan struct{}
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]struct{}),
		done: make(chan struct{}),
	}
}

// Publish delivers an event to all current subscribers without blocking.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Printf("event channel full, dropping %s event %s", event.Type, event.ID)
		}
	}
}

// Subscribe registers a new subscriber. The channel is closed when ctx is
// cancelled or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], defaultBufferSize)
	b.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.unsubscribe(ch)
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(ch chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes the broker and all subscriber channels.
func (b *Broker[T]) Shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}
}
