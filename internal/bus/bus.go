// Package bus provides a lightweight in-process event bus for streaming
// simulation activity to observers such as the websocket feed and the
// console.
package bus

import (
	"sync"
	"time"
)

// minBufferSize is the floor for subscriber channel buffers.
const minBufferSize = 16

// EventType identifies the type of event.
type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventLeaderSpoke    EventType = "leader_spoke"
	EventPlayerSpoke    EventType = "player_spoke"
	EventSpawned        EventType = "event_spawned"
	EventResolved       EventType = "event_resolved"
	EventMeetingEnded   EventType = "meeting_ended"
	EventTimeSkipped    EventType = "time_skipped"
	EventSessionExpired EventType = "session_expired"
)

// Event represents something that happened in a simulation session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SpeechData carries an utterance for leader_spoke and player_spoke events.
type SpeechData struct {
	Speaker string `json:"speaker"`
	Country string `json:"country,omitempty"`
	Content string `json:"content"`
}

// CrisisData carries the headline for event_spawned and event_resolved events.
type CrisisData struct {
	EventID string `json:"eid"`
	Title   string `json:"title"`
}

// EventBus distributes events to subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufferSize  int
}

// NewEventBus creates a new event bus.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize < minBufferSize {
		bufferSize = minBufferSize
	}
	return &EventBus{
		bufferSize: bufferSize,
	}
}

// Subscribe returns a channel that receives events.
// The caller is responsible for reading from the channel to avoid blocking.
func (b *EventBus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *EventBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			close(sub)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers. The timestamp is filled in
// if unset. Non-blocking: drops events if a subscriber's buffer is full.
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop event if buffer is full (non-blocking)
		}
	}
}

// Close closes all subscriber channels.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
