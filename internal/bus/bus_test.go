package bus

import (
	"testing"
	"time"
)

func TestEventBus(t *testing.T) {
	b := NewEventBus(32)

	// Subscribe
	ch := b.Subscribe()

	// Publish event
	event := Event{
		Type:      EventLeaderSpoke,
		SessionID: "test-session",
		Data:      SpeechData{Speaker: "Amara Okafor", Country: "A", Content: "We must talk."},
	}
	b.Publish(event)

	// Receive event
	select {
	case received := <-ch:
		if received.Type != EventLeaderSpoke {
			t.Errorf("expected type=%s, got %s", EventLeaderSpoke, received.Type)
		}
		if received.SessionID != "test-session" {
			t.Errorf("expected session_id=test-session, got %s", received.SessionID)
		}
		if received.Timestamp.IsZero() {
			t.Error("expected publish to stamp the event")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	// Unsubscribe
	b.Unsubscribe(ch)

	// Channel should be closed
	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	b := NewEventBus(32)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	event := Event{
		Type:      EventSpawned,
		SessionID: "session-1",
		Data:      CrisisData{EventID: "E1", Title: "Border Standoff"},
	}
	b.Publish(event)

	// Both should receive
	select {
	case <-ch1:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ch1 timeout")
	}

	select {
	case <-ch2:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ch2 timeout")
	}

	b.Close()
}

func TestEventBusNonBlocking(t *testing.T) {
	// Small buffer (clamped to the floor)
	b := NewEventBus(1)
	ch := b.Subscribe()

	for len(ch) < cap(ch) {
		b.Publish(Event{Type: EventSessionCreated})
	}

	// This should not block (event dropped)
	done := make(chan bool)
	go func() {
		b.Publish(Event{Type: EventSessionExpired})
		done <- true
	}()

	select {
	case <-done:
		// Good, didn't block
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publish blocked")
	}

	// Drain the buffer
	<-ch
	b.Close()
}

func TestEventBusBufferFloor(t *testing.T) {
	b := NewEventBus(1)
	ch := b.Subscribe()
	if cap(ch) != minBufferSize {
		t.Errorf("buffer = %d, want floor %d", cap(ch), minBufferSize)
	}
}

func TestEventBusClose(t *testing.T) {
	b := NewEventBus(32)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Close()

	// Both channels should be closed
	_, ok1 := <-ch1
	_, ok2 := <-ch2

	if ok1 || ok2 {
		t.Error("expected all channels to be closed")
	}
}
