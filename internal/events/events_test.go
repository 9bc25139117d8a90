package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(context.Background(), 3, provider.NewMock("gen", "bio"), entropy.New(7))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func eventJSON(id, title string) string {
	return fmt.Sprintf(`{"eid":%q,"title":%q,"description":"desc","e_type":"conflict"}`, id, title)
}

func TestGenerateMultipleTopsUpToMax(t *testing.T) {
	w := testWorld(t)
	gen := provider.NewMockScript("gen",
		eventJSON("E1", "Border Standoff"),
		eventJSON("E2", "Currency Collapse"),
		eventJSON("E3", "Summit Walkout"),
	)
	m := NewManager(gen, entropy.New(1))

	batch := m.GenerateMultiple(context.Background(), w)
	if len(batch) != MaxActive {
		t.Fatalf("expected %d events, got %d", MaxActive, len(batch))
	}
	titles := map[string]bool{}
	for _, e := range batch {
		titles[strings.ToLower(e.Title)] = true
	}
	if len(titles) != MaxActive {
		t.Errorf("duplicate titles in batch: %+v", batch)
	}
}

func TestGenerateMultipleRespectsPoolCeiling(t *testing.T) {
	w := testWorld(t)
	for i := 0; i < MaxActive; i++ {
		w.Events = append(w.Events, &world.Event{ID: fmt.Sprintf("E%d", i+1), Title: fmt.Sprintf("Crisis %d", i+1)})
	}
	m := NewManager(provider.NewMock("gen", eventJSON("E9", "Extra")), entropy.New(1))

	if batch := m.GenerateMultiple(context.Background(), w); batch != nil {
		t.Errorf("expected no events for a full pool, got %d", len(batch))
	}
}

func TestGenerateMultipleFallbackFillsPool(t *testing.T) {
	w := testWorld(t)
	gen := provider.NewMock("gen", "").WithChatError(errors.New("unreachable"))
	m := NewManager(gen, entropy.New(3))

	batch := m.GenerateMultiple(context.Background(), w)
	if len(batch) != MaxActive {
		t.Fatalf("expected fallback to fill %d slots, got %d", MaxActive, len(batch))
	}
	ids := map[string]bool{}
	titles := map[string]bool{}
	for _, e := range batch {
		if e.Type != "misc" {
			t.Errorf("fallback event type %q, want misc", e.Type)
		}
		if !strings.Contains(e.Title, "in Country ") {
			t.Errorf("unexpected fallback title %q", e.Title)
		}
		if ids[e.ID] {
			t.Errorf("duplicate event id %s", e.ID)
		}
		ids[e.ID] = true
		if titles[strings.ToLower(e.Title)] {
			t.Errorf("duplicate fallback title %q", e.Title)
		}
		titles[strings.ToLower(e.Title)] = true
	}
}

func TestGenerateMultipleSkipsDuplicateTitles(t *testing.T) {
	w := testWorld(t)
	w.Events = append(w.Events, &world.Event{ID: "E1", Title: "Border Standoff"})

	// The provider keeps proposing an already-active title (differing only
	// in case); every attempt is rejected and fallbacks fill the batch.
	gen := provider.NewMock("gen", eventJSON("E2", "BORDER STANDOFF"))
	m := NewManager(gen, entropy.New(5))

	batch := m.GenerateMultiple(context.Background(), w)
	if len(batch) != MaxActive-1 {
		t.Fatalf("expected %d events, got %d", MaxActive-1, len(batch))
	}
	for _, e := range batch {
		if strings.EqualFold(e.Title, "Border Standoff") {
			t.Errorf("duplicate title accepted: %q", e.Title)
		}
	}
	if gen.Calls() != generateAttempts {
		t.Errorf("expected %d attempts, got %d", generateAttempts, gen.Calls())
	}
}

func TestGenerateMultipleAssignsMissingIDs(t *testing.T) {
	w := testWorld(t)
	w.Events = append(w.Events, &world.Event{ID: "E1", Title: "Old Crisis"})
	gen := provider.NewMockScript("gen",
		eventJSON("E1", "Reused ID Crisis"), // collides with the active event
		eventJSON("", "No ID Crisis"),
	)
	m := NewManager(gen, entropy.New(1))

	batch := m.GenerateMultiple(context.Background(), w)
	for _, e := range batch {
		if e.ID == "" {
			t.Error("event left without id")
		}
		if e.ID == "E1" && e.Title != "Old Crisis" {
			t.Errorf("active event id reused by %q", e.Title)
		}
	}
}

func TestEvolveAppliesDelta(t *testing.T) {
	w := testWorld(t)
	e := &world.Event{ID: "E1", Title: "Standoff", Description: "Tense.", CyclesAlive: 1}
	gen := provider.NewMock("gen", `{"title":"Standoff Escalates","description":"Shots fired.","resolved":false}`)
	m := NewManager(gen, entropy.New(1))

	m.Evolve(context.Background(), e, w)
	if e.Title != "Standoff Escalates" || e.Description != "Shots fired." {
		t.Errorf("delta not applied: %+v", e)
	}
	if e.Resolved {
		t.Error("event resolved unexpectedly")
	}
}

func TestEvolveResolvedIsMonotonic(t *testing.T) {
	w := testWorld(t)
	e := &world.Event{ID: "E1", Title: "Standoff", Resolved: true, CyclesAlive: 3}
	gen := provider.NewMock("gen", `{"title":"Standoff","description":"d","resolved":false}`)
	m := NewManager(gen, entropy.New(1))

	m.Evolve(context.Background(), e, w)
	if !e.Resolved {
		t.Error("resolved flag regressed from true to false")
	}
}

func TestEvolveFallbackResolvesOldEvents(t *testing.T) {
	w := testWorld(t)
	gen := provider.NewMock("gen", "").WithChatError(errors.New("unreachable"))
	m := NewManager(gen, entropy.New(99))

	// Young events never resolve via the fallback.
	for i := 0; i < 50; i++ {
		e := &world.Event{ID: "E1", Title: "New Crisis", CyclesAlive: fallbackResolveAge}
		m.Evolve(context.Background(), e, w)
		if e.Resolved {
			t.Fatal("event at the age threshold resolved via fallback")
		}
	}

	// Old events resolve roughly at the documented probability.
	resolved := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		e := &world.Event{ID: "E1", Title: "Old Crisis", CyclesAlive: fallbackResolveAge + 1}
		m.Evolve(context.Background(), e, w)
		if e.Resolved {
			resolved++
		}
	}
	ratio := float64(resolved) / trials
	if ratio < 0.2 || ratio > 0.4 {
		t.Errorf("fallback resolve ratio %.3f far from %.1f", ratio, fallbackResolveChance)
	}
}

func TestEvolveMalformedResponseUsesFallback(t *testing.T) {
	w := testWorld(t)
	gen := provider.NewMock("gen", "the event continues to simmer")
	m := NewManager(gen, entropy.New(12))

	e := &world.Event{ID: "E1", Title: "Crisis", Description: "d", CyclesAlive: 1}
	m.Evolve(context.Background(), e, w)
	if e.Title != "Crisis" || e.Description != "d" {
		t.Errorf("malformed response mutated event: %+v", e)
	}
}
