// Package events manages the crisis event lifecycle: generation into a
// bounded pool, evolution across time-skips, and the deterministic
// fallbacks that keep the world populated when generation fails.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

// MaxActive is the active event pool ceiling. Generation always tops the
// pool back up to this size.
const MaxActive = 3

// generateAttempts bounds how many provider calls one spawn pass makes.
const generateAttempts = 5

// Evolution fallback policy: events older than fallbackResolveAge cycles
// resolve with fallbackResolveChance when the provider is unavailable.
const (
	fallbackResolveAge    = 2
	fallbackResolveChance = 0.3
)

const generateSystemPrompt = "You are WORLD-AI. Create diverse events: conflicts, disasters, economic issues. " +
	"Some wild examples include: assassinations, coups, or stock market crash. " +
	"No duplicate titles. Respond only JSON {eid,title,description,e_type}."

const evolveSystemPrompt = "Advance 6 months; JSON {title,description,resolved}."

var fallbackTypes = []string{"Minor Incident", "Economic Concern", "Diplomatic Issue"}

// Manager generates and evolves events for one world.
type Manager struct {
	gen provider.Provider
	rng *entropy.Source
	seq int // fallback/duplicate event id counter
}

// NewManager creates an event manager.
func NewManager(gen provider.Provider, rng *entropy.Source) *Manager {
	return &Manager{gen: gen, rng: rng}
}

type candidate struct {
	ID          string `json:"eid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"e_type"`
}

// GenerateMultiple produces new events until the pool would recover to
// MaxActive. Titles must be unique case-insensitively against both the
// active pool and this call's own batch. When attempts run out, the
// remaining slots are filled with deterministic low-impact events, so the
// world is never event-less after a spawn call.
func (m *Manager) GenerateMultiple(ctx context.Context, w *world.World) []*world.Event {
	missing := MaxActive - len(w.Events)
	if missing <= 0 {
		return nil
	}

	taken := w.ActiveTitles()
	var batch []*world.Event

	for attempt := 0; attempt < generateAttempts && len(batch) < missing; attempt++ {
		c, err := m.generateOne(ctx, w, taken)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("event generation attempt failed")
			continue
		}
		batch = append(batch, &world.Event{
			ID:          m.uniqueID(w, batch, c.ID),
			Title:       c.Title,
			Description: c.Description,
			Type:        c.Type,
		})
		taken[strings.ToLower(c.Title)] = true
	}

	for len(batch) < missing {
		batch = append(batch, m.fallbackEvent(w, batch, taken))
	}
	return batch
}

func (m *Manager) generateOne(ctx context.Context, w *world.World, taken map[string]bool) (*candidate, error) {
	payload := generateContext(w, taken)
	raw, err := m.gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: generateSystemPrompt},
		{Role: provider.RoleUser, Content: payload},
	})
	if err != nil {
		return nil, err
	}

	var c candidate
	if err := provider.ExtractJSON(raw, &c); err != nil {
		return nil, err
	}
	if c.Title == "" || c.Description == "" {
		return nil, fmt.Errorf("%w: candidate missing title or description", provider.ErrGeneration)
	}
	if c.Type == "" {
		c.Type = "misc"
	}
	if taken[strings.ToLower(c.Title)] {
		return nil, fmt.Errorf("%w: duplicate title %q", provider.ErrGeneration, c.Title)
	}
	return &c, nil
}

// Evolve advances an event by six months of world time. Incrementing
// CyclesAlive is the caller's responsibility. On generation failure the
// fallback policy resolves sufficiently old events with fixed probability.
func (m *Manager) Evolve(ctx context.Context, e *world.Event, w *world.World) {
	payload := evolveContext(e, w)
	raw, err := m.gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: evolveSystemPrompt},
		{Role: provider.RoleUser, Content: payload},
	})
	if err == nil {
		var delta struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Resolved    *bool   `json:"resolved"`
		}
		if perr := provider.ExtractJSON(raw, &delta); perr == nil {
			if delta.Title != nil && *delta.Title != "" {
				e.Title = *delta.Title
			}
			if delta.Description != nil && *delta.Description != "" {
				e.Description = *delta.Description
			}
			if delta.Resolved != nil && *delta.Resolved {
				e.Resolved = true
			}
			return
		}
		err = fmt.Errorf("%w: unparseable evolution", provider.ErrGeneration)
	}

	log.Debug().Err(err).Str("event", e.ID).Msg("event evolution failed, using probabilistic fallback")
	if e.CyclesAlive > fallbackResolveAge && m.rng.Float64() < fallbackResolveChance {
		e.Resolved = true
	}
}

func (m *Manager) fallbackEvent(w *world.World, batch []*world.Event, taken map[string]bool) *world.Event {
	codes := w.Codes()
	total := len(codes) * len(fallbackTypes)
	start := m.rng.IntN(total)

	// The fallback title space is small; walk it from a random start and
	// take the first title not already active or in this batch.
	kind := fallbackTypes[start%len(fallbackTypes)]
	title := fmt.Sprintf("%s in Country %s", kind, codes[start/len(fallbackTypes)])
	for i := 1; taken[strings.ToLower(title)] && i < total; i++ {
		next := (start + i) % total
		kind = fallbackTypes[next%len(fallbackTypes)]
		title = fmt.Sprintf("%s in Country %s", kind, codes[next/len(fallbackTypes)])
	}

	id := m.uniqueID(w, batch, "")
	if taken[strings.ToLower(title)] {
		// Every combination is in use; the id suffix keeps it unique.
		title = fmt.Sprintf("%s (%s)", title, id)
	}
	taken[strings.ToLower(title)] = true

	return &world.Event{
		ID:          id,
		Title:       title,
		Description: fmt.Sprintf("Low-impact %s.", strings.ToLower(kind)),
		Type:        "misc",
	}
}

// uniqueID keeps event ids unique within the world even when the provider
// repeats one or omits it. Fallback ids are E1, E2, … from a counter that
// never rewinds, so ids stay unique across resolutions and respawns.
func (m *Manager) uniqueID(w *world.World, batch []*world.Event, proposed string) string {
	used := func(id string) bool {
		if w.EventByID(id) != nil {
			return true
		}
		for _, e := range batch {
			if e.ID == id {
				return true
			}
		}
		return false
	}

	if proposed != "" && !used(proposed) {
		return proposed
	}
	for {
		m.seq++
		id := fmt.Sprintf("E%d", m.seq)
		if !used(id) {
			return id
		}
	}
}

func generateContext(w *world.World, taken map[string]bool) string {
	countries := make(map[string]map[string]any, len(w.Countries))
	for code, c := range w.Countries {
		countries[code] = map[string]any{
			"econ":      c.Leader.EconPower,
			"war":       c.Leader.WarPower,
			"relations": c.Relationships,
		}
	}
	active := make([]string, 0, len(taken))
	for title := range taken {
		active = append(active, title)
	}
	payload, _ := json.Marshal(map[string]any{
		"countries":     countries,
		"active_events": active,
	})
	return string(payload)
}

func evolveContext(e *world.Event, w *world.World) string {
	relations := make(map[string]map[string]float64, len(w.Countries))
	for code, c := range w.Countries {
		relations[code] = c.Relationships
	}
	payload, _ := json.Marshal(map[string]any{
		"event": map[string]any{
			"eid":          e.ID,
			"title":        e.Title,
			"description":  e.Description,
			"e_type":       e.Type,
			"cycles_alive": e.CyclesAlive,
			"resolved":     e.Resolved,
			"addressed":    e.Addressed,
		},
		"relations": relations,
		"cycles":    e.CyclesAlive,
	})
	return string(payload)
}
