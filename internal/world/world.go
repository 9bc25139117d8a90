// Package world holds the simulation data model: countries, leaders,
// relationships and events, plus the invariants over them.
//
// The world is owned by exactly one session and mutated only through the
// session's operations; everything here is plain data and clamp/validation
// helpers with no external calls except leader bio generation at init.
package world

import (
	"fmt"
	"sort"
	"strings"
)

// TraitNames is the closed set of leader personality traits. Order is the
// tie-break order when picking a dominant trait.
var TraitNames = []string{"honest", "ambitious", "empathetic", "diplomatic", "ruthless"}

// Stat bounds.
const (
	MinPower        = 0.1
	MaxPower        = 1.0
	MinRelationship = 0.0
	MaxRelationship = 1.0
	MinPopulation   = 1
)

// Leader is a country's head of state.
type Leader struct {
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Age        int                `json:"age"`
	Traits     map[string]float64 `json:"traits"`
	EconPower  float64            `json:"econ_power"`
	WarPower   float64            `json:"war_power"`
	Population int64              `json:"population"`
	Backstory  string             `json:"backstory"`
}

// DominantTrait returns the highest-valued trait, with ties broken by
// TraitNames order so the result is stable.
func (l *Leader) DominantTrait() string {
	best := TraitNames[0]
	for _, name := range TraitNames[1:] {
		if l.Traits[name] > l.Traits[best] {
			best = name
		}
	}
	return best
}

// Country is a political entity with one leader and bilateral relationship
// scores to every other country.
type Country struct {
	Code          string
	Leader        *Leader
	Relationships map[string]float64
}

// Event is a transient crisis that can be addressed in meetings and
// resolved over time-skips.
type Event struct {
	ID          string
	Title       string
	Description string
	Type        string
	CyclesAlive int
	Resolved    bool
	Addressed   bool
	Audio       string // base64 MP3 narration, empty when TTS is disabled
}

// World is the aggregate root: all countries, the active event pool and
// the meeting counter.
type World struct {
	Countries     map[string]*Country
	Events        []*Event
	MeetingNumber int
}

// Codes returns the country codes in alphabetical order. Countries are
// labeled with consecutive letters, so this is also creation order.
func (w *World) Codes() []string {
	codes := make([]string, 0, len(w.Countries))
	for c := range w.Countries {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// EventByID returns the active event with the given id, or nil.
func (w *World) EventByID(id string) *Event {
	for _, e := range w.Events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ActiveTitles returns the lowercased titles of all active events, used
// for case-insensitive uniqueness checks at generation time.
func (w *World) ActiveTitles() map[string]bool {
	titles := make(map[string]bool, len(w.Events))
	for _, e := range w.Events {
		titles[strings.ToLower(e.Title)] = true
	}
	return titles
}

// ClampPower keeps an econ/war power value inside [MinPower, MaxPower].
func ClampPower(v float64) float64 {
	if v < MinPower {
		return MinPower
	}
	if v > MaxPower {
		return MaxPower
	}
	return v
}

// ClampRelationship keeps a relationship weight inside [0, 1].
func ClampRelationship(v float64) float64 {
	if v < MinRelationship {
		return MinRelationship
	}
	if v > MaxRelationship {
		return MaxRelationship
	}
	return v
}

// ClampPopulation keeps a population strictly positive.
func ClampPopulation(v int64) int64 {
	if v < MinPopulation {
		return MinPopulation
	}
	return v
}

// ApplyStatDelta applies clamped econ/war/population deltas to a country's
// leader. Unknown codes are ignored: the analyzer output is untrusted.
func (w *World) ApplyStatDelta(code string, econ, war float64, pop int64) {
	c, ok := w.Countries[code]
	if !ok {
		return
	}
	l := c.Leader
	l.EconPower = ClampPower(l.EconPower + econ)
	l.WarPower = ClampPower(l.WarPower + war)
	l.Population = ClampPopulation(l.Population + pop)
}

// ApplyRelationshipDelta applies a clamped delta to the relationship
// between a and b, keeping both directions equal. Rejects unknown codes
// and self-pairs so an invalid mutation can never break symmetry.
func (w *World) ApplyRelationshipDelta(a, b string, delta float64) error {
	if a == b {
		return fmt.Errorf("self relationship %s-%s", a, b)
	}
	ca, ok := w.Countries[a]
	if !ok {
		return fmt.Errorf("unknown country %s", a)
	}
	cb, ok := w.Countries[b]
	if !ok {
		return fmt.Errorf("unknown country %s", b)
	}
	cur, ok := ca.Relationships[b]
	if !ok {
		return fmt.Errorf("no relationship %s-%s", a, b)
	}
	next := ClampRelationship(cur + delta)
	ca.Relationships[b] = next
	cb.Relationships[a] = next
	return nil
}

// CheckSymmetry verifies the relationship graph invariant: a complete
// symmetric graph with no self-entries. A non-nil error is an internal
// bug, never a caller mistake.
func (w *World) CheckSymmetry() error {
	for a, ca := range w.Countries {
		if _, ok := ca.Relationships[a]; ok {
			return fmt.Errorf("self relationship entry for %s", a)
		}
		for b := range w.Countries {
			if a == b {
				continue
			}
			va, ok := ca.Relationships[b]
			if !ok {
				return fmt.Errorf("missing relationship %s->%s", a, b)
			}
			vb, ok := w.Countries[b].Relationships[a]
			if !ok {
				return fmt.Errorf("missing relationship %s->%s", b, a)
			}
			if va != vb {
				return fmt.Errorf("asymmetric relationship %s-%s: %v != %v", a, b, va, vb)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the world, used to keep the baseline
// snapshot for before/after reporting.
func (w *World) Clone() *World {
	out := &World{
		Countries:     make(map[string]*Country, len(w.Countries)),
		Events:        make([]*Event, 0, len(w.Events)),
		MeetingNumber: w.MeetingNumber,
	}
	for code, c := range w.Countries {
		traits := make(map[string]float64, len(c.Leader.Traits))
		for k, v := range c.Leader.Traits {
			traits[k] = v
		}
		rels := make(map[string]float64, len(c.Relationships))
		for k, v := range c.Relationships {
			rels[k] = v
		}
		leader := *c.Leader
		leader.Traits = traits
		out.Countries[code] = &Country{
			Code:          c.Code,
			Leader:        &leader,
			Relationships: rels,
		}
	}
	for _, e := range w.Events {
		ev := *e
		out.Events = append(out.Events, &ev)
	}
	return out
}
