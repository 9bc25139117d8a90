package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

// transcriptTailLen bounds how much transcript the resolution prompt sees.
const transcriptTailLen = 8000

// fallbackResolveChance is the odds an event counts as resolved when the
// resolution check cannot be generated.
const fallbackResolveChance = 0.4

const decideSystemPrompt = `Did this meeting substantively resolve the crisis event below?
A crisis is resolved only if the leaders reached a concrete agreement
addressing it, not merely discussed it.
Return JSON {"resolved": true/false}.`

// Decider judges whether a meeting resolved a crisis event.
type Decider struct {
	gen provider.Provider
	rng *entropy.Source
}

// NewDecider creates a resolution decider.
func NewDecider(gen provider.Provider, rng *entropy.Source) *Decider {
	return &Decider{gen: gen, rng: rng}
}

// Decide reports whether the meeting transcript resolved the event. Only
// the transcript tail is sent. On generation failure the call falls back
// to a weighted coin.
func (d *Decider) Decide(ctx context.Context, e *world.Event, transcript string) bool {
	payload, _ := json.Marshal(map[string]any{
		"event": map[string]any{
			"title":       e.Title,
			"description": e.Description,
			"e_type":      e.Type,
		},
		"transcript": transcriptTail(transcript),
	})
	raw, err := d.gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: decideSystemPrompt},
		{Role: provider.RoleUser, Content: string(payload)},
	})
	if err == nil {
		var verdict struct {
			Resolved bool `json:"resolved"`
		}
		if perr := provider.ExtractJSON(raw, &verdict); perr == nil {
			return verdict.Resolved
		}
		err = fmt.Errorf("%w: unparseable resolution verdict", provider.ErrGeneration)
	}

	log.Debug().Err(err).Str("event", e.ID).Msg("resolution check failed, using weighted coin")
	return d.rng.Float64() < fallbackResolveChance
}

func transcriptTail(s string) string {
	if len(s) <= transcriptTailLen {
		return s
	}
	cut := len(s) - transcriptTailLen
	// Never split a multi-byte rune at the cut point.
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}
