// Package outcome turns meeting transcripts into quantified world-state
// changes: stat and relationship deltas, resolution verdicts, and the
// end-of-game assessment. Every operation has a documented fallback and
// never surfaces a generation failure.
package outcome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

// Fallback delta bounds: uniform noise in (-half, +half).
const (
	fallbackStatSpread = 0.1
	fallbackPopSpread  = 1_000_000
)

const fallbackSummary = "Mixed diplomatic outcomes with some progress on key issues."

// defaultSummary replaces an empty model-provided summary.
const defaultSummary = "Meeting concluded with mixed outcomes."

const analyzeSystemPrompt = `Analyze the diplomatic meeting transcript and determine immediate consequences.
Consider:
- Alliances formed or broken
- Threats made or received
- Economic cooperation or sanctions
- Military posturing
- Diplomatic wins or losses

Return JSON with immediate stat changes:
{
    "stat_changes": {
        "A": {"econ": 0.05, "war": -0.02, "pop": 0},
        "B": {"econ": 0.03, "war": 0.01, "pop": 0},
        "C": {"econ": -0.08, "war": 0.05, "pop": -1000000}
    },
    "relationship_changes": [
        ["A", "B", 0.1],
        ["A", "C", -0.15],
        ["B", "C", -0.1]
    ],
    "summary": "Brief explanation of key outcomes"
}

Use small values (0.01 to 0.15 for econ/war, 0 to ±5M for population).
Positive values = benefits, negative = penalties.`

// StatDelta is a per-country stat adjustment.
type StatDelta struct {
	Econ float64 `json:"econ"`
	War  float64 `json:"war"`
	Pop  int64   `json:"pop"`
}

// RelationshipDelta adjusts one unordered country pair. The wire form is
// a three-element array ["A","B",0.1].
type RelationshipDelta struct {
	A     string
	B     string
	Delta float64
}

// UnmarshalJSON decodes the [a, b, delta] array form.
func (r *RelationshipDelta) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("relationship change has %d elements, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &r.A); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &r.B); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &r.Delta)
}

// MarshalJSON encodes back to the [a, b, delta] array form.
func (r RelationshipDelta) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.A, r.B, r.Delta})
}

// Outcome is the analyzed consequence of one meeting.
type Outcome struct {
	StatChanges         map[string]StatDelta `json:"stat_changes"`
	RelationshipChanges []RelationshipDelta  `json:"relationship_changes"`
	Summary             string               `json:"summary"`
	Audio               string               `json:"audio_base64,omitempty"`
}

// Analyzer derives meeting outcomes from transcripts.
type Analyzer struct {
	gen provider.Provider
	rng *entropy.Source
}

// NewAnalyzer creates an outcome analyzer.
func NewAnalyzer(gen provider.Provider, rng *entropy.Source) *Analyzer {
	return &Analyzer{gen: gen, rng: rng}
}

// Analyze produces stat and relationship deltas plus a summary for the
// given transcript. It never fails: on any generation problem it returns
// small random per-country deltas, no relationship changes and a generic
// summary.
func (a *Analyzer) Analyze(ctx context.Context, w *world.World, transcript string) *Outcome {
	raw, err := a.gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: analyzeSystemPrompt},
		{Role: provider.RoleUser, Content: analyzeContext(w, transcript)},
	})
	if err == nil {
		var out Outcome
		if perr := provider.ExtractJSON(raw, &out); perr == nil {
			if out.Summary == "" {
				out.Summary = defaultSummary
			}
			if out.StatChanges == nil {
				out.StatChanges = map[string]StatDelta{}
			}
			return &out
		}
		err = fmt.Errorf("%w: unparseable analysis", provider.ErrGeneration)
	}

	log.Debug().Err(err).Msg("outcome analysis failed, using random fallback")
	return a.fallback(w)
}

func (a *Analyzer) fallback(w *world.World) *Outcome {
	changes := make(map[string]StatDelta, len(w.Countries))
	for code := range w.Countries {
		changes[code] = StatDelta{
			Econ: (a.rng.Float64() - 0.5) * fallbackStatSpread,
			War:  (a.rng.Float64() - 0.5) * fallbackStatSpread,
			Pop:  int64((a.rng.Float64() - 0.5) * fallbackPopSpread),
		}
	}
	return &Outcome{
		StatChanges:         changes,
		RelationshipChanges: nil,
		Summary:             fallbackSummary,
	}
}

func analyzeContext(w *world.World, transcript string) string {
	countries := make(map[string]map[string]any, len(w.Countries))
	for code, c := range w.Countries {
		countries[code] = map[string]any{
			"name":          c.Leader.Name,
			"traits":        c.Leader.Traits,
			"econ":          c.Leader.EconPower,
			"war":           c.Leader.WarPower,
			"relationships": c.Relationships,
		}
	}
	active := make([]string, 0, len(w.Events))
	for _, e := range w.Events {
		active = append(active, e.Title)
	}
	payload, _ := json.Marshal(map[string]any{
		"countries":     countries,
		"transcript":    transcript,
		"active_events": active,
	})
	return string(payload)
}
