package world

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
)

const bioSystemPrompt = "Write a 3-sentence bio for a fictional head of state. Try to make a unique response."

// New builds a world of n countries labeled A, B, C… with generated
// leaders and a complete symmetric relationship graph. Bio generation
// goes through the provider once per leader; a failure falls back to a
// deterministic one-liner, so world creation itself never fails.
func New(ctx context.Context, n int, gen provider.Provider, rng *entropy.Source) (*World, error) {
	if n < 2 || n > 26 {
		return nil, fmt.Errorf("country count %d out of range [2, 26]", n)
	}

	w := &World{Countries: make(map[string]*Country, n)}
	codes := make([]string, n)
	for i := range codes {
		codes[i] = string(rune('A' + i))
	}

	for _, code := range codes {
		w.Countries[code] = &Country{
			Code:          code,
			Leader:        generateLeader(ctx, code, gen, rng),
			Relationships: make(map[string]float64, n-1),
		}
	}

	for i, a := range codes {
		for _, b := range codes[i+1:] {
			weight := rng.Weight()
			w.Countries[a].Relationships[b] = weight
			w.Countries[b].Relationships[a] = weight
		}
	}

	return w, nil
}

func generateLeader(ctx context.Context, code string, gen provider.Provider, rng *entropy.Source) *Leader {
	traits := make(map[string]float64, len(TraitNames))
	for _, name := range TraitNames {
		traits[name] = rng.Weight()
	}

	l := &Leader{
		Code:       code,
		Name:       "Leader_" + code,
		Age:        40 + rng.IntN(26),
		Traits:     traits,
		EconPower:  rng.Weight(),
		WarPower:   rng.Weight(),
		Population: int64(5+rng.IntN(296)) * 1_000_000,
	}
	l.Backstory = generateBio(ctx, l, gen)
	return l
}

func generateBio(ctx context.Context, l *Leader, gen provider.Provider) string {
	traitPairs := make([]string, 0, len(TraitNames))
	for _, name := range TraitNames {
		traitPairs = append(traitPairs, fmt.Sprintf("%s=%.1f", name, l.Traits[name]))
	}
	prompt := fmt.Sprintf("Bio for %s, age %d, country %s. Traits: %s",
		l.Name, l.Age, l.Code, strings.Join(traitPairs, ", "))

	bio, err := gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: bioSystemPrompt},
		{Role: provider.RoleUser, Content: prompt},
	})
	if err != nil || strings.TrimSpace(bio) == "" {
		log.Debug().Err(err).Str("country", l.Code).Msg("bio generation failed, using fallback")
		return fmt.Sprintf("Leader of country %s, known for their %s approach to governance.",
			l.Code, l.DominantTrait())
	}
	return strings.TrimSpace(bio)
}
