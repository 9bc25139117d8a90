package outcome

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/provider"
)

const assessSystemPrompt = `You are a senior diplomatic analyst writing the closing assessment of a
multilateral negotiation simulation. You receive the starting world state,
the final world state, and per-meeting outcome summaries as JSON.
Write a 3-4 paragraph assessment covering:
- How relationships between the countries shifted and why
- Which crises were resolved, which festered, and what that cost
- The economic and military trajectory of each country
- An overall verdict on the diplomatic effort
Write in plain prose. No headings, no bullet points.`

// Assessor writes the end-of-game narrative assessment.
type Assessor struct {
	gen provider.Provider
}

// NewAssessor creates a final-report assessor.
func NewAssessor(gen provider.Provider) *Assessor {
	return &Assessor{gen: gen}
}

// Assess renders a narrative assessment from the report context JSON.
// On generation failure the short verdict line is returned instead.
func (a *Assessor) Assess(ctx context.Context, reportContext, verdict string) string {
	text, err := a.gen.Chat(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: assessSystemPrompt},
		{Role: provider.RoleUser, Content: reportContext},
	})
	if err != nil || text == "" {
		log.Debug().Err(err).Msg("final assessment failed, using verdict line")
		return verdict
	}
	return text
}
