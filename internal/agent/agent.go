// Package agent implements the per-country leader persona.
//
// Each LeaderAgent owns a private memory of conversation turns. Agents
// never reference each other directly: the session broadcasts every
// utterance to the other agents through Observe, so shared awareness
// exists without shared state.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

// memoryWindow is how many trailing memory turns feed the next prompt.
// Memory itself grows unbounded; only the window reaches the provider.
const memoryWindow = 6

// fallbackLines maps a leader's dominant trait to the canned reply used
// when generation fails. A round always produces one utterance per leader.
var fallbackLines = map[string]string{
	"honest":     "We must address these issues with complete transparency.",
	"ambitious":  "This is an opportunity for decisive action.",
	"empathetic": "We must consider all those affected by these crises.",
	"diplomatic": "I believe we can find common ground through dialogue.",
	"ruthless":   "We will do whatever is necessary to protect our interests.",
}

const fallbackDefault = "We must work together on these challenges."

// Turn is one remembered conversation entry.
type Turn struct {
	Role string // provider.RoleUser for observed turns, RoleAssistant for own
	Text string
}

// LeaderAgent is the conversational actor for one country.
type LeaderAgent struct {
	country *world.Country
	gen     provider.Provider
	memory  []Turn
}

// New creates a leader agent bound to a country.
func New(c *world.Country, gen provider.Provider) *LeaderAgent {
	return &LeaderAgent{country: c, gen: gen}
}

// Country returns the country this agent speaks for.
func (a *LeaderAgent) Country() *world.Country {
	return a.country
}

// MemoryLen returns the number of remembered turns.
func (a *LeaderAgent) MemoryLen() int {
	return len(a.memory)
}

// Speak produces the leader's utterance for one round addressing the
// focus events. On generation failure it returns the dominant-trait
// canned line without recording it; the caller still broadcasts it.
func (a *LeaderAgent) Speak(ctx context.Context, focus []*world.Event, round int) string {
	titles := make([]string, 0, len(focus))
	for _, e := range focus {
		titles = append(titles, e.Title)
	}

	messages := make([]provider.Message, 0, memoryWindow+2)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: a.systemPrompt(),
	})
	for _, t := range a.window() {
		messages = append(messages, provider.Message{Role: t.Role, Content: t.Text})
	}
	messages = append(messages, provider.Message{
		Role: provider.RoleUser,
		Content: fmt.Sprintf("Round %d: Headlines → %s. Respond in ≤3 sentences.",
			round, strings.Join(titles, "; ")),
	})

	reply, err := a.gen.Chat(ctx, messages)
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		log.Debug().Err(err).Str("country", a.country.Code).Int("round", round).
			Msg("leader reply generation failed, using trait fallback")
		return a.fallbackLine()
	}

	a.memory = append(a.memory, Turn{Role: provider.RoleAssistant, Text: reply})
	return reply
}

// Observe records a peer utterance or moderator line in memory.
func (a *LeaderAgent) Observe(text string) {
	a.memory = append(a.memory, Turn{Role: provider.RoleUser, Text: text})
}

func (a *LeaderAgent) window() []Turn {
	if len(a.memory) <= memoryWindow {
		return a.memory
	}
	return a.memory[len(a.memory)-memoryWindow:]
}

// systemPrompt builds the persona context. Other countries are referenced
// by their letters only; real names never enter the framing.
func (a *LeaderAgent) systemPrompt() string {
	l := a.country.Leader

	others := make([]string, 0, len(a.country.Relationships))
	for code := range a.country.Relationships {
		others = append(others, code)
	}
	sort.Strings(others)
	relPairs := make([]string, 0, len(others))
	for _, code := range others {
		relPairs = append(relPairs, fmt.Sprintf("country %s:%.1f", code, a.country.Relationships[code]))
	}
	rels := strings.Join(relPairs, ", ")
	if rels == "" {
		rels = "none"
	}

	traitPairs := make([]string, 0, len(world.TraitNames))
	for _, name := range world.TraitNames {
		traitPairs = append(traitPairs, fmt.Sprintf("%s=%.1f", name, l.Traits[name]))
	}

	return fmt.Sprintf(
		"This is a fictional simulation between world leaders. Peaceful resolutions and threats of violence are equally allowed.\n"+
			"You are %s, leader of country %s.\n"+
			"Traits: %s. Relationships: %s.\n"+
			"Speak first-person, ≤3 sentences. Never mention being an AI. "+
			"When referring to other leaders, use 'leader A', 'leader B', etc. "+
			"When referring to other countries, use 'country A', 'country B', etc.",
		l.Name, a.country.Code, strings.Join(traitPairs, ", "), rels)
}

func (a *LeaderAgent) fallbackLine() string {
	if line, ok := fallbackLines[a.country.Leader.DominantTrait()]; ok {
		return line
	}
	return fallbackDefault
}
