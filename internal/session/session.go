// Package session orchestrates one simulation: the world, its leader
// agents, the crisis pool, and the meeting/time-skip cycle that moves
// them forward.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/agent"
	"github.com/sablecourt/accord/internal/bus"
	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/events"
	"github.com/sablecourt/accord/internal/outcome"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/speech"
	"github.com/sablecourt/accord/internal/store"
	"github.com/sablecourt/accord/internal/world"
)

var (
	// ErrInvalidEventSelection reports an agenda id that is not an
	// active crisis.
	ErrInvalidEventSelection = errors.New("selected event is not active")
	// ErrMeetingOver reports a round past the per-meeting limit.
	ErrMeetingOver = errors.New("meeting round limit reached")
)

// Verdict bands for the final report.
const (
	effectivenessHigh = 0.75
	effectivenessMid  = 0.4
)

const playerTitle = "UN Secretary-General"

// Deps bundles the collaborators a session needs. Bus, Journal and TTS
// may be nil; the session then runs without streaming, persistence or
// audio.
type Deps struct {
	Gen         provider.Provider
	RNG         *entropy.Source
	TTS         speech.Synthesizer
	Bus         *bus.EventBus
	Journal     *store.Store
	MaxRounds   int
	CallTimeout time.Duration
}

// RoundResponse is one utterance produced during a meeting round.
type RoundResponse struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Country string `json:"country,omitempty"`
	Audio   string `json:"audio_base64,omitempty"`
}

// MeetingResult summarizes a concluded meeting.
type MeetingResult struct {
	Outcome        *outcome.Outcome `json:"outcome"`
	ResolvedEvents []string         `json:"resolved_events"`
	MeetingNumber  int              `json:"meeting_number"`
	World          world.Snapshot   `json:"world_state"`
}

// SkipResult summarizes a time skip.
type SkipResult struct {
	ClearedEvents []string              `json:"cleared_events"`
	NewEvents     []world.EventSnapshot `json:"new_events"`
	World         world.Snapshot        `json:"world_state"`
}

// Report is the end-of-game assessment.
type Report struct {
	Verdict        string         `json:"verdict"`
	Assessment     string         `json:"assessment"`
	Effectiveness  float64        `json:"effectiveness"`
	CrisesSpawned  int            `json:"crises_spawned"`
	CrisesResolved int            `json:"crises_resolved"`
	Before         world.Snapshot `json:"before"`
	After          world.Snapshot `json:"after"`
	Audio          string         `json:"audio_base64,omitempty"`
}

// Session is one running simulation. All operations are serialized: a
// session advances one step at a time.
type Session struct {
	mu sync.Mutex

	id       string
	world    *world.World
	baseline *world.World
	agents   map[string]*agent.LeaderAgent
	order    []string

	events   *events.Manager
	analyzer *outcome.Analyzer
	decider  *outcome.Decider
	assessor *outcome.Assessor

	tts     speech.Synthesizer
	bus     *bus.EventBus
	journal *store.Store

	transcript  []string
	round       int
	maxRounds   int
	spawned     int
	resolved    int
	lastActive  time.Time
	callTimeout time.Duration
}

// New creates a session with a freshly generated world of n countries.
func New(ctx context.Context, id string, n int, deps Deps) (*Session, error) {
	if deps.MaxRounds <= 0 {
		deps.MaxRounds = 3
	}
	if deps.RNG == nil {
		deps.RNG = entropy.New(0)
	}

	w, err := world.New(ctx, n, deps.Gen, deps.RNG)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	s := &Session{
		id:          id,
		world:       w,
		baseline:    w.Clone(),
		agents:      make(map[string]*agent.LeaderAgent, n),
		order:       w.Codes(),
		events:      events.NewManager(deps.Gen, deps.RNG),
		analyzer:    outcome.NewAnalyzer(deps.Gen, deps.RNG),
		decider:     outcome.NewDecider(deps.Gen, deps.RNG),
		assessor:    outcome.NewAssessor(deps.Gen),
		tts:         deps.TTS,
		bus:         deps.Bus,
		journal:     deps.Journal,
		maxRounds:   deps.MaxRounds,
		lastActive:  time.Now(),
		callTimeout: deps.CallTimeout,
	}
	for code, c := range w.Countries {
		s.agents[code] = agent.New(c, deps.Gen)
	}

	if s.journal != nil {
		if err := s.journal.CreateSession(id, n); err != nil {
			return nil, fmt.Errorf("journal session: %w", err)
		}
	}

	for _, e := range s.spawnInitial(ctx) {
		s.publish(bus.EventSpawned, bus.CrisisData{EventID: e.ID, Title: e.Title})
	}
	s.publish(bus.EventSessionCreated, map[string]any{"countries": n})

	return s, nil
}

func (s *Session) spawnInitial(ctx context.Context) []*world.Event {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	spawned := s.events.GenerateMultiple(ctx, s.world)
	s.world.Events = append(s.world.Events, spawned...)
	s.spawned += len(spawned)
	return spawned
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LastActive returns the time of the last operation on the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns a copy of the current world state.
func (s *Session) Snapshot() world.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Snapshot()
}

// ConductRound runs one discussion round. Every leader speaks once, in
// country order, about the selected agenda events (all active crises if
// none are selected). An optional player message is delivered to all
// leaders after they speak.
func (s *Session) ConductRound(ctx context.Context, eventIDs []string, playerMsg string) ([]RoundResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.round >= s.maxRounds {
		return nil, ErrMeetingOver
	}

	focus, err := s.agenda(eventIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range focus {
		e.Addressed = true
	}
	s.round++

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	var responses []RoundResponse
	for _, code := range s.order {
		a := s.agents[code]
		leader := a.Country().Leader

		utt := a.Speak(ctx, focus, s.round)
		for _, other := range s.order {
			if other == code {
				continue
			}
			s.agents[other].Observe(fmt.Sprintf("%s said: %s", leader.Name, utt))
		}

		s.record(leader.Name, utt)
		s.publish(bus.EventLeaderSpoke, bus.SpeechData{Speaker: leader.Name, Country: code, Content: utt})

		responses = append(responses, RoundResponse{
			Speaker: fmt.Sprintf("%s (%s)", leader.Name, leader.DominantTrait()),
			Content: utt,
			Type:    "leader",
			Country: code,
			Audio:   speech.Base64(ctx, s.tts, utt, speech.VoiceFor("leader_"+code)),
		})
	}

	if playerMsg != "" {
		for _, code := range s.order {
			s.agents[code].Observe(fmt.Sprintf("%s said: %s", playerTitle, playerMsg))
		}
		s.record("PLAYER", playerMsg)
		s.publish(bus.EventPlayerSpoke, bus.SpeechData{Speaker: playerTitle, Content: playerMsg})
		responses = append(responses, RoundResponse{
			Speaker: playerTitle,
			Content: playerMsg,
			Type:    "player",
		})
	}

	return responses, nil
}

// agenda resolves agenda event ids against the active pool.
func (s *Session) agenda(eventIDs []string) ([]*world.Event, error) {
	if len(eventIDs) == 0 {
		return s.world.Events, nil
	}
	focus := make([]*world.Event, 0, len(eventIDs))
	for _, id := range eventIDs {
		e := s.world.EventByID(id)
		if e == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEventSelection, id)
		}
		focus = append(focus, e)
	}
	return focus, nil
}

// EndMeeting concludes the current meeting: the transcript is analyzed
// into stat and relationship changes, the selected crises are marked
// addressed and checked for resolution, and the meeting counter
// advances. An empty selection covers every active crisis.
func (s *Session) EndMeeting(ctx context.Context, eventIDs []string) (*MeetingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	focus, err := s.agenda(eventIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range focus {
		e.Addressed = true
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	transcript := strings.Join(s.transcript, "\n")
	out := s.analyzer.Analyze(ctx, s.world, transcript)

	for code, d := range out.StatChanges {
		s.world.ApplyStatDelta(code, d.Econ, d.War, d.Pop)
	}
	for _, rc := range out.RelationshipChanges {
		if err := s.world.ApplyRelationshipDelta(rc.A, rc.B, rc.Delta); err != nil {
			log.Debug().Err(err).Str("pair", rc.A+"-"+rc.B).Msg("skipping relationship change")
		}
	}
	if err := s.world.CheckSymmetry(); err != nil {
		log.Error().Err(err).Str("session", s.id).Msg("relationship graph asymmetric after meeting")
	}

	var resolvedTitles []string
	for _, e := range focus {
		if e.Resolved || e.CyclesAlive == 0 {
			continue
		}
		if s.decider.Decide(ctx, e, transcript) {
			e.Resolved = true
			s.resolved++
			resolvedTitles = append(resolvedTitles, e.Title)
			s.publish(bus.EventResolved, bus.CrisisData{EventID: e.ID, Title: e.Title})
		}
	}

	s.world.MeetingNumber++
	meeting := s.world.MeetingNumber

	if s.journal != nil {
		for _, line := range s.transcript {
			speaker, content, ok := strings.Cut(line, ": ")
			if !ok {
				speaker, content = "UNKNOWN", line
			}
			if err := s.journal.AddTranscriptLine(s.id, meeting, speaker, content); err != nil {
				log.Warn().Err(err).Str("session", s.id).Msg("journal transcript line")
				break
			}
		}
		if err := s.journal.RecordOutcome(s.id, meeting, out.Summary, out.StatChanges, out.RelationshipChanges); err != nil {
			log.Warn().Err(err).Str("session", s.id).Msg("journal outcome")
		}
		if err := s.journal.TouchSession(s.id); err != nil {
			log.Warn().Err(err).Str("session", s.id).Msg("journal touch")
		}
	}

	s.transcript = nil
	s.round = 0

	out.Audio = speech.Base64(ctx, s.tts, out.Summary, speech.VoiceFor("world_agent"))
	s.publish(bus.EventMeetingEnded, map[string]any{"meeting_number": meeting, "summary": out.Summary})

	return &MeetingResult{
		Outcome:        out,
		ResolvedEvents: resolvedTitles,
		MeetingNumber:  meeting,
		World:          s.world.Snapshot(),
	}, nil
}

// TimeSkip advances the world six months: every active crisis ages and
// evolves, resolved ones leave the pool, and fresh crises top the pool
// back up.
func (s *Session) TimeSkip(ctx context.Context) (*SkipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	var cleared []string
	var keep []*world.Event
	for _, e := range s.world.Events {
		e.CyclesAlive++
		s.events.Evolve(ctx, e, s.world)
		if e.Resolved {
			cleared = append(cleared, e.Title)
			continue
		}
		e.Addressed = false
		keep = append(keep, e)
	}
	s.world.Events = keep

	spawned := s.events.GenerateMultiple(ctx, s.world)
	s.world.Events = append(s.world.Events, spawned...)
	s.spawned += len(spawned)

	newEvents := make([]world.EventSnapshot, 0, len(spawned))
	for _, e := range spawned {
		e.Audio = speech.Base64(ctx, s.tts,
			fmt.Sprintf("Breaking news: %s. %s", e.Title, e.Description),
			speech.VoiceFor("world_agent"))
		s.publish(bus.EventSpawned, bus.CrisisData{EventID: e.ID, Title: e.Title})
		newEvents = append(newEvents, world.EventSnapshot{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Type:        e.Type,
			Audio:       e.Audio,
		})
	}

	s.publish(bus.EventTimeSkipped, map[string]any{"cleared": len(cleared), "spawned": len(spawned)})

	return &SkipResult{
		ClearedEvents: cleared,
		NewEvents:     newEvents,
		World:         s.world.Snapshot(),
	}, nil
}

// FinalReport scores the whole run: crisis resolution effectiveness,
// before and after world states, and a narrative assessment.
func (s *Session) FinalReport(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	effectiveness := 0.0
	if s.spawned > 0 {
		effectiveness = float64(s.resolved) / float64(s.spawned)
	}

	var band string
	switch {
	case effectiveness >= effectivenessHigh:
		band = "very effective"
	case effectiveness >= effectivenessMid:
		band = "mixed"
	default:
		band = "fragile"
	}
	verdict := fmt.Sprintf("The diplomatic effort was %s: %d of %d crises were resolved.",
		band, s.resolved, s.spawned)

	var summaries []string
	if s.journal != nil {
		if rows, err := s.journal.Outcomes(s.id); err == nil {
			for _, row := range rows {
				summaries = append(summaries, row.Summary)
			}
		}
	}

	before := s.baseline.Snapshot()
	after := s.world.Snapshot()
	reportContext, _ := json.Marshal(map[string]any{
		"initial_world":    before,
		"final_world":      after,
		"meeting_outcomes": summaries,
		"crises_spawned":   s.spawned,
		"crises_resolved":  s.resolved,
		"verdict":          verdict,
	})

	assessment := s.assessor.Assess(ctx, string(reportContext), verdict)

	return &Report{
		Verdict:        verdict,
		Assessment:     assessment,
		Effectiveness:  effectiveness,
		CrisesSpawned:  s.spawned,
		CrisesResolved: s.resolved,
		Before:         before,
		After:          after,
		Audio:          speech.Base64(ctx, s.tts, verdict, speech.VoiceFor("world_agent")),
	}, nil
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) publish(t bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Type: t, SessionID: s.id, Data: data})
}

func (s *Session) record(speaker, content string) {
	s.transcript = append(s.transcript, speaker+": "+content)
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}
