// Package tui provides the terminal console for running a negotiation
// session interactively.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sablecourt/accord/internal/session"
	"github.com/sablecourt/accord/internal/world"
)

// Model is the console TUI model.
type Model struct {
	sessions  *session.Manager
	countries int

	sess   *session.Session
	agenda []string

	viewport viewport.Model
	input    textinput.Model
	lines    []string

	busy   bool
	ready  bool
	width  int
	height int
}

type startedMsg struct {
	sess *session.Session
	snap world.Snapshot
}

type roundMsg struct{ responses []session.RoundResponse }

type meetingMsg struct{ result *session.MeetingResult }

type skipMsg struct{ result *session.SkipResult }

type reportMsg struct{ report *session.Report }

type errMsg struct{ err error }

// New creates a console model.
func New(sessions *session.Manager, countries int) Model {
	input := textinput.New()
	input.Placeholder = "type 'help' for commands"
	input.Prompt = "> "
	input.Focus()

	return Model{
		sessions:  sessions,
		countries: countries,
		input:     input,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chrome := 6 // header, input box, status bar
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chrome
		}
		m.input.Width = msg.Width - 6
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m.handleCommand(line)
		}

	case startedMsg:
		m.busy = false
		m.sess = msg.sess
		m.agenda = nil
		m.say(worldStyle.Render("WORLD"), fmt.Sprintf("Session %s started.", msg.sess.ID()))
		m.printWorld(msg.snap)

	case roundMsg:
		m.busy = false
		for _, r := range msg.responses {
			style := leaderStyle
			if r.Type == "player" {
				style = playerStyle
			}
			m.say(style.Render(r.Speaker), r.Content)
		}

	case meetingMsg:
		m.busy = false
		m.agenda = nil
		m.say(worldStyle.Render("OUTCOME"), msg.result.Outcome.Summary)
		for _, title := range msg.result.ResolvedEvents {
			m.say(resolvedStyle.Render("RESOLVED"), title)
		}
		m.say(dimmedStyle.Render("sys"), fmt.Sprintf("Meeting %d concluded.", msg.result.MeetingNumber))

	case skipMsg:
		m.busy = false
		m.agenda = nil
		for _, title := range msg.result.ClearedEvents {
			m.say(resolvedStyle.Render("CLEARED"), title)
		}
		for _, e := range msg.result.NewEvents {
			m.say(crisisStyle.Render("BREAKING"), fmt.Sprintf("[%s] %s: %s", e.ID, e.Title, e.Description))
		}
		m.say(dimmedStyle.Render("sys"), "Six months pass.")

	case reportMsg:
		m.busy = false
		m.say(worldStyle.Render("VERDICT"), msg.report.Verdict)
		m.say(worldStyle.Render("ASSESSMENT"), msg.report.Assessment)
		m.say(dimmedStyle.Render("sys"), fmt.Sprintf("Crises resolved: %d/%d (%.0f%%)",
			msg.report.CrisesResolved, msg.report.CrisesSpawned, msg.report.Effectiveness*100))

	case errMsg:
		m.busy = false
		m.say(errorStyle.Render("ERROR"), msg.err.Error())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, vpCmd)
}

func (m Model) handleCommand(line string) (Model, tea.Cmd) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "help":
		m.printHelp()
		return m, nil

	case "quit", "exit":
		return m, tea.Quit

	case "start":
		n := m.countries
		if rest != "" {
			if _, err := fmt.Sscanf(rest, "%d", &n); err != nil {
				m.say(errorStyle.Render("ERROR"), "usage: start [countries]")
				return m, nil
			}
		}
		m.busy = true
		m.say(dimmedStyle.Render("sys"), "Convening a new summit...")
		return m, func() tea.Msg {
			sess, err := m.sessions.Create(context.Background(), n)
			if err != nil {
				return errMsg{err}
			}
			return startedMsg{sess: sess, snap: sess.Snapshot()}
		}

	case "status":
		if m.sess == nil {
			m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
			return m, nil
		}
		m.printWorld(m.sess.Snapshot())
		return m, nil

	case "select":
		if m.sess == nil {
			m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
			return m, nil
		}
		if rest == "" {
			m.agenda = nil
			m.say(dimmedStyle.Render("sys"), "Agenda cleared, all crises on the table.")
			return m, nil
		}
		var agenda []string
		for _, id := range strings.Split(rest, ",") {
			agenda = append(agenda, strings.TrimSpace(id))
		}
		m.agenda = agenda
		m.say(dimmedStyle.Render("sys"), "Agenda: "+strings.Join(agenda, ", "))
		return m, nil

	case "meeting", "next":
		return m.conductRound("")

	case "respond":
		if rest == "" {
			m.say(errorStyle.Render("ERROR"), "usage: respond <message>")
			return m, nil
		}
		return m.conductRound(rest)

	case "end":
		if m.sess == nil {
			m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
			return m, nil
		}
		m.busy = true
		sess, agenda := m.sess, m.agenda
		return m, func() tea.Msg {
			result, err := sess.EndMeeting(context.Background(), agenda)
			if err != nil {
				return errMsg{err}
			}
			return meetingMsg{result}
		}

	case "time":
		if m.sess == nil {
			m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
			return m, nil
		}
		m.busy = true
		sess := m.sess
		return m, func() tea.Msg {
			result, err := sess.TimeSkip(context.Background())
			if err != nil {
				return errMsg{err}
			}
			return skipMsg{result}
		}

	case "report":
		if m.sess == nil {
			m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
			return m, nil
		}
		m.busy = true
		sess := m.sess
		return m, func() tea.Msg {
			report, err := sess.FinalReport(context.Background())
			if err != nil {
				return errMsg{err}
			}
			return reportMsg{report}
		}

	default:
		m.say(errorStyle.Render("ERROR"), fmt.Sprintf("unknown command %q, type 'help'", verb))
		return m, nil
	}
}

func (m Model) conductRound(playerMsg string) (Model, tea.Cmd) {
	if m.sess == nil {
		m.say(errorStyle.Render("ERROR"), "no session, use 'start' first")
		return m, nil
	}
	m.busy = true
	sess, agenda := m.sess, m.agenda
	return m, func() tea.Msg {
		responses, err := sess.ConductRound(context.Background(), agenda, playerMsg)
		if err != nil {
			return errMsg{err}
		}
		return roundMsg{responses}
	}
}

func (m *Model) printHelp() {
	help := [][2]string{
		{"start [n]", "convene a summit with n countries"},
		{"status", "show countries, relations and active crises"},
		{"select E1,E2", "set the meeting agenda (empty = all crises)"},
		{"meeting / next", "run a discussion round"},
		{"respond <msg>", "address the leaders and run a round"},
		{"end", "conclude the meeting and apply outcomes"},
		{"time", "skip six months"},
		{"report", "final effectiveness report"},
		{"quit", "leave"},
	}
	for _, h := range help {
		m.line(fmt.Sprintf("  %s %s", valueStyle.Render(fmt.Sprintf("%-14s", h[0])), labelStyle.Render(h[1])))
	}
}

func (m *Model) printWorld(snap world.Snapshot) {
	m.line(headerStyle.Render(fmt.Sprintf("── World, meeting %d ──", snap.MeetingNumber)))

	codes := make([]string, 0, len(snap.Countries))
	for code := range snap.Countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		c := snap.Countries[code]
		m.line(fmt.Sprintf("%s %s, %d. econ %.1f, war %.1f, pop %dM",
			leaderStyle.Render(code+":"), c.Leader.Name, c.Leader.Age,
			c.Leader.EconPower, c.Leader.WarPower, c.Leader.Population/1_000_000))

		rels := make([]string, 0, len(c.Relationships))
		for _, other := range codes {
			if other == code {
				continue
			}
			rels = append(rels, fmt.Sprintf("%s %.1f", other, c.Relationships[other]))
		}
		m.line(labelStyle.Render("   relations: " + strings.Join(rels, ", ")))
	}

	if len(snap.Events) == 0 {
		m.line(dimmedStyle.Render("no active crises"))
	}
	for _, e := range snap.Events {
		marker := ""
		if e.Addressed {
			marker = " (on agenda)"
		}
		m.line(crisisStyle.Render(fmt.Sprintf("[%s] %s", e.ID, e.Title)) +
			labelStyle.Render(fmt.Sprintf(" %s, alive %d cycles%s", e.Type, e.CyclesAlive, marker)))
	}
	m.refresh()
}

func (m *Model) say(who, text string) {
	m.line(who + " " + text)
}

func (m *Model) line(s string) {
	m.lines = append(m.lines, s)
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// View renders the UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := "no session"
	if m.sess != nil {
		status = "session " + m.sess.ID()[:8]
		if len(m.agenda) > 0 {
			status += " agenda " + strings.Join(m.agenda, ",")
		}
	}
	if m.busy {
		status += "  [thinking...]"
	}

	return headerStyle.Render("ACCORD · diplomatic simulation") + "\n" +
		m.viewport.View() + "\n" +
		inputStyle.Width(m.width-2).Render(m.input.View()) + "\n" +
		statusStyle.Width(m.width).Render(status)
}
