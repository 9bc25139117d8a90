package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/session"
)

func testModel(t *testing.T) Model {
	t.Helper()
	mgr := session.NewManager(session.Deps{
		Gen: provider.NewMock("gen", "We stand ready to negotiate."),
		RNG: entropy.New(7),
	}, 0)
	m := New(mgr, 3)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func lastLine(m Model) string {
	if len(m.lines) == 0 {
		return ""
	}
	return m.lines[len(m.lines)-1]
}

func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func startSession(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := m.handleCommand("start")
	if !m.busy {
		t.Error("model should be busy while starting")
	}
	m = runCmd(t, m, cmd)
	if m.sess == nil {
		t.Fatal("start did not attach a session")
	}
	return m
}

func TestUnknownCommand(t *testing.T) {
	m := testModel(t)
	m, cmd := m.handleCommand("launch")
	if cmd != nil {
		t.Error("unknown command should not produce work")
	}
	if !strings.Contains(lastLine(m), "unknown command") {
		t.Errorf("expected unknown command error, got %q", lastLine(m))
	}
}

func TestCommandsRequireSession(t *testing.T) {
	for _, line := range []string{"status", "select E1", "meeting", "respond hi", "end", "time", "report"} {
		m := testModel(t)
		m, cmd := m.handleCommand(line)
		if cmd != nil {
			t.Errorf("%q should not produce work without a session", line)
		}
		if !strings.Contains(lastLine(m), "no session") {
			t.Errorf("%q: expected no-session error, got %q", line, lastLine(m))
		}
	}
}

func TestStartAttachesSession(t *testing.T) {
	m := startSession(t, testModel(t))
	if m.busy {
		t.Error("model should be idle after start completes")
	}
	if m.sessions.Count() != 1 {
		t.Errorf("manager has %d sessions, want 1", m.sessions.Count())
	}
}

func TestStartRejectsBadCount(t *testing.T) {
	m := testModel(t)
	m, cmd := m.handleCommand("start four")
	if cmd != nil {
		t.Error("bad count should not produce work")
	}
	if !strings.Contains(lastLine(m), "usage: start") {
		t.Errorf("expected usage error, got %q", lastLine(m))
	}
}

func TestSelectSetsAndClearsAgenda(t *testing.T) {
	m := startSession(t, testModel(t))

	m, _ = m.handleCommand("select E1, E2")
	if len(m.agenda) != 2 || m.agenda[0] != "E1" || m.agenda[1] != "E2" {
		t.Errorf("agenda = %v, want [E1 E2]", m.agenda)
	}

	m, _ = m.handleCommand("select")
	if m.agenda != nil {
		t.Errorf("agenda = %v, want cleared", m.agenda)
	}
}

func TestRespondRunsRound(t *testing.T) {
	m := startSession(t, testModel(t))

	m, cmd := m.handleCommand("respond Please de-escalate.")
	m = runCmd(t, m, cmd)

	if m.busy {
		t.Error("model should be idle after the round")
	}
	var sawPlayer bool
	for _, line := range m.lines {
		if strings.Contains(line, "UN Secretary-General") {
			sawPlayer = true
		}
	}
	if !sawPlayer {
		t.Error("transcript should include the player's line")
	}
}

func TestEndMeetingClearsAgenda(t *testing.T) {
	m := startSession(t, testModel(t))
	m, _ = m.handleCommand("select E1")

	m, cmd := m.handleCommand("end")
	m = runCmd(t, m, cmd)

	if m.agenda != nil {
		t.Errorf("agenda = %v, want cleared after meeting", m.agenda)
	}
	var sawConcluded bool
	for _, line := range m.lines {
		if strings.Contains(line, "Meeting 1 concluded") {
			sawConcluded = true
		}
	}
	if !sawConcluded {
		t.Error("expected meeting conclusion line")
	}
}

func TestReportPrintsVerdict(t *testing.T) {
	m := startSession(t, testModel(t))

	m, cmd := m.handleCommand("report")
	m = runCmd(t, m, cmd)

	var sawVerdict bool
	for _, line := range m.lines {
		if strings.Contains(line, "diplomatic effort") {
			sawVerdict = true
		}
	}
	if !sawVerdict {
		t.Error("expected verdict in transcript")
	}
}

func TestHelpListsCommands(t *testing.T) {
	m := testModel(t)
	m, _ = m.handleCommand("help")
	joined := strings.Join(m.lines, "\n")
	for _, want := range []string{"start", "respond", "report", "time"} {
		if !strings.Contains(joined, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestBusyIgnoresEnter(t *testing.T) {
	m := testModel(t)
	m.busy = true
	m.input.SetValue("start")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if updated.(Model).sessions.Count() != 0 {
		t.Error("enter while busy should not start work")
	}
}
