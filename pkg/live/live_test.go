package live

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/render"
	"github.com/dkoosis/nitcheck/pkg/suite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func plan() ([]manifest.Manifest, []suite.Scenario) {
	projects := []manifest.Manifest{{Name: "python-simple"}, {Name: "go-simple"}}
	scenarios := []suite.Scenario{
		{Name: "scan", Group: suite.GroupHeuristics},
		{Name: "run", Group: suite.GroupHeuristics},
		{Name: "analyze", Group: suite.GroupLLM},
	}
	return projects, scenarios
}

func newTestModel(events <-chan suite.Event) Model {
	projects, scenarios := plan()
	m := NewModel(projects, scenarios, render.MonoTheme(), events)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestModel_StartsPending(t *testing.T) {
	m := newTestModel(nil)
	finished, total := m.Counts()
	assert.Equal(t, 0, finished)
	assert.Equal(t, 6, total)

	view := m.View()
	assert.Contains(t, view, "nitcheck 0/6")
	assert.Contains(t, view, ". python-simple  0/3")
	assert.Contains(t, view, "q quit")
}

func TestModel_AppliesEvents(t *testing.T) {
	m := newTestModel(nil)
	m = send(t, m, eventMsg{Project: "python-simple", Scenario: "scan", Status: suite.StatusRunning})
	assert.Contains(t, m.View(), "scan 0s", "running scenario shows elapsed time")

	m = send(t, m, eventMsg{Project: "python-simple", Scenario: "scan", Status: suite.StatusPass})
	m = send(t, m, eventMsg{Project: "python-simple", Scenario: "run", Status: suite.StatusFail, Reason: "check: expected total >= 3, got 0\nmore"})
	m = send(t, m, eventMsg{Project: "python-simple", Scenario: "analyze", Status: suite.StatusSkip, Reason: "ollama not available"})

	finished, _ := m.Counts()
	assert.Equal(t, 3, finished)

	view := m.View()
	assert.Contains(t, view, "x python-simple  3/3 1 failed 1 skipped")
	assert.Contains(t, view, "x run: check: expected total >= 3, got 0")
	assert.NotContains(t, view, "more", "only the first line of a reason is shown")
	assert.NotContains(t, view, "ollama not available", "skips fold into the project line")
}

func TestModel_IgnoresUnplannedEvents(t *testing.T) {
	m := newTestModel(nil)
	m = send(t, m, eventMsg{Project: "rust-simple", Scenario: "scan", Status: suite.StatusPass})
	finished, _ := m.Counts()
	assert.Equal(t, 0, finished)
}

func TestModel_DoneQuits(t *testing.T) {
	m := newTestModel(nil)
	next, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, next.(Model).done)
	assert.NotContains(t, next.(Model).View(), "q quit")
}

func TestModel_QuitBeforeDoneIsInterrupt(t *testing.T) {
	m := newTestModel(nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, next.(Model).interrupted)

	m.done = true
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.False(t, next.(Model).interrupted)
}

func TestModel_ListenReportsClosedChannel(t *testing.T) {
	events := make(chan suite.Event, 1)
	events <- suite.Event{Project: "go-simple", Scenario: "scan", Status: suite.StatusRunning}
	close(events)

	m := newTestModel(events)
	assert.Equal(t, eventMsg{Project: "go-simple", Scenario: "scan", Status: suite.StatusRunning}, m.listen()())
	assert.Equal(t, doneMsg{}, m.listen()())
}

func TestRun_ExitsWhenEventsClose(t *testing.T) {
	projects, scenarios := plan()
	events := make(chan suite.Event, 2)
	events <- suite.Event{Project: "go-simple", Scenario: "scan", Status: suite.StatusRunning}
	events <- suite.Event{Project: "go-simple", Scenario: "scan", Status: suite.StatusPass}
	close(events)

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx, Options{
		Projects:       projects,
		Scenarios:      scenarios,
		Theme:          render.MonoTheme(),
		Output:         &out,
		ProgramOptions: []tea.ProgramOption{tea.WithInput(nil), tea.WithoutSignalHandler(), tea.WithoutRenderer()},
	}, events)
	require.NoError(t, err)
}
