// Package live shows suite progress on an interactive terminal.
//
// The view consumes the suite's event channel and exits when the channel is
// closed. It renders one line per project and expands the scenarios that are
// running or did not pass.
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/render"
	"github.com/dkoosis/nitcheck/pkg/suite"
)

// ErrInterrupted is returned when the user quits before the suite finishes.
var ErrInterrupted = errors.New("interrupted")

// Options configures Run.
type Options struct {
	Projects  []manifest.Manifest
	Scenarios []suite.Scenario
	Theme     render.Theme
	// Output and Input default to the process's stdout and stdin.
	Output io.Writer
	Input  io.Reader
	// Extra program options, mostly for tests.
	ProgramOptions []tea.ProgramOption
}

// Run displays progress until events is closed or ctx ends.
func Run(ctx context.Context, opts Options, events <-chan suite.Event) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	popts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if opts.Input != nil {
		popts = append(popts, tea.WithInput(opts.Input))
	}
	popts = append(popts, opts.ProgramOptions...)

	program := tea.NewProgram(NewModel(opts.Projects, opts.Scenarios, opts.Theme, events), popts...)
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("live view: %w", err)
	}
	if m, ok := final.(Model); ok && m.interrupted {
		return ErrInterrupted
	}
	return nil
}

type row struct {
	scenario string
	status   suite.Status
	reason   string
	started  time.Time
	finished time.Time
}

type project struct {
	name string
	rows []*row
}

// Model is the bubbletea model behind Run.
type Model struct {
	projects    []*project
	index       map[string]*row
	events      <-chan suite.Event
	spinner     spinner.Model
	theme       render.Theme
	width       int
	done        bool
	interrupted bool
	now         func() time.Time
}

type eventMsg suite.Event

type doneMsg struct{}

// NewModel lays out every planned scenario as pending.
func NewModel(projects []manifest.Manifest, scenarios []suite.Scenario, theme render.Theme, events <-chan suite.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Primary

	m := Model{
		index:   make(map[string]*row, len(projects)*len(scenarios)),
		events:  events,
		spinner: sp,
		theme:   theme,
		width:   80,
		now:     time.Now,
	}
	for _, pm := range projects {
		p := &project{name: pm.Name}
		for _, s := range scenarios {
			r := &row{scenario: s.Name}
			p.rows = append(p.rows, r)
			m.index[key(pm.Name, s.Name)] = r
		}
		m.projects = append(m.projects, p)
	}
	return m
}

func key(project, scenario string) string { return project + "/" + scenario }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.spinner.Tick)
}

func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.interrupted = !m.done
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(suite.Event(msg))
		return m, m.listen()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// apply records a transition. Events for unplanned scenarios are ignored.
func (m *Model) apply(ev suite.Event) {
	r, ok := m.index[key(ev.Project, ev.Scenario)]
	if !ok {
		return
	}
	r.status = ev.Status
	r.reason = ev.Reason
	if ev.Status == suite.StatusRunning {
		r.started = m.now()
		return
	}
	r.finished = m.now()
}

// Counts returns how many scenarios have finished and how many are planned.
func (m Model) Counts() (finished, total int) {
	for _, p := range m.projects {
		for _, r := range p.rows {
			total++
			if r.terminal() {
				finished++
			}
		}
	}
	return finished, total
}

func (r *row) terminal() bool {
	switch r.status {
	case suite.StatusPass, suite.StatusFail, suite.StatusSkip, suite.StatusError:
		return true
	default:
		return false
	}
}

func (m Model) View() string {
	var sb strings.Builder
	finished, total := m.Counts()
	sb.WriteString(m.theme.Bold.Render(fmt.Sprintf("nitcheck %d/%d", finished, total)))
	sb.WriteString("\n")

	for _, p := range m.projects {
		sb.WriteString(m.projectLine(p))
		sb.WriteString("\n")
		for _, r := range p.rows {
			if line := m.rowLine(r); line != "" {
				sb.WriteString("    ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	if !m.done {
		sb.WriteString(m.theme.Muted.Render("q quit"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) projectLine(p *project) string {
	var pass, fail, skip, done int
	for _, r := range p.rows {
		switch r.status {
		case suite.StatusPass:
			pass++
		case suite.StatusFail, suite.StatusError:
			fail++
		case suite.StatusSkip:
			skip++
		}
		if r.terminal() {
			done++
		}
	}
	icon, style := m.theme.Icons.WIP, m.theme.Muted
	switch {
	case fail > 0:
		icon, style = m.theme.Icons.Fail, m.theme.Error
	case done == len(p.rows) && done > 0:
		icon, style = m.theme.Icons.Pass, m.theme.Success
	case done > 0:
		icon, style = m.theme.Icons.Info, m.theme.Primary
	}
	counts := fmt.Sprintf("%d/%d", done, len(p.rows))
	if fail > 0 {
		counts += fmt.Sprintf(" %d failed", fail)
	}
	if skip > 0 {
		counts += fmt.Sprintf(" %d skipped", skip)
	}
	return "  " + style.Render(icon+" "+p.name) + "  " + m.theme.Muted.Render(counts)
}

// rowLine renders running and unsuccessful scenarios. Passing, skipped and
// pending scenarios are folded into the project line.
func (m Model) rowLine(r *row) string {
	switch r.status {
	case suite.StatusRunning:
		elapsed := m.now().Sub(r.started).Round(time.Second)
		return m.spinner.View() + " " + r.scenario + " " + m.theme.Muted.Render(elapsed.String())
	case suite.StatusFail, suite.StatusError:
		icon, style := m.theme.Status(string(r.status))
		line := icon + " " + r.scenario
		if r.reason != "" {
			line += ": " + firstLine(r.reason)
		}
		return style.Render(clip(line, m.width-6))
	default:
		return ""
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clip(s string, width int) string {
	if width <= 3 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
