package render

import "github.com/charmbracelet/lipgloss"

// Theme defines colors and icons for the report and the live view.
type Theme struct {
	Name    string
	Primary lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Icons   ThemeIcons
}

// ThemeIcons defines the icon set for a theme. Fail marks a violated
// assertion and Error a harness problem such as a timeout, so they differ in
// every theme.
type ThemeIcons struct {
	Pass  string
	Fail  string
	Error string
	Skip  string
	Warn  string
	Info  string
	WIP   string
}

// DefaultTheme returns a vibrant color theme.
func DefaultTheme() Theme {
	return Theme{
		Name:    "default",
		Primary: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),  // blue
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),  // green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")), // gray
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "✓",
			Fail:  "✗",
			Error: "‼",
			Skip:  "↷",
			Warn:  "⚠",
			Info:  "●",
			WIP:   "○",
		},
	}
}

// OrcaTheme returns a muted theme.
func OrcaTheme() Theme {
	return Theme{
		Name:    "orca",
		Primary: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),  // pale blue
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("108")), // sage green
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("179")), // muted gold
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("167")), // muted red
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")), // lighter gray
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "✓",
			Fail:  "✗",
			Error: "!",
			Skip:  "-",
			Warn:  "!",
			Info:  "·",
			WIP:   "○",
		},
	}
}

// MonoTheme returns a monochrome theme (no colors).
func MonoTheme() Theme {
	return Theme{
		Name:    "mono",
		Primary: lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Bold:    lipgloss.NewStyle().Bold(true),
		Icons: ThemeIcons{
			Pass:  "+",
			Fail:  "x",
			Error: "E",
			Skip:  "s",
			Warn:  "!",
			Info:  "*",
			WIP:   ".",
		},
	}
}

// Outcome names shared by the test table and the live view. They match the
// scenario statuses of a suite report.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusSkip    = "skip"
	StatusError   = "error"
	StatusRunning = "running"
)

// Status returns the icon and style for a scenario outcome. Anything not yet
// finished renders as work in progress.
func (t Theme) Status(status string) (string, lipgloss.Style) {
	switch status {
	case StatusPass:
		return t.Icons.Pass, t.Success
	case StatusFail:
		return t.Icons.Fail, t.Error
	case StatusError:
		return t.Icons.Error, t.Error
	case StatusSkip:
		return t.Icons.Skip, t.Warning
	default:
		return t.Icons.WIP, t.Muted
	}
}

// Kind returns the icon and style for a summary item kind.
func (t Theme) Kind(kind string) (string, lipgloss.Style) {
	switch kind {
	case "success":
		return t.Icons.Pass, t.Success
	case "error":
		return t.Icons.Fail, t.Error
	case "warning":
		return t.Icons.Warn, t.Warning
	default:
		return t.Icons.Info, t.Primary
	}
}

// Failed reports whether status counts against a run.
func Failed(status string) bool {
	return status == StatusFail || status == StatusError
}

var themes = map[string]func() Theme{
	"default": DefaultTheme,
	"orca":    OrcaTheme,
	"mono":    MonoTheme,
}

// ThemeNames lists the themes ThemeByName knows.
var ThemeNames = []string{"default", "orca", "mono"}

// ThemeByName returns a theme by name, defaulting to DefaultTheme. NO_COLOR
// handling happens in config resolution, which picks mono.
func ThemeByName(name string) Theme {
	if mk, ok := themes[name]; ok {
		return mk()
	}
	return DefaultTheme()
}
