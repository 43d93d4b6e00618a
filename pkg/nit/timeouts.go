package nit

import "time"

// Timeout keys beyond the plain subcommand names.
const (
	// KeyChangelog covers `docs --changelog`, which does not get the longer LLM-bound docs deadline.
	KeyChangelog = "changelog"
)

// Timeouts holds per-command deadlines.
type Timeouts struct {
	Default    time.Duration
	PerCommand map[string]time.Duration
}

// DefaultTimeouts mirrors how long each nit command is allowed to take against
// a small sample project with a local model.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default: 300 * time.Second,
		PerCommand: map[string]time.Duration{
			"generate":   600 * time.Second,
			"analyze":    600 * time.Second,
			"docs":       600 * time.Second,
			"drift":      600 * time.Second,
			"debug":      600 * time.Second,
			"pick":       900 * time.Second,
			KeyChangelog: 300 * time.Second,
			"report":     300 * time.Second,
			"watch":      300 * time.Second,
		},
	}
}

// For returns the deadline for command, falling back to Default.
func (t Timeouts) For(command string) time.Duration {
	if d, ok := t.PerCommand[command]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTimeouts().Default
}

// Merge returns t with every positive entry of o applied on top.
func (t Timeouts) Merge(o Timeouts) Timeouts {
	out := Timeouts{Default: t.Default, PerCommand: make(map[string]time.Duration, len(t.PerCommand))}
	for k, v := range t.PerCommand {
		out.PerCommand[k] = v
	}
	if o.Default > 0 {
		out.Default = o.Default
	}
	for k, v := range o.PerCommand {
		if v > 0 {
			out.PerCommand[k] = v
		}
	}
	return out
}
