package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dkoosis/nitcheck/pkg/pattern"
)

// maxDetailLines bounds how much of a diagnostic is repeated per row.
const maxDetailLines = 3

// LLM renders patterns as terse plain text for AI consumption: no ANSI codes,
// a SCOPE line first, failures before passes within each project.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.Summary:
			l.renderSummary(&sb, v)
		case *pattern.TestTable:
			l.renderTable(&sb, v)
		case *pattern.Leaderboard:
			l.renderLeaderboard(&sb, v)
		}
	}
	return sb.String()
}

func (l *LLM) renderSummary(sb *strings.Builder, s *pattern.Summary) {
	if s.Kind == pattern.SummaryKindRun {
		sb.WriteString("SCOPE: " + s.Label + "\n")
		// The per-project lines repeat the table headers; only the backend
		// line carries information of its own.
		for _, m := range s.Metrics {
			if m.Label == "backend" {
				sb.WriteString("backend: " + m.Value + "\n")
			}
		}
		return
	}
	sb.WriteString(s.Label + "\n")
	for _, m := range s.Metrics {
		prefix := "  "
		if m.Kind == "error" {
			prefix = "  MISSING "
		}
		sb.WriteString(prefix + m.Label + ": " + m.Value + "\n")
	}
}

func (l *LLM) renderTable(sb *strings.Builder, t *pattern.TestTable) {
	sb.WriteString("\n## " + t.Label + "\n")

	rows := slices.Clone(t.Results)
	slices.SortStableFunc(rows, func(a, b pattern.TestTableItem) int {
		return statusPriority(a.Status) - statusPriority(b.Status)
	})
	for _, item := range rows {
		dur := ""
		if item.Duration != "" {
			dur = " (" + item.Duration + ")"
		}
		fmt.Fprintf(sb, "  %s %s%s\n", strings.ToUpper(item.Status), item.Name, dur)
		if item.Details == "" {
			continue
		}
		lines := strings.Split(item.Details, "\n")
		for _, line := range lines[:min(maxDetailLines, len(lines))] {
			sb.WriteString("    " + line + "\n")
		}
		if len(lines) > maxDetailLines {
			fmt.Fprintf(sb, "    ... (%d more lines)\n", len(lines)-maxDetailLines)
		}
	}
}

func (l *LLM) renderLeaderboard(sb *strings.Builder, lb *pattern.Leaderboard) {
	if len(lb.Items) == 0 {
		return
	}
	parts := make([]string, 0, len(lb.Items))
	for _, it := range lb.Items {
		parts = append(parts, it.Name+" "+it.Metric)
	}
	sb.WriteString("\n" + strings.ToUpper(lb.Label) + ": " + strings.Join(parts, ", ") + "\n")
}

func statusPriority(status string) int {
	switch status {
	case StatusError:
		return 0
	case StatusFail:
		return 1
	case StatusSkip:
		return 2
	case StatusPass:
		return 3
	default:
		return 4
	}
}
