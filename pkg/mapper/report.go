// Package mapper converts suite results into visualization patterns.
package mapper

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/pattern"
	"github.com/dkoosis/nitcheck/pkg/suite"
)

const (
	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"
)

// SlowestLimit caps the slowest-scenarios leaderboard.
const SlowestLimit = 5

// FromReport converts a suite report into a run summary, one table per
// project, and a leaderboard of the slowest scenarios.
func FromReport(r *suite.Report) []pattern.Pattern {
	totals := r.Totals()
	metrics := make([]pattern.SummaryItem, 0, len(r.Projects)+1)
	if probed(r.Backend) {
		metrics = append(metrics, backendItem(r.Backend))
	}

	tables := make([]pattern.Pattern, 0, len(r.Projects))
	for _, p := range r.Projects {
		pt := p.Totals()
		metrics = append(metrics, pattern.SummaryItem{
			Label: p.Project,
			Value: countsLabel(pt),
			Kind:  totalsKind(pt),
		})
		tables = append(tables, projectTable(p))
	}

	top := &pattern.Summary{
		Label:   runLabel(len(r.Projects), totals, r.Elapsed),
		Kind:    pattern.SummaryKindRun,
		Metrics: metrics,
	}

	out := append([]pattern.Pattern{top}, tables...)
	if lb := slowest(r, SlowestLimit); lb != nil {
		out = append(out, lb)
	}
	return out
}

func runLabel(projects int, t suite.Totals, elapsed time.Duration) string {
	label := fmt.Sprintf("RUN: %d projects, %d scenarios", projects, t.Total())
	if t.Fail == 0 && t.Error == 0 {
		label += ", all pass"
		if t.Skip > 0 {
			label += fmt.Sprintf(" (%d skipped)", t.Skip)
		}
	} else {
		label += ", " + countsLabel(t)
	}
	if elapsed > 0 {
		label += " in " + formatDuration(elapsed)
	}
	return label
}

// countsLabel lists the non-zero counts, failures first.
func countsLabel(t suite.Totals) string {
	var parts []string
	for _, c := range []struct {
		n    int
		name string
	}{
		{t.Fail, "fail"},
		{t.Error, "error"},
		{t.Pass, "pass"},
		{t.Skip, "skip"},
	} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.name))
		}
	}
	if len(parts) == 0 {
		return "no scenarios"
	}
	return strings.Join(parts, ", ")
}

func totalsKind(t suite.Totals) string {
	switch {
	case t.Fail > 0 || t.Error > 0:
		return kindError
	case t.Pass == 0 && t.Skip > 0:
		return kindWarning
	default:
		return kindSuccess
	}
}

// probed reports whether discovery ran. Runs with no llm scenario skip it.
func probed(b backend.Info) bool {
	return b.Available || b.Host != "" || b.Reason != ""
}

func backendItem(b backend.Info) pattern.SummaryItem {
	if b.Available {
		return pattern.SummaryItem{Label: "backend", Value: b.Model + " at " + b.Host, Kind: kindInfo}
	}
	return pattern.SummaryItem{Label: "backend", Value: "unavailable: " + b.Reason, Kind: kindWarning}
}

func projectTable(p suite.ProjectReport) *pattern.TestTable {
	items := make([]pattern.TestTableItem, 0, len(p.Outcomes))
	for _, o := range p.Outcomes {
		item := pattern.TestTableItem{
			Name:    o.Scenario,
			Group:   string(o.Group),
			Status:  string(o.Status),
			Details: o.Reason,
		}
		if o.Elapsed > 0 {
			item.Duration = formatDuration(o.Elapsed)
		}
		items = append(items, item)
	}
	return &pattern.TestTable{
		Label:   fmt.Sprintf("%s (%s)", p.Project, countsLabel(p.Totals())),
		Source:  p.Project,
		Results: items,
	}
}

// slowest ranks scenarios that ran by elapsed time. Skips are excluded since
// they never invoked nit.
func slowest(r *suite.Report, limit int) *pattern.Leaderboard {
	type entry struct {
		name    string
		elapsed time.Duration
	}
	var all []entry
	for _, p := range r.Projects {
		for _, o := range p.Outcomes {
			if o.Status == suite.StatusSkip || o.Elapsed <= 0 {
				continue
			}
			all = append(all, entry{name: p.Project + "/" + o.Scenario, elapsed: o.Elapsed})
		}
	}
	if len(all) < 2 {
		return nil
	}
	slices.SortStableFunc(all, func(a, b entry) int {
		if c := cmp.Compare(b.elapsed, a.elapsed); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	lb := &pattern.Leaderboard{
		Label:      "Slowest scenarios",
		MetricName: "Duration",
		TotalCount: len(all),
		ShowRank:   true,
	}
	for i, e := range all[:min(limit, len(all))] {
		lb.Items = append(lb.Items, pattern.LeaderboardItem{
			Name:   e.name,
			Metric: formatDuration(e.elapsed),
			Value:  e.elapsed.Seconds(),
			Rank:   i + 1,
		})
	}
	return lb
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Round(100*time.Millisecond).Seconds())
	}
	return d.Round(time.Second).String()
}
