package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/nitcheck/pkg/pattern"
)

func runPatterns() []pattern.Pattern {
	return []pattern.Pattern{
		&pattern.Summary{
			Label: "RUN: 1 projects, 3 scenarios, 1 fail, 1 pass, 1 skip",
			Kind:  pattern.SummaryKindRun,
			Metrics: []pattern.SummaryItem{
				{Label: "backend", Value: "unavailable: connection refused", Kind: "warning"},
				{Label: "python-simple", Value: "1 fail, 1 pass, 1 skip", Kind: "error"},
			},
		},
		&pattern.TestTable{
			Label:  "python-simple (1 fail, 1 pass, 1 skip)",
			Source: "python-simple",
			Results: []pattern.TestTableItem{
				{Name: "scan", Group: "heuristics", Status: "pass", Duration: "1.2s"},
				{Name: "run", Group: "heuristics", Status: "fail", Duration: "4.0s", Details: "check: expected total >= 3, got 0"},
				{Name: "analyze", Group: "llm", Status: "skip", Details: "ollama not available"},
			},
		},
		&pattern.Leaderboard{
			Label:      "Slowest scenarios",
			MetricName: "Duration",
			TotalCount: 2,
			ShowRank:   true,
			Items: []pattern.LeaderboardItem{
				{Name: "python-simple/run", Metric: "4.0s", Value: 4, Rank: 1},
				{Name: "python-simple/scan", Metric: "1.2s", Value: 1.2, Rank: 2},
			},
		},
	}
}

func TestTerminal_RenderRun(t *testing.T) {
	out := NewTerminal(MonoTheme(), 80).Render(runPatterns())

	for _, want := range []string{
		"RUN: 1 projects",
		"! backend",
		"x python-simple",
		"+ scan",
		"x run",
		"s analyze",
		"check: expected total >= 3, got 0",
		" 1. python-simple/run",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTerminal_AlignsColumns(t *testing.T) {
	tt := &pattern.TestTable{Results: []pattern.TestTableItem{
		{Name: "scan", Status: "pass", Duration: "1.2s"},
		{Name: "docs-changelog", Status: "pass", Duration: "12.0s"},
	}}
	out := NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{tt})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(lines), out)
	}
	if runewidth.StringWidth(lines[0]) != runewidth.StringWidth(lines[1]) {
		t.Errorf("rows not aligned:\n%s", out)
	}
}

func TestTerminal_TruncatesWideNames(t *testing.T) {
	long := strings.Repeat("名", 30)
	lb := &pattern.Leaderboard{Items: []pattern.LeaderboardItem{{Name: long, Metric: "1s", Rank: 1}}}
	out := NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{lb})
	if !strings.Contains(out, "...") {
		t.Errorf("expected truncated name:\n%s", out)
	}
}

func TestTerminal_SkipsEmptyPatterns(t *testing.T) {
	out := NewTerminal(DefaultTheme(), 0).Render([]pattern.Pattern{
		&pattern.TestTable{Label: "empty"},
		&pattern.Leaderboard{Label: "empty"},
	})
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestJSON_Render(t *testing.T) {
	out := NewJSON().Render(runPatterns())

	var doc struct {
		Version  string     `json:"version"`
		Tool     string     `json:"tool"`
		Failed   bool       `json:"failed"`
		Counts   JSONCounts `json:"counts"`
		Patterns []struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		} `json:"patterns"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if doc.Version != JSONVersion || doc.Tool != "nitcheck" {
		t.Errorf("header = %q %q", doc.Version, doc.Tool)
	}
	if !doc.Failed {
		t.Error("a failing row should mark the document failed")
	}
	if want := (JSONCounts{Pass: 1, Fail: 1, Skip: 1}); doc.Counts != want {
		t.Errorf("counts = %+v, want %+v", doc.Counts, want)
	}
	if len(doc.Patterns) != 3 || doc.Patterns[1].Type != "test-table" {
		t.Fatalf("unexpected patterns: %+v", doc.Patterns)
	}
	var table struct {
		Source  string `json:"source"`
		Results []struct {
			Status  string `json:"status"`
			Details string `json:"details"`
		} `json:"results"`
	}
	if err := json.Unmarshal(doc.Patterns[1].Data, &table); err != nil {
		t.Fatal(err)
	}
	if table.Source != "python-simple" || len(table.Results) != 3 || table.Results[1].Status != "fail" {
		t.Errorf("table = %+v", table)
	}
}

func TestJSON_RenderAllPassIsNotFailed(t *testing.T) {
	out := NewJSON().Render([]pattern.Pattern{&pattern.TestTable{
		Source:  "go-api",
		Results: []pattern.TestTableItem{{Name: "scan", Status: "pass"}, {Name: "analyze", Status: "skip"}},
	}})
	var doc struct {
		Failed bool       `json:"failed"`
		Counts JSONCounts `json:"counts"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Failed || doc.Counts != (JSONCounts{Pass: 1, Skip: 1}) {
		t.Errorf("doc = %+v", doc)
	}
}

func TestTheme_Status(t *testing.T) {
	for _, name := range ThemeNames {
		th := ThemeByName(name)
		fail, _ := th.Status(StatusFail)
		errIcon, _ := th.Status(StatusError)
		if fail == errIcon {
			t.Errorf("%s: fail and error share icon %q", name, fail)
		}
		if got, _ := th.Status(StatusRunning); got != th.Icons.WIP {
			t.Errorf("%s: running icon = %q, want %q", name, got, th.Icons.WIP)
		}
	}
	if !Failed(StatusError) || !Failed(StatusFail) || Failed(StatusSkip) {
		t.Error("Failed misclassifies statuses")
	}
}

func TestThemeByName(t *testing.T) {
	for _, name := range ThemeNames {
		if got := ThemeByName(name).Name; got != name {
			t.Errorf("ThemeByName(%q).Name = %q", name, got)
		}
	}
	if got := ThemeByName("unknown").Name; got != "default" {
		t.Errorf("unknown theme fell back to %q", got)
	}
}
