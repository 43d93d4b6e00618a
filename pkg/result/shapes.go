package result

import (
	"encoding/json"
	"fmt"
)

// Language is one entry of a scan's detected languages.
type Language struct {
	Language   string  `json:"language"`
	FileCount  int     `json:"file_count"`
	Confidence float64 `json:"confidence"`
}

// Framework is one entry of a scan's detected frameworks.
type Framework struct {
	Name       string  `json:"name"`
	Language   string  `json:"language"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Scan is the result of `nit scan --json-output`.
type Scan struct {
	Root            string      `json:"root"`
	PrimaryLanguage string      `json:"primary_language"`
	WorkspaceTool   any         `json:"workspace_tool"`
	Languages       []Language  `json:"languages"`
	Frameworks      []Framework `json:"frameworks"`
	Packages        any         `json:"packages"`
}

// FrameworkNames lists detected framework names in output order.
func (s *Scan) FrameworkNames() []string {
	names := make([]string, len(s.Frameworks))
	for i, f := range s.Frameworks {
		names[i] = f.Name
	}
	return names
}

// Run is the result of `nit run` in CI mode.
type Run struct {
	Success     bool    `json:"success"`
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	Errors      int     `json:"errors"`
	DurationMS  float64 `json:"duration_ms"`
	FailedTests []any   `json:"failed_tests"`
}

// LLMSection is the llm block of `nit config show`.
type LLMSection struct {
	Mode     string `json:"mode"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
}

// ConfigShow is the result of `nit config show --json-output`.
type ConfigShow struct {
	Project  map[string]any `json:"project"`
	LLM      LLMSection     `json:"llm"`
	Platform struct {
		Mode string `json:"mode"`
	} `json:"platform"`
}

// Coverage is the optional coverage block of an analyze result.
type Coverage struct {
	OverallLine     *float64 `json:"overall_line,omitempty"`
	OverallFunction *float64 `json:"overall_function,omitempty"`
}

// GapReport is the optional gap block of an analyze result.
type GapReport struct {
	FunctionGaps []any `json:"function_gaps"`
}

// Analyze is the result of `nit analyze --json-output`.
type Analyze struct {
	BugsFound   int        `json:"bugs_found"`
	TestsRun    *int       `json:"tests_run,omitempty"`
	TestsPassed *int       `json:"tests_passed,omitempty"`
	Coverage    *Coverage  `json:"coverage,omitempty"`
	GapReport   *GapReport `json:"gap_report,omitempty"`
}

// Drift is the result of `nit drift`.
type Drift struct {
	TotalTests    int `json:"total_tests"`
	PassedTests   int `json:"passed_tests"`
	DriftDetected any `json:"drift_detected"`
}

// Detected reports drift whether nit emits a flag or a count.
func (d *Drift) Detected() bool {
	switch v := d.DriftDetected.(type) {
	case bool:
		return v
	case float64:
		return v > 0
	default:
		return false
	}
}

// DecodeScan validates doc against the scan schema and decodes it.
func DecodeScan(doc map[string]any) (*Scan, error) { return decode[Scan](FamilyScan, doc) }

// DecodeRun validates doc against the run schema and decodes it.
func DecodeRun(doc map[string]any) (*Run, error) { return decode[Run](FamilyRun, doc) }

// DecodeConfigShow validates doc against the config schema and decodes it.
func DecodeConfigShow(doc map[string]any) (*ConfigShow, error) {
	return decode[ConfigShow](FamilyConfig, doc)
}

// DecodeAnalyze validates doc against the analyze schema and decodes it.
func DecodeAnalyze(doc map[string]any) (*Analyze, error) {
	return decode[Analyze](FamilyAnalyze, doc)
}

// DecodeDrift validates doc against the drift schema and decodes it.
func DecodeDrift(doc map[string]any) (*Drift, error) { return decode[Drift](FamilyDrift, doc) }

func decode[T any](family Family, doc map[string]any) (*T, error) {
	if err := Validate(family, doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", family, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", family, err)
	}
	return &out, nil
}
