package pattern

// SummaryKind identifies what a summary describes, so renderers dispatch on it
// instead of on label text.
type SummaryKind string

const (
	// SummaryKindRun heads a whole suite run.
	SummaryKindRun SummaryKind = "run"
	// SummaryKindProjects lists the manifests known to the registry.
	SummaryKindProjects SummaryKind = "projects"
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string        `json:"label"`
	Kind    SummaryKind   `json:"kind"`
	Metrics []SummaryItem `json:"metrics"`
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string `json:"label"` // e.g. a project name or "backend"
	Value string `json:"value"` // formatted value
	Kind  string `json:"kind"`  // "success", "error", "warning", "info"; affects coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
