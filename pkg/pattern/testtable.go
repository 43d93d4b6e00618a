package pattern

// TestTable represents scenario outcomes for one project.
type TestTable struct {
	Label   string          `json:"label"`
	Source  string          `json:"source"` // project the rows belong to
	Results []TestTableItem `json:"results"`
}

// TestTableItem is a single scenario result.
type TestTableItem struct {
	Name     string `json:"name"`               // scenario name
	Group    string `json:"group"`              // scenario group
	Status   string `json:"status"`             // "pass", "fail", "skip", "error"
	Duration string `json:"duration,omitempty"` // formatted duration
	Details  string `json:"details,omitempty"`  // failure diagnostic or skip reason
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }
