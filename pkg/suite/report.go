package suite

import (
	"time"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/manifest"
)

// Status is the final state of a scenario.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
	// StatusRunning only appears in events.
	StatusRunning Status = "running"
)

// Outcome is the result of one scenario on one project.
type Outcome struct {
	Scenario string        `json:"scenario"`
	Group    Group         `json:"group"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Steps    []Step        `json:"steps,omitempty"`
}

// ProjectReport collects the outcomes of one project in run order.
type ProjectReport struct {
	Project  string            `json:"project"`
	Manifest manifest.Manifest `json:"-"`
	Outcomes []Outcome         `json:"outcomes"`
}

// Totals counts p's outcomes by status.
func (p ProjectReport) Totals() Totals {
	var t Totals
	for _, o := range p.Outcomes {
		t.add(o.Status)
	}
	return t
}

// Report is the result of a suite run.
type Report struct {
	Started  time.Time       `json:"started"`
	Elapsed  time.Duration   `json:"elapsed"`
	Backend  backend.Info    `json:"backend"`
	Projects []ProjectReport `json:"projects"`
}

// Totals counts outcomes across every project.
type Totals struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Skip  int `json:"skip"`
	Error int `json:"error"`
}

func (t *Totals) add(s Status) {
	switch s {
	case StatusPass:
		t.Pass++
	case StatusFail:
		t.Fail++
	case StatusSkip:
		t.Skip++
	case StatusError:
		t.Error++
	}
}

// Total is the number of outcomes counted.
func (t Totals) Total() int { return t.Pass + t.Fail + t.Skip + t.Error }

// Totals counts every outcome of the run.
func (r *Report) Totals() Totals {
	var t Totals
	for _, p := range r.Projects {
		for _, o := range p.Outcomes {
			t.add(o.Status)
		}
	}
	return t
}

// Failed reports whether any scenario failed or errored.
func (r *Report) Failed() bool {
	t := r.Totals()
	return t.Fail > 0 || t.Error > 0
}
