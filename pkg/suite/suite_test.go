package suite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/check"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture lays out examples/<name> for each project and returns the root and
// a registry describing them.
func fixture(t *testing.T, names ...string) (string, *manifest.Registry) {
	t.Helper()
	root := t.TempDir()
	var ms []manifest.Manifest
	for _, name := range names {
		for rel, body := range map[string]string{
			"app/__init__.py":    "",
			"app/util.py":        "def add(a, b):\n    return a + b\n",
			"tests/test_util.py": "from app.util import add\n\ndef test_add():\n    assert add(1, 2) == 3\n",
		} {
			p := filepath.Join(root, name, rel)
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
			require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		}
		ms = append(ms, manifest.Manifest{
			Name:                   name,
			Path:                   name,
			PrimaryLanguage:        "python",
			UnitFramework:          "pytest",
			ExpectedLanguages:      []string{"python"},
			ExpectedFrameworkNames: []string{"pytest"},
			UntestedSourceFiles:    []string{"app/util.py"},
			ExistingTestFiles:      []string{"tests/test_util.py"},
			ExpectedTestCountMin:   1,
			ExpectedAllPass:        true,
		})
	}
	reg, err := manifest.New(ms...)
	require.NoError(t, err)
	return root, reg
}

func available(context.Context) backend.Info {
	return backend.Info{Available: true, Host: "http://127.0.0.1:11434", Model: "qwen2.5-coder:7b"}
}

func unavailable(context.Context) backend.Info {
	return backend.Info{Host: "http://127.0.0.1:11434", Reason: "connection refused"}
}

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	if opts.Workspace.BaseDir == "" {
		opts.Workspace.BaseDir = t.TempDir()
	}
	r, err := New(opts)
	require.NoError(t, err)
	return r
}

func outcomeOf(t *testing.T, rep *Report, project, scenario string) Outcome {
	t.Helper()
	for _, p := range rep.Projects {
		if p.Project != project {
			continue
		}
		for _, o := range p.Outcomes {
			if o.Scenario == scenario {
				return o
			}
		}
	}
	t.Fatalf("no outcome for %s/%s", project, scenario)
	return Outcome{}
}

func TestRun_AllScenariosPassAgainstWellBehavedNit(t *testing.T) {
	root, reg := fixture(t, "demo")
	base := t.TempDir()
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Discover:    available,
		Workspace:   workspace.Options{BaseDir: base},
		Census:      true,
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	for _, o := range rep.Projects[0].Outcomes {
		assert.Equal(t, StatusPass, o.Status, "%s: %s", o.Scenario, o.Reason)
	}
	assert.Equal(t, len(All()), rep.Totals().Pass)
	assert.False(t, rep.Failed())
	assert.True(t, rep.Backend.Available)

	left, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, left, "workspaces are removed after each scenario")

	entries, err := os.ReadDir(filepath.Join(root, "demo"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".nit", e.Name(), "canonical source must stay untouched")
	}
}

func TestRun_SkipsLLMGroupWithoutBackend(t *testing.T) {
	root, reg := fixture(t, "demo")
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Discover:    unavailable,
		Filter:      Filter{Scenarios: []string{"init-auto", "analyze", "pick"}},
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusPass, outcomeOf(t, rep, "demo", "init-auto").Status)
	analyze := outcomeOf(t, rep, "demo", "analyze")
	assert.Equal(t, StatusSkip, analyze.Status)
	assert.Contains(t, analyze.Reason, "connection refused")
	assert.Equal(t, Totals{Pass: 1, Skip: 2}, rep.Totals())
	assert.False(t, rep.Failed())
}

func TestRun_DiscoveryOnlyWhenNeeded(t *testing.T) {
	root, reg := fixture(t, "demo")
	called := false
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Discover:    func(ctx context.Context) backend.Info { called = true; return available(ctx) },
		Filter:      Filter{Group: string(GroupHeuristics), Scenarios: []string{"memory-reset"}},
	})
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRun_CrashIsAFailure(t *testing.T) {
	root, reg := fixture(t, "demo")
	base := t.TempDir()
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t, "FAKE_NIT_CRASH=scan"),
		Workspace:   workspace.Options{BaseDir: base, KeepOnFailure: true},
		Filter:      Filter{Scenarios: []string{"scan", "config-validate"}},
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	scanOutcome := outcomeOf(t, rep, "demo", "scan")
	assert.Equal(t, StatusFail, scanOutcome.Status)
	assert.Contains(t, scanOutcome.Reason, "exit code 2")
	assert.Contains(t, scanOutcome.Reason, "Traceback")
	assert.Equal(t, StatusPass, outcomeOf(t, rep, "demo", "config-validate").Status)
	assert.True(t, rep.Failed())

	left, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, left, 1, "only the failing workspace is kept")
}

func TestRun_CrashInAnyStepFailsTheScenario(t *testing.T) {
	tests := []struct {
		crash    string
		scenario string
		step     string
	}{
		{crash: "init", scenario: "scan", step: "init"},
		{crash: "run", scenario: "report-html", step: "run"},
		{crash: "config", scenario: "config-set", step: "config set"},
		{crash: "docs", scenario: "docs-output-dir", step: "docs --output-dir"},
		{crash: "drift", scenario: "drift", step: "drift --baseline"},
		{crash: "generate", scenario: "generate", step: "generate"},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			root, reg := fixture(t, "demo")
			r := newRunner(t, Options{
				Registry:    reg,
				ExamplesDir: root,
				Nit:         fakeNit(t, "FAKE_NIT_CRASH="+tt.crash),
				Discover:    available,
				Filter:      Filter{Scenarios: []string{tt.scenario}},
			})
			rep, err := r.Run(context.Background())
			require.NoError(t, err)

			o := outcomeOf(t, rep, "demo", tt.scenario)
			assert.Equal(t, StatusFail, o.Status, o.Reason)
			assert.Contains(t, o.Reason, "exit code 2")
			require.NotEmpty(t, o.Steps)
			assert.Equal(t, tt.step, o.Steps[len(o.Steps)-1].Name)
			assert.NotEmpty(t, o.Steps[len(o.Steps)-1].Err)
		})
	}
}

func TestRun_TimeoutIsAnError(t *testing.T) {
	root, reg := fixture(t, "demo")
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t, "FAKE_NIT_HANG=memory"),
		Timeouts:    nit.Timeouts{Default: 2 * time.Second},
		Filter:      Filter{Scenarios: []string{"memory-reset"}},
	})

	start := time.Now()
	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Second)

	o := outcomeOf(t, rep, "demo", "memory-reset")
	assert.Equal(t, StatusError, o.Status)
	assert.Contains(t, o.Reason, "timed out")
	require.NotEmpty(t, o.Steps)
	assert.Equal(t, "memory reset", o.Steps[len(o.Steps)-1].Name)
}

func TestRun_MissingSourceErrorsEveryScenario(t *testing.T) {
	root, reg := fixture(t, "demo")
	require.NoError(t, os.RemoveAll(filepath.Join(root, "demo")))
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Filter:      Filter{Group: string(GroupHeuristics)},
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(heuristics()), rep.Totals().Error)
}

func TestRun_ParallelProjectsAndEvents(t *testing.T) {
	root, reg := fixture(t, "alpha", "beta", "gamma")
	events := make(chan Event, 64)
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Parallel:    3,
		Filter:      Filter{Scenarios: []string{"init-quick", "memory-export"}},
		Events:      events,
	})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	close(events)

	require.Len(t, rep.Projects, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, []string{rep.Projects[0].Project, rep.Projects[1].Project, rep.Projects[2].Project})
	assert.Equal(t, Totals{Pass: 6}, rep.Totals())

	var running, finished int
	for ev := range events {
		switch ev.Status {
		case StatusRunning:
			running++
		case StatusPass:
			finished++
		}
	}
	assert.Equal(t, 6, running)
	assert.Equal(t, 6, finished)
}

func TestRun_CanceledContextSkipsRemaining(t *testing.T) {
	root, reg := fixture(t, "demo")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Filter:      Filter{Scenarios: []string{"init-auto", "scan"}},
		Events:      make(chan Event), // unbuffered and never read
	})

	rep, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Totals{Skip: 2}, rep.Totals())
}

type fakeRecorder struct {
	mu        sync.Mutex
	scenarios map[string]int
	calls     int
	backend   *bool
}

func (f *fakeRecorder) ObserveInvocation(nit.Invocation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeRecorder) ObserveScenario(group, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenarios[group+"/"+status]++
}

func (f *fakeRecorder) SetBackendAvailable(ok bool) { f.backend = &ok }

func TestRun_RecordsMetrics(t *testing.T) {
	root, reg := fixture(t, "demo")
	rec := &fakeRecorder{scenarios: map[string]int{}}
	r := newRunner(t, Options{
		Registry:    reg,
		ExamplesDir: root,
		Nit:         fakeNit(t),
		Discover:    unavailable,
		Recorder:    rec,
		Filter:      Filter{Scenarios: []string{"scan", "debug"}},
	})
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.scenarios["heuristics/pass"])
	assert.Equal(t, 1, rec.scenarios["llm/skip"])
	assert.Equal(t, 2, rec.calls, "init and scan")
	require.NotNil(t, rec.backend)
	assert.False(t, *rec.backend)
}

func TestNew_RejectsUnknownNames(t *testing.T) {
	_, reg := fixture(t, "demo")
	tests := []struct {
		filter Filter
		target error
	}{
		{Filter{Projects: []string{"nope"}}, manifest.ErrNotFound},
		{Filter{Scenarios: []string{"scan", "nope"}}, ErrUnknownScenario},
		{Filter{Group: "slow"}, ErrUnknownGroup},
	}
	for _, tt := range tests {
		_, err := New(Options{Registry: reg, Filter: tt.filter})
		assert.ErrorIs(t, err, tt.target)
	}
}

func TestPlan_FiltersInCatalogueOrder(t *testing.T) {
	_, reg := fixture(t, "a", "b")
	r, err := New(Options{Registry: reg, Filter: Filter{Projects: []string{"b"}, Scenarios: []string{"watch", "scan"}}})
	require.NoError(t, err)

	projects, scenarios := r.Plan()
	require.Len(t, projects, 1)
	assert.Equal(t, "b", projects[0].Name)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "scan", scenarios[0].Name)
	assert.Equal(t, "watch", scenarios[1].Name)

	r, err = New(Options{Registry: reg, Filter: Filter{Group: string(GroupLLM)}})
	require.NoError(t, err)
	_, scenarios = r.Plan()
	assert.Len(t, scenarios, len(llm()))
}

func TestCatalogue(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range All() {
		assert.False(t, seen[s.Name], "duplicate scenario %s", s.Name)
		seen[s.Name] = true
		assert.NotNil(t, s.Run)
		assert.Equal(t, s.Group == GroupLLM, s.NeedsBackend, s.Name)
	}
	assert.Len(t, heuristics(), 15)
	assert.Len(t, llm(), 11)
}

func TestClassify(t *testing.T) {
	v := &check.Violation{Check: "x", Expected: "a", Actual: "b"}
	tests := []struct {
		err    error
		status Status
	}{
		{nil, StatusPass},
		{Skip("no files"), StatusSkip},
		{v, StatusFail},
		{&nit.TimeoutError{Args: []string{"scan"}, Timeout: time.Second}, StatusError},
		{errors.New("boom"), StatusError},
	}
	for _, tt := range tests {
		got, _ := classify(tt.err)
		assert.Equal(t, tt.status, got, "%v", tt.err)
	}
	_, reason := classify(Skip("no files"))
	assert.Equal(t, "no files", reason)
}

func TestSession_StepWrapsAndRecords(t *testing.T) {
	s := &Session{Logger: zapNop()}
	require.NoError(t, s.Step("first", func() error { return nil }))
	err := s.Step("second", func() error { return nit.ErrTimeout })
	assert.ErrorIs(t, err, nit.ErrTimeout)
	assert.EqualError(t, err, "second: nit invocation timed out")
	require.Len(t, s.Steps(), 2)
	assert.Empty(t, s.Steps()[0].Err)
	assert.NotEmpty(t, s.Steps()[1].Err)
}

func zapNop() *zap.Logger { return zap.NewNop() }
