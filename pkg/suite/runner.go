package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/census"
	"github.com/dkoosis/nitcheck/pkg/check"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

// Event is a scenario state transition, sent to Options.Events.
type Event struct {
	Project  string
	Scenario string
	Group    Group
	Status   Status
	Reason   string
}

// Recorder receives run metrics.
type Recorder interface {
	nit.Observer
	ObserveScenario(group, status string, elapsed time.Duration)
	SetBackendAvailable(bool)
}

// Options configures a suite run.
type Options struct {
	Registry    *manifest.Registry
	ExamplesDir string
	Nit         nit.Command
	Timeouts    nit.Timeouts
	// Discover is called at most once, and only if a selected scenario needs
	// the backend.
	Discover  func(context.Context) backend.Info
	Workspace workspace.Options
	// Parallel bounds how many projects run at once. Values below 1 mean 1.
	Parallel int
	Filter   Filter
	// Census logs a warning for expected languages missing from a fixture.
	Census bool
	// Scenarios replaces the built-in catalogue.
	Scenarios []Scenario
	Events    chan<- Event
	Recorder  Recorder
	Logger    *zap.Logger
}

// Runner executes scenarios across projects.
type Runner struct {
	opts   Options
	logger *zap.Logger
}

// New returns a Runner. It fails on a filter naming unknown projects,
// scenarios or groups.
func New(opts Options) (*Runner, error) {
	if opts.Registry == nil {
		opts.Registry = manifest.Default()
	}
	if opts.Scenarios == nil {
		opts.Scenarios = All()
	}
	if opts.Timeouts.Default == 0 && opts.Timeouts.PerCommand == nil {
		opts.Timeouts = nit.DefaultTimeouts()
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, _, err := opts.Filter.apply(opts.Registry, opts.Scenarios); err != nil {
		return nil, err
	}
	return &Runner{opts: opts, logger: logger}, nil
}

// Plan returns the projects and scenarios a Run would execute.
func (r *Runner) Plan() ([]manifest.Manifest, []Scenario) {
	projects, scenarios, _ := r.opts.Filter.apply(r.opts.Registry, r.opts.Scenarios)
	return projects, scenarios
}

// Run executes the plan. Scenario failures are reported, not returned; the
// error is non-nil only when ctx ends the run early, in which case the
// partial report is still returned.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	projects, scenarios := r.Plan()
	report := &Report{Started: time.Now(), Projects: make([]ProjectReport, len(projects))}

	if r.needsBackend(scenarios) {
		report.Backend = r.discover(ctx)
	}
	if r.opts.Recorder != nil {
		r.opts.Recorder.SetBackendAvailable(report.Backend.Available)
	}

	// Sessions never cancel each other, so the group carries no context.
	var g errgroup.Group
	g.SetLimit(r.opts.Parallel)
	for i, m := range projects {
		report.Projects[i] = ProjectReport{Project: m.Name, Manifest: m}
		g.Go(func() error {
			report.Projects[i].Outcomes = r.runProject(ctx, m, scenarios, report.Backend)
			return nil
		})
	}
	_ = g.Wait()
	report.Elapsed = time.Since(report.Started)

	t := report.Totals()
	r.logger.Info("suite finished",
		zap.Int("pass", t.Pass),
		zap.Int("fail", t.Fail),
		zap.Int("skip", t.Skip),
		zap.Int("error", t.Error),
		zap.Duration("elapsed", report.Elapsed))
	return report, ctx.Err()
}

func (r *Runner) needsBackend(scenarios []Scenario) bool {
	for _, s := range scenarios {
		if s.NeedsBackend {
			return true
		}
	}
	return false
}

func (r *Runner) discover(ctx context.Context) backend.Info {
	if r.opts.Discover == nil {
		return backend.Info{Reason: "discovery disabled"}
	}
	info := r.opts.Discover(ctx)
	if info.Available {
		r.logger.Info("backend discovered", zap.String("host", info.Host), zap.String("model", info.Model))
	} else {
		r.logger.Warn("backend unavailable, llm scenarios will be skipped",
			zap.String("host", info.Host), zap.String("reason", info.Reason))
	}
	return info
}

func (r *Runner) runProject(ctx context.Context, m manifest.Manifest, scenarios []Scenario, info backend.Info) []Outcome {
	logger := r.logger.With(zap.String("project", m.Name))
	outcomes := make([]Outcome, 0, len(scenarios))

	src, err := m.Resolve(r.opts.ExamplesDir)
	if err != nil {
		logger.Error("project source unavailable", zap.Error(err))
		for _, s := range scenarios {
			o := Outcome{Scenario: s.Name, Group: s.Group, Status: StatusError, Reason: err.Error()}
			r.finish(ctx, m.Name, o)
			outcomes = append(outcomes, o)
		}
		return outcomes
	}
	if r.opts.Census {
		r.preflight(ctx, logger, m, src)
	}

	for _, s := range scenarios {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = Outcome{Scenario: s.Name, Group: s.Group, Status: StatusSkip, Reason: err.Error()}
		} else {
			r.emit(ctx, Event{Project: m.Name, Scenario: s.Name, Group: s.Group, Status: StatusRunning})
			o = r.runScenario(ctx, logger, m, src, s, info)
		}
		r.finish(ctx, m.Name, o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (r *Runner) preflight(ctx context.Context, logger *zap.Logger, m manifest.Manifest, src string) {
	heavy := r.opts.Workspace.Heavy
	if heavy == nil {
		heavy = workspace.DefaultHeavyDirs()
	}
	c, err := census.Take(ctx, src, workspace.NewHeavySet(heavy...))
	if err != nil {
		logger.Warn("census failed", zap.Error(err))
		return
	}
	if missing := c.Missing(m.ExpectedLanguages); len(missing) > 0 {
		logger.Warn("fixture lacks expected languages", zap.Strings("missing", missing))
	}
}

func (r *Runner) runScenario(ctx context.Context, logger *zap.Logger, m manifest.Manifest, src string, s Scenario, info backend.Info) Outcome {
	start := time.Now()
	o := Outcome{Scenario: s.Name, Group: s.Group}
	logger = logger.With(zap.String("scenario", s.Name))

	if s.NeedsBackend && !info.Available {
		o.Status, o.Reason = StatusSkip, "ollama not available"
		if info.Reason != "" {
			o.Reason += ": " + info.Reason
		}
		return o
	}

	wsOpts := r.opts.Workspace
	wsOpts.Logger = logger
	ws, err := workspace.Acquire(ctx, m.Name, src, wsOpts)
	if err != nil {
		o.Status, o.Reason, o.Elapsed = StatusError, err.Error(), time.Since(start)
		return o
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("workspace cleanup failed", zap.Error(err))
		}
	}()

	opts := []nit.Option{nit.WithTimeouts(r.opts.Timeouts), nit.WithLogger(logger)}
	if r.opts.Recorder != nil {
		opts = append(opts, nit.WithObserver(r.opts.Recorder))
	}
	sess := &Session{
		Manifest: m,
		Dir:      ws.Path(),
		Nit:      nit.New(r.opts.Nit, ws.Path(), opts...),
		Backend:  info,
		Logger:   logger,
	}

	err = r.execute(ctx, sess, s)
	o.Status, o.Reason = classify(err)
	o.Elapsed = time.Since(start)
	o.Steps = sess.Steps()
	if o.Status == StatusFail || o.Status == StatusError {
		ws.Fail()
		logger.Warn("scenario "+string(o.Status), zap.String("reason", o.Reason), zap.String("workspace", ws.Path()))
	} else {
		logger.Debug("scenario "+string(o.Status), zap.Duration("elapsed", o.Elapsed))
	}
	return o
}

func (r *Runner) execute(ctx context.Context, sess *Session, s Scenario) error {
	if s.NeedsGit {
		if err := sess.Step("git history", func() error { return workspace.InitHistory(sess.Dir) }); err != nil {
			return err
		}
	}
	if s.NeedsBackend {
		if err := sess.prepareBackend(ctx); err != nil {
			return err
		}
	}
	return s.Run(ctx, sess)
}

// classify maps a scenario error onto a status: violations fail, skips skip,
// and anything else (timeouts, I/O, a missing binary) is an error.
func classify(err error) (Status, string) {
	switch {
	case err == nil:
		return StatusPass, ""
	case errors.Is(err, ErrSkipped):
		if se := (*SkipError)(nil); errors.As(err, &se) {
			return StatusSkip, se.Reason
		}
		return StatusSkip, err.Error()
	case errors.Is(err, check.ErrViolation):
		return StatusFail, err.Error()
	default:
		return StatusError, err.Error()
	}
}

func (r *Runner) finish(ctx context.Context, project string, o Outcome) {
	if r.opts.Recorder != nil {
		r.opts.Recorder.ObserveScenario(string(o.Group), string(o.Status), o.Elapsed)
	}
	r.emit(ctx, Event{Project: project, Scenario: o.Scenario, Group: o.Group, Status: o.Status, Reason: o.Reason})
}

// emit delivers ev unless ctx ends first.
func (r *Runner) emit(ctx context.Context, ev Event) {
	if r.opts.Events == nil {
		return
	}
	select {
	case r.opts.Events <- ev:
	case <-ctx.Done():
	}
}

// String renders an event for logs.
func (e Event) String() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s/%s %s: %s", e.Project, e.Scenario, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s/%s %s", e.Project, e.Scenario, e.Status)
}
