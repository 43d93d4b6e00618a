package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dkoosis/nitcheck/internal/config"
	"github.com/dkoosis/nitcheck/internal/metrics"
	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/live"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/mapper"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/render"
	"github.com/dkoosis/nitcheck/pkg/suite"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

type runFlags struct {
	scenarios []string
	census    bool
	noLive    bool
}

func (a *app) runCommand() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run [project...]",
		Short: "Run the scenario suite against sample projects",
		Long: `Run materializes each selected sample project into a scratch workspace,
drives nit through every selected scenario and renders the outcomes.

Scenarios in the llm group need an Ollama backend. When none answers they are
reported as skipped, not failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSuite(cmd.Context(), args, rf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.flags.Group, "group", "", "scenario group: heuristics, llm, all")
	f.StringSliceVar(&rf.scenarios, "scenario", nil, "run only the named scenarios (repeatable)")
	f.IntVar(&a.flags.Parallel, "parallel", config.DefaultParallel, "projects to run at once (env "+config.EnvParallel+")")
	f.BoolVar(&a.flags.Keep, "keep", false, "keep every workspace for inspection (env "+config.EnvKeep+")")
	f.BoolVar(&a.flags.KeepOnFailure, "keep-on-failure", false, "keep workspaces of failed scenarios")
	f.StringVar(&a.flags.MetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this path")
	f.BoolVar(&rf.census, "census", false, "warn when a fixture lacks files for an expected language")
	f.BoolVar(&rf.noLive, "no-live", false, "disable the live progress view")
	return cmd
}

func (a *app) runSuite(ctx context.Context, projects []string, rf runFlags) error {
	cfg := a.cfg
	recorder := metrics.New()
	format := a.format()

	var events chan suite.Event
	if format == config.FormatTerminal && isTTYWriter(a.stdout) && !rf.noLive {
		events = make(chan suite.Event, 16)
	}

	opts := a.suiteOptions(recorder)
	opts.Filter = suite.Filter{Projects: projects, Group: cfg.Group, Scenarios: rf.scenarios}
	opts.Census = rf.census
	if events != nil {
		opts.Events = events
	}
	runner, err := suite.New(opts)
	if err != nil {
		return err
	}

	var report *suite.Report
	var runErr error
	if events != nil {
		report, runErr = a.runLive(ctx, runner, events)
	} else {
		report, runErr = runner.Run(ctx)
	}
	if report == nil {
		return runErr
	}

	fmt.Fprint(a.stdout, a.renderer().Render(mapper.FromReport(report)))

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			a.logger.Warn("write metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("suite interrupted: %w", runErr)
	}
	if report.Failed() {
		return errFailed
	}
	return nil
}

// runLive runs the suite behind the live view. Quitting the view cancels the
// suite, and the partial report is still returned.
func (a *app) runLive(ctx context.Context, runner *suite.Runner, events chan suite.Event) (*suite.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var report *suite.Report
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		report, runErr = runner.Run(ctx)
	}()

	projects, scenarios := runner.Plan()
	err := live.Run(ctx, live.Options{
		Projects:  projects,
		Scenarios: scenarios,
		Theme:     render.ThemeByName(a.cfg.Theme),
		Output:    a.stdout,
		Input:     a.stdin,
	}, events)
	if err != nil {
		if !errors.Is(err, live.ErrInterrupted) {
			a.logger.Warn("live view stopped", zap.Error(err))
		}
		cancel()
	}
	// Keep the suite unblocked if the view exited early.
	go func() {
		for range events {
		}
	}()
	<-done
	return report, runErr
}

// suiteOptions wires configuration into the suite without a filter.
func (a *app) suiteOptions(recorder suite.Recorder) suite.Options {
	cfg := a.cfg
	discovery := backend.NewOnce(a.backendOptions())
	return suite.Options{
		Registry:    manifest.Default(),
		ExamplesDir: cfg.ExamplesDir,
		Nit:         nit.Locate(nit.LocateOptions{Override: cfg.NitBin}),
		Timeouts:    cfg.Timeouts(),
		Discover:    discovery.Get,
		Workspace:   a.workspaceOptions(),
		Parallel:    cfg.Parallel,
		Recorder:    recorder,
		Logger:      a.logger,
	}
}

func (a *app) backendOptions() backend.Options {
	return backend.Options{
		Host:        a.cfg.OllamaHost,
		Timeout:     a.cfg.ProbeTimeout,
		Preferences: a.cfg.ModelPreferences,
		Logger:      a.logger,
	}
}

func (a *app) workspaceOptions() workspace.Options {
	return workspace.Options{
		Heavy:         a.cfg.HeavyDirs,
		Timeout:       a.cfg.MaterializeTimeout,
		Keep:          a.cfg.Keep,
		KeepOnFailure: a.cfg.KeepOnFailure,
		Logger:        a.logger,
	}
}
