// Package suite runs nit scenarios against every sample project and reports
// what passed, failed, errored or was skipped.
//
// A scenario is a short script of nit invocations followed by assertions from
// package check. Every scenario runs in its own fresh workspace, so side
// effects never leak between scenarios. Projects run concurrently up to a
// parallelism limit; the scenarios of one project run in order.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/check"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/nit"
)

// Group partitions scenarios by what they need from the environment.
type Group string

const (
	// GroupHeuristics scenarios never talk to a model.
	GroupHeuristics Group = "heuristics"
	// GroupLLM scenarios need a discovered Ollama backend.
	GroupLLM Group = "llm"
)

// Scenario is one named check of nit's behavior on a project.
type Scenario struct {
	Name  string
	Group Group
	// NeedsGit gives the workspace a fresh history tagged BaselineTag.
	NeedsGit bool
	// NeedsBackend skips the scenario when discovery found no model, and
	// otherwise points the project at the discovered model before Run.
	NeedsBackend bool
	Run          func(ctx context.Context, s *Session) error
}

// ErrSkipped is matched by errors.Is for a skipped scenario.
var ErrSkipped = errors.New("scenario skipped")

// SkipError explains why a scenario did not run.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

func (e *SkipError) Is(target error) bool { return target == ErrSkipped }

// Skip returns an error that marks the scenario skipped.
func Skip(reason string) error { return &SkipError{Reason: reason} }

// Step is one recorded action of a session.
type Step struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
	Err     string        `json:"error,omitempty"`
}

// Session is everything a scenario may touch. It is owned by one scenario.
type Session struct {
	Manifest manifest.Manifest
	// Dir is the workspace path.
	Dir     string
	Nit     *nit.Runner
	Backend backend.Info
	Logger  *zap.Logger

	steps []Step
}

// Step runs fn as a named step, records it and wraps its error with name.
func (s *Session) Step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	st := Step{Name: name, Elapsed: time.Since(start)}
	if err != nil {
		st.Err = err.Error()
		err = fmt.Errorf("%s: %w", name, err)
	}
	s.steps = append(s.steps, st)
	s.Logger.Debug("step", zap.String("step", name), zap.Duration("elapsed", st.Elapsed), zap.Bool("ok", err == nil))
	return err
}

// Steps returns the steps recorded so far.
func (s *Session) Steps() []Step { return s.steps }

// invoke runs one nit command as a named step. An exit code other than 0 or
// 1 fails the step, so no invocation of a scenario can crash unnoticed.
func (s *Session) invoke(name string, call func() (*nit.Result, error)) (*nit.Result, error) {
	var res *nit.Result
	err := s.Step(name, func() error {
		var err error
		if res, err = call(); err != nil {
			return err
		}
		return check.NoCrash(res)
	})
	return res, err
}

// init runs `nit init --auto`. A handled failure is tolerated; later
// assertions surface a broken init.
func (s *Session) init(ctx context.Context) error {
	_, err := s.invoke("init", func() (*nit.Result, error) { return s.Nit.Init(ctx, true) })
	return err
}

// prepareBackend initializes the project and points it at the discovered
// model.
func (s *Session) prepareBackend(ctx context.Context) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	return s.Step("configure backend", func() error { return s.Nit.ConfigureBackend(ctx, s.Backend) })
}

// All returns every scenario in run order: heuristics first, then llm.
func All() []Scenario {
	return append(heuristics(), llm()...)
}
