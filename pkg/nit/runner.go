// Package nit invokes the nit CLI as an opaque subprocess.
//
// Every invocation runs in a given working directory with its own deadline.
// A non-zero exit is data, not an error: callers read Result.ExitCode. Errors
// are reserved for invocations that never produced an exit code, either because
// the binary could not start or because the deadline killed it (ErrTimeout).
package nit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	"go.uber.org/zap"
)

// CIFlag is prepended to every invocation so nit emits machine-readable output.
const CIFlag = "--ci"

// WaitDelay bounds how long output pipes may stay open after the process is
// killed.
const WaitDelay = 2 * time.Second

// Invocation describes a finished invocation to an Observer.
type Invocation struct {
	Command  string
	Outcome  Outcome
	ExitCode int
	Duration time.Duration
}

// Observer is notified after every invocation.
type Observer interface {
	ObserveInvocation(Invocation)
}

// Runner runs nit commands against one working directory.
type Runner struct {
	cmd      Command
	dir      string
	timeouts Timeouts
	env      []string
	logger   *zap.Logger
	observer Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeouts replaces the per-command deadlines.
func WithTimeouts(t Timeouts) Option { return func(r *Runner) { r.timeouts = t } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithObserver sets an invocation observer.
func WithObserver(o Observer) Option { return func(r *Runner) { r.observer = o } }

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) { r.env = append(r.env, kv...) }
}

// New returns a Runner bound to dir.
func New(cmd Command, dir string, opts ...Option) *Runner {
	r := &Runner{
		cmd:      cmd,
		dir:      dir,
		timeouts: DefaultTimeouts(),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Dir returns the working directory commands run in.
func (r *Runner) Dir() string { return r.dir }

// Run executes `nit --ci <args>` with the given deadline. A zero timeout uses
// the default deadline for args[0].
func (r *Runner) Run(ctx context.Context, timeout time.Duration, args ...string) (*Result, error) {
	if len(r.cmd.Argv) == 0 {
		return nil, errors.New("nit command not located")
	}
	name := "nit"
	if len(args) > 0 {
		name = args[0]
	}
	if timeout <= 0 {
		timeout = r.timeouts.For(name)
	}

	argv := slices.Concat(r.cmd.Argv[1:], []string{CIFlag}, args)
	fullArgs := slices.Concat([]string{CIFlag}, args)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(r.cmd.Argv[0], argv...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), r.env...)
	cmd.WaitDelay = WaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.cmd, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		_ = killProcessGroup(cmd)
		<-done
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("nit %s: %w", name, ctx.Err())
		}
		r.observe(Invocation{Command: name, Outcome: OutcomeTimeout, ExitCode: -1, Duration: elapsed})
		r.logger.Warn("nit timed out",
			zap.String("command", name),
			zap.String("dir", r.dir),
			zap.Duration("timeout", timeout))
		return nil, &TimeoutError{
			Args:    fullArgs,
			Timeout: timeout,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
		}
	}
	elapsed := time.Since(start)

	exitCode := 0
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		exitCode = exitCodeFromError(exitErr)
	case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// nit exited but a leftover child kept the output pipes open.
		exitCode = cmd.ProcessState.ExitCode()
	default:
		return nil, fmt.Errorf("wait %s: %w", r.cmd, waitErr)
	}

	res := &Result{
		Args:     fullArgs,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}
	r.observe(Invocation{Command: name, Outcome: res.Outcome(), ExitCode: exitCode, Duration: elapsed})
	r.logger.Debug("nit finished",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", elapsed))
	return res, nil
}

func (r *Runner) observe(inv Invocation) {
	if r.observer != nil {
		r.observer.ObserveInvocation(inv)
	}
}
