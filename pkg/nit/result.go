package nit

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dkoosis/nitcheck/pkg/result"
)

// Outcome classifies how an invocation ended.
type Outcome int

const (
	// OutcomeOK is exit code 0.
	OutcomeOK Outcome = iota
	// OutcomeHandled is exit code 1: nit recognized the problem and stopped cleanly.
	OutcomeHandled
	// OutcomeCrashed is any other exit code.
	OutcomeCrashed
	// OutcomeTimeout means the process group was killed at its deadline.
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeHandled:
		return "handled"
	case OutcomeCrashed:
		return "crashed"
	case OutcomeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps an exit code to an Outcome.
func Classify(exitCode int) Outcome {
	switch exitCode {
	case 0:
		return OutcomeOK
	case 1:
		return OutcomeHandled
	default:
		return OutcomeCrashed
	}
}

// Result is the captured outcome of one nit invocation.
type Result struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	jsonOnce sync.Once
	jsonDoc  map[string]any
	jsonErr  error
}

// Success reports exit code 0.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// Outcome classifies the exit code.
func (r *Result) Outcome() Outcome { return Classify(r.ExitCode) }

// Crashed reports an exit code other than 0 or 1.
func (r *Result) Crashed() bool { return r.Outcome() == OutcomeCrashed }

// JSON extracts the result object from stdout. The parse runs once and the
// outcome is cached.
func (r *Result) JSON() (map[string]any, error) {
	r.jsonOnce.Do(func() {
		r.jsonDoc, r.jsonErr = result.ExtractString(r.Stdout)
	})
	return r.jsonDoc, r.jsonErr
}

// Command returns the invocation as a shell-like string for diagnostics.
func (r *Result) Command() string {
	return "nit " + strings.Join(r.Args, " ")
}

// ErrTimeout is matched by errors.Is when an invocation hit its deadline.
var ErrTimeout = errors.New("nit invocation timed out")

// TimeoutError carries whatever output was captured before the kill.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("nit %s: timed out after %s", strings.Join(e.Args, " "), e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
