package check

import (
	"fmt"
	"strings"

	"github.com/dkoosis/nitcheck/pkg/nit"
)

// JSONObject extracts the result object from res, or reports why none exists.
func JSONObject(res *nit.Result) (map[string]any, error) {
	data, err := res.JSON()
	if err != nil {
		return nil, &Violation{
			Check:    "json",
			Expected: "a JSON object on stdout",
			Actual:   "none",
			Detail:   err.Error(),
		}
	}
	return data, nil
}

// NoCrash accepts exit codes 0 and 1.
func NoCrash(res *nit.Result) error {
	if res.Crashed() {
		return &Violation{
			Check:    "no-crash",
			Expected: "exit code 0 or 1",
			Actual:   fmt.Sprintf("exit code %d", res.ExitCode),
			Detail:   fmt.Sprintf("%s: %s", res.Command(), tail(res.Stderr, StderrLimit)),
		}
	}
	return nil
}

// Succeeded accepts exit code 0 only.
func Succeeded(res *nit.Result) error {
	if !res.Success() {
		return &Violation{
			Check:    "success",
			Expected: "exit code 0",
			Actual:   fmt.Sprintf("exit code %d", res.ExitCode),
			Detail:   fmt.Sprintf("%s: %s", res.Command(), tail(res.Stderr, StderrLimit)),
		}
	}
	return nil
}

// NonEmptyStdout requires nit to have printed something.
func NonEmptyStdout(res *nit.Result) error {
	if strings.TrimSpace(res.Stdout) == "" {
		return violation("stdout", "non-empty output", "empty stdout")
	}
	return nil
}
