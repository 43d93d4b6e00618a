package magetasks

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/magefile/mage/sh"
)

// IsCommandNotFound checks if the error indicates the command was not found.
// This handles exec.ErrNotFound and platform-specific string fallbacks.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "executable file not found") ||
		strings.Contains(errStr, "no such file or directory")
}

// Run executes a named step with output streamed to the terminal.
func Run(name, cmd string, args ...string) error {
	return RunWith(name, nil, cmd, args...)
}

// RunWith is Run with extra environment variables.
func RunWith(name string, env map[string]string, cmd string, args ...string) error {
	PrintH2Header(name)
	if err := sh.RunWithV(env, cmd, args...); err != nil {
		PrintError(name + " failed")
		return err
	}
	PrintSuccess(name)
	return nil
}

// optional downgrades a missing tool to a warning.
func optional(err error, install string) error {
	if IsCommandNotFound(err) {
		PrintWarning("not installed (install: " + install + ")")
		return nil
	}
	return err
}
