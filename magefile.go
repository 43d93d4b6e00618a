//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"

	"github.com/dkoosis/nitcheck/internal/magetasks"
)

// Default target - build the binary
var Default = Build

func init() {
	if err := magetasks.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

// Build builds the nitcheck binary
func Build() error {
	return magetasks.BuildAll()
}

// Clean removes build artifacts
func Clean() error {
	return magetasks.Clean()
}

// QA runs lint, race-enabled tests and the build
func QA() error {
	return magetasks.QA()
}

// Lint runs all linters
func Lint() error {
	return magetasks.LintAll()
}

// LintFix runs golangci-lint with auto-fixes
func LintFix() error {
	return magetasks.LintGolangciFix()
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs the unit tests
func (Test) All() error {
	return magetasks.TestAll()
}

// Coverage runs the unit tests with coverage
func (Test) Coverage() error {
	return magetasks.TestCoverage()
}

// Race runs the unit tests with the race detector
func (Test) Race() error {
	return magetasks.TestRace()
}

// E2E drives a real nit against EXAMPLES_DIR
func (Test) E2E() error {
	mg.Deps(Build)
	return magetasks.TestE2E()
}
