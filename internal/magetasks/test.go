package magetasks

import "os"

// EnvExamplesDir points the e2e tests at the sample projects.
const EnvExamplesDir = "EXAMPLES_DIR"

// TestAll runs the unit tests.
func TestAll() error {
	return Run("Tests", "go", "test", "./...")
}

// TestCoverage runs the unit tests with a coverage profile.
func TestCoverage() error {
	if err := Run("Test Coverage", "go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return Run("Coverage Report", "go", "tool", "cover", "-func=coverage.out")
}

// TestRace runs the unit tests with the race detector.
func TestRace() error {
	return Run("Race Detector", "go", "test", "-race", "./...")
}

// TestE2E drives a real nit against the sample projects. It needs
// EXAMPLES_DIR and a nit installation; the tests skip themselves otherwise.
func TestE2E() error {
	if os.Getenv(EnvExamplesDir) == "" {
		PrintWarning(EnvExamplesDir + " is not set; e2e tests will skip")
	}
	return RunWith("E2E Tests", nil, "go", "test", "-tags", "e2e", "-count=1", "-timeout", "2h", "./pkg/suite/...")
}
