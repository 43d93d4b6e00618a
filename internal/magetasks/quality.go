package magetasks

import "fmt"

// QA runs lint, race-enabled tests and the build, stopping at the first
// failing stage.
func QA() error {
	PrintH1Header("nitcheck Quality Assurance")
	stages := []struct {
		name string
		run  func() error
	}{
		{"lint", LintAll},
		{"tests", TestRace},
		{"build", BuildAll},
	}
	for _, s := range stages {
		if err := s.run(); err != nil {
			return fmt.Errorf("%s failed: %w", s.name, err)
		}
	}
	PrintSuccess("QA complete!")
	return nil
}
