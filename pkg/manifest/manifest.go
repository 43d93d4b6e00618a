// Package manifest holds the compiled-in catalogue of sample projects that
// nitcheck drives nit against. Each Manifest declares what a scan of the
// project should detect and what its test suite should report.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Manifest describes one sample project and its expected properties.
type Manifest struct {
	Name                   string   `yaml:"name" validate:"required"`
	Path                   string   `yaml:"path" validate:"required"`
	PrimaryLanguage        string   `yaml:"primary_language" validate:"required"`
	UnitFramework          string   `yaml:"unit_framework" validate:"required"`
	ExpectedLanguages      []string `yaml:"expected_languages" validate:"dive,required"`
	ExpectedFrameworkNames []string `yaml:"expected_framework_names" validate:"dive,required"`
	UntestedSourceFiles    []string `yaml:"untested_source_files" validate:"dive,required"`
	ExistingTestFiles      []string `yaml:"existing_test_files" validate:"dive,required"`
	SetupCommands          []string `yaml:"setup_commands"`
	ExpectedTestCountMin   int      `yaml:"expected_test_count_min" validate:"gte=0"`
	ExpectedAllPass        bool     `yaml:"expected_all_pass"`
}

// Defaults applied when a catalogue entry omits the field.
const (
	DefaultTestCountMin = 1
	DefaultAllPass      = true
)

// UnmarshalYAML applies the catalogue defaults before decoding, so omitted
// fields differ from explicit zero values.
func (m *Manifest) UnmarshalYAML(node *yaml.Node) error {
	type plain Manifest
	p := plain{
		ExpectedTestCountMin: DefaultTestCountMin,
		ExpectedAllPass:      DefaultAllPass,
	}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Manifest(p)
	return nil
}

// Resolve returns the absolute source directory of m under root and fails
// unless it is an existing directory.
func (m Manifest) Resolve(root string) (string, error) {
	dir := m.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", m.Name, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project %s not found: %w", m.Name, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project %s: %s is not a directory", m.Name, abs)
	}
	return abs, nil
}

// FirstUntested returns the first source file expected to lack tests.
func (m Manifest) FirstUntested() (string, bool) {
	if len(m.UntestedSourceFiles) == 0 {
		return "", false
	}
	return m.UntestedSourceFiles[0], true
}

func (m Manifest) clone() Manifest {
	m.ExpectedLanguages = slices.Clone(m.ExpectedLanguages)
	m.ExpectedFrameworkNames = slices.Clone(m.ExpectedFrameworkNames)
	m.UntestedSourceFiles = slices.Clone(m.UntestedSourceFiles)
	m.ExistingTestFiles = slices.Clone(m.ExistingTestFiles)
	m.SetupCommands = slices.Clone(m.SetupCommands)
	return m
}
