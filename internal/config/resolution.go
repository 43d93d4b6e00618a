package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

// Priority order for resolution. Lower values win.
const (
	PriorityCLI     = 1
	PriorityEnv     = 2
	PriorityFile    = 3
	PriorityDefault = 4
)

// Source names where a resolved value came from.
type Source string

const (
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Environment variables read during resolution.
const (
	EnvExamplesDir = "EXAMPLES_DIR"
	EnvParallel    = "NITCHECK_PARALLEL"
	EnvKeep        = "NITCHECK_KEEP"
	EnvDebug       = "NITCHECK_DEBUG"
	EnvFormat      = "NITCHECK_FORMAT"
	EnvNoColor     = "NO_COLOR"
)

// Output formats and scenario groups.
const (
	FormatAuto     = "auto"
	FormatTerminal = "terminal"
	FormatLLM      = "llm"
	FormatJSON     = "json"

	GroupAll = "all"
)

// Defaults.
const (
	DefaultExamplesDir = "."
	DefaultParallel    = 1
	DefaultFormat      = FormatAuto
	DefaultTheme       = "default"
)

// CLIFlags holds command-line values. The *Set fields record whether a flag
// was given explicitly, so zero values can still override lower sources.
type CLIFlags struct {
	ConfigFile    string
	ExamplesDir   string
	NitBin        string
	OllamaHost    string
	Format        string
	Theme         string
	Group         string
	MetricsFile   string
	Parallel      int
	Keep          bool
	KeepOnFailure bool
	Debug         bool
	NoColor       bool

	ParallelSet      bool
	KeepSet          bool
	KeepOnFailureSet bool
	DebugSet         bool
	NoColorSet       bool
}

// Config is the resolved configuration.
type Config struct {
	ExamplesDir        string                   `validate:"required"`
	NitBin             string
	OllamaHost         string
	ProbeTimeout       time.Duration            `validate:"gt=0"`
	ModelPreferences   []string                 `validate:"min=1,dive,required"`
	HeavyDirs          []string                 `validate:"dive,required"`
	DefaultTimeout     time.Duration            `validate:"gt=0"`
	CommandTimeouts    map[string]time.Duration `validate:"dive,keys,required,endkeys,gt=0"`
	MaterializeTimeout time.Duration            `validate:"gt=0"`
	Parallel           int                      `validate:"gte=1"`
	Keep               bool
	KeepOnFailure      bool
	Format             string `validate:"oneof=terminal llm json auto"`
	Theme              string `validate:"oneof=default orca mono"`
	Group              string `validate:"oneof=heuristics llm all"`
	MetricsFile        string
	Debug              bool
	NoColor            bool

	// ConfigPath is the file that was read, or "" when none was found.
	ConfigPath string
	// Sources maps setting names to where their value came from.
	Sources map[string]Source
}

// Timeouts returns the per-command nit deadlines.
func (c *Config) Timeouts() nit.Timeouts {
	return nit.DefaultTimeouts().Merge(nit.Timeouts{Default: c.DefaultTimeout, PerCommand: c.CommandTimeouts})
}

// Defaults returns a Config populated from hardcoded defaults only.
func Defaults() *Config {
	c := &Config{
		ExamplesDir:        DefaultExamplesDir,
		OllamaHost:         backend.DefaultHost,
		ProbeTimeout:       backend.DefaultProbeTimeout,
		ModelPreferences:   backend.DefaultPreferences(),
		HeavyDirs:          workspace.DefaultHeavyDirs(),
		DefaultTimeout:     nit.DefaultTimeouts().Default,
		CommandTimeouts:    map[string]time.Duration{},
		MaterializeTimeout: workspace.DefaultTimeout,
		Parallel:           DefaultParallel,
		Format:             DefaultFormat,
		Theme:              DefaultTheme,
		Group:              GroupAll,
		Sources:            map[string]Source{},
	}
	for _, k := range settingNames {
		c.Sources[k] = SourceDefault
	}
	return c
}

var settingNames = []string{
	"examples_dir", "nit_bin", "ollama_host", "probe_timeout", "model_preferences",
	"heavy_dirs", "timeouts", "materialize_timeout", "parallel", "keep",
	"keep_on_failure", "format", "theme", "group", "metrics_file", "debug", "no_color",
}

// ResolveConfig resolves configuration from every source in priority order:
// file values over defaults, then environment, then CLI flags.
func ResolveConfig(flags CLIFlags) (*Config, error) {
	path := flags.ConfigFile
	if path == "" {
		path = getConfigPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	fc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	c := Defaults()
	c.ConfigPath = path
	applyFile(c, fc)
	if err := applyEnv(c); err != nil {
		return nil, err
	}
	applyCLI(c, flags)

	if err := validateResolvedConfig(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func applyFile(c *Config, fc *FileConfig) {
	setString(c, "examples_dir", &c.ExamplesDir, fc.ExamplesDir, SourceFile)
	setString(c, "nit_bin", &c.NitBin, fc.NitBin, SourceFile)
	setString(c, "ollama_host", &c.OllamaHost, fc.OllamaHost, SourceFile)
	setString(c, "format", &c.Format, fc.Format, SourceFile)
	setString(c, "theme", &c.Theme, fc.Theme, SourceFile)
	setString(c, "group", &c.Group, fc.Group, SourceFile)
	setString(c, "metrics_file", &c.MetricsFile, fc.MetricsFile, SourceFile)

	if fc.ProbeTimeout != 0 {
		c.ProbeTimeout, c.Sources["probe_timeout"] = fc.ProbeTimeout, SourceFile
	}
	if fc.MaterializeTimeout != 0 {
		c.MaterializeTimeout, c.Sources["materialize_timeout"] = fc.MaterializeTimeout, SourceFile
	}
	if fc.Timeouts.Default != 0 || len(fc.Timeouts.Commands) > 0 {
		if fc.Timeouts.Default != 0 {
			c.DefaultTimeout = fc.Timeouts.Default
		}
		c.CommandTimeouts = maps.Clone(fc.Timeouts.Commands)
		c.Sources["timeouts"] = SourceFile
	}
	if len(fc.ModelPreferences) > 0 {
		c.ModelPreferences, c.Sources["model_preferences"] = slices.Clone(fc.ModelPreferences), SourceFile
	}
	if len(fc.HeavyDirs) > 0 {
		c.HeavyDirs, c.Sources["heavy_dirs"] = slices.Clone(fc.HeavyDirs), SourceFile
	}
	if fc.Parallel != 0 {
		c.Parallel, c.Sources["parallel"] = fc.Parallel, SourceFile
	}
	setBool(c, "keep", &c.Keep, fc.Keep, SourceFile)
	setBool(c, "keep_on_failure", &c.KeepOnFailure, fc.KeepOnFailure, SourceFile)
	setBool(c, "debug", &c.Debug, fc.Debug, SourceFile)
}

func applyEnv(c *Config) error {
	setString(c, "examples_dir", &c.ExamplesDir, os.Getenv(EnvExamplesDir), SourceEnv)
	setString(c, "nit_bin", &c.NitBin, os.Getenv(nit.EnvBin), SourceEnv)
	setString(c, "ollama_host", &c.OllamaHost, os.Getenv(backend.EnvHost), SourceEnv)
	setString(c, "format", &c.Format, os.Getenv(EnvFormat), SourceEnv)

	if v := os.Getenv(EnvParallel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		c.Parallel, c.Sources["parallel"] = n, SourceEnv
	}
	setBool(c, "keep", &c.Keep, getEnvBool(EnvKeep), SourceEnv)
	setBool(c, "debug", &c.Debug, getEnvBool(EnvDebug), SourceEnv)
	if os.Getenv(EnvNoColor) != "" {
		c.NoColor, c.Sources["no_color"] = true, SourceEnv
	}
	return nil
}

func applyCLI(c *Config, f CLIFlags) {
	setString(c, "examples_dir", &c.ExamplesDir, f.ExamplesDir, SourceCLI)
	setString(c, "nit_bin", &c.NitBin, f.NitBin, SourceCLI)
	setString(c, "ollama_host", &c.OllamaHost, f.OllamaHost, SourceCLI)
	setString(c, "format", &c.Format, f.Format, SourceCLI)
	setString(c, "theme", &c.Theme, f.Theme, SourceCLI)
	setString(c, "group", &c.Group, f.Group, SourceCLI)
	setString(c, "metrics_file", &c.MetricsFile, f.MetricsFile, SourceCLI)

	if f.ParallelSet {
		c.Parallel, c.Sources["parallel"] = f.Parallel, SourceCLI
	}
	if f.KeepSet {
		c.Keep, c.Sources["keep"] = f.Keep, SourceCLI
	}
	if f.KeepOnFailureSet {
		c.KeepOnFailure, c.Sources["keep_on_failure"] = f.KeepOnFailure, SourceCLI
	}
	if f.DebugSet {
		c.Debug, c.Sources["debug"] = f.Debug, SourceCLI
	}
	if f.NoColorSet {
		c.NoColor, c.Sources["no_color"] = f.NoColor, SourceCLI
	}
	// NO_COLOR only changes the theme when no explicit theme was chosen.
	if c.NoColor && c.Sources["theme"] == SourceDefault {
		c.Theme = "mono"
	}
}

func setString(c *Config, name string, dst *string, v string, src Source) {
	if v != "" {
		*dst = v
		c.Sources[name] = src
	}
}

func setBool(c *Config, name string, dst *bool, v *bool, src Source) {
	if v != nil {
		*dst = *v
		c.Sources[name] = src
	}
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set to a parseable value.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateResolvedConfig rejects settings nitcheck cannot run with.
func validateResolvedConfig(c *Config) error {
	return validate.Struct(c)
}
