package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up locally and in the XDG config dir.
const FileName = ".nitcheck.yaml"

// TimeoutsFile is the timeouts block of the config file.
type TimeoutsFile struct {
	Default  time.Duration            `yaml:"default"`
	Commands map[string]time.Duration `yaml:"commands"`
}

// FileConfig mirrors .nitcheck.yaml. Pointer fields distinguish an explicit
// false from an omitted key.
type FileConfig struct {
	ExamplesDir        string        `yaml:"examples_dir"`
	NitBin             string        `yaml:"nit_bin"`
	OllamaHost         string        `yaml:"ollama_host"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	ModelPreferences   []string      `yaml:"model_preferences"`
	HeavyDirs          []string      `yaml:"heavy_dirs"`
	Timeouts           TimeoutsFile  `yaml:"timeouts"`
	MaterializeTimeout time.Duration `yaml:"materialize_timeout"`
	Parallel           int           `yaml:"parallel"`
	Keep               *bool         `yaml:"keep"`
	KeepOnFailure      *bool         `yaml:"keep_on_failure"`
	Format             string        `yaml:"format"`
	Theme              string        `yaml:"theme"`
	Group              string        `yaml:"group"`
	MetricsFile        string        `yaml:"metrics_file"`
	Debug              *bool         `yaml:"debug"`
}

// LoadFile reads and decodes a config file. A missing file is not an error
// and yields a zero FileConfig.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return &fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fc, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// getConfigPath finds the config file: the working directory first, then the
// user config dir. It returns "" when neither exists.
func getConfigPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "nitcheck", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}
