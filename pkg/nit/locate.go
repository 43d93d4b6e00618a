package nit

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// EnvBin overrides binary resolution.
const EnvBin = "NIT_BIN"

// Source records which resolution step produced a Command.
type Source string

const (
	SourceOverride   Source = "override"
	SourceRuntime    Source = "runtime"
	SourceDevInstall Source = "dev-install"
	SourcePath       Source = "path"
	SourceModule     Source = "module"
)

// Command is the argv prefix used to invoke nit.
type Command struct {
	Argv   []string
	Source Source
}

// String renders the argv prefix for logs.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// LocateOptions feeds binary resolution. Zero fields read the process
// environment; the function fields exist so tests can fake the filesystem.
type LocateOptions struct {
	Override   string
	VirtualEnv string
	Home       string
	LookPath   func(file string) (string, error)
	IsFile     func(path string) bool
}

func (o *LocateOptions) defaults() {
	if o.Override == "" {
		o.Override = os.Getenv(EnvBin)
	}
	if o.VirtualEnv == "" {
		o.VirtualEnv = os.Getenv("VIRTUAL_ENV")
	}
	if o.Home == "" {
		o.Home, _ = os.UserHomeDir()
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.IsFile == nil {
		o.IsFile = func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.Mode().IsRegular()
		}
	}
}

// Locate resolves how to invoke nit. In order: an explicit override, a nit
// installed beside the active Python runtime, the ~/nit development venv, nit
// on PATH, and finally `python3 -m nit.cli`.
func Locate(opts LocateOptions) Command {
	opts.defaults()

	if opts.Override != "" {
		return Command{Argv: []string{opts.Override}, Source: SourceOverride}
	}

	for _, dir := range runtimeBinDirs(opts) {
		if candidate := filepath.Join(dir, "nit"); opts.IsFile(candidate) {
			return Command{Argv: []string{candidate}, Source: SourceRuntime}
		}
	}

	if opts.Home != "" {
		dev := filepath.Join(opts.Home, "nit", ".venv", "bin", "nit")
		if opts.IsFile(dev) {
			return Command{Argv: []string{dev}, Source: SourceDevInstall}
		}
	}

	if p, err := opts.LookPath("nit"); err == nil {
		return Command{Argv: []string{p}, Source: SourcePath}
	}

	python := "python3"
	if p, err := opts.LookPath("python3"); err == nil {
		python = p
	}
	return Command{Argv: []string{python, "-m", "nit.cli"}, Source: SourceModule}
}

// runtimeBinDirs lists where a nit sharing the Python runtime would live: the
// active virtualenv, then the directory of python3 on PATH.
func runtimeBinDirs(opts LocateOptions) []string {
	var dirs []string
	if opts.VirtualEnv != "" {
		dirs = append(dirs, filepath.Join(opts.VirtualEnv, "bin"))
	}
	if p, err := opts.LookPath("python3"); err == nil {
		if d := filepath.Dir(p); !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
