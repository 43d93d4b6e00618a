package nit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dkoosis/nitcheck/pkg/backend"
)

func (r *Runner) pathArgs(args ...string) []string {
	return append(args, "--path", r.dir)
}

func (r *Runner) run(ctx context.Context, key string, args ...string) (*Result, error) {
	return r.Run(ctx, r.timeouts.For(key), args...)
}

// Init runs `nit init`, with --auto when auto is set.
func (r *Runner) Init(ctx context.Context, auto bool) (*Result, error) {
	args := r.pathArgs("init")
	if auto {
		args = append(args, "--auto")
	}
	return r.run(ctx, "init", args...)
}

// InitQuick runs `nit init --quick`.
func (r *Runner) InitQuick(ctx context.Context) (*Result, error) {
	return r.run(ctx, "init", "init", "--quick", "--path", r.dir)
}

// Scan runs `nit scan`.
func (r *Runner) Scan(ctx context.Context, jsonOutput, force bool) (*Result, error) {
	args := r.pathArgs("scan")
	if jsonOutput {
		args = append(args, "--json-output")
	}
	if force {
		args = append(args, "--force")
	}
	return r.run(ctx, "scan", args...)
}

// RunTests runs `nit run` to execute the project's test suite.
func (r *Runner) RunTests(ctx context.Context) (*Result, error) {
	return r.run(ctx, "run", r.pathArgs("run")...)
}

// Generate runs `nit generate --type <testType>`.
func (r *Runner) Generate(ctx context.Context, testType string) (*Result, error) {
	return r.run(ctx, "generate", r.pathArgs("generate", "--type", testType)...)
}

// Analyze runs `nit analyze`.
func (r *Runner) Analyze(ctx context.Context, jsonOutput bool) (*Result, error) {
	args := r.pathArgs("analyze")
	if jsonOutput {
		args = append(args, "--json-output")
	}
	return r.run(ctx, "analyze", args...)
}

// Pick runs `nit pick`, the full scan, run, analyze, fix and report pipeline.
func (r *Runner) Pick(ctx context.Context, testType string) (*Result, error) {
	return r.run(ctx, "pick", r.pathArgs("pick", "--type", testType)...)
}

// ConfigValidate runs `nit config validate`.
func (r *Runner) ConfigValidate(ctx context.Context) (*Result, error) {
	return r.run(ctx, "config", r.pathArgs("config", "validate")...)
}

// ConfigShow runs `nit config show`.
func (r *Runner) ConfigShow(ctx context.Context, jsonOutput bool) (*Result, error) {
	args := r.pathArgs("config", "show")
	if jsonOutput {
		args = append(args, "--json-output")
	}
	return r.run(ctx, "config", args...)
}

// ConfigSet runs `nit config set <key> <value>`.
func (r *Runner) ConfigSet(ctx context.Context, key, value string) (*Result, error) {
	return r.run(ctx, "config", r.pathArgs("config", "set", key, value)...)
}

// MemoryShow runs `nit memory show`.
func (r *Runner) MemoryShow(ctx context.Context, jsonOutput bool) (*Result, error) {
	args := r.pathArgs("memory", "show")
	if jsonOutput {
		args = append(args, "--json-output")
	}
	return r.run(ctx, "memory", args...)
}

// MemoryReset runs `nit memory reset --confirm`.
func (r *Runner) MemoryReset(ctx context.Context) (*Result, error) {
	return r.run(ctx, "memory", "memory", "reset", "--confirm", "--path", r.dir)
}

// MemoryExport runs `nit memory export`.
func (r *Runner) MemoryExport(ctx context.Context) (*Result, error) {
	return r.run(ctx, "memory", r.pathArgs("memory", "export")...)
}

// DocsGenerate runs `nit docs --file <f>...`, or `nit docs --all` when files
// is empty, optionally writing into outputDir.
func (r *Runner) DocsGenerate(ctx context.Context, files []string, outputDir string) (*Result, error) {
	args := r.pathArgs("docs")
	if len(files) > 0 {
		for _, f := range files {
			args = append(args, "--file", f)
		}
	} else {
		args = append(args, "--all")
	}
	if outputDir != "" {
		args = append(args, "--output-dir", outputDir)
	}
	return r.run(ctx, "docs", args...)
}

// DocsReadme runs `nit docs --readme`.
func (r *Runner) DocsReadme(ctx context.Context) (*Result, error) {
	return r.run(ctx, "docs", "docs", "--readme", "--path", r.dir)
}

// DocsChangelog runs `nit docs --changelog <tag>`.
func (r *Runner) DocsChangelog(ctx context.Context, tag string, noLLM bool, output string) (*Result, error) {
	args := r.pathArgs("docs", "--changelog", tag)
	if noLLM {
		args = append(args, "--no-llm")
	}
	if output != "" {
		args = append(args, "--output", output)
	}
	return r.run(ctx, KeyChangelog, args...)
}

// DocsCheck runs `nit docs --check`.
func (r *Runner) DocsCheck(ctx context.Context) (*Result, error) {
	return r.run(ctx, "docs", "docs", "--check", "--path", r.dir)
}

// Drift runs `nit drift`.
func (r *Runner) Drift(ctx context.Context, testsFile string) (*Result, error) {
	args := r.pathArgs("drift")
	if testsFile != "" {
		args = append(args, "--tests-file", testsFile)
	}
	return r.run(ctx, "drift", args...)
}

// DriftBaseline runs `nit drift --baseline`.
func (r *Runner) DriftBaseline(ctx context.Context, testsFile string) (*Result, error) {
	args := []string{"drift", "--baseline", "--path", r.dir}
	if testsFile != "" {
		args = append(args, "--tests-file", testsFile)
	}
	return r.run(ctx, "drift", args...)
}

// Debug runs `nit debug`.
func (r *Runner) Debug(ctx context.Context, dryRun bool) (*Result, error) {
	args := r.pathArgs("debug")
	if dryRun {
		args = append(args, "--dry-run")
	}
	return r.run(ctx, "debug", args...)
}

// ReportHTML runs `nit report --html`.
func (r *Runner) ReportHTML(ctx context.Context) (*Result, error) {
	return r.run(ctx, "report", "report", "--html", "--path", r.dir)
}

// Watch runs `nit watch` for maxRuns iterations spaced interval seconds apart.
func (r *Runner) Watch(ctx context.Context, maxRuns, interval int) (*Result, error) {
	return r.run(ctx, "watch",
		"watch",
		"--max-runs", strconv.Itoa(maxRuns),
		"--interval", strconv.Itoa(interval),
		"--path", r.dir)
}

// BackendSettings returns the `config set` pairs that point nit at info.
func BackendSettings(info backend.Info) [][2]string {
	return [][2]string{
		{"llm.mode", "ollama"},
		{"llm.provider", "ollama"},
		{"llm.model", info.Model},
		{"llm.base_url", info.Host},
		{"platform.mode", "disabled"},
	}
}

// ErrBackendUnavailable is returned by ConfigureBackend for an unavailable Info.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ConfigureBackend forces the discovered Ollama host and model onto the
// project. It stops at the first setting that crashes nit or times out.
func (r *Runner) ConfigureBackend(ctx context.Context, info backend.Info) error {
	if !info.Available {
		return ErrBackendUnavailable
	}
	for _, kv := range BackendSettings(info) {
		res, err := r.ConfigSet(ctx, kv[0], kv[1])
		if err != nil {
			return fmt.Errorf("config set %s: %w", kv[0], err)
		}
		if res.Crashed() {
			return fmt.Errorf("config set %s crashed (exit=%d): %s", kv[0], res.ExitCode, res.Stderr)
		}
	}
	return nil
}
