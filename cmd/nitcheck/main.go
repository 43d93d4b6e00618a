// nitcheck drives the nit CLI against a catalogue of sample projects and
// reports which scenarios pass.
//
// Usage:
//
//	nitcheck run                       # every project, every scenario
//	nitcheck run go-api --group heuristics
//	nitcheck projects --census
//	nitcheck discover
//	nit --ci scan --json-output | nitcheck parse --family scan
//
// Output modes (auto-detected):
//
//	terminal  styled output, with a live view while the suite runs (default on a TTY)
//	llm       terse plain text for AI consumption (default when piped)
//	json      structured JSON for automation
//
// Exit codes: 0 when every scenario passed or skipped, 1 when any failed,
// 2 on usage or harness errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/dkoosis/nitcheck/internal/config"
	"github.com/dkoosis/nitcheck/pkg/render"
)

// errFailed maps to exit code 1. Wrapped messages are printed; the bare
// sentinel means the output already explains the failure.
var errFailed = errors.New("failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errFailed):
		if err != errFailed {
			fmt.Fprintf(stderr, "nitcheck: %v\n", err)
		}
		return 1
	default:
		fmt.Fprintf(stderr, "nitcheck: %v\n", err)
		return 2
	}
}

// app holds state shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags  config.CLIFlags
	cfg    *config.Config
	logger *zap.Logger
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nitcheck",
		Short:         "Drive the nit CLI against sample projects and check what it reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigFile, "config", "", "config file (default ./"+config.FileName+", then the user config dir)")
	pf.StringVar(&a.flags.ExamplesDir, "examples-dir", "", "root directory holding the sample projects (env "+config.EnvExamplesDir+")")
	pf.StringVar(&a.flags.NitBin, "nit-bin", "", "nit executable to invoke (env NIT_BIN)")
	pf.StringVar(&a.flags.OllamaHost, "ollama-host", "", "Ollama base URL (env OLLAMA_HOST)")
	pf.StringVar(&a.flags.Format, "format", "", "output format: auto, terminal, llm, json")
	pf.StringVar(&a.flags.Theme, "theme", "", "terminal theme: "+strings.Join(render.ThemeNames, ", "))
	pf.BoolVar(&a.flags.Debug, "debug", false, "development logging at debug level")
	pf.BoolVar(&a.flags.NoColor, "no-color", false, "monochrome terminal output")

	root.AddCommand(
		a.runCommand(),
		a.projectsCommand(),
		a.discoverCommand(),
		a.parseCommand(),
		a.materializeCommand(),
		a.versionCommand(),
	)
	return root
}

// setup resolves configuration and builds the logger before any subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	changed := cmd.Flags().Changed
	a.flags.ParallelSet = changed("parallel")
	a.flags.KeepSet = changed("keep")
	a.flags.KeepOnFailureSet = changed("keep-on-failure")
	a.flags.DebugSet = changed("debug")
	a.flags.NoColorSet = changed("no-color")

	cfg, err := config.ResolveConfig(a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Debug, a.stderr)
	a.logger.Debug("config resolved",
		zap.String("config_path", cfg.ConfigPath),
		zap.String("examples_dir", cfg.ExamplesDir),
		zap.Any("sources", cfg.Sources))
	return nil
}

// newLogger writes JSON warnings to w, or human-readable debug output when
// debug is set.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	if debug {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel), zap.AddCaller())
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.WarnLevel))
}

// format resolves "auto": terminal on a TTY, llm when piped.
func (a *app) format() string {
	if a.cfg.Format != config.FormatAuto {
		return a.cfg.Format
	}
	if isTTYWriter(a.stdout) {
		return config.FormatTerminal
	}
	return config.FormatLLM
}

func (a *app) renderer() render.Renderer {
	switch a.format() {
	case config.FormatJSON:
		return render.NewJSON()
	case config.FormatLLM:
		return render.NewLLM()
	default:
		theme := render.ThemeByName(a.cfg.Theme)
		width, _ := termSize(a.stdout)
		return render.NewTerminal(theme, width)
	}
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}
