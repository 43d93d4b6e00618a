package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkoosis/nitcheck/internal/config"
	"github.com/dkoosis/nitcheck/internal/version"
	"github.com/dkoosis/nitcheck/pkg/backend"
	"github.com/dkoosis/nitcheck/pkg/census"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/mapper"
	"github.com/dkoosis/nitcheck/pkg/result"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

func (a *app) projectsCommand() *cobra.Command {
	var takeCensus bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the sample projects and whether their sources are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			heavy := workspace.NewHeavySet(a.cfg.HeavyDirs...)
			var statuses []mapper.ProjectStatus
			for _, m := range manifest.Default().All() {
				st := mapper.ProjectStatus{Manifest: m}
				st.Dir, st.Err = m.Resolve(a.cfg.ExamplesDir)
				if st.Err == nil && takeCensus {
					c, err := census.Take(cmd.Context(), st.Dir, heavy)
					if err != nil {
						return err
					}
					st.Census = &c
				}
				statuses = append(statuses, st)
			}
			root, err := filepath.Abs(a.cfg.ExamplesDir)
			if err != nil {
				root = a.cfg.ExamplesDir
			}
			fmt.Fprint(a.stdout, a.renderer().Render(mapper.FromProjects(root, statuses)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&takeCensus, "census", false, "count source files per language in each project")
	return cmd
}

func (a *app) discoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Probe the Ollama backend and print the selected model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := backend.Discover(cmd.Context(), a.backendOptions())
			if a.format() == config.FormatJSON {
				return writeJSON(a.stdout, info)
			}
			if info.Available {
				fmt.Fprintf(a.stdout, "available: %s at %s\n", info.Model, info.Host)
			} else {
				fmt.Fprintf(a.stdout, "unavailable: %s (%s)\n", info.Reason, info.Host)
			}
			return nil
		},
	}
}

func (a *app) parseCommand() *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Extract the JSON result object from captured nit output",
		Long: `Parse runs the result extractor on a captured nit stdout stream, reading
stdin when no file or "-" is given, and prints the object it finds. With
--family the object is also validated against that command's schema.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := a.readInput(args)
			if err != nil {
				return err
			}
			doc, err := result.Extract(data)
			if err != nil {
				return fmt.Errorf("%w: %w", errFailed, err)
			}
			if family != "" {
				if err := result.Validate(result.Family(family), doc); err != nil {
					return fmt.Errorf("%w: %w", errFailed, err)
				}
			}
			return writeJSON(a.stdout, doc)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "validate against a result schema: scan, run, config, analyze, drift")
	return cmd
}

func (a *app) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(args[0])
}

func (a *app) materializeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "materialize <project> [dir]",
		Short: "Copy a sample project into a workspace the way a scenario would",
		Long: `Materialize copies a sample project's sources, linking its heavy dependency
directories instead of copying them. Without dir the copy goes to a fresh
temporary workspace that is kept for inspection.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Default().Lookup(args[0])
			if err != nil {
				return err
			}
			src, err := m.Resolve(a.cfg.ExamplesDir)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				links, err := workspace.Materialize(cmd.Context(), src, args[1], workspace.NewHeavySet(a.cfg.HeavyDirs...))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s: %d links\n", args[1], links)
				return nil
			}

			opts := a.workspaceOptions()
			opts.Keep = true
			ws, err := workspace.Acquire(cmd.Context(), m.Name, src, opts)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()
			fmt.Fprintf(a.stdout, "%s: %d links\n", ws.Path(), ws.Links())
			return nil
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
