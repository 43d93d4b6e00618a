package suite

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dkoosis/nitcheck/pkg/check"
	"github.com/dkoosis/nitcheck/pkg/nit"
)

// DocsOutputDir is where docs-output-dir asks nit to write, relative to the
// workspace.
const DocsOutputDir = "_docs_output"

// llm scenarios tolerate whatever a small local model produces: they assert
// that nit does not crash and does not corrupt the project, not that the
// generated content is any good.
func llm() []Scenario {
	l := func(name string, run func(context.Context, *Session) error) Scenario {
		return Scenario{Name: name, Group: GroupLLM, NeedsBackend: true, Run: run}
	}
	return []Scenario{
		l("analyze", analyze),
		l("debug", debug),
		l("docs-all", docsAll),
		l("docs-output-dir", docsOutputDir),
		l("docs-file", docsFile),
		l("docs-readme", docsReadme),
		l("docs-check", docsCheck),
		l("drift-baseline", driftBaseline),
		l("drift", drift),
		l("generate", generate),
		l("pick", pick),
	}
}

func analyze(ctx context.Context, s *Session) error {
	res, err := s.invoke("analyze", func() (*nit.Result, error) { return s.Nit.Analyze(ctx, true) })
	if err != nil || !res.Success() {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	if err := check.Combine(check.AnalyzeKeys(data), check.AnalyzeStructure(data)); err != nil {
		return err
	}
	a, err := check.DecodeAnalyze(data)
	if err != nil {
		return err
	}
	s.Logger.Debug("analyze", zap.Int("bugs_found", a.BugsFound))
	return nil
}

func debug(ctx context.Context, s *Session) error {
	_, err := s.invoke("debug --dry-run", func() (*nit.Result, error) { return s.Nit.Debug(ctx, true) })
	return err
}

func docsAll(ctx context.Context, s *Session) error {
	res, err := s.invoke("docs --all", func() (*nit.Result, error) { return s.Nit.DocsGenerate(ctx, nil, "") })
	if err != nil || !res.Success() {
		return err
	}
	return check.NonEmptyStdout(res)
}

func docsOutputDir(ctx context.Context, s *Session) error {
	out := filepath.Join(s.Dir, DocsOutputDir)
	res, err := s.invoke("docs --output-dir", func() (*nit.Result, error) { return s.Nit.DocsGenerate(ctx, nil, out) })
	if err != nil || !res.Success() {
		return err
	}
	if _, err := os.Stat(out); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return check.MarkdownFilesUnder(out)
}

func docsFile(ctx context.Context, s *Session) error {
	target, ok := s.Manifest.FirstUntested()
	if !ok {
		return Skip("no untested source files in manifest")
	}
	_, err := s.invoke("docs --file", func() (*nit.Result, error) {
		return s.Nit.DocsGenerate(ctx, []string{target}, "")
	})
	return err
}

func docsReadme(ctx context.Context, s *Session) error {
	res, err := s.invoke("docs --readme", func() (*nit.Result, error) { return s.Nit.DocsReadme(ctx) })
	if err != nil || !res.Success() {
		return err
	}
	return check.NonEmptyStdout(res)
}

func docsCheck(ctx context.Context, s *Session) error {
	_, err := s.invoke("docs --check", func() (*nit.Result, error) { return s.Nit.DocsCheck(ctx) })
	return err
}

func driftBaseline(ctx context.Context, s *Session) error {
	_, err := s.invoke("drift --baseline", func() (*nit.Result, error) { return s.Nit.DriftBaseline(ctx, "") })
	return err
}

func drift(ctx context.Context, s *Session) error {
	if _, err := s.invoke("drift --baseline", func() (*nit.Result, error) { return s.Nit.DriftBaseline(ctx, "") }); err != nil {
		return err
	}
	res, err := s.invoke("drift", func() (*nit.Result, error) { return s.Nit.Drift(ctx, "") })
	if err != nil || !res.Success() {
		return err
	}
	data, err := res.JSON()
	if err != nil {
		// Drift prints a plain summary when there are no drift tests.
		return nil
	}
	if err := check.DriftStructure(data); err != nil {
		return err
	}
	d, err := check.DecodeDrift(data)
	if err != nil {
		return err
	}
	s.Logger.Debug("drift", zap.Int("total_tests", d.TotalTests), zap.Bool("detected", d.Detected()))
	return nil
}

func generate(ctx context.Context, s *Session) error {
	if _, err := s.invoke("generate", func() (*nit.Result, error) { return s.Nit.Generate(ctx, "unit") }); err != nil {
		return err
	}
	if err := check.GeneratedTestFiles(s.Dir, s.Manifest); err != nil {
		return err
	}
	// Generated tests may fail with small models. The existing ones must not
	// all error.
	res, err := s.invoke("run", func() (*nit.Result, error) { return s.Nit.RunTests(ctx) })
	if err != nil || res.Success() {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	run, err := check.DecodeRun(data)
	if err != nil {
		return err
	}
	return check.TestsSurvived(run)
}

func pick(ctx context.Context, s *Session) error {
	if _, err := s.invoke("pick", func() (*nit.Result, error) { return s.Nit.Pick(ctx, "unit") }); err != nil {
		return err
	}
	res, err := s.invoke("run", func() (*nit.Result, error) { return s.Nit.RunTests(ctx) })
	if err != nil || res.Success() {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	run, err := check.DecodeRun(data)
	if err != nil {
		return err
	}
	return check.TestsFound(run)
}
