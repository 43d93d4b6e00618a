package suite

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dkoosis/nitcheck/pkg/check"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/workspace"
)

func heuristics() []Scenario {
	h := func(name string, run func(context.Context, *Session) error) Scenario {
		return Scenario{Name: name, Group: GroupHeuristics, Run: run}
	}
	changelog := h("docs-changelog", docsChangelog)
	changelog.NeedsGit = true

	return []Scenario{
		h("init-auto", initAuto),
		h("init-quick", initQuick),
		h("scan", scan),
		h("scan-force-rescan", scanForceRescan),
		h("scan-cached", scanCached),
		h("run", runTests),
		h("config-validate", configValidate),
		h("config-show", configShow),
		h("config-set", configSet),
		h("memory-show", memoryShow),
		h("memory-reset", memoryReset),
		h("memory-export", memoryExport),
		h("report-html", reportHTML),
		h("watch", watch),
		changelog,
	}
}

func initAuto(ctx context.Context, s *Session) error {
	res, err := s.invoke("init --auto", func() (*nit.Result, error) { return s.Nit.Init(ctx, true) })
	if err != nil {
		return err
	}
	return check.Combine(
		check.Succeeded(res),
		check.FileExists(s.Dir, filepath.Join(".nit", "profile.json")),
		check.FileExists(s.Dir, ".nit.yml"),
	)
}

func initQuick(ctx context.Context, s *Session) error {
	res, err := s.invoke("init --quick", func() (*nit.Result, error) { return s.Nit.InitQuick(ctx) })
	if err != nil {
		return err
	}
	return check.Combine(
		check.Succeeded(res),
		check.FileExists(s.Dir, filepath.Join(".nit", "profile.json")),
	)
}

func scan(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("scan", func() (*nit.Result, error) { return s.Nit.Scan(ctx, true, true) })
	if err != nil {
		return err
	}
	if err := check.Succeeded(res); err != nil {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	m := s.Manifest
	if err := check.Combine(
		check.ScanStructure(data),
		check.ScanLanguages(data, m),
		check.ScanFrameworksDetailed(data),
	); err != nil {
		return err
	}
	sc, err := check.DecodeScan(data)
	if err != nil {
		return err
	}
	return check.Combine(
		check.ScanPrimaryLanguage(sc, m),
		check.ScanFrameworks(sc, m),
	)
}

func scanForceRescan(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	for _, step := range []string{"scan --force", "rescan --force"} {
		res, err := s.invoke(step, func() (*nit.Result, error) { return s.Nit.Scan(ctx, true, true) })
		if err != nil {
			return err
		}
		if err := check.Succeeded(res); err != nil {
			return err
		}
	}
	return nil
}

func scanCached(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("scan --force", func() (*nit.Result, error) { return s.Nit.Scan(ctx, true, true) })
	if err != nil {
		return err
	}
	if err := check.Succeeded(res); err != nil {
		return err
	}
	res, err = s.invoke("scan cached", func() (*nit.Result, error) { return s.Nit.Scan(ctx, true, false) })
	if err != nil {
		return err
	}
	return check.Succeeded(res)
}

func runTests(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("run", func() (*nit.Result, error) { return s.Nit.RunTests(ctx) })
	if err != nil {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return check.Combine(check.Succeeded(res), err)
	}
	if err := check.Combine(check.RunKeys(data), check.RunStructure(data)); err != nil {
		return err
	}
	run, err := check.DecodeRun(data)
	if err != nil {
		return err
	}
	return check.RunMeetsManifest(res, run, s.Manifest)
}

func configValidate(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("config validate", func() (*nit.Result, error) { return s.Nit.ConfigValidate(ctx) })
	if err != nil {
		return err
	}
	return check.Succeeded(res)
}

func configShow(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("config show", func() (*nit.Result, error) { return s.Nit.ConfigShow(ctx, true) })
	if err != nil {
		return err
	}
	if err := check.Succeeded(res); err != nil {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	if err := check.Combine(check.ConfigProject(data), check.ConfigLLM(data)); err != nil {
		return err
	}
	cfg, err := check.DecodeConfigShow(data)
	if err != nil {
		return err
	}
	s.Logger.Debug("config", zap.String("llm_mode", cfg.LLM.Mode), zap.String("platform_mode", cfg.Platform.Mode))
	return nil
}

func configSet(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	if _, err := s.invoke("config set", func() (*nit.Result, error) {
		return s.Nit.ConfigSet(ctx, "platform.mode", "disabled")
	}); err != nil {
		return err
	}
	res, err := s.invoke("config show", func() (*nit.Result, error) { return s.Nit.ConfigShow(ctx, true) })
	if err != nil {
		return err
	}
	data, err := check.JSONObject(res)
	if err != nil {
		return err
	}
	return check.ConfigValue(data, "platform.mode", "disabled")
}

func memoryShow(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("memory show", func() (*nit.Result, error) { return s.Nit.MemoryShow(ctx, true) })
	if err != nil {
		return err
	}
	if err := check.Succeeded(res); err != nil {
		return err
	}
	_, err = check.JSONObject(res)
	return err
}

func memoryReset(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("memory reset", func() (*nit.Result, error) { return s.Nit.MemoryReset(ctx) })
	if err != nil {
		return err
	}
	return check.Succeeded(res)
}

func memoryExport(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("memory export", func() (*nit.Result, error) { return s.Nit.MemoryExport(ctx) })
	if err != nil {
		return err
	}
	return check.Combine(check.Succeeded(res), check.NonEmptyStdout(res))
}

func reportHTML(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	if _, err := s.invoke("run", func() (*nit.Result, error) { return s.Nit.RunTests(ctx) }); err != nil {
		return err
	}
	_, err := s.invoke("report --html", func() (*nit.Result, error) { return s.Nit.ReportHTML(ctx) })
	return err
}

func watch(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	_, err := s.invoke("watch", func() (*nit.Result, error) { return s.Nit.Watch(ctx, 1, 1) })
	return err
}

func docsChangelog(ctx context.Context, s *Session) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	res, err := s.invoke("docs --changelog", func() (*nit.Result, error) {
		return s.Nit.DocsChangelog(ctx, workspace.BaselineTag, true, "")
	})
	if err != nil {
		return err
	}
	if !res.Success() {
		return nil
	}
	if err := check.Combine(check.NonEmptyStdout(res), check.FileExists(s.Dir, "CHANGELOG.md")); err != nil {
		return err
	}
	text, err := os.ReadFile(filepath.Join(s.Dir, "CHANGELOG.md"))
	if err != nil {
		return err
	}
	return check.ChangelogText(string(text))
}
