package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/nit"
	"github.com/dkoosis/nitcheck/pkg/result"
)

// schemaViolation turns a *result.SchemaError into a schema.<family>
// violation and passes every other error through.
func schemaViolation(family result.Family, err error) error {
	var se *result.SchemaError
	if errors.As(err, &se) {
		return &Violation{
			Check:    "schema." + string(family),
			Expected: fmt.Sprintf("a %s document", family),
			Actual:   fmt.Sprintf("%d problem(s)", len(se.Problems)),
			Detail:   strings.Join(se.Problems, "; "),
		}
	}
	return err
}

func decoded[T any](family result.Family, data map[string]any, decode func(map[string]any) (*T, error)) (*T, error) {
	v, err := decode(data)
	if err != nil {
		return nil, schemaViolation(family, err)
	}
	return v, nil
}

// DecodeScan checks data against the scan schema and returns the typed result.
func DecodeScan(data map[string]any) (*result.Scan, error) {
	return decoded(result.FamilyScan, data, result.DecodeScan)
}

// DecodeRun checks data against the run schema and returns the typed result.
func DecodeRun(data map[string]any) (*result.Run, error) {
	return decoded(result.FamilyRun, data, result.DecodeRun)
}

// DecodeConfigShow checks data against the config schema.
func DecodeConfigShow(data map[string]any) (*result.ConfigShow, error) {
	return decoded(result.FamilyConfig, data, result.DecodeConfigShow)
}

// DecodeAnalyze checks data against the analyze schema.
func DecodeAnalyze(data map[string]any) (*result.Analyze, error) {
	return decoded(result.FamilyAnalyze, data, result.DecodeAnalyze)
}

// DecodeDrift checks data against the drift schema.
func DecodeDrift(data map[string]any) (*result.Drift, error) {
	return decoded(result.FamilyDrift, data, result.DecodeDrift)
}

var runCounts = []string{"passed", "failed", "skipped", "errors"}

// RunStructure checks the invariants of a run result: failed_tests is a list,
// duration_ms is a non-negative number and the per-outcome counts sum to total.
func RunStructure(data map[string]any) error {
	if _, ok := list(data["failed_tests"]); !ok {
		return violation("run.failed_tests", "list", describe(data["failed_tests"]))
	}
	raw, ok := data["duration_ms"]
	if !ok {
		return violation("run.duration_ms", "key present", "missing")
	}
	if d, ok := number(raw); !ok || d < 0 {
		return violation("run.duration_ms", "number >= 0", describe(raw))
	}

	count := func(key string) (float64, error) {
		v, ok := data[key]
		if !ok {
			return 0, nil
		}
		n, ok := number(v)
		if !ok {
			return 0, violation("run."+key, "number", describe(v))
		}
		return n, nil
	}
	total, err := count("total")
	if err != nil {
		return err
	}
	var sum float64
	parts := make([]string, 0, len(runCounts))
	for _, key := range runCounts {
		n, err := count(key)
		if err != nil {
			return err
		}
		sum += n
		parts = append(parts, fmt.Sprintf("%s(%g)", key, n))
	}
	if sum != total {
		return &Violation{
			Check:    "run.total",
			Expected: fmt.Sprintf("%g", total),
			Actual:   fmt.Sprintf("%g", sum),
			Detail:   strings.Join(parts, " + "),
		}
	}
	return nil
}

// RunKeys requires every top-level key of a run result.
func RunKeys(data map[string]any) error {
	for _, key := range []string{"success", "total", "passed", "failed", "skipped", "errors", "duration_ms"} {
		if _, ok := data[key]; !ok {
			return violation("run."+key, "key present", "missing")
		}
	}
	return nil
}

// RunMeetsManifest checks a run result against the project's expectations.
func RunMeetsManifest(res *nit.Result, run *result.Run, m manifest.Manifest) error {
	if err := Succeeded(res); err != nil {
		return err
	}
	if run.Total < m.ExpectedTestCountMin {
		return violation("run.total", fmt.Sprintf(">= %d tests", m.ExpectedTestCountMin), run.Total)
	}
	if !m.ExpectedAllPass {
		return nil
	}
	if !run.Success {
		return &Violation{
			Check:    "run.success",
			Expected: "true",
			Actual:   "false",
			Detail:   fmt.Sprintf("failed tests: %v", run.FailedTests),
		}
	}
	if run.Failed != 0 {
		return violation("run.failed", "0", run.Failed)
	}
	return nil
}

// ConfigProject requires a project section with a root.
func ConfigProject(data map[string]any) error {
	project, ok := object(data["project"])
	if !ok {
		return violation("config.project", "object", describe(data["project"]))
	}
	if _, ok := project["root"]; !ok {
		return violation("config.project.root", "key present", "missing")
	}
	return nil
}

// ConfigLLM requires an llm section naming mode, provider and model.
func ConfigLLM(data map[string]any) error {
	llm, ok := object(data["llm"])
	if !ok {
		return violation("config.llm", "object", describe(data["llm"]))
	}
	for _, key := range []string{"mode", "provider", "model"} {
		if _, ok := llm[key]; !ok {
			return violation("config.llm."+key, "key present", "missing")
		}
	}
	return nil
}

// ConfigValue requires the value at a dotted path such as platform.mode to
// render as want.
func ConfigValue(data map[string]any, dottedKey, want string) error {
	var cur any = data
	for _, part := range strings.Split(dottedKey, ".") {
		obj, ok := object(cur)
		if !ok {
			return violation("config."+dottedKey, fmt.Sprintf("%q", want), "missing")
		}
		if cur, ok = obj[part]; !ok {
			return violation("config."+dottedKey, fmt.Sprintf("%q", want), "missing")
		}
	}
	if got := fmt.Sprint(cur); got != want {
		return violation("config."+dottedKey, fmt.Sprintf("%q", want), fmt.Sprintf("%q", got))
	}
	return nil
}

// AnalyzeStructure checks an analyze result. Optional sections may be absent
// but never malformed.
func AnalyzeStructure(data map[string]any) error {
	raw, ok := data["bugs_found"]
	if !ok {
		return violation("analyze.bugs_found", "key present", "missing")
	}
	if n, ok := number(raw); !ok || n < 0 {
		return violation("analyze.bugs_found", "number >= 0", describe(raw))
	}

	if raw, ok := data["coverage"]; ok && raw != nil {
		cov, ok := object(raw)
		if !ok {
			return violation("analyze.coverage", "object", describe(raw))
		}
		for _, key := range []string{"overall_line", "overall_function"} {
			if v, ok := cov[key]; ok {
				if _, ok := number(v); !ok {
					return violation("analyze.coverage."+key, "number", describe(v))
				}
			}
		}
	}

	if raw, ok := data["gap_report"]; ok && raw != nil {
		gaps, ok := object(raw)
		if !ok {
			return violation("analyze.gap_report", "object", describe(raw))
		}
		if v, ok := gaps["function_gaps"]; ok {
			if _, ok := list(v); !ok {
				return violation("analyze.gap_report.function_gaps", "list", describe(v))
			}
		}
	}
	return nil
}

// AnalyzeKeys requires at least one of the analyze counters.
func AnalyzeKeys(data map[string]any) error {
	for _, key := range []string{"bugs_found", "tests_run", "tests_passed"} {
		if _, ok := data[key]; ok {
			return nil
		}
	}
	return violation("analyze", "one of bugs_found, tests_run, tests_passed", "none")
}

// DriftStructure checks a drift report.
func DriftStructure(data map[string]any) error {
	for _, key := range []string{"total_tests", "passed_tests", "drift_detected"} {
		if _, ok := data[key]; !ok {
			return violation("drift."+key, "key present", "missing")
		}
	}
	if n, ok := number(data["total_tests"]); !ok || n < 0 {
		return violation("drift.total_tests", "number >= 0", describe(data["total_tests"]))
	}
	return nil
}

// TestsSurvived rejects a run where every test errored, the signature of a
// project corrupted by generated code.
func TestsSurvived(run *result.Run) error {
	if run.Errors >= run.Total {
		return &Violation{
			Check:    "run.errors",
			Expected: fmt.Sprintf("fewer than %d errored tests", run.Total),
			Actual:   fmt.Sprint(run.Errors),
			Detail:   "every test errored",
		}
	}
	return nil
}

// TestsFound requires a run to have discovered at least one test.
func TestsFound(run *result.Run) error {
	if run.Total <= 0 {
		return violation("run.total", "> 0 tests", run.Total)
	}
	return nil
}
