package check

import (
	"fmt"
	"slices"

	"golang.org/x/text/cases"

	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/result"
)

// ScanStructure checks the top-level shape of a scan result.
func ScanStructure(data map[string]any) error {
	if !nonEmptyString(data["root"]) {
		return violation("scan.root", "non-empty string", describe(data["root"]))
	}
	if !nonEmptyString(data["primary_language"]) {
		return violation("scan.primary_language", "non-empty string", describe(data["primary_language"]))
	}
	if _, ok := data["workspace_tool"]; !ok {
		return violation("scan.workspace_tool", "key present", "missing")
	}
	if _, ok := list(data["languages"]); !ok {
		return violation("scan.languages", "list", describe(data["languages"]))
	}
	if _, ok := list(data["frameworks"]); !ok {
		return violation("scan.frameworks", "list", describe(data["frameworks"]))
	}
	if _, ok := data["packages"]; !ok {
		return violation("scan.packages", "key present", "missing")
	}
	return nil
}

// ScanPrimaryLanguage requires an exact match with the manifest.
func ScanPrimaryLanguage(scan *result.Scan, m manifest.Manifest) error {
	if scan.PrimaryLanguage != m.PrimaryLanguage {
		return violation("scan.primary_language", fmt.Sprintf("%q", m.PrimaryLanguage), fmt.Sprintf("%q", scan.PrimaryLanguage))
	}
	return nil
}

// ScanFrameworks requires every expected framework among the detected names.
func ScanFrameworks(scan *result.Scan, m manifest.Manifest) error {
	detected := scan.FrameworkNames()
	for _, want := range m.ExpectedFrameworkNames {
		if !slices.Contains(detected, want) {
			return &Violation{
				Check:    "scan.frameworks",
				Expected: fmt.Sprintf("framework %q", want),
				Actual:   fmt.Sprintf("%q", detected),
			}
		}
	}
	return nil
}

// ScanLanguages checks each detected language entry and requires every
// expected language, compared under Unicode case folding.
func ScanLanguages(data map[string]any, m manifest.Manifest) error {
	entries, ok := list(data["languages"])
	if !ok || len(entries) == 0 {
		return violation("scan.languages", "non-empty list", describe(data["languages"]))
	}

	fold := cases.Fold()
	detected := make([]string, 0, len(entries))
	for i, e := range entries {
		lang, ok := object(e)
		if !ok {
			return violation(fmt.Sprintf("scan.languages[%d]", i), "object", describe(e))
		}
		name, ok := lang["language"].(string)
		if !ok {
			return violation(fmt.Sprintf("scan.languages[%d].language", i), "string", describe(lang["language"]))
		}
		if n, ok := number(lang["file_count"]); !ok || n <= 0 {
			return violation(fmt.Sprintf("scan.languages[%s].file_count", name), "number > 0", describe(lang["file_count"]))
		}
		if n, ok := number(lang["confidence"]); !ok || n <= 0 {
			return violation(fmt.Sprintf("scan.languages[%s].confidence", name), "number > 0", describe(lang["confidence"]))
		}
		detected = append(detected, fold.String(name))
	}

	for _, want := range m.ExpectedLanguages {
		if !slices.Contains(detected, fold.String(want)) {
			return &Violation{
				Check:    "scan.languages",
				Expected: fmt.Sprintf("language %q", want),
				Actual:   fmt.Sprintf("%q", detected),
			}
		}
	}
	return nil
}

// ScanFrameworksDetailed requires every framework entry to carry a string
// name, language and category and a numeric confidence.
func ScanFrameworksDetailed(data map[string]any) error {
	entries, ok := list(data["frameworks"])
	if !ok {
		return violation("scan.frameworks", "list", describe(data["frameworks"]))
	}
	for i, e := range entries {
		fw, ok := object(e)
		if !ok {
			return violation(fmt.Sprintf("scan.frameworks[%d]", i), "object", describe(e))
		}
		for _, key := range []string{"name", "language", "category"} {
			v, ok := fw[key]
			if !ok {
				return violation(fmt.Sprintf("scan.frameworks[%d].%s", i, key), "key present", "missing")
			}
			if _, ok := v.(string); !ok {
				return violation(fmt.Sprintf("scan.frameworks[%d].%s", i, key), "string", describe(v))
			}
		}
		v, ok := fw["confidence"]
		if !ok {
			return violation(fmt.Sprintf("scan.frameworks[%d].confidence", i), "key present", "missing")
		}
		if _, ok := number(v); !ok {
			return violation(fmt.Sprintf("scan.frameworks[%d].confidence", i), "number", describe(v))
		}
	}
	return nil
}
