package mapper

import (
	"fmt"
	"strings"

	"github.com/dkoosis/nitcheck/pkg/census"
	"github.com/dkoosis/nitcheck/pkg/manifest"
	"github.com/dkoosis/nitcheck/pkg/pattern"
)

// ProjectStatus is one manifest as seen on disk.
type ProjectStatus struct {
	Manifest manifest.Manifest
	Dir      string // resolved source directory, empty when unresolved
	Err      error  // why the source could not be resolved
	Census   *census.Census
}

// FromProjects lists manifests with their resolution status and, when taken,
// the language census next to the declared languages.
func FromProjects(root string, projects []ProjectStatus) []pattern.Pattern {
	items := make([]pattern.SummaryItem, 0, len(projects))
	found := 0
	for _, p := range projects {
		item := pattern.SummaryItem{Label: p.Manifest.Name}
		switch {
		case p.Err != nil:
			item.Value = "missing: " + p.Err.Error()
			item.Kind = kindError
		case p.Census != nil:
			found++
			item.Value, item.Kind = censusValue(p)
		default:
			found++
			item.Value = p.Manifest.PrimaryLanguage + " / " + p.Manifest.UnitFramework + " at " + p.Dir
			item.Kind = kindSuccess
		}
		items = append(items, item)
	}
	return []pattern.Pattern{&pattern.Summary{
		Label:   fmt.Sprintf("PROJECTS: %d of %d found under %s", found, len(projects), root),
		Kind:    pattern.SummaryKindProjects,
		Metrics: items,
	}}
}

func censusValue(p ProjectStatus) (string, string) {
	langs := p.Census.Languages()
	parts := make([]string, 0, len(langs))
	for _, c := range langs {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Language, c.Files))
	}
	value := fmt.Sprintf("%d files (%s)", p.Census.Files, strings.Join(parts, " "))
	if missing := p.Census.Missing(p.Manifest.ExpectedLanguages); len(missing) > 0 {
		return value + "; no files for " + strings.Join(missing, ", "), kindWarning
	}
	return value, kindSuccess
}
