package suite

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dkoosis/nitcheck/pkg/manifest"
)

// ErrUnknownScenario is returned for a filter naming no scenario.
var ErrUnknownScenario = errors.New("unknown scenario")

// ErrUnknownGroup is returned for a filter naming no group.
var ErrUnknownGroup = errors.New("unknown group")

// Filter narrows a run. Zero fields select everything.
type Filter struct {
	Projects  []string
	Group     string
	Scenarios []string
}

// apply returns the selected manifests and scenarios, in catalogue order.
func (f Filter) apply(reg *manifest.Registry, all []Scenario) ([]manifest.Manifest, []Scenario, error) {
	projects, err := reg.Select(f.Projects...)
	if err != nil {
		return nil, nil, err
	}

	switch Group(f.Group) {
	case "", "all", GroupHeuristics, GroupLLM:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownGroup, f.Group)
	}
	for _, name := range f.Scenarios {
		if !slices.ContainsFunc(all, func(s Scenario) bool { return s.Name == name }) {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
		}
	}

	var scenarios []Scenario
	for _, s := range all {
		if f.Group != "" && f.Group != "all" && Group(f.Group) != s.Group {
			continue
		}
		if len(f.Scenarios) > 0 && !slices.Contains(f.Scenarios, s.Name) {
			continue
		}
		scenarios = append(scenarios, s)
	}
	return projects, scenarios, nil
}
