package manifest

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// ErrNotFound is matched by errors.Is for lookups of unknown projects.
var ErrNotFound = errors.New("manifest not found")

// NotFoundError names the project key that had no manifest.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no manifest for project: %q", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Registry is a closed, read-only catalogue of manifests. It is safe for
// concurrent use because nothing mutates it after construction.
type Registry struct {
	ordered []Manifest
	byName  map[string]int
}

type catalogue struct {
	Projects []Manifest `yaml:"projects"`
}

// Default returns the compiled-in registry.
func Default() *Registry {
	r, err := Parse(catalogueYAML)
	if err != nil {
		// The embedded catalogue is covered by tests; failing here is a build defect.
		panic(fmt.Sprintf("embedded catalogue: %v", err))
	}
	return r
}

// Parse builds a registry from a YAML catalogue document.
func Parse(data []byte) (*Registry, error) {
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	return New(c.Projects...)
}

// New builds a registry from manifests in declaration order. Names must be
// unique and every manifest must pass validation.
func New(ms ...Manifest) (*Registry, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	r := &Registry{
		ordered: make([]Manifest, 0, len(ms)),
		byName:  make(map[string]int, len(ms)),
	}
	for i, m := range ms {
		if err := validate.Struct(m); err != nil {
			return nil, fmt.Errorf("manifest %d (%q): %w", i, m.Name, err)
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate manifest name %q", m.Name)
		}
		r.byName[m.Name] = len(r.ordered)
		r.ordered = append(r.ordered, m.clone())
	}
	return r, nil
}

// Lookup returns the manifest registered under name.
func (r *Registry) Lookup(name string) (Manifest, error) {
	i, ok := r.byName[name]
	if !ok {
		return Manifest{}, &NotFoundError{Name: name}
	}
	return r.ordered[i].clone(), nil
}

// All returns every manifest in declaration order.
func (r *Registry) All() []Manifest {
	out := make([]Manifest, len(r.ordered))
	for i, m := range r.ordered {
		out[i] = m.clone()
	}
	return out
}

// Names returns the project names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	for i, m := range r.ordered {
		out[i] = m.Name
	}
	return out
}

// Select returns the named manifests in declaration order. An empty name list
// selects everything.
func (r *Registry) Select(names ...string) ([]Manifest, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, &NotFoundError{Name: n}
		}
		want[n] = true
	}
	var out []Manifest
	for _, m := range r.ordered {
		if want[m.Name] {
			out = append(out, m.clone())
		}
	}
	return out, nil
}

// Len reports the number of manifests.
func (r *Registry) Len() int { return len(r.ordered) }
