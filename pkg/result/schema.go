package result

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Family names a command whose JSON output has a known shape.
type Family string

const (
	FamilyScan    Family = "scan"
	FamilyRun     Family = "run"
	FamilyConfig  Family = "config"
	FamilyAnalyze Family = "analyze"
	FamilyDrift   Family = "drift"
)

// Families lists every family with a schema.
func Families() []Family {
	return []Family{FamilyScan, FamilyRun, FamilyConfig, FamilyAnalyze, FamilyDrift}
}

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Family]*gojsonschema.Schema
	schemasErr  error
)

// SchemaError lists the ways a result violated its family schema.
type SchemaError struct {
	Family   Family
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s result does not match schema: %s", e.Family, strings.Join(e.Problems, "; "))
}

func loadSchemas() (map[Family]*gojsonschema.Schema, error) {
	schemasOnce.Do(func() {
		out := make(map[Family]*gojsonschema.Schema, len(Families()))
		for _, f := range Families() {
			data, err := schemaFS.ReadFile("schemas/" + string(f) + ".json")
			if err != nil {
				schemasErr = fmt.Errorf("read %s schema: %w", f, err)
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				schemasErr = fmt.Errorf("compile %s schema: %w", f, err)
				return
			}
			out[f] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// Validate checks doc against the schema of family.
func Validate(family Family, doc map[string]any) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[family]
	if !ok {
		return fmt.Errorf("no schema for result family %q", family)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate %s result: %w", family, err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Family: family, Problems: problems}
}
