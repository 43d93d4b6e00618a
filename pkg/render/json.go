package render

import (
	"encoding/json"

	"github.com/dkoosis/nitcheck/pkg/pattern"
)

// JSONVersion is bumped when the output shape changes.
const JSONVersion = "2"

// JSON renders patterns as one document for CI and scripts. Besides the
// patterns it carries scenario counts tallied from every test table and a
// failed flag, so a consumer can gate on the run without walking tables.
type JSON struct{}

// NewJSON creates a JSON renderer.
func NewJSON() *JSON {
	return &JSON{}
}

// JSONCounts tallies scenario outcomes across test tables.
type JSONCounts struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Skip  int `json:"skip"`
	Error int `json:"error"`
}

type jsonDocument struct {
	Version  string        `json:"version"`
	Tool     string        `json:"tool"`
	Failed   bool          `json:"failed"`
	Counts   JSONCounts    `json:"counts"`
	Patterns []jsonPattern `json:"patterns"`
}

type jsonPattern struct {
	Type pattern.PatternType `json:"type"`
	Data pattern.Pattern     `json:"data"`
}

// Render formats all patterns as one indented JSON document.
func (j *JSON) Render(patterns []pattern.Pattern) string {
	doc := jsonDocument{
		Version:  JSONVersion,
		Tool:     "nitcheck",
		Patterns: make([]jsonPattern, 0, len(patterns)),
	}
	for _, p := range patterns {
		if tt, ok := p.(*pattern.TestTable); ok {
			for _, r := range tt.Results {
				doc.Counts.add(r.Status)
			}
		}
		doc.Patterns = append(doc.Patterns, jsonPattern{Type: p.Type(), Data: p})
	}
	doc.Failed = doc.Counts.Fail+doc.Counts.Error > 0

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(errJSON) + "\n"
	}
	return string(data) + "\n"
}

func (c *JSONCounts) add(status string) {
	switch status {
	case StatusPass:
		c.Pass++
	case StatusFail:
		c.Fail++
	case StatusSkip:
		c.Skip++
	case StatusError:
		c.Error++
	}
}
