// Package render turns visualization patterns into terminal, llm or json text.
package render

import "github.com/dkoosis/nitcheck/pkg/pattern"

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}
