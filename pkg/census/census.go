// Package census counts the source languages of a sample project with go-enry,
// so a manifest's expected languages can be checked against the fixture before
// nit ever runs.
package census

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/dkoosis/nitcheck/pkg/workspace"
)

// HeadSize is how much of each file is read for content-based detection.
const HeadSize = 8 << 10

// aliases maps enry display names onto the names manifests use.
var aliases = map[string]string{
	"c++":         "cpp",
	"c#":          "csharp",
	"tsx":         "typescript",
	"jsx":         "javascript",
	"objective-c": "objc",
}

// Normalize maps a language name to the form manifests use.
func Normalize(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if a, ok := aliases[l]; ok {
		return a
	}
	return l
}

// Count is one language's tally.
type Count struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
}

// Census is the per-language file count of one source tree.
type Census struct {
	Root       string         `json:"root"`
	Files      int            `json:"files"`
	ByLanguage map[string]int `json:"by_language"`
}

// Languages returns the counts ordered by file count, then name.
func (c Census) Languages() []Count {
	out := make([]Count, 0, len(c.ByLanguage))
	for lang, n := range c.ByLanguage {
		out = append(out, Count{Language: lang, Files: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if n := cmp.Compare(b.Files, a.Files); n != 0 {
			return n
		}
		return cmp.Compare(a.Language, b.Language)
	})
	return out
}

// Missing returns the expected languages with no files in the tree.
func (c Census) Missing(expected []string) []string {
	var missing []string
	for _, lang := range expected {
		if c.ByLanguage[Normalize(lang)] == 0 {
			missing = append(missing, lang)
		}
	}
	return missing
}

// Take walks dir, skipping heavy and vendored paths, and classifies every
// remaining regular file.
func Take(ctx context.Context, dir string, heavy workspace.HeavySet) (Census, error) {
	c := Census{Root: dir, ByLanguage: map[string]int{}}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if heavy.Has(d.Name()) || enry.IsVendor(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || enry.IsVendor(rel) {
			return nil
		}

		head, err := readHead(path)
		if err != nil {
			return err
		}
		if enry.IsBinary(head) {
			return nil
		}
		lang := enry.GetLanguage(d.Name(), head)
		if lang == "" || lang == "Text" {
			return nil
		}
		c.Files++
		c.ByLanguage[Normalize(lang)]++
		return nil
	})
	if err != nil {
		return Census{}, fmt.Errorf("census %s: %w", dir, err)
	}
	return c, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, HeadSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}
