package check

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkoosis/nitcheck/pkg/manifest"
)

// TestFilePatterns match generated and existing test files by base name.
var TestFilePatterns = []string{"test_*.*", "*.test.*", "*.spec.*"}

func isTestFile(name string) bool {
	for _, p := range TestFilePatterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// FindTestFiles lists test files under dir. Symlinked directories are not
// followed, so the heavy links of a workspace never contribute.
func FindTestFiles(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTestFile(d.Name()) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	return found, err
}

// GeneratedTestFiles requires at least as many test files as the project
// started with, and no empty ones.
func GeneratedTestFiles(dir string, m manifest.Manifest) error {
	files, err := FindTestFiles(dir)
	if err != nil {
		return fmt.Errorf("find test files: %w", err)
	}
	if len(files) < len(m.ExistingTestFiles) {
		return violation("generate.files", fmt.Sprintf(">= %d test files", len(m.ExistingTestFiles)), len(files))
	}
	for _, f := range files {
		info, err := os.Lstat(f)
		if err != nil {
			return fmt.Errorf("stat %s: %w", f, err)
		}
		if info.Mode().IsRegular() && info.Size() == 0 {
			rel, _ := filepath.Rel(dir, f)
			return violation("generate.files", "non-empty test file", "empty "+rel)
		}
	}
	return nil
}

// ChangelogText requires non-blank markdown with at least one heading marker.
func ChangelogText(text string) error {
	if strings.TrimSpace(text) == "" {
		return violation("changelog", "non-empty text", "blank output")
	}
	if !strings.Contains(text, "#") {
		return violation("changelog", "markdown headings", tail(text, 80))
	}
	return nil
}

// FileExists requires rel to exist under dir.
func FileExists(dir, rel string) error {
	if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return violation("file", rel+" to exist", "missing")
		}
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	return nil
}

// MarkdownFilesUnder requires at least one .md file beneath dir.
func MarkdownFilesUnder(dir string) error {
	found := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return violation("docs", "directory "+filepath.Base(dir), "missing")
		}
		return fmt.Errorf("walk %s: %w", dir, err)
	}
	if !found {
		return violation("docs", "markdown files under "+filepath.Base(dir), "none")
	}
	return nil
}
