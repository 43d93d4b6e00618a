// Package workspace builds isolated working copies of sample projects.
//
// A working copy duplicates the project's source files but shares its heavy
// directories (dependency caches, build outputs, virtual environments, VCS
// metadata) with the canonical tree through symlinks, so nit can build and run
// the project without a reinstall. The canonical tree is only ever read.
package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultHeavyDirs returns the directory names shared by symlink instead of copied.
func DefaultHeavyDirs() []string {
	return []string{
		"node_modules",
		".venv",
		"__pycache__",
		".pytest_cache",
		"target",  // cargo
		"build",   // cmake, gradle
		".gradle", // gradle cache
		"bin",     // dotnet
		"obj",     // dotnet
		".git",
	}
}

// HeavySet is a set of directory names matched at any depth.
type HeavySet map[string]struct{}

// NewHeavySet builds a HeavySet from names.
func NewHeavySet(names ...string) HeavySet {
	s := make(HeavySet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is a heavy directory name.
func (s HeavySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Materialize copies src into dst, pruning heavy directories at every depth,
// then links each pruned directory back to its location in src. It returns the
// number of links created. Existing destination paths are left alone, so a
// repeated call creates no new links.
func Materialize(ctx context.Context, src, dst string, heavy HeavySet) (int, error) {
	src, err := filepath.Abs(src)
	if err != nil {
		return 0, fmt.Errorf("resolve source: %w", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	if err := copyTree(ctx, src, dst, heavy); err != nil {
		return 0, err
	}
	return linkHeavy(ctx, src, dst, heavy)
}

func copyTree(ctx context.Context, src, dst string, heavy HeavySet) error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if heavy.Has(d.Name()) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			return copySymlink(path, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			// Sockets, devices and pipes have no place in a project copy.
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

func linkHeavy(ctx context.Context, src, dst string, heavy HeavySet) (int, error) {
	links := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() || path == src || !heavy.Has(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		link := filepath.Join(dst, rel)
		if _, err := os.Lstat(link); err == nil {
			return filepath.SkipDir
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := os.Symlink(path, link); err != nil {
			return err
		}
		links++
		return filepath.SkipDir
	})
	if err != nil {
		return links, fmt.Errorf("link heavy directories: %w", err)
	}
	return links, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	return os.Symlink(target, dst)
}
