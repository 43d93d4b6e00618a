package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Git history fixture used by changelog checks.
const (
	BaselineTag   = "v0.0.0"
	MarkerFile    = ".nit-changelog-marker"
	InitialCommit = "feat: initial commit"
	MarkerCommit  = "fix: add changelog marker for testing"
)

var fixtureAuthor = object.Signature{Name: "test", Email: "t@t.com"}

// InitHistory gives dir a two-commit history: an initial commit tagged
// BaselineTag, then a commit adding MarkerFile. A .git directory owned by dir
// is left untouched. A .git symlink into the canonical tree is unlinked first
// so the canonical repository is never written.
func InitHistory(dir string) error {
	gitDir := filepath.Join(dir, ".git")
	info, err := os.Lstat(gitDir)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		if err := os.Remove(gitDir); err != nil {
			return fmt.Errorf("unlink shared .git: %w", err)
		}
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat .git: %w", err)
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("git worktree: %w", err)
	}

	first, err := commitAll(wt, InitialCommit)
	if err != nil {
		return err
	}
	if _, err := repo.CreateTag(BaselineTag, first, nil); err != nil {
		return fmt.Errorf("git tag %s: %w", BaselineTag, err)
	}

	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte("test\n"), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	if _, err := commitAll(wt, MarkerCommit); err != nil {
		return err
	}
	return nil
}

func commitAll(wt *git.Worktree, msg string) (plumbing.Hash, error) {
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add: %w", err)
	}
	sig := fixtureAuthor
	sig.When = time.Now()
	h, err := wt.Commit(msg, &git.CommitOptions{
		Author:            &sig,
		Committer:         &sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git commit %q: %w", msg, err)
	}
	return h, nil
}
