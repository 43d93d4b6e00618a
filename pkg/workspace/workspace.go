package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single materialization.
const DefaultTimeout = 2 * time.Minute

// Options controls how a workspace is acquired and released.
type Options struct {
	// BaseDir holds the workspace directory. Empty means os.TempDir().
	BaseDir string
	// Heavy names directories shared by symlink. Nil means DefaultHeavyDirs().
	Heavy []string
	// Timeout bounds materialization. Zero means DefaultTimeout.
	Timeout time.Duration
	// Keep leaves the directory in place on Close.
	Keep bool
	// KeepOnFailure leaves the directory in place on Close if Fail was called.
	KeepOnFailure bool
	Logger        *zap.Logger
}

// Workspace is a materialized project copy owned by exactly one session.
// Release it with Close on every path, typically via defer.
type Workspace struct {
	id      string
	project string
	source  string
	path    string
	links   int

	keep          bool
	keepOnFailure bool
	failed        atomic.Bool
	logger        *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Acquire materializes src into a new uniquely named directory. On error no
// directory is left behind.
func Acquire(ctx context.Context, project, src string, opts Options) (*Workspace, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := opts.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	heavy := opts.Heavy
	if heavy == nil {
		heavy = DefaultHeavyDirs()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	id := uuid.NewString()
	dir := filepath.Join(base, fmt.Sprintf("nitcheck-%s-%s", project, id))
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace base: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	links, err := Materialize(mctx, src, dir, NewHeavySet(heavy...))
	if err != nil {
		_ = os.RemoveAll(dir)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("materialize %s: timed out after %s: %w", project, timeout, err)
		}
		return nil, fmt.Errorf("materialize %s: %w", project, err)
	}

	logger.Debug("workspace materialized",
		zap.String("project", project),
		zap.String("path", dir),
		zap.Int("links", links),
		zap.Duration("elapsed", time.Since(start)))

	return &Workspace{
		id:            id,
		project:       project,
		source:        src,
		path:          dir,
		links:         links,
		keep:          opts.Keep,
		keepOnFailure: opts.KeepOnFailure,
		logger:        logger,
	}, nil
}

// Path returns the workspace root.
func (w *Workspace) Path() string { return w.path }

// Source returns the canonical tree the workspace was built from.
func (w *Workspace) Source() string { return w.source }

// ID returns the unique session label embedded in the directory name.
func (w *Workspace) ID() string { return w.id }

// Links returns the number of heavy-directory symlinks created.
func (w *Workspace) Links() int { return w.links }

// Join resolves a path relative to the workspace root.
func (w *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{w.path}, elem...)...)
}

// Fail marks the owning session as failed.
func (w *Workspace) Fail() { w.failed.Store(true) }

// Close removes the workspace unless it is kept. Symlinked heavy directories
// are unlinked, never followed. Close is idempotent.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		if w.keep || (w.keepOnFailure && w.failed.Load()) {
			w.logger.Info("workspace kept for inspection",
				zap.String("project", w.project),
				zap.String("path", w.path))
			return
		}
		if err := os.RemoveAll(w.path); err != nil {
			w.closeErr = fmt.Errorf("remove workspace %s: %w", w.path, err)
		}
	})
	return w.closeErr
}
