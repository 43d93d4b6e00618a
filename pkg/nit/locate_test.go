package nit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeFS struct {
	files map[string]bool
	path  map[string]string
}

func (f fakeFS) lookPath(file string) (string, error) {
	if p, ok := f.path[file]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (f fakeFS) isFile(p string) bool { return f.files[p] }

func TestLocate(t *testing.T) {
	t.Setenv(EnvBin, "")
	t.Setenv("VIRTUAL_ENV", "")

	tests := []struct {
		name string
		opts LocateOptions
		fs   fakeFS
		want Command
	}{
		{
			name: "override wins",
			opts: LocateOptions{Override: "/opt/nit", VirtualEnv: "/venv"},
			fs:   fakeFS{files: map[string]bool{"/venv/bin/nit": true}},
			want: Command{Argv: []string{"/opt/nit"}, Source: SourceOverride},
		},
		{
			name: "active virtualenv",
			opts: LocateOptions{VirtualEnv: "/venv"},
			fs: fakeFS{
				files: map[string]bool{"/venv/bin/nit": true, "/usr/bin/nit": true},
				path:  map[string]string{"nit": "/usr/bin/nit", "python3": "/usr/bin/python3"},
			},
			want: Command{Argv: []string{"/venv/bin/nit"}, Source: SourceRuntime},
		},
		{
			name: "beside python3",
			fs: fakeFS{
				files: map[string]bool{"/pyenv/bin/nit": true},
				path:  map[string]string{"python3": "/pyenv/bin/python3"},
			},
			want: Command{Argv: []string{"/pyenv/bin/nit"}, Source: SourceRuntime},
		},
		{
			name: "development venv",
			fs: fakeFS{
				files: map[string]bool{"/home/u/nit/.venv/bin/nit": true},
				path:  map[string]string{"nit": "/usr/local/bin/nit"},
			},
			want: Command{Argv: []string{"/home/u/nit/.venv/bin/nit"}, Source: SourceDevInstall},
		},
		{
			name: "on PATH",
			fs:   fakeFS{path: map[string]string{"nit": "/usr/local/bin/nit", "python3": "/usr/bin/python3"}},
			want: Command{Argv: []string{"/usr/local/bin/nit"}, Source: SourcePath},
		},
		{
			name: "module fallback",
			fs:   fakeFS{path: map[string]string{"python3": "/usr/bin/python3"}},
			want: Command{Argv: []string{"/usr/bin/python3", "-m", "nit.cli"}, Source: SourceModule},
		},
		{
			name: "bare python3 when nothing resolves",
			want: Command{Argv: []string{"python3", "-m", "nit.cli"}, Source: SourceModule},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Home = "/home/u"
			opts.LookPath = tt.fs.lookPath
			opts.IsFile = tt.fs.isFile
			assert.Equal(t, tt.want, Locate(opts))
		})
	}
}

func TestLocate_ReadsEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvBin, "/from/env/nit")
	got := Locate(LocateOptions{})
	assert.Equal(t, SourceOverride, got.Source)
	assert.Equal(t, "/from/env/nit", got.String())
}
