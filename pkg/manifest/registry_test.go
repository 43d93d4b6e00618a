package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_DeclarationOrder(t *testing.T) {
	r := Default()
	want := []string{
		"nextjs-app", "python-api", "go-api", "cpp-cmake",
		"java-gradle", "rust-cli", "csharp-dotnet", "monorepo",
	}
	assert.Equal(t, want, r.Names())
	assert.Equal(t, len(want), r.Len())
}

func TestDefault_AppliesDefaults(t *testing.T) {
	r := Default()

	goAPI, err := r.Lookup("go-api")
	require.NoError(t, err)
	assert.Equal(t, 1, goAPI.ExpectedTestCountMin)
	assert.True(t, goAPI.ExpectedAllPass)

	next, err := r.Lookup("nextjs-app")
	require.NoError(t, err)
	assert.Equal(t, 4, next.ExpectedTestCountMin)
	assert.Equal(t, []string{"typescript", "javascript"}, next.ExpectedLanguages)
}

func TestLookup_NotFoundNamesKey(t *testing.T) {
	_, err := Default().Lookup("cobol-mainframe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "cobol-mainframe")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "cobol-mainframe", nf.Name)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	r := Default()
	m, err := r.Lookup("monorepo")
	require.NoError(t, err)
	m.ExpectedLanguages[0] = "mutated"

	again, err := r.Lookup("monorepo")
	require.NoError(t, err)
	assert.Equal(t, "typescript", again.ExpectedLanguages[0])
}

func TestNew_RejectsDuplicates(t *testing.T) {
	m := Manifest{Name: "a", Path: "a", PrimaryLanguage: "go", UnitFramework: "gotest"}
	_, err := New(m, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_ValidatesRequiredFields(t *testing.T) {
	_, err := New(Manifest{Name: "a", Path: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PrimaryLanguage")
}

func TestParse_ExplicitZeroOverridesDefault(t *testing.T) {
	doc := []byte(`
projects:
  - name: flaky
    path: flaky
    primary_language: python
    unit_framework: pytest
    expected_test_count_min: 0
    expected_all_pass: false
`)
	r, err := Parse(doc)
	require.NoError(t, err)
	m, err := r.Lookup("flaky")
	require.NoError(t, err)
	assert.Equal(t, 0, m.ExpectedTestCountMin)
	assert.False(t, m.ExpectedAllPass)
}

func TestSelect(t *testing.T) {
	r := Default()

	got, err := r.Select("monorepo", "go-api")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Declaration order wins over argument order.
	assert.Equal(t, "go-api", got[0].Name)
	assert.Equal(t, "monorepo", got[1].Name)

	all, err := r.Select()
	require.NoError(t, err)
	assert.Len(t, all, r.Len())

	_, err = r.Select("go-api", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "go-api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "rust-cli"), []byte("x"), 0o644))

	r := Default()
	goAPI, _ := r.Lookup("go-api")
	dir, err := goAPI.Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "go-api"), dir)

	rust, _ := r.Lookup("rust-cli")
	_, err = rust.Resolve(root)
	assert.ErrorContains(t, err, "not a directory")

	java, _ := r.Lookup("java-gradle")
	_, err = java.Resolve(root)
	assert.ErrorContains(t, err, "not found")
}

func TestFirstUntested(t *testing.T) {
	m := Manifest{UntestedSourceFiles: []string{"a.py", "b.py"}}
	f, ok := m.FirstUntested()
	assert.True(t, ok)
	assert.Equal(t, "a.py", f)

	_, ok = Manifest{}.FirstUntested()
	assert.False(t, ok)
}
