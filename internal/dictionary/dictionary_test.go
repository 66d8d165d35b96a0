package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmptyTerms(t *testing.T) {
	_, err := New([]Entry{{Term: "coffee", Replacement: "brew"}, {Term: "  ", Replacement: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyTerm)
	assert.Contains(t, err.Error(), "entry 1")
}

func TestNew_DeduplicatesCaseInsensitive(t *testing.T) {
	d, err := New([]Entry{
		{Term: "Coffee", Replacement: "brew"},
		{Term: "tea", Replacement: "infusion"},
		{Term: "coffee", Replacement: "java"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []Entry{
		{Term: "Coffee", Replacement: "java"},
		{Term: "tea", Replacement: "infusion"},
	}, d.Entries())

	e, ok := d.Lookup("COFFEE")
	require.True(t, ok)
	assert.Equal(t, "java", e.Replacement)

	_, ok = d.Lookup("milk")
	assert.False(t, ok)
}

func TestVariants_KeepsEverySpelling(t *testing.T) {
	d, err := New([]Entry{
		{Term: "Coffee", Replacement: "brew"},
		{Term: "tea", Replacement: "infusion"},
		{Term: "coffee", Replacement: "java"},
		{Term: "Coffee", Replacement: "java"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []Entry{
		{Term: "Coffee", Replacement: "java"},
		{Term: "coffee", Replacement: "java"},
		{Term: "tea", Replacement: "infusion"},
	}, d.Variants())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	d, err := New([]Entry{{Term: "a", Replacement: "b"}})
	require.NoError(t, err)

	entries := d.Entries()
	entries[0].Replacement = "changed"

	e, _ := d.Lookup("a")
	assert.Equal(t, "b", e.Replacement)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	content := `entries:
  - term: coffee
    replacement: brew
  - term: colour
    replacement: color
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "colour", d.Entries()[1].Term)

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("Invalid entry", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("entries:\n  - term: \"\"\n    replacement: x\n"), 0o644))
		_, err := Load(bad)
		assert.ErrorIs(t, err, ErrEmptyTerm)
	})
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.toml")
	content := `[[entries]]
term = "coffee"
replacement = "brew"

[[entries]]
term = "Coffee"
replacement = "espresso"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Term: "coffee", Replacement: "espresso"}}, d.Entries())
}
