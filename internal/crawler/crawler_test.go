package crawler

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"annotext/internal/document"
	"annotext/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), "<p>alpha</p>")
	writeFile(t, filepath.Join(root, "docs", "b.HTM"), "<p>beta</p><p>gamma</p>")
	writeFile(t, filepath.Join(root, "notes.txt"), "<p>ignored</p>")
	writeFile(t, filepath.Join(root, "node_modules", "c.html"), "<p>ignored</p>")

	c := NewCrawler(extractor.NewExtractor(nil))

	found := map[string]int{}
	err := c.ScanProject(root, func(path string, tree *document.Tree) {
		rel, _ := filepath.Rel(root, path)
		found[rel] = len(tree.Blocks())
	})
	require.NoError(t, err)

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t.Run("Only documents outside ignored dirs", func(t *testing.T) {
		assert.Equal(t, []string{"a.html", filepath.Join("docs", "b.HTM")}, keys)
	})

	t.Run("Each document extracted", func(t *testing.T) {
		assert.Equal(t, 1, found["a.html"])
		assert.Equal(t, 2, found[filepath.Join("docs", "b.HTM")])
	})
}

func TestIsDocument(t *testing.T) {
	assert.True(t, IsDocument("x/index.html"))
	assert.True(t, IsDocument("page.HTM"))
	assert.False(t, IsDocument("main.go"))
	assert.False(t, IsDocument("html"))
}
