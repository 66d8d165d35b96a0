package output

import (
	"os"
	"testing"

	"annotext/internal/document"
	"annotext/internal/matcher"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestHighlight(t *testing.T) {
	m := matcher.New()
	m.Insert("coffee", "brew")
	m.Insert("tea", "infusion")

	text := "I like coffee and tea"
	matches := m.FindAllMatches(text)

	assert.Equal(t, "I like coffee[brew] and tea[infusion]", Highlight(text, matches))
	assert.Equal(t, []string{"7-13 coffee -> brew", "18-21 tea -> infusion"}, MatchLines(matches))
}

func TestHighlight_NoMatches(t *testing.T) {
	assert.Equal(t, "plain", Highlight("plain", nil))
	assert.Empty(t, MatchLines(nil))
}

func TestDeleted(t *testing.T) {
	assert.Equal(t, "- origin/o1", Deleted("origin", "o1"))
}

func TestVisualDocumentTree(t *testing.T) {
	tree, err := document.Build(nil,
		document.El("p", document.Txt("I like "), document.Ann("coffee", "brew")).With("uniqueId", "b1"),
	)
	require.NoError(t, err)

	out := NewVisualDocumentTree("doc.html", tree).Render()
	assert.Contains(t, out, "doc.html")
	assert.Contains(t, out, `<p uniqueId="b1">`)
	assert.Contains(t, out, `"I like "`)
	assert.Contains(t, out, `["coffee" -> brew]`)
}

func TestVisualDocumentTree_RawNodes(t *testing.T) {
	tree, err := document.Build(nil,
		document.El("div", document.Raw("script", "var x = 1;"), document.Raw(document.TagComment, " keep ")),
	)
	require.NoError(t, err)

	out := NewVisualDocumentTree("doc.html", tree).Render()
	assert.Contains(t, out, "<script> (10 bytes, kept verbatim)")
	assert.Contains(t, out, "<!-- keep -->")
}
