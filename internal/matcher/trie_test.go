package matcher

import (
	"math/rand"
	"strings"
	"testing"

	"annotext/internal/dictionary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrie(pairs ...string) *Trie {
	t := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Insert(pairs[i], pairs[i+1])
	}
	return t
}

func TestFindAllMatches_LongestAtStart(t *testing.T) {
	trie := newTrie("a", "x", "ab", "y")

	matches := trie.FindAllMatches("ab")
	require.Len(t, matches, 1)
	assert.Equal(t, Match{Start: 0, End: 2, Term: "ab", Replacement: "y"}, matches[0])
}

func TestFindAllMatches_EarliestStartWins(t *testing.T) {
	trie := newTrie("bb", "1", "bc", "2")

	matches := trie.FindAllMatches("abbc")
	require.Len(t, matches, 1)
	assert.Equal(t, Match{Start: 1, End: 3, Term: "bb", Replacement: "1"}, matches[0])
}

func TestFindAllMatches_MultipleHits(t *testing.T) {
	trie := newTrie("coffee", "brew", "tea", "infusion")

	matches := trie.FindAllMatches("tea or coffee, then tea")
	require.Len(t, matches, 3)
	assert.Equal(t, "tea", matches[0].Term)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, "coffee", matches[1].Term)
	assert.Equal(t, 7, matches[1].Start)
	assert.Equal(t, 13, matches[1].End)
	assert.Equal(t, 20, matches[2].Start)
}

func TestFindAllMatches_AdjacentMatches(t *testing.T) {
	trie := newTrie("ab", "1", "cd", "2")

	matches := trie.FindAllMatches("abcd")
	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].End)
	assert.Equal(t, 2, matches[1].Start)
}

func TestFindAllMatches_NoHits(t *testing.T) {
	trie := newTrie("coffee", "brew")

	assert.Empty(t, trie.FindAllMatches("nothing to see here"))
	assert.Empty(t, trie.FindAllMatches(""))
	assert.Empty(t, New().FindAllMatches("anything"))
}

func TestFindAllMatches_MultibyteOffsets(t *testing.T) {
	trie := newTrie("café", "coffee shop")

	text := "un café noir"
	matches := trie.FindAllMatches(text)
	require.Len(t, matches, 1)
	assert.Equal(t, "café", text[matches[0].Start:matches[0].End])
}

func TestFindAllMatches_FoldCase(t *testing.T) {
	sensitive := newTrie("coffee", "brew")
	assert.Empty(t, sensitive.FindAllMatches("COFFEE"))

	folded := New(WithFoldCase())
	folded.Insert("Coffee", "brew")

	text := "more COFFEE please"
	matches := folded.FindAllMatches(text)
	require.Len(t, matches, 1)
	assert.Equal(t, "COFFEE", text[matches[0].Start:matches[0].End])
	assert.Equal(t, "Coffee", matches[0].Term)
	assert.True(t, folded.Search("coffee"))
}

func TestFindAllMatches_NeverOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []byte("abc")
	randomWord := func(maxLen int) string {
		var sb strings.Builder
		n := 1 + rng.Intn(maxLen)
		for i := 0; i < n; i++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}

	for round := 0; round < 200; round++ {
		trie := New()
		for i := 0; i < 5; i++ {
			trie.Insert(randomWord(4), "r")
		}
		text := randomWord(30)

		matches := trie.FindAllMatches(text)
		for i, m := range matches {
			assert.True(t, m.Start < m.End)
			assert.Equal(t, m.Term, text[m.Start:m.End])
			if i > 0 {
				assert.LessOrEqual(t, matches[i-1].End, m.Start, "text=%q", text)
			}
		}
	}
}

func TestInsert_OverwritesReplacement(t *testing.T) {
	trie := newTrie("coffee", "brew", "coffee", "java")

	assert.Equal(t, 1, trie.Len())
	r, ok := trie.Replacement("coffee")
	require.True(t, ok)
	assert.Equal(t, "java", r)
}

func TestSearch(t *testing.T) {
	trie := newTrie("coffee", "brew")

	assert.True(t, trie.Search("coffee"))
	assert.False(t, trie.Search("coff"), "prefix is not a term")
	assert.False(t, trie.Search("coffees"))
	assert.False(t, trie.Search(""))

	_, ok := trie.Replacement("tea")
	assert.False(t, ok)
}

func TestCompile(t *testing.T) {
	d, err := dictionary.New([]dictionary.Entry{
		{Term: "coffee", Replacement: "brew"},
		{Term: "tea", Replacement: "infusion"},
	})
	require.NoError(t, err)

	trie := Compile(d)
	assert.Equal(t, 2, trie.Len())
	r, ok := trie.Replacement("tea")
	require.True(t, ok)
	assert.Equal(t, "infusion", r)
}

func TestCompile_CaseVariants(t *testing.T) {
	d, err := dictionary.New([]dictionary.Entry{
		{Term: "Coffee", Replacement: "brew"},
		{Term: "coffee", Replacement: "java"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	t.Run("Case-sensitive trie matches every listed spelling", func(t *testing.T) {
		trie := Compile(d)
		assert.Equal(t, 2, trie.Len())
		assert.Equal(t, []Match{
			{Start: 0, End: 6, Term: "coffee", Replacement: "java"},
			{Start: 11, End: 17, Term: "Coffee", Replacement: "java"},
		}, trie.FindAllMatches("coffee and Coffee"))
		assert.False(t, trie.Search("COFFEE"))
	})

	t.Run("Folding trie holds one term", func(t *testing.T) {
		trie := Compile(d, WithFoldCase())
		assert.Equal(t, 1, trie.Len())
		assert.True(t, trie.Search("COFFEE"))
	})
}
