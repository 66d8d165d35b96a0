package matcher

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"annotext/internal/dictionary"
)

// Match is a dictionary hit inside a single text string. Start and End are
// byte offsets (End exclusive) and always fall on rune boundaries.
type Match struct {
	Start       int
	End         int
	Term        string
	Replacement string
}

func (m Match) Len() int {
	return m.End - m.Start
}

type trieNode struct {
	children    map[rune]*trieNode
	terminal    bool
	term        string
	replacement string
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Trie is a longest-match multi-pattern matcher. It must be fully built
// before it is shared; after that it is read-only and safe for concurrent
// lookups.
type Trie struct {
	root     *trieNode
	foldCase bool
	size     int
}

// Option configures a Trie.
type Option func(*Trie)

// WithFoldCase makes inserts and lookups case-insensitive.
func WithFoldCase() Option {
	return func(t *Trie) {
		t.foldCase = true
	}
}

// New creates an empty trie.
func New(opts ...Option) *Trie {
	t := &Trie{root: newTrieNode()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Compile builds a trie holding every entry of d. A case-sensitive trie also
// gets each spelling the dictionary merged into an entry.
func Compile(d *dictionary.Dictionary, opts ...Option) *Trie {
	t := New(opts...)
	entries := d.Entries()
	if !t.foldCase {
		entries = d.Variants()
	}
	for _, e := range entries {
		t.Insert(e.Term, e.Replacement)
	}
	return t
}

// Insert adds term to the trie. Re-inserting a term overwrites its replacement.
func (t *Trie) Insert(term, replacement string) {
	if term == "" {
		return
	}
	node := t.root
	for _, r := range term {
		r = t.normalize(r)
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode()
			node.children[r] = child
		}
		node = child
	}
	if !node.terminal {
		t.size++
	}
	node.terminal = true
	node.term = term
	node.replacement = replacement
}

// Len reports the number of distinct terms.
func (t *Trie) Len() int {
	return t.size
}

// FindAllMatches returns the longest match at every start offset, reduced to
// a non-overlapping set that prefers earlier starts. Results are ordered by
// Start.
func (t *Trie) FindAllMatches(text string) []Match {
	var candidates []Match

	for i := 0; i < len(text); {
		if best, ok := t.longestAt(text, i); ok {
			candidates = append(candidates, best)
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Start != candidates[b].Start {
			return candidates[a].Start < candidates[b].Start
		}
		return candidates[a].Len() > candidates[b].Len()
	})

	var matches []Match
	lastEnd := -1
	for _, c := range candidates {
		if c.Start >= lastEnd {
			matches = append(matches, c)
			lastEnd = c.End
		}
	}
	return matches
}

func (t *Trie) longestAt(text string, start int) (Match, bool) {
	var best Match
	found := false

	node := t.root
	for j := start; j < len(text); {
		r, w := utf8.DecodeRuneInString(text[j:])
		child, ok := node.children[t.normalize(r)]
		if !ok {
			break
		}
		node = child
		j += w
		if node.terminal {
			best = Match{Start: start, End: j, Term: node.term, Replacement: node.replacement}
			found = true
		}
	}
	return best, found
}

// Search reports whether term is exactly a stored term.
func (t *Trie) Search(term string) bool {
	node := t.find(term)
	return node != nil && node.terminal
}

// Replacement returns the replacement stored for term.
func (t *Trie) Replacement(term string) (string, bool) {
	node := t.find(term)
	if node == nil || !node.terminal {
		return "", false
	}
	return node.replacement, true
}

func (t *Trie) find(term string) *trieNode {
	if term == "" {
		return nil
	}
	node := t.root
	for _, r := range term {
		child, ok := node.children[t.normalize(r)]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

func (t *Trie) normalize(r rune) rune {
	if t.foldCase {
		return unicode.ToLower(r)
	}
	return r
}
