package dictionary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrEmptyTerm is returned when an entry has no usable term.
var ErrEmptyTerm = errors.New("dictionary: empty term")

// Entry maps a source term to the replacement suggested for it.
type Entry struct {
	Term        string `yaml:"term" toml:"term"`
	Replacement string `yaml:"replacement" toml:"replacement"`
}

// Dictionary is an immutable, ordered set of entries deduplicated by term
// (case-insensitive). Every distinct spelling of a merged term is remembered
// so case-sensitive matchers can still find each of them.
type Dictionary struct {
	entries   []Entry
	spellings [][]string
	index     map[string]int // folded term -> position in entries
}

type file struct {
	Entries []Entry `yaml:"entries" toml:"entries"`
}

// New validates and deduplicates entries. A later duplicate keeps the first
// spelling and position but overwrites the replacement.
func New(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Term) == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyTerm)
		}
		key := fold(e.Term)
		if pos, ok := d.index[key]; ok {
			d.entries[pos].Replacement = e.Replacement
			if !slices.Contains(d.spellings[pos], e.Term) {
				d.spellings[pos] = append(d.spellings[pos], e.Term)
			}
			continue
		}
		d.index[key] = len(d.entries)
		d.entries = append(d.entries, e)
		d.spellings = append(d.spellings, []string{e.Term})
	}

	return d, nil
}

// Load reads a YAML dictionary file of the form:
//
//	entries:
//	  - term: coffee
//	    replacement: brew
//
// Files ending in .toml use [[entries]] tables with the same keys.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}

	var f file
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}

	d, err := New(f.Entries)
	if err != nil {
		return nil, fmt.Errorf("invalid dictionary %s: %w", path, err)
	}
	return d, nil
}

// Entries returns a copy of the entries in load order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Variants returns one entry per distinct spelling, in load order. Spellings
// merged into the same term share its final replacement.
func (d *Dictionary) Variants() []Entry {
	var out []Entry
	for pos, e := range d.entries {
		for _, term := range d.spellings[pos] {
			out = append(out, Entry{Term: term, Replacement: e.Replacement})
		}
	}
	return out
}

func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Lookup finds an entry by term, ignoring case.
func (d *Dictionary) Lookup(term string) (Entry, bool) {
	pos, ok := d.index[fold(term)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[pos], true
}

func fold(s string) string {
	return strings.ToLower(s)
}
