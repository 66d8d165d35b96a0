package blockid

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"annotext/internal/document"
	"annotext/internal/editor"

	"github.com/google/uuid"
)

const (
	DefaultAttribute = "uniqueId"
	DefaultPrefix    = "block"

	// CommandAssign forces one assignment pass over the whole document.
	CommandAssign = "assign-block-ids"

	maxGenerateAttempts = 8
)

// Result summarises one pass.
type Result struct {
	Kept      int
	Generated int
	Skipped   int
}

// Assigner gives every top-level block a unique identifier attribute.
type Assigner struct {
	prefix    string
	attribute string
	now       func() time.Time
	suffix    func() string
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithAttribute changes the attribute the identifier is stored in.
func WithAttribute(name string) Option {
	return func(a *Assigner) {
		if name != "" {
			a.attribute = name
		}
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assigner) {
		a.now = now
	}
}

// WithSuffix replaces the random suffix source.
func WithSuffix(fn func() string) Option {
	return func(a *Assigner) {
		a.suffix = fn
	}
}

func New(prefix string, opts ...Option) *Assigner {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	a := &Assigner{
		prefix:    prefix,
		attribute: DefaultAttribute,
		now:       time.Now,
		suffix:    randomSuffix,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Attribute is the name of the identifier attribute.
func (a *Assigner) Attribute() string {
	return a.attribute
}

// Assign walks the blocks in document order. The first block holding a
// given identifier keeps it; blocks with no identifier or a duplicate one
// get a fresh identifier that is not used anywhere else in the tree.
// Blocks without an attribute store are skipped.
func (a *Assigner) Assign(t *document.Tree) Result {
	var res Result
	blocks := t.Blocks()

	taken := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if v, ok := t.Attr(b, a.attribute); ok && v != "" {
			taken[v] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		attrs, err := t.Attributes(b)
		if err != nil {
			if !errors.Is(err, document.ErrNoAttributes) {
				log.Printf("blockid: cannot read block %d: %v", b, err)
			}
			res.Skipped++
			continue
		}

		if v, ok := attrs.Get(a.attribute); ok && v != "" {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				res.Kept++
				continue
			}
		}

		id, err := a.generate(taken)
		if err != nil {
			log.Printf("blockid: block %d: %v", b, err)
			res.Skipped++
			continue
		}
		attrs.Set(a.attribute, id)
		taken[id] = struct{}{}
		seen[id] = struct{}{}
		res.Generated++
	}
	return res
}

func (a *Assigner) generate(taken map[string]struct{}) (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		id := fmt.Sprintf("%s-%d-%s", a.prefix, a.now().UnixMilli(), a.suffix())
		if _, clash := taken[id]; !clash {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free identifier after %d attempts", maxGenerateAttempts)
}

// Attach runs a pass after every commit that created or updated a block and
// registers the explicit assignment command.
func (a *Assigner) Attach(ed *editor.Editor) {
	ed.RegisterMutationListener(func(m editor.MutationSet) {
		if !a.touchesBlocks(ed.Tree(), m.Mutations) {
			return
		}
		if err := ed.Update(func(t *document.Tree) error {
			a.Assign(t)
			return nil
		}); err != nil {
			log.Printf("blockid: assignment pass failed: %v", err)
		}
	})
	ed.RegisterCommand(CommandAssign, func(any) bool {
		if err := ed.Update(func(t *document.Tree) error {
			a.Assign(t)
			return nil
		}); err != nil {
			log.Printf("blockid: assignment pass failed: %v", err)
			return false
		}
		return true
	})
}

func (a *Assigner) touchesBlocks(r document.Reader, mutations map[document.NodeID]document.Mutation) bool {
	root := r.Root()
	for id, m := range mutations {
		if m == document.MutationDestroyed {
			continue
		}
		if id == root || r.Parent(id) == root {
			return true
		}
	}
	return false
}
