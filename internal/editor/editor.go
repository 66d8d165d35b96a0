package editor

import (
	"errors"
	"fmt"
	"log"

	"annotext/internal/document"
)

// ErrSettleLimit is returned when transforms keep mutating the tree after
// the maximum number of settle rounds.
var ErrSettleLimit = errors.New("editor: transforms did not settle")

const defaultMaxSettleRounds = 16

// Transform rewrites the tree while an update is settling. It runs
// repeatedly until a full round leaves the tree unchanged.
type Transform func(t *document.Tree) error

// Commit describes one finished update cycle.
type Commit struct {
	Seq       uint64
	Prev      *document.Snapshot
	Current   *document.Snapshot
	Mutations map[document.NodeID]document.Mutation
}

// MutationSet is delivered to mutation listeners. Nodes resolves destroyed
// nodes from the pre-update snapshot and live ones from the current tree.
type MutationSet struct {
	Seq       uint64
	Mutations map[document.NodeID]document.Mutation
	Nodes     NodeLookup
}

// NodeLookup resolves a node key to its last known state.
type NodeLookup func(id document.NodeID) (document.Node, bool)

type (
	UpdateListener   func(c Commit)
	MutationListener func(m MutationSet)
	CommandHandler   func(payload any) bool
)

// Editor serialises all access to a document tree into update cycles.
// It is single-threaded: callers must not use it from several goroutines.
type Editor struct {
	tree *document.Tree

	transforms        []Transform
	updateListeners   []UpdateListener
	mutationListeners []MutationListener
	commands          map[string][]CommandHandler

	maxSettleRounds int
	seq             uint64
	updating        bool
	notifying       bool
	pending         []func(*document.Tree) error
}

// Option configures an Editor.
type Option func(*Editor)

func WithMaxSettleRounds(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.maxSettleRounds = n
		}
	}
}

// New wraps an existing tree. The tree's journal is reset.
func New(tree *document.Tree, opts ...Option) *Editor {
	tree.ResetJournal()
	e := &Editor{
		tree:            tree,
		commands:        make(map[string][]CommandHandler),
		maxSettleRounds: defaultMaxSettleRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tree gives read access to the current document. Mutations must go
// through Update.
func (e *Editor) Tree() document.Reader {
	return e.tree
}

// Registry returns the node kinds the document accepts.
func (e *Editor) Registry() *document.Registry {
	return e.tree.Registry()
}

func (e *Editor) RegisterTransform(fn Transform) {
	e.transforms = append(e.transforms, fn)
}

func (e *Editor) RegisterUpdateListener(fn UpdateListener) {
	e.updateListeners = append(e.updateListeners, fn)
}

func (e *Editor) RegisterMutationListener(fn MutationListener) {
	e.mutationListeners = append(e.mutationListeners, fn)
}

// Update runs fn as one update cycle. Calls made from inside fn or a
// transform join the running cycle; calls made from listeners are queued and
// run as their own cycles once notification finishes.
func (e *Editor) Update(fn func(t *document.Tree) error) error {
	if e.updating {
		return fn(e.tree)
	}
	if e.notifying {
		e.pending = append(e.pending, fn)
		return nil
	}

	if err := e.cycle(fn); err != nil {
		e.pending = nil
		return err
	}

	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]
		if err := e.cycle(next); err != nil {
			e.pending = nil
			return err
		}
	}
	return nil
}

func (e *Editor) cycle(fn func(t *document.Tree) error) error {
	prev := e.tree.Snapshot()
	e.tree.ResetJournal()

	e.updating = true
	err := fn(e.tree)
	if err == nil {
		err = e.settle()
	}
	e.updating = false

	if err != nil {
		e.tree.Restore(prev)
		return err
	}

	mutations := e.tree.Journal()
	if len(mutations) == 0 {
		return nil
	}

	e.seq++
	commit := Commit{
		Seq:       e.seq,
		Prev:      prev,
		Current:   e.tree.Snapshot(),
		Mutations: mutations,
	}
	e.notify(commit)
	return nil
}

// settle normalizes text and runs transforms until a round changes nothing.
func (e *Editor) settle() error {
	for round := 0; round < e.maxSettleRounds; round++ {
		before := e.tree.Version()
		e.tree.Normalize()
		for _, tr := range e.transforms {
			if err := tr(e.tree); err != nil {
				return fmt.Errorf("transform failed: %w", err)
			}
		}
		if e.tree.Version() == before {
			return nil
		}
	}
	return fmt.Errorf("after %d rounds: %w", e.maxSettleRounds, ErrSettleLimit)
}

func (e *Editor) notify(c Commit) {
	e.notifying = true
	defer func() { e.notifying = false }()

	set := MutationSet{
		Seq:       c.Seq,
		Mutations: c.Mutations,
		Nodes: func(id document.NodeID) (document.Node, bool) {
			if n, ok := c.Current.Node(id); ok {
				return n, true
			}
			return c.Prev.Node(id)
		},
	}
	for _, l := range e.mutationListeners {
		l(set)
	}
	for _, l := range e.updateListeners {
		l(c)
	}
}

// RegisterCommand adds a handler for a named command.
func (e *Editor) RegisterCommand(name string, fn CommandHandler) {
	e.commands[name] = append(e.commands[name], fn)
}

// Dispatch runs the handlers registered for name, most recent first, until
// one reports it handled the command.
func (e *Editor) Dispatch(name string, payload any) bool {
	handlers := e.commands[name]
	if len(handlers) == 0 {
		log.Printf("editor: no handler for command %q", name)
		return false
	}
	for i := len(handlers) - 1; i >= 0; i-- {
		if handlers[i](payload) {
			return true
		}
	}
	return false
}
