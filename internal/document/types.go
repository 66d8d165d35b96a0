package document

import (
	"errors"
	"sort"
)

var (
	ErrNotFound          = errors.New("document: node not found")
	ErrNotText           = errors.New("document: node is not a text leaf")
	ErrNotContainer      = errors.New("document: node cannot hold children")
	ErrAttached          = errors.New("document: node is already attached")
	ErrDetached          = errors.New("document: node has no parent")
	ErrNoAttributes      = errors.New("document: node has no attribute store")
	ErrOffsetOutOfRange  = errors.New("document: offset out of range")
	ErrUnregisteredKind  = errors.New("document: node kind not registered")
	ErrRootImmutable     = errors.New("document: root cannot be moved or removed")
	ErrInvalidAttachment = errors.New("document: node cannot be attached to itself or its descendant")
)

// NodeID is a stable arena index. IDs are never reused within a tree.
type NodeID int

// NoNode is the zero NodeID; it never names a live node.
const NoNode NodeID = 0

type Kind string

const (
	KindRoot      Kind = "root"
	KindElement   Kind = "element"
	KindText      Kind = "text"
	KindAnnotated Kind = "annotated"

	// KindRaw holds markup that is kept verbatim and never annotated, such
	// as scripts, styles and comments.
	KindRaw Kind = "raw"
)

// TagComment is the tag of a raw node holding an HTML comment.
const TagComment = "#comment"

// HTML attributes an annotated span is serialised with.
const (
	AttrTerm        = "data-term"
	AttrReplacement = "data-replacement"
)

// IsLeaf reports whether nodes of this kind carry text instead of children.
func (k Kind) IsLeaf() bool {
	return k == KindText || k == KindAnnotated
}

// Mutation is the lifecycle event recorded for a node during one update.
type Mutation string

const (
	MutationCreated   Mutation = "created"
	MutationUpdated   Mutation = "updated"
	MutationDestroyed Mutation = "destroyed"
)

// Node is a value copy of one tree node. Mutating it does not affect the tree.
type Node struct {
	ID       NodeID
	Kind     Kind
	Tag      string
	Parent   NodeID
	Children []NodeID
	Text     string

	// Source is the dictionary text an annotated span was created from. It
	// never changes, even when Text is edited afterwards.
	Source      string
	Replacement string

	attrs map[string]string
}

// Attrs returns a copy of the element attributes.
func (n Node) Attrs() map[string]string {
	out := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Registry lists the node kinds a tree accepts. Root, element, text and raw
// are always present; the annotated kind is optional.
type Registry struct {
	kinds map[Kind]struct{}
}

func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{kinds: map[Kind]struct{}{
		KindRoot:    {},
		KindElement: {},
		KindText:    {},
		KindRaw:     {},
	}}
	for _, k := range kinds {
		r.kinds[k] = struct{}{}
	}
	return r
}

// DefaultRegistry accepts every kind, including annotated spans.
func DefaultRegistry() *Registry {
	return NewRegistry(KindAnnotated)
}

func (r *Registry) Has(k Kind) bool {
	_, ok := r.kinds[k]
	return ok
}

func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AttributeStore reads and writes string attributes on a node.
type AttributeStore interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// Reader is the read-only view shared by live trees and snapshots.
type Reader interface {
	Registry() *Registry
	Root() NodeID
	Node(id NodeID) (Node, bool)
	Kind(id NodeID) Kind
	Parent(id NodeID) NodeID
	Children(id NodeID) []NodeID
	Text(id NodeID) string
	Attr(id NodeID, name string) (string, bool)
	Leaves() []NodeID
	Blocks() []NodeID
	TextContent() string
	Len() int
}
