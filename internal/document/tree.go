package document

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Tree is a mutable, arena-backed document. Every mutation is recorded in a
// journal until the owner resets it at the start of the next update cycle.
// A Tree is not safe for concurrent use.
type Tree struct {
	arena
	next    NodeID
	version uint64
	journal map[NodeID]Mutation
}

// NewTree creates an empty document. A nil registry accepts every kind.
func NewTree(reg *Registry) *Tree {
	if reg == nil {
		reg = DefaultRegistry()
	}
	t := &Tree{
		arena: arena{
			registry: reg,
			nodes:    make(map[NodeID]*Node),
		},
		journal: make(map[NodeID]Mutation),
	}
	t.next++
	t.root = t.next
	t.nodes[t.root] = &Node{ID: t.root, Kind: KindRoot}
	return t
}

// Version increases on every mutation.
func (t *Tree) Version() uint64 {
	return t.version
}

// Journal returns the mutations recorded since the last ResetJournal.
func (t *Tree) Journal() map[NodeID]Mutation {
	out := make(map[NodeID]Mutation, len(t.journal))
	for id, m := range t.journal {
		out[id] = m
	}
	return out
}

func (t *Tree) ResetJournal() {
	t.journal = make(map[NodeID]Mutation)
}

// Snapshot returns a deep, read-only copy of the current tree.
func (t *Tree) Snapshot() *Snapshot {
	return &Snapshot{arena: t.arena.clone(), version: t.version}
}

// Restore replaces the tree content with s. Node IDs allocated since s was
// taken stay retired.
func (t *Tree) Restore(s *Snapshot) {
	t.arena = s.arena.clone()
	t.version++
	t.ResetJournal()
}

func (t *Tree) mark(id NodeID, m Mutation) {
	t.version++
	prev, seen := t.journal[id]
	switch {
	case !seen:
		t.journal[id] = m
	case prev == MutationCreated && m == MutationDestroyed:
		delete(t.journal, id)
	case prev == MutationCreated:
		// stays created
	default:
		t.journal[id] = m
	}
}

func (t *Tree) create(n *Node) NodeID {
	t.next++
	n.ID = t.next
	t.nodes[n.ID] = n
	t.mark(n.ID, MutationCreated)
	return n.ID
}

// NewElement creates a detached element.
func (t *Tree) NewElement(tag string) NodeID {
	return t.create(&Node{Kind: KindElement, Tag: tag, attrs: make(map[string]string)})
}

// NewText creates a detached plain text leaf.
func (t *Tree) NewText(text string) NodeID {
	return t.create(&Node{Kind: KindText, Text: text})
}

// NewRaw creates a detached raw node. Its text is emitted unchanged and it
// never holds children.
func (t *Tree) NewRaw(tag, text string) NodeID {
	return t.create(&Node{Kind: KindRaw, Tag: tag, Text: text, attrs: make(map[string]string)})
}

// NewAnnotated creates a detached annotated span for a dictionary hit.
func (t *Tree) NewAnnotated(text, replacement string) (NodeID, error) {
	if !t.registry.Has(KindAnnotated) {
		return NoNode, fmt.Errorf("create %s node: %w", KindAnnotated, ErrUnregisteredKind)
	}
	return t.create(&Node{Kind: KindAnnotated, Text: text, Source: text, Replacement: replacement}), nil
}

func (t *Tree) get(id NodeID) (*Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return n, nil
}

func (t *Tree) leaf(id NodeID) (*Node, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if !n.Kind.IsLeaf() {
		return nil, fmt.Errorf("node %d (%s): %w", id, n.Kind, ErrNotText)
	}
	return n, nil
}

// Append attaches a detached node as the last child of parent.
func (t *Tree) Append(parent, child NodeID) error {
	p, c, err := t.attachable(parent, child)
	if err != nil {
		return err
	}
	p.Children = append(p.Children, child)
	c.Parent = parent
	t.mark(parent, MutationUpdated)
	t.mark(child, MutationUpdated)
	return nil
}

// InsertBefore attaches a detached node immediately before ref.
func (t *Tree) InsertBefore(ref, node NodeID) error {
	return t.insertAt(ref, node, 0)
}

// InsertAfter attaches a detached node immediately after ref.
func (t *Tree) InsertAfter(ref, node NodeID) error {
	return t.insertAt(ref, node, 1)
}

func (t *Tree) insertAt(ref, node NodeID, shift int) error {
	r, err := t.get(ref)
	if err != nil {
		return err
	}
	if r.Parent == NoNode {
		return fmt.Errorf("node %d: %w", ref, ErrDetached)
	}
	p, c, err := t.attachable(r.Parent, node)
	if err != nil {
		return err
	}
	i := t.siblingIndex(ref) + shift
	p.Children = append(p.Children, NoNode)
	copy(p.Children[i+1:], p.Children[i:])
	p.Children[i] = node
	c.Parent = p.ID
	t.mark(p.ID, MutationUpdated)
	t.mark(node, MutationUpdated)
	return nil
}

func (t *Tree) attachable(parent, child NodeID) (*Node, *Node, error) {
	p, err := t.get(parent)
	if err != nil {
		return nil, nil, err
	}
	if p.Kind.IsLeaf() || p.Kind == KindRaw {
		return nil, nil, fmt.Errorf("node %d (%s): %w", parent, p.Kind, ErrNotContainer)
	}
	c, err := t.get(child)
	if err != nil {
		return nil, nil, err
	}
	if c.Kind == KindRoot {
		return nil, nil, ErrRootImmutable
	}
	if c.Parent != NoNode {
		return nil, nil, fmt.Errorf("node %d: %w", child, ErrAttached)
	}
	for a := parent; a != NoNode; a = t.nodes[a].Parent {
		if a == child {
			return nil, nil, ErrInvalidAttachment
		}
	}
	return p, c, nil
}

// Detach unlinks a node from its parent without destroying it.
func (t *Tree) Detach(id NodeID) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.Kind == KindRoot {
		return ErrRootImmutable
	}
	if n.Parent == NoNode {
		return nil
	}
	p := t.nodes[n.Parent]
	i := t.siblingIndex(id)
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	n.Parent = NoNode
	t.mark(p.ID, MutationUpdated)
	t.mark(id, MutationUpdated)
	return nil
}

// Remove detaches a node and destroys it together with its subtree.
func (t *Tree) Remove(id NodeID) error {
	if err := t.Detach(id); err != nil {
		return err
	}
	var doomed []NodeID
	t.walk(id, func(n *Node) {
		doomed = append(doomed, n.ID)
	})
	for _, d := range doomed {
		delete(t.nodes, d)
		t.mark(d, MutationDestroyed)
	}
	return nil
}

// Replace puts a detached node in old's position and destroys old.
func (t *Tree) Replace(old, node NodeID) error {
	if err := t.InsertBefore(old, node); err != nil {
		return err
	}
	return t.Remove(old)
}

// SetText overwrites the text of a leaf.
func (t *Tree) SetText(id NodeID, text string) error {
	n, err := t.leaf(id)
	if err != nil {
		return err
	}
	if n.Text == text {
		return nil
	}
	n.Text = text
	t.mark(id, MutationUpdated)
	return nil
}

// SetReplacement updates the replacement carried by an annotated span.
func (t *Tree) SetReplacement(id NodeID, replacement string) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if n.Kind != KindAnnotated {
		return fmt.Errorf("node %d (%s): %w", id, n.Kind, ErrNotText)
	}
	if n.Replacement == replacement {
		return nil
	}
	n.Replacement = replacement
	t.mark(id, MutationUpdated)
	return nil
}

// SplitText cuts a leaf at the given byte offsets. The first part keeps the
// original ID; the others are new siblings of the same kind inserted after
// it. Offsets at either end of the text are ignored. It returns every part
// in document order.
func (t *Tree) SplitText(id NodeID, offsets ...int) ([]NodeID, error) {
	n, err := t.leaf(id)
	if err != nil {
		return nil, err
	}
	if n.Parent == NoNode {
		return nil, fmt.Errorf("split node %d: %w", id, ErrDetached)
	}

	cuts := make([]int, 0, len(offsets))
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if err := checkOffset(n.Text, o); err != nil {
			return nil, fmt.Errorf("split node %d at %d: %w", id, o, err)
		}
		if o == 0 || o == len(n.Text) || seen[o] {
			continue
		}
		seen[o] = true
		cuts = append(cuts, o)
	}
	if len(cuts) == 0 {
		return []NodeID{id}, nil
	}
	sort.Ints(cuts)

	text := n.Text
	parts := []NodeID{id}
	prev := id
	for i, c := range cuts {
		end := len(text)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		part := t.create(&Node{Kind: n.Kind, Text: text[c:end], Source: n.Source, Replacement: n.Replacement})
		if err := t.InsertAfter(prev, part); err != nil {
			return nil, err
		}
		parts = append(parts, part)
		prev = part
	}
	n.Text = text[:cuts[0]]
	t.mark(id, MutationUpdated)
	return parts, nil
}

// InsertText inserts s into a leaf at a byte offset. Annotated spans never
// grow at their outer boundary: text typed right before or after one lands
// in the neighbouring plain text leaf, which is created when missing.
func (t *Tree) InsertText(id NodeID, offset int, s string) error {
	n, err := t.leaf(id)
	if err != nil {
		return err
	}
	if err := checkOffset(n.Text, offset); err != nil {
		return fmt.Errorf("insert into node %d at %d: %w", id, offset, err)
	}
	if s == "" {
		return nil
	}

	if n.Kind == KindAnnotated && (offset == 0 || offset == len(n.Text)) {
		before := offset == 0
		sib := t.nextSibling(id)
		if before {
			sib = t.prevSibling(id)
		}
		if sib != NoNode && t.nodes[sib].Kind == KindText {
			s2 := t.nodes[sib].Text + s
			if !before {
				s2 = s + t.nodes[sib].Text
			}
			return t.SetText(sib, s2)
		}
		if n.Parent == NoNode {
			return fmt.Errorf("insert beside node %d: %w", id, ErrDetached)
		}
		created := t.NewText(s)
		if before {
			return t.InsertBefore(id, created)
		}
		return t.InsertAfter(id, created)
	}

	return t.SetText(id, n.Text[:offset]+s+n.Text[offset:])
}

// DeleteText removes the byte range [start, end) from a leaf. A leaf left
// empty is removed from the tree.
func (t *Tree) DeleteText(id NodeID, start, end int) error {
	n, err := t.leaf(id)
	if err != nil {
		return err
	}
	if err := checkOffset(n.Text, start); err != nil {
		return fmt.Errorf("delete from node %d: %w", id, err)
	}
	if err := checkOffset(n.Text, end); err != nil || end < start {
		return fmt.Errorf("delete from node %d: %w", id, ErrOffsetOutOfRange)
	}
	text := n.Text[:start] + n.Text[end:]
	if text == "" {
		return t.Remove(id)
	}
	return t.SetText(id, text)
}

// Normalize merges adjacent plain text siblings and drops empty plain text
// leaves. Annotated spans are never merged with their neighbours. It returns
// the number of leaves removed.
func (t *Tree) Normalize() int {
	var containers []NodeID
	t.walk(t.root, func(n *Node) {
		if !n.Kind.IsLeaf() {
			containers = append(containers, n.ID)
		}
	})

	removed := 0
	for _, cid := range containers {
		children := t.Children(cid)
		var last NodeID
		for _, c := range children {
			n := t.nodes[c]
			if n.Kind != KindText {
				last = NoNode
				continue
			}
			if n.Text == "" {
				_ = t.Remove(c)
				removed++
				continue
			}
			if last != NoNode {
				_ = t.SetText(last, t.nodes[last].Text+n.Text)
				_ = t.Remove(c)
				removed++
				continue
			}
			last = c
		}
	}
	return removed
}

// Attributes returns the attribute store of an element. Leaves and the root
// have none and yield ErrNoAttributes.
func (t *Tree) Attributes(id NodeID) (AttributeStore, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindElement {
		return nil, fmt.Errorf("node %d (%s): %w", id, n.Kind, ErrNoAttributes)
	}
	return elementAttrs{tree: t, id: id}, nil
}

type elementAttrs struct {
	tree *Tree
	id   NodeID
}

func (e elementAttrs) Get(name string) (string, bool) {
	return e.tree.Attr(e.id, name)
}

func (e elementAttrs) Set(name, value string) {
	n, ok := e.tree.nodes[e.id]
	if !ok {
		return
	}
	if cur, ok := n.attrs[name]; ok && cur == value {
		return
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	e.tree.mark(e.id, MutationUpdated)
}

func checkOffset(text string, o int) error {
	if o < 0 || o > len(text) {
		return ErrOffsetOutOfRange
	}
	if o < len(text) && !utf8.RuneStart(text[o]) {
		return ErrOffsetOutOfRange
	}
	return nil
}
