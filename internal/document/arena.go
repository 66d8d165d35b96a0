package document

import "strings"

// arena holds the node storage and the read operations shared by Tree and
// Snapshot.
type arena struct {
	registry *Registry
	nodes    map[NodeID]*Node
	root     NodeID
}

func (a *arena) Registry() *Registry {
	return a.registry
}

func (a *arena) Root() NodeID {
	return a.root
}

// Len counts live nodes, root included.
func (a *arena) Len() int {
	return len(a.nodes)
}

func (a *arena) Node(id NodeID) (Node, bool) {
	n, ok := a.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(n), true
}

func (a *arena) Kind(id NodeID) Kind {
	if n, ok := a.nodes[id]; ok {
		return n.Kind
	}
	return ""
}

func (a *arena) Parent(id NodeID) NodeID {
	if n, ok := a.nodes[id]; ok {
		return n.Parent
	}
	return NoNode
}

func (a *arena) Children(id NodeID) []NodeID {
	n, ok := a.nodes[id]
	if !ok {
		return nil
	}
	out := make([]NodeID, len(n.Children))
	copy(out, n.Children)
	return out
}

func (a *arena) Text(id NodeID) string {
	if n, ok := a.nodes[id]; ok {
		return n.Text
	}
	return ""
}

func (a *arena) Attr(id NodeID, name string) (string, bool) {
	n, ok := a.nodes[id]
	if !ok || n.attrs == nil {
		return "", false
	}
	v, ok := n.attrs[name]
	return v, ok
}

// Leaves returns every text and annotated leaf in document order.
func (a *arena) Leaves() []NodeID {
	var out []NodeID
	a.walk(a.root, func(n *Node) {
		if n.Kind.IsLeaf() {
			out = append(out, n.ID)
		}
	})
	return out
}

// Blocks returns the top-level children of the root.
func (a *arena) Blocks() []NodeID {
	return a.Children(a.root)
}

// TextContent concatenates all leaf text in document order.
func (a *arena) TextContent() string {
	var sb strings.Builder
	for _, id := range a.Leaves() {
		sb.WriteString(a.nodes[id].Text)
	}
	return sb.String()
}

func (a *arena) walk(id NodeID, fn func(*Node)) {
	n, ok := a.nodes[id]
	if !ok {
		return
	}
	fn(n)
	for _, c := range n.Children {
		a.walk(c, fn)
	}
}

func (a *arena) siblingIndex(id NodeID) int {
	n, ok := a.nodes[id]
	if !ok || n.Parent == NoNode {
		return -1
	}
	for i, c := range a.nodes[n.Parent].Children {
		if c == id {
			return i
		}
	}
	return -1
}

func (a *arena) prevSibling(id NodeID) NodeID {
	i := a.siblingIndex(id)
	if i <= 0 {
		return NoNode
	}
	return a.nodes[a.nodes[id].Parent].Children[i-1]
}

func (a *arena) nextSibling(id NodeID) NodeID {
	i := a.siblingIndex(id)
	if i < 0 {
		return NoNode
	}
	siblings := a.nodes[a.nodes[id].Parent].Children
	if i+1 >= len(siblings) {
		return NoNode
	}
	return siblings[i+1]
}

func (a *arena) clone() arena {
	nodes := make(map[NodeID]*Node, len(a.nodes))
	for id, n := range a.nodes {
		c := cloneNode(n)
		nodes[id] = &c
	}
	return arena{registry: a.registry, nodes: nodes, root: a.root}
}

func cloneNode(n *Node) Node {
	c := *n
	if n.Children != nil {
		c.Children = make([]NodeID, len(n.Children))
		copy(c.Children, n.Children)
	}
	if n.attrs != nil {
		c.attrs = make(map[string]string, len(n.attrs))
		for k, v := range n.attrs {
			c.attrs[k] = v
		}
	}
	return c
}
