package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"annotext/internal/document"

	"github.com/disiqueira/gotree/v3"
)

// VisualDocumentTree draws a document as an indented tree.
type VisualDocumentTree struct {
	tree gotree.Tree
}

func NewVisualDocumentTree(rootLabel string, r document.Reader) VisualDocumentTree {
	t := VisualDocumentTree{tree: gotree.New(rootLabel)}
	for _, block := range r.Blocks() {
		t.insert(t.tree, r, block)
	}
	return t
}

func (t VisualDocumentTree) insert(parent gotree.Tree, r document.Reader, id document.NodeID) {
	n, ok := r.Node(id)
	if !ok {
		return
	}
	branch := parent.Add(label(n))
	for _, c := range n.Children {
		t.insert(branch, r, c)
	}
}

func (t VisualDocumentTree) Render() string {
	return t.tree.Print()
}

func label(n document.Node) string {
	switch n.Kind {
	case document.KindText:
		return strconv.Quote(n.Text)
	case document.KindAnnotated:
		return fmt.Sprintf("[%s -> %s]", strconv.Quote(n.Text), n.Replacement)
	case document.KindRaw:
		if n.Tag == document.TagComment {
			return "<!--" + n.Text + "-->"
		}
		return fmt.Sprintf("<%s> (%d bytes, kept verbatim)", n.Tag, len(n.Text))
	default:
		attrs := n.Attrs()
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString("<" + n.Tag)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%q", k, attrs[k])
		}
		sb.WriteString(">")
		return sb.String()
	}
}
