package generator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"annotext/internal/document"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLGenerator renders document trees back to HTML. Annotated spans are
// written as <span data-term="..." data-replacement="...">. Raw nodes are
// written verbatim.
type HTMLGenerator struct{}

func NewHTMLGenerator() *HTMLGenerator {
	return &HTMLGenerator{}
}

// Render writes every top-level block of r, one per line.
func (g *HTMLGenerator) Render(w io.Writer, r document.Reader) error {
	for _, block := range r.Blocks() {
		n, err := g.node(r, block)
		if err != nil {
			return err
		}
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("failed to render block %d: %w", block, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// RenderString is Render into a string.
func (g *HTMLGenerator) RenderString(r document.Reader) (string, error) {
	var buf bytes.Buffer
	if err := g.Render(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile renders r to path, creating parent directories.
func (g *HTMLGenerator) WriteFile(path string, r document.Reader) error {
	out, err := g.RenderString(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

func (g *HTMLGenerator) node(r document.Reader, id document.NodeID) (*html.Node, error) {
	n, ok := r.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, document.ErrNotFound)
	}

	switch n.Kind {
	case document.KindText:
		return &html.Node{Type: html.TextNode, Data: n.Text}, nil
	case document.KindAnnotated:
		term := n.Source
		if term == "" {
			term = n.Text
		}
		span := element("span", map[string]string{
			document.AttrTerm:        term,
			document.AttrReplacement: n.Replacement,
		})
		span.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
		return span, nil
	case document.KindRaw:
		if n.Tag == document.TagComment {
			return &html.Node{Type: html.CommentNode, Data: n.Text}, nil
		}
		el := element(n.Tag, n.Attrs())
		el.AppendChild(&html.Node{Type: html.RawNode, Data: n.Text})
		return el, nil
	case document.KindElement:
		el := element(n.Tag, n.Attrs())
		for _, c := range n.Children {
			child, err := g.node(r, c)
			if err != nil {
				return nil, err
			}
			el.AppendChild(child)
		}
		return el, nil
	default:
		return nil, fmt.Errorf("node %d has unexpected kind %q", id, n.Kind)
	}
}

func element(tag string, attrs map[string]string) *html.Node {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	el := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, k := range keys {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	return el
}
