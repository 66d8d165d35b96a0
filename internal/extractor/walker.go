package extractor

import (
	"strings"

	"annotext/internal/document"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/net/html"
)

// walker converts tree-sitter HTML nodes into document specs. The grammar
// trims whitespace off its text tokens, so text is always read from the raw
// source between child elements.
type walker struct {
	source    []byte
	annotated bool
}

func (w *walker) content(el *sitter.Node, top bool) []document.Spec {
	start, end := contentRange(el)
	return w.children(el, start, end, top)
}

func (w *walker) children(parent *sitter.Node, start, end int, top bool) []document.Spec {
	var out []document.Spec
	cursor := start
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		c := parent.NamedChild(i)
		switch c.Type() {
		case "element", "script_element", "style_element", "comment", "doctype", "erroneous_end_tag":
		default:
			continue
		}
		out = w.appendText(out, cursor, int(c.StartByte()), top)
		cursor = int(c.EndByte())
		switch c.Type() {
		case "element":
			out = append(out, w.element(c))
		case "script_element", "style_element":
			out = append(out, w.raw(c))
		case "comment":
			out = append(out, document.Raw(document.TagComment, commentText(c.Content(w.source))))
		}
	}
	return w.appendText(out, cursor, end, top)
}

// raw keeps the body of a script or style element byte for byte.
func (w *walker) raw(el *sitter.Node) document.Spec {
	tag, attrs := w.tag(el)
	start, end := contentRange(el)
	spec := document.Raw(tag, string(w.source[start:end]))
	if len(attrs) > 0 {
		spec.Attrs = attrs
	}
	return spec
}

func commentText(raw string) string {
	raw = strings.TrimPrefix(raw, "<!--")
	return strings.TrimSuffix(raw, "-->")
}

func (w *walker) appendText(out []document.Spec, from, to int, top bool) []document.Spec {
	if to <= from {
		return out
	}
	raw := string(w.source[from:to])
	// indentation between blocks
	if top && strings.TrimSpace(raw) == "" {
		return out
	}
	return append(out, document.Txt(html.UnescapeString(raw)))
}

func (w *walker) element(el *sitter.Node) document.Spec {
	tag, attrs := w.tag(el)
	children := w.content(el, false)

	if w.annotated && tag == "span" {
		if replacement, ok := attrs[document.AttrReplacement]; ok {
			if text, ok := plainText(children); ok {
				return annotatedSpan(text, replacement, attrs)
			}
		}
	}

	spec := document.El(tag, children...)
	if len(attrs) > 0 {
		spec.Attrs = attrs
	}
	return spec
}

// annotatedSpan keeps attributes other than the annotation markers, such as
// logical ids, on a plain span wrapping the annotated leaf.
func annotatedSpan(text, replacement string, attrs map[string]string) document.Spec {
	ann := document.Ann(text, replacement)
	extra := make(map[string]string)
	for k, v := range attrs {
		if k != document.AttrTerm && k != document.AttrReplacement {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return ann
	}
	spec := document.El("span", ann)
	spec.Attrs = extra
	return spec
}

func (w *walker) tag(el *sitter.Node) (string, map[string]string) {
	for i := 0; i < int(el.NamedChildCount()); i++ {
		c := el.NamedChild(i)
		if c.Type() != "start_tag" && c.Type() != "self_closing_tag" {
			continue
		}
		var name string
		attrs := make(map[string]string)
		for j := 0; j < int(c.NamedChildCount()); j++ {
			part := c.NamedChild(j)
			switch part.Type() {
			case "tag_name":
				name = strings.ToLower(part.Content(w.source))
			case "attribute":
				if k, v := w.attribute(part); k != "" {
					attrs[k] = v
				}
			}
		}
		return name, attrs
	}
	return "", nil
}

func (w *walker) attribute(n *sitter.Node) (string, string) {
	var name, value string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "attribute_name":
			name = c.Content(w.source)
		case "attribute_value":
			value = html.UnescapeString(c.Content(w.source))
		case "quoted_attribute_value":
			raw := c.Content(w.source)
			if len(raw) >= 2 {
				raw = raw[1 : len(raw)-1]
			}
			value = html.UnescapeString(raw)
		}
	}
	return name, value
}

// contentRange is the byte range between the start and end tag of el.
func contentRange(el *sitter.Node) (int, int) {
	start, end := int(el.StartByte()), int(el.EndByte())
	for i := 0; i < int(el.NamedChildCount()); i++ {
		c := el.NamedChild(i)
		switch c.Type() {
		case "start_tag":
			start = int(c.EndByte())
		case "end_tag":
			end = int(c.StartByte())
		case "self_closing_tag":
			return int(c.EndByte()), int(c.EndByte())
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func plainText(specs []document.Spec) (string, bool) {
	var sb strings.Builder
	for _, s := range specs {
		if s.Kind != document.KindText {
			return "", false
		}
		sb.WriteString(s.Text)
	}
	return sb.String(), true
}

func findElement(n *sitter.Node, source []byte, tag string) *sitter.Node {
	if n.Type() == "element" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() != "start_tag" {
				continue
			}
			for j := 0; j < int(c.NamedChildCount()); j++ {
				part := c.NamedChild(j)
				if part.Type() == "tag_name" && strings.EqualFold(part.Content(source), tag) {
					return n
				}
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findElement(n.NamedChild(i), source, tag); found != nil {
			return found
		}
	}
	return nil
}
