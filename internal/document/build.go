package document

import "fmt"

// Spec describes a subtree for Build.
type Spec struct {
	Kind        Kind
	Tag         string
	Text        string
	Replacement string
	Attrs       map[string]string
	Children    []Spec
}

// El describes an element with children.
func El(tag string, children ...Spec) Spec {
	return Spec{Kind: KindElement, Tag: tag, Children: children}
}

// Txt describes a plain text leaf.
func Txt(text string) Spec {
	return Spec{Kind: KindText, Text: text}
}

// Ann describes an annotated span.
func Ann(text, replacement string) Spec {
	return Spec{Kind: KindAnnotated, Text: text, Replacement: replacement}
}

// Raw describes markup kept verbatim, such as a script body or a comment.
func Raw(tag, text string) Spec {
	return Spec{Kind: KindRaw, Tag: tag, Text: text}
}

// With returns a copy of the spec carrying an extra attribute.
func (s Spec) With(name, value string) Spec {
	attrs := make(map[string]string, len(s.Attrs)+1)
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	attrs[name] = value
	s.Attrs = attrs
	return s
}

// Build creates a tree whose root holds the given blocks. The journal of the
// returned tree is empty.
func Build(reg *Registry, blocks ...Spec) (*Tree, error) {
	t := NewTree(reg)
	for _, b := range blocks {
		if _, err := t.AppendSpec(t.Root(), b); err != nil {
			return nil, err
		}
	}
	t.ResetJournal()
	return t, nil
}

// AppendSpec materialises a spec as the last child of parent.
func (t *Tree) AppendSpec(parent NodeID, s Spec) (NodeID, error) {
	var id NodeID
	switch s.Kind {
	case KindText:
		id = t.NewText(s.Text)
	case KindAnnotated:
		var err error
		if id, err = t.NewAnnotated(s.Text, s.Replacement); err != nil {
			return NoNode, err
		}
	case KindElement:
		id = t.NewElement(s.Tag)
		for k, v := range s.Attrs {
			t.nodes[id].attrs[k] = v
		}
	case KindRaw:
		id = t.NewRaw(s.Tag, s.Text)
		for k, v := range s.Attrs {
			t.nodes[id].attrs[k] = v
		}
	default:
		return NoNode, fmt.Errorf("append %q: %w", s.Kind, ErrUnregisteredKind)
	}

	if err := t.Append(parent, id); err != nil {
		return NoNode, err
	}
	for _, c := range s.Children {
		if _, err := t.AppendSpec(id, c); err != nil {
			return NoNode, err
		}
	}
	return id, nil
}
