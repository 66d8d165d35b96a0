package extractor

import (
	"context"
	"fmt"
	"os"

	"annotext/internal/document"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
)

// Extractor turns HTML documents into document trees.
type Extractor struct {
	registry *document.Registry
}

// NewExtractor creates an extractor producing trees for reg. A nil registry
// accepts every node kind.
func NewExtractor(reg *document.Registry) *Extractor {
	if reg == nil {
		reg = document.DefaultRegistry()
	}
	return &Extractor{registry: reg}
}

// ExtractFromFile parses a single HTML file.
func (e *Extractor) ExtractFromFile(path string) (*document.Tree, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	tree, err := e.Extract(context.Background(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return tree, nil
}

// Extract parses an HTML fragment or full page. For a full page the
// children of <body> become the top-level blocks.
func (e *Extractor) Extract(ctx context.Context, source []byte) (*document.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(html.GetLanguage())
	parsed, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	root := parsed.RootNode()
	w := &walker{source: source, annotated: e.registry.Has(document.KindAnnotated)}

	var blocks []document.Spec
	if body := findElement(root, source, "body"); body != nil {
		blocks = w.content(body, true)
	} else {
		blocks = w.children(root, 0, len(source), true)
	}

	return document.Build(e.registry, blocks...)
}
