package annotate

import (
	"errors"
	"fmt"
	"log"

	"annotext/internal/document"
	"annotext/internal/editor"
	"annotext/internal/matcher"
)

// ErrAnnotatedKindMissing is a wiring error: the document does not accept
// annotated span nodes.
var ErrAnnotatedKindMissing = errors.New("annotate: document registry lacks the annotated span kind")

// ErrNotAnnotated is returned by Accept for nodes that are not annotated spans.
var ErrNotAnnotated = errors.New("annotate: node is not an annotated span")

// CommandAccept replaces an annotated span (payload: document.NodeID) with
// its replacement text.
const CommandAccept = "accept-annotation"

// Matcher is the lookup surface the engine needs.
type Matcher interface {
	FindAllMatches(text string) []matcher.Match
	Search(term string) bool
	Replacement(term string) (string, bool)
}

// ConfirmFunc decides whether a replacement offered for a span is applied.
type ConfirmFunc func(term, replacement string) bool

// Engine rewrites plain text into annotated spans and reverts spans whose
// text no longer matches the dictionary.
type Engine struct {
	matcher Matcher
	confirm ConfirmFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfirm installs the confirmation hook used by the accept command.
func WithConfirm(fn ConfirmFunc) Option {
	return func(e *Engine) {
		e.confirm = fn
	}
}

func New(m Matcher, opts ...Option) *Engine {
	e := &Engine{matcher: m}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Attach registers the engine's settle transform and accept command on ed.
// It fails when the document cannot hold annotated spans.
func Attach(ed *editor.Editor, m Matcher, opts ...Option) (*Engine, error) {
	if !ed.Registry().Has(document.KindAnnotated) {
		return nil, ErrAnnotatedKindMissing
	}
	e := New(m, opts...)

	ed.RegisterTransform(func(t *document.Tree) error {
		_, err := e.Settle(t)
		return err
	})
	ed.RegisterCommand(CommandAccept, func(payload any) bool {
		id, ok := payload.(document.NodeID)
		if !ok {
			return false
		}
		var accepted bool
		err := ed.Update(func(t *document.Tree) error {
			var err error
			accepted, err = e.Accept(t, id)
			return err
		})
		if err != nil {
			log.Printf("annotate: accept node %d failed: %v", id, err)
			return false
		}
		return accepted
	})
	return e, nil
}

// Stats counts the work done by one settle pass.
type Stats struct {
	Reverted  int
	Refreshed int
	Annotated int
	Skipped   int
}

// Settle reverts stale spans first so they can be matched again, then
// annotates plain text.
func (e *Engine) Settle(t *document.Tree) (Stats, error) {
	var stats Stats
	var err error
	if stats.Reverted, stats.Refreshed, err = e.Revert(t); err != nil {
		return stats, err
	}
	stats.Annotated, stats.Skipped, err = e.Annotate(t)
	return stats, err
}

// Revert turns every annotated span whose text is no longer a dictionary
// term back into plain text. A span edited into a different term keeps its
// annotation and takes that term's replacement.
func (e *Engine) Revert(t *document.Tree) (reverted, refreshed int, err error) {
	for _, id := range t.Leaves() {
		n, _ := t.Node(id)
		if n.Kind != document.KindAnnotated {
			continue
		}

		if e.matcher.Search(n.Text) {
			repl, _ := e.matcher.Replacement(n.Text)
			if repl != n.Replacement {
				if err := t.SetReplacement(id, repl); err != nil {
					return reverted, refreshed, fmt.Errorf("refresh node %d: %w", id, err)
				}
				refreshed++
			}
			continue
		}

		plain := t.NewText(n.Text)
		if err := t.Replace(id, plain); err != nil {
			return reverted, refreshed, fmt.Errorf("revert node %d: %w", id, err)
		}
		reverted++
	}
	return reverted, refreshed, nil
}

type pendingSplit struct {
	leaf    document.NodeID
	matches []matcher.Match
}

// Annotate splits plain text leaves around dictionary hits and replaces each
// hit with an annotated span. All splits are planned before any is applied.
func (e *Engine) Annotate(t *document.Tree) (annotated, skipped int, err error) {
	var plan []pendingSplit
	for _, id := range t.Leaves() {
		if t.Kind(id) != document.KindText {
			continue
		}
		if matches := e.matcher.FindAllMatches(t.Text(id)); len(matches) > 0 {
			plan = append(plan, pendingSplit{leaf: id, matches: matches})
		}
	}

	for _, p := range plan {
		n, s, err := e.apply(t, p)
		annotated += n
		skipped += s
		if err != nil {
			return annotated, skipped, err
		}
	}
	return annotated, skipped, nil
}

func (e *Engine) apply(t *document.Tree, p pendingSplit) (annotated, skipped int, err error) {
	current := t.Text(p.leaf)
	var valid []matcher.Match
	var cuts []int
	for _, m := range p.matches {
		if m.Start < 0 || m.End > len(current) || m.Start >= m.End {
			log.Printf("annotate: skipping match %q [%d,%d) outside node %d (len %d)", m.Term, m.Start, m.End, p.leaf, len(current))
			skipped++
			continue
		}
		valid = append(valid, m)
		cuts = append(cuts, m.Start, m.End)
	}
	if len(valid) == 0 {
		return 0, skipped, nil
	}

	parts, err := t.SplitText(p.leaf, cuts...)
	if err != nil {
		return 0, skipped, fmt.Errorf("split node %d: %w", p.leaf, err)
	}

	offset := 0
	next := 0
	for _, part := range parts {
		text := t.Text(part)
		start, end := offset, offset+len(text)
		offset = end

		for next < len(valid) && valid[next].End <= start {
			next++
		}
		if next >= len(valid) || valid[next].Start != start || valid[next].End != end {
			continue
		}

		span, err := t.NewAnnotated(text, valid[next].Replacement)
		if err != nil {
			return annotated, skipped, err
		}
		if err := t.Replace(part, span); err != nil {
			return annotated, skipped, fmt.Errorf("annotate node %d: %w", part, err)
		}
		annotated++
		next++
	}
	return annotated, skipped, nil
}

// Accept replaces an annotated span with plain text holding its replacement
// when the confirmation hook (if any) agrees. It reports whether the span
// was replaced.
func (e *Engine) Accept(t *document.Tree, id document.NodeID) (bool, error) {
	n, ok := t.Node(id)
	if !ok {
		return false, fmt.Errorf("accept node %d: %w", id, document.ErrNotFound)
	}
	if n.Kind != document.KindAnnotated {
		return false, fmt.Errorf("accept node %d: %w", id, ErrNotAnnotated)
	}
	if e.confirm != nil && !e.confirm(n.Text, n.Replacement) {
		return false, nil
	}
	if err := t.Replace(id, t.NewText(n.Replacement)); err != nil {
		return false, fmt.Errorf("accept node %d: %w", id, err)
	}
	return true, nil
}
