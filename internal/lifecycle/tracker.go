package lifecycle

import (
	"log"
	"sort"

	"annotext/internal/document"
	"annotext/internal/editor"
)

// Namespace names one family of logical ids and the element attribute they
// are stored in.
type Namespace struct {
	Name      string `yaml:"name"`
	Attribute string `yaml:"attribute"`
}

// DefaultNamespaces are the origin and refine id families.
func DefaultNamespaces() []Namespace {
	return []Namespace{
		{Name: "origin", Attribute: "originid"},
		{Name: "refine", Attribute: "refineid"},
	}
}

// Sink receives one call per logical id that disappeared from the document.
// Implementations must tolerate repeated calls for the same id.
type Sink interface {
	WordDeleted(namespace, id string) error
}

// ContentSink is implemented by sinks that also want to hear about every
// commit that changed the document text.
type ContentSink interface {
	ContentChanged(current *document.Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(namespace, id string) error

func (f SinkFunc) WordDeleted(namespace, id string) error {
	return f(namespace, id)
}

// Deletion is one reported disappearance.
type Deletion struct {
	Namespace string
	ID        string
}

// Tracker detects annotated content that left the document, both by
// diffing before/after snapshots and from destroyed-node notifications.
// Apart from the optional per-commit dedupe set it keeps no state between
// cycles.
type Tracker struct {
	namespaces []Namespace
	sink       Sink

	dedupe    bool
	reportSeq uint64
	reported  map[Deletion]struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCycleDedupe suppresses a second report of the same id within one
// commit when both detection paths observe it.
func WithCycleDedupe() Option {
	return func(t *Tracker) {
		t.dedupe = true
	}
}

// New creates a tracker that reports to sink. With no namespaces it uses
// DefaultNamespaces.
func New(sink Sink, namespaces []Namespace, opts ...Option) *Tracker {
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces()
	}
	t := &Tracker{
		namespaces: namespaces,
		sink:       sink,
		reported:   make(map[Deletion]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach subscribes the tracker to both notification paths of ed.
func (t *Tracker) Attach(ed *editor.Editor) {
	ed.RegisterMutationListener(func(m editor.MutationSet) {
		t.begin(m.Seq)
		t.HandleMutations(m.Mutations, m.Nodes)
	})
	ed.RegisterUpdateListener(func(c editor.Commit) {
		t.begin(c.Seq)
		t.Diff(c.Prev, c.Current)
		t.contentChanged(c)
	})
}

func (t *Tracker) begin(seq uint64) {
	if seq != t.reportSeq {
		t.reportSeq = seq
		t.reported = make(map[Deletion]struct{})
	}
}

// CollectIDs gathers the values of attr found on the parents of all text
// leaves in r.
func CollectIDs(r document.Reader, attr string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, leaf := range r.Leaves() {
		parent := r.Parent(leaf)
		if parent == document.NoNode {
			continue
		}
		if v, ok := r.Attr(parent, attr); ok && v != "" {
			ids[v] = struct{}{}
		}
	}
	return ids
}

// Diff reports every id present in prev but missing from cur, for every
// namespace. Within a namespace ids are reported in sorted order.
func (t *Tracker) Diff(prev, cur document.Reader) []Deletion {
	var out []Deletion
	for _, ns := range t.namespaces {
		before := CollectIDs(prev, ns.Attribute)
		after := CollectIDs(cur, ns.Attribute)

		var gone []string
		for id := range before {
			if _, ok := after[id]; !ok {
				gone = append(gone, id)
			}
		}
		sort.Strings(gone)
		for _, id := range gone {
			if d, ok := t.report(ns.Name, id); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

// HandleMutations reports the ids carried by destroyed nodes that can still
// be resolved through nodes.
func (t *Tracker) HandleMutations(mutations map[document.NodeID]document.Mutation, nodes editor.NodeLookup) []Deletion {
	keys := make([]document.NodeID, 0, len(mutations))
	for id, m := range mutations {
		if m == document.MutationDestroyed {
			keys = append(keys, id)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []Deletion
	for _, key := range keys {
		n, ok := nodes(key)
		if !ok {
			continue
		}
		attrs := n.Attrs()
		for _, ns := range t.namespaces {
			id, ok := attrs[ns.Attribute]
			if !ok || id == "" {
				continue
			}
			if d, ok := t.report(ns.Name, id); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func (t *Tracker) report(namespace, id string) (Deletion, bool) {
	d := Deletion{Namespace: namespace, ID: id}
	if t.dedupe {
		if _, seen := t.reported[d]; seen {
			return d, false
		}
		t.reported[d] = struct{}{}
	}
	if t.sink != nil {
		if err := t.sink.WordDeleted(namespace, id); err != nil {
			log.Printf("lifecycle: failed to report deleted %s id %q: %v", namespace, id, err)
		}
	}
	return d, true
}

func (t *Tracker) contentChanged(c editor.Commit) {
	cs, ok := t.sink.(ContentSink)
	if !ok {
		return
	}
	if c.Prev.TextContent() == c.Current.TextContent() {
		return
	}
	if err := cs.ContentChanged(c.Current); err != nil {
		log.Printf("lifecycle: content change notification failed: %v", err)
	}
}
