package lifecycle

import (
	"errors"
	"sort"
	"testing"

	"annotext/internal/document"
	"annotext/internal/editor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	deleted []Deletion
	changes int
	fail    bool
}

func (s *recordingSink) WordDeleted(namespace, id string) error {
	s.deleted = append(s.deleted, Deletion{Namespace: namespace, ID: id})
	if s.fail {
		return errors.New("store unreachable")
	}
	return nil
}

func (s *recordingSink) ContentChanged(*document.Snapshot) error {
	s.changes++
	return nil
}

func word(text, attr, id string) document.Spec {
	return document.El("span", document.Txt(text)).With(attr, id)
}

func buildTree(t *testing.T, blocks ...document.Spec) *document.Tree {
	t.Helper()
	tree, err := document.Build(nil, blocks...)
	require.NoError(t, err)
	return tree
}

func TestCollectIDs(t *testing.T) {
	tree := buildTree(t,
		document.El("p",
			word("I ", "originid", "o1"),
			word("like", "originid", "o2"),
			word("coffee", "refineid", "r1"),
			document.Txt(" plain"),
			document.El("span").With("originid", "empty"),
		),
	)

	assert.Equal(t, map[string]struct{}{"o1": {}, "o2": {}}, CollectIDs(tree, "originid"))
	assert.Equal(t, map[string]struct{}{"r1": {}}, CollectIDs(tree, "refineid"))
	assert.Empty(t, CollectIDs(tree, "missing"))
}

func TestDiff_ReportsPerNamespace(t *testing.T) {
	tree := buildTree(t,
		document.El("p",
			word("a", "originid", "o1"),
			word("b", "originid", "o2"),
			word("c", "refineid", "r1"),
		),
	)
	prev := tree.Snapshot()

	spans := tree.Children(tree.Blocks()[0])
	require.NoError(t, tree.Remove(spans[1]))
	require.NoError(t, tree.Remove(spans[2]))

	sink := &recordingSink{}
	deleted := New(sink, nil).Diff(prev, tree.Snapshot())

	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o2"}, {Namespace: "refine", ID: "r1"}}, deleted)
	assert.Equal(t, deleted, sink.deleted)
}

func TestDiff_TextEditEmptyingSpan(t *testing.T) {
	tree := buildTree(t, document.El("p", word("gone", "originid", "o1")))
	prev := tree.Snapshot()

	leaf := tree.Leaves()[0]
	require.NoError(t, tree.DeleteText(leaf, 0, 4))

	sink := &recordingSink{}
	New(sink, nil).Diff(prev, tree)
	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o1"}}, sink.deleted)
}

func TestDiff_NoChangeReportsNothing(t *testing.T) {
	tree := buildTree(t, document.El("p", word("a", "originid", "o1")))

	sink := &recordingSink{}
	assert.Empty(t, New(sink, nil).Diff(tree.Snapshot(), tree))
	assert.Empty(t, sink.deleted)
}

func TestDiff_MovedIDIsNotDeleted(t *testing.T) {
	tree := buildTree(t,
		document.El("p", word("a", "originid", "o1")),
		document.El("p"),
	)
	prev := tree.Snapshot()

	blocks := tree.Blocks()
	span := tree.Children(blocks[0])[0]
	require.NoError(t, tree.Detach(span))
	require.NoError(t, tree.Append(blocks[1], span))

	sink := &recordingSink{}
	New(sink, nil).Diff(prev, tree)
	assert.Empty(t, sink.deleted)
}

func TestHandleMutations(t *testing.T) {
	tree := buildTree(t, document.El("p", word("a", "originid", "o1"), word("b", "refineid", "r1")))
	prev := tree.Snapshot()
	spans := tree.Children(tree.Blocks()[0])
	require.NoError(t, tree.Remove(spans[0]))

	lookup := func(id document.NodeID) (document.Node, bool) { return prev.Node(id) }

	sink := &recordingSink{}
	deleted := New(sink, nil).HandleMutations(tree.Journal(), lookup)
	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o1"}}, deleted)

	t.Run("Unresolvable nodes are ignored", func(t *testing.T) {
		sink := &recordingSink{}
		none := func(document.NodeID) (document.Node, bool) { return document.Node{}, false }
		assert.Empty(t, New(sink, nil).HandleMutations(tree.Journal(), none))
	})
}

func TestSinkFailureIsBestEffort(t *testing.T) {
	tree := buildTree(t, document.El("p", word("a", "originid", "o1"), word("b", "originid", "o2")))
	prev := tree.Snapshot()
	for _, span := range tree.Children(tree.Blocks()[0]) {
		require.NoError(t, tree.Remove(span))
	}

	sink := &recordingSink{fail: true}
	deleted := New(sink, nil).Diff(prev, tree)
	assert.Len(t, deleted, 2)
	assert.Len(t, sink.deleted, 2, "a failing call must not stop later reports")
}

func attachedEditor(t *testing.T, sink Sink, opts ...Option) *editor.Editor {
	t.Helper()
	ed := editor.New(buildTree(t,
		document.El("p", word("I like ", "originid", "o1"), word("coffee", "originid", "o2")),
	))
	New(sink, nil, opts...).Attach(ed)
	return ed
}

func TestAttach_BothPathsReport(t *testing.T) {
	sink := &recordingSink{}
	ed := attachedEditor(t, sink)
	span := ed.Tree().Children(ed.Tree().Blocks()[0])[1]

	require.NoError(t, ed.Update(func(tr *document.Tree) error { return tr.Remove(span) }))

	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o2"}, {Namespace: "origin", ID: "o2"}}, sink.deleted)
	assert.Equal(t, 1, sink.changes)
}

func TestAttach_CycleDedupe(t *testing.T) {
	sink := &recordingSink{}
	ed := attachedEditor(t, sink, WithCycleDedupe())
	spans := ed.Tree().Children(ed.Tree().Blocks()[0])

	require.NoError(t, ed.Update(func(tr *document.Tree) error { return tr.Remove(spans[1]) }))
	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o2"}}, sink.deleted)

	// a later commit may report again; dedupe only spans one cycle
	require.NoError(t, ed.Update(func(tr *document.Tree) error { return tr.Remove(spans[0]) }))
	ids := make([]string, 0, len(sink.deleted))
	for _, d := range sink.deleted {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"o1", "o2"}, ids)
}

func TestAttach_TextEditReportsViaSnapshot(t *testing.T) {
	sink := &recordingSink{}
	ed := attachedEditor(t, sink, WithCycleDedupe())
	leaf := ed.Tree().Leaves()[1]

	require.NoError(t, ed.Update(func(tr *document.Tree) error { return tr.DeleteText(leaf, 0, 6) }))
	assert.Equal(t, []Deletion{{Namespace: "origin", ID: "o2"}}, sink.deleted)
}

func TestSinkFunc(t *testing.T) {
	var got []string
	var s Sink = SinkFunc(func(namespace, id string) error {
		got = append(got, namespace+":"+id)
		return nil
	})
	require.NoError(t, s.WordDeleted("origin", "x"))
	assert.Equal(t, []string{"origin:x"}, got)
}
