package document

// Snapshot is an immutable copy of a tree taken at a point in time.
type Snapshot struct {
	arena
	version uint64
}

// Version is the tree version the snapshot was taken at.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Tree returns a mutable copy of the snapshot. Node IDs are preserved, so
// IDs allocated in the copy start after the highest ID in the snapshot.
func (s *Snapshot) Tree() *Tree {
	t := &Tree{arena: s.arena.clone(), version: s.version, journal: make(map[NodeID]Mutation)}
	for id := range t.nodes {
		if id > t.next {
			t.next = id
		}
	}
	return t
}
