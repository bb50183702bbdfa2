// Package combiner implements the order-independent commutative combiner
// that maintains per-chunk XOR state under inserts, updates and deletes
// (C4, §4.4). It has no storage dependency: ChunkState persistence lives in
// package store, which calls these pure functions under a row lock.
package combiner

// State is the commutative running digest of a chunk: the XOR of
// fasthash64(row_bytes) over every live row currently assigned to it, plus
// the row count. XOR is associative, commutative and self-inverse, so
// State is correct regardless of the order events are applied in, and any
// event can be undone by reapplying it.
type State struct {
	XOR64    uint64
	RowCount int32
}

// Insert applies an INSERT of a row whose fasthash64(row_bytes) is rowHash64
// (§4.4 table, row 1).
func (s State) Insert(rowHash64 uint64) State {
	return State{XOR64: s.XOR64 ^ rowHash64, RowCount: s.RowCount + 1}
}

// Delete applies a DELETE of a row whose fasthash64(row_bytes) is rowHash64
// (§4.4 table, row 2). Because XOR is self-inverse, Delete is Insert's
// exact inverse: applying Insert then Delete with the same rowHash64
// restores the original state (§8 property 2).
func (s State) Delete(rowHash64 uint64) State {
	return State{XOR64: s.XOR64 ^ rowHash64, RowCount: s.RowCount - 1}
}

// UpdateSameChunk applies an UPDATE r->r' where both rows hash to the same
// chunk (§4.4 table, row 3): a single XOR-in/out, row count unchanged.
func UpdateSameChunk(s State, oldRowHash64, newRowHash64 uint64) State {
	return State{XOR64: s.XOR64 ^ oldRowHash64 ^ newRowHash64, RowCount: s.RowCount}
}

// UpdateCrossChunk applies an UPDATE r->r' whose old and new rows fall in
// different chunks (§4.4 table, row 4): DELETE r from oldState, INSERT r'
// into newState. The two chunks are independent; callers persist each
// return value against its own chunk id.
func UpdateCrossChunk(oldState State, oldRowHash64 uint64, newState State, newRowHash64 uint64) (newOldState, newNewState State) {
	return oldState.Delete(oldRowHash64), newState.Insert(newRowHash64)
}

// IsEmpty reports whether the chunk currently holds no live rows. An empty
// chunk either has RowCount == 0 (explicit row in ChunkState) or has no row
// in ChunkState at all — both are treated identically by callers, which
// substitute the zero State in the latter case.
func (s State) IsEmpty() bool {
	return s.RowCount == 0
}
