package combiner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertDelete_SelfInverse(t *testing.T) {
	s := State{}
	s = s.Insert(111)
	s = s.Insert(222)
	s = s.Delete(111)
	s = s.Delete(222)
	assert.Equal(t, State{}, s)
}

func TestCombiner_OrderIndependent(t *testing.T) {
	hashes := []uint64{1, 2, 3, 4, 5, 42, 9999}

	// Apply in forward order.
	var forward State
	for _, h := range hashes {
		forward = forward.Insert(h)
	}

	// Apply in reverse order.
	var reverse State
	for i := len(hashes) - 1; i >= 0; i-- {
		reverse = reverse.Insert(hashes[i])
	}

	// Apply in a shuffled order.
	shuffled := append([]uint64(nil), hashes...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var permuted State
	for _, h := range shuffled {
		permuted = permuted.Insert(h)
	}

	assert.Equal(t, forward, reverse)
	assert.Equal(t, forward, permuted)
}

func TestUpdateSameChunk_EquivalentToDeleteThenInsert(t *testing.T) {
	s := State{}.Insert(10).Insert(20)

	viaUpdate := UpdateSameChunk(s, 10, 30)
	viaDeleteInsert := s.Delete(10).Insert(30)

	assert.Equal(t, viaDeleteInsert, viaUpdate)
}

func TestUpdateCrossChunk(t *testing.T) {
	oldChunk := State{}.Insert(5).Insert(7)
	newChunk := State{}.Insert(99)

	newOld, newNew := UpdateCrossChunk(oldChunk, 5, newChunk, 123)

	assert.Equal(t, oldChunk.Delete(5), newOld)
	assert.Equal(t, newChunk.Insert(123), newNew)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, State{}.IsEmpty())
	assert.False(t, State{}.Insert(1).IsEmpty())

	s := State{}.Insert(1).Delete(1)
	assert.True(t, s.IsEmpty())
}

func TestDeleteThenInsert_RestoresState(t *testing.T) {
	// §8 property 5 / S5: a DELETE followed by an INSERT of the same row
	// restores the chunk's state exactly.
	s := State{}.Insert(1).Insert(2).Insert(3)
	afterDelete := s.Delete(2)
	afterReinsert := afterDelete.Insert(2)
	assert.Equal(t, s, afterReinsert)
}
