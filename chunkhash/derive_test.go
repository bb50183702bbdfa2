package chunkhash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgfingerprint/vkarious/combiner"
	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
)

func TestDerive_XOR_EmptyChunkIsHashOfEmptyString(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cfg := store.HashConfig{Schema: "public", Table: "t", Algo: rowhash.Blake3, Derivation: store.DerivationXOR}

	ch, err := Derive(ctx, st, cfg, 0)
	require.NoError(t, err)

	want, err := rowhash.EmptyDigest(rowhash.Blake3)
	require.NoError(t, err)
	assert.Equal(t, want, ch.Digest)
	assert.EqualValues(t, 0, ch.RowCount)
}

func TestDerive_XOR_MatchesDecimalTextConvention(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	key := store.TableKey{Schema: "public", Table: "t"}
	cfg := store.HashConfig{Schema: "public", Table: "t", Algo: rowhash.Blake3, Derivation: store.DerivationXOR}

	require.NoError(t, st.SetChunkState(ctx, key, 0, combiner.State{}.Insert(42)))

	ch, err := Derive(ctx, st, cfg, 0)
	require.NoError(t, err)

	want, err := rowhash.XORStateDigest(rowhash.Blake3, 42)
	require.NoError(t, err)
	assert.Equal(t, want, ch.Digest)
	assert.EqualValues(t, 1, ch.RowCount)
}

func TestDerive_SortedFold_OrderIndependentOfInsertionButSortedByPKHash(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	key := store.TableKey{Schema: "public", Table: "t"}
	cfg := store.HashConfig{Schema: "public", Table: "t", Algo: rowhash.Blake3, Derivation: store.DerivationSortedFold}

	rh1 := store.RowHash{Schema: "public", Table: "t", ChunkID: 0, PKHash: rowhash.Digest{0x02}, RowHash: rowhash.Digest{0xAA}}
	rh2 := store.RowHash{Schema: "public", Table: "t", ChunkID: 0, PKHash: rowhash.Digest{0x01}, RowHash: rowhash.Digest{0xBB}}

	// Insert out of pk_hash order.
	require.NoError(t, st.UpsertRowHash(ctx, rh1))
	require.NoError(t, st.UpsertRowHash(ctx, rh2))

	ch, err := Derive(ctx, st, cfg, 0)
	require.NoError(t, err)

	want, err := rowhash.SumHexConcat(rowhash.Blake3, []string{rh2.RowHash.Hex(), rh1.RowHash.Hex()})
	require.NoError(t, err)
	assert.Equal(t, want, ch.Digest)
	assert.EqualValues(t, 2, ch.RowCount)
}

func TestDerive_SortedFold_EmptyChunkIsHashOfEmptyString(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cfg := store.HashConfig{Schema: "public", Table: "t", Algo: rowhash.Blake3, Derivation: store.DerivationSortedFold}

	ch, err := Derive(ctx, st, cfg, 7)
	require.NoError(t, err)

	want, err := rowhash.EmptyDigest(rowhash.Blake3)
	require.NoError(t, err)
	assert.Equal(t, want, ch.Digest)
}
