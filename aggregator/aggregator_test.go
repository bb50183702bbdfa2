package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
)

func TestTableRoot_EmptyTableIsEmptyStringDigest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	root, err := TableRoot(ctx, st, store.TableKey{Schema: "public", Table: "orders"}, rowhash.Blake3)
	require.NoError(t, err)

	want, err := rowhash.EmptyDigest(rowhash.Blake3)
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestTableRoot_OrderedByChunkID(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	key := store.TableKey{Schema: "public", Table: "orders"}

	d1 := rowhash.Digest{0x01}
	d0 := rowhash.Digest{0x00, 0xFF}
	require.NoError(t, st.UpsertChunkHash(ctx, store.ChunkHash{Schema: key.Schema, Table: key.Table, ChunkID: 1, Digest: d1}))
	require.NoError(t, st.UpsertChunkHash(ctx, store.ChunkHash{Schema: key.Schema, Table: key.Table, ChunkID: 0, Digest: d0}))

	root, err := TableRoot(ctx, st, key, rowhash.Blake3)
	require.NoError(t, err)

	want, err := rowhash.SumHexConcat(rowhash.Blake3, []string{d0.Hex(), d1.Hex()})
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestDatabaseRoot_EmptyDatabaseIsEmptyStringDigest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	root, err := DatabaseRoot(ctx, st)
	require.NoError(t, err)

	want, err := rowhash.EmptyDigest(rowhash.Blake3)
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestDatabaseRoot_OrderedBySchemaThenTable(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	require.NoError(t, st.UpsertConfig(ctx, store.HashConfig{Schema: "public", Table: "b", Algo: rowhash.Blake3}))
	require.NoError(t, st.UpsertConfig(ctx, store.HashConfig{Schema: "public", Table: "a", Algo: rowhash.Blake3}))
	require.NoError(t, st.UpsertChunkHash(ctx, store.ChunkHash{Schema: "public", Table: "b", ChunkID: 0, Digest: rowhash.Digest{0x02}}))
	require.NoError(t, st.UpsertChunkHash(ctx, store.ChunkHash{Schema: "public", Table: "a", ChunkID: 0, Digest: rowhash.Digest{0x01}}))

	root, err := DatabaseRoot(ctx, st)
	require.NoError(t, err)

	rootA, err := TableRoot(ctx, st, store.TableKey{Schema: "public", Table: "a"}, rowhash.Blake3)
	require.NoError(t, err)
	rootB, err := TableRoot(ctx, st, store.TableKey{Schema: "public", Table: "b"}, rowhash.Blake3)
	require.NoError(t, err)

	want, err := rowhash.SumHexConcat(rowhash.Blake3, []string{rootA.Hex(), rootB.Hex()})
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestTableRootHex_ReturnsLowercaseHex(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	hex, err := TableRootHex(ctx, st, store.TableKey{Schema: "public", Table: "orders"}, rowhash.Blake3)
	require.NoError(t, err)
	assert.Len(t, hex, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", hex)
}
