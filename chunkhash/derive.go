// Package chunkhash derives a chunk's stable ChunkHash (C5) from whichever
// of §4.5's two allowed derivations its table is configured to use.
package chunkhash

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
)

// Derive computes the ChunkHash for (key, chunkID) under cfg's derivation
// and algorithm. A chunk with zero live rows always digests to the empty
// string (§4.5: "The empty-chunk digest is the cryptographic hash of the
// empty byte string"), regardless of which derivation produced that zero
// count.
func Derive(ctx context.Context, st store.Store, cfg store.HashConfig, chunkID int64) (store.ChunkHash, error) {
	key := store.TableKey{Schema: cfg.Schema, Table: cfg.Table}

	switch cfg.Derivation {
	case store.DerivationSortedFold:
		return deriveSortedFold(ctx, st, cfg, key, chunkID)
	default:
		return deriveXOR(ctx, st, cfg, key, chunkID)
	}
}

func deriveXOR(ctx context.Context, st store.Store, cfg store.HashConfig, key store.TableKey, chunkID int64) (store.ChunkHash, error) {
	state, err := st.GetChunkState(ctx, key, chunkID)
	if err != nil {
		return store.ChunkHash{}, errors.Wrap(err, "chunkhash: get chunk state")
	}

	out := store.ChunkHash{Schema: key.Schema, Table: key.Table, ChunkID: chunkID, RowCount: state.RowCount}
	if state.IsEmpty() {
		digest, err := rowhash.EmptyDigest(cfg.Algo)
		if err != nil {
			return store.ChunkHash{}, errors.Wrap(err, "chunkhash: empty digest")
		}
		out.Digest = digest
		return out, nil
	}

	digest, err := rowhash.XORStateDigest(cfg.Algo, state.XOR64)
	if err != nil {
		return store.ChunkHash{}, errors.Wrap(err, "chunkhash: xor derivation")
	}
	out.Digest = digest
	return out, nil
}

func deriveSortedFold(ctx context.Context, st store.Store, cfg store.HashConfig, key store.TableKey, chunkID int64) (store.ChunkHash, error) {
	rows, err := st.ListRowHashesByChunk(ctx, key, chunkID)
	if err != nil {
		return store.ChunkHash{}, errors.Wrap(err, "chunkhash: list row hashes")
	}

	out := store.ChunkHash{Schema: key.Schema, Table: key.Table, ChunkID: chunkID, RowCount: int32(len(rows))}
	if len(rows) == 0 {
		digest, err := rowhash.EmptyDigest(cfg.Algo)
		if err != nil {
			return store.ChunkHash{}, errors.Wrap(err, "chunkhash: empty digest")
		}
		out.Digest = digest
		return out, nil
	}

	hexParts := make([]string, len(rows))
	for i, rh := range rows {
		hexParts[i] = rh.RowHash.Hex()
	}
	digest, err := rowhash.SumHexConcat(cfg.Algo, hexParts)
	if err != nil {
		return store.ChunkHash{}, errors.Wrap(err, "chunkhash: sorted-fold derivation")
	}
	out.Digest = digest
	return out, nil
}
