package bootstrap

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/chunkhash"
	"github.com/pgfingerprint/vkarious/store"
)

// RehashDirty walks every dirty ChunkHash, recomputes its digest under its
// table's configured derivation, writes it back with dirty cleared, and
// returns every chunk it touched (§4.7 "Rehash walks all dirty ChunkHash
// rows, recomputes their digest, writes back, and clears the flag. Rehash
// is idempotent."). A chunk whose HashConfig has since been dropped is
// left untouched and excluded from the result, rather than erroring the
// whole pass — its row_hashes/chunk_state rows may already be gone too.
func RehashDirty(ctx context.Context, st store.Store) ([]store.ChunkHash, error) {
	dirty, err := st.ListDirtyChunkHashes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap: list dirty chunk hashes")
	}

	configs := map[store.TableKey]store.HashConfig{}
	out := make([]store.ChunkHash, 0, len(dirty))
	for _, d := range dirty {
		key := store.TableKey{Schema: d.Schema, Table: d.Table}
		cfg, ok := configs[key]
		if !ok {
			var err error
			cfg, ok, err = st.GetConfig(ctx, key)
			if err != nil {
				return nil, errors.Wrapf(err, "bootstrap: load config for %s.%s", key.Schema, key.Table)
			}
			if !ok {
				continue
			}
			configs[key] = cfg
		}

		ch, err := chunkhash.Derive(ctx, st, cfg, d.ChunkID)
		if err != nil {
			return nil, errors.Wrapf(err, "bootstrap: rehash chunk %d of %s.%s", d.ChunkID, key.Schema, key.Table)
		}
		ch.Dirty = false
		if err := st.UpsertChunkHash(ctx, ch); err != nil {
			return nil, errors.Wrapf(err, "bootstrap: write rehashed chunk %d of %s.%s", d.ChunkID, key.Schema, key.Table)
		}
		out = append(out, ch)
	}
	return out, nil
}
