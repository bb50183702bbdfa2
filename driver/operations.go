package driver

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pgfingerprint/vkarious/aggregator"
	"github.com/pgfingerprint/vkarious/bootstrap"
	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
	"github.com/pgfingerprint/vkarious/streamfp"
)

// TableRef names a single table by its schema.table pair, the unit every
// operation below that targets one table accepts (§6's "schema.table").
type TableRef struct {
	Schema string
	Table  string
}

// RehashResult reports one chunk RehashDirty touched.
type RehashResult struct {
	Schema  string
	Table   string
	ChunkID int64
	Digest  string
}

// Bootstrap installs hash_config/row_hashes/chunk_state/chunk_hashes (if
// absent), registers and bootstraps every watched table in dbname under
// chunkWidth and algo, and returns the resulting database root as lowercase
// hex (§4.7, §6).
func (c Config) Bootstrap(ctx context.Context, log zerolog.Logger, dbname string, chunkWidth uint32, algo rowhash.Algo) (string, error) {
	db, err := c.Open(dbname)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return bootstrap.Database(ctx, db, log, chunkWidth, algo)
}

// TableDigest computes the full-table streaming fingerprint (§4.9) of a
// single table, independent of its chunked state, returning the digest as
// lowercase hex plus how many rows were streamed.
func (c Config) TableDigest(ctx context.Context, dbname string, ref TableRef, algo rowhash.Algo) (string, int64, error) {
	db, err := c.Open(dbname)
	if err != nil {
		return "", 0, err
	}
	defer db.Close()

	result, err := streamfp.Table(ctx, db, ref.Schema, ref.Table, algo)
	if err != nil {
		return "", 0, err
	}
	return result.DigestHex, result.RowsStreamed, nil
}

// DatabaseRoot folds every table's current TableRoot (§4.8) into one
// database-level digest, reading whatever ChunkHash rows are currently
// persisted — it does not itself rehash dirty chunks first, matching
// §4.8's definition of DatabaseRoot as a pure read over ChunkHash.
func (c Config) DatabaseRoot(ctx context.Context, dbname string) (string, error) {
	db, err := c.Open(dbname)
	if err != nil {
		return "", err
	}
	defer db.Close()

	root, err := aggregator.DatabaseRoot(ctx, store.NewPGStore(db))
	if err != nil {
		return "", err
	}
	return root.Hex(), nil
}

// RehashDirty recomputes every dirty ChunkHash in dbname and clears its
// dirty flag (§4.7), returning what it touched.
func (c Config) RehashDirty(ctx context.Context, dbname string) ([]RehashResult, error) {
	db, err := c.Open(dbname)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	touched, err := bootstrap.RehashDirty(ctx, store.NewPGStore(db))
	if err != nil {
		return nil, err
	}

	out := make([]RehashResult, len(touched))
	for i, ch := range touched {
		out[i] = RehashResult{Schema: ch.Schema, Table: ch.Table, ChunkID: ch.ChunkID, Digest: ch.Digest.Hex()}
	}
	return out, nil
}

