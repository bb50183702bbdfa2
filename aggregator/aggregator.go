// Package aggregator computes TableRoot and DatabaseRoot (C9, §4.8) from
// whatever ChunkHash rows a store.Store currently holds.
package aggregator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
)

// TableRoot reads every ChunkHash for key ordered by chunk_id ascending
// and folds their hex-encoded digests into one cryptographic hash under
// algo. An empty table (no ChunkHash rows) roots to the hash of the empty
// string (§4.8).
func TableRoot(ctx context.Context, st store.Store, key store.TableKey, algo rowhash.Algo) (rowhash.Digest, error) {
	chunks, err := st.ListChunkHashesByTable(ctx, key)
	if err != nil {
		return rowhash.Digest{}, errors.Wrapf(err, "aggregator: list chunk hashes for %s.%s", key.Schema, key.Table)
	}
	if len(chunks) == 0 {
		d, err := rowhash.EmptyDigest(algo)
		return d, errors.Wrap(err, "aggregator: empty table root")
	}

	hexParts := make([]string, len(chunks))
	for i, c := range chunks {
		hexParts[i] = c.Digest.Hex()
	}
	d, err := rowhash.SumHexConcat(algo, hexParts)
	return d, errors.Wrapf(err, "aggregator: fold table root for %s.%s", key.Schema, key.Table)
}

// DatabaseRoot computes TableRoot for every (schema, table) present in
// ChunkHash, ordered by (schema, table) ascending, and folds their
// hex-encoded TableRoots into one cryptographic hash. An empty database
// (no tables with any ChunkHash row) roots to the hash of the empty
// string (§4.8). Each table's root is computed with the algorithm its own
// HashConfig names; DatabaseRoot itself always folds with Blake3, since two
// tables configured with different algorithms still need one comparable
// database-level value.
func DatabaseRoot(ctx context.Context, st store.Store) (rowhash.Digest, error) {
	return databaseRootWithAlgo(ctx, st, rowhash.Blake3)
}

// databaseRootWithAlgo is DatabaseRoot parameterized on the fold algorithm,
// kept unexported because every table in a single deployment is expected
// to share one HashConfig.Algo (§9 Open Questions: "pick one cryptographic
// hash per database"); callers needing a different algorithm can still
// reach it through this file during migration between algorithms.
func databaseRootWithAlgo(ctx context.Context, st store.Store, algo rowhash.Algo) (rowhash.Digest, error) {
	keys, err := st.ListChunkHashTables(ctx)
	if err != nil {
		return rowhash.Digest{}, errors.Wrap(err, "aggregator: list tables")
	}
	if len(keys) == 0 {
		d, err := rowhash.EmptyDigest(algo)
		return d, errors.Wrap(err, "aggregator: empty database root")
	}

	hexParts := make([]string, len(keys))
	for i, k := range keys {
		cfg, ok, err := st.GetConfig(ctx, k)
		tableAlgo := algo
		if err != nil {
			return rowhash.Digest{}, errors.Wrapf(err, "aggregator: load config for %s.%s", k.Schema, k.Table)
		}
		if ok && cfg.Algo != "" {
			tableAlgo = cfg.Algo
		}
		root, err := TableRoot(ctx, st, k, tableAlgo)
		if err != nil {
			return rowhash.Digest{}, err
		}
		hexParts[i] = root.Hex()
	}
	d, err := rowhash.SumHexConcat(algo, hexParts)
	return d, errors.Wrap(err, "aggregator: fold database root")
}

// TableRootHex is TableRoot with its result already hex-encoded, the form
// the driver and cmd/pgfingerprint emit (§6 Output formats).
func TableRootHex(ctx context.Context, st store.Store, key store.TableKey, algo rowhash.Algo) (string, error) {
	d, err := TableRoot(ctx, st, key, algo)
	if err != nil {
		return "", err
	}
	return d.Hex(), nil
}
