package bootstrap

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pgfingerprint/vkarious/chunkhash"
	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
	"github.com/pgfingerprint/vkarious/trigger"
)

// DerivationFor picks the ChunkHash derivation a newly bootstrapped table
// uses. Every table defaults to the XOR derivation (§4.5 derivation 1):
// O(1) per DML event and no pgcrypto dependency. Sorted-fold is opt-in
// (see Options) since it costs an extra row_hashes write on every event.
func DerivationFor(sortedFold bool) store.Derivation {
	if sortedFold {
		return store.DerivationSortedFold
	}
	return store.DerivationXOR
}

// Options configures a single table's bootstrap.
type Options struct {
	ChunkWidth uint32
	Algo       rowhash.Algo
	Derivation store.Derivation
}

// Table performs §4.7's four steps for one watched table, inside its own
// transaction: install the fast bootstrap trigger, run the full-table
// aggregate, derive each chunk's ChunkHash, then swap to the steady-state
// trigger — all before commit, so no window exists where DML could be
// lost (§4.7 step 4, §5b).
//
// Tables without a primary key are skipped (§4.9, §8 boundary behavior):
// Table returns nil without installing anything.
func Table(ctx context.Context, db *sql.DB, log zerolog.Logger, key store.TableKey, opts Options) error {
	pkCols, allCols, err := trigger.Columns(ctx, db, key.Schema, key.Table)
	if err != nil {
		return errors.Wrapf(err, "bootstrap: introspect %s.%s", key.Schema, key.Table)
	}
	if len(pkCols) == 0 {
		log.Info().Str("schema", key.Schema).Str("table", key.Table).Msg("skipping table without primary key")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "bootstrap: begin tx for %s.%s", key.Schema, key.Table)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once Commit succeeds

	st := store.NewPGStore(tx)
	cfg := store.HashConfig{
		Schema:     key.Schema,
		Table:      key.Table,
		ChunkWidth: opts.ChunkWidth,
		Algo:       opts.Algo,
		Derivation: opts.Derivation,
	}
	if err := st.UpsertConfig(ctx, cfg); err != nil {
		return errors.Wrapf(err, "bootstrap: register %s.%s", key.Schema, key.Table)
	}
	// UpsertConfig never overwrites; re-read so a table bootstrapped
	// twice keeps using its originally configured width/algo/derivation.
	existing, ok, err := st.GetConfig(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "bootstrap: reload config for %s.%s", key.Schema, key.Table)
	}
	if ok {
		cfg = existing
	}

	if err := lockTableShareMode(ctx, tx, key); err != nil {
		return err
	}

	if err := trigger.InstallBootstrap(ctx, tx, key.Schema, key.Table, pkCols, allCols); err != nil {
		return errors.Wrapf(err, "bootstrap: install bootstrap trigger on %s.%s", key.Schema, key.Table)
	}

	if err := aggregateChunkState(ctx, tx, key, pkCols, allCols, cfg.ChunkWidth); err != nil {
		return err
	}
	if cfg.Derivation == store.DerivationSortedFold {
		if err := aggregateRowHashes(ctx, tx, key, pkCols, allCols, cfg.ChunkWidth); err != nil {
			return err
		}
	}

	chunkIDs, err := st.ListChunkStateIDs(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "bootstrap: list chunks for %s.%s", key.Schema, key.Table)
	}
	for _, chunkID := range chunkIDs {
		ch, err := chunkhash.Derive(ctx, st, cfg, chunkID)
		if err != nil {
			return errors.Wrapf(err, "bootstrap: derive chunk %d of %s.%s", chunkID, key.Schema, key.Table)
		}
		ch.Dirty = false
		if err := st.UpsertChunkHash(ctx, ch); err != nil {
			return errors.Wrapf(err, "bootstrap: write chunk hash %d of %s.%s", chunkID, key.Schema, key.Table)
		}
	}

	if err := trigger.InstallSteadyState(ctx, tx, key.Schema, key.Table, pkCols, allCols, cfg.Derivation); err != nil {
		return errors.Wrapf(err, "bootstrap: install steady-state trigger on %s.%s", key.Schema, key.Table)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "bootstrap: commit %s.%s", key.Schema, key.Table)
	}
	log.Info().Str("schema", key.Schema).Str("table", key.Table).Int("chunks", len(chunkIDs)).Msg("bootstrapped table")
	return nil
}
