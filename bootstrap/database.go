package bootstrap

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pgfingerprint/vkarious/aggregator"
	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
	"github.com/pgfingerprint/vkarious/trigger"
)

// Database performs §4.7 step 1 (enumerate watched tables) and then
// bootstraps each one. Per-table failures are collected and reported
// individually rather than aborting the run (§7 "per-table errors during
// bootstrap are reported per table and do not abort the whole run"); a
// table's error is still returned to the caller, but only after every
// other table has had its chance to finish. The group shares no
// cancellable context, so one failing table does not cancel the others;
// callers have already decided (by reaching this call) that a fingerprint
// cannot be trusted once any table fails.
//
// Tables run concurrently, one *sql.Tx per table; database/sql hands each
// transaction its own pooled connection, giving the "one connection per
// table" parallelism §5's scheduling model allows.
func Database(ctx context.Context, db *sql.DB, log zerolog.Logger, chunkWidth uint32, algo rowhash.Algo) (string, error) {
	if _, err := db.ExecContext(ctx, store.DDL); err != nil {
		return "", errors.Wrap(err, "bootstrap: install schema")
	}

	keys, err := trigger.WatchedTables(ctx, db)
	if err != nil {
		return "", errors.Wrap(err, "bootstrap: enumerate watched tables")
	}

	opts := Options{ChunkWidth: chunkWidth, Algo: algo, Derivation: store.DerivationXOR}

	var g errgroup.Group
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := Table(ctx, db, log, key, opts); err != nil {
				log.Error().Err(err).Str("schema", key.Schema).Str("table", key.Table).Msg("bootstrap of table failed")
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	root, err := aggregator.DatabaseRoot(ctx, store.NewPGStore(db))
	if err != nil {
		return "", errors.Wrap(err, "bootstrap: compute database root")
	}
	return root.Hex(), nil
}
