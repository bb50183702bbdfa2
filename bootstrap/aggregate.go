// Package bootstrap implements the one-time full scan (C8, §4.7) that
// turns an un-watched user table into one maintained incrementally by
// package trigger, plus the batched rehash pass that clears dirty
// ChunkHash rows.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/store"
	"github.com/pgfingerprint/vkarious/trigger"
)

// aggregateChunkState runs the single full-table scan that computes every
// chunk's (xor64, row_count) in one statement (§4.7 step 2), using
// Postgres's hashtextextended and the xor_agg aggregate installed by
// store.DDL so its numbers agree bit-for-bit with what the trigger
// computes per event.
func aggregateChunkState(ctx context.Context, q store.Queryer, key store.TableKey, pkCols, allCols []string, width uint32) error {
	pkConcat := trigger.ColumnConcatExpr("t", pkCols)
	rowConcat := trigger.ColumnConcatExpr("t", allCols)

	stmt := fmt.Sprintf(`
		insert into %[1]s.chunk_state(schema_name, table_name, chunk_id, xor64, row_count)
		select $1, $2,
		       abs(hashtextextended(%[2]s, 0)) / greatest($3::int, 1) as chunk_id,
		       %[1]s.xor_agg(hashtextextended(%[3]s, 0)),
		       count(*)
		from %[4]s t
		group by chunk_id
		on conflict (schema_name, table_name, chunk_id)
		do update set xor64 = excluded.xor64, row_count = excluded.row_count
	`, store.SchemaName, pkConcat, rowConcat, trigger.QualifiedTable(key.Schema, key.Table))

	_, err := q.ExecContext(ctx, stmt, key.Schema, key.Table, width)
	return errors.Wrap(err, "bootstrap: aggregate chunk state")
}

// aggregateRowHashes populates the row_hashes index for a sorted-fold
// table in one statement, using pgcrypto's digest(...,'sha256') so its
// output matches what the steady-state trigger writes per event (package
// trigger, SteadyStateFunctionBody).
func aggregateRowHashes(ctx context.Context, q store.Queryer, key store.TableKey, pkCols, allCols []string, width uint32) error {
	pkConcat := trigger.ColumnConcatExpr("t", pkCols)
	rowConcat := trigger.ColumnConcatExpr("t", allCols)

	stmt := fmt.Sprintf(`
		insert into %[1]s.row_hashes(schema_name, table_name, pk_hash, chunk_id, row_hash)
		select $1, $2,
		       digest(convert_to(%[2]s, 'UTF8'), 'sha256'),
		       abs(hashtextextended(%[2]s, 0)) / greatest($3::int, 1),
		       digest(convert_to(%[3]s, 'UTF8'), 'sha256')
		from %[4]s t
		on conflict (schema_name, table_name, pk_hash)
		do update set chunk_id = excluded.chunk_id, row_hash = excluded.row_hash
	`, store.SchemaName, pkConcat, rowConcat, trigger.QualifiedTable(key.Schema, key.Table))

	_, err := q.ExecContext(ctx, stmt, key.Schema, key.Table, width)
	return errors.Wrap(err, "bootstrap: aggregate row hashes")
}

func lockTableShareMode(ctx context.Context, q store.Queryer, key store.TableKey) error {
	stmt := fmt.Sprintf("lock table %s in share mode", trigger.QualifiedTable(key.Schema, key.Table))
	_, err := q.ExecContext(ctx, stmt)
	return errors.Wrap(err, "bootstrap: lock table")
}
