package trigger

import (
	"fmt"
	"strings"

	"github.com/pgfingerprint/vkarious/store"
)

// upsertChunkStateStmt is shared by every code path that needs to fold a
// signed row64/count delta into chunk_state (§4.6). Because the XOR
// combiner is its own inverse (combiner.State.Delete == Insert with the
// same operand), insert and delete share this one upsert shape: delete
// passes rowCountDelta=-1, insert passes +1, and "xor64 # excluded.xor64"
// folds either direction identically.
func upsertChunkStateStmt(chunkIDExprText, row64Expr string, rowCountDelta int) string {
	return fmt.Sprintf(`
    insert into %s.chunk_state(schema_name, table_name, chunk_id, xor64, row_count)
    values (TG_TABLE_SCHEMA, TG_TABLE_NAME, %s, %s, %d)
    on conflict (schema_name, table_name, chunk_id)
    do update set xor64 = %s.chunk_state.xor64 # excluded.xor64,
                  row_count = %s.chunk_state.row_count + excluded.row_count;`,
		store.SchemaName, chunkIDExprText, row64Expr, rowCountDelta,
		store.SchemaName, store.SchemaName)
}

func markDirtyStmt(chunkIDExprText string) string {
	return fmt.Sprintf(`
    insert into %s.chunk_hashes(schema_name, table_name, chunk_id, chunk_hash, row_count, dirty)
    values (TG_TABLE_SCHEMA, TG_TABLE_NAME, %s, ''::bytea, 0, true)
    on conflict (schema_name, table_name, chunk_id)
    do update set dirty = true;`,
		store.SchemaName, chunkIDExprText)
}

// BootstrapFunctionBody returns the plpgsql body of the fast trigger
// installed *before* bootstrap's full-table aggregation runs. It only
// maintains chunk_state (O(1) per event, no pgcrypto dependency) so that
// concurrent DML committed during the scan window is never lost, matching
// §4.7 step 4's ordering requirement. It is replaced by
// SteadyStateFunctionBody once the aggregation and derivation finish, in
// the same transaction.
func BootstrapFunctionBody(pkCols, allCols []string) string {
	pkNew := columnConcatExpr("NEW", pkCols)
	pkOld := columnConcatExpr("OLD", pkCols)
	rowNew := columnConcatExpr("NEW", allCols)
	rowOld := columnConcatExpr("OLD", allCols)

	newChunk := chunkIDExpr(pkNew)
	oldChunk := chunkIDExpr(pkOld)
	newRow64 := rowHash64Expr(rowNew)
	oldRow64 := rowHash64Expr(rowOld)

	return fmt.Sprintf(`
declare
  width int;
  new_chunk bigint;
  old_chunk bigint;
begin
  select chunk_width into width from %[1]s.hash_config
    where schema_name = TG_TABLE_SCHEMA and table_name = TG_TABLE_NAME;
  if width is null then
    return null;
  end if;

  if TG_OP = 'INSERT' then
    new_chunk := %[2]s;
    %[3]s
    return NEW;
  elsif TG_OP = 'DELETE' then
    old_chunk := %[4]s;
    %[5]s
    return OLD;
  else
    old_chunk := %[4]s;
    new_chunk := %[2]s;
    if old_chunk = new_chunk then
      %[6]s
      %[7]s
    else
      %[5]s
      %[3]s
    end if;
    return NEW;
  end if;
end;
`,
		store.SchemaName,
		newChunk,
		upsertChunkStateStmt("new_chunk", newRow64, 1),
		oldChunk,
		upsertChunkStateStmt("old_chunk", oldRow64, -1),
		upsertChunkStateStmt("new_chunk", oldRow64, -1),
		upsertChunkStateStmt("new_chunk", newRow64, 1),
	)
}

// SteadyStateFunctionBody returns the plpgsql body of the trigger that
// runs once a table is fully bootstrapped. It always maintains chunk_state
// and marks the affected chunk(s) dirty (§4.5's "DML events MAY set
// dirty=true and defer... to a batched rehash pass", which this module
// always takes, since neither derivation's cryptographic step — BLAKE3 for
// the XOR derivation, the sorted-fold concatenation itself — can run
// inside Postgres). When derivation is sorted-fold it additionally
// maintains the row_hashes index using pgcrypto's digest(...,'sha256'),
// which is why a sorted-fold table's HashConfig.Algo must be
// rowhash.Sha256: the per-row digests this trigger writes and the digests
// package chunkhash folds when deriving the chunk's final hash must be the
// same bytes.
func SteadyStateFunctionBody(pkCols, allCols []string, derivation store.Derivation) string {
	pkNew := columnConcatExpr("NEW", pkCols)
	pkOld := columnConcatExpr("OLD", pkCols)
	rowNew := columnConcatExpr("NEW", allCols)
	rowOld := columnConcatExpr("OLD", allCols)

	newChunk := chunkIDExpr(pkNew)
	oldChunk := chunkIDExpr(pkOld)
	newRow64 := rowHash64Expr(rowNew)
	oldRow64 := rowHash64Expr(rowOld)

	pkHashNewExpr := fmt.Sprintf("digest(convert_to(%s, 'UTF8'), 'sha256')", pkNew)
	pkHashOldExpr := fmt.Sprintf("digest(convert_to(%s, 'UTF8'), 'sha256')", pkOld)
	rowDigestNewExpr := fmt.Sprintf("digest(convert_to(%s, 'UTF8'), 'sha256')", rowNew)

	sortedFold := derivation == store.DerivationSortedFold

	// rowHashUpsert writes/overwrites the NEW pk_hash's row_hashes entry.
	// Keyed on pk_hash, so it both creates a fresh row and updates one in
	// place when a row's primary key is unchanged.
	rowHashUpsert := fmt.Sprintf(`
      insert into %[1]s.row_hashes(schema_name, table_name, pk_hash, chunk_id, row_hash)
      values (TG_TABLE_SCHEMA, TG_TABLE_NAME, new_pk_hash, new_chunk, %[2]s)
      on conflict (schema_name, table_name, pk_hash)
      do update set chunk_id = excluded.chunk_id, row_hash = excluded.row_hash;`,
		store.SchemaName, rowDigestNewExpr)
	rowHashDeleteByOld := fmt.Sprintf(`
      delete from %[1]s.row_hashes
        where schema_name = TG_TABLE_SCHEMA and table_name = TG_TABLE_NAME and pk_hash = old_pk_hash;`,
		store.SchemaName)

	var b strings.Builder
	fmt.Fprintf(&b, `
declare
  width int;
  new_chunk bigint;
  old_chunk bigint;`)
	if sortedFold {
		fmt.Fprintf(&b, `
  new_pk_hash bytea;
  old_pk_hash bytea;`)
	}
	fmt.Fprintf(&b, `
begin
  select chunk_width into width from %s.hash_config
    where schema_name = TG_TABLE_SCHEMA and table_name = TG_TABLE_NAME;
  if width is null then
    return null;
  end if;

`, store.SchemaName)

	fmt.Fprintf(&b, "  if TG_OP = 'INSERT' then\n")
	fmt.Fprintf(&b, "    new_chunk := %s;\n", newChunk)
	fmt.Fprintf(&b, "    %s\n", upsertChunkStateStmt(newChunk, newRow64, 1))
	if sortedFold {
		fmt.Fprintf(&b, "    new_pk_hash := %s;\n", pkHashNewExpr)
		fmt.Fprintf(&b, "    %s\n", rowHashUpsert)
	}
	fmt.Fprintf(&b, "    %s\n", markDirtyStmt("new_chunk"))
	fmt.Fprintf(&b, "    return NEW;\n")

	fmt.Fprintf(&b, "  elsif TG_OP = 'DELETE' then\n")
	fmt.Fprintf(&b, "    old_chunk := %s;\n", oldChunk)
	fmt.Fprintf(&b, "    %s\n", upsertChunkStateStmt(oldChunk, oldRow64, -1))
	if sortedFold {
		fmt.Fprintf(&b, "    old_pk_hash := %s;\n", pkHashOldExpr)
		fmt.Fprintf(&b, "    %s\n", rowHashDeleteByOld)
	}
	fmt.Fprintf(&b, "    %s\n", markDirtyStmt("old_chunk"))
	fmt.Fprintf(&b, "    return OLD;\n")

	fmt.Fprintf(&b, "  else\n")
	fmt.Fprintf(&b, "    old_chunk := %s;\n", oldChunk)
	fmt.Fprintf(&b, "    new_chunk := %s;\n", newChunk)
	if sortedFold {
		fmt.Fprintf(&b, "    old_pk_hash := %s;\n", pkHashOldExpr)
		fmt.Fprintf(&b, "    new_pk_hash := %s;\n", pkHashNewExpr)
	}
	fmt.Fprintf(&b, "    if old_chunk = new_chunk then\n")
	fmt.Fprintf(&b, "      %s\n", upsertChunkStateStmt("old_chunk", oldRow64, -1))
	fmt.Fprintf(&b, "      %s\n", upsertChunkStateStmt("new_chunk", newRow64, 1))
	fmt.Fprintf(&b, "      %s\n", markDirtyStmt("new_chunk"))
	fmt.Fprintf(&b, "    else\n")
	fmt.Fprintf(&b, "      %s\n", upsertChunkStateStmt("old_chunk", oldRow64, -1))
	fmt.Fprintf(&b, "      %s\n", upsertChunkStateStmt("new_chunk", newRow64, 1))
	fmt.Fprintf(&b, "      %s\n", markDirtyStmt("old_chunk"))
	fmt.Fprintf(&b, "      %s\n", markDirtyStmt("new_chunk"))
	fmt.Fprintf(&b, "    end if;\n")
	if sortedFold {
		// pk_hash identity drives row_hashes regardless of whether the
		// chunk changed: a PK edit that stays in the same chunk still
		// needs its old pk_hash entry removed if the PK value changed.
		fmt.Fprintf(&b, "    if old_pk_hash <> new_pk_hash then\n")
		fmt.Fprintf(&b, "      %s\n", rowHashDeleteByOld)
		fmt.Fprintf(&b, "    end if;\n")
		fmt.Fprintf(&b, "    %s\n", rowHashUpsert)
	}
	fmt.Fprintf(&b, "    return NEW;\n")
	fmt.Fprintf(&b, "  end if;\n")
	fmt.Fprintf(&b, "end;\n")

	return b.String()
}
