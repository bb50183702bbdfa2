package trigger

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pgfingerprint/vkarious/rowcodec"
	"github.com/pgfingerprint/vkarious/store"
)

// FunctionName returns the per-table trigger function identifier, already
// schema-qualified and quoted. Postgres identifiers are limited to 63
// bytes; truncating here rather than failing keeps bootstrap usable against
// tables with long names, at the cost of a (rare) collision: two tables
// whose names share the first 63 bytes map to the same function, and since
// every generated function has the same signature, the later CREATE OR
// REPLACE silently replaces the earlier one.
func FunctionName(schema, table string) string {
	raw := fmt.Sprintf("tg_fp_%s_%s", schema, table)
	if len(raw) > 63 {
		raw = raw[:63]
	}
	return store.SchemaName + "." + pq.QuoteIdentifier(raw)
}

// QualifiedTable quotes a schema.table reference for use in DDL.
func QualifiedTable(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

// ColumnConcatExpr is the exported form of columnConcatExpr, reused by
// package bootstrap to build the same canonical concatenation for its
// set-based full-table aggregate query (alias there is the scanned
// table's range variable, not NEW/OLD).
func ColumnConcatExpr(alias string, cols []string) string {
	return columnConcatExpr(alias, cols)
}

// columnConcatExpr builds the plpgsql expression computing rowcodec's
// canonical byte string for cols read off the row variable alias (NEW or
// OLD), matching encodeColumns' convention of one FieldSeparator after
// every column including the last.
func columnConcatExpr(alias string, cols []string) string {
	if len(cols) == 0 {
		return "''"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf(
			"coalesce(%s.%s::text, '%s') || '%s'",
			alias, pq.QuoteIdentifier(c), rowcodec.NullSentinel, rowcodec.FieldSeparator,
		)
	}
	return strings.Join(parts, " || ")
}

// chunkIDExpr builds the plpgsql expression assigning a chunk id from a pk
// concatenation expression, matching chunking.ID's "abs, then integer
// divide by max(width,1)" semantics using Postgres's built-in
// hashtextextended and abs(bigint), so the engine-computed chunk id always
// agrees with what the trigger and the SQL-side bootstrap aggregate both
// compute (package rowhash's xxhash-based FastHash64 is a pure-Go
// reference that no deployed code path calls; it never needs
// to agree bit-for-bit with hashtextextended because the two never see the
// same row in a real deployment). width is read at trigger-fire time from
// the local plpgsql variable of that name, not baked in at generation
// time, since a table's chunk_width lives in hash_config and must be
// re-read on every invocation to stay correct if it is ever reconfigured.
func chunkIDExpr(pkConcatExpr string) string {
	return fmt.Sprintf("abs(hashtextextended(%s, 0)) / greatest(width, 1)", pkConcatExpr)
}

func rowHash64Expr(rowConcatExpr string) string {
	return fmt.Sprintf("hashtextextended(%s, 0)", rowConcatExpr)
}
