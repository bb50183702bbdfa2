// Package rowcodec serializes a watched row and its primary-key projection
// into the canonical byte strings that the rest of the fingerprinting core
// hashes. The output must be byte-identical for two rows that are logically
// equal under Postgres's type system, and must change whenever any column's
// canonical text form changes.
package rowcodec

import "strings"

// NullSentinel substitutes for SQL NULL in both pk_bytes and row_bytes. It is
// chosen, per spec, to be distinguishable from any value a standard text
// export could produce for a non-null column.
const NullSentinel = "∅" // ∅

// FieldSeparator joins successive column values within pk_bytes/row_bytes.
// The unit separator is not a valid character in any Postgres text export,
// so it cannot collide with column content.
const FieldSeparator = "␟" // ␟

// Column is one column's canonical text value for a single row. Value.Valid
// is false for SQL NULL; Value.Text must already be in Postgres's standard
// text export form (e.g. what COPY ... WITH (FORMAT text) would emit) —
// this package does not itself format driver-native values, it only joins
// already-formatted text.
type Column struct {
	Name  string
	Text  string
	Valid bool
}

// Row is a single row's columns, in declared (attribute-number) order.
type Row struct {
	// PKColumns holds the primary-key projection, in the order the
	// primary-key constraint declares them (§4.1). Empty for a
	// primary-key-less table; callers must have already decided to skip
	// such a table (§4.7, §8 boundary behavior) before calling PKBytes.
	PKColumns []Column

	// AllColumns holds every non-dropped column, in attribute-number
	// order (spec.md §9's tie-break rule).
	AllColumns []Column
}

// encodeColumns joins cols' canonical text (or NullSentinel for NULL),
// separated by FieldSeparator, matching the original's "trailing separator
// per column" convention: every column, including the last, is followed by
// one separator. This keeps encodeColumns a pure streaming concatenation with no
// special-casing of the final column, and matches the plpgsql reference
// (vkarious.compute_chunk_id's `k := k || ... || '␟'`).
func encodeColumns(cols []Column) []byte {
	var b strings.Builder
	for _, c := range cols {
		if c.Valid {
			b.WriteString(c.Text)
		} else {
			b.WriteString(NullSentinel)
		}
		b.WriteString(FieldSeparator)
	}
	return []byte(b.String())
}

// PKBytes returns pk_bytes for r (§4.1).
func (r Row) PKBytes() []byte {
	return encodeColumns(r.PKColumns)
}

// RowBytes returns row_bytes for r (§4.1).
func (r Row) RowBytes() []byte {
	return encodeColumns(r.AllColumns)
}
