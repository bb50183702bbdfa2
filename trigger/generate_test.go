package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgfingerprint/vkarious/store"
)

func TestFunctionName_QuotesAndQualifies(t *testing.T) {
	name := FunctionName("public", "orders")
	assert.Equal(t, store.SchemaName+`."tg_fp_public_orders"`, name)
}

func TestFunctionName_TruncatesLongNames(t *testing.T) {
	name := FunctionName("public", "a_table_name_that_is_extremely_long_and_would_overflow_postgres_identifier_limits")
	// the full name is the schema qualifier, a dot, two quotes and at most
	// 63 bytes of bare identifier
	assert.LessOrEqual(t, len(name), len(store.SchemaName)+1+2+63)
}

func TestColumnConcatExpr_EmptyColsIsEmptyLiteral(t *testing.T) {
	assert.Equal(t, "''", columnConcatExpr("NEW", nil))
}

func TestColumnConcatExpr_JoinsWithCoalesceAndSeparator(t *testing.T) {
	got := columnConcatExpr("NEW", []string{"id", "name"})
	assert.Contains(t, got, `coalesce(NEW."id"::text, '∅')`)
	assert.Contains(t, got, `coalesce(NEW."name"::text, '∅')`)
	assert.Contains(t, got, `'␟'`)
}

func TestChunkIDExpr_UsesWidthVariable(t *testing.T) {
	got := chunkIDExpr("pk_concat")
	assert.Contains(t, got, "abs(hashtextextended(pk_concat, 0))")
	assert.Contains(t, got, "greatest(width, 1)")
}
