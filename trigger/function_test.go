package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgfingerprint/vkarious/store"
)

func TestBootstrapFunctionBody_NoOpWithoutConfig(t *testing.T) {
	body := BootstrapFunctionBody([]string{"id"}, []string{"id", "name"})
	assert.Contains(t, body, "if width is null then")
	assert.Contains(t, body, "return null;")
}

func TestBootstrapFunctionBody_UpsertsChunkStateOnInsertAndDelete(t *testing.T) {
	body := BootstrapFunctionBody([]string{"id"}, []string{"id", "name"})
	assert.Contains(t, body, "TG_OP = 'INSERT'")
	assert.Contains(t, body, "TG_OP = 'DELETE'")
	assert.Contains(t, body, "insert into vkarious.chunk_state")
	assert.Contains(t, body, "xor64 = vkarious.chunk_state.xor64 # excluded.xor64")
	assert.NotContains(t, body, "row_hashes", "the bootstrap trigger must never touch row_hashes")
}

func TestSteadyStateFunctionBody_XORDoesNotTouchRowHashes(t *testing.T) {
	body := SteadyStateFunctionBody([]string{"id"}, []string{"id", "name"}, store.DerivationXOR)
	assert.NotContains(t, body, "row_hashes")
	assert.Contains(t, body, "dirty = true")
}

func TestSteadyStateFunctionBody_SortedFoldMaintainsRowHashes(t *testing.T) {
	body := SteadyStateFunctionBody([]string{"id"}, []string{"id", "name"}, store.DerivationSortedFold)
	assert.Contains(t, body, "insert into vkarious.row_hashes")
	assert.Contains(t, body, "delete from vkarious.row_hashes")
	assert.Contains(t, body, "digest(convert_to(")
	assert.Contains(t, body, "'sha256'")
}

func TestSteadyStateFunctionBody_UpdateDeletesStaleRowHashOnPKChange(t *testing.T) {
	body := SteadyStateFunctionBody([]string{"id"}, []string{"id", "name"}, store.DerivationSortedFold)
	assert.Contains(t, body, "if old_pk_hash <> new_pk_hash then")
}

func TestUpsertChunkStateStmt_SymmetricForInsertAndDelete(t *testing.T) {
	insert := upsertChunkStateStmt("new_chunk", "row64", 1)
	del := upsertChunkStateStmt("new_chunk", "row64", -1)
	assert.Contains(t, insert, "values (TG_TABLE_SCHEMA, TG_TABLE_NAME, new_chunk, row64, 1)")
	assert.Contains(t, del, "values (TG_TABLE_SCHEMA, TG_TABLE_NAME, new_chunk, row64, -1)")
}
