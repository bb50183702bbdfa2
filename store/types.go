// Package store persists the derived entities of §3: HashConfig, RowHash,
// ChunkState and ChunkHash. It defines the Store interface the rest of the
// core programs against, a Postgres-backed implementation built on
// database/sql + lib/pq, and an in-memory conformance implementation used
// by every other package's unit tests.
package store

import (
	"context"

	"github.com/pgfingerprint/vkarious/combiner"
	"github.com/pgfingerprint/vkarious/rowhash"
)

// TableKey identifies a watched table.
type TableKey struct {
	Schema string
	Table  string
}

// Derivation names which of §4.5's two allowed ChunkHash derivations a
// table uses.
type Derivation string

const (
	// DerivationXOR computes ChunkHash from ChunkState's XOR
	// accumulator (§4.5 derivation 1): O(1) per DML event.
	DerivationXOR Derivation = "xor"
	// DerivationSortedFold computes ChunkHash by folding sorted RowHash
	// entries (§4.5 derivation 2): O(chunk cardinality) per event, a
	// stronger cryptographic binding.
	DerivationSortedFold Derivation = "sorted-fold"
)

// HashConfig is §3's HashConfig entity.
type HashConfig struct {
	Schema     string
	Table      string
	ChunkWidth uint32
	Algo       rowhash.Algo
	Derivation Derivation
}

// RowHash is §3's RowHash entity.
type RowHash struct {
	Schema  string
	Table   string
	PKHash  rowhash.Digest
	ChunkID int64
	RowHash rowhash.Digest
}

// ChunkHash is §3's ChunkHash entity.
type ChunkHash struct {
	Schema   string
	Table    string
	ChunkID  int64
	Digest   rowhash.Digest
	RowCount int32
	Dirty    bool
}

// ConfigStore persists HashConfig.
type ConfigStore interface {
	// UpsertConfig creates cfg if absent. Per §3, HashConfig is
	// immutable once created unless the caller explicitly reconfigures
	// (dropping derived state first); UpsertConfig therefore never
	// overwrites an existing row.
	UpsertConfig(ctx context.Context, cfg HashConfig) error
	GetConfig(ctx context.Context, key TableKey) (HashConfig, bool, error)
	ListConfigs(ctx context.Context) ([]HashConfig, error)
	// DropConfig removes cfg and, per §3's lifecycle rule, all derived
	// rows for the table (RowHash, ChunkState, ChunkHash).
	DropConfig(ctx context.Context, key TableKey) error
}

// RowHashStore persists the per-row RowHash index (C6), used by the
// sorted-fold ChunkHash derivation (§4.5 derivation 2).
type RowHashStore interface {
	UpsertRowHash(ctx context.Context, rh RowHash) error
	DeleteRowHash(ctx context.Context, key TableKey, pkHash rowhash.Digest) error
	// ListRowHashesByChunk returns every RowHash for (schema, table,
	// chunkID) ordered by pk_hash ascending, as required by the
	// sorted-fold derivation.
	ListRowHashesByChunk(ctx context.Context, key TableKey, chunkID int64) ([]RowHash, error)
	// DropRowHashTable removes every RowHash for key.
	DropRowHashTable(ctx context.Context, key TableKey) error
}

// ChunkStateStore persists ChunkState (C4): the XOR-derivation's running
// state per chunk.
type ChunkStateStore interface {
	// GetChunkState returns the current state of a chunk, or the zero
	// State if no row exists yet (§3: "Empty chunks either have
	// row_count=0 or the row does not exist").
	GetChunkState(ctx context.Context, key TableKey, chunkID int64) (combiner.State, error)
	// SetChunkState writes the chunk's new state, replacing whatever
	// was there. Postgres-backed implementations perform this under
	// the chunk's row lock so concurrent DML on the same chunk
	// serializes (§5b).
	SetChunkState(ctx context.Context, key TableKey, chunkID int64, s combiner.State) error
	// ListChunkStateIDs returns every chunk id with a ChunkState row
	// for key.
	ListChunkStateIDs(ctx context.Context, key TableKey) ([]int64, error)
	DropChunkStateTable(ctx context.Context, key TableKey) error
}

// ChunkHashStore persists ChunkHash (C5): the stable digest exposed to
// aggregation.
type ChunkHashStore interface {
	UpsertChunkHash(ctx context.Context, ch ChunkHash) error
	GetChunkHash(ctx context.Context, key TableKey, chunkID int64) (ChunkHash, bool, error)
	// ListChunkHashesByTable returns every ChunkHash for key ordered by
	// chunk_id ascending (§4.8's TableRoot ordering requirement).
	ListChunkHashesByTable(ctx context.Context, key TableKey) ([]ChunkHash, error)
	// ListChunkHashTables returns every (schema, table) with at least
	// one ChunkHash row, ordered by (schema, table) ascending (§4.8's
	// DatabaseRoot ordering requirement).
	ListChunkHashTables(ctx context.Context) ([]TableKey, error)
	// MarkChunkDirty flags chunkID as needing re-derivation (§4.5,
	// §4.6).
	MarkChunkDirty(ctx context.Context, key TableKey, chunkID int64) error
	// ListDirtyChunkHashes returns every dirty ChunkHash, across all
	// tables, for rehash_dirty (§6).
	ListDirtyChunkHashes(ctx context.Context) ([]ChunkHash, error)
	DropChunkHashTable(ctx context.Context, key TableKey) error
}

// Store aggregates the four persisted stores. It has no transaction
// method: PGStore runs inside a transaction when it wraps a *sql.Tx.
// PGStore and MemoryStore both satisfy it; MemoryStore is sufficient for
// every combiner/aggregator/bootstrap unit test.
type Store interface {
	ConfigStore
	RowHashStore
	ChunkStateStore
	ChunkHashStore
}
