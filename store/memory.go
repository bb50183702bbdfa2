package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pgfingerprint/vkarious/combiner"
	"github.com/pgfingerprint/vkarious/rowhash"
)

// MemoryStore is a full conformance implementation of Store backed by
// plain Go maps under a single mutex. It is not a mock: every invariant a
// Postgres-backed Store must uphold (ordering, dirty tracking, cascading
// drop) is implemented for real, which is what lets the pure-Go test suite
// exercise the §8 invariants without a database.
type MemoryStore struct {
	mu sync.Mutex

	configs map[TableKey]HashConfig
	rows    map[TableKey]map[rowhash.Digest]RowHash
	states  map[TableKey]map[int64]combiner.State
	hashes  map[TableKey]map[int64]ChunkHash
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[TableKey]HashConfig),
		rows:    make(map[TableKey]map[rowhash.Digest]RowHash),
		states:  make(map[TableKey]map[int64]combiner.State),
		hashes:  make(map[TableKey]map[int64]ChunkHash),
	}
}

func (m *MemoryStore) UpsertConfig(_ context.Context, cfg HashConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := TableKey{Schema: cfg.Schema, Table: cfg.Table}
	if _, ok := m.configs[key]; ok {
		return nil
	}
	m.configs[key] = cfg
	return nil
}

func (m *MemoryStore) GetConfig(_ context.Context, key TableKey) (HashConfig, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[key]
	return cfg, ok, nil
}

func (m *MemoryStore) ListConfigs(_ context.Context) ([]HashConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HashConfig, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		return out[i].Table < out[j].Table
	})
	return out, nil
}

func (m *MemoryStore) DropConfig(_ context.Context, key TableKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, key)
	delete(m.rows, key)
	delete(m.states, key)
	delete(m.hashes, key)
	return nil
}

func (m *MemoryStore) UpsertRowHash(_ context.Context, rh RowHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := TableKey{Schema: rh.Schema, Table: rh.Table}
	byPK, ok := m.rows[key]
	if !ok {
		byPK = make(map[rowhash.Digest]RowHash)
		m.rows[key] = byPK
	}
	byPK[rh.PKHash] = rh
	return nil
}

func (m *MemoryStore) DeleteRowHash(_ context.Context, key TableKey, pkHash rowhash.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byPK, ok := m.rows[key]; ok {
		delete(byPK, pkHash)
	}
	return nil
}

func (m *MemoryStore) ListRowHashesByChunk(_ context.Context, key TableKey, chunkID int64) ([]RowHash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RowHash
	for _, rh := range m.rows[key] {
		if rh.ChunkID == chunkID {
			out = append(out, rh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].PKHash[:]) < string(out[j].PKHash[:])
	})
	return out, nil
}

func (m *MemoryStore) DropRowHashTable(_ context.Context, key TableKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func (m *MemoryStore) GetChunkState(_ context.Context, key TableKey, chunkID int64) (combiner.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[key][chunkID], nil
}

func (m *MemoryStore) SetChunkState(_ context.Context, key TableKey, chunkID int64, s combiner.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byChunk, ok := m.states[key]
	if !ok {
		byChunk = make(map[int64]combiner.State)
		m.states[key] = byChunk
	}
	byChunk[chunkID] = s
	return nil
}

func (m *MemoryStore) ListChunkStateIDs(_ context.Context, key TableKey) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.states[key]))
	for id := range m.states[key] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemoryStore) DropChunkStateTable(_ context.Context, key TableKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *MemoryStore) UpsertChunkHash(_ context.Context, ch ChunkHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := TableKey{Schema: ch.Schema, Table: ch.Table}
	byChunk, ok := m.hashes[key]
	if !ok {
		byChunk = make(map[int64]ChunkHash)
		m.hashes[key] = byChunk
	}
	byChunk[ch.ChunkID] = ch
	return nil
}

func (m *MemoryStore) GetChunkHash(_ context.Context, key TableKey, chunkID int64) (ChunkHash, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.hashes[key][chunkID]
	return ch, ok, nil
}

func (m *MemoryStore) ListChunkHashesByTable(_ context.Context, key TableKey) ([]ChunkHash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChunkHash, 0, len(m.hashes[key]))
	for _, ch := range m.hashes[key] {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func (m *MemoryStore) ListChunkHashTables(_ context.Context) ([]TableKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TableKey, 0, len(m.hashes))
	for k, byChunk := range m.hashes {
		if len(byChunk) == 0 {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		return out[i].Table < out[j].Table
	})
	return out, nil
}

func (m *MemoryStore) MarkChunkDirty(_ context.Context, key TableKey, chunkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byChunk, ok := m.hashes[key]
	if !ok {
		byChunk = make(map[int64]ChunkHash)
		m.hashes[key] = byChunk
	}
	ch := byChunk[chunkID]
	ch.Schema, ch.Table, ch.ChunkID = key.Schema, key.Table, chunkID
	ch.Dirty = true
	byChunk[chunkID] = ch
	return nil
}

func (m *MemoryStore) ListDirtyChunkHashes(_ context.Context) ([]ChunkHash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ChunkHash
	for _, byChunk := range m.hashes {
		for _, ch := range byChunk {
			if ch.Dirty {
				out = append(out, ch)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out, nil
}

func (m *MemoryStore) DropChunkHashTable(_ context.Context, key TableKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, key)
	return nil
}
