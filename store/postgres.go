package store

import (
	"context"
	"database/sql"

	// registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/combiner"
	"github.com/pgfingerprint/vkarious/rowhash"
)

// PGStore is the Postgres-backed Store (C4/C5/C6 persistence), built on
// database/sql with lib/pq as the driver. Every method issues a single
// statement; callers that need several statements to execute atomically
// (bootstrap, the trigger bridge) drive *sql.Tx directly — see package
// bootstrap and package trigger.
type PGStore struct {
	db Queryer
}

// Queryer is the subset of *sql.DB / *sql.Tx that PGStore needs, so the
// same methods work whether called against a plain connection or inside a
// transaction (bootstrap's per-table transaction, §4.7 step 4).
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewPGStore wraps q (a *sql.DB or *sql.Tx) as a Store.
func NewPGStore(q Queryer) *PGStore {
	return &PGStore{db: q}
}

var _ Store = (*PGStore)(nil)

// InstallSchema runs the DDL (§6 Persisted layout). It is idempotent.
func (p *PGStore) InstallSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, DDL)
	return errors.Wrap(err, "store: install schema")
}

func (p *PGStore) UpsertConfig(ctx context.Context, cfg HashConfig) error {
	derivation := cfg.Derivation
	if derivation == "" {
		derivation = DerivationXOR
	}
	_, err := p.db.ExecContext(ctx, `
		insert into `+SchemaName+`.hash_config(schema_name, table_name, chunk_width, hash_algo, derivation)
		values ($1, $2, $3, $4, $5)
		on conflict (schema_name, table_name) do nothing
	`, cfg.Schema, cfg.Table, cfg.ChunkWidth, string(cfg.Algo), string(derivation))
	return errors.Wrap(err, "store: upsert config")
}

func (p *PGStore) GetConfig(ctx context.Context, key TableKey) (HashConfig, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		select chunk_width, hash_algo, derivation from `+SchemaName+`.hash_config
		where schema_name = $1 and table_name = $2
	`, key.Schema, key.Table)
	var cfg HashConfig
	cfg.Schema, cfg.Table = key.Schema, key.Table
	var algo, derivation string
	if err := row.Scan(&cfg.ChunkWidth, &algo, &derivation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HashConfig{}, false, nil
		}
		return HashConfig{}, false, errors.Wrap(err, "store: get config")
	}
	cfg.Algo = rowhash.Algo(algo)
	cfg.Derivation = Derivation(derivation)
	return cfg, true, nil
}

func (p *PGStore) ListConfigs(ctx context.Context) ([]HashConfig, error) {
	rows, err := p.db.QueryContext(ctx, `
		select schema_name, table_name, chunk_width, hash_algo, derivation
		from `+SchemaName+`.hash_config
		order by schema_name, table_name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "store: list configs")
	}
	defer rows.Close()

	var out []HashConfig
	for rows.Next() {
		var cfg HashConfig
		var algo, derivation string
		if err := rows.Scan(&cfg.Schema, &cfg.Table, &cfg.ChunkWidth, &algo, &derivation); err != nil {
			return nil, errors.Wrap(err, "store: scan config")
		}
		cfg.Algo = rowhash.Algo(algo)
		cfg.Derivation = Derivation(derivation)
		out = append(out, cfg)
	}
	return out, errors.Wrap(rows.Err(), "store: list configs")
}

func (p *PGStore) DropConfig(ctx context.Context, key TableKey) error {
	for _, stmt := range []string{
		`delete from ` + SchemaName + `.row_hashes where schema_name = $1 and table_name = $2`,
		`delete from ` + SchemaName + `.chunk_state where schema_name = $1 and table_name = $2`,
		`delete from ` + SchemaName + `.chunk_hashes where schema_name = $1 and table_name = $2`,
		`delete from ` + SchemaName + `.hash_config where schema_name = $1 and table_name = $2`,
	} {
		if _, err := p.db.ExecContext(ctx, stmt, key.Schema, key.Table); err != nil {
			return errors.Wrap(err, "store: drop config")
		}
	}
	return nil
}

func (p *PGStore) UpsertRowHash(ctx context.Context, rh RowHash) error {
	_, err := p.db.ExecContext(ctx, `
		insert into `+SchemaName+`.row_hashes(schema_name, table_name, pk_hash, chunk_id, row_hash)
		values ($1, $2, $3, $4, $5)
		on conflict (schema_name, table_name, pk_hash)
		do update set chunk_id = excluded.chunk_id, row_hash = excluded.row_hash
	`, rh.Schema, rh.Table, rh.PKHash[:], rh.ChunkID, rh.RowHash[:])
	return errors.Wrap(err, "store: upsert row hash")
}

func (p *PGStore) DeleteRowHash(ctx context.Context, key TableKey, pkHash rowhash.Digest) error {
	_, err := p.db.ExecContext(ctx, `
		delete from `+SchemaName+`.row_hashes
		where schema_name = $1 and table_name = $2 and pk_hash = $3
	`, key.Schema, key.Table, pkHash[:])
	return errors.Wrap(err, "store: delete row hash")
}

func (p *PGStore) ListRowHashesByChunk(ctx context.Context, key TableKey, chunkID int64) ([]RowHash, error) {
	rows, err := p.db.QueryContext(ctx, `
		select pk_hash, row_hash from `+SchemaName+`.row_hashes
		where schema_name = $1 and table_name = $2 and chunk_id = $3
		order by pk_hash
	`, key.Schema, key.Table, chunkID)
	if err != nil {
		return nil, errors.Wrap(err, "store: list row hashes by chunk")
	}
	defer rows.Close()

	var out []RowHash
	for rows.Next() {
		var pkHash, rowHash []byte
		if err := rows.Scan(&pkHash, &rowHash); err != nil {
			return nil, errors.Wrap(err, "store: scan row hash")
		}
		rh := RowHash{Schema: key.Schema, Table: key.Table, ChunkID: chunkID}
		copy(rh.PKHash[:], pkHash)
		copy(rh.RowHash[:], rowHash)
		out = append(out, rh)
	}
	return out, errors.Wrap(rows.Err(), "store: list row hashes by chunk")
}

func (p *PGStore) DropRowHashTable(ctx context.Context, key TableKey) error {
	_, err := p.db.ExecContext(ctx, `
		delete from `+SchemaName+`.row_hashes where schema_name = $1 and table_name = $2
	`, key.Schema, key.Table)
	return errors.Wrap(err, "store: drop row hash table")
}

func (p *PGStore) GetChunkState(ctx context.Context, key TableKey, chunkID int64) (combiner.State, error) {
	row := p.db.QueryRowContext(ctx, `
		select xor64, row_count from `+SchemaName+`.chunk_state
		where schema_name = $1 and table_name = $2 and chunk_id = $3
	`, key.Schema, key.Table, chunkID)
	var xor64 int64
	var rowCount int32
	if err := row.Scan(&xor64, &rowCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return combiner.State{}, nil
		}
		return combiner.State{}, errors.Wrap(err, "store: get chunk state")
	}
	return combiner.State{XOR64: uint64(xor64), RowCount: rowCount}, nil
}

func (p *PGStore) SetChunkState(ctx context.Context, key TableKey, chunkID int64, s combiner.State) error {
	_, err := p.db.ExecContext(ctx, `
		insert into `+SchemaName+`.chunk_state(schema_name, table_name, chunk_id, xor64, row_count)
		values ($1, $2, $3, $4, $5)
		on conflict (schema_name, table_name, chunk_id)
		do update set xor64 = excluded.xor64, row_count = excluded.row_count
	`, key.Schema, key.Table, chunkID, int64(s.XOR64), s.RowCount)
	return errors.Wrap(err, "store: set chunk state")
}

func (p *PGStore) ListChunkStateIDs(ctx context.Context, key TableKey) ([]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		select chunk_id from `+SchemaName+`.chunk_state
		where schema_name = $1 and table_name = $2
		order by chunk_id
	`, key.Schema, key.Table)
	if err != nil {
		return nil, errors.Wrap(err, "store: list chunk state ids")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "store: scan chunk state id")
		}
		out = append(out, id)
	}
	return out, errors.Wrap(rows.Err(), "store: list chunk state ids")
}

func (p *PGStore) DropChunkStateTable(ctx context.Context, key TableKey) error {
	_, err := p.db.ExecContext(ctx, `
		delete from `+SchemaName+`.chunk_state where schema_name = $1 and table_name = $2
	`, key.Schema, key.Table)
	return errors.Wrap(err, "store: drop chunk state table")
}

func (p *PGStore) UpsertChunkHash(ctx context.Context, ch ChunkHash) error {
	_, err := p.db.ExecContext(ctx, `
		insert into `+SchemaName+`.chunk_hashes(schema_name, table_name, chunk_id, chunk_hash, row_count, dirty)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (schema_name, table_name, chunk_id)
		do update set chunk_hash = excluded.chunk_hash, row_count = excluded.row_count, dirty = excluded.dirty
	`, ch.Schema, ch.Table, ch.ChunkID, ch.Digest[:], ch.RowCount, ch.Dirty)
	return errors.Wrap(err, "store: upsert chunk hash")
}

func (p *PGStore) GetChunkHash(ctx context.Context, key TableKey, chunkID int64) (ChunkHash, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		select chunk_hash, row_count, dirty from `+SchemaName+`.chunk_hashes
		where schema_name = $1 and table_name = $2 and chunk_id = $3
	`, key.Schema, key.Table, chunkID)
	ch := ChunkHash{Schema: key.Schema, Table: key.Table, ChunkID: chunkID}
	var digest []byte
	if err := row.Scan(&digest, &ch.RowCount, &ch.Dirty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChunkHash{}, false, nil
		}
		return ChunkHash{}, false, errors.Wrap(err, "store: get chunk hash")
	}
	copy(ch.Digest[:], digest)
	return ch, true, nil
}

func (p *PGStore) ListChunkHashesByTable(ctx context.Context, key TableKey) ([]ChunkHash, error) {
	rows, err := p.db.QueryContext(ctx, `
		select chunk_id, chunk_hash, row_count, dirty from `+SchemaName+`.chunk_hashes
		where schema_name = $1 and table_name = $2
		order by chunk_id
	`, key.Schema, key.Table)
	if err != nil {
		return nil, errors.Wrap(err, "store: list chunk hashes by table")
	}
	defer rows.Close()

	var out []ChunkHash
	for rows.Next() {
		ch := ChunkHash{Schema: key.Schema, Table: key.Table}
		var digest []byte
		if err := rows.Scan(&ch.ChunkID, &digest, &ch.RowCount, &ch.Dirty); err != nil {
			return nil, errors.Wrap(err, "store: scan chunk hash")
		}
		copy(ch.Digest[:], digest)
		out = append(out, ch)
	}
	return out, errors.Wrap(rows.Err(), "store: list chunk hashes by table")
}

func (p *PGStore) ListChunkHashTables(ctx context.Context) ([]TableKey, error) {
	rows, err := p.db.QueryContext(ctx, `
		select distinct schema_name, table_name from `+SchemaName+`.chunk_hashes
		order by schema_name, table_name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "store: list chunk hash tables")
	}
	defer rows.Close()

	var out []TableKey
	for rows.Next() {
		var k TableKey
		if err := rows.Scan(&k.Schema, &k.Table); err != nil {
			return nil, errors.Wrap(err, "store: scan chunk hash table")
		}
		out = append(out, k)
	}
	return out, errors.Wrap(rows.Err(), "store: list chunk hash tables")
}

func (p *PGStore) MarkChunkDirty(ctx context.Context, key TableKey, chunkID int64) error {
	_, err := p.db.ExecContext(ctx, `
		insert into `+SchemaName+`.chunk_hashes(schema_name, table_name, chunk_id, chunk_hash, row_count, dirty)
		values ($1, $2, $3, ''::bytea, 0, true)
		on conflict (schema_name, table_name, chunk_id)
		do update set dirty = true
	`, key.Schema, key.Table, chunkID)
	return errors.Wrap(err, "store: mark chunk dirty")
}

func (p *PGStore) ListDirtyChunkHashes(ctx context.Context) ([]ChunkHash, error) {
	rows, err := p.db.QueryContext(ctx, `
		select schema_name, table_name, chunk_id, chunk_hash, row_count, dirty
		from `+SchemaName+`.chunk_hashes
		where dirty
		order by schema_name, table_name, chunk_id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "store: list dirty chunk hashes")
	}
	defer rows.Close()

	var out []ChunkHash
	for rows.Next() {
		var ch ChunkHash
		var digest []byte
		if err := rows.Scan(&ch.Schema, &ch.Table, &ch.ChunkID, &digest, &ch.RowCount, &ch.Dirty); err != nil {
			return nil, errors.Wrap(err, "store: scan dirty chunk hash")
		}
		copy(ch.Digest[:], digest)
		out = append(out, ch)
	}
	return out, errors.Wrap(rows.Err(), "store: list dirty chunk hashes")
}

func (p *PGStore) DropChunkHashTable(ctx context.Context, key TableKey) error {
	_, err := p.db.ExecContext(ctx, `
		delete from `+SchemaName+`.chunk_hashes where schema_name = $1 and table_name = $2
	`, key.Schema, key.Table)
	return errors.Wrap(err, "store: drop chunk hash table")
}
