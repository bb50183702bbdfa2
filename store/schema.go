package store

// SchemaName is the dedicated Postgres schema every derived entity lives in
// (§6 Persisted layout).
const SchemaName = "vkarious"

// DDL creates the schema and the four derived tables (§3), each unlogged
// per §5's shared-resource policy ("ChunkState and ChunkHash... SHOULD
// live in an unlogged/recomputable table"). RowHash is unlogged for the
// same reason: every row here is recomputable from a bootstrap scan.
//
// This mirrors the original implementation's DDL
// (_examples/original_source/db_hash.py) translated to stand on its own
// without the legacy `pk` debug column (§9 Open Questions: that column is
// not part of any digest and MAY be omitted).
const DDL = `
create extension if not exists pgcrypto;
create schema if not exists ` + SchemaName + `;

-- bxor/xor_agg let bootstrap's full-table scan fold fasthash64(row_bytes)
-- across a whole chunk in one aggregate query, the same way package
-- combiner folds it one event at a time; Postgres has no built-in XOR
-- aggregate for bigint (only bitwise XOR as the binary "#" operator).
create or replace function ` + SchemaName + `.bxor(a bigint, b bigint) returns bigint
language sql immutable as $$ select a # b $$;

do $$ begin
  perform 1 from pg_proc p join pg_namespace n on n.oid = p.pronamespace
    where n.nspname = '` + SchemaName + `' and p.proname = 'xor_agg';
  if not found then
    create aggregate ` + SchemaName + `.xor_agg(bigint) (sfunc = ` + SchemaName + `.bxor, stype = bigint, initcond = '0');
  end if;
end $$;

create unlogged table if not exists ` + SchemaName + `.hash_config(
  schema_name text not null,
  table_name  text not null,
  chunk_width integer not null,
  hash_algo   text not null,
  derivation  text not null default 'xor',
  primary key (schema_name, table_name)
);

create unlogged table if not exists ` + SchemaName + `.row_hashes(
  schema_name text not null,
  table_name  text not null,
  pk_hash     bytea not null,
  chunk_id    bigint not null,
  row_hash    bytea not null,
  primary key (schema_name, table_name, pk_hash)
);

create index if not exists row_hashes_chunk_idx
  on ` + SchemaName + `.row_hashes(schema_name, table_name, chunk_id);

create unlogged table if not exists ` + SchemaName + `.chunk_state(
  schema_name text not null,
  table_name  text not null,
  chunk_id    bigint not null,
  xor64       bigint not null,
  row_count   integer not null,
  primary key (schema_name, table_name, chunk_id)
);

create unlogged table if not exists ` + SchemaName + `.chunk_hashes(
  schema_name text not null,
  table_name  text not null,
  chunk_id    bigint not null,
  chunk_hash  bytea not null,
  row_count   integer not null,
  dirty       boolean not null default false,
  primary key (schema_name, table_name, chunk_id)
);

create index if not exists chunk_hashes_dirty_idx
  on ` + SchemaName + `.chunk_hashes(schema_name, table_name) where dirty;
`
