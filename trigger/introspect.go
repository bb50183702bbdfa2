package trigger

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/store"
)

// Columns introspects a user table's primary-key columns (in key-ordinal
// order) and its full column list (in attribute-number order), the same
// shape pg_catalog walk the original implementation's pk_tuple/all_cols
// helpers perform, done here in Go instead of as stored SQL functions.
//
// pkCols is nil (not an error) when the table has no primary key; package
// bootstrap skips such tables, and package streamfp orders them by every
// column instead.
func Columns(ctx context.Context, q store.Queryer, schema, table string) (pkCols, allCols []string, err error) {
	pkCols, err = primaryKeyColumns(ctx, q, schema, table)
	if err != nil {
		return nil, nil, err
	}
	allCols, err = allColumns(ctx, q, schema, table)
	if err != nil {
		return nil, nil, err
	}
	return pkCols, allCols, nil
}

func primaryKeyColumns(ctx context.Context, q store.Queryer, schema, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		select a.attname
		from pg_constraint con
		join pg_class c on c.oid = con.conrelid
		join pg_namespace n on n.oid = c.relnamespace
		join unnest(con.conkey) with ordinality as x(attnum, k) on true
		join pg_attribute a on a.attrelid = c.oid and a.attnum = x.attnum
		where con.contype = 'p' and n.nspname = $1 and c.relname = $2
		order by x.k
	`, schema, table)
	if err != nil {
		return nil, errors.Wrap(err, "trigger: query primary key columns")
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "trigger: scan primary key column")
		}
		cols = append(cols, name)
	}
	return cols, errors.Wrap(rows.Err(), "trigger: iterate primary key columns")
}

func allColumns(ctx context.Context, q store.Queryer, schema, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		select a.attname
		from pg_attribute a
		join pg_class c on a.attrelid = c.oid
		join pg_namespace n on n.oid = c.relnamespace
		where n.nspname = $1 and c.relname = $2 and a.attnum > 0 and not a.attisdropped
		order by a.attnum
	`, schema, table)
	if err != nil {
		return nil, errors.Wrap(err, "trigger: query columns")
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "trigger: scan column")
		}
		cols = append(cols, name)
	}
	return cols, errors.Wrap(rows.Err(), "trigger: iterate columns")
}

// WatchedTables enumerates every user table in a non-system, non-vkarious
// schema that carries a primary key (§4.7 step 1: "Enumerate all user
// tables with a primary key in non-system schemas").
func WatchedTables(ctx context.Context, q store.Queryer) ([]store.TableKey, error) {
	rows, err := q.QueryContext(ctx, `
		select n.nspname, c.relname
		from pg_class c
		join pg_namespace n on n.oid = c.relnamespace
		where c.relkind = 'r'
		  and n.nspname not in ('pg_catalog', 'information_schema', '`+store.SchemaName+`')
		  and exists (
		    select 1 from pg_constraint con
		    where con.conrelid = c.oid and con.contype = 'p'
		  )
		order by 1, 2
	`)
	if err != nil {
		return nil, errors.Wrap(err, "trigger: query watched tables")
	}
	defer rows.Close()

	var keys []store.TableKey
	for rows.Next() {
		var k store.TableKey
		if err := rows.Scan(&k.Schema, &k.Table); err != nil {
			return nil, errors.Wrap(err, "trigger: scan watched table")
		}
		keys = append(keys, k)
	}
	return keys, errors.Wrap(rows.Err(), "trigger: iterate watched tables")
}
