// Package streamfp implements the full-table streaming fingerprint (§4.9):
// a single cryptographic digest of a whole table's content, independent of
// chunking, used to validate a chunked root against a cold scan.
package streamfp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pgfingerprint/vkarious/rowcodec"
	"github.com/pgfingerprint/vkarious/rowhash"
	"github.com/pgfingerprint/vkarious/store"
	"github.com/pgfingerprint/vkarious/trigger"
)

// Result is one table's streaming fingerprint.
type Result struct {
	DigestHex    string
	RowsStreamed int64
}

// Table streams schema.table's rows, ordered by primary key ascending (or
// by every column ascending when the table has none, §4.9's fallback),
// through a cryptographic hasher under algo and returns the final digest
// plus how many rows were streamed.
//
// lib/pq does not implement COPY-OUT (only pq.CopyIn for bulk loading), so
// this reads via an ordinary ordered SELECT with every column cast to
// ::text rather than the database's native binary row export; the text
// form is exactly what rowcodec.Row already canonicalizes for chunked
// hashing, so the two paths agree on what a row's bytes are even though
// this one never touches chunk_state or row_hashes.
func Table(ctx context.Context, q store.Queryer, schema, table string, algo rowhash.Algo) (Result, error) {
	pkCols, allCols, err := trigger.Columns(ctx, q, schema, table)
	if err != nil {
		return Result{}, errors.Wrapf(err, "streamfp: introspect %s.%s", schema, table)
	}
	if len(allCols) == 0 {
		return Result{}, errors.Errorf("streamfp: %s.%s has no columns", schema, table)
	}

	orderCols := pkCols
	if len(orderCols) == 0 {
		orderCols = allCols
	}

	hasher, err := rowhash.NewHasher(algo)
	if err != nil {
		return Result{}, err
	}

	query := buildQuery(schema, table, allCols, orderCols)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return Result{}, errors.Wrapf(err, "streamfp: query %s.%s", schema, table)
	}
	defer rows.Close()

	dest := make([]sql.NullString, len(allCols))
	scanArgs := make([]interface{}, len(allCols))
	for i := range dest {
		scanArgs[i] = &dest[i]
	}

	var count int64
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return Result{}, errors.Wrapf(err, "streamfp: scan row of %s.%s", schema, table)
		}
		cols := make([]rowcodec.Column, len(allCols))
		for i, name := range allCols {
			cols[i] = rowcodec.Column{Name: name, Text: dest[i].String, Valid: dest[i].Valid}
		}
		row := rowcodec.Row{AllColumns: cols}
		if _, err := hasher.Write(row.RowBytes()); err != nil {
			return Result{}, errors.Wrap(err, "streamfp: hash row")
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return Result{}, errors.Wrapf(err, "streamfp: iterate %s.%s", schema, table)
	}

	return Result{DigestHex: fmt.Sprintf("%x", hasher.Sum(nil)), RowsStreamed: count}, nil
}

func buildQuery(schema, table string, allCols, orderCols []string) string {
	selectList := make([]string, len(allCols))
	for i, c := range allCols {
		selectList[i] = quoteColumn(c) + "::text"
	}
	orderList := make([]string, len(orderCols))
	for i, c := range orderCols {
		orderList[i] = quoteColumn(c)
	}
	return fmt.Sprintf(
		"select %s from %s order by %s",
		strings.Join(selectList, ", "),
		trigger.QualifiedTable(schema, table),
		strings.Join(orderList, ", "),
	)
}

func quoteColumn(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// All runs Table concurrently over every watched table, one connection
// per table (§5's "MAY open multiple connections... to parallelize...
// cold streaming"), and returns each table's Result keyed by TableKey.
func All(ctx context.Context, db *sql.DB, algo rowhash.Algo) (map[store.TableKey]Result, error) {
	keys, err := trigger.WatchedTables(ctx, db)
	if err != nil {
		return nil, errors.Wrap(err, "streamfp: enumerate tables")
	}

	results := make(map[store.TableKey]Result, len(keys))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			r, err := Table(gctx, db, key.Schema, key.Table, algo)
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
