package trigger

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgfingerprint/vkarious/store"
)

func TestColumns_ReturnsPKAndAllColumnsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("pg_constraint").
		WillReturnRows(sqlmock.NewRows([]string{"attname"}).AddRow("id"))
	mock.ExpectQuery("pg_attribute").
		WillReturnRows(sqlmock.NewRows([]string{"attname"}).AddRow("id").AddRow("name").AddRow("created_at"))

	pk, all, err := Columns(context.Background(), db, "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pk)
	assert.Equal(t, []string{"id", "name", "created_at"}, all)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColumns_NoPrimaryKeyReturnsNilPK(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("pg_constraint").
		WillReturnRows(sqlmock.NewRows([]string{"attname"}))
	mock.ExpectQuery("pg_attribute").
		WillReturnRows(sqlmock.NewRows([]string{"attname"}).AddRow("note"))

	pk, all, err := Columns(context.Background(), db, "public", "logs")
	require.NoError(t, err)
	assert.Nil(t, pk)
	assert.Equal(t, []string{"note"}, all)
}

func TestWatchedTables_ExcludesSystemAndVkariousSchemas(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`not in \('pg_catalog', 'information_schema', 'vkarious'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nspname", "relname"}).
			AddRow("public", "orders").
			AddRow("public", "customers"))

	keys, err := WatchedTables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []store.TableKey{
		{Schema: "public", Table: "orders"},
		{Schema: "public", Table: "customers"},
	}, keys)
}
