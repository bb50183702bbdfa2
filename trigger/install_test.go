package trigger

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pgfingerprint/vkarious/store"
)

func TestInstallBootstrap_CreatesFunctionThenSwapsTrigger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create or replace function").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("drop trigger if exists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create trigger").WillReturnResult(sqlmock.NewResult(0, 0))

	err = InstallBootstrap(context.Background(), db, "public", "orders", []string{"id"}, []string{"id", "name"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallSteadyState_CreatesFunctionThenSwapsTrigger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("create or replace function").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("drop trigger if exists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create trigger").WillReturnResult(sqlmock.NewResult(0, 0))

	err = InstallSteadyState(context.Background(), db, "public", "orders", []string{"id"}, []string{"id", "name"}, store.DerivationXOR)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUninstall_DropsTriggerThenFunction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("drop trigger if exists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("drop function if exists").WillReturnResult(sqlmock.NewResult(0, 0))

	err = Uninstall(context.Background(), db, "public", "orders")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
