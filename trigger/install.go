package trigger

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pgfingerprint/vkarious/store"
)

const triggerName = "vkarious_fp_tg"

func wrapFunction(fnName, body string) string {
	return fmt.Sprintf(`create or replace function %s() returns trigger language plpgsql as $vka$
%s
$vka$;`, fnName, body)
}

func createTriggerStmt(schema, table, fnName string) string {
	return fmt.Sprintf(
		`create trigger %s after insert or update or delete on %s for each row execute function %s();`,
		triggerName, QualifiedTable(schema, table), fnName,
	)
}

func dropTriggerStmt(schema, table string) string {
	return fmt.Sprintf(`drop trigger if exists %s on %s;`, triggerName, QualifiedTable(schema, table))
}

// InstallBootstrap (re)installs the fast chunk-state-only trigger on
// (schema, table), for use while bootstrap's full-table aggregation is in
// flight. Callers run this inside the same transaction as the aggregation
// that follows it (§4.7 step 4).
func InstallBootstrap(ctx context.Context, q store.Queryer, schema, table string, pkCols, allCols []string) error {
	fnName := FunctionName(schema, table)
	body := BootstrapFunctionBody(pkCols, allCols)
	if _, err := q.ExecContext(ctx, wrapFunction(fnName, body)); err != nil {
		return errors.Wrap(err, "trigger: create bootstrap function")
	}
	if _, err := q.ExecContext(ctx, dropTriggerStmt(schema, table)); err != nil {
		return errors.Wrap(err, "trigger: drop existing trigger")
	}
	if _, err := q.ExecContext(ctx, createTriggerStmt(schema, table, fnName)); err != nil {
		return errors.Wrap(err, "trigger: install bootstrap trigger")
	}
	return nil
}

// InstallSteadyState replaces whatever trigger is installed on (schema,
// table) with the steady-state one matching derivation. Callers run this
// inside the same transaction as bootstrap's aggregation, after it
// completes (§4.7 step 4): the function is CREATE OR REPLACE'd and the
// trigger re-pointed at it without a window where no trigger is active.
func InstallSteadyState(ctx context.Context, q store.Queryer, schema, table string, pkCols, allCols []string, derivation store.Derivation) error {
	fnName := FunctionName(schema, table)
	body := SteadyStateFunctionBody(pkCols, allCols, derivation)
	if _, err := q.ExecContext(ctx, wrapFunction(fnName, body)); err != nil {
		return errors.Wrap(err, "trigger: create steady-state function")
	}
	if _, err := q.ExecContext(ctx, dropTriggerStmt(schema, table)); err != nil {
		return errors.Wrap(err, "trigger: drop bootstrap trigger")
	}
	if _, err := q.ExecContext(ctx, createTriggerStmt(schema, table, fnName)); err != nil {
		return errors.Wrap(err, "trigger: install steady-state trigger")
	}
	return nil
}

// Uninstall drops the trigger and its function for (schema, table),
// called when a table's watch is dropped (§3 Lifecycle).
func Uninstall(ctx context.Context, q store.Queryer, schema, table string) error {
	if _, err := q.ExecContext(ctx, dropTriggerStmt(schema, table)); err != nil {
		return errors.Wrap(err, "trigger: drop trigger")
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf("drop function if exists %s();", FunctionName(schema, table)))
	return errors.Wrap(err, "trigger: drop function")
}
