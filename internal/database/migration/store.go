package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register postgres placeholders and quoting
)

// DataStore is everything the engine needs from the relational store.
// DescribeTable returns nil, nil for a table that does not exist.
type DataStore interface {
	DescribeTable(ctx context.Context, table string) (*schema.ColumnSet, error)
	CreateTable(ctx context.Context, model any) error
	AddColumn(ctx context.Context, table string, column schema.ColumnDef) error
	ChangeColumn(ctx context.Context, table string, column schema.ColumnDef) error
	RemoveColumn(ctx context.Context, table, column string) error
	AddConstraint(ctx context.Context, table string, constraint schema.ConstraintDef) error
	RemoveConstraint(ctx context.Context, table, name string) error
	RemoveIndex(ctx context.Context, table, name string) error
	ExecRaw(ctx context.Context, query string, args ...any) (int64, error)
	ScanVal(ctx context.Context, dest any, query string, args ...any) (bool, error)
	ScanVals(ctx context.Context, dest any, query string, args ...any) error
	// WithTransaction runs fn against a store bound to one transaction. It
	// commits when fn returns nil and rolls back otherwise, including on panic.
	WithTransaction(ctx context.Context, fn func(tx DataStore) error) error
}

var dialect = goqu.Dialect("postgres")

type statement interface {
	ToSQL() (string, []interface{}, error)
}

func execStatement(ctx context.Context, store DataStore, stmt statement) (int64, error) {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	return store.ExecRaw(ctx, query, args...)
}

func scanVal(ctx context.Context, store DataStore, dest any, stmt statement) (bool, error) {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}
	return store.ScanVal(ctx, dest, query, args...)
}

func scanVals(ctx context.Context, store DataStore, dest any, stmt statement) error {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return store.ScanVals(ctx, dest, query, args...)
}
