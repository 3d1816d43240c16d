package migration

import (
	"context"

	"github.com/Gusify/QualgenAssets/internal/database/schema"

	"github.com/stretchr/testify/mock"
)

type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) DescribeTable(ctx context.Context, table string) (*schema.ColumnSet, error) {
	args := m.Called(ctx, table)
	cs, _ := args.Get(0).(*schema.ColumnSet)
	return cs, args.Error(1)
}

func (m *MockDataStore) CreateTable(ctx context.Context, model any) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

func (m *MockDataStore) AddColumn(ctx context.Context, table string, column schema.ColumnDef) error {
	args := m.Called(ctx, table, column)
	return args.Error(0)
}

func (m *MockDataStore) ChangeColumn(ctx context.Context, table string, column schema.ColumnDef) error {
	args := m.Called(ctx, table, column)
	return args.Error(0)
}

func (m *MockDataStore) RemoveColumn(ctx context.Context, table, column string) error {
	args := m.Called(ctx, table, column)
	return args.Error(0)
}

func (m *MockDataStore) AddConstraint(ctx context.Context, table string, constraint schema.ConstraintDef) error {
	args := m.Called(ctx, table, constraint)
	return args.Error(0)
}

func (m *MockDataStore) RemoveConstraint(ctx context.Context, table, name string) error {
	args := m.Called(ctx, table, name)
	return args.Error(0)
}

func (m *MockDataStore) RemoveIndex(ctx context.Context, table, name string) error {
	args := m.Called(ctx, table, name)
	return args.Error(0)
}

func (m *MockDataStore) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	ret := m.Called(ctx, query, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockDataStore) ScanVal(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	ret := m.Called(ctx, dest, query, args)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockDataStore) ScanVals(ctx context.Context, dest any, query string, args ...any) error {
	ret := m.Called(ctx, dest, query, args)
	return ret.Error(0)
}

// WithTransaction hands the mock itself to fn, so expectations set on the
// mock cover statements issued inside the transaction too.
func (m *MockDataStore) WithTransaction(ctx context.Context, fn func(tx DataStore) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(m)
}

func nullable(name string) schema.Column {
	return schema.Column{Name: name, DataType: "character varying", Nullable: true}
}

func notNull(name string) schema.Column {
	return schema.Column{Name: name, DataType: "bigint"}
}

func reference(name, table, constraint string) schema.Column {
	return schema.Column{Name: name, DataType: "bigint", References: table, ForeignKey: constraint}
}

func table(name string, columns ...schema.Column) *schema.ColumnSet {
	var constraints []schema.Constraint
	for _, c := range columns {
		if c.ForeignKey != "" {
			constraints = append(constraints, schema.Constraint{Name: c.ForeignKey, Kind: schema.KindForeignKey})
		}
	}
	return schema.NewColumnSet(name, columns, constraints, nil)
}
