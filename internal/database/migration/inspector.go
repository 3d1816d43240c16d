package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
)

// SchemaInspector answers read-only questions about the live schema. A missing
// table is a state, not an error.
type SchemaInspector struct {
	store DataStore
}

func NewSchemaInspector(store DataStore) *SchemaInspector {
	return &SchemaInspector{store: store}
}

func (i *SchemaInspector) Describe(ctx context.Context, table string) (*schema.ColumnSet, error) {
	cs, err := i.store.DescribeTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	return cs, nil
}

func (i *SchemaInspector) HasTable(ctx context.Context, table string) (bool, error) {
	cs, err := i.Describe(ctx, table)
	return cs.Exists(), err
}

// HasColumn matches column names case-insensitively; older generations of the
// schema did not agree on casing.
func (i *SchemaInspector) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cs, err := i.Describe(ctx, table)
	if err != nil {
		return false, err
	}
	return cs.Has(column), nil
}

// DescribeAll snapshots several tables at once, keyed by the requested name.
func (i *SchemaInspector) DescribeAll(ctx context.Context, tables ...string) (map[string]*schema.ColumnSet, error) {
	out := make(map[string]*schema.ColumnSet, len(tables))
	for _, table := range tables {
		cs, err := i.Describe(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = cs
	}
	return out, nil
}
