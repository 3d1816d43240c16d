package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gusify/QualgenAssets/internal/database/schema"

	"github.com/doug-martin/goqu/v9"
)

// Single-column foreign keys of one table in the current schema. Composite
// keys never back a normalized column.
const foreignKeysQuery = `
SELECT a.attname AS column_name, c.conname AS constraint_name, rt.relname AS ref_table
FROM pg_constraint c
JOIN pg_class t ON t.oid = c.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class rt ON rt.oid = c.confrelid
JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = c.conkey[1]
WHERE c.contype = 'f'
  AND array_length(c.conkey, 1) = 1
  AND n.nspname = current_schema()
  AND t.relname = $1
ORDER BY c.conname`

// Non-primary indexes with their ordered columns and owning constraint.
const indexesQuery = `
SELECT i.relname AS index_name,
       ix.indisunique AS is_unique,
       COALESCE(c.conname, '') AS constraint_name,
       array_to_string(ARRAY(
           SELECT a.attname
           FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
           JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
           ORDER BY k.ord
       ), ',') AS columns
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
LEFT JOIN pg_constraint c ON c.conindid = ix.indexrelid
                         AND c.conrelid = ix.indrelid
                         AND c.contype IN ('u', 'x')
WHERE NOT ix.indisprimary
  AND n.nspname = current_schema()
  AND t.relname = $1
ORDER BY i.relname`

type constraintRow struct {
	Name string `db:"constraint_name"`
	Type string `db:"constraint_type"`
}

type foreignKeyRow struct {
	Column   string `db:"column_name"`
	Name     string `db:"constraint_name"`
	RefTable string `db:"ref_table"`
}

type indexRow struct {
	Name       string `db:"index_name"`
	Unique     bool   `db:"is_unique"`
	Constraint string `db:"constraint_name"`
	Columns    string `db:"columns"`
}

func (s *PostgresStore) tableConstraints(ctx context.Context, table string) ([]schema.Constraint, error) {
	query, args, err := goqu.Dialect("postgres").
		From(goqu.S("information_schema").Table("table_constraints")).
		Select("constraint_name", "constraint_type").
		Where(
			goqu.C("table_schema").Eq(goqu.L("current_schema()")),
			goqu.C("table_name").Eq(table),
		).
		Order(goqu.C("constraint_name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []constraintRow
	if err := s.runner.ScanStructsContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("read constraints of %s: %w", table, err)
	}

	out := make([]schema.Constraint, 0, len(rows))
	for _, r := range rows {
		out = append(out, schema.Constraint{Name: r.Name, Kind: r.Type})
	}
	return out, nil
}

type foreignKey struct {
	Name     string
	RefTable string
}

// foreignKeys is keyed by lower-cased column name. With several keys on one
// column the first by name wins.
func (s *PostgresStore) foreignKeys(ctx context.Context, table string) (map[string]foreignKey, error) {
	var rows []foreignKeyRow
	if err := s.runner.ScanStructsContext(ctx, &rows, foreignKeysQuery, table); err != nil {
		return nil, fmt.Errorf("read foreign keys of %s: %w", table, err)
	}

	out := make(map[string]foreignKey, len(rows))
	for _, r := range rows {
		key := strings.ToLower(r.Column)
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = foreignKey{Name: r.Name, RefTable: r.RefTable}
	}
	return out, nil
}

func (s *PostgresStore) indexes(ctx context.Context, table string) ([]schema.Index, error) {
	var rows []indexRow
	if err := s.runner.ScanStructsContext(ctx, &rows, indexesQuery, table); err != nil {
		return nil, fmt.Errorf("read indexes of %s: %w", table, err)
	}

	out := make([]schema.Index, 0, len(rows))
	for _, r := range rows {
		var columns []string
		if r.Columns != "" {
			columns = strings.Split(r.Columns, ",")
		}
		out = append(out, schema.Index{
			Name:       r.Name,
			Columns:    columns,
			Unique:     r.Unique,
			Constraint: r.Constraint,
		})
	}
	return out, nil
}
