// Package schema holds the value types the migration engine exchanges with the
// relational store: what a table looks like right now (ColumnSet) and what a
// step wants it to look like (ColumnDef, ConstraintDef).
package schema

import (
	"fmt"
	"strings"
)

const (
	KindPrimaryKey = "PRIMARY KEY"
	KindForeignKey = "FOREIGN KEY"
	KindUnique     = "UNIQUE"
	KindCheck      = "CHECK"
)

const (
	ActionCascade  = "CASCADE"
	ActionRestrict = "RESTRICT"
	ActionSetNull  = "SET NULL"
)

type Column struct {
	Name     string
	DataType string
	Nullable bool
	// Unique is set when a single-column unique index or constraint covers the column.
	Unique bool
	// References names the table a single-column foreign key on this column points to.
	References string
	ForeignKey string
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
	// Constraint is the constraint that owns the index, empty for a plain index.
	Constraint string
}

type Constraint struct {
	Name string
	Kind string
}

// ColumnSet is a snapshot of one table. A nil *ColumnSet means the table does
// not exist; every accessor is safe to call on nil.
type ColumnSet struct {
	Table       string
	columns     []Column
	byName      map[string]int
	constraints map[string]Constraint
	indexes     []Index
}

func NewColumnSet(table string, columns []Column, constraints []Constraint, indexes []Index) *ColumnSet {
	cs := &ColumnSet{
		Table:       table,
		columns:     make([]Column, 0, len(columns)),
		byName:      make(map[string]int, len(columns)),
		constraints: make(map[string]Constraint, len(constraints)),
		indexes:     indexes,
	}
	for _, c := range columns {
		cs.byName[strings.ToLower(c.Name)] = len(cs.columns)
		cs.columns = append(cs.columns, c)
	}
	for _, c := range constraints {
		cs.constraints[strings.ToLower(c.Name)] = c
	}
	return cs
}

func (cs *ColumnSet) Exists() bool {
	return cs != nil
}

// Lookup finds a column ignoring case and returns it with its real spelling.
func (cs *ColumnSet) Lookup(name string) (Column, bool) {
	if cs == nil {
		return Column{}, false
	}
	i, ok := cs.byName[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return cs.columns[i], true
}

func (cs *ColumnSet) Has(name string) bool {
	_, ok := cs.Lookup(name)
	return ok
}

// ColumnName returns the stored spelling of name, or name itself when absent.
func (cs *ColumnSet) ColumnName(name string) string {
	if c, ok := cs.Lookup(name); ok {
		return c.Name
	}
	return name
}

func (cs *ColumnSet) Columns() []Column {
	if cs == nil {
		return nil
	}
	out := make([]Column, len(cs.columns))
	copy(out, cs.columns)
	return out
}

func (cs *ColumnSet) HasConstraint(name string) bool {
	if cs == nil {
		return false
	}
	_, ok := cs.constraints[strings.ToLower(name)]
	return ok
}

func (cs *ColumnSet) Constraints() []Constraint {
	if cs == nil {
		return nil
	}
	out := make([]Constraint, 0, len(cs.constraints))
	for _, c := range cs.constraints {
		out = append(out, c)
	}
	return out
}

// ReferencesTable reports whether column carries a foreign key to table,
// whatever the constraint happens to be called.
func (cs *ColumnSet) ReferencesTable(column, table string) bool {
	c, ok := cs.Lookup(column)
	return ok && c.References != "" && strings.EqualFold(c.References, table)
}

// UniqueIndexesOn returns the non-primary unique indexes that cover exactly
// the given column.
func (cs *ColumnSet) UniqueIndexesOn(column string) []Index {
	if cs == nil {
		return nil
	}
	var out []Index
	for _, idx := range cs.indexes {
		if idx.Unique && len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], column) {
			out = append(out, idx)
		}
	}
	return out
}

func (cs *ColumnSet) Indexes() []Index {
	if cs == nil {
		return nil
	}
	out := make([]Index, len(cs.indexes))
	copy(out, cs.indexes)
	return out
}

// ColumnDef describes a column to add or change. An empty Type on a change
// leaves the type alone and only adjusts nullability.
type ColumnDef struct {
	Name    string
	Type    string
	NotNull bool
}

func (d ColumnDef) Definition() string {
	if d.NotNull {
		return d.Type + " NOT NULL"
	}
	return d.Type + " NULL"
}

type ConstraintDef struct {
	Name       string
	Kind       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnUpdate   string
	OnDelete   string
	// Expression is the body of a CHECK constraint.
	Expression string
}

// ForeignKeyName follows the fk_<table>_<column>_<ref table>_<ref column> convention.
func ForeignKeyName(table, column, refTable, refColumn string) string {
	return fmt.Sprintf("fk_%s_%s_%s_%s", table, column, refTable, refColumn)
}

func ForeignKey(table, column, refTable string, onDelete string) ConstraintDef {
	return ConstraintDef{
		Name:       ForeignKeyName(table, column, refTable, "id"),
		Kind:       KindForeignKey,
		Columns:    []string{column},
		RefTable:   refTable,
		RefColumns: []string{"id"},
		OnUpdate:   ActionCascade,
		OnDelete:   onDelete,
	}
}

func Check(name, expression string) ConstraintDef {
	return ConstraintDef{
		Name:       name,
		Kind:       KindCheck,
		Expression: expression,
	}
}
