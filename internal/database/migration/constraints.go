package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	custom_error "github.com/Gusify/QualgenAssets/pkg/errors"

	"go.uber.org/zap"
)

// Outcome tells a caller whether a structural change was made or the store
// was already in the requested shape.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadySatisfied
)

func (o Outcome) String() string {
	if o == OutcomeAlreadySatisfied {
		return "already-satisfied"
	}
	return "applied"
}

// ConstraintManager performs DDL that must succeed on a second run. It looks
// at the live schema first and falls back to SQLSTATE classification when the
// store disagrees with what introspection showed.
type ConstraintManager struct {
	store     DataStore
	inspector *SchemaInspector
	logger    *zap.Logger
}

func NewConstraintManager(store DataStore, logger *zap.Logger) *ConstraintManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstraintManager{
		store:     store,
		inspector: NewSchemaInspector(store),
		logger:    logger,
	}
}

// AddForeignKey is satisfied when a constraint with the same name exists or
// when the column already references the same table under another name.
func (m *ConstraintManager) AddForeignKey(ctx context.Context, table string, def schema.ConstraintDef) (Outcome, error) {
	cs, err := m.describeExisting(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if cs.HasConstraint(def.Name) {
		return m.satisfied("foreign key exists", table, def.Name), nil
	}
	if len(def.Columns) == 1 && cs.ReferencesTable(def.Columns[0], def.RefTable) {
		existing, _ := cs.Lookup(def.Columns[0])
		m.logger.Debug("Foreign key present under another name",
			zap.String("table", table),
			zap.String("wanted", def.Name),
			zap.String("found", existing.ForeignKey),
		)
		return OutcomeAlreadySatisfied, nil
	}
	return m.settle("add foreign key", table, def.Name,
		m.store.AddConstraint(ctx, table, def), custom_error.IsAlreadyExists)
}

func (m *ConstraintManager) AddCheck(ctx context.Context, table string, def schema.ConstraintDef) (Outcome, error) {
	cs, err := m.describeExisting(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if cs.HasConstraint(def.Name) {
		return m.satisfied("check exists", table, def.Name), nil
	}
	return m.settle("add check", table, def.Name,
		m.store.AddConstraint(ctx, table, def), custom_error.IsAlreadyExists)
}

// RemoveUniqueIndex drops every single-column unique index on column. Indexes
// owned by a constraint are removed through the constraint.
func (m *ConstraintManager) RemoveUniqueIndex(ctx context.Context, table, column string) (Outcome, error) {
	cs, err := m.inspector.Describe(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	indexes := cs.UniqueIndexesOn(column)
	if len(indexes) == 0 {
		return m.satisfied("no unique index", table, column), nil
	}

	outcome := OutcomeAlreadySatisfied
	for _, idx := range indexes {
		var dropErr error
		name := idx.Name
		if idx.Constraint != "" {
			name = idx.Constraint
			dropErr = m.store.RemoveConstraint(ctx, table, idx.Constraint)
		} else {
			dropErr = m.store.RemoveIndex(ctx, table, idx.Name)
		}
		o, err := m.settle("remove unique index", table, name, dropErr, custom_error.IsAlreadyAbsent)
		if err != nil {
			return OutcomeApplied, err
		}
		if o == OutcomeApplied {
			outcome = OutcomeApplied
		}
	}
	return outcome, nil
}

func (m *ConstraintManager) RemoveNamedConstraint(ctx context.Context, table, name string) (Outcome, error) {
	cs, err := m.inspector.Describe(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if !cs.HasConstraint(name) {
		return m.satisfied("constraint absent", table, name), nil
	}
	return m.settle("remove constraint", table, name,
		m.store.RemoveConstraint(ctx, table, name), custom_error.IsAlreadyAbsent)
}

func (m *ConstraintManager) AddColumn(ctx context.Context, table string, def schema.ColumnDef) (Outcome, error) {
	cs, err := m.describeExisting(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if cs.Has(def.Name) {
		return m.satisfied("column exists", table, def.Name), nil
	}
	return m.settle("add column", table, def.Name,
		m.store.AddColumn(ctx, table, def), custom_error.IsAlreadyExists)
}

func (m *ConstraintManager) RemoveColumn(ctx context.Context, table, column string) (Outcome, error) {
	cs, err := m.inspector.Describe(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if !cs.Has(column) {
		return m.satisfied("column absent", table, column), nil
	}
	return m.settle("remove column", table, column,
		m.store.RemoveColumn(ctx, table, cs.ColumnName(column)), custom_error.IsAlreadyAbsent)
}

// SetNotNull only touches nullability. The store rejects it while NULLs
// remain, which is a genuine failure.
func (m *ConstraintManager) SetNotNull(ctx context.Context, table, column string) (Outcome, error) {
	cs, err := m.describeExisting(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	col, ok := cs.Lookup(column)
	if !ok {
		return OutcomeApplied, fmt.Errorf("column %s.%s does not exist", table, column)
	}
	if !col.Nullable {
		return m.satisfied("column already not null", table, column), nil
	}
	if err := m.store.ChangeColumn(ctx, table, schema.ColumnDef{Name: col.Name, NotNull: true}); err != nil {
		return OutcomeApplied, fmt.Errorf("set %s.%s not null: %w", table, column, err)
	}
	return OutcomeApplied, nil
}

// EnsureTable creates table from model when it does not exist yet.
func (m *ConstraintManager) EnsureTable(ctx context.Context, table string, model any) (Outcome, error) {
	cs, err := m.inspector.Describe(ctx, table)
	if err != nil {
		return OutcomeApplied, err
	}
	if cs.Exists() {
		return m.satisfied("table exists", table, table), nil
	}
	outcome, err := m.settle("create table", table, table,
		m.store.CreateTable(ctx, model), custom_error.IsAlreadyExists)
	if err == nil && outcome == OutcomeApplied {
		m.logger.Info("Created table", zap.String("table", table))
	}
	return outcome, err
}

func (m *ConstraintManager) describeExisting(ctx context.Context, table string) (*schema.ColumnSet, error) {
	cs, err := m.inspector.Describe(ctx, table)
	if err != nil {
		return nil, err
	}
	if !cs.Exists() {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return cs, nil
}

func (m *ConstraintManager) satisfied(reason, table, object string) Outcome {
	m.logger.Debug("Already satisfied",
		zap.String("reason", reason),
		zap.String("table", table),
		zap.String("object", object),
	)
	return OutcomeAlreadySatisfied
}

func (m *ConstraintManager) settle(op, table, object string, err error, tolerated func(error) bool) (Outcome, error) {
	if err == nil {
		return OutcomeApplied, nil
	}
	if tolerated(err) {
		m.logger.Debug("Tolerated store error",
			zap.String("op", op),
			zap.String("table", table),
			zap.String("object", object),
			zap.Error(err),
		)
		return OutcomeAlreadySatisfied, nil
	}
	switch code := custom_error.Code(err); code {
	case custom_error.CodeUniqueViolation, custom_error.CodeForeignKeyViolation:
		// Existing rows contradict the constraint.
		err = custom_error.WrapDBError(err.Error(), code)
	}
	return OutcomeApplied, fmt.Errorf("%s %s on %s: %w", op, object, table, err)
}
