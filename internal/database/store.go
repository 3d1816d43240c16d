package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Gusify/QualgenAssets/internal/database/migration"
	"github.com/Gusify/QualgenAssets/internal/database/schema"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// queryRunner is the part of goqu.Database and goqu.TxDatabase the store
// runs raw statements through.
type queryRunner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	ScanValContext(ctx context.Context, i interface{}, query string, args ...interface{}) (bool, error)
	ScanValsContext(ctx context.Context, i interface{}, query string, args ...interface{}) error
	ScanStructsContext(ctx context.Context, i interface{}, query string, args ...interface{}) error
}

// PostgresStore implements migration.DataStore. DDL goes through gorm's
// migrator, everything else through goqu on the same connection or
// transaction.
type PostgresStore struct {
	db     *sql.DB
	orm    *gorm.DB
	runner queryRunner
	inTx   bool
	logger *zap.Logger
}

var _ migration.DataStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, logger *zap.Logger) (*PostgresStore, error) {
	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return &PostgresStore{
		db:     db,
		orm:    orm,
		runner: goqu.New("postgres", db),
		logger: logger,
	}, nil
}

// Open connects to dbURL with retries and wraps the connection in a store.
func Open(ctx context.Context, dbURL string, opts ConnectOptions, logger *zap.Logger) (*PostgresStore, error) {
	db, err := NewPostgresConnection(ctx, dbURL, opts, logger)
	if err != nil {
		return nil, err
	}
	store, err := NewPostgresStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.inTx {
		return errors.New("cannot close a transaction-bound store")
	}
	return s.db.Close()
}

func (s *PostgresStore) session(ctx context.Context) *gorm.DB {
	return s.orm.WithContext(ctx)
}

func (s *PostgresStore) DescribeTable(ctx context.Context, table string) (*schema.ColumnSet, error) {
	migrator := s.session(ctx).Migrator()
	if !migrator.HasTable(table) {
		return nil, nil
	}

	columnTypes, err := migrator.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	constraints, err := s.tableConstraints(ctx, table)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := s.foreignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	indexes, err := s.indexes(ctx, table)
	if err != nil {
		return nil, err
	}

	unique := make(map[string]bool)
	for _, idx := range indexes {
		if idx.Unique && len(idx.Columns) == 1 {
			unique[strings.ToLower(idx.Columns[0])] = true
		}
	}

	columns := make([]schema.Column, 0, len(columnTypes))
	for _, ct := range columnTypes {
		nullable, ok := ct.Nullable()
		col := schema.Column{
			Name:     ct.Name(),
			DataType: strings.ToLower(ct.DatabaseTypeName()),
			Nullable: !ok || nullable,
			Unique:   unique[strings.ToLower(ct.Name())],
		}
		if fk, ok := foreignKeys[strings.ToLower(ct.Name())]; ok {
			col.References = fk.RefTable
			col.ForeignKey = fk.Name
		}
		columns = append(columns, col)
	}

	return schema.NewColumnSet(table, columns, constraints, indexes), nil
}

func (s *PostgresStore) CreateTable(ctx context.Context, model any) error {
	return s.session(ctx).Migrator().CreateTable(model)
}

func (s *PostgresStore) AddColumn(ctx context.Context, table string, column schema.ColumnDef) error {
	if column.Type == "" {
		return fmt.Errorf("column %s has no type", column.Name)
	}
	return s.session(ctx).Exec("ALTER TABLE ? ADD COLUMN ? "+column.Definition(),
		clause.Table{Name: table}, clause.Column{Name: column.Name}).Error
}

// ChangeColumn alters the type when one is given and always applies the
// requested nullability.
func (s *PostgresStore) ChangeColumn(ctx context.Context, table string, column schema.ColumnDef) error {
	db := s.session(ctx)
	if column.Type != "" {
		if err := db.Exec("ALTER TABLE ? ALTER COLUMN ? TYPE "+column.Type,
			clause.Table{Name: table}, clause.Column{Name: column.Name}).Error; err != nil {
			return err
		}
	}
	nullability := "DROP NOT NULL"
	if column.NotNull {
		nullability = "SET NOT NULL"
	}
	return db.Exec("ALTER TABLE ? ALTER COLUMN ? "+nullability,
		clause.Table{Name: table}, clause.Column{Name: column.Name}).Error
}

func (s *PostgresStore) RemoveColumn(ctx context.Context, table, column string) error {
	return s.session(ctx).Migrator().DropColumn(table, column)
}

func (s *PostgresStore) AddConstraint(ctx context.Context, table string, def schema.ConstraintDef) error {
	query, vars, err := constraintSQL(table, def)
	if err != nil {
		return err
	}
	return s.session(ctx).Exec(query, vars...).Error
}

func (s *PostgresStore) RemoveConstraint(ctx context.Context, table, name string) error {
	return s.session(ctx).Migrator().DropConstraint(table, name)
}

func (s *PostgresStore) RemoveIndex(ctx context.Context, table, name string) error {
	return s.session(ctx).Migrator().DropIndex(table, name)
}

func (s *PostgresStore) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) ScanVal(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	return s.runner.ScanValContext(ctx, dest, query, args...)
}

func (s *PostgresStore) ScanVals(ctx context.Context, dest any, query string, args ...any) error {
	return s.runner.ScanValsContext(ctx, dest, query, args...)
}

// WithTransaction binds gorm and goqu to one *sql.Tx. Nested calls join the
// outer transaction.
func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(tx migration.DataStore) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	gtx := s.session(ctx).Begin()
	if gtx.Error != nil {
		return fmt.Errorf("failed to start transaction: %w", gtx.Error)
	}
	rawTx, ok := gtx.Statement.ConnPool.(*sql.Tx)
	if !ok {
		gtx.Rollback()
		return fmt.Errorf("unexpected transaction handle %T", gtx.Statement.ConnPool)
	}

	tx := &PostgresStore{
		db:     s.db,
		orm:    gtx,
		runner: goqu.NewTx("postgres", rawTx),
		inTx:   true,
		logger: s.logger,
	}
	defer func() {
		if p := recover(); p != nil {
			gtx.Rollback()
			panic(p)
		} else if err != nil {
			gtx.Rollback()
		} else {
			err = gtx.Commit().Error
		}
	}()

	err = fn(tx)
	return
}

var referentialActions = map[string]bool{
	schema.ActionCascade:  true,
	schema.ActionRestrict: true,
	schema.ActionSetNull:  true,
	"NO ACTION":           true,
}

func constraintSQL(table string, def schema.ConstraintDef) (string, []interface{}, error) {
	vars := []interface{}{clause.Table{Name: table}, clause.Column{Name: def.Name}}

	switch def.Kind {
	case schema.KindForeignKey:
		if len(def.Columns) == 0 || len(def.Columns) != len(def.RefColumns) || def.RefTable == "" {
			return "", nil, fmt.Errorf("foreign key %s is incomplete", def.Name)
		}
		query := "ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY ? REFERENCES ??"
		vars = append(vars, columnList(def.Columns), clause.Table{Name: def.RefTable}, columnList(def.RefColumns))
		for _, action := range []struct{ event, value string }{
			{"UPDATE", def.OnUpdate},
			{"DELETE", def.OnDelete},
		} {
			if action.value == "" {
				continue
			}
			if !referentialActions[action.value] {
				return "", nil, fmt.Errorf("foreign key %s: unsupported ON %s action %q", def.Name, action.event, action.value)
			}
			query += " ON " + action.event + " " + action.value
		}
		return query, vars, nil
	case schema.KindUnique:
		if len(def.Columns) == 0 {
			return "", nil, fmt.Errorf("unique constraint %s has no columns", def.Name)
		}
		return "ALTER TABLE ? ADD CONSTRAINT ? UNIQUE ?", append(vars, columnList(def.Columns)), nil
	case schema.KindCheck:
		if def.Expression == "" {
			return "", nil, fmt.Errorf("check constraint %s has no expression", def.Name)
		}
		return "ALTER TABLE ? ADD CONSTRAINT ? CHECK (" + def.Expression + ")", vars, nil
	default:
		return "", nil, fmt.Errorf("unsupported constraint kind %q", def.Kind)
	}
}

// columnList renders as a parenthesized identifier list in gorm's Exec.
func columnList(names []string) []interface{} {
	out := make([]interface{}, 0, len(names))
	for _, name := range names {
		out = append(out, clause.Column{Name: name})
	}
	return out
}
