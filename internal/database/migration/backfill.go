package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	columnCreatedAt = "created_at"
	columnUpdatedAt = "updated_at"
)

// normalizedValue trims value and coalesces blanks and NULLs to the sentinel.
// Case is preserved.
func normalizedValue(value exp.Expression) exp.LiteralExpression {
	return goqu.L("COALESCE(NULLIF(TRIM(?), ''), ?)", value, UnknownName)
}

func timestampColumns(cs *schema.ColumnSet) []string {
	var cols []string
	for _, name := range []string{columnCreatedAt, columnUpdatedAt} {
		if cs.Has(name) {
			cols = append(cols, cs.ColumnName(name))
		}
	}
	return cols
}

func stampRecord(record goqu.Record, columns []string) {
	for _, col := range columns {
		record[col] = goqu.L("NOW()")
	}
}

// normalization turns the free-text assets column Legacy into rows of Target
// and points ForeignKey at them.
type normalization struct {
	Legacy       string
	ForeignKey   string
	Target       string
	TargetColumn string
	// Constants are written into every inserted Target row.
	Constants  []ColumnValue
	Timestamps []string
	Prefer     []exp.OrderedExpression
}

// insertDistinct adds one Target row per distinct normalized legacy value of
// the rows still waiting for a foreign key, skipping values already present.
func (n normalization) insertDistinct() *goqu.InsertDataset {
	values := dialect.From(models.TableAssets).
		Select(normalizedValue(goqu.C(n.Legacy)).As("value")).
		Distinct().
		Where(goqu.C(n.ForeignKey).IsNull())

	existing := dialect.From(goqu.T(n.Target).As("t")).
		Select(goqu.L("1")).
		Where(goqu.T("t").Col(n.TargetColumn).Eq(goqu.T("v").Col("value")))

	cols := []interface{}{n.TargetColumn}
	selected := []interface{}{goqu.T("v").Col("value")}
	for _, c := range n.Constants {
		cols = append(cols, c.Column)
		selected = append(selected, goqu.Cast(goqu.V(c.Value), "BIGINT"))
	}
	for _, c := range n.Timestamps {
		cols = append(cols, c)
		selected = append(selected, goqu.L("NOW()"))
	}

	source := dialect.From(values.As("v")).
		Select(selected...).
		Where(goqu.L("NOT EXISTS (?)", existing))

	return dialect.Insert(n.Target).
		Cols(cols...).
		FromQuery(source).
		Prepared(true)
}

// link joins every unlinked asset to its Target row by normalized value.
// Assets without a matching row are left for fill, so the affected row count
// is the number actually linked.
func (n normalization) link() *goqu.UpdateDataset {
	order := append([]exp.OrderedExpression{}, n.Prefer...)
	order = append(order, goqu.T("t").Col("id").Asc())

	candidates := dialect.From(goqu.T(n.Target).As("t")).
		Where(goqu.T("t").Col(n.TargetColumn).Eq(
			normalizedValue(goqu.T(models.TableAssets).Col(n.Legacy)),
		))
	match := candidates.
		Select(goqu.T("t").Col("id")).
		Order(order...).
		Limit(1)

	return dialect.Update(models.TableAssets).
		Set(goqu.Record{n.ForeignKey: match}).
		Where(
			goqu.C(n.ForeignKey).IsNull(),
			goqu.L("EXISTS (?)", candidates.Select(goqu.L("1"))),
		).
		Prepared(true)
}

// fill points whatever is still unlinked at the sentinel row.
func (n normalization) fill(sentinelID uint) *goqu.UpdateDataset {
	return dialect.Update(models.TableAssets).
		Set(goqu.Record{n.ForeignKey: sentinelID}).
		Where(goqu.C(n.ForeignKey).IsNull()).
		Prepared(true)
}

type backfillCounts struct {
	Inserted int64
	Linked   int64
	Fallback int64
}

// run executes the backfill against one transaction-bound store. An empty
// Legacy skips straight to the sentinel fallback.
func (n normalization) run(ctx context.Context, tx DataStore, sentinelID uint) (backfillCounts, error) {
	var counts backfillCounts
	var err error
	if n.Legacy != "" {
		if counts.Inserted, err = execStatement(ctx, tx, n.insertDistinct()); err != nil {
			return counts, fmt.Errorf("insert distinct %s: %w", n.Target, err)
		}
		if counts.Linked, err = execStatement(ctx, tx, n.link()); err != nil {
			return counts, fmt.Errorf("link %s: %w", n.ForeignKey, err)
		}
	}
	if counts.Fallback, err = execStatement(ctx, tx, n.fill(sentinelID)); err != nil {
		return counts, fmt.Errorf("fill %s: %w", n.ForeignKey, err)
	}
	return counts, nil
}
