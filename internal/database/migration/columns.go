package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// detectColumn covers steps that only add a column to assets.
func detectColumn(assets *schema.ColumnSet, column string) StepState {
	if !assets.Exists() || assets.Has(column) {
		return StateLegacyRetired
	}
	return StateNotStarted
}

// ColumnStep adds one nullable column to an existing assets table.
type ColumnStep struct {
	name   string
	column schema.ColumnDef
}

func NewExpressServiceTag() *ColumnStep {
	return &ColumnStep{
		name:   "express_service_tag",
		column: schema.ColumnDef{Name: "express_service_tag", Type: "varchar(64)"},
	}
}

func (s *ColumnStep) Name() string {
	return s.name
}

func (s *ColumnStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	assets, err := kit.Inspector.Describe(ctx, models.TableAssets)
	if err != nil {
		return StateNotStarted, err
	}
	return detectColumn(assets, s.column.Name), nil
}

func (s *ColumnStep) Apply(ctx context.Context, kit *Toolkit) error {
	_, err := kit.Constraints.AddColumn(ctx, models.TableAssets, s.column)
	return failed(PhasePrepare, err)
}

const (
	purchaseTypeColumn = "purchase_type"
	purchaseTypeCheck  = "chk_assets_purchase_type"
)

// purchaseTypeExpression renders the CHECK body with every accepted value
// quoted as a literal.
func purchaseTypeExpression() string {
	values := make([]string, 0, len(models.PurchaseTypes))
	for _, p := range models.PurchaseTypes {
		values = append(values, pq.QuoteLiteral(string(p)))
	}
	return fmt.Sprintf("%s IN (%s)", pq.QuoteIdentifier(purchaseTypeColumn), strings.Join(values, ", "))
}

func purchaseTypeConstraint() schema.ConstraintDef {
	return schema.Check(purchaseTypeCheck, purchaseTypeExpression())
}

func detectPurchaseType(assets *schema.ColumnSet) StepState {
	switch {
	case !assets.Exists():
		return StateLegacyRetired
	case !assets.Has(purchaseTypeColumn):
		return StateNotStarted
	case !assets.HasConstraint(purchaseTypeCheck):
		return StateSchemaPrepared
	default:
		return StateLegacyRetired
	}
}

// PurchaseTypeStep adds assets.purchase_type, folds existing values into the
// accepted set and then constrains it.
type PurchaseTypeStep struct{}

func NewPurchaseType() *PurchaseTypeStep {
	return &PurchaseTypeStep{}
}

func (s *PurchaseTypeStep) Name() string {
	return "purchase_type"
}

func (s *PurchaseTypeStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	assets, err := kit.Inspector.Describe(ctx, models.TableAssets)
	if err != nil {
		return StateNotStarted, err
	}
	return detectPurchaseType(assets), nil
}

func (s *PurchaseTypeStep) Apply(ctx context.Context, kit *Toolkit) error {
	state, err := s.Detect(ctx, kit)
	if err != nil {
		return failed(PhaseDetect, err)
	}

	switch state {
	case StateNotStarted:
		if _, err := kit.Constraints.AddColumn(ctx, models.TableAssets,
			schema.ColumnDef{Name: purchaseTypeColumn, Type: "varchar(16)"}); err != nil {
			return failed(PhasePrepare, err)
		}
		fallthrough
	case StateSchemaPrepared, StateDataBackfilled:
		rejected, err := unrecognizedPurchaseTypes(ctx, kit.Store)
		if err != nil {
			return failed(PhaseBackfill, err)
		}
		if len(rejected) > 0 {
			kit.Logger.Warn("Clearing unrecognized purchase types", zap.Strings("values", rejected))
		}
		cleaned, err := execStatement(ctx, kit.Store, normalizePurchaseTypes())
		if err != nil {
			return failed(PhaseBackfill, err)
		}
		if cleaned > 0 {
			kit.Logger.Info("Normalized purchase types", zap.Int64("rows", cleaned))
		}
		if _, err := kit.Constraints.AddCheck(ctx, models.TableAssets, purchaseTypeConstraint()); err != nil {
			return failed(PhaseTighten, err)
		}
	}
	return nil
}

// unrecognizedPurchaseTypes returns the distinct stored values that
// normalization is about to clear.
func unrecognizedPurchaseTypes(ctx context.Context, store DataStore) ([]string, error) {
	query := dialect.From(models.TableAssets).
		SelectDistinct(goqu.C(purchaseTypeColumn)).
		Where(goqu.C(purchaseTypeColumn).IsNotNull()).
		Order(goqu.C(purchaseTypeColumn).Asc()).
		Prepared(true)

	var stored []string
	if err := scanVals(ctx, store, &stored, query); err != nil {
		return nil, fmt.Errorf("read purchase types: %w", err)
	}

	var rejected []string
	for _, value := range stored {
		if _, err := models.NewPurchaseType(value); err != nil {
			rejected = append(rejected, value)
		}
	}
	return rejected, nil
}

// normalizePurchaseTypes lowercases and trims stored values; anything still
// outside the accepted set becomes NULL.
func normalizePurchaseTypes() *goqu.UpdateDataset {
	accepted := make([]interface{}, 0, len(models.PurchaseTypes))
	for _, p := range models.PurchaseTypes {
		accepted = append(accepted, string(p))
	}
	cleaned := goqu.Func("LOWER", goqu.Func("TRIM", goqu.C(purchaseTypeColumn)))

	return dialect.Update(models.TableAssets).
		Set(goqu.Record{
			purchaseTypeColumn: goqu.Case().
				When(cleaned.In(accepted...), cleaned).
				Else(nil),
		}).
		Where(
			goqu.C(purchaseTypeColumn).IsNotNull(),
			goqu.C(purchaseTypeColumn).NotIn(accepted...),
		).
		Prepared(true)
}
