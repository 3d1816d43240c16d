package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"
)

var catalogLinks = []struct {
	column string
	ref    string
}{
	{"asset_type_id", models.TableAssetTypes},
	{"brand_id", models.TableBrands},
}

// detectCatalog works out how far the asset type, brand and model tables
// are. seeded is true once every baseline name and the Unknown model exist.
func detectCatalog(types, brands, assetModels *schema.ColumnSet, seeded bool) StepState {
	if !types.Has("name") || !types.Has("description") || !brands.Has("name") {
		return StateNotStarted
	}
	if !assetModels.Has("title") || !assetModels.Has("spec_summary") {
		return StateNotStarted
	}
	for _, link := range catalogLinks {
		if !assetModels.Has(link.column) {
			return StateNotStarted
		}
	}
	if !seeded {
		return StateSchemaPrepared
	}
	// Any nullable link means backfill is pending, whatever the other link
	// looks like.
	for _, link := range catalogLinks {
		if col, _ := assetModels.Lookup(link.column); col.Nullable {
			return StateSchemaPrepared
		}
	}
	for _, link := range catalogLinks {
		if !assetModels.ReferencesTable(link.column, link.ref) {
			return StateDataBackfilled
		}
	}
	return StateLegacyRetired
}

// AssetCatalogStep owns asset types, brands and asset models together with
// their baseline rows.
type AssetCatalogStep struct{}

func NewAssetCatalog() *AssetCatalogStep {
	return &AssetCatalogStep{}
}

func (s *AssetCatalogStep) Name() string {
	return "asset_catalog"
}

var unknownModel = Sentinel{Table: models.TableAssetModels, Column: "title"}

func (s *AssetCatalogStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	tables, err := kit.Inspector.DescribeAll(ctx, models.TableAssetTypes, models.TableBrands, models.TableAssetModels)
	if err != nil {
		return StateNotStarted, err
	}
	types, brands, assetModels := tables[models.TableAssetTypes], tables[models.TableBrands], tables[models.TableAssetModels]

	seeded := false
	if types.Exists() && brands.Exists() && assetModels.Has("title") {
		missing, err := kit.Seeds.Missing(ctx, kit.Store)
		if err != nil {
			return StateNotStarted, err
		}
		hasModel, err := kit.Seeds.HasSentinel(ctx, kit.Store, unknownModel)
		if err != nil {
			return StateNotStarted, err
		}
		seeded = missing == 0 && hasModel
	}
	return detectCatalog(types, brands, assetModels, seeded), nil
}

func (s *AssetCatalogStep) Apply(ctx context.Context, kit *Toolkit) error {
	if err := s.prepare(ctx, kit); err != nil {
		return failed(PhasePrepare, err)
	}

	state, err := s.Detect(ctx, kit)
	if err != nil {
		return failed(PhaseDetect, err)
	}

	switch state {
	case StateNotStarted:
		return failed(PhasePrepare, errors.New("catalog tables incomplete after prepare"))
	case StateSchemaPrepared:
		if err := s.backfill(ctx, kit); err != nil {
			return failed(PhaseBackfill, err)
		}
		fallthrough
	case StateDataBackfilled:
		for _, link := range catalogLinks {
			if _, err := kit.Constraints.SetNotNull(ctx, models.TableAssetModels, link.column); err != nil {
				return failed(PhaseTighten, err)
			}
			fk := schema.ForeignKey(models.TableAssetModels, link.column, link.ref, schema.ActionRestrict)
			if _, err := kit.Constraints.AddForeignKey(ctx, models.TableAssetModels, fk); err != nil {
				return failed(PhaseTighten, err)
			}
		}
	}
	return nil
}

func (s *AssetCatalogStep) prepare(ctx context.Context, kit *Toolkit) error {
	tables := []struct {
		name  string
		model any
	}{
		{models.TableAssetTypes, &models.AssetType{}},
		{models.TableBrands, &models.Brand{}},
		{models.TableAssetModels, &models.AssetModel{}},
	}
	for _, t := range tables {
		if _, err := kit.Constraints.EnsureTable(ctx, t.name, t.model); err != nil {
			return err
		}
	}

	// Catalog tables that predate these columns.
	columns := []struct {
		table string
		def   schema.ColumnDef
	}{
		{models.TableAssetTypes, schema.ColumnDef{Name: "description", Type: "text"}},
		{models.TableAssetModels, schema.ColumnDef{Name: "spec_summary", Type: "text"}},
		{models.TableAssetModels, schema.ColumnDef{Name: "asset_type_id", Type: foreignKeyType}},
		{models.TableAssetModels, schema.ColumnDef{Name: "brand_id", Type: foreignKeyType}},
	}
	for _, c := range columns {
		if _, err := kit.Constraints.AddColumn(ctx, c.table, c.def); err != nil {
			return err
		}
	}

	hasTitle, err := kit.Inspector.HasColumn(ctx, models.TableAssetModels, "title")
	if err != nil {
		return err
	}
	if !hasTitle {
		return fmt.Errorf("%s has no title column", models.TableAssetModels)
	}
	return nil
}

// backfill seeds the baseline rows, creates the Unknown model and points
// models without a type or brand at the Unknown ones.
func (s *AssetCatalogStep) backfill(ctx context.Context, kit *Toolkit) error {
	return kit.Store.WithTransaction(ctx, func(tx DataStore) error {
		if err := kit.Seeds.SeedReferenceData(ctx, tx); err != nil {
			return err
		}
		ids, err := unknownCatalogIDs(ctx, kit, tx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			ds := dialect.Update(models.TableAssetModels).
				Set(goqu.Record{id.Column: id.Value}).
				Where(goqu.C(id.Column).IsNull()).
				Prepared(true)
			filled, err := execStatement(ctx, tx, ds)
			if err != nil {
				return fmt.Errorf("fill %s.%s: %w", models.TableAssetModels, id.Column, err)
			}
			if filled > 0 {
				kit.Logger.Info("Pointed asset models at Unknown",
					zap.String("column", id.Column),
					zap.Int64("rows", filled),
				)
			}
		}

		model := unknownModel
		model.Extra = ids
		_, err = kit.Seeds.EnsureSentinel(ctx, tx, model)
		return err
	})
}
