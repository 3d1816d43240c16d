package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"go.uber.org/zap"
)

const foreignKeyType = "bigint"

// normalizationShape is what detection needs to know about a normalization.
type normalizationShape struct {
	Legacy       string
	ForeignKey   string
	Target       string
	TargetColumn string
	// Retire drops Legacy once the foreign key is tightened.
	Retire bool
	// Ready reports whether the destination table is fit for backfill. When
	// nil the table only has to exist with TargetColumn.
	Ready func(target *schema.ColumnSet) bool
}

func (s normalizationShape) targetReady(target *schema.ColumnSet) bool {
	if !target.Exists() || !target.Has(s.TargetColumn) {
		return false
	}
	return s.Ready == nil || s.Ready(target)
}

// detectNormalization maps the assets and destination tables to a state.
// Without an assets table there is nothing to normalize; the assets table
// step creates it in its final shape.
func detectNormalization(assets, target *schema.ColumnSet, shape normalizationShape) StepState {
	if !shape.targetReady(target) {
		return StateNotStarted
	}
	if !assets.Exists() {
		return StateLegacyRetired
	}
	fk, ok := assets.Lookup(shape.ForeignKey)
	if !ok {
		return StateNotStarted
	}
	if fk.Nullable {
		return StateSchemaPrepared
	}
	if !assets.ReferencesTable(fk.Name, shape.Target) {
		return StateDataBackfilled
	}
	if shape.Retire && assets.Has(shape.Legacy) {
		return StateConstraintsTightened
	}
	return StateLegacyRetired
}

// NormalizationStep replaces a free-text assets column with a foreign key
// into a deduplicated reference table.
type NormalizationStep struct {
	name     string
	shape    normalizationShape
	model    any
	onDelete string
	prefer   []exp.OrderedExpression
	// prepare runs after the destination table is ensured.
	prepare func(ctx context.Context, kit *Toolkit) error
	// constants resolves extra required columns of destination rows.
	constants func(ctx context.Context, kit *Toolkit, tx DataStore) ([]ColumnValue, error)
}

func NewLocationNormalization() *NormalizationStep {
	return &NormalizationStep{
		name: "location_normalization",
		shape: normalizationShape{
			Legacy:       "location",
			ForeignKey:   "location_id",
			Target:       models.TableLocations,
			TargetColumn: "name",
			Retire:       true,
			Ready: func(target *schema.ColumnSet) bool {
				return target.Has("room") && len(target.UniqueIndexesOn("name")) == 0
			},
		},
		model:    &models.Location{},
		onDelete: schema.ActionRestrict,
		prefer:   []exp.OrderedExpression{goqu.L("? IS NULL", goqu.T("t").Col("room")).Desc()},
		prepare: func(ctx context.Context, kit *Toolkit) error {
			if _, err := kit.Constraints.AddColumn(ctx, models.TableLocations,
				schema.ColumnDef{Name: "room", Type: "varchar(255)"}); err != nil {
				return err
			}
			_, err := kit.Constraints.RemoveUniqueIndex(ctx, models.TableLocations, "name")
			return err
		},
	}
}

func NewOwnerNormalization() *NormalizationStep {
	return &NormalizationStep{
		name: "owner_normalization",
		shape: normalizationShape{
			Legacy:       "owner",
			ForeignKey:   "owner_id",
			Target:       models.TableOwners,
			TargetColumn: "name",
			Retire:       true,
		},
		model:    &models.Owner{},
		onDelete: schema.ActionRestrict,
	}
}

// NewAssetModelNormalization turns the legacy asset name into an asset model.
// The name column outlives this step; LegacyColumnRetirement drops it.
func NewAssetModelNormalization() *NormalizationStep {
	return &NormalizationStep{
		name: "asset_model_normalization",
		shape: normalizationShape{
			Legacy:       "name",
			ForeignKey:   "asset_model_id",
			Target:       models.TableAssetModels,
			TargetColumn: "title",
		},
		model:     &models.AssetModel{},
		onDelete:  schema.ActionRestrict,
		constants: unknownCatalogIDs,
	}
}

func unknownCatalogIDs(ctx context.Context, kit *Toolkit, tx DataStore) ([]ColumnValue, error) {
	typeID, err := kit.Seeds.EnsureSentinel(ctx, tx, Sentinel{Table: models.TableAssetTypes, Column: "name"})
	if err != nil {
		return nil, err
	}
	brandID, err := kit.Seeds.EnsureSentinel(ctx, tx, Sentinel{Table: models.TableBrands, Column: "name"})
	if err != nil {
		return nil, err
	}
	return []ColumnValue{
		{Column: "asset_type_id", Value: typeID},
		{Column: "brand_id", Value: brandID},
	}, nil
}

func (s *NormalizationStep) Name() string {
	return s.name
}

func (s *NormalizationStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	assets, target, err := s.describe(ctx, kit.Inspector)
	if err != nil {
		return StateNotStarted, err
	}
	return detectNormalization(assets, target, s.shape), nil
}

func (s *NormalizationStep) describe(ctx context.Context, inspector *SchemaInspector) (*schema.ColumnSet, *schema.ColumnSet, error) {
	tables, err := inspector.DescribeAll(ctx, models.TableAssets, s.shape.Target)
	if err != nil {
		return nil, nil, err
	}
	return tables[models.TableAssets], tables[s.shape.Target], nil
}

func (s *NormalizationStep) Apply(ctx context.Context, kit *Toolkit) error {
	if _, err := kit.Constraints.EnsureTable(ctx, s.shape.Target, s.model); err != nil {
		return failed(PhasePrepare, err)
	}
	if s.prepare != nil {
		if err := s.prepare(ctx, kit); err != nil {
			return failed(PhasePrepare, err)
		}
	}

	assets, target, err := s.describe(ctx, kit.Inspector)
	if err != nil {
		return failed(PhaseDetect, err)
	}
	if !s.shape.targetReady(target) {
		return failed(PhasePrepare, fmt.Errorf("%s is not ready for backfill", s.shape.Target))
	}
	state := detectNormalization(assets, target, s.shape)
	log := kit.Logger.With(zap.String("step", s.name))

	switch state {
	case StateNotStarted:
		if _, err := kit.Constraints.AddColumn(ctx, models.TableAssets,
			schema.ColumnDef{Name: s.shape.ForeignKey, Type: foreignKeyType}); err != nil {
			return failed(PhasePrepare, err)
		}
		fallthrough
	case StateSchemaPrepared:
		if err := s.backfill(ctx, kit, log); err != nil {
			return failed(PhaseBackfill, err)
		}
		fallthrough
	case StateDataBackfilled:
		if _, err := kit.Constraints.SetNotNull(ctx, models.TableAssets, s.shape.ForeignKey); err != nil {
			return failed(PhaseTighten, err)
		}
		fk := schema.ForeignKey(models.TableAssets, s.shape.ForeignKey, s.shape.Target, s.onDelete)
		if _, err := kit.Constraints.AddForeignKey(ctx, models.TableAssets, fk); err != nil {
			return failed(PhaseTighten, err)
		}
		fallthrough
	case StateConstraintsTightened:
		if s.shape.Retire {
			if _, err := kit.Constraints.RemoveColumn(ctx, models.TableAssets, s.shape.Legacy); err != nil {
				return failed(PhaseRetire, err)
			}
		}
	}
	return nil
}

func (s *NormalizationStep) backfill(ctx context.Context, kit *Toolkit, log *zap.Logger) error {
	return kit.Store.WithTransaction(ctx, func(tx DataStore) error {
		assets, target, err := s.describe(ctx, NewSchemaInspector(tx))
		if err != nil {
			return err
		}

		var constants []ColumnValue
		if s.constants != nil {
			if constants, err = s.constants(ctx, kit, tx); err != nil {
				return err
			}
		}
		sentinelID, err := kit.Seeds.EnsureSentinel(ctx, tx, Sentinel{
			Table:  s.shape.Target,
			Column: target.ColumnName(s.shape.TargetColumn),
			Extra:  constants,
			Prefer: s.prefer,
		})
		if err != nil {
			return err
		}

		n := normalization{
			ForeignKey:   assets.ColumnName(s.shape.ForeignKey),
			Target:       s.shape.Target,
			TargetColumn: target.ColumnName(s.shape.TargetColumn),
			Constants:    constants,
			Timestamps:   timestampColumns(target),
			Prefer:       s.prefer,
		}
		if assets.Has(s.shape.Legacy) {
			n.Legacy = assets.ColumnName(s.shape.Legacy)
		}

		counts, err := n.run(ctx, tx, sentinelID)
		if err != nil {
			return err
		}
		log.Info("Backfilled foreign key",
			zap.String("column", s.shape.ForeignKey),
			zap.Int64("inserted", counts.Inserted),
			zap.Int64("linked", counts.Linked),
			zap.Int64("fallback", counts.Fallback),
		)
		return nil
	})
}
