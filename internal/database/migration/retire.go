package migration

import (
	"context"
	"fmt"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"
)

// legacyAssetColumns are the free-text identity columns of the flat assets
// table. Their content lives in asset models once normalization is done.
var legacyAssetColumns = []string{"number", "name"}

func detectRetirement(assets *schema.ColumnSet) StepState {
	if !assets.Exists() {
		return StateLegacyRetired
	}
	for _, col := range legacyAssetColumns {
		if assets.Has(col) {
			return StateConstraintsTightened
		}
	}
	return StateLegacyRetired
}

// modelLinkTightened reports whether every asset is guaranteed to point at an
// asset model, which is what makes dropping the legacy name safe.
func modelLinkTightened(assets *schema.ColumnSet) bool {
	col, ok := assets.Lookup("asset_model_id")
	return ok && !col.Nullable && assets.ReferencesTable(col.Name, models.TableAssetModels)
}

type LegacyColumnRetirementStep struct{}

func NewLegacyColumnRetirement() *LegacyColumnRetirementStep {
	return &LegacyColumnRetirementStep{}
}

func (s *LegacyColumnRetirementStep) Name() string {
	return "legacy_column_retirement"
}

func (s *LegacyColumnRetirementStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	assets, err := kit.Inspector.Describe(ctx, models.TableAssets)
	if err != nil {
		return StateNotStarted, err
	}
	return detectRetirement(assets), nil
}

func (s *LegacyColumnRetirementStep) Apply(ctx context.Context, kit *Toolkit) error {
	assets, err := kit.Inspector.Describe(ctx, models.TableAssets)
	if err != nil {
		return failed(PhaseDetect, err)
	}
	if detectRetirement(assets).Done() {
		return nil
	}
	if !modelLinkTightened(assets) {
		return failed(PhaseRetire, fmt.Errorf("refusing to drop %v before asset_model_id references %s",
			legacyAssetColumns, models.TableAssetModels))
	}

	for _, col := range legacyAssetColumns {
		if _, err := kit.Constraints.RemoveColumn(ctx, models.TableAssets, col); err != nil {
			return failed(PhaseRetire, err)
		}
	}
	return nil
}
