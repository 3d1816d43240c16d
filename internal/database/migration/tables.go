package migration

import (
	"context"

	"github.com/Gusify/QualgenAssets/internal/database/schema"
	"github.com/Gusify/QualgenAssets/pkg/models"

	"go.uber.org/zap"
)

type tableLink struct {
	Column   string
	Ref      string
	OnDelete string
}

type tableShape struct {
	Table string
	// Columns are added to an existing table that predates them.
	Columns []schema.ColumnDef
	Links   []tableLink
	Checks  []schema.ConstraintDef
}

var timestampDefs = []schema.ColumnDef{
	{Name: columnCreatedAt, Type: "timestamptz"},
	{Name: columnUpdatedAt, Type: "timestamptz"},
}

// foreignLinks returns the links whose column the table does not have. Such a
// table belongs to another schema lineage and is left alone.
func (s tableShape) foreignLinks(cs *schema.ColumnSet) []tableLink {
	var out []tableLink
	for _, link := range s.Links {
		if !cs.Has(link.Column) {
			out = append(out, link)
		}
	}
	return out
}

func detectTable(cs *schema.ColumnSet, shape tableShape) StepState {
	if !cs.Exists() {
		return StateNotStarted
	}
	for _, col := range shape.Columns {
		if !cs.Has(col.Name) {
			return StateSchemaPrepared
		}
	}
	for _, link := range shape.Links {
		if cs.Has(link.Column) && !cs.ReferencesTable(link.Column, link.Ref) {
			return StateDataBackfilled
		}
	}
	for _, check := range shape.Checks {
		if !cs.HasConstraint(check.Name) {
			return StateDataBackfilled
		}
	}
	return StateLegacyRetired
}

// TableStep creates a table in its final shape and attaches its foreign keys.
type TableStep struct {
	name  string
	shape tableShape
	model any
}

// NewAssetTable creates assets on databases that never had one. On legacy
// databases the normalization steps have already shaped it.
func NewAssetTable() *TableStep {
	return &TableStep{
		name: "assets_table",
		shape: tableShape{
			Table:   models.TableAssets,
			Columns: timestampDefs,
			Links: []tableLink{
				{Column: "asset_model_id", Ref: models.TableAssetModels, OnDelete: schema.ActionRestrict},
				{Column: "location_id", Ref: models.TableLocations, OnDelete: schema.ActionRestrict},
				{Column: "owner_id", Ref: models.TableOwners, OnDelete: schema.ActionRestrict},
			},
			Checks: []schema.ConstraintDef{purchaseTypeConstraint()},
		},
		model: &models.Asset{},
	}
}

func NewAssetMaintenanceTable() *TableStep {
	return &TableStep{
		name: "asset_maintenances_table",
		shape: tableShape{
			Table: models.TableAssetMaintenances,
			Links: []tableLink{
				{Column: "asset_id", Ref: models.TableAssets, OnDelete: schema.ActionCascade},
			},
		},
		model: &models.AssetMaintenance{},
	}
}

// NewAssetSpecTable holds the specification lines of asset models. It only
// depends on the catalog.
func NewAssetSpecTable() *TableStep {
	return &TableStep{
		name: "asset_specs_table",
		shape: tableShape{
			Table:   models.TableAssetSpecs,
			Columns: timestampDefs,
			Links: []tableLink{
				{Column: "asset_model_id", Ref: models.TableAssetModels, OnDelete: schema.ActionCascade},
			},
		},
		model: &models.AssetSpec{},
	}
}

// NewAssetNoteTable attaches notes to assets. A notes table from the lineage
// that hung them off asset models keeps its shape.
func NewAssetNoteTable() *TableStep {
	return &TableStep{
		name: "asset_notes_table",
		shape: tableShape{
			Table: models.TableAssetNotes,
			Links: []tableLink{
				{Column: "asset_id", Ref: models.TableAssets, OnDelete: schema.ActionCascade},
			},
		},
		model: &models.AssetNote{},
	}
}

func (s *TableStep) Name() string {
	return s.name
}

func (s *TableStep) Detect(ctx context.Context, kit *Toolkit) (StepState, error) {
	cs, err := kit.Inspector.Describe(ctx, s.shape.Table)
	if err != nil {
		return StateNotStarted, err
	}
	if cs.Exists() {
		for _, link := range s.shape.foreignLinks(cs) {
			kit.Logger.Warn("Table has no link column, leaving it untouched",
				zap.String("table", s.shape.Table),
				zap.String("column", link.Column),
			)
		}
	}
	return detectTable(cs, s.shape), nil
}

func (s *TableStep) Apply(ctx context.Context, kit *Toolkit) error {
	if _, err := kit.Constraints.EnsureTable(ctx, s.shape.Table, s.model); err != nil {
		return failed(PhasePrepare, err)
	}
	for _, col := range s.shape.Columns {
		if _, err := kit.Constraints.AddColumn(ctx, s.shape.Table, col); err != nil {
			return failed(PhasePrepare, err)
		}
	}
	cs, err := kit.Inspector.Describe(ctx, s.shape.Table)
	if err != nil {
		return failed(PhaseDetect, err)
	}

	for _, link := range s.shape.Links {
		if !cs.Has(link.Column) {
			continue
		}
		fk := schema.ForeignKey(s.shape.Table, link.Column, link.Ref, link.OnDelete)
		if _, err := kit.Constraints.AddForeignKey(ctx, s.shape.Table, fk); err != nil {
			return failed(PhaseTighten, err)
		}
	}
	for _, check := range s.shape.Checks {
		if _, err := kit.Constraints.AddCheck(ctx, s.shape.Table, check); err != nil {
			return failed(PhaseTighten, err)
		}
	}
	return nil
}
