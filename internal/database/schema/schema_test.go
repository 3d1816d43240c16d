package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyAssets() *ColumnSet {
	return NewColumnSet("assets",
		[]Column{
			{Name: "id", DataType: "int8"},
			{Name: "Location", DataType: "varchar", Nullable: true},
			{Name: "number", DataType: "varchar", Unique: true},
			{Name: "location_id", DataType: "int8", References: "locations", ForeignKey: "assets_location_fk"},
		},
		[]Constraint{{Name: "chk_assets_purchase_type", Kind: KindCheck}},
		[]Index{
			{Name: "assets_number_key", Columns: []string{"number"}, Unique: true, Constraint: "assets_number_key"},
			{Name: "idx_assets_location_id", Columns: []string{"location_id"}},
			{Name: "idx_assets_pair", Columns: []string{"number", "location_id"}, Unique: true},
		},
	)
}

func TestColumnSetLookupIsCaseInsensitive(t *testing.T) {
	cs := legacyAssets()

	c, ok := cs.Lookup("location")
	require.True(t, ok)
	assert.Equal(t, "Location", c.Name)
	assert.True(t, cs.Has("LOCATION"))
	assert.Equal(t, "Location", cs.ColumnName("location"))
	assert.Equal(t, "owner", cs.ColumnName("owner"))
	assert.False(t, cs.Has("owner"))
}

func TestNilColumnSetMeansAbsentTable(t *testing.T) {
	var cs *ColumnSet

	assert.False(t, cs.Exists())
	assert.False(t, cs.Has("id"))
	assert.False(t, cs.HasConstraint("anything"))
	assert.False(t, cs.ReferencesTable("location_id", "locations"))
	assert.Nil(t, cs.Columns())
	assert.Nil(t, cs.UniqueIndexesOn("name"))
}

func TestReferencesTableIgnoresConstraintName(t *testing.T) {
	cs := legacyAssets()

	assert.True(t, cs.ReferencesTable("LOCATION_ID", "Locations"))
	assert.False(t, cs.ReferencesTable("location_id", "owners"))
	assert.False(t, cs.ReferencesTable("number", "locations"))
}

func TestUniqueIndexesOnSingleColumnOnly(t *testing.T) {
	cs := legacyAssets()

	idx := cs.UniqueIndexesOn("number")
	require.Len(t, idx, 1)
	assert.Equal(t, "assets_number_key", idx[0].Constraint)
	assert.Empty(t, cs.UniqueIndexesOn("location_id"))
}

func TestHasConstraint(t *testing.T) {
	cs := legacyAssets()

	assert.True(t, cs.HasConstraint("CHK_ASSETS_PURCHASE_TYPE"))
	assert.False(t, cs.HasConstraint("fk_assets_owner_id_owners_id"))
}

func TestForeignKeyDefaults(t *testing.T) {
	fk := ForeignKey("assets", "owner_id", "owners", ActionRestrict)

	assert.Equal(t, "fk_assets_owner_id_owners_id", fk.Name)
	assert.Equal(t, KindForeignKey, fk.Kind)
	assert.Equal(t, []string{"owner_id"}, fk.Columns)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
	assert.Equal(t, ActionCascade, fk.OnUpdate)
	assert.Equal(t, ActionRestrict, fk.OnDelete)
}

func TestColumnDefDefinition(t *testing.T) {
	assert.Equal(t, "bigint NULL", ColumnDef{Name: "owner_id", Type: "bigint"}.Definition())
	assert.Equal(t, "varchar(64) NOT NULL", ColumnDef{Name: "tag", Type: "varchar(64)", NotNull: true}.Definition())
}
