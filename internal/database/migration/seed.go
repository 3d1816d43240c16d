package migration

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Gusify/QualgenAssets/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// UnknownName is the sentinel every reference table carries.
const UnknownName = "Unknown"

const seedSetVersion = 1

//go:embed seeds.yaml
var embeddedSeeds []byte

type SeedSet struct {
	Version    int      `yaml:"version"`
	AssetTypes []string `yaml:"asset_types"`
	Brands     []string `yaml:"brands"`
}

func DefaultSeedSet() (SeedSet, error) {
	return ParseSeedSet(embeddedSeeds)
}

func LoadSeedSet(path string) (SeedSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedSet{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeedSet(data)
}

// ParseSeedSet decodes data and returns it normalized and validated.
func ParseSeedSet(data []byte) (SeedSet, error) {
	var set SeedSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return SeedSet{}, fmt.Errorf("parse seed data: %w", err)
	}
	set = set.Normalize()
	if err := set.Validate(); err != nil {
		return SeedSet{}, err
	}
	return set, nil
}

// Normalize trims every name and appends the Unknown sentinel to lists that
// do not carry it. The receiver is not modified.
func (s SeedSet) Normalize() SeedSet {
	s.AssetTypes = withSentinel(s.AssetTypes)
	s.Brands = withSentinel(s.Brands)
	return s
}

func (s SeedSet) Validate() error {
	if s.Version != seedSetVersion {
		return fmt.Errorf("unsupported seed data version %d", s.Version)
	}
	if err := validateNames("asset_types", s.AssetTypes); err != nil {
		return err
	}
	return validateNames("brands", s.Brands)
}

func validateNames(list string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("seed data %s[%d]: blank name", list, i)
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("seed data %s: duplicate name %q", list, name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func withSentinel(names []string) []string {
	out := make([]string, 0, len(names)+1)
	hasUnknown := false
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == UnknownName {
			hasUnknown = true
		}
		out = append(out, name)
	}
	if !hasUnknown {
		out = append(out, UnknownName)
	}
	return out
}

// Sentinel identifies the Unknown row of one reference table. Extra holds
// the values of required columns besides the name; Prefer breaks ties when
// several rows are called Unknown. Both refer to the table through alias t.
type Sentinel struct {
	Table  string
	Column string
	Extra  []ColumnValue
	Prefer []exp.OrderedExpression
}

type ColumnValue struct {
	Column string
	Value  any
}

var errSentinelMissing = errors.New("sentinel row not found after insert")

type SeedDataProvider struct {
	seeds  SeedSet
	logger *zap.Logger
}

func NewSeedDataProvider(seeds SeedSet, logger *zap.Logger) *SeedDataProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedDataProvider{seeds: seeds, logger: logger}
}

func (p *SeedDataProvider) Seeds() SeedSet {
	return p.seeds
}

func (p *SeedDataProvider) seedTables() []struct {
	table string
	names []string
} {
	return []struct {
		table string
		names []string
	}{
		{models.TableAssetTypes, p.seeds.AssetTypes},
		{models.TableBrands, p.seeds.Brands},
	}
}

// Missing counts baseline names not present in the database. It only reads.
func (p *SeedDataProvider) Missing(ctx context.Context, store DataStore) (int, error) {
	inspector := NewSchemaInspector(store)
	missing := 0
	for _, seed := range p.seedTables() {
		exists, err := inspector.HasTable(ctx, seed.table)
		if err != nil {
			return 0, err
		}
		if !exists {
			missing += len(seed.names)
			continue
		}
		absent, err := absentNames(ctx, store, seed.table, seed.names)
		if err != nil {
			return 0, err
		}
		missing += len(absent)
	}
	return missing, nil
}

// SeedReferenceData inserts the baseline names that are not there yet.
func (p *SeedDataProvider) SeedReferenceData(ctx context.Context, store DataStore) error {
	inspector := NewSchemaInspector(store)
	for _, seed := range p.seedTables() {
		cs, err := inspector.Describe(ctx, seed.table)
		if err != nil {
			return err
		}
		if !cs.Exists() {
			return fmt.Errorf("seed %s: table does not exist", seed.table)
		}
		absent, err := absentNames(ctx, store, seed.table, seed.names)
		if err != nil {
			return err
		}
		if len(absent) == 0 {
			continue
		}

		rows := make([]interface{}, 0, len(absent))
		for _, name := range absent {
			record := goqu.Record{"name": name}
			stampRecord(record, timestampColumns(cs))
			rows = append(rows, record)
		}
		ds := dialect.Insert(seed.table).
			Rows(rows...).
			OnConflict(goqu.DoNothing()).
			Prepared(true)
		inserted, err := execStatement(ctx, store, ds)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seed.table, err)
		}
		p.logger.Info("Seeded reference data",
			zap.String("table", seed.table),
			zap.Int64("rows", inserted),
		)
	}
	return nil
}

// HasSentinel reports whether the Unknown row of target exists.
func (p *SeedDataProvider) HasSentinel(ctx context.Context, store DataStore, target Sentinel) (bool, error) {
	exists, err := NewSchemaInspector(store).HasTable(ctx, target.Table)
	if err != nil || !exists {
		return false, err
	}
	_, found, err := findSentinel(ctx, store, target)
	return found, err
}

// EnsureSentinel returns the id of the Unknown row, inserting it first when
// it is not there. An existing row always wins over a new insert.
func (p *SeedDataProvider) EnsureSentinel(ctx context.Context, store DataStore, target Sentinel) (uint, error) {
	id, found, err := findSentinel(ctx, store, target)
	if err != nil || found {
		return id, err
	}

	cs, err := NewSchemaInspector(store).Describe(ctx, target.Table)
	if err != nil {
		return 0, err
	}
	record := goqu.Record{target.Column: UnknownName}
	for _, extra := range target.Extra {
		record[extra.Column] = extra.Value
	}
	stampRecord(record, timestampColumns(cs))

	ds := dialect.Insert(target.Table).
		Rows(record).
		OnConflict(goqu.DoNothing()).
		Returning("id").
		Prepared(true)
	found, err = scanVal(ctx, store, &id, ds)
	if err != nil {
		return 0, fmt.Errorf("insert %s sentinel: %w", target.Table, err)
	}
	if found {
		p.logger.Info("Created sentinel row", zap.String("table", target.Table), zap.Uint("id", id))
		return id, nil
	}

	// ON CONFLICT swallowed the insert: somebody else holds the name.
	id, found, err = findSentinel(ctx, store, target)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", target.Table, errSentinelMissing)
	}
	return id, nil
}

func findSentinel(ctx context.Context, store DataStore, target Sentinel) (uint, bool, error) {
	order := append([]exp.OrderedExpression{}, target.Prefer...)
	order = append(order, goqu.T("t").Col("id").Asc())

	ds := dialect.From(goqu.T(target.Table).As("t")).
		Select(goqu.T("t").Col("id")).
		Where(goqu.T("t").Col(target.Column).Eq(UnknownName)).
		Order(order...).
		Limit(1).
		Prepared(true)

	var id uint
	found, err := scanVal(ctx, store, &id, ds)
	if err != nil {
		return 0, false, fmt.Errorf("look up %s sentinel: %w", target.Table, err)
	}
	return id, found, nil
}

func absentNames(ctx context.Context, store DataStore, table string, names []string) ([]string, error) {
	var existing []string
	ds := dialect.From(table).
		Select("name").
		Where(goqu.C("name").In(names)).
		Prepared(true)
	if err := scanVals(ctx, store, &existing, ds); err != nil {
		return nil, fmt.Errorf("read %s names: %w", table, err)
	}

	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}
	var absent []string
	for _, name := range names {
		if _, ok := present[name]; !ok {
			absent = append(absent, name)
		}
	}
	return absent, nil
}
