package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStep struct {
	name      string
	state     StepState
	detectErr error
	applyErr  error
	journal   *[]string
}

func (s *fakeStep) Name() string {
	return s.name
}

func (s *fakeStep) Detect(context.Context, *Toolkit) (StepState, error) {
	*s.journal = append(*s.journal, "detect:"+s.name)
	return s.state, s.detectErr
}

func (s *fakeStep) Apply(context.Context, *Toolkit) error {
	*s.journal = append(*s.journal, "apply:"+s.name)
	if s.applyErr != nil {
		return s.applyErr
	}
	s.state = StateLegacyRetired
	return nil
}

func newTestRunner(steps ...Step) *MigrationRunner {
	return NewMigrationRunner(NewToolkit(new(MockDataStore), SeedSet{}, zap.NewNop()), steps...)
}

func TestRunnerAppliesPendingStepsInOrder(t *testing.T) {
	var journal []string
	runner := newTestRunner(
		&fakeStep{name: "catalog", state: StateLegacyRetired, journal: &journal},
		&fakeStep{name: "locations", state: StateSchemaPrepared, journal: &journal},
		&fakeStep{name: "owners", state: StateNotStarted, journal: &journal},
	)

	results, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"detect:catalog",
		"detect:locations", "apply:locations",
		"detect:owners", "apply:owners",
	}, journal)
	require.Len(t, results, 3)
	assert.False(t, results[0].Applied)
	assert.True(t, results[1].Applied)
	assert.Equal(t, StateSchemaPrepared, results[1].From)
	assert.Equal(t, StateNotStarted, results[2].From)
}

func TestRunnerIsIdempotent(t *testing.T) {
	var journal []string
	runner := newTestRunner(
		&fakeStep{name: "locations", state: StateNotStarted, journal: &journal},
	)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	journal = nil

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"detect:locations"}, journal)
	assert.False(t, results[0].Applied)
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name  string
		step  *fakeStep
		phase Phase
	}{
		{
			name:  "detect failure",
			step:  &fakeStep{name: "owners", detectErr: cause},
			phase: PhaseDetect,
		},
		{
			name:  "backfill failure",
			step:  &fakeStep{name: "owners", applyErr: failed(PhaseBackfill, cause)},
			phase: PhaseBackfill,
		},
		{
			name:  "untagged apply failure",
			step:  &fakeStep{name: "owners", applyErr: cause},
			phase: PhasePrepare,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var journal []string
			tt.step.journal = &journal
			after := &fakeStep{name: "models", journal: &journal}

			_, err := newTestRunner(tt.step, after).Run(context.Background())
			require.Error(t, err)

			var fatal *FatalError
			require.True(t, errors.As(err, &fatal))
			assert.Equal(t, "owners", fatal.Step)
			assert.Equal(t, tt.phase, fatal.Phase)
			assert.ErrorIs(t, err, cause)
			assert.True(t, IsFatal(err))
			assert.NotContains(t, journal, "detect:models")
		})
	}
}

func TestRunnerStatusDoesNotApply(t *testing.T) {
	var journal []string
	runner := newTestRunner(
		&fakeStep{name: "catalog", state: StateLegacyRetired, journal: &journal},
		&fakeStep{name: "owners", state: StateDataBackfilled, journal: &journal},
	)

	statuses, err := runner.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []StepStatus{
		{Name: "catalog", State: StateLegacyRetired},
		{Name: "owners", State: StateDataBackfilled},
	}, statuses)
	assert.Equal(t, []string{"detect:catalog", "detect:owners"}, journal)
	assert.Equal(t, []string{"catalog", "owners"}, runner.Steps())
}

func TestStepStateString(t *testing.T) {
	assert.Equal(t, "not-started", StateNotStarted.String())
	assert.Equal(t, "complete", StateLegacyRetired.String())
	assert.True(t, StateLegacyRetired.Done())
	assert.False(t, StateConstraintsTightened.Done())
}

func TestFatalErrorMessage(t *testing.T) {
	err := &FatalError{Step: "owner_normalization", Phase: PhaseBackfill, Err: errors.New("deadlock detected")}
	assert.Equal(t, `migration step "owner_normalization" failed during backfill: deadlock detected`, err.Error())
}

func TestDefaultStepOrder(t *testing.T) {
	runner := NewMigrationRunner(nil, DefaultSteps()...)
	assert.Equal(t, []string{
		"asset_catalog",
		"asset_specs_table",
		"location_normalization",
		"express_service_tag",
		"owner_normalization",
		"asset_model_normalization",
		"purchase_type",
		"legacy_column_retirement",
		"assets_table",
		"asset_maintenances_table",
		"asset_notes_table",
	}, runner.Steps())
}

func TestNewRunnerNormalizesSeedSet(t *testing.T) {
	runner, err := NewRunner(new(MockDataStore), zap.NewNop(), WithSeedSet(SeedSet{
		Version:    1,
		AssetTypes: []string{"  Phone ", "Laptop"},
		Brands:     []string{"Nokia\t"},
	}))
	require.NoError(t, err)

	seeds := runner.kit.Seeds.Seeds()
	assert.Equal(t, []string{"Phone", "Laptop", UnknownName}, seeds.AssetTypes)
	assert.Equal(t, []string{"Nokia", UnknownName}, seeds.Brands)
}

func TestNewRunnerRejectsInvalidSeedSet(t *testing.T) {
	tests := []struct {
		name  string
		seeds SeedSet
	}{
		{name: "blank after trimming", seeds: SeedSet{Version: 1, Brands: []string{"Dell", "   "}}},
		{name: "duplicate after trimming", seeds: SeedSet{Version: 1, AssetTypes: []string{"Laptop", " laptop"}}},
		{name: "unsupported version", seeds: SeedSet{Version: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(new(MockDataStore), zap.NewNop(), WithSeedSet(tt.seeds))

			var fatal *FatalError
			require.ErrorAs(t, err, &fatal)
			assert.Equal(t, "seed_data", fatal.Step)
			assert.Equal(t, PhasePrepare, fatal.Phase)
		})
	}
}
