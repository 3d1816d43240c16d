package migration

import (
	"context"

	"go.uber.org/zap"
)

// DefaultSteps returns the pipeline in dependency order: the catalog and its
// spec sheets first, then every assets foreign key, then tables hanging off
// assets.
func DefaultSteps() []Step {
	return []Step{
		NewAssetCatalog(),
		NewAssetSpecTable(),
		NewLocationNormalization(),
		NewExpressServiceTag(),
		NewOwnerNormalization(),
		NewAssetModelNormalization(),
		NewPurchaseType(),
		NewLegacyColumnRetirement(),
		NewAssetTable(),
		NewAssetMaintenanceTable(),
		NewAssetNoteTable(),
	}
}

type options struct {
	seeds *SeedSet
	steps []Step
}

type Option func(*options)

func WithSeedSet(seeds SeedSet) Option {
	return func(o *options) {
		o.seeds = &seeds
	}
}

func WithSteps(steps ...Step) Option {
	return func(o *options) {
		o.steps = steps
	}
}

// NewRunner wires a runner over store. Invalid seed data is reported as a
// *FatalError, like any other startup failure.
func NewRunner(store DataStore, logger *zap.Logger, opts ...Option) (*MigrationRunner, error) {
	o := options{steps: DefaultSteps()}
	for _, opt := range opts {
		opt(&o)
	}

	var seeds SeedSet
	if o.seeds != nil {
		seeds = o.seeds.Normalize()
		if err := seeds.Validate(); err != nil {
			return nil, &FatalError{Step: "seed_data", Phase: PhasePrepare, Err: err}
		}
	} else {
		var err error
		if seeds, err = DefaultSeedSet(); err != nil {
			return nil, &FatalError{Step: "seed_data", Phase: PhasePrepare, Err: err}
		}
	}

	return NewMigrationRunner(NewToolkit(store, seeds, logger), o.steps...), nil
}

// InitializeSchema brings the store to the current schema. It must finish
// before anything reads or writes assets.
func InitializeSchema(ctx context.Context, store DataStore, logger *zap.Logger, opts ...Option) error {
	runner, err := NewRunner(store, logger, opts...)
	if err != nil {
		return err
	}
	_, err = runner.Run(ctx)
	return err
}
