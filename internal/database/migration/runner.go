// Package migration evolves the asset schema in place on every start. Steps
// never consult a version table: each one reads the live schema, works out
// how far it got last time and resumes from there.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one forward-only, idempotent unit of schema change.
type Step interface {
	Name() string
	// Detect inspects the store without mutating it.
	Detect(ctx context.Context, kit *Toolkit) (StepState, error)
	// Apply drives the schema from whatever state it is in to StateLegacyRetired.
	Apply(ctx context.Context, kit *Toolkit) error
}

// Toolkit bundles the collaborators every step works with.
type Toolkit struct {
	Store       DataStore
	Inspector   *SchemaInspector
	Constraints *ConstraintManager
	Seeds       *SeedDataProvider
	Logger      *zap.Logger
}

func NewToolkit(store DataStore, seeds SeedSet, logger *zap.Logger) *Toolkit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolkit{
		Store:       store,
		Inspector:   NewSchemaInspector(store),
		Constraints: NewConstraintManager(store, logger),
		Seeds:       NewSeedDataProvider(seeds, logger),
		Logger:      logger,
	}
}

type StepResult struct {
	Name     string
	From     StepState
	Applied  bool
	Duration time.Duration
}

type StepStatus struct {
	Name  string
	State StepState
}

// MigrationRunner executes steps strictly in order, one at a time.
type MigrationRunner struct {
	kit   *Toolkit
	steps []Step
}

func NewMigrationRunner(kit *Toolkit, steps ...Step) *MigrationRunner {
	return &MigrationRunner{kit: kit, steps: steps}
}

func (r *MigrationRunner) Steps() []string {
	names := make([]string, 0, len(r.steps))
	for _, s := range r.steps {
		names = append(names, s.Name())
	}
	return names
}

// Run applies every pending step. The first failure stops the run and comes
// back as a *FatalError.
func (r *MigrationRunner) Run(ctx context.Context) ([]StepResult, error) {
	log := r.kit.Logger
	log.Info("Running schema migration", zap.Int("steps", len(r.steps)))
	started := time.Now()

	results := make([]StepResult, 0, len(r.steps))
	for _, step := range r.steps {
		result, err := r.runStep(ctx, step)
		if err != nil {
			log.Error("Schema migration aborted", zap.String("step", step.Name()), zap.Error(err))
			return results, err
		}
		results = append(results, result)
	}

	log.Info("Schema migration finished", zap.Duration("took", time.Since(started)))
	return results, nil
}

func (r *MigrationRunner) runStep(ctx context.Context, step Step) (StepResult, error) {
	log := r.kit.Logger.With(zap.String("step", step.Name()))
	result := StepResult{Name: step.Name()}

	state, err := step.Detect(ctx, r.kit)
	if err != nil {
		return result, &FatalError{Step: step.Name(), Phase: PhaseDetect, Err: err}
	}
	result.From = state

	if state.Done() {
		log.Debug("Step already applied")
		return result, nil
	}

	log.Info("Applying step", zap.Stringer("from", state))
	started := time.Now()
	if err := step.Apply(ctx, r.kit); err != nil {
		phase, cause := phaseOf(err, PhasePrepare)
		return result, &FatalError{Step: step.Name(), Phase: phase, Err: cause}
	}
	result.Applied = true
	result.Duration = time.Since(started)
	log.Info("Step applied", zap.Duration("took", result.Duration))

	return result, nil
}

// Status reports the detected state of every step without changing anything.
func (r *MigrationRunner) Status(ctx context.Context) ([]StepStatus, error) {
	statuses := make([]StepStatus, 0, len(r.steps))
	for _, step := range r.steps {
		state, err := step.Detect(ctx, r.kit)
		if err != nil {
			return nil, fmt.Errorf("detect %s: %w", step.Name(), err)
		}
		statuses = append(statuses, StepStatus{Name: step.Name(), State: state})
	}
	return statuses, nil
}

// IsFatal reports whether err came out of the runner.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
