package migration

import (
	"errors"
	"fmt"
)

// StepState is how far a step got, reconstructed from the live schema.
type StepState int

const (
	StateNotStarted StepState = iota
	StateSchemaPrepared
	StateDataBackfilled
	StateConstraintsTightened
	StateLegacyRetired
)

func (s StepState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateSchemaPrepared:
		return "schema-prepared"
	case StateDataBackfilled:
		return "data-backfilled"
	case StateConstraintsTightened:
		return "constraints-tightened"
	case StateLegacyRetired:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s StepState) Done() bool {
	return s == StateLegacyRetired
}

type Phase string

const (
	PhaseDetect   Phase = "detect"
	PhasePrepare  Phase = "prepare"
	PhaseBackfill Phase = "backfill"
	PhaseTighten  Phase = "tighten"
	PhaseRetire   Phase = "retire"
)

// FatalError aborts startup. The service must not serve traffic after one.
type FatalError struct {
	Step  string
	Phase Phase
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("migration step %q failed during %s: %v", e.Step, e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

type phaseError struct {
	phase Phase
	err   error
}

func (e *phaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.phase, e.err)
}

func (e *phaseError) Unwrap() error {
	return e.err
}

func failed(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &phaseError{phase: phase, err: err}
}

func phaseOf(err error, fallback Phase) (Phase, error) {
	var pe *phaseError
	if errors.As(err, &pe) {
		return pe.phase, pe.err
	}
	return fallback, err
}
