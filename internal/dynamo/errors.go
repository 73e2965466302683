package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors. Every failure surfaced by this module is classifiable with
// errors.Is against exactly one of ErrResource, ErrConfiguration or ErrEngine.
var (
	// ErrResource indicates the robot description is missing or malformed.
	ErrResource = errors.New("dynamo: description resource unavailable")

	// ErrConfiguration indicates an invalid scenario or drive configuration.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrEngine indicates a failure inside the physics or render collaborators.
	ErrEngine = errors.New("dynamo: engine failure")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a joint vector whose length differs from
	// the number of active joints.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between vector and active joints")

	// ErrSingularMassMatrix indicates the joint-space inertia could not be factorized.
	ErrSingularMassMatrix = errors.New("dynamo: mass matrix is not positive definite")
)

// DimensionError reports a joint vector of the wrong length. It matches both
// ErrDimensionMismatch and ErrConfiguration.
type DimensionError struct {
	What string
	Got  int
	Want int
}

func NewDimensionError(what string, got, want int) *DimensionError {
	return &DimensionError{What: what, Got: got, Want: want}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s has %d entries, body has %d active joints", e.What, e.Got, e.Want)
}

func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch || target == ErrConfiguration
}

// SimulationError wraps an engine failure with the sub-step it happened on.
type SimulationError struct {
	Step    int
	Time    float64
	State   Vector
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// EngineError classifies err as an engine failure unless it already carries
// one of the domain classes.
func EngineError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEngine) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrResource) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEngine, err)
}
