package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfig indicates an invalid or inconsistent configuration.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrInvalidState indicates a particle state with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDomainMismatch indicates a checkpoint recorded for another domain size.
	ErrDomainMismatch = errors.New("dynamo: domain size mismatch")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates two states with different particle counts.
	ErrDimensionMismatch = errors.New("dynamo: particle count mismatch")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
