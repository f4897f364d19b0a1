package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation and control operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrNonConvergence indicates the horizon solve stopped before meeting its
	// optimality tolerance (iteration budget, timeout or line-search failure).
	ErrNonConvergence = errors.New("dynamo: horizon solve did not converge")

	// ErrNumericalDomain indicates an adaptive weight could not be computed.
	ErrNumericalDomain = errors.New("dynamo: numerical domain error in cost weights")

	// ErrConstraintViolation indicates a solved control outside its box bounds.
	ErrConstraintViolation = errors.New("dynamo: control outside declared bounds")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// SolveError reports a solve that ended without convergence.
type SolveError struct {
	Status     string
	Iterations int
	KKTError   float64
	Wrapped    error
}

func (e *SolveError) Error() string {
	msg := fmt.Sprintf("%v: %s after %d iterations (kkt error %.3g)", ErrNonConvergence, e.Status, e.Iterations, e.KKTError)
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *SolveError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{ErrNonConvergence}
	}
	return []error{ErrNonConvergence, e.Wrapped}
}

// DomainError reports an input for which an adaptive weight is undefined.
type DomainError struct {
	Field string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%v: %s = %g", ErrNumericalDomain, e.Field, e.Value)
}

func (e *DomainError) Unwrap() error { return ErrNumericalDomain }

// BoundError reports a solved control component outside its box.
type BoundError struct {
	Step      int
	Component string
	Value     float64
	Lower     float64
	Upper     float64
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("%v: step %d %s = %g not in [%g, %g]", ErrConstraintViolation, e.Step, e.Component, e.Value, e.Lower, e.Upper)
}

func (e *BoundError) Unwrap() error { return ErrConstraintViolation }
