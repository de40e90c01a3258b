package dynamo

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a point with NaN or Inf position or velocity.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates a configuration the engine cannot run.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrEmptyDomain indicates every point has left the domain.
	ErrEmptyDomain = errors.New("dynamo: no points left in domain")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Points  int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
