package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulator operations.
var (
	// ErrParameterBounds indicates a parameter value is outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates SetParam was called with an unrecognised name.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrUnknownStrategy indicates a strategy name that does not parse.
	ErrUnknownStrategy = errors.New("dynamo: unknown strategy")

	// ErrInvalidState indicates NaN or Inf in particle state.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// ParamError reports which parameter was rejected and why.
type ParamError struct {
	Name    string
	Value   float64
	Wrapped error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%g", e.Wrapped, e.Name, e.Value)
}

func (e *ParamError) Unwrap() error {
	return e.Wrapped
}
