package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVector indicates a vector failed a structural or range
	// invariant during construction from parsed input.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrUnknownComponent indicates a name that resolves to none of the
	// thirteen canonical components or their conceptual aliases.
	ErrUnknownComponent = errors.New("unknown component name")
)

// InvalidVectorError wraps ErrInvalidVector with the offending component and
// reason, mirroring the config package's ValidationError shape.
type InvalidVectorError struct {
	Component string // empty when the failure is not component-scoped
	Reason    string
	Err       error
}

func (e *InvalidVectorError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("invalid vector: component %q: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("invalid vector: %s", e.Reason)
}

func (e *InvalidVectorError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidVector
}

func newInvalidVectorError(component, reason string) *InvalidVectorError {
	return &InvalidVectorError{Component: component, Reason: reason, Err: ErrInvalidVector}
}
