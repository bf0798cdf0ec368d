package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedReply indicates the LM's reply was not valid JSON once
	// fenced-code wrappers were stripped.
	ErrMalformedReply = errors.New("assessment reply is not valid JSON")

	// ErrMissingComponent indicates fewer than thirteen scored components
	// remained after normalizing the reply's shape.
	ErrMissingComponent = errors.New("assessment reply is missing a component")

	// ErrOutOfRange indicates a score or priority fell outside its valid
	// bounds.
	ErrOutOfRange = errors.New("assessment value out of range")

	// ErrInconsistentFlags indicates warrants_investigation was true while
	// investigation_priority was 0.
	ErrInconsistentFlags = errors.New("assessment flags are inconsistent")
)

// MalformedReplyError wraps ErrMalformedReply with the underlying decode
// failure.
type MalformedReplyError struct {
	Err error
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed reply: %v", e.Err)
}

func (e *MalformedReplyError) Unwrap() error { return ErrMalformedReply }

// MissingComponentError names the component absent from the normalized
// reply.
type MissingComponentError struct {
	Name string
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("missing component %q", e.Name)
}

func (e *MissingComponentError) Unwrap() error { return ErrMissingComponent }

// OutOfRangeError names the component and the offending value.
type OutOfRangeError struct {
	Name  string
	Field string
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("component %q: %s %v out of range", e.Name, e.Field, e.Value)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// InconsistentFlagsError names the component whose flags disagree.
type InconsistentFlagsError struct {
	Name string
}

func (e *InconsistentFlagsError) Error() string {
	return fmt.Sprintf("component %q: warrants_investigation true with priority 0", e.Name)
}

func (e *InconsistentFlagsError) Unwrap() error { return ErrInconsistentFlags }
