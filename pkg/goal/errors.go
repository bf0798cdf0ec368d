package goal

import "errors"

var (
	// ErrNotFound is returned when a goal id has no record.
	ErrNotFound = errors.New("goal: not found")

	// ErrUnknownDependency is returned by AddSubtask when a dependency id
	// does not already exist on the goal.
	ErrUnknownDependency = errors.New("goal: unknown dependency subtask id")

	// ErrUnmetDependency is returned by CompleteSubtask when one of the
	// subtask's declared dependencies is not yet completed.
	ErrUnmetDependency = errors.New("goal: dependency not yet completed")

	// ErrSubtaskNotFound is returned by CompleteSubtask for an unknown
	// subtask id.
	ErrSubtaskNotFound = errors.New("goal: subtask not found")

	// ErrCriteriaUnmet is returned by MarkComplete when at least one
	// success criterion is not yet met.
	ErrCriteriaUnmet = errors.New("goal: success criteria not all met")
)
