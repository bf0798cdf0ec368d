package checkpoint

import "errors"

var (
	// ErrInvalidPhase is returned by NewRecord for a phase outside the six
	// enumerated cascade phases.
	ErrInvalidPhase = errors.New("checkpoint: invalid phase")

	// ErrInvalidRound is returned by NewRecord for a negative round.
	ErrInvalidRound = errors.New("checkpoint: round must be >= 0")

	// ErrInvalidVectorCount is returned by NewRecord when the vector does
	// not flatten to exactly 13 entries.
	ErrInvalidVectorCount = errors.New("checkpoint: vector must flatten to 13 entries")

	// ErrTooLarge is returned by Append when the canonical-JSON-serialized
	// record exceeds MaxSerializedBytes.
	ErrTooLarge = errors.New("checkpoint: serialized record exceeds size budget")

	// ErrNotFound is returned by Latest when no checkpoint matches.
	ErrNotFound = errors.New("checkpoint: not found")

	// ErrUnknownAlias is returned by ResolveAlias for an alias with no
	// bookkeeping entry yet (e.g. no session has ever been active).
	ErrUnknownAlias = errors.New("checkpoint: alias has no resolution")
)
