// Package cascade implements the Cascade State Machine (spec.md §4.4): the
// core integration point that sequences PREFLIGHT, an optional THINK, zero
// or more INVESTIGATE rounds, CHECK, ACT, and POSTFLIGHT for one agent in
// one session, calling the assessment parser and LM at each phase, blending
// persona priors, writing a checkpoint at every transition, and computing
// the final calibration accuracy.
package cascade

import "sync"

// Phase is one of the six cascade phases. Values match
// pkg/checkpoint.Phase* and pkg/persona.Phase exactly so a Phase converts
// directly to either without translation.
type Phase string

const (
	PhasePreflight   Phase = "PREFLIGHT"
	PhaseThink       Phase = "THINK"
	PhaseInvestigate Phase = "INVESTIGATE"
	PhaseCheck       Phase = "CHECK"
	PhaseAct         Phase = "ACT"
	PhasePostflight  Phase = "POSTFLIGHT"
)

// Status is the cascade's terminal outcome.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusBlocked   Status = "BLOCKED"
	StatusEscalated Status = "ESCALATED"
	StatusFaulted   Status = "FAULTED"
	StatusCanceled  Status = "CANCELED"
)

// CancelToken is a cooperative cancellation signal consulted only at phase
// boundaries (spec.md §4.4/§5): cancellation mid-phase is not supported, so
// Run never checks it inside a phase's own LM-call-and-checkpoint sequence.
type CancelToken struct {
	once sync.Once
	ch   chan struct{}
}

// NewCancelToken constructs an uncanceled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Cancel signals the token. Safe to call more than once or concurrently.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.ch) })
}

// IsCanceled reports whether Cancel has been called.
func (t *CancelToken) IsCanceled() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}
