// Package checkpoint implements the Checkpoint Store (spec.md §4.5):
// append-only, content-addressed vector-plus-metadata records written as
// side-notes on VCS commits via pkg/vcsnotes, with a secondary session→
// checkpoint-ids index held in pkg/sessionstore.
package checkpoint

import (
	"fmt"
	"math"
	"time"

	"github.com/nubaeon/empirica/pkg/vector"
)

// MaxSerializedBytes is the checkpoint size budget spec.md §4.5 sets.
const MaxSerializedBytes = 600

// Phase values a checkpoint can record, per spec.md's checkpoint-record
// wire example.
const (
	PhasePreflight   = "PREFLIGHT"
	PhaseThink       = "THINK"
	PhaseInvestigate = "INVESTIGATE"
	PhaseCheck       = "CHECK"
	PhaseAct         = "ACT"
	PhasePostflight  = "POSTFLIGHT"
)

var validPhases = map[string]bool{
	PhasePreflight:   true,
	PhaseThink:       true,
	PhaseInvestigate: true,
	PhaseCheck:       true,
	PhaseAct:         true,
	PhasePostflight:  true,
}

// Record is the immutable checkpoint wire shape from spec.md §4.5's
// "Checkpoint record on disk" example. Rationale text is never carried here
// — rationales live only in the session store's assessment records.
type Record struct {
	SessionID string             `json:"session_id"`
	AIID      string             `json:"ai_id"`
	Phase     string             `json:"phase"`
	Round     int                `json:"round"`
	Timestamp string             `json:"timestamp"`
	Vectors   map[string]float64 `json:"vectors"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	Signature string             `json:"signature,omitempty"`
}

// allowedMetadataKeys is the whitelisted metadata subset spec.md §4.5 names.
var allowedMetadataKeys = map[string]bool{
	"confidence":           true,
	"recommended_action":   true,
	"investigation_count":  true,
	"task":                 true,
	"error":                true,
	"delta":                true,
	"calibration_accuracy": true,
}

// NewRecord builds a Record from v, rounding scores to two decimals and
// trimming metadata to the whitelisted subset, per spec.md §4.5's
// compression rules.
func NewRecord(sessionID, aiID, phase string, round int, v *vector.Vector, metadata map[string]any, now time.Time) (Record, error) {
	if !validPhases[phase] {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
	}
	if round < 0 {
		return Record{}, fmt.Errorf("%w: round %d", ErrInvalidRound, round)
	}

	flat := v.ToFlat()
	if len(flat) != 13 {
		return Record{}, fmt.Errorf("%w: got %d entries", ErrInvalidVectorCount, len(flat))
	}

	vectors := make(map[string]float64, len(flat))
	for name, score := range flat {
		vectors[name] = roundTo2(score)
	}

	rec := Record{
		SessionID: sessionID,
		AIID:      aiID,
		Phase:     phase,
		Round:     round,
		Timestamp: now.UTC().Format(time.RFC3339),
		Vectors:   vectors,
		Metadata:  whitelistMetadata(metadata),
	}
	return rec, nil
}

func whitelistMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if allowedMetadataKeys[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}
