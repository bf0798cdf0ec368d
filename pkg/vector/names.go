// Package vector implements the Empirica epistemic vector: thirteen named,
// tier-grouped component scores, their derived confidences, and the
// recommended-action decision computed from them.
package vector

// Tier groups the thirteen canonical components plus the gate and meta
// dimensions.
type Tier string

const (
	TierGate          Tier = "gate"
	TierFoundation    Tier = "foundation"
	TierComprehension Tier = "comprehension"
	TierExecution     Tier = "execution"
	TierMeta          Tier = "meta"
)

// Canonical, tier-prefixed component names. These are the names used on the
// wire (checkpoint vectors map, EEP-1 epistemic_state_final, assessment
// reply parsing) — never the bare conceptual aliases below.
const (
	NameEngagement            = "engagement"
	NameFoundationKnow        = "foundation_know"
	NameFoundationDo          = "foundation_do"
	NameFoundationContext     = "foundation_context"
	NameComprehensionClarity  = "comprehension_clarity"
	NameComprehensionCoherence = "comprehension_coherence"
	NameComprehensionSignal   = "comprehension_signal"
	NameComprehensionDensity  = "comprehension_density"
	NameExecutionState        = "execution_state"
	NameExecutionChange       = "execution_change"
	NameExecutionCompletion   = "execution_completion"
	NameExecutionImpact       = "execution_impact"
	NameUncertainty           = "uncertainty"
)

// Names lists all thirteen canonical component names in a stable order
// (tier-by-tier, matching the order they appear in the data model table).
var Names = [13]string{
	NameEngagement,
	NameFoundationKnow, NameFoundationDo, NameFoundationContext,
	NameComprehensionClarity, NameComprehensionCoherence, NameComprehensionSignal, NameComprehensionDensity,
	NameExecutionState, NameExecutionChange, NameExecutionCompletion, NameExecutionImpact,
	NameUncertainty,
}

// tierOf maps each canonical name to the tier it belongs to.
var tierOf = map[string]Tier{
	NameEngagement:             TierGate,
	NameFoundationKnow:         TierFoundation,
	NameFoundationDo:           TierFoundation,
	NameFoundationContext:      TierFoundation,
	NameComprehensionClarity:   TierComprehension,
	NameComprehensionCoherence: TierComprehension,
	NameComprehensionSignal:    TierComprehension,
	NameComprehensionDensity:   TierComprehension,
	NameExecutionState:         TierExecution,
	NameExecutionChange:        TierExecution,
	NameExecutionCompletion:    TierExecution,
	NameExecutionImpact:        TierExecution,
	NameUncertainty:            TierMeta,
}

// aliasToCanonical maps the bare conceptual names used by persona authoring
// and legacy persisted shapes to their canonical tier-prefixed form.
var aliasToCanonical = map[string]string{
	"engagement":  NameEngagement,
	"know":        NameFoundationKnow,
	"do":          NameFoundationDo,
	"context":     NameFoundationContext,
	"clarity":     NameComprehensionClarity,
	"coherence":   NameComprehensionCoherence,
	"signal":      NameComprehensionSignal,
	"density":     NameComprehensionDensity,
	"state":       NameExecutionState,
	"change":      NameExecutionChange,
	"completion":  NameExecutionCompletion,
	"impact":      NameExecutionImpact,
	"uncertainty": NameUncertainty,
}

// CanonicalName resolves a bare conceptual name or an already-canonical name
// to its canonical tier-prefixed form. Ingestion is tolerant of both;
// emission always uses the canonical form (see Vector.ToFlat).
func CanonicalName(name string) (string, bool) {
	if _, ok := tierOf[name]; ok {
		return name, true
	}
	if canonical, ok := aliasToCanonical[name]; ok {
		return canonical, true
	}
	return "", false
}

// IsCanonicalName reports whether name is one of the thirteen canonical
// component names.
func IsCanonicalName(name string) bool {
	_, ok := tierOf[name]
	return ok
}
