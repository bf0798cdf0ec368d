package persona

import "github.com/nubaeon/empirica/pkg/vector"

// CascadeKnobs are the three cascade-tunable thresholds an investigation
// profile overrides: the engagement gate, the confidence-to-proceed bar,
// and the investigation round budget.
type CascadeKnobs struct {
	EngagementGate    float64
	ConfidenceProceed float64
	MaxRounds         int
}

// DefaultCascadeKnobs are spec.md §4.3's unmapped-persona-type defaults:
// engagement gate 0.60, confidence-to-proceed 0.70, max rounds 7.
var DefaultCascadeKnobs = CascadeKnobs{
	EngagementGate:    vector.DefaultActionKnobs.EngagementGate,
	ConfidenceProceed: vector.DefaultActionKnobs.ConfidenceProceed,
	MaxRounds:         7,
}

// investigationProfiles maps a recognized persona_type to the knobs it
// selects, per spec.md §4.3: "cautious" raises the required confidence
// (lowers proceed acceptance) and doubles the round budget; "autonomous"
// lowers the required confidence and halves the budget; "balanced" matches
// the defaults exactly.
var investigationProfiles = map[string]CascadeKnobs{
	"cautious": {
		EngagementGate:    DefaultCascadeKnobs.EngagementGate,
		ConfidenceProceed: 0.85,
		MaxRounds:         14,
	},
	"balanced": DefaultCascadeKnobs,
	"autonomous": {
		EngagementGate:    DefaultCascadeKnobs.EngagementGate,
		ConfidenceProceed: 0.55,
		MaxRounds:         3,
	},
}

// ResolveKnobs maps a persona_type to its CascadeKnobs. Unmapped or empty
// types (including free-form domain tags like "security", "performance",
// "ux") fall back to DefaultCascadeKnobs, per spec.md §4.3.
func ResolveKnobs(personaType string) CascadeKnobs {
	if knobs, ok := investigationProfiles[personaType]; ok {
		return knobs
	}
	return DefaultCascadeKnobs
}

// Knobs resolves this profile's cascade knobs from its persona_type.
func (p *Profile) Knobs() CascadeKnobs {
	return ResolveKnobs(p.Type)
}
