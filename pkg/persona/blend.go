package persona

import (
	"fmt"

	"github.com/nubaeon/empirica/pkg/vector"
)

// Phase names the cascade phase a blend is performed in. Mirrors
// pkg/cascade.Phase's string values without importing that package (which
// in turn imports this one).
type Phase string

const (
	PhasePreflight   Phase = "PREFLIGHT"
	PhaseThink       Phase = "THINK"
	PhaseInvestigate Phase = "INVESTIGATE"
	PhaseCheck       Phase = "CHECK"
	PhaseAct         Phase = "ACT"
	PhasePostflight  Phase = "POSTFLIGHT"
)

// blendStrength returns the phase-dependent blend strength s from spec.md
// §4.3: 1.0 at PREFLIGHT, 0.8 at THINK, 0.5 everywhere else.
func blendStrength(phase Phase) float64 {
	switch phase {
	case PhasePreflight:
		return 1.0
	case PhaseThink:
		return 0.8
	default:
		return 0.5
	}
}

// Blend combines a baseline Vector with a Profile's priors at the
// phase-dependent strength s, per spec.md §4.3:
//
//	blended = baseline*(1-s) + prior*s
//
// The blended component inherits the baseline's rationale with an appended
// annotation recording the prior value and blend strength; evidence,
// warrants_investigation, and investigation_priority are preserved from
// baseline. The returned Vector is also bound to the persona's tier weights
// and critical thresholds.
func Blend(baseline *vector.Vector, p *Profile, phase Phase) *vector.Vector {
	s := blendStrength(phase)
	priors := p.canonicalPriors()

	blended := make(map[string]vector.Component, len(vector.Names))
	for _, name := range vector.Names {
		base, _ := baseline.Get(name)
		prior, ok := priors[name]
		if !ok {
			blended[name] = base
			continue
		}
		blendedScore := base.Score*(1-s) + prior*s
		blended[name] = vector.Component{
			Score:                 blendedScore,
			Rationale:             fmt.Sprintf("%s [prior=%.2f, s=%.1f]", base.Rationale, prior, s),
			Evidence:              base.Evidence,
			WarrantsInvestigation: base.WarrantsInvestigation,
			InvestigationPriority: base.InvestigationPriority,
		}
	}

	return baseline.WithComponents(blended).
		WithTierWeights(p.TierWeights.toVectorWeights()).
		WithThresholds(p.thresholds())
}
