package vector

import "sort"

// Vector is the thirteen-component epistemic vector. It is immutable once
// built: FromParsed and Blend (in the persona package) always return a new
// Vector rather than mutating one in place.
type Vector struct {
	components map[string]Component
	weights    *TierWeights        // nil => CanonicalTierWeights
	thresholds map[string]Threshold // persona-supplied critical floors/ceilings
}

// FromParsed builds a Vector from a fully-keyed component map (canonical or
// alias names are both accepted on the way in; the stored keys are always
// canonicalized). It fails with InvalidVector if any of the thirteen
// components is missing, out of range, or internally inconsistent
// (warrants_investigation true with priority 0).
func FromParsed(raw map[string]Component) (*Vector, error) {
	components := make(map[string]Component, len(Names))
	for k, v := range raw {
		canonical, ok := CanonicalName(k)
		if !ok {
			continue // unknown top-level keys are ignored, per the parser contract
		}
		components[canonical] = v
	}

	for _, name := range Names {
		c, ok := components[name]
		if !ok {
			return nil, newInvalidVectorError(name, "component missing")
		}
		if err := c.validate(name); err != nil {
			return nil, err
		}
	}

	return &Vector{components: components}, nil
}

// Get returns the component stored under name, resolving conceptual aliases.
func (v *Vector) Get(name string) (Component, bool) {
	canonical, ok := CanonicalName(name)
	if !ok {
		return Component{}, false
	}
	c, ok := v.components[canonical]
	return c, ok
}

// Components returns a defensive copy of the full canonical-name → Component
// map.
func (v *Vector) Components() map[string]Component {
	out := make(map[string]Component, len(v.components))
	for k, c := range v.components {
		out[k] = c
	}
	return out
}

// WithTierWeights returns a copy of v bound to persona-supplied tier
// weights. A nil-weighted Vector uses CanonicalTierWeights.
func (v *Vector) WithTierWeights(w TierWeights) *Vector {
	clone := v.clone()
	wc := w
	clone.weights = &wc
	return clone
}

// WithThresholds returns a copy of v bound to persona-supplied critical
// thresholds, checked by RecommendedAction.
func (v *Vector) WithThresholds(t map[string]Threshold) *Vector {
	clone := v.clone()
	clone.thresholds = make(map[string]Threshold, len(t))
	for k, th := range t {
		if canonical, ok := CanonicalName(k); ok {
			clone.thresholds[canonical] = th
		}
	}
	return clone
}

func (v *Vector) clone() *Vector {
	components := make(map[string]Component, len(v.components))
	for k, c := range v.components {
		components[k] = c
	}
	clone := &Vector{components: components, weights: v.weights}
	if v.thresholds != nil {
		clone.thresholds = make(map[string]Threshold, len(v.thresholds))
		for k, t := range v.thresholds {
			clone.thresholds[k] = t
		}
	}
	return clone
}

// WithComponents returns a copy of v with components replaced wholesale,
// preserving weights/thresholds. Used by the persona package's Blend to
// produce a new Vector from blended component scores.
func (v *Vector) WithComponents(components map[string]Component) *Vector {
	clone := v.clone()
	clone.components = components
	return clone
}

// TierConfidences returns the arithmetic mean of each tier's component
// scores. comprehension_density is inverted (1 - score) before averaging.
func (v *Vector) TierConfidences() (foundation, comprehension, execution float64) {
	foundation = mean(
		v.components[NameFoundationKnow].Score,
		v.components[NameFoundationDo].Score,
		v.components[NameFoundationContext].Score,
	)
	comprehension = mean(
		v.components[NameComprehensionClarity].Score,
		v.components[NameComprehensionCoherence].Score,
		v.components[NameComprehensionSignal].Score,
		v.components[NameComprehensionDensity].densityInverted(),
	)
	execution = mean(
		v.components[NameExecutionState].Score,
		v.components[NameExecutionChange].Score,
		v.components[NameExecutionCompletion].Score,
		v.components[NameExecutionImpact].Score,
	)
	return foundation, comprehension, execution
}

func mean(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// tierWeights returns the bound weights, or CanonicalTierWeights if unbound.
func (v *Vector) tierWeights() TierWeights {
	if v.weights != nil {
		return *v.weights
	}
	return CanonicalTierWeights
}

// OverallConfidence is the weighted sum of tier confidences, with the
// engagement score taking the gate weight directly.
func (v *Vector) OverallConfidence() float64 {
	foundation, comprehension, execution := v.TierConfidences()
	w := v.tierWeights()
	return w.Gate*v.components[NameEngagement].Score +
		w.Foundation*foundation +
		w.Comprehension*comprehension +
		w.Execution*execution
}

// ActionKnobs carries the two cascade-tunable thresholds that feed
// RecommendedAction: the engagement gate and the confidence-to-proceed bar.
// The investigation round budget is not part of it; it lives in
// persona.CascadeKnobs.
type ActionKnobs struct {
	EngagementGate    float64
	ConfidenceProceed float64
}

// DefaultActionKnobs are spec.md §6's environment defaults: engagement gate
// 0.60, confidence-to-proceed 0.70.
var DefaultActionKnobs = ActionKnobs{EngagementGate: 0.60, ConfidenceProceed: 0.70}

// RecommendedAction implements spec.md §3's decision rule. Ties between
// PROCEED and INVESTIGATE resolve to INVESTIGATE (safety bias). The second
// return value names any critical-threshold breaches, for inclusion in
// checkpoint metadata.
func (v *Vector) RecommendedAction(knobs ActionKnobs) (Action, []string) {
	engagement := v.components[NameEngagement].Score
	if engagement < knobs.EngagementGate {
		return ActionBlock, nil
	}

	breaches := v.thresholdBreaches()

	uncertainty := v.components[NameUncertainty].Score
	if uncertainty > uncertaintyInvestigateMax || v.hasCriticalInvestigationFlag() || len(breaches) > 0 {
		return ActionInvestigate, breaches
	}

	if v.OverallConfidence() >= knobs.ConfidenceProceed {
		return ActionProceed, breaches
	}

	return ActionEscalate, breaches
}

// hasCriticalInvestigationFlag reports whether any component is flagged
// warrants_investigation with priority >= 5.
func (v *Vector) hasCriticalInvestigationFlag() bool {
	for _, name := range Names {
		c := v.components[name]
		if c.WarrantsInvestigation && c.InvestigationPriority >= criticalPriorityFloor {
			return true
		}
	}
	return false
}

// thresholdBreaches returns the canonical names of components that breach a
// persona-supplied critical threshold, sorted for deterministic output.
func (v *Vector) thresholdBreaches() []string {
	if len(v.thresholds) == 0 {
		return nil
	}
	var out []string
	for name, th := range v.thresholds {
		if th.breach(v.components[name].Score) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ToFlat returns the thirteen-entry canonical-name → score map used by
// checkpoint serialization and EEP-1's epistemic_state_final.
func (v *Vector) ToFlat() map[string]float64 {
	out := make(map[string]float64, len(Names))
	for _, name := range Names {
		out[name] = v.components[name].Score
	}
	return out
}

// Alias accessors: conceptual-name read-only views used by persona authoring
// and legacy persistence. They exist solely for readability.
func (v *Vector) Engagement() Component { return v.components[NameEngagement] }
func (v *Vector) Know() Component       { return v.components[NameFoundationKnow] }
func (v *Vector) Do() Component         { return v.components[NameFoundationDo] }
func (v *Vector) Context() Component    { return v.components[NameFoundationContext] }
func (v *Vector) Clarity() Component    { return v.components[NameComprehensionClarity] }
func (v *Vector) Coherence() Component  { return v.components[NameComprehensionCoherence] }
func (v *Vector) Signal() Component     { return v.components[NameComprehensionSignal] }
func (v *Vector) Density() Component    { return v.components[NameComprehensionDensity] }
func (v *Vector) State() Component      { return v.components[NameExecutionState] }
func (v *Vector) Change() Component     { return v.components[NameExecutionChange] }
func (v *Vector) Completion() Component { return v.components[NameExecutionCompletion] }
func (v *Vector) Impact() Component     { return v.components[NameExecutionImpact] }
func (v *Vector) Uncertainty() Component { return v.components[NameUncertainty] }
