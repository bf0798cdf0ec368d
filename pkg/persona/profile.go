// Package persona stores persona profiles (priors, tier weights, critical
// thresholds, focus domains) and blends their priors into a baseline
// epistemic vector at phase-dependent strength.
package persona

import (
	"fmt"
	"strings"

	"github.com/nubaeon/empirica/pkg/vector"
)

// Profile is a persona profile loaded from a YAML file on disk (one file
// per persona, per spec.md §4.3).
type Profile struct {
	ID    string `yaml:"persona_id" validate:"required"`
	Name  string `yaml:"display_name" validate:"required"`
	Type  string `yaml:"persona_type,omitempty"` // free-form tag; also consulted by the investigation profile selector

	// Priors are keyed by conceptual (bare) name per spec.md §4.3, e.g.
	// "know", "clarity" — authoring convenience. Loaded priors are
	// normalized to canonical names at validation time.
	Priors map[string]float64 `yaml:"priors" validate:"required"`

	TierWeights ProfileTierWeights `yaml:"tier_weights"`

	// CriticalThresholds are per-component floors/ceilings keyed by
	// conceptual name, e.g. "coherence_min", "density_max". Any breach
	// forces INVESTIGATE regardless of confidence (spec.md §4.1).
	CriticalThresholds map[string]float64 `yaml:"critical_thresholds,omitempty"`

	// Domains is a list of topical tags used for domain-weighted
	// composition — out of core scope per spec.md §4.3, reserved for
	// future use; carried through to the prompt framing paragraph.
	Domains []string `yaml:"focus_domains,omitempty"`
}

// ProfileTierWeights mirrors vector.TierWeights with YAML tags; must sum to
// 1.0 ± 1e-6 across all four tiers.
type ProfileTierWeights struct {
	Gate          float64 `yaml:"gate"`
	Foundation    float64 `yaml:"foundation"`
	Comprehension float64 `yaml:"comprehension"`
	Execution     float64 `yaml:"execution"`
}

func (w ProfileTierWeights) toVectorWeights() vector.TierWeights {
	return vector.TierWeights{
		Gate:          w.Gate,
		Foundation:    w.Foundation,
		Comprehension: w.Comprehension,
		Execution:     w.Execution,
	}
}

// PersonaID implements assessment.PersonaFraming.
func (p *Profile) PersonaID() string { return p.ID }

// DisplayName implements assessment.PersonaFraming.
func (p *Profile) DisplayName() string { return p.Name }

// FocusDomains implements assessment.PersonaFraming.
func (p *Profile) FocusDomains() []string { return p.Domains }

// FramingParagraph implements assessment.PersonaFraming: a one-paragraph
// identity/focus/thresholds summary injected into assessment prompts.
func (p *Profile) FramingParagraph() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are assessing as %q (%s).", p.Name, nonEmpty(p.Type, "generalist"))
	if len(p.CriticalThresholds) > 0 {
		b.WriteString(" Critical thresholds apply: ")
		first := true
		for name, v := range p.CriticalThresholds {
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%.2f", name, v)
			first = false
		}
		b.WriteString(".")
	}
	return b.String()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// canonicalPriors returns the priors keyed by canonical component name.
func (p *Profile) canonicalPriors() map[string]float64 {
	out := make(map[string]float64, len(p.Priors))
	for name, score := range p.Priors {
		if canonical, ok := vector.CanonicalName(name); ok {
			out[canonical] = score
		}
	}
	return out
}

// thresholds returns the persona's critical thresholds as
// vector.Threshold values keyed by canonical component name. Threshold keys
// are written as "<name>_min" / "<name>_max" in YAML.
func (p *Profile) thresholds() map[string]vector.Threshold {
	out := make(map[string]vector.Threshold)
	for key, value := range p.CriticalThresholds {
		v := value
		switch {
		case strings.HasSuffix(key, "_min"):
			name := strings.TrimSuffix(key, "_min")
			if canonical, ok := vector.CanonicalName(name); ok {
				th := out[canonical]
				th.Min = &v
				out[canonical] = th
			}
		case strings.HasSuffix(key, "_max"):
			name := strings.TrimSuffix(key, "_max")
			if canonical, ok := vector.CanonicalName(name); ok {
				th := out[canonical]
				th.Max = &v
				out[canonical] = th
			}
		}
	}
	return out
}
