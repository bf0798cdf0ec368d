package persona

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nubaeon/empirica/pkg/vector"
)

const tierWeightTolerance = 1e-6

// Validator validates persona profiles comprehensively, mirroring
// pkg/config's Validator.ValidateAll fail-fast pattern. The struct-tag
// checks (persona_id/display_name/priors required) are delegated to
// go-playground/validator; the range and cross-field checks that struct
// tags can't express (every canonical component having a prior in [0,1],
// tier weights balancing,
// threshold ranges) are hand-rolled below.
type Validator struct {
	tags *validator.Validate
}

// NewValidator constructs a persona Validator.
func NewValidator() *Validator { return &Validator{tags: validator.New()} }

// ValidateAll validates a single profile: identity, priors, tier weights,
// and critical thresholds.
func (v *Validator) ValidateAll(p *Profile) error {
	if err := v.tags.Struct(p); err != nil {
		return newValidationError(p.ID, "struct", fmt.Errorf("%w: %v", ErrInvalidPriors, err))
	}
	if err := v.validatePriors(p); err != nil {
		return err
	}
	if err := v.validateTierWeights(p); err != nil {
		return err
	}
	if err := v.validateThresholds(p); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validatePriors(p *Profile) error {
	canonical := p.canonicalPriors()
	for _, name := range vector.Names {
		score, ok := canonical[name]
		if !ok {
			return newValidationError(p.ID, "priors", fmt.Errorf("%w: missing prior for %q", ErrInvalidPriors, name))
		}
		if score < 0 || score > 1 {
			return newValidationError(p.ID, "priors", fmt.Errorf("%w: prior for %q out of range [0,1]: %v", ErrInvalidPriors, name, score))
		}
	}
	return nil
}

func (v *Validator) validateTierWeights(p *Profile) error {
	sum := p.TierWeights.Gate + p.TierWeights.Foundation + p.TierWeights.Comprehension + p.TierWeights.Execution
	if sum < 1.0-tierWeightTolerance || sum > 1.0+tierWeightTolerance {
		return newValidationError(p.ID, "tier_weights", fmt.Errorf("%w: got %v", ErrTierWeightsUnbalanced, sum))
	}
	return nil
}

func (v *Validator) validateThresholds(p *Profile) error {
	for key, value := range p.CriticalThresholds {
		if value < 0 || value > 1 {
			return newValidationError(p.ID, key, fmt.Errorf("%w: %q = %v", ErrInvalidThreshold, key, value))
		}
	}
	return nil
}
