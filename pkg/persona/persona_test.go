package persona

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/vector"
)

func fullPriors() map[string]float64 {
	return map[string]float64{
		"engagement": 0.80,
		"know":       0.90, "do": 0.70, "context": 0.60,
		"clarity": 0.75, "coherence": 0.80, "signal": 0.70, "density": 0.50,
		"state": 0.65, "change": 0.60, "completion": 0.55, "impact": 0.60,
		"uncertainty": 0.30,
	}
}

func validProfile() *Profile {
	return &Profile{
		ID:     "security-reviewer",
		Name:   "Security Reviewer",
		Type:   "security",
		Priors: fullPriors(),
		TierWeights: ProfileTierWeights{
			Gate: 0.15, Foundation: 0.35, Comprehension: 0.25, Execution: 0.25,
		},
		Domains: []string{"auth", "crypto"},
	}
}

func TestValidator_ValidProfile(t *testing.T) {
	err := NewValidator().ValidateAll(validProfile())
	assert.NoError(t, err)
}

func TestValidator_MissingPrior(t *testing.T) {
	p := validProfile()
	delete(p.Priors, "know")

	err := NewValidator().ValidateAll(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPriors))
}

func TestValidator_TierWeightsUnbalanced(t *testing.T) {
	p := validProfile()
	p.TierWeights.Gate = 0.5

	err := NewValidator().ValidateAll(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTierWeightsUnbalanced))
}

func TestValidator_ThresholdOutOfRange(t *testing.T) {
	p := validProfile()
	p.CriticalThresholds = map[string]float64{"coherence_min": 1.5}

	err := NewValidator().ValidateAll(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidThreshold))
}

func TestRegistry_GetAndDefensiveCopy(t *testing.T) {
	p := validProfile()
	r := NewRegistry(map[string]*Profile{p.ID: p})

	got, err := r.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	all := r.GetAll()
	delete(all, p.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Get("missing")
	assert.True(t, errors.Is(err, ErrPersonaNotFound))
}

func baselineVector(t *testing.T) *vector.Vector {
	t.Helper()
	comps := map[string]vector.Component{
		vector.NameEngagement:             {Score: 0.85, Rationale: "baseline"},
		vector.NameFoundationKnow:         {Score: 0.40, Rationale: "baseline"},
		vector.NameFoundationDo:           {Score: 0.80, Rationale: "baseline"},
		vector.NameFoundationContext:      {Score: 0.70, Rationale: "baseline"},
		vector.NameComprehensionClarity:   {Score: 0.85, Rationale: "baseline"},
		vector.NameComprehensionCoherence: {Score: 0.80, Rationale: "baseline"},
		vector.NameComprehensionSignal:    {Score: 0.75, Rationale: "baseline"},
		vector.NameComprehensionDensity:   {Score: 0.40, Rationale: "baseline"},
		vector.NameExecutionState:         {Score: 0.70, Rationale: "baseline"},
		vector.NameExecutionChange:        {Score: 0.60, Rationale: "baseline"},
		vector.NameExecutionCompletion:    {Score: 0.50, Rationale: "baseline"},
		vector.NameExecutionImpact:        {Score: 0.65, Rationale: "baseline"},
		vector.NameUncertainty:            {Score: 0.20, Rationale: "baseline"},
	}
	v, err := vector.FromParsed(comps)
	require.NoError(t, err)
	return v
}

func TestBlend_PreflightPriorDominates(t *testing.T) {
	p := validProfile()
	p.Priors["know"] = 0.90

	blended := Blend(baselineVector(t), p, PhasePreflight)
	know := blended.Know()
	assert.InDelta(t, 0.90, know.Score, 1e-9)
	assert.Contains(t, know.Rationale, "[prior=0.90, s=1.0]")
}

func TestBlend_ThinkStrengthIsPoint8(t *testing.T) {
	p := validProfile()
	p.Priors["know"] = 0.90

	blended := Blend(baselineVector(t), p, PhaseThink)
	// 0.40*(1-0.8) + 0.90*0.8 = 0.08 + 0.72 = 0.80
	assert.InDelta(t, 0.80, blended.Know().Score, 1e-9)
}

func TestBlend_InvestigateStrengthIsHalf(t *testing.T) {
	p := validProfile()
	p.Priors["know"] = 0.90

	blended := Blend(baselineVector(t), p, PhaseInvestigate)
	// 0.40*0.5 + 0.90*0.5 = 0.65
	assert.InDelta(t, 0.65, blended.Know().Score, 1e-9)
}

func TestBlend_PreservesFlagsAndEvidence(t *testing.T) {
	base := baselineVector(t)
	comps := base.Components()
	c := comps[vector.NameExecutionImpact]
	c.WarrantsInvestigation = true
	c.InvestigationPriority = 8
	c.Evidence = "see PR #42"
	comps[vector.NameExecutionImpact] = c
	base = base.WithComponents(comps)

	p := validProfile()
	blended := Blend(base, p, PhaseCheck)
	impact := blended.Impact()
	assert.True(t, impact.WarrantsInvestigation)
	assert.Equal(t, 8, impact.InvestigationPriority)
	assert.Equal(t, "see PR #42", impact.Evidence)
}

func TestResolveKnobs_Defaults(t *testing.T) {
	knobs := ResolveKnobs("generalist")
	assert.Equal(t, DefaultCascadeKnobs, knobs)
}

func TestResolveKnobs_CautiousDoublesBudgetAndRaisesBar(t *testing.T) {
	knobs := ResolveKnobs("cautious")
	assert.Equal(t, 14, knobs.MaxRounds)
	assert.Greater(t, knobs.ConfidenceProceed, DefaultCascadeKnobs.ConfidenceProceed)
}

func TestResolveKnobs_AutonomousHalvesBudgetAndLowersBar(t *testing.T) {
	knobs := ResolveKnobs("autonomous")
	assert.Equal(t, 3, knobs.MaxRounds)
	assert.Less(t, knobs.ConfidenceProceed, DefaultCascadeKnobs.ConfidenceProceed)
}
