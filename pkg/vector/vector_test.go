package vector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validComponents() map[string]Component {
	return map[string]Component{
		NameEngagement:             {Score: 0.85, Rationale: "agent is committed"},
		NameFoundationKnow:         {Score: 0.75, Rationale: "knows the auth module"},
		NameFoundationDo:           {Score: 0.80, Rationale: "can write Go tests"},
		NameFoundationContext:      {Score: 0.70, Rationale: "has repo context"},
		NameComprehensionClarity:   {Score: 0.85, Rationale: "task is clear"},
		NameComprehensionCoherence: {Score: 0.80, Rationale: "no contradictions"},
		NameComprehensionSignal:    {Score: 0.75, Rationale: "good evidence quality"},
		NameComprehensionDensity:   {Score: 0.40, Rationale: "moderate density"},
		NameExecutionState:        {Score: 0.70, Rationale: "task underway"},
		NameExecutionChange:       {Score: 0.60, Rationale: "knowledge evolving"},
		NameExecutionCompletion:   {Score: 0.50, Rationale: "path is partly clear"},
		NameExecutionImpact:       {Score: 0.65, Rationale: "output looks solid"},
		NameUncertainty:           {Score: 0.20, Rationale: "little residual doubt"},
	}
}

func TestFromParsed_Valid(t *testing.T) {
	v, err := FromParsed(validComponents())
	require.NoError(t, err)
	require.NotNil(t, v)

	flat := v.ToFlat()
	assert.Len(t, flat, 13)
	assert.Equal(t, 0.85, flat[NameEngagement])
}

func TestFromParsed_MissingComponent(t *testing.T) {
	comps := validComponents()
	delete(comps, NameUncertainty)

	_, err := FromParsed(comps)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidVector))

	var ive *InvalidVectorError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, NameUncertainty, ive.Component)
}

func TestFromParsed_ScoreOutOfRange(t *testing.T) {
	comps := validComponents()
	c := comps[NameEngagement]
	c.Score = 1.5
	comps[NameEngagement] = c

	_, err := FromParsed(comps)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidVector))
}

func TestFromParsed_InconsistentFlags(t *testing.T) {
	comps := validComponents()
	c := comps[NameExecutionImpact]
	c.WarrantsInvestigation = true
	c.InvestigationPriority = 0
	comps[NameExecutionImpact] = c

	_, err := FromParsed(comps)
	require.Error(t, err)
}

func TestFromParsed_AcceptsAliasKeys(t *testing.T) {
	comps := validComponents()
	comps["know"] = comps[NameFoundationKnow]
	delete(comps, NameFoundationKnow)

	v, err := FromParsed(comps)
	require.NoError(t, err)
	assert.Equal(t, 0.75, v.Know().Score)
}

func TestTierConfidences_DensityInversion(t *testing.T) {
	comps := validComponents()
	c := comps[NameComprehensionDensity]
	c.Score = 1.0
	comps[NameComprehensionDensity] = c

	v, err := FromParsed(comps)
	require.NoError(t, err)

	_, comprehension, _ := v.TierConfidences()
	// density contributes (1 - 1.0) = 0.0 to the mean of four components
	expected := mean(0.85, 0.80, 0.75, 0.0)
	assert.InDelta(t, expected, comprehension, 1e-9)
}

func TestRecommendedAction_Block(t *testing.T) {
	comps := validComponents()
	c := comps[NameEngagement]
	c.Score = 0.45
	comps[NameEngagement] = c

	v, err := FromParsed(comps)
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionBlock, action)
}

func TestRecommendedAction_EngagementAtGateCountsAsPassing(t *testing.T) {
	comps := validComponents()
	c := comps[NameEngagement]
	c.Score = 0.60
	comps[NameEngagement] = c

	v, err := FromParsed(comps)
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.NotEqual(t, ActionBlock, action)
}

func TestRecommendedAction_InvestigateOnHighUncertainty(t *testing.T) {
	comps := validComponents()
	c := comps[NameUncertainty]
	c.Score = 0.85
	comps[NameUncertainty] = c

	v, err := FromParsed(comps)
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionInvestigate, action)
}

func TestRecommendedAction_InvestigateOnCriticalFlag(t *testing.T) {
	comps := validComponents()
	c := comps[NameExecutionImpact]
	c.WarrantsInvestigation = true
	c.InvestigationPriority = 7
	comps[NameExecutionImpact] = c

	v, err := FromParsed(comps)
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionInvestigate, action)
}

func TestRecommendedAction_Proceed(t *testing.T) {
	v, err := FromParsed(validComponents())
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionProceed, action)
}

func TestRecommendedAction_ThresholdBreachForcesInvestigate(t *testing.T) {
	v, err := FromParsed(validComponents())
	require.NoError(t, err)

	min := 0.9
	v = v.WithThresholds(map[string]Threshold{NameComprehensionCoherence: {Min: &min}})

	action, breaches := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionInvestigate, action)
	assert.Contains(t, breaches, NameComprehensionCoherence)
}

func TestRecommendedAction_EscalateBelowProceedThreshold(t *testing.T) {
	comps := validComponents()
	for name, c := range comps {
		if name == NameEngagement || name == NameUncertainty {
			continue
		}
		c.Score = 0.50
		comps[name] = c
	}

	v, err := FromParsed(comps)
	require.NoError(t, err)

	action, _ := v.RecommendedAction(DefaultActionKnobs)
	assert.Equal(t, ActionEscalate, action)
}

func TestOverallConfidence_UsesBoundTierWeights(t *testing.T) {
	v, err := FromParsed(validComponents())
	require.NoError(t, err)

	canonical := v.OverallConfidence()

	bound := v.WithTierWeights(TierWeights{Gate: 1, Foundation: 0, Comprehension: 0, Execution: 0})
	assert.InDelta(t, v.Engagement().Score, bound.OverallConfidence(), 1e-9)
	assert.NotEqual(t, canonical, bound.OverallConfidence())
}

func TestSnapshotDelta(t *testing.T) {
	v, err := FromParsed(validComponents())
	require.NoError(t, err)
	before := NewSnapshot(v)

	comps := v.Components()
	c := comps[NameExecutionCompletion]
	c.Score = 0.90
	comps[NameExecutionCompletion] = c
	after := NewSnapshot(v.WithComponents(comps))

	delta := before.Delta(after)
	assert.InDelta(t, 0.40, delta[NameExecutionCompletion], 1e-9)
	assert.InDelta(t, 0.0, delta[NameEngagement], 1e-9)
}
