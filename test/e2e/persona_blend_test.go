package e2e

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/cascade"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/vector"
)

// assessmentRecord mirrors pkg/cascade's unexported persisted shape closely
// enough to read back the "components" field written to sessionstore's
// assessments/ keyspace; only the fields this test inspects are declared.
type assessmentRecord struct {
	Components map[string]vector.Component `json:"components"`
}

// Scenario 4: a cautious persona's "know" prior dominates a low-confidence
// baseline at PREFLIGHT, where blend strength is 1.0, and the blended
// rationale records the prior and strength applied.
func TestE2E_PersonaPriorDominatesPreflight(t *testing.T) {
	st := newStack(t)

	low := flatReply(t, map[string]float64{
		vector.NameEngagement:     0.85,
		vector.NameFoundationKnow: 0.20,
		vector.NameUncertainty:    0.20,
	})
	client := scriptedLLM(t, []string{low, low, low})

	cautious := &persona.Profile{
		ID:   "reviewer",
		Name: "Cautious Reviewer",
		Type: "cautious",
		Priors: map[string]float64{
			"know": 0.90,
		},
		TierWeights: persona.ProfileTierWeights{
			Gate: 0.15, Foundation: 0.35, Comprehension: 0.25, Execution: 0.25,
		},
	}

	var actCalled bool
	cas := cascade.New(cascade.Config{
		SessionID:   "e2e-persona",
		AIID:        "agent-persona",
		Task:        "Review the payments reconciliation job",
		ModelID:     "test-model",
		Persona:     cautious,
		LLM:         client,
		Checkpoints: st.checkpoints,
		Sessions:    st.sessions,
		ActCallback: func(ctx context.Context, current *vector.Vector) (string, []string, error) {
			actCalled = true
			return "reviewed reconciliation job, no issues found", nil, nil
		},
	})

	_, err := cas.Run(context.Background())
	require.NoError(t, err)
	_ = actCalled

	body, err := st.sessions.Get(context.Background(), sessionstore.AssessmentKey("e2e-persona", "PREFLIGHT", 0))
	require.NoError(t, err)

	var rec assessmentRecord
	require.NoError(t, json.Unmarshal(body, &rec))

	know, ok := rec.Components[vector.NameFoundationKnow]
	require.True(t, ok)
	require.InDelta(t, 0.90, know.Score, 1e-9)
	require.Contains(t, know.Rationale, "[prior=0.90, s=1.0]")
}
