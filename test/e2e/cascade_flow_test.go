package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/assessment"
	"github.com/nubaeon/empirica/pkg/cascade"
	"github.com/nubaeon/empirica/pkg/checkpoint"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/vector"
)

// Scenario 1: clean PREFLIGHT -> CHECK -> ACT -> POSTFLIGHT, exactly four
// checkpoints, with the cascade driven through the real checkpoint store
// backed by an on-disk git repository rather than a nil-notes test double.
func TestE2E_CleanProceedPath(t *testing.T) {
	st := newStack(t)
	confident := flatReply(t, map[string]float64{
		vector.NameEngagement:            0.85,
		vector.NameFoundationKnow:        0.75,
		vector.NameFoundationDo:          0.80,
		vector.NameFoundationContext:     0.70,
		vector.NameComprehensionClarity:  0.85,
		vector.NameComprehensionCoherence: 0.80,
		vector.NameComprehensionSignal:   0.75,
		vector.NameComprehensionDensity:  0.40,
		vector.NameExecutionState:        0.70,
		vector.NameExecutionChange:       0.60,
		vector.NameExecutionCompletion:   0.50,
		vector.NameExecutionImpact:       0.65,
		vector.NameUncertainty:           0.20,
	})
	client := scriptedLLM(t, []string{confident, confident, confident})

	var actCalled bool
	cas := cascade.New(cascade.Config{
		SessionID:   "e2e-clean",
		AIID:        "agent-clean",
		Task:        "Add unit tests for auth module",
		ModelID:     "test-model",
		LLM:         client,
		Checkpoints: st.checkpoints,
		Sessions:    st.sessions,
		Prompts:     assessment.NewPromptBuilder(),
		ActCallback: func(ctx context.Context, current *vector.Vector) (string, []string, error) {
			actCalled = true
			return "added 6 tests covering login/logout/token refresh", nil, nil
		},
	})

	result, err := cas.Run(context.Background())
	require.NoError(t, err)
	require.True(t, actCalled)
	require.Equal(t, cascade.StatusCompleted, result.Status)
	require.Equal(t, cascade.PhasePostflight, result.Phase)
	require.Len(t, result.CheckpointIDs, 4)
	require.NotNil(t, result.Delta)

	records, err := st.checkpoints.List(context.Background(), "e2e-clean")
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, checkpointPhases(records), []string{"PREFLIGHT", "CHECK", "ACT", "POSTFLIGHT"})
}

// Scenario 2: engagement gate blocks outright after PREFLIGHT.
func TestE2E_EngagementGateBlocks(t *testing.T) {
	st := newStack(t)
	client := scriptedLLM(t, []string{
		flatReply(t, map[string]float64{vector.NameEngagement: 0.45}),
	})

	cas := cascade.New(cascade.Config{
		SessionID:   "e2e-gate",
		AIID:        "agent-gate",
		Task:        "Add unit tests for auth module",
		ModelID:     "test-model",
		LLM:         client,
		Checkpoints: st.checkpoints,
		Sessions:    st.sessions,
	})

	result, err := cas.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, cascade.StatusBlocked, result.Status)
	require.Len(t, result.CheckpointIDs, 1)

	rec, err := st.checkpoints.Latest(context.Background(), "e2e-gate", "")
	require.NoError(t, err)
	require.Equal(t, "BLOCK", rec.Metadata["recommended_action"])
}

// Scenario 3: investigation round budget exhaustion forces CHECK, which
// escalates since uncertainty never drops; six checkpoints total.
func TestE2E_InvestigationBudgetExhausted(t *testing.T) {
	st := newStack(t)
	reply := flatReply(t, map[string]float64{
		vector.NameEngagement:  0.90,
		vector.NameUncertainty: 0.85,
	})
	client := scriptedLLM(t, []string{reply, reply, reply, reply, reply})

	autonomous := &persona.Profile{
		ID:   "auditor",
		Name: "Autonomous Auditor",
		Type: "autonomous",
		TierWeights: persona.ProfileTierWeights{
			Gate:          0.15,
			Foundation:    0.35,
			Comprehension: 0.25,
			Execution:     0.25,
		},
	}

	cas := cascade.New(cascade.Config{
		SessionID:   "e2e-budget",
		AIID:        "agent-budget",
		Task:        "Migrate the billing schema",
		ModelID:     "test-model",
		Persona:     autonomous,
		LLM:         client,
		Checkpoints: st.checkpoints,
		Sessions:    st.sessions,
	})

	result, err := cas.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, cascade.StatusEscalated, result.Status)
	require.Equal(t, cascade.PhaseCheck, result.Phase)
	require.Len(t, result.CheckpointIDs, 6)
	require.Len(t, result.InvestigationLog, 3)
}

func checkpointPhases(records []checkpoint.Record) []string {
	phases := make([]string, len(records))
	for i, r := range records {
		phases[i] = r.Phase
	}
	return phases
}
