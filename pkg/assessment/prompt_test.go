package assessment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPersona struct{}

func (stubPersona) PersonaID() string        { return "security-reviewer" }
func (stubPersona) DisplayName() string      { return "Security Reviewer" }
func (stubPersona) FocusDomains() []string   { return []string{"auth", "crypto"} }
func (stubPersona) FramingParagraph() string { return "Prioritize security-relevant gaps." }

func TestBuildPreflightPrompt_ContainsAllComponents(t *testing.T) {
	b := NewPromptBuilder()
	prompt := b.BuildPreflightPrompt("Add unit tests for auth module", nil)
	for _, d := range definitions {
		assert.Contains(t, prompt, d.Name)
	}
	assert.Contains(t, prompt, "PREFLIGHT")
}

func TestBuildPreflightPrompt_InjectsPersonaFraming(t *testing.T) {
	b := NewPromptBuilder()
	prompt := b.BuildPreflightPrompt("task", stubPersona{})
	assert.Contains(t, prompt, "Security Reviewer")
	assert.Contains(t, prompt, "auth, crypto")
}

func TestBuildInvestigationRoundPrompt_IncludesPriorGaps(t *testing.T) {
	b := NewPromptBuilder()
	prompt := b.BuildInvestigationRoundPrompt(2, "task", nil, "missing rate-limit coverage")
	assert.Contains(t, prompt, "round 2")
	assert.Contains(t, prompt, "missing rate-limit coverage")
}

func TestBuildPostflightPrompt_IncludesBaselineAndActSummary(t *testing.T) {
	b := NewPromptBuilder()
	baseline := map[string]float64{"engagement": 0.85}
	prompt := b.BuildPostflightPrompt("task", nil, baseline, "tests added, all green")
	assert.Contains(t, prompt, "0.85")
	assert.Contains(t, prompt, "tests added, all green")
}

func TestForbidsHeuristicScoring(t *testing.T) {
	b := NewPromptBuilder()
	prompt := b.BuildPreflightPrompt("task", nil)
	assert.True(t, strings.Contains(prompt, "keyword matching"))
}
