package assessment

import (
	"fmt"
	"strings"
)

// PersonaFraming is the minimal view of a bound persona the prompt builder
// needs. pkg/persona's Profile type implements this; the interface exists
// so this package does not need to import pkg/persona's full surface (and
// so tests can supply a stub without constructing a real Profile).
type PersonaFraming interface {
	PersonaID() string
	DisplayName() string
	FocusDomains() []string
	FramingParagraph() string
}

// PromptBuilder builds all prompt text the cascade hands to the LM
// transport. Stateless — all state comes from parameters, mirroring the
// teacher's prompt.Builder.
type PromptBuilder struct{}

// NewPromptBuilder constructs a PromptBuilder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const (
	forbidHeuristicText = "Score from genuine reasoning about this specific task and context. " +
		"Do not use keyword matching, templates, or a fixed default score."

	replyShapeInstructions = `Reply with a single JSON object nested by tier, exactly this shape:
{
  "engagement": {"score": <0..1>, "rationale": "...", "evidence": "...", "warrants_investigation": <bool>, "investigation_priority": <0..10>},
  "foundation": {
    "know": {...same leaf shape...},
    "do": {...},
    "context": {...}
  },
  "comprehension": {
    "clarity": {...}, "coherence": {...}, "signal": {...}, "density": {...}
  },
  "execution": {
    "state": {...}, "change": {...}, "completion": {...}, "impact": {...}
  },
  "uncertainty": {...same leaf shape...}
}
Every leaf must carry score, rationale, evidence (optional), warrants_investigation, and investigation_priority.
Do not wrap the JSON in any commentary; fenced code blocks are acceptable but not required.`
)

// componentEnumeration renders the thirteen component definitions as a
// bullet list.
func componentEnumeration() string {
	var b strings.Builder
	for _, d := range definitions {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Definition)
	}
	return b.String()
}

// personaFraming renders the one-paragraph persona framing injected into the
// prompt when a persona is bound, or "" when none is.
func personaFraming(p PersonaFraming) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("\nPersona: %s (%s). Focus domains: %s. %s\n",
		p.DisplayName(), p.PersonaID(), strings.Join(p.FocusDomains(), ", "), p.FramingParagraph())
}

func baseInstructions(phase string, round int, task string, p PersonaFraming) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are assessing your own epistemic state for phase %s", phase)
	if round > 0 {
		fmt.Fprintf(&b, ", investigation round %d", round)
	}
	b.WriteString(".\n\nTask:\n")
	b.WriteString(task)
	b.WriteString("\n\nScore each of the following thirteen components:\n")
	b.WriteString(componentEnumeration())
	b.WriteString(personaFraming(p))
	b.WriteString("\n")
	b.WriteString(forbidHeuristicText)
	b.WriteString("\n\n")
	b.WriteString(replyShapeInstructions)
	return b.String()
}

// BuildPreflightPrompt builds the PREFLIGHT assessment prompt.
func (b *PromptBuilder) BuildPreflightPrompt(task string, persona PersonaFraming) string {
	return baseInstructions("PREFLIGHT", 0, task, persona)
}

// BuildThinkPrompt builds the THINK assessment prompt.
func (b *PromptBuilder) BuildThinkPrompt(task string, persona PersonaFraming) string {
	return baseInstructions("THINK", 0, task, persona)
}

// BuildInvestigationRoundPrompt builds an INVESTIGATE-phase prompt, with a
// summary of the previous round's gaps appended when priorGapsSummary is
// non-empty.
func (b *PromptBuilder) BuildInvestigationRoundPrompt(round int, task string, persona PersonaFraming, priorGapsSummary string) string {
	prompt := baseInstructions("INVESTIGATE", round, task, persona)
	if priorGapsSummary != "" {
		prompt += "\n\nPrevious round's gaps:\n" + priorGapsSummary
	}
	return prompt
}

// BuildCheckPrompt builds the CHECK-phase prompt, which demands a decision
// on whether the agent can proceed now.
func (b *PromptBuilder) BuildCheckPrompt(round int, task string, persona PersonaFraming) string {
	prompt := baseInstructions("CHECK", round, task, persona)
	prompt += "\n\nIn addition to the scores above, explicitly decide: can we proceed now?"
	return prompt
}

// BuildPostflightPrompt builds the POSTFLIGHT-phase prompt, including the
// baseline vector and the ACT-phase outcome summary.
func (b *PromptBuilder) BuildPostflightPrompt(task string, persona PersonaFraming, baselineFlat map[string]float64, actSummary string) string {
	var b2 strings.Builder
	b2.WriteString(baseInstructions("POSTFLIGHT", 0, task, persona))
	b2.WriteString("\n\nBaseline (PREFLIGHT) scores for comparison:\n")
	for _, d := range definitions {
		fmt.Fprintf(&b2, "- %s: %.2f\n", d.Name, baselineFlat[d.Name])
	}
	b2.WriteString("\nSummary of the completed ACT phase:\n")
	b2.WriteString(actSummary)
	return b2.String()
}
