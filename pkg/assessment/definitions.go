package assessment

import "github.com/nubaeon/empirica/pkg/vector"

// componentDefinition is the one-line definition of a component shown to
// the LM in the assessment prompt.
type componentDefinition struct {
	Name       string
	Definition string
}

// definitions enumerates all thirteen components in tier order, the same
// order spec.md's data model table lists them.
var definitions = []componentDefinition{
	{vector.NameEngagement, "Is the agent actively committing to this task?"},
	{vector.NameFoundationKnow, "Domain knowledge relevant to this task."},
	{vector.NameFoundationDo, "Execution capability for this task's concrete actions."},
	{vector.NameFoundationContext, "Situational sufficiency: is there enough context to proceed?"},
	{vector.NameComprehensionClarity, "Clarity of the request as given."},
	{vector.NameComprehensionCoherence, "Internal consistency of the available information."},
	{vector.NameComprehensionSignal, "Quality of the evidence gathered so far."},
	{vector.NameComprehensionDensity, "Information richness; excessive density is undesirable."},
	{vector.NameExecutionState, "Progression of the task so far."},
	{vector.NameExecutionChange, "Rate at which knowledge is changing as work proceeds."},
	{vector.NameExecutionCompletion, "Clarity of the path remaining to the goal."},
	{vector.NameExecutionImpact, "Quality of the output produced so far."},
	{vector.NameUncertainty, "The agent's residual doubt (higher means more doubt)."},
}
