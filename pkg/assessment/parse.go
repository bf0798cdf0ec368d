package assessment

import (
	"encoding/json"
	"strings"

	"github.com/nubaeon/empirica/pkg/vector"
)

// leafPayload is the wire shape of a single component leaf, common to both
// the nested-by-tier and flat-by-component reply shapes.
type leafPayload struct {
	Score                 float64 `json:"score"`
	Rationale             string  `json:"rationale"`
	Evidence              string  `json:"evidence"`
	WarrantsInvestigation bool    `json:"warrants_investigation"`
	InvestigationPriority int     `json:"investigation_priority"`
}

// tierGroup is the nested shape for a multi-component tier
// (foundation/comprehension/execution).
type tierGroup map[string]json.RawMessage

// nestedReply is the canonical nested-by-tier reply shape from spec.md §6.
type nestedReply struct {
	Engagement    json.RawMessage `json:"engagement"`
	Foundation    tierGroup       `json:"foundation"`
	Comprehension tierGroup       `json:"comprehension"`
	Execution     tierGroup       `json:"execution"`
	Uncertainty   json.RawMessage `json:"uncertainty"`
}

// Result is the outcome of a successful parse: the built Vector plus any
// non-fatal warnings (e.g. unknown top-level keys).
type Result struct {
	Vector   *vector.Vector
	Warnings []string
}

// Parse accepts an LM reply in either the nested-by-tier or the
// flat-by-component shape, validates it against spec.md §3/§4.2's
// invariants, and returns a Vector. Unknown top-level keys are ignored with
// a warning; unknown keys inside a leaf are ignored silently.
func Parse(reply string) (*Result, error) {
	stripped := stripFences(reply)
	if strings.TrimSpace(stripped) == "" {
		return nil, &MalformedReplyError{Err: errEmptyReply}
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripped), &generic); err != nil {
		return nil, &MalformedReplyError{Err: err}
	}

	leaves, warnings, err := normalize(generic)
	if err != nil {
		return nil, err
	}

	components := make(map[string]vector.Component, len(leaves))
	for name, leaf := range leaves {
		if err := validateLeaf(name, leaf); err != nil {
			return nil, err
		}
		components[name] = vector.Component{
			Score:                 leaf.Score,
			Rationale:             leaf.Rationale,
			Evidence:              leaf.Evidence,
			WarrantsInvestigation: leaf.WarrantsInvestigation,
			InvestigationPriority: leaf.InvestigationPriority,
		}
	}

	for _, name := range vector.Names {
		if _, ok := components[name]; !ok {
			return nil, &MissingComponentError{Name: name}
		}
	}

	v, err := vector.FromParsed(components)
	if err != nil {
		return nil, err
	}

	return &Result{Vector: v, Warnings: warnings}, nil
}

var errEmptyReply = &emptyReplyErr{}

type emptyReplyErr struct{}

func (e *emptyReplyErr) Error() string { return "reply is empty after stripping fences" }

// stripFences removes a single leading/trailing fenced-code block
// (```json ... ``` or ``` ... ```) if present, and trims surrounding
// whitespace. It is tolerant of no fences at all.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalize flattens either reply shape into a canonical-name → leafPayload
// map. It detects the nested shape by the presence of a "foundation" (or
// "comprehension"/"execution") key holding a JSON object rather than a leaf.
func normalize(generic map[string]json.RawMessage) (map[string]leafPayload, []string, error) {
	if isNestedShape(generic) {
		return normalizeNested(generic)
	}
	return normalizeFlat(generic)
}

func isNestedShape(generic map[string]json.RawMessage) bool {
	for _, tierKey := range []string{"foundation", "comprehension", "execution"} {
		raw, ok := generic[tierKey]
		if !ok {
			continue
		}
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err == nil {
			if _, hasScore := probe["score"]; !hasScore {
				return true
			}
		}
	}
	return false
}

func normalizeNested(generic map[string]json.RawMessage) (map[string]leafPayload, []string, error) {
	var nested nestedReply
	// Re-marshal the generic map and decode it into the nested struct; keys
	// the struct does not declare are ignored here and reported afterwards
	// by unknownTopLevelKeys.
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, nil, &MalformedReplyError{Err: err}
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, nil, &MalformedReplyError{Err: err}
	}

	leaves := make(map[string]leafPayload, len(vector.Names))
	if nested.Engagement != nil {
		var leaf leafPayload
		if err := json.Unmarshal(nested.Engagement, &leaf); err == nil {
			leaves[vector.NameEngagement] = leaf
		}
	}
	if nested.Uncertainty != nil {
		var leaf leafPayload
		if err := json.Unmarshal(nested.Uncertainty, &leaf); err == nil {
			leaves[vector.NameUncertainty] = leaf
		}
	}
	decodeTierGroup(nested.Foundation, map[string]string{
		"know": vector.NameFoundationKnow, "do": vector.NameFoundationDo, "context": vector.NameFoundationContext,
	}, leaves)
	decodeTierGroup(nested.Comprehension, map[string]string{
		"clarity": vector.NameComprehensionClarity, "coherence": vector.NameComprehensionCoherence,
		"signal": vector.NameComprehensionSignal, "density": vector.NameComprehensionDensity,
	}, leaves)
	decodeTierGroup(nested.Execution, map[string]string{
		"state": vector.NameExecutionState, "change": vector.NameExecutionChange,
		"completion": vector.NameExecutionCompletion, "impact": vector.NameExecutionImpact,
	}, leaves)

	warnings := unknownTopLevelKeys(generic, map[string]bool{
		"engagement": true, "foundation": true, "comprehension": true, "execution": true, "uncertainty": true,
	})

	return leaves, warnings, nil
}

func decodeTierGroup(group tierGroup, aliasToCanonical map[string]string, out map[string]leafPayload) {
	for alias, raw := range group {
		canonical, ok := aliasToCanonical[alias]
		if !ok {
			continue // unknown key inside a tier group: ignored silently
		}
		var leaf leafPayload
		if err := json.Unmarshal(raw, &leaf); err == nil {
			out[canonical] = leaf
		}
	}
}

func normalizeFlat(generic map[string]json.RawMessage) (map[string]leafPayload, []string, error) {
	leaves := make(map[string]leafPayload, len(vector.Names))
	known := make(map[string]bool, len(vector.Names))
	for key, raw := range generic {
		canonical, ok := vector.CanonicalName(key)
		if !ok {
			continue
		}
		known[key] = true
		var leaf leafPayload
		if err := json.Unmarshal(raw, &leaf); err != nil {
			return nil, nil, &MalformedReplyError{Err: err}
		}
		leaves[canonical] = leaf
	}
	warnings := unknownTopLevelKeys(generic, known)
	return leaves, warnings, nil
}

func unknownTopLevelKeys(generic map[string]json.RawMessage, known map[string]bool) []string {
	var warnings []string
	for key := range generic {
		if !known[key] {
			warnings = append(warnings, "unknown top-level key ignored: "+key)
		}
	}
	return warnings
}

func validateLeaf(name string, leaf leafPayload) error {
	if leaf.Score < 0 || leaf.Score > 1 {
		return &OutOfRangeError{Name: name, Field: "score", Value: leaf.Score}
	}
	if leaf.InvestigationPriority < 0 || leaf.InvestigationPriority > 10 {
		return &OutOfRangeError{Name: name, Field: "investigation_priority", Value: float64(leaf.InvestigationPriority)}
	}
	if leaf.WarrantsInvestigation && leaf.InvestigationPriority < 1 {
		return &InconsistentFlagsError{Name: name}
	}
	return nil
}
