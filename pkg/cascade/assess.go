package cascade

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nubaeon/empirica/pkg/assessment"
	"github.com/nubaeon/empirica/pkg/checkpoint"
	"github.com/nubaeon/empirica/pkg/empirica"
	"github.com/nubaeon/empirica/pkg/identity"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/vector"
)

// assess asks the LM once, parses its reply, and folds in the persona
// prior and the action decision. A malformed reply is retried exactly once
// with the same prompt (spec.md §7's "retry once, then fault" policy); an
// LM-transport error is returned unmodified on the first failure with no
// retry.
func (c *Cascade) assess(ctx context.Context, phase Phase, prompt string) (*vector.Vector, vector.Action, []string, error) {
	parsed, err := c.askAndParse(ctx, prompt)
	if err != nil {
		if !isParseError(err) {
			return nil, "", nil, err
		}
		slog.Warn("cascade: malformed reply, retrying once",
			"session_id", c.cfg.SessionID, "ai_id", c.cfg.AIID, "phase", phase, "round", c.round, "error", err)
		parsed, err = c.askAndParse(ctx, prompt)
		if err != nil {
			if !isParseError(err) {
				return nil, "", nil, err
			}
			return nil, "", nil, empirica.New(empirica.KindPhaseFaulted, string(phase), c.round, err)
		}
	}

	v := parsed.Vector
	if c.cfg.Persona != nil {
		v = persona.Blend(v, c.cfg.Persona, personaPhase(phase))
	}

	action, breaches := v.RecommendedAction(vector.ActionKnobs{
		EngagementGate:    c.knobs.EngagementGate,
		ConfidenceProceed: c.knobs.ConfidenceProceed,
	})

	if err := c.recordAssessment(ctx, phase, v, action, breaches, parsed.Warnings); err != nil {
		return nil, "", nil, err
	}
	return v, action, breaches, nil
}

// assessmentRecord is the full per-phase/round assessment persisted to
// sessionstore's "assessments/" keyspace: unlike pkg/checkpoint's
// size-budgeted Record, it keeps every component's rationale and evidence
// in full, per spec.md §6's distinction between the compressed checkpoint
// trail and the durable assessment history behind it.
type assessmentRecord struct {
	SessionID         string                      `json:"session_id"`
	AIID              string                      `json:"ai_id"`
	Phase             string                      `json:"phase"`
	Round             int                         `json:"round"`
	Components        map[string]vector.Component `json:"components"`
	RecommendedAction string                      `json:"recommended_action"`
	ThresholdBreaches []string                    `json:"threshold_breaches,omitempty"`
	ParserWarnings    []string                    `json:"parser_warnings,omitempty"`
	OverallConfidence float64                     `json:"overall_confidence"`
}

// recordAssessment persists the full (uncompressed) assessment for one
// phase/round to the session store. A nil Sessions store is a caller
// configuration error in production but is tolerated here as a no-op to
// keep unit tests that only exercise checkpointing lightweight.
func (c *Cascade) recordAssessment(ctx context.Context, phase Phase, v *vector.Vector, action vector.Action, breaches, warnings []string) error {
	if c.cfg.Sessions == nil {
		return nil
	}
	rec := assessmentRecord{
		SessionID:         c.cfg.SessionID,
		AIID:              c.cfg.AIID,
		Phase:             string(phase),
		Round:             c.round,
		Components:        v.Components(),
		RecommendedAction: string(action),
		ThresholdBreaches: breaches,
		ParserWarnings:    warnings,
		OverallConfidence: roundTo2(v.OverallConfidence()),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.cfg.Sessions.Put(ctx, sessionstore.AssessmentKey(c.cfg.SessionID, string(phase), c.round), body)
}

// askAndParse performs a single Ask-then-Parse attempt with no retry logic
// of its own; assess layers the retry-once policy on top of it.
func (c *Cascade) askAndParse(ctx context.Context, prompt string) (*assessment.Result, error) {
	reply, err := c.cfg.LLM.Ask(ctx, prompt, c.cfg.ModelID)
	if err != nil {
		return nil, err
	}
	return assessment.Parse(reply)
}

// isParseError reports whether err originates from the assessment parser or
// from vector construction, as opposed to an LM-transport failure. Only
// errors of this class are eligible for the phase's single retry.
func isParseError(err error) bool {
	return errors.Is(err, assessment.ErrMalformedReply) ||
		errors.Is(err, assessment.ErrMissingComponent) ||
		errors.Is(err, assessment.ErrOutOfRange) ||
		errors.Is(err, assessment.ErrInconsistentFlags) ||
		errors.Is(err, vector.ErrInvalidVector)
}

// handleAssessError turns a retry-exhausted PhaseFaulted error into a
// terminal FAULTED Result with its own diagnostic checkpoint, and leaves
// every other error (a raw transport/identity/storage failure) untouched
// for the caller to propagate. Returns (nil, nil) when err is nil.
func (c *Cascade) handleAssessError(ctx context.Context, phase Phase, err error) (*Result, error) {
	if err == nil {
		return nil, nil
	}
	var faulted *empirica.Error
	if !errors.As(err, &faulted) || faulted.Kind != empirica.KindPhaseFaulted {
		return nil, err
	}

	v := c.current
	if v == nil {
		v = neutralVector()
	}
	c.current = v

	if _, wErr := c.writeCheckpoint(ctx, phase, v, map[string]any{"error": faulted.Error()}); wErr != nil {
		return nil, wErr
	}
	return c.result(StatusFaulted, phase, faulted), nil
}

// writeCheckpoint builds, optionally signs, and appends one checkpoint
// record, tracking its id on the cascade for the final Result.
func (c *Cascade) writeCheckpoint(ctx context.Context, phase Phase, v *vector.Vector, metadata map[string]any) (string, error) {
	rec, err := checkpoint.NewRecord(c.cfg.SessionID, c.cfg.AIID, string(phase), c.round, v, metadata, time.Now())
	if err != nil {
		return "", err
	}

	if c.cfg.AutoSign && c.cfg.Signer != nil {
		signed, err := signRecord(c.cfg.Signer, c.cfg.AIID, rec)
		if err != nil {
			return "", err
		}
		rec = signed
	}

	id, err := c.cfg.Checkpoints.Append(ctx, rec)
	if err != nil {
		return "", err
	}
	c.checkpointIDs = append(c.checkpointIDs, id)
	c.cfg.Metrics.RecordCheckpointWritten(ctx)

	slog.Info("cascade: checkpoint written",
		"session_id", c.cfg.SessionID, "ai_id", c.cfg.AIID, "phase", phase, "round", c.round, "checkpoint_id", id)
	return id, nil
}

// canceledResult builds the Result for a cancellation observed at a phase
// boundary (spec.md §4.4/§5): whatever checkpoint the last completed phase
// wrote stays the trace's latest; no extra checkpoint is written for
// cancellation itself.
func (c *Cascade) canceledResult(ctx context.Context, phase Phase) *Result {
	slog.Info("cascade: canceled at phase boundary",
		"session_id", c.cfg.SessionID, "ai_id", c.cfg.AIID, "phase", phase, "round", c.round)
	return c.result(StatusCanceled, phase, nil)
}

// result assembles a terminal Result from the cascade's accumulated state.
func (c *Cascade) result(status Status, phase Phase, fault error) *Result {
	var flat map[string]float64
	if c.current != nil {
		flat = c.current.ToFlat()
	}
	return &Result{
		SessionID:            c.cfg.SessionID,
		AIID:                 c.cfg.AIID,
		Status:               status,
		Phase:                phase,
		Round:                c.round,
		FinalVector:          flat,
		CheckpointIDs:        c.checkpointIDs,
		InvestigationLog:     c.investigations,
		Delta:                c.delta,
		CalibrationAccuracy:  c.calibration,
		FaultReason:          fault,
	}
}

// priorGapsSummary condenses the previous round's findings digests into one
// line for the next BuildInvestigationRoundPrompt call; empty before the
// first round.
func (c *Cascade) priorGapsSummary() string {
	if len(c.investigations) == 0 {
		return ""
	}
	last := c.investigations[len(c.investigations)-1]
	return fmt.Sprintf("round %d findings: %s", last.Round, last.FindingsDigest)
}

// personaPhase converts a cascade.Phase to its persona.Phase twin. Both
// types exist to avoid an import cycle between pkg/cascade and pkg/persona.
func personaPhase(phase Phase) persona.Phase {
	return persona.Phase(phase)
}

// metadataFor builds the whitelisted metadata map a checkpoint carries for
// a routine (non-error) phase transition.
func metadataFor(v *vector.Vector, action vector.Action) map[string]any {
	return map[string]any{
		"confidence":         roundTo2(v.OverallConfidence()),
		"recommended_action": string(action),
	}
}

// componentDelta computes to's componentwise score minus from's, for every
// canonical component both vectors carry.
func componentDelta(from, to *vector.Vector) map[string]float64 {
	if from == nil || to == nil {
		return nil
	}
	fromFlat, toFlat := from.ToFlat(), to.ToFlat()
	delta := make(map[string]float64, len(toFlat))
	for name, toScore := range toFlat {
		fromScore, ok := fromFlat[name]
		if !ok {
			continue
		}
		delta[name] = roundTo2(toScore - fromScore)
	}
	return delta
}

// executionTierNames is the three execution-tier components calibration
// accuracy is scored against: completion, change, impact. execution_state
// is deliberately excluded (spec.md §4.4's POSTFLIGHT calibration step).
var executionTierNames = []string{
	vector.NameExecutionChange, vector.NameExecutionCompletion, vector.NameExecutionImpact,
}

// calibrationAccuracy scores how little the execution tier moved between
// baseline and POSTFLIGHT: 1 minus the mean absolute delta, clamped to
// [0,1]. A cascade whose own execution-tier self-assessment barely shifted
// after ACT was well calibrated going in.
func calibrationAccuracy(delta map[string]float64) float64 {
	if delta == nil {
		return 0
	}
	var sum float64
	var n int
	for _, name := range executionTierNames {
		d, ok := delta[name]
		if !ok {
			continue
		}
		if d < 0 {
			d = -d
		}
		sum += d
		n++
	}
	if n == 0 {
		return 0
	}
	accuracy := 1 - sum/float64(n)
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 1 {
		accuracy = 1
	}
	return roundTo2(accuracy)
}

// findingsDigest compresses one INVESTIGATE round's assessment into a short
// content hash plus the breached thresholds, so the round's full rationale
// text never has to be retained in InvestigationRoundLog.
func findingsDigest(v *vector.Vector, breaches []string) string {
	sorted := append([]string(nil), breaches...)
	sort.Strings(sorted)
	flat := v.ToFlat()
	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%.2f;", name, flat[name])
	}
	b.WriteString(strings.Join(sorted, ","))
	sum := sha256.Sum256([]byte(b.String()))
	digest := hex.EncodeToString(sum[:])[:12]
	if len(sorted) == 0 {
		return digest
	}
	return digest + ":" + strings.Join(sorted, ",")
}

// neutralVector is the fallback assessment used when a phase faults before
// ever producing a real vector (an early PREFLIGHT malformed-reply
// exhaustion), so a FAULTED Result's FinalVector and diagnostic checkpoint
// still carry a well-formed, uninformative vector rather than a nil one.
func neutralVector() *vector.Vector {
	components := make(map[string]vector.Component, len(vector.Names))
	for _, name := range vector.Names {
		components[name] = vector.Component{
			Score:     0.5,
			Rationale: "neutral fallback after phase fault",
		}
	}
	v, err := vector.FromParsed(components)
	if err != nil {
		panic(fmt.Sprintf("cascade: neutralVector is not a valid vector: %v", err))
	}
	return v
}

// roundTo2 matches pkg/checkpoint's own rounding so metadata and checkpoint
// vectors agree to the same precision.
func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}

// signRecord signs rec's pre-signature canonical body and returns a copy
// with Signature populated, base64-encoded.
func signRecord(signer *identity.Service, aiID string, rec checkpoint.Record) (checkpoint.Record, error) {
	canonical, err := identity.CanonicalJSON(rec)
	if err != nil {
		return rec, err
	}
	sig, err := signer.Sign(canonical, aiID)
	if err != nil {
		return rec, err
	}
	rec.Signature = base64.StdEncoding.EncodeToString(sig)
	return rec, nil
}
