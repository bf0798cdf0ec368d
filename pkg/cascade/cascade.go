package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nubaeon/empirica/pkg/assessment"
	"github.com/nubaeon/empirica/pkg/checkpoint"
	"github.com/nubaeon/empirica/pkg/identity"
	"github.com/nubaeon/empirica/pkg/llm"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/telemetry"
	"github.com/nubaeon/empirica/pkg/vector"
)

var tracer = otel.Tracer("github.com/nubaeon/empirica/pkg/cascade")

// ActCallback performs the ACT phase's external work and reports its
// outcome. The cascade core never performs this work itself (spec.md
// §4.4): it writes the ACT marker checkpoint, invokes ActCallback with the
// current vector, and folds the returned summary into the POSTFLIGHT
// prompt.
type ActCallback func(ctx context.Context, current *vector.Vector) (summary string, artifacts []string, err error)

// Config configures a single cascade run. LLM, Checkpoints, and Sessions
// are required; everything else has a documented zero-value behavior.
type Config struct {
	SessionID string
	AIID      string
	Task      string
	ModelID   string

	// Persona, if non-nil, is blended into every phase's baseline vector
	// and supplies the investigation-profile knobs (spec.md §4.3). Nil
	// means no persona: vector.DefaultActionKnobs and a 7-round budget.
	Persona *persona.Profile

	// UseThink runs THINK once between PREFLIGHT and INVESTIGATE/CHECK.
	// spec.md §4.4 calls THINK "optional, persona-driven" without naming
	// the selector in the persona profile format, so the decision is left
	// to the caller via this flag rather than inferred from Persona.
	UseThink bool

	LLM         llm.Client
	Checkpoints *checkpoint.Store
	Sessions    sessionstore.Store
	Prompts     *assessment.PromptBuilder

	ActCallback ActCallback

	// Signer and AutoSign implement the "whether to auto-sign checkpoints"
	// environment knob (spec.md §6); default off. When both are set, every
	// checkpoint's canonical body is signed before Append.
	Signer   *identity.Service
	AutoSign bool

	// Cancel is consulted at every phase boundary. Nil means never
	// canceled.
	Cancel *CancelToken

	// Metrics records per-phase duration, checkpoint writes, and
	// investigation round counts. Nil disables metric recording.
	Metrics *telemetry.CascadeMetrics
}

// Cascade runs Config's phase sequence once. Not safe for concurrent use
// or for calling Run twice on the same instance — construct a fresh
// Cascade per session run.
type Cascade struct {
	cfg   Config
	knobs persona.CascadeKnobs

	round   int
	current *vector.Vector
	baseline *vector.Vector

	checkpointIDs  []string
	investigations []InvestigationRoundLog

	actSummary   string
	actArtifacts []string

	delta       map[string]float64
	calibration float64
}

// New constructs a Cascade. Persona-derived knobs are resolved once, up
// front, from cfg.Persona's persona_type (or the defaults if cfg.Persona
// is nil).
func New(cfg Config) *Cascade {
	knobs := persona.DefaultCascadeKnobs
	if cfg.Persona != nil {
		knobs = cfg.Persona.Knobs()
	}
	if cfg.Cancel == nil {
		cfg.Cancel = NewCancelToken()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = assessment.NewPromptBuilder()
	}
	return &Cascade{cfg: cfg, knobs: knobs}
}

// Run executes the cascade to completion or to its first terminal state.
// A non-nil error means an LM-transport, identity, or storage error
// propagated unmodified (spec.md §7); every cascade-flow outcome (BLOCKED,
// ESCALATED, FAULTED, CANCELED, COMPLETED) instead comes back as a Result
// with a nil error. BLOCKED, ESCALATED, FAULTED and COMPLETED results have
// their terminal checkpoint already durable; a CANCELED result writes no
// checkpoint of its own, so the checkpoint of the last phase that ran before
// cancellation stays the session's latest.
func (c *Cascade) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "cascade.run", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID),
		attribute.String("agent_id", c.cfg.AIID),
	))
	defer span.End()

	phase := PhasePreflight
	for {
		if c.cfg.Cancel.IsCanceled() {
			return c.canceledResult(ctx, phase), nil
		}

		slog.Info("cascade: entering phase",
			"session_id", c.cfg.SessionID, "ai_id", c.cfg.AIID, "phase", phase, "round", c.round)

		var (
			result *Result
			next   Phase
			err    error
		)
		started := time.Now()
		switch phase {
		case PhasePreflight:
			result, next, err = c.stepPreflight(ctx)
		case PhaseThink:
			result, next, err = c.stepThink(ctx)
		case PhaseInvestigate:
			result, next, err = c.stepInvestigate(ctx)
		case PhaseCheck:
			result, next, err = c.stepCheck(ctx)
		case PhaseAct:
			result, next, err = c.stepAct(ctx)
		case PhasePostflight:
			result, next, err = c.stepPostflight(ctx)
		default:
			return nil, fmt.Errorf("cascade: unknown phase %q", phase)
		}
		c.cfg.Metrics.RecordPhase(ctx, string(phase), float64(time.Since(started).Milliseconds()))

		if err != nil {
			return nil, err
		}
		if result != nil {
			c.cfg.Metrics.RecordInvestigationRounds(ctx, len(c.investigations))
			return result, nil
		}
		phase = next
	}
}

func (c *Cascade) stepPreflight(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.PREFLIGHT", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	prompt := c.cfg.Prompts.BuildPreflightPrompt(c.cfg.Task, c.framing())
	v, action, _, err := c.assess(ctx, PhasePreflight, prompt)
	if result, propagate := c.handleAssessError(ctx, PhasePreflight, err); result != nil || propagate != nil {
		return result, "", propagate
	}

	c.baseline = v
	c.current = v

	meta := metadataFor(v, action)
	meta["task"] = c.cfg.Task
	if _, err := c.writeCheckpoint(ctx, PhasePreflight, v, meta); err != nil {
		return nil, "", err
	}

	switch action {
	case vector.ActionBlock:
		return c.result(StatusBlocked, PhasePreflight, nil), "", nil
	case vector.ActionEscalate:
		return c.result(StatusEscalated, PhasePreflight, nil), "", nil
	case vector.ActionInvestigate:
		if c.cfg.UseThink {
			return nil, PhaseThink, nil
		}
		c.round = 1
		return nil, PhaseInvestigate, nil
	default: // vector.ActionProceed
		if c.cfg.UseThink {
			return nil, PhaseThink, nil
		}
		return nil, PhaseCheck, nil
	}
}

func (c *Cascade) stepThink(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.THINK", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	prompt := c.cfg.Prompts.BuildThinkPrompt(c.cfg.Task, c.framing())
	v, action, _, err := c.assess(ctx, PhaseThink, prompt)
	if result, propagate := c.handleAssessError(ctx, PhaseThink, err); result != nil || propagate != nil {
		return result, "", propagate
	}

	c.current = v
	if _, err := c.writeCheckpoint(ctx, PhaseThink, v, metadataFor(v, action)); err != nil {
		return nil, "", err
	}

	switch action {
	case vector.ActionBlock:
		return c.result(StatusBlocked, PhaseThink, nil), "", nil
	case vector.ActionEscalate:
		return c.result(StatusEscalated, PhaseThink, nil), "", nil
	case vector.ActionInvestigate:
		c.round = 1
		return nil, PhaseInvestigate, nil
	default:
		return nil, PhaseCheck, nil
	}
}

func (c *Cascade) stepInvestigate(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.INVESTIGATE", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	prompt := c.cfg.Prompts.BuildInvestigationRoundPrompt(c.round, c.cfg.Task, c.framing(), c.priorGapsSummary())
	v, action, breaches, err := c.assess(ctx, PhaseInvestigate, prompt)
	if result, propagate := c.handleAssessError(ctx, PhaseInvestigate, err); result != nil || propagate != nil {
		return result, "", propagate
	}

	c.investigations = append(c.investigations, InvestigationRoundLog{
		Round:          c.round,
		FindingsDigest: findingsDigest(v, breaches),
		VectorDelta:    componentDelta(c.current, v),
	})
	c.current = v

	meta := metadataFor(v, action)
	meta["investigation_count"] = len(c.investigations)
	if _, err := c.writeCheckpoint(ctx, PhaseInvestigate, v, meta); err != nil {
		return nil, "", err
	}

	if action == vector.ActionInvestigate && c.round < c.knobs.MaxRounds {
		c.round++
		return nil, PhaseInvestigate, nil
	}
	// Budget exhausted, or the LM itself recommends proceeding/escalating:
	// either way CHECK makes the next call (spec.md §4.4).
	return nil, PhaseCheck, nil
}

func (c *Cascade) stepCheck(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.CHECK", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	prompt := c.cfg.Prompts.BuildCheckPrompt(c.round, c.cfg.Task, c.framing())
	v, action, _, err := c.assess(ctx, PhaseCheck, prompt)
	if result, propagate := c.handleAssessError(ctx, PhaseCheck, err); result != nil || propagate != nil {
		return result, "", propagate
	}

	c.current = v
	meta := metadataFor(v, action)
	if len(c.investigations) > 0 {
		meta["investigation_count"] = len(c.investigations)
	}
	if _, err := c.writeCheckpoint(ctx, PhaseCheck, v, meta); err != nil {
		return nil, "", err
	}

	switch {
	case action == vector.ActionProceed:
		return nil, PhaseAct, nil
	case action == vector.ActionInvestigate && c.round < c.knobs.MaxRounds:
		c.round++
		return nil, PhaseInvestigate, nil
	default:
		// Either an outright ESCALATE, or INVESTIGATE with the round
		// budget already exhausted: both terminal here. The regular CHECK
		// checkpoint above already recorded this round's assessment; write
		// a second, distinguishing checkpoint carrying the terminal
		// decision, mirroring the diagnostic write a FAULTED phase makes.
		escalateMeta := metadataFor(v, vector.ActionEscalate)
		if _, err := c.writeCheckpoint(ctx, PhaseCheck, v, escalateMeta); err != nil {
			return nil, "", err
		}
		return c.result(StatusEscalated, PhaseCheck, nil), "", nil
	}
}

func (c *Cascade) stepAct(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.ACT", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	if _, err := c.writeCheckpoint(ctx, PhaseAct, c.current, map[string]any{
		"recommended_action": string(vector.ActionProceed),
	}); err != nil {
		return nil, "", err
	}

	if c.cfg.ActCallback == nil {
		return nil, "", fmt.Errorf("cascade: ACT phase reached with no ActCallback configured")
	}

	summary, artifacts, err := c.cfg.ActCallback(ctx, c.current)
	if err != nil {
		return nil, "", err
	}
	c.actSummary = summary
	c.actArtifacts = artifacts
	return nil, PhasePostflight, nil
}

func (c *Cascade) stepPostflight(ctx context.Context) (*Result, Phase, error) {
	ctx, span := tracer.Start(ctx, "cascade.POSTFLIGHT", trace.WithAttributes(
		attribute.String("session_id", c.cfg.SessionID), attribute.String("agent_id", c.cfg.AIID), attribute.Int("round", c.round)))
	defer span.End()

	prompt := c.cfg.Prompts.BuildPostflightPrompt(c.cfg.Task, c.framing(), c.baseline.ToFlat(), c.actSummary)
	v, action, _, err := c.assess(ctx, PhasePostflight, prompt)
	if result, propagate := c.handleAssessError(ctx, PhasePostflight, err); result != nil || propagate != nil {
		return result, "", propagate
	}

	c.current = v
	c.delta = componentDelta(c.baseline, v)
	c.calibration = calibrationAccuracy(c.delta)

	meta := metadataFor(v, action)
	meta["delta"] = c.delta
	meta["calibration_accuracy"] = c.calibration
	if _, err := c.writeCheckpoint(ctx, PhasePostflight, v, meta); err != nil {
		return nil, "", err
	}

	return c.result(StatusCompleted, PhasePostflight, nil), "", nil
}

// framing adapts cfg.Persona to assessment.PersonaFraming, returning a true
// nil interface (not a non-nil interface wrapping a nil pointer) when no
// persona is bound.
func (c *Cascade) framing() assessment.PersonaFraming {
	if c.cfg.Persona == nil {
		return nil
	}
	return c.cfg.Persona
}
