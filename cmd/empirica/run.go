package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nubaeon/empirica/pkg/assessment"
	"github.com/nubaeon/empirica/pkg/cascade"
	"github.com/nubaeon/empirica/pkg/llm"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/telemetry"
	"github.com/nubaeon/empirica/pkg/vector"
)

var (
	runSessionID  string
	runAIID       string
	runTask       string
	runModelID    string
	runPersonaID  string
	runUseThink   bool
	runAutoSign   bool
	runActSummary string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cascade for one session",
	Long: `run drives one Cascade instance through PREFLIGHT, optional THINK,
INVESTIGATE rounds, CHECK, ACT, and POSTFLIGHT for a single (session, ai)
pair, checkpointing every phase.

The ACT phase has no tool-execution surface of its own: when the cascade
reaches ACT it is satisfied with --act-summary, or, if omitted, with one
line read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCascade(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "Session identifier (required)")
	runCmd.Flags().StringVar(&runAIID, "ai-id", "", "Acting agent identifier (required)")
	runCmd.Flags().StringVar(&runTask, "task", "", "Task description shown to the model (required)")
	runCmd.Flags().StringVar(&runModelID, "model-id", "", "Model identifier passed to llm.Client.Ask")
	runCmd.Flags().StringVar(&runPersonaID, "persona", "", "Persona id to blend into the cascade's baseline vector")
	runCmd.Flags().BoolVar(&runUseThink, "use-think", false, "Run the THINK phase between PREFLIGHT and INVESTIGATE")
	runCmd.Flags().BoolVar(&runAutoSign, "auto-sign", false, "Sign every checkpoint with the session's identity")
	runCmd.Flags().StringVar(&runActSummary, "act-summary", "", "Summary reported for the ACT phase (read from stdin if omitted)")
	_ = runCmd.MarkFlagRequired("session-id")
	_ = runCmd.MarkFlagRequired("ai-id")
	_ = runCmd.MarkFlagRequired("task")

	rootCmd.AddCommand(runCmd)
}

func runCascade(ctx context.Context) error {
	var prof *persona.Profile
	if runPersonaID != "" {
		p, err := a.personas.Get(runPersonaID)
		if err != nil {
			return fmt.Errorf("failed to resolve persona %q: %w", runPersonaID, err)
		}
		prof = p
	}

	metrics, err := telemetry.NewCascadeMetrics()
	if err != nil {
		a.logger.Warn("failed to initialize cascade metrics, continuing without them", "error", err)
		metrics = nil
	}

	cfg := cascade.Config{
		SessionID:   runSessionID,
		AIID:        runAIID,
		Task:        runTask,
		ModelID:     runModelID,
		Persona:     prof,
		UseThink:    runUseThink,
		LLM:         resolveLLMClient(),
		Checkpoints: a.checkpoints,
		Sessions:    a.sessions,
		Prompts:     assessment.NewPromptBuilder(),
		ActCallback: actCallback,
		Signer:      a.identities,
		AutoSign:    runAutoSign,
		Metrics:     metrics,
	}

	result, err := cascade.New(cfg).Run(ctx)
	if err != nil {
		return fmt.Errorf("cascade run failed: %w", err)
	}

	outputResult(result)
	return nil
}

// actCallback satisfies cascade.ActCallback: empirica's CLI has no external
// tool-execution surface, so ACT is satisfied with a caller-supplied
// summary rather than performing work itself.
func actCallback(ctx context.Context, current *vector.Vector) (string, []string, error) {
	if runActSummary != "" {
		return runActSummary, nil, nil
	}

	fmt.Fprintln(os.Stderr, "empirica: ACT phase reached, enter a one-line summary of the action taken:")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", nil, fmt.Errorf("empirica: no --act-summary given and stdin closed before ACT summary was read")
	}
	return strings.TrimSpace(scanner.Text()), nil, nil
}

// resolveLLMClient wires a configurable NullClient reply until a live model
// transport is bound; EMPIRICA_NULL_LLM_REPLY lets `run` be driven
// end-to-end in tests and scripted sessions without a real model.
func resolveLLMClient() llm.Client {
	reply := os.Getenv("EMPIRICA_NULL_LLM_REPLY")
	return llm.NullClient{Reply: reply}
}
