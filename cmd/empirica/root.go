package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nubaeon/empirica/pkg/checkpoint"
	"github.com/nubaeon/empirica/pkg/config"
	"github.com/nubaeon/empirica/pkg/goal"
	"github.com/nubaeon/empirica/pkg/identity"
	"github.com/nubaeon/empirica/pkg/persona"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/sessionstore/memstore"
	"github.com/nubaeon/empirica/pkg/sessionstore/pgstore"
	"github.com/nubaeon/empirica/pkg/telemetry"
	"github.com/nubaeon/empirica/pkg/vcsnotes"
	"github.com/nubaeon/empirica/pkg/version"
)

// app bundles the wiring every subcommand needs, built once in
// PersistentPreRunE and torn down in PersistentPostRun.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	sessions    sessionstore.Store
	pgStore     *pgstore.Store // non-nil only when sessions is Postgres-backed
	notes       *vcsnotes.Store
	checkpoints *checkpoint.Store
	goals       *goal.Store
	identities  *identity.Service
	personas    *persona.Registry
}

var (
	a          *app
	configDir  string
	outputText bool
)

var rootCmd = &cobra.Command{
	Use:   "empirica",
	Short: "Metacognitive supervision for LM agents",
	Long: `empirica supervises one LM agent through a cascade of epistemic
self-checks — PREFLIGHT, optional THINK, INVESTIGATE rounds, CHECK, ACT,
POSTFLIGHT — checkpointing every phase and gating on engagement and
confidence before the agent is allowed to act.

Commands:
  empirica run                       Run the cascade for one session
  empirica checkpoint list <session> List a session's checkpoints
  empirica checkpoint diff <session> <i> <j>  Diff two of a session's checkpoints
  empirica goal discover             List goals visible to other agents
  empirica goal resume <goal-id>     Resume a goal as this agent
  empirica identity create <ai-id>   Generate an Ed25519 identity`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a != nil && a.pgStore != nil {
			a.pgStore.Close()
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "."), "Path to configuration directory")
	rootCmd.PersistentFlags().BoolVar(&outputText, "text", false, "Human-readable output (default is JSON)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

// setup initializes configuration, telemetry, storage, and the domain
// stores every other command depends on.
func setup(ctx context.Context) error {
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger := telemetry.NewLogger(cfg)
	if _, err := telemetry.NewTracerProvider(logger); err != nil {
		logger.Warn("failed to initialize tracing", "error", err)
	}
	telemetry.NewMeterProvider()

	sessions, pg, err := openSessionStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	notes, err := vcsnotes.Open(".")
	if err != nil {
		logger.Warn("no git repository found, checkpoints and goals degrade to session-store-only", "error", err)
		notes = nil
	}

	identities := identity.NewService(filepath.Join(configDir, "identities"))

	personas, err := persona.LoadDir(cfg.PersonaDir)
	if err != nil {
		logger.Warn("failed to load persona directory, continuing with no personas", "persona_dir", cfg.PersonaDir, "error", err)
		personas = persona.NewRegistry(map[string]*persona.Profile{})
	}

	a = &app{
		cfg:         cfg,
		logger:      logger,
		sessions:    sessions,
		pgStore:     pg,
		notes:       notes,
		checkpoints: checkpoint.NewStore(notes, sessions, cfg.NoteRef),
		goals:       goal.NewStore(notes, sessions, cfg.NoteRef+"-goals"),
		identities:  identities,
		personas:    personas,
	}
	return nil
}

// openSessionStore chooses pgstore when SESSIONSTORE_DB_HOST or
// SESSIONSTORE_DSN is set in the environment (the connection itself is built
// from the SESSIONSTORE_DB_* variables by pgstore.LoadConfigFromEnv), memstore
// otherwise — memstore is the right default for a single CLI invocation
// that does not need cross-process durability.
func openSessionStore(ctx context.Context) (sessionstore.Store, *pgstore.Store, error) {
	if os.Getenv("SESSIONSTORE_DB_HOST") == "" && os.Getenv("SESSIONSTORE_DSN") == "" {
		return memstore.New(), nil, nil
	}

	dbCfg, err := pgstore.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	store, err := pgstore.New(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// outputResult prints result as indented JSON (the default, for LLM
// consumption) or via %+v when --text is set.
func outputResult(result any) {
	if outputText {
		fmt.Printf("%+v\n", result)
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
}
