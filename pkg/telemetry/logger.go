// Package telemetry wires up structured logging and OpenTelemetry tracing
// for the empirica binary and its libraries.
package telemetry

import (
	"log/slog"
	"os"

	"github.com/nubaeon/empirica/pkg/config"
)

// NewLogger builds the process-wide structured logger and logs the
// resolved ambient configuration once at startup, mirroring the
// boot-time log lines a cascade-hosting process prints before it
// starts accepting work.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("starting empirica",
		"config_dir", cfg.ConfigDir(),
		"engagement_gate", cfg.EngagementGate,
		"confidence_proceed", cfg.ConfidenceProceed,
		"max_investigation_rounds", cfg.MaxInvestigationRounds,
		"checkpoint_max_bytes", cfg.CheckpointMaxBytes,
		"auto_sign_checkpoints", cfg.AutoSignCheckpoints,
		"note_ref", cfg.NoteRef,
	)

	return logger
}
