package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmpiricaYAMLConfig represents the complete empirica.yaml file structure.
// Any field left unset falls back to Defaults().
type EmpiricaYAMLConfig struct {
	EngagementGate         *float64 `yaml:"engagement_gate"`
	ConfidenceProceed      *float64 `yaml:"confidence_proceed"`
	MaxInvestigationRounds *int     `yaml:"max_investigation_rounds"`
	CheckpointMaxBytes     *int     `yaml:"checkpoint_max_bytes"`
	AutoSignCheckpoints    *bool    `yaml:"auto_sign_checkpoints"`
	NoteRef                string   `yaml:"note_ref"`
	PersonaDir             string   `yaml:"persona_dir"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load empirica.yaml from configDir (missing file falls back to
//     Defaults() entirely)
//  2. Expand environment variables
//  3. Merge YAML overrides onto the built-in defaults
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"engagement_gate", cfg.EngagementGate,
		"confidence_proceed", cfg.ConfidenceProceed,
		"max_investigation_rounds", cfg.MaxInvestigationRounds,
		"note_ref", cfg.NoteRef)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	cfg := Defaults()
	cfg.configDir = configDir

	loader := &configLoader{configDir: configDir}
	yamlCfg, err := loader.loadEmpiricaYAML()
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			slog.Warn("empirica.yaml not found, using built-in defaults", "config_dir", configDir)
			return cfg, nil
		}
		return nil, NewLoadError("empirica.yaml", err)
	}

	if yamlCfg.EngagementGate != nil {
		cfg.EngagementGate = *yamlCfg.EngagementGate
	}
	if yamlCfg.ConfidenceProceed != nil {
		cfg.ConfidenceProceed = *yamlCfg.ConfidenceProceed
	}
	if yamlCfg.MaxInvestigationRounds != nil {
		cfg.MaxInvestigationRounds = *yamlCfg.MaxInvestigationRounds
	}
	if yamlCfg.CheckpointMaxBytes != nil {
		cfg.CheckpointMaxBytes = *yamlCfg.CheckpointMaxBytes
	}
	if yamlCfg.AutoSignCheckpoints != nil {
		cfg.AutoSignCheckpoints = *yamlCfg.AutoSignCheckpoints
	}
	if yamlCfg.NoteRef != "" {
		cfg.NoteRef = yamlCfg.NoteRef
	}
	if yamlCfg.PersonaDir != "" {
		cfg.PersonaDir = yamlCfg.PersonaDir
	}

	return cfg, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadEmpiricaYAML() (*EmpiricaYAMLConfig, error) {
	path := filepath.Join(l.configDir, "empirica.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	// Expand environment variables (${VAR}/$VAR) before parsing.
	data = ExpandEnv(data)

	var cfg EmpiricaYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}
