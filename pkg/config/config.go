package config

// Config is the umbrella configuration object for the cascade's ambient
// knobs: the engagement gate, the investigation round budget, the
// proceed-confidence threshold, and the checkpoint/signing settings
// (spec.md §6). This is the primary object returned by Initialize(). The CLI
// logs it at startup and uses NoteRef and PersonaDir; cascade.Config does not
// take it, so a cascade reads its engagement gate, proceed threshold and
// round budget from the bound persona's knobs or persona.DefaultCascadeKnobs,
// and the checkpoint and signing fields below are validated and logged only.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// EngagementGate is the configured minimum engagement score below which
	// a cascade blocks (spec.md §4.1). The cascade does not read it.
	EngagementGate float64 `yaml:"engagement_gate" validate:"gte=0,lte=1"`

	// ConfidenceProceed is the overall-confidence threshold at or above
	// which the cascade proceeds without further investigation.
	ConfidenceProceed float64 `yaml:"confidence_proceed" validate:"gte=0,lte=1"`

	// MaxInvestigationRounds bounds the INVESTIGATE loop before CHECK
	// forces an ESCALATE (spec.md §8 scenario 3).
	MaxInvestigationRounds int `yaml:"max_investigation_rounds" validate:"gte=1"`

	// CheckpointMaxBytes is the configured serialized-size budget for a
	// checkpoint. checkpoint.Store.Append does not read it; it enforces its
	// own checkpoint.MaxSerializedBytes constant.
	CheckpointMaxBytes int `yaml:"checkpoint_max_bytes" validate:"gte=1"`

	// AutoSignCheckpoints is the configured auto-sign setting; off by
	// default. Checkpoint signing in `empirica run` is switched by its
	// --auto-sign flag, not by this field.
	AutoSignCheckpoints bool `yaml:"auto_sign_checkpoints"`

	// NoteRef is the git-notes ref root checkpoints mirror to, e.g.
	// "refs/notes/empirica/checkpoints".
	NoteRef string `yaml:"note_ref" validate:"required"`

	// PersonaDir is the directory LoadDir reads persona YAML files from.
	PersonaDir string `yaml:"persona_dir"`
}

// Defaults returns the built-in configuration values applied before YAML
// and environment overrides (spec.md §6).
func Defaults() *Config {
	return &Config{
		EngagementGate:         0.60,
		ConfidenceProceed:      0.70,
		MaxInvestigationRounds: 7,
		CheckpointMaxBytes:     600,
		AutoSignCheckpoints:    false,
		NoteRef:                "refs/notes/empirica/checkpoints",
		PersonaDir:             "personas",
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
