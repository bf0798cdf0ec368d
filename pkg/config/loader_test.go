package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_NoFileUsesDefaults(t *testing.T) {
	ctx := context.Background()
	cfg, err := Initialize(ctx, t.TempDir())

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Defaults().EngagementGate, cfg.EngagementGate)
	assert.Equal(t, Defaults().MaxInvestigationRounds, cfg.MaxInvestigationRounds)
	assert.Equal(t, Defaults().NoteRef, cfg.NoteRef)
}

func TestInitialize_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
engagement_gate: 0.75
max_investigation_rounds: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empirica.yaml"), []byte(yamlContent), 0644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.EngagementGate)
	assert.Equal(t, 3, cfg.MaxInvestigationRounds)
	// unset fields keep their built-in defaults
	assert.Equal(t, Defaults().ConfidenceProceed, cfg.ConfidenceProceed)
	assert.Equal(t, Defaults().NoteRef, cfg.NoteRef)
}

func TestInitialize_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empirica.yaml"), []byte("{{{"), 0644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitialize_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
engagement_gate: 1.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empirica.yaml"), []byte(yamlContent), 0644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestEnvironmentVariableInterpolationInConfig(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
note_ref: "${NOTE_REF_OVERRIDE}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empirica.yaml"), []byte(yamlContent), 0644))
	t.Setenv("NOTE_REF_OVERRIDE", "refs/notes/empirica/staging")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "refs/notes/empirica/staging", cfg.NoteRef)
}

func TestLoadEmpiricaYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
engagement_gate: 0.65
confidence_proceed: 0.80
max_investigation_rounds: 4
checkpoint_max_bytes: 512
auto_sign_checkpoints: true
note_ref: "refs/notes/empirica/custom"
persona_dir: "custom-personas"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empirica.yaml"), []byte(yamlContent), 0644))

	loader := &configLoader{configDir: dir}
	parsed, err := loader.loadEmpiricaYAML()
	require.NoError(t, err)

	require.NotNil(t, parsed.EngagementGate)
	assert.Equal(t, 0.65, *parsed.EngagementGate)
	require.NotNil(t, parsed.ConfidenceProceed)
	assert.Equal(t, 0.80, *parsed.ConfidenceProceed)
	require.NotNil(t, parsed.MaxInvestigationRounds)
	assert.Equal(t, 4, *parsed.MaxInvestigationRounds)
	require.NotNil(t, parsed.CheckpointMaxBytes)
	assert.Equal(t, 512, *parsed.CheckpointMaxBytes)
	require.NotNil(t, parsed.AutoSignCheckpoints)
	assert.True(t, *parsed.AutoSignCheckpoints)
	assert.Equal(t, "refs/notes/empirica/custom", parsed.NoteRef)
	assert.Equal(t, "custom-personas", parsed.PersonaDir)
}

func TestLoadEmpiricaYAML_NotFound(t *testing.T) {
	loader := &configLoader{configDir: t.TempDir()}
	_, err := loader.loadEmpiricaYAML()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
