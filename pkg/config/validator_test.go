package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAll_Valid(t *testing.T) {
	err := NewValidator(Defaults()).ValidateAll()
	assert.NoError(t, err)
}

func TestValidateAll_EngagementGateOutOfRange(t *testing.T) {
	cfg := Defaults()
	cfg.EngagementGate = 1.2

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateAll_MaxInvestigationRoundsZero(t *testing.T) {
	cfg := Defaults()
	cfg.MaxInvestigationRounds = 0

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
}

func TestValidateAll_NoteRefMissingPrefix(t *testing.T) {
	cfg := Defaults()
	cfg.NoteRef = "checkpoints"

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refs/notes/")
}

func TestValidateAll_NoteRefEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.NoteRef = ""

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
}
