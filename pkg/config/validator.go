package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration comprehensively with clear error
// messages. Range and required-field checks run through tags; the
// NoteRef shape check is cross-field-free but still awkward to express as
// a tag (a "starts with refs/notes/" prefix check), so it stays hand-rolled.
type Validator struct {
	cfg  *Config
	tags *validator.Validate
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg, tags: validator.New()}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at the
// first error).
func (v *Validator) ValidateAll() error {
	if err := v.tags.Struct(v.cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if !strings.HasPrefix(v.cfg.NoteRef, "refs/notes/") {
		return NewValidationError("note_ref", fmt.Errorf("%w: must start with \"refs/notes/\", got %q", ErrValidationFailed, v.cfg.NoteRef))
	}
	return nil
}
