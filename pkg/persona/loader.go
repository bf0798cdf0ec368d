package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir loads every "*.yaml"/"*.yml" file in dir as a persona profile (one
// file per persona, per spec.md §4.3), validates each, and returns a
// populated Registry. Mirrors pkg/config/loader.go's file-per-component
// loading shape, generalized from tarsy.yaml's single-file registries to a
// directory of one-file-per-persona.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona directory %s: %w", dir, err)
	}

	validator := NewValidator()
	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		profile, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateAll(profile); err != nil {
			return nil, err
		}
		profiles[profile.ID] = profile
	}

	return NewRegistry(profiles), nil
}

func loadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	return &profile, nil
}
