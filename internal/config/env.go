package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// LoadFromEnv starts from Default() and overlays any environment variables
// declared via `env:` struct tags above, following the teacher's
// pkg/config envdecode-based loading. It does not read any file — file
// based configuration loading is out of scope (spec.md §1).
func LoadFromEnv() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil {
		// envdecode errors out when none of the tagged fields are present
		// in the environment; treat that as "no overrides" so a process
		// booted with zero XYPRISS_* vars still gets Default().
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return Config{}, fmt.Errorf("config: decode environment: %w", err)
		}
	}
	return cfg, nil
}

// NewManagerFromEnv builds a Manager seeded with LoadFromEnv's result.
func NewManagerFromEnv() (*Manager, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return NewManager(cfg), nil
}
