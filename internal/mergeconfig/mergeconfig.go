// Package mergeconfig loads `.manifold/config.toml` (spec.md §6) into a
// typed Config, decoded with github.com/BurntSushi/toml.
package mergeconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/agentmesh/manifold/internal/mergedrivers"
	"github.com/agentmesh/manifold/internal/validate"
)

// DriverConfig is one entry of merge.drivers.
type DriverConfig struct {
	Match   string `toml:"match"`
	Kind    string `toml:"kind"`
	Command string `toml:"command"`
}

// ValidationConfig is the `validation.*` table. Commands accepts either
// the list form or the legacy scalar `command` key; Load folds the
// latter into the former so callers only ever see Commands.
type ValidationConfig struct {
	Commands       []string `toml:"commands"`
	Command        string   `toml:"command"`
	TimeoutSeconds uint32   `toml:"timeout_seconds"`
	OnFailure      string   `toml:"on_failure"`
}

// RepoConfig is the `repo.*` table.
type RepoConfig struct {
	Branch string `toml:"branch"`
}

// MergeConfig is the `merge.*` table.
type MergeConfig struct {
	Drivers []DriverConfig `toml:"drivers"`
}

// Config is the top-level shape of config.toml.
type Config struct {
	Merge      MergeConfig      `toml:"merge"`
	Validation ValidationConfig `toml:"validation"`
	Repo       RepoConfig       `toml:"repo"`
}

const (
	defaultTimeoutSeconds = 60
	defaultBranch         = "main"
)

// Load reads and parses path. A missing file is not an error: Load
// returns defaults (spec.md §6, "A missing file is not an error").
func Load(path string) (*Config, error) {
	cfg := &Config{
		Validation: ValidationConfig{TimeoutSeconds: defaultTimeoutSeconds, OnFailure: "block"},
		Repo:       RepoConfig{Branch: defaultBranch},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("mergeconfig: read %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("mergeconfig: parse %s: %w", path, err)
	}

	if cfg.Validation.TimeoutSeconds == 0 {
		cfg.Validation.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.Repo.Branch == "" {
		cfg.Repo.Branch = defaultBranch
	}
	if len(cfg.Validation.Commands) == 0 && cfg.Validation.Command != "" {
		cfg.Validation.Commands = []string{cfg.Validation.Command}
	}
	return cfg, nil
}

// Drivers converts the TOML driver table into mergedrivers.Driver values.
func (c *Config) Drivers() ([]mergedrivers.Driver, error) {
	drivers := make([]mergedrivers.Driver, 0, len(c.Merge.Drivers))
	for _, d := range c.Merge.Drivers {
		kind, err := parseKind(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("mergeconfig: driver %q: %w", d.Match, err)
		}
		drivers = append(drivers, mergedrivers.Driver{Glob: d.Match, Kind: kind, Command: d.Command})
	}
	return drivers, nil
}

func parseKind(s string) (mergedrivers.Kind, error) {
	switch s {
	case "ours":
		return mergedrivers.Ours, nil
	case "theirs":
		return mergedrivers.Theirs, nil
	case "regenerate":
		return mergedrivers.Regenerate, nil
	default:
		return 0, fmt.Errorf("unknown driver kind %q", s)
	}
}

// ValidateConfig converts the TOML validation table into validate.Config.
func (c *Config) ValidateConfig() (validate.Config, error) {
	onFailure, err := parseOnFailure(c.Validation.OnFailure)
	if err != nil {
		return validate.Config{}, fmt.Errorf("mergeconfig: %w", err)
	}
	return validate.Config{
		Commands:       c.Validation.Commands,
		TimeoutSeconds: c.Validation.TimeoutSeconds,
		OnFailure:      onFailure,
	}, nil
}

func parseOnFailure(s string) (validate.OnFailure, error) {
	switch s {
	case "", "block":
		return validate.Block, nil
	case "warn":
		return validate.Warn, nil
	case "quarantine":
		return validate.Quarantine, nil
	case "block_quarantine":
		return validate.BlockQuarantine, nil
	default:
		return "", fmt.Errorf("unknown validation.on_failure %q", s)
	}
}
