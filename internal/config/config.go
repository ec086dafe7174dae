// Package config handles loading and validation of lakeline.yaml project
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lakeline/lakeline/pkg/types"
)

// Load reads and parses lakeline.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, "lakeline.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *types.ProjectConfig) {
	if cfg.PipelineKind == "" {
		cfg.PipelineKind = "standard"
	}
	if cfg.Bus == "" {
		cfg.Bus = "default"
	}
	if cfg.RouterBFunction == "" && cfg.RouterFunction != "" {
		cfg.RouterBFunction = cfg.RouterFunction + "-b"
	}
	for i := range cfg.Datasets {
		if cfg.Datasets[i].Team == "" {
			cfg.Datasets[i].Team = cfg.Team
		}
	}
}

func validate(cfg *types.ProjectConfig) error {
	if cfg.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if cfg.ResourcePrefix == "" {
		return fmt.Errorf("resourcePrefix is required")
	}
	if cfg.Team == "" {
		return fmt.Errorf("team is required")
	}
	if cfg.App == "" {
		return fmt.Errorf("app is required")
	}
	if cfg.Org == "" {
		return fmt.Errorf("org is required")
	}
	if cfg.RawBucket == "" {
		return fmt.Errorf("rawBucket is required")
	}
	if cfg.StageBucket == "" {
		return fmt.Errorf("stageBucket is required")
	}
	if cfg.RouterFunction == "" {
		return fmt.Errorf("routerFunction is required")
	}
	for _, ds := range cfg.Datasets {
		if ds.Dataset == "" {
			return fmt.Errorf("dataset entry missing dataset name")
		}
	}
	return nil
}
