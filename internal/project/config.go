package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the per-project override file, committed or not at the
// project's discretion.
type Config struct {
	PersonalContainerTag string `json:"personalContainerTag,omitempty"`
	RepoContainerTag     string `json:"repoContainerTag,omitempty"`
}

// ConfigPath returns the project config file under root.
func ConfigPath(root string) string {
	return filepath.Join(root, ".claude", ".supermemory-claude", "config.json")
}

// LoadConfig reads the project config under root. A missing file yields nil.
func LoadConfig(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read project config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig merges update into the config under root and writes it back.
// Empty fields in update leave the stored value unchanged.
func SaveConfig(root string, update Config) (string, error) {
	path := ConfigPath(root)
	cfg, err := LoadConfig(root)
	if err != nil || cfg == nil {
		cfg = &Config{}
	}
	if update.PersonalContainerTag != "" {
		cfg.PersonalContainerTag = update.PersonalContainerTag
	}
	if update.RepoContainerTag != "" {
		cfg.RepoContainerTag = update.RepoContainerTag
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create project config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode project config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write project config: %w", err)
	}
	return path, nil
}
