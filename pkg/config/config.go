// Package config loads optional file-based defaults for the command line.
// The file never holds secrets; credentials live in the encrypted store and
// API keys come from the environment. Values are returned to the caller
// explicitly, there is no process-global configuration state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up under the storage root.
const DefaultFileName = "config.yaml"

// Config holds the file-configurable defaults. Every field is optional;
// command line flags override whatever is set here.
type Config struct {
	// Storage overrides the storage root directory.
	Storage string `yaml:"storage"`

	// Headless runs the browser without a visible window.
	Headless bool `yaml:"headless"`

	// Platforms are the platforms a run targets when none are named.
	Platforms []string `yaml:"platforms"`

	LLM LLM `yaml:"llm"`
}

// LLM configures model-assisted element detection.
type LLM struct {
	// Model is the vision model used for screenshot analysis.
	Model string `yaml:"model"`

	// BaseURL points at an alternative OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url"`

	// Disabled turns model assistance off entirely.
	Disabled bool `yaml:"disabled"`
}

// Default returns the zero configuration; all fallbacks live with the
// components that consume them.
func Default() *Config {
	return &Config{}
}

// DefaultPath returns the conventional config file location under the
// user's storage root.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".postwright", DefaultFileName), nil
}

// Load reads a config file. A missing file is not an error; it yields the
// defaults, so first runs work without any setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
