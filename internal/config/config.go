// Package config loads the optional .storybook-schematic.yaml file of a
// workspace. Command-line flags take precedence over every value read here.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/storybook-schematic/internal/model"
	"github.com/shinji-kodama/storybook-schematic/internal/registry"
)

// FileName is the config file looked up at the workspace root.
const FileName = ".storybook-schematic.yaml"

// RegistryEnv overrides the registry URL, as it does for npm itself.
const RegistryEnv = "NPM_CONFIG_REGISTRY"

// Config holds the defaults of the configure and run commands.
type Config struct {
	// Registry is the npm registry base URL.
	Registry string `yaml:"registry"`

	// Timeout bounds each registry request ("10s"). Empty means no timeout.
	Timeout string `yaml:"timeout,omitempty"`

	// UIFramework is the Storybook framework package used by configure. A
	// framework tag ("react") is accepted and expanded on load.
	UIFramework string `yaml:"uiFramework"`

	// Port is the preferred dev server port of the run command.
	Port int `yaml:"port"`

	// Addons are the core addons configure installs, by short name.
	Addons []string `yaml:"addons,omitempty"`

	// LeadProject is the application whose build configuration library
	// Storybooks reuse.
	LeadProject string `yaml:"leadProject,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Registry:    registry.DefaultBaseURL,
		UIFramework: "@storybook/angular",
		Port:        model.DefaultStorybookPort,
	}
}

// FromEnv returns DefaultConfig with the environment overrides applied. It is
// the configuration of a command run outside any workspace.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	return cfg
}

// Load reads path from fsys on top of DefaultConfig. A missing file is not
// an error.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return FromEnv(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.UIFramework = model.NormalizeUIFramework(cfg.UIFramework)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(RegistryEnv); url != "" {
		c.Registry = url
	}
}

// GetTimeout returns the registry timeout, zero when unset.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the values a file can get wrong.
func (c *Config) Validate() error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, ok := model.FrameworkForPackage(c.UIFramework); !ok {
		return fmt.Errorf("unsupported uiFramework %q (valid: %v)", c.UIFramework, model.SupportedUIFrameworks())
	}
	return nil
}
