// Package config holds the engine configuration. Tolerances are explicit
// values passed into each call rather than process-wide state, so concurrent
// validations with different settings cannot interfere.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Match MatchConfig `yaml:"match"`
	Apply ApplyConfig `yaml:"apply"`
	Check CheckConfig `yaml:"check"`
	Log   LogConfig   `yaml:"log"`
}

// MatchConfig controls hunk location tolerance.
type MatchConfig struct {
	// MaxFuzz is the whitespace tolerance ceiling when matching context:
	// 0 = exact only, 1 = ignore trailing whitespace, 2 = ignore all
	// surrounding whitespace. Set to -1 to force exact matching.
	MaxFuzz int `yaml:"max_fuzz"`
	// SearchRadius is how many lines away from the declared position a hunk
	// may still match. patch(1) scans the whole file; a bounded radius keeps
	// adversarial input linear. 200 covers every offset seen in practice.
	SearchRadius int `yaml:"search_radius"`
}

// ApplyConfig controls how results are written back.
type ApplyConfig struct {
	Strip             int  `yaml:"strip"`              // -p path components to drop (default 1)
	Atomic            bool `yaml:"atomic"`             // whole-document staging
	Backup            bool `yaml:"backup"`             // snapshot touched files before writing
	AllowOverwrite    bool `yaml:"allow_overwrite"`    // create/rename over existing targets
	BinaryPassthrough bool `yaml:"binary_passthrough"` // rename/mode of binary entries only
}

// CheckConfig controls the validation facade.
type CheckConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LogConfig configures the structured log sink. Empty path disables logging.
type LogConfig struct {
	Path        string `yaml:"path"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a yaml config file and fills in defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Log.Path != "" {
		abs, err := filepath.Abs(cfg.Log.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve log path: %w", err)
		}
		cfg.Log.Path = abs
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Match.MaxFuzz == 0 {
		c.Match.MaxFuzz = 2
	}
	if c.Match.MaxFuzz < 0 {
		c.Match.MaxFuzz = 0
	}
	if c.Match.SearchRadius == 0 {
		c.Match.SearchRadius = 200
	}
	if c.Apply.Strip == 0 {
		c.Apply.Strip = 1
	}
	if c.Apply.Strip < 0 {
		c.Apply.Strip = 0
	}
	if c.Check.TimeoutSeconds == 0 {
		c.Check.TimeoutSeconds = 30
	}
}
