// Package config loads chatgpt-wd settings from a YAML file and the
// environment.
//
// Values are layered: defaults, then the config file, then environment
// variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eiz/chatgpt-wd/pkg/browser"
	"github.com/eiz/chatgpt-wd/pkg/format"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is the chat model used when none is configured
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTemperature matches the sampling temperature of the pirate prompt
	DefaultTemperature = 1.0

	// DefaultConcurrency bounds in-flight completion requests
	DefaultConcurrency = 8

	// DefaultMinLength is the shortest trimmed text, in code points, that is
	// sent for rewriting
	DefaultMinLength = 20
)

// Config represents the complete configuration of one run
type Config struct {
	LLM     LLMConfig      `yaml:"llm"`
	Rewrite RewriteConfig  `yaml:"rewrite"`
	Browser BrowserConfig  `yaml:"browser"`
	Format  format.Options `yaml:"format"`
	Logging LoggingConfig  `yaml:"logging"`

	// Path of the file the configuration was read from, empty for defaults
	Path string `yaml:"-"`
}

// LLMConfig describes the completion endpoint and the prompt template
type LLMConfig struct {
	Model            string   `yaml:"model"`
	BaseURL          string   `yaml:"base_url"`
	SystemPrompt     string   `yaml:"system_prompt"`
	Temperature      *float64 `yaml:"temperature"`
	TopP             *float64 `yaml:"top_p"`
	MaxTokens        *int     `yaml:"max_tokens"`
	PresencePenalty  *float64 `yaml:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty"`
	Stream           bool     `yaml:"stream"`
	TokenFile        string   `yaml:"token_file"`

	// APIKey is only ever taken from the environment
	APIKey string `yaml:"-"`
}

// RewriteConfig controls candidate collection and dispatch
type RewriteConfig struct {
	Concurrency int      `yaml:"concurrency"`
	MinLength   int      `yaml:"min_length"`
	Exclude     []string `yaml:"exclude"`

	// RateLimit caps completion requests per second, zero disables it
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// Strict turns any task failure into a non-zero exit status
	Strict bool `yaml:"strict"`
}

// BrowserConfig selects and configures the browser backend
type BrowserConfig struct {
	Driver   string        `yaml:"driver"`
	Endpoint string        `yaml:"endpoint"`
	Headless bool          `yaml:"headless"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	temperature := DefaultTemperature
	return &Config{
		LLM: LLMConfig{
			Model:       DefaultModel,
			Temperature: &temperature,
		},
		Rewrite: RewriteConfig{
			Concurrency: DefaultConcurrency,
			MinLength:   DefaultMinLength,
		},
		Browser: BrowserConfig{
			Driver:  string(browser.DriverPlaywright),
			Timeout: browser.DefaultTimeout,
		},
		Format: format.DefaultOptions(),
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// DefaultPath returns ~/.config/chatgpt-wd/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "chatgpt-wd", "config.yaml"), nil
}

// Load reads the configuration at path over the defaults and applies the
// environment. An empty path means DefaultPath. A missing file at the default
// location yields the defaults; a missing file that was named explicitly is
// an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays OPENAI_API_KEY and OPENAI_BASE_URL when they are set
func (c *Config) ApplyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		c.LLM.BaseURL = base
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	if c.LLM.MaxTokens != nil && *c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}

	if c.Rewrite.Concurrency < 1 {
		return fmt.Errorf("rewrite.concurrency must be at least 1, got %d", c.Rewrite.Concurrency)
	}

	if c.Rewrite.MinLength < 0 {
		return fmt.Errorf("rewrite.min_length cannot be negative")
	}

	if c.Rewrite.RateLimit < 0 {
		return fmt.Errorf("rewrite.rate_limit cannot be negative")
	}

	if c.Rewrite.Burst < 0 {
		return fmt.Errorf("rewrite.burst cannot be negative")
	}

	for _, pattern := range c.Rewrite.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	if _, err := browser.ParseDriver(c.Browser.Driver); err != nil {
		return err
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser.timeout cannot be negative")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}
