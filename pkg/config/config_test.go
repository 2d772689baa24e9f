package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeAt(t, path, content)
	return path
}

func writeAt(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func clearEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 1.0, *cfg.LLM.Temperature)
	assert.Equal(t, 8, cfg.Rewrite.Concurrency)
	assert.Equal(t, 20, cfg.Rewrite.MinLength)
	assert.Equal(t, "playwright", cfg.Browser.Driver)
	assert.True(t, cfg.Format.StripFences)
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
llm:
  model: gpt-4o-mini
  system_prompt: "Rewrite as a cowboy."
  max_tokens: 256
  stream: true
rewrite:
  concurrency: 3
  min_length: 5
  exclude: ["Copyright*", "*cookies*"]
  rate_limit: 2.5
browser:
  driver: rod
  endpoint: ws://127.0.0.1:9222
  timeout: 10s
format:
  strip_markup: true
logging:
  verbosity: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "Rewrite as a cowboy.", cfg.LLM.SystemPrompt)
	require.NotNil(t, cfg.LLM.MaxTokens)
	assert.Equal(t, 256, *cfg.LLM.MaxTokens)
	assert.True(t, cfg.LLM.Stream)
	// Defaults survive for keys the file leaves out
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 1.0, *cfg.LLM.Temperature)

	assert.Equal(t, 3, cfg.Rewrite.Concurrency)
	assert.Equal(t, 5, cfg.Rewrite.MinLength)
	assert.Equal(t, []string{"Copyright*", "*cookies*"}, cfg.Rewrite.Exclude)
	assert.Equal(t, 2.5, cfg.Rewrite.RateLimit)

	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Browser.Timeout)

	assert.True(t, cfg.Format.StripMarkup)
	assert.Equal(t, "debug", cfg.Logging.Verbosity)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, DefaultConfig().Rewrite, cfg.Rewrite)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "rewrite: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")
	path := writeFile(t, "config.yaml", "llm:\n  base_url: http://file.test/v1\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)

	token, err := cfg.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero concurrency", func(c *Config) { c.Rewrite.Concurrency = 0 }, "concurrency"},
		{"negative min length", func(c *Config) { c.Rewrite.MinLength = -1 }, "min_length"},
		{"negative rate", func(c *Config) { c.Rewrite.RateLimit = -1 }, "rate_limit"},
		{"bad glob", func(c *Config) { c.Rewrite.Exclude = []string{"[unclosed"} }, "invalid exclude pattern"},
		{"unknown driver", func(c *Config) { c.Browser.Driver = "netscape" }, "netscape"},
		{"empty model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"zero max tokens", func(c *Config) { n := 0; c.LLM.MaxTokens = &n }, "max_tokens"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_DefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Verbosity = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}
