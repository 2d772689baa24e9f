package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingCredentials is returned when no bearer token can be found
var ErrMissingCredentials = errors.New("missing API credentials")

// DefaultTokenPath returns ~/.openai
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".openai"), nil
}

// LoadToken reads the bearer token from the credential file at path, or
// from DefaultTokenPath when path is empty. Surrounding whitespace is
// removed. A missing or empty file yields ErrMissingCredentials.
func LoadToken(path string) (string, error) {
	if path == "" {
		p, err := DefaultTokenPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrMissingCredentials, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingCredentials, path)
	}
	return token, nil
}

// ResolveToken prefers the API key taken from the environment and falls back
// to the configured token file.
func (c *Config) ResolveToken() (string, error) {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey, nil
	}
	return LoadToken(c.LLM.TokenFile)
}
