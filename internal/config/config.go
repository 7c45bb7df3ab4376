// Package config loads the runtime configuration from the environment. All
// values are read once at startup; nothing reloads at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consumed at startup.
const (
	EnvBaseURL     = "TROCCO_API_BASE_URL"
	EnvAPIKey      = "TROCCO_API_KEY"
	EnvAuthHeader  = "TROCCO_AUTH_HEADER"
	EnvAuthScheme  = "TROCCO_AUTH_SCHEME"
	EnvTimeout     = "TROCCO_TIMEOUT"
	EnvHeadersFile = "TROCCO_HEADERS_FILE"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogPretty   = "LOG_PRETTY"
)

// DefaultBaseURL is the production TROCCO API endpoint.
const DefaultBaseURL = "https://trocco.io/api"

// Config is the resolved runtime configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	AuthHeader   string
	AuthScheme   string
	Timeout      time.Duration
	ExtraHeaders map[string]string

	LogLevel  string
	LogPretty bool
}

// Load reads the configuration from the process environment, after loading a
// .env file when one is present. A missing API key is an error; everything
// else has a default.
func Load() (*Config, error) {
	// Best effort; a missing .env file is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:    getEnv(EnvBaseURL, DefaultBaseURL),
		APIKey:     os.Getenv(EnvAPIKey),
		AuthHeader: getEnv(EnvAuthHeader, "Authorization"),
		AuthScheme: getEnv(EnvAuthScheme, "Token"),
		Timeout:    30 * time.Second,
		LogLevel:   getEnv(EnvLogLevel, "info"),
		LogPretty:  os.Getenv(EnvLogPretty) == "true",
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s is required", EnvAPIKey)
	}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvTimeout, raw, err)
		}
		cfg.Timeout = timeout
	}

	if path := os.Getenv(EnvHeadersFile); path != "" {
		headers, err := loadHeadersFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ExtraHeaders = headers
	}

	return cfg, nil
}

// loadHeadersFile reads extra static headers from a YAML mapping file.
func loadHeadersFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read headers file: %w", err)
	}
	headers := make(map[string]string)
	if err := yaml.Unmarshal(raw, &headers); err != nil {
		return nil, fmt.Errorf("parse headers file %s: %w", path, err)
	}
	return headers, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
