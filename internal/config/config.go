package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// defaultRequestTimeout bounds every gateway call; a hung request is treated
// the same as any other transport failure.
const defaultRequestTimeout = 15 * time.Second

// Config holds the client configuration.
type Config struct {
	// Base URL of the favourites backend, e.g. "https://api.example.com".
	APIBaseURL string `yaml:"api_base_url"`

	// Per-request timeout for all gateway calls (optional, default 15s).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Path of the local SQLite favourites cache.
	CachePath string `yaml:"cache_path"`

	// Path of the persisted session credentials file.
	CredentialsPath string `yaml:"credentials_path"`

	// API key sent on favourites routes (env var only — secrets must not
	// live in config.yaml).
	APIKey string `yaml:"-"`
}

// Load reads configuration with the following precedence (highest wins):
//  1. Environment variables (API_BASE_URL, CACHE_PATH, CREDENTIALS_PATH, REQUEST_TIMEOUT)
//  2. YAML config file (path from CONFIG_PATH env var, or "config.yaml")
//
// The API key is loaded exclusively from the FAVSYNC_API_KEY environment variable.
func Load() (*Config, error) {
	cfg := &Config{}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("CREDENTIALS_PATH"); v != "" {
		cfg.CredentialsPath = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}

	// API key from environment only
	cfg.APIKey = os.Getenv("FAVSYNC_API_KEY")

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api_base_url is required (set via config file or API_BASE_URL env var)")
	}
	if cfg.CachePath == "" {
		return nil, fmt.Errorf("cache_path is required (set via config file or CACHE_PATH env var)")
	}
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("credentials_path is required (set via config file or CREDENTIALS_PATH env var)")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("FAVSYNC_API_KEY env var is required")
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	return cfg, nil
}
