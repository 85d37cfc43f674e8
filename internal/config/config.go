// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for vchat.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. Default location: ~/.vchat/config.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/vchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vchat configuration.
type Config struct {
	// API is the streaming chat backend configuration
	API APIConfig `toml:"api"`

	// Storage controls where conversations and the search index live
	Storage StorageConfig `toml:"storage"`

	// UI controls the rendering behavior
	UI UIConfig `toml:"ui"`

	// Titles controls link title lookup
	Titles TitlesConfig `toml:"titles"`
}

// APIConfig contains the chat backend configuration.
type APIConfig struct {
	// BaseURL is the streaming endpoint URL
	BaseURL string `toml:"base_url"`
	// Model is the model name submitted with each request
	Model string `toml:"model"`
	// MaxRetries bounds stream-open retry attempts
	MaxRetries int `toml:"max_retries"`
}

// StorageConfig contains persistence paths.
type StorageConfig struct {
	// Path is the conversation database file
	Path string `toml:"path"`
	// IndexPath is the search index database file
	IndexPath string `toml:"index_path"`
}

// UIConfig contains rendering configuration.
type UIConfig struct {
	// TypingDelayMs is the per-character typing animation delay.
	// Zero uses the built-in default; negative disables the animation.
	TypingDelayMs int `toml:"typing_delay_ms"`
	// Language localizes client-side messages: "en" or "fr"
	Language string `toml:"language"`
	// Plain forces the line-oriented renderer even on capable terminals
	Plain bool `toml:"plain"`
}

// TitlesConfig contains link title lookup configuration.
type TitlesConfig struct {
	// Enabled toggles title lookup entirely
	Enabled bool `toml:"enabled"`
	// OEmbedURL overrides the oEmbed endpoint
	OEmbedURL string `toml:"oembed_url"`
	// RatePerSec caps lookup requests per second
	RatePerSec float64 `toml:"rate_per_sec"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "",
			Model:      "default",
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			Path:      "", // resolved against ConfigDir in SetDefaults
			IndexPath: "",
		},
		UI: UIConfig{
			TypingDelayMs: 0,
			Language:      "en",
		},
		Titles: TitlesConfig{
			Enabled:    true,
			RatePerSec: 5,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the vchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location, falling back to
// defaults if no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.SetDefaults(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides. Environment
// wins over the file so deployments can point at a different backend
// without editing config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VCHAT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("VCHAT_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("VCHAT_LANGUAGE"); v != "" {
		c.UI.Language = v
	}
	if v := os.Getenv("VCHAT_TYPING_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.UI.TypingDelayMs = ms
		}
	}
}

// SetDefaults fills derived values that depend on the environment.
func (c *Config) SetDefaults() error {
	if c.Storage.Path == "" || c.Storage.IndexPath == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(dir, "conversations.db")
		}
		if c.Storage.IndexPath == "" {
			c.Storage.IndexPath = filepath.Join(dir, "index.db")
		}
	}
	if c.API.MaxRetries <= 0 {
		c.API.MaxRetries = 3
	}
	if c.Titles.RatePerSec <= 0 {
		c.Titles.RatePerSec = 5
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
		}
	}
	if c.Titles.OEmbedURL != "" {
		if _, err := url.Parse(c.Titles.OEmbedURL); err != nil {
			return fmt.Errorf("titles.oembed_url: %w", err)
		}
	}
	switch c.UI.Language {
	case "", "en", "fr":
	default:
		return fmt.Errorf("ui.language must be \"en\" or \"fr\", got %q", c.UI.Language)
	}
	return nil
}

// TypingDelay converts the configured delay to a duration. A negative
// value collapses the animation to an imperceptible pause.
func (c *Config) TypingDelay() time.Duration {
	if c.UI.TypingDelayMs < 0 {
		return time.Nanosecond
	}
	return time.Duration(c.UI.TypingDelayMs) * time.Millisecond
}

// Save writes the configuration to the default location. The write is
// atomic so a live watcher never observes a half-written file.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o600)
}

// ErrNoBackend indicates that no backend URL is configured anywhere.
var ErrNoBackend = errors.New("no backend URL configured (set api.base_url or VCHAT_API_URL)")

// RequireBackend returns ErrNoBackend when the backend URL is missing.
func (c *Config) RequireBackend() error {
	if c.API.BaseURL == "" {
		return ErrNoBackend
	}
	return nil
}
