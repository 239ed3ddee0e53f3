// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/termchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete termchat configuration.
type Config struct {
	// DefaultProvider is the name of the provider profile used when none
	// is selected on the command line.
	DefaultProvider string `toml:"default_provider"`

	// Providers holds the named provider profiles.
	Providers []ProviderProfile `toml:"providers"`

	// Engine tunes the streaming response engine.
	Engine EngineConfig `toml:"engine"`

	// Finalize tunes response finalization.
	Finalize FinalizeConfig `toml:"finalize"`
}

// ProviderProfile describes one chat-completion endpoint.
type ProviderProfile struct {
	// Name identifies the profile (e.g. "openrouter", "local").
	Name string `toml:"name"`

	// BaseURL is the API root, e.g. "https://openrouter.ai/api/v1".
	// The engine appends "/chat/completions" and "/models" to it.
	BaseURL string `toml:"base_url"`

	// Model is the model identifier sent with each request.
	Model string `toml:"model"`

	// APIKey is the bearer token. Prefer the TERMCHAT_API_KEY or
	// <NAME>_API_KEY environment variables over storing it here.
	APIKey string `toml:"api_key"`

	// RequiresAuth controls whether an Authorization header is sent.
	// Local endpoints (Ollama, llama.cpp) typically set this to false.
	RequiresAuth bool `toml:"requires_auth"`
}

// EngineConfig tunes the streaming response engine.
type EngineConfig struct {
	// GracePeriodSecs is how long to wait for the first chunk before
	// probing the provider for liveness (default: 15).
	GracePeriodSecs int `toml:"grace_period_secs"`

	// ProbeTimeoutSecs bounds the liveness probe request (default: 5).
	ProbeTimeoutSecs int `toml:"probe_timeout_secs"`
}

// GracePeriod returns the liveness grace period as a duration.
func (e EngineConfig) GracePeriod() time.Duration {
	return time.Duration(e.GracePeriodSecs) * time.Second
}

// ProbeTimeout returns the liveness probe timeout as a duration.
func (e EngineConfig) ProbeTimeout() time.Duration {
	return time.Duration(e.ProbeTimeoutSecs) * time.Second
}

// FinalizeConfig tunes response finalization thresholds.
//
// The coverage values are empirically chosen; they are configuration, not
// law. See finalize.DominantBlockCoverage for the semantics.
type FinalizeConfig struct {
	// DominantCoverage is the fenced-block character share above which a
	// single block is treated as the payload (default: 0.95).
	DominantCoverage float64 `toml:"dominant_coverage"`

	// PureCoverage is the share above which the payload counts as pure
	// code rather than code with a caption (default: 0.98).
	PureCoverage float64 `toml:"pure_coverage"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		DefaultProvider: "openrouter",
		Providers: []ProviderProfile{
			{
				Name:         "openrouter",
				BaseURL:      "https://openrouter.ai/api/v1",
				Model:        "openrouter/auto",
				RequiresAuth: true,
			},
			{
				Name:         "local",
				BaseURL:      "http://127.0.0.1:11434/v1",
				Model:        "qwen2.5-coder:14b",
				RequiresAuth: false,
			},
		},
		Engine: EngineConfig{
			GracePeriodSecs:  15,
			ProbeTimeoutSecs: 5,
		},
		Finalize: FinalizeConfig{
			DominantCoverage: 0.95,
			PureCoverage:     0.98,
		},
	}
}

// =============================================================================
// LOCATIONS
// =============================================================================

// ConfigDir returns the termchat configuration directory (~/.termchat).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".termchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionsDir returns the directory holding per-context session files.
func SessionsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default path, falling back to
// built-in defaults when no file exists. Environment variable overrides
// are applied after loading.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path. A missing file
// is not an error; defaults are returned instead.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Decode over a zero Config so the file fully describes providers;
	// merging profile lists with defaults would double entries.
	loaded := &Config{}
	if err := toml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fillDefaults(loaded)
	applyEnvOverrides(loaded)

	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// fillDefaults populates zero values with defaults.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = def.DefaultProvider
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = def.Providers
	}
	if cfg.Engine.GracePeriodSecs <= 0 {
		cfg.Engine.GracePeriodSecs = def.Engine.GracePeriodSecs
	}
	if cfg.Engine.ProbeTimeoutSecs <= 0 {
		cfg.Engine.ProbeTimeoutSecs = def.Engine.ProbeTimeoutSecs
	}
	if cfg.Finalize.DominantCoverage <= 0 || cfg.Finalize.DominantCoverage > 1 {
		cfg.Finalize.DominantCoverage = def.Finalize.DominantCoverage
	}
	if cfg.Finalize.PureCoverage <= 0 || cfg.Finalize.PureCoverage > 1 {
		cfg.Finalize.PureCoverage = def.Finalize.PureCoverage
	}
}

// applyEnvOverrides applies API keys from the environment.
// TERMCHAT_API_KEY overrides the default provider's key; <NAME>_API_KEY
// (profile name upper-cased, dashes to underscores) overrides a specific
// profile.
func applyEnvOverrides(cfg *Config) {
	for i := range cfg.Providers {
		envName := strings.ToUpper(strings.ReplaceAll(cfg.Providers[i].Name, "-", "_")) + "_API_KEY"
		if key := os.Getenv(envName); key != "" {
			cfg.Providers[i].APIKey = strings.TrimSpace(key)
		}
	}
	if key := os.Getenv("TERMCHAT_API_KEY"); key != "" {
		for i := range cfg.Providers {
			if cfg.Providers[i].Name == cfg.DefaultProvider {
				cfg.Providers[i].APIKey = strings.TrimSpace(key)
			}
		}
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path atomically.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to an explicit path atomically.
func (c *Config) SaveTo(path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: the file may carry API keys.
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validation errors.
var (
	// ErrNoProviders indicates the config has an empty provider list.
	ErrNoProviders = errors.New("no provider profiles configured")

	// ErrUnknownProvider indicates a referenced profile doesn't exist.
	ErrUnknownProvider = errors.New("unknown provider profile")
)

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return ErrNoProviders
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return errors.New("provider profile with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider profile: %s", p.Name)
		}
		seen[p.Name] = true

		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("provider %s: invalid base_url %q", p.Name, p.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("provider %s: base_url scheme must be http or https", p.Name)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %s: model not set", p.Name)
		}
	}

	if !seen[c.DefaultProvider] {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, c.DefaultProvider)
	}
	return nil
}

// Profile returns the provider profile with the given name.
func (c *Config) Profile(name string) (ProviderProfile, error) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, nil
		}
	}
	return ProviderProfile{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}
