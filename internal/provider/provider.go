// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider resolves named provider profiles into the tuple the
// streaming engine consumes: base URL, model, and optional credentials.
// The engine never mutates a Provider.
package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jeranaias/termchat/internal/config"
)

// Provider is a resolved chat-completion endpoint.
type Provider struct {
	// Name identifies the profile this provider was resolved from.
	Name string

	// BaseURL is the API root without a trailing slash.
	BaseURL string

	// Model is the model identifier sent with each request.
	Model string

	// APIKey is the bearer token, empty when not configured.
	APIKey string

	// RequiresAuth controls whether an Authorization header is attached.
	// When false, no Authorization header is ever sent, key or not.
	RequiresAuth bool
}

// Resolve returns the provider for the given profile name, or the default
// profile when name is empty.
func Resolve(cfg *config.Config, name string) (Provider, error) {
	if name == "" {
		name = cfg.DefaultProvider
	}
	profile, err := cfg.Profile(name)
	if err != nil {
		return Provider{}, err
	}
	return Provider{
		Name:         profile.Name,
		BaseURL:      strings.TrimSuffix(profile.BaseURL, "/"),
		Model:        profile.Model,
		APIKey:       strings.TrimSpace(profile.APIKey),
		RequiresAuth: profile.RequiresAuth,
	}, nil
}

// EnvKeyName returns the environment variable consulted for a profile's
// API key: the profile name upper-cased, dashes to underscores, plus
// "_API_KEY".
func EnvKeyName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
}

// IsConfigured reports whether the provider has the credentials it needs.
// Providers that don't require auth are always configured.
func (p Provider) IsConfigured() bool {
	return !p.RequiresAuth || p.APIKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key for
// log lines. Never log the key itself, or any fragment of it.
func (p Provider) KeyFingerprint() string {
	if p.APIKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(p.APIKey))
	return hex.EncodeToString(h[:4])
}

// String returns a display form without credentials.
func (p Provider) String() string {
	return fmt.Sprintf("%s (%s, model=%s)", p.Name, p.BaseURL, p.Model)
}
