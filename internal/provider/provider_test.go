// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/termchat/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultProvider: "cloud",
		Providers: []config.ProviderProfile{
			{Name: "cloud", BaseURL: "https://api.example.com/v1/", Model: "gpt-4o", APIKey: " sk-abc ", RequiresAuth: true},
			{Name: "local", BaseURL: "http://127.0.0.1:11434/v1", Model: "llama3", RequiresAuth: false},
		},
	}
}

func TestResolve(t *testing.T) {
	p, err := Resolve(testConfig(), "cloud")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", p.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "sk-abc", p.APIKey, "key trimmed")
	assert.True(t, p.RequiresAuth)
}

func TestResolve_EmptyNameUsesDefault(t *testing.T) {
	p, err := Resolve(testConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, "cloud", p.Name)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve(testConfig(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownProvider)
}

func TestIsConfigured(t *testing.T) {
	cfg := testConfig()

	local, err := Resolve(cfg, "local")
	require.NoError(t, err)
	assert.True(t, local.IsConfigured(), "no-auth provider needs no key")

	cloud, err := Resolve(cfg, "cloud")
	require.NoError(t, err)
	assert.True(t, cloud.IsConfigured())

	cloud.APIKey = ""
	assert.False(t, cloud.IsConfigured())
}

func TestKeyFingerprint_NeverExposesKey(t *testing.T) {
	p := Provider{APIKey: "sk-secret-value"}
	fp := p.KeyFingerprint()
	assert.Len(t, fp, 8)
	assert.NotContains(t, fp, "secret")

	assert.Equal(t, "none", Provider{}.KeyFingerprint())
}
