// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for termchat.
//
// Configuration is a single TOML file with sensible defaults and
// environment variable overrides for secrets:
//   - ~/.termchat/config.toml
//   - Built-in defaults when no file exists
package config
