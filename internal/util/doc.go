// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for termchat: atomic file
// writes for session persistence and rune-safe string handling for
// terminal display.
package util
