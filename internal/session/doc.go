// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides persisted per-context conversation history.
//
// Each logical terminal context owns exactly one session, stored as a
// single JSON document. Appends persist synchronously so a crash never
// loses an exchange that was already displayed.
package session
