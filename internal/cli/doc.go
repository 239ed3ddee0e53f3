// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the termchat command line: argument parsing and
// the ask, chat, sessions, and config command handlers. It wires the
// provider resolver, session store, streaming engine, and finalizer
// together; all real streaming logic lives in internal/engine.
package cli
