// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package finalize turns an accumulated raw response into the artifacts
// the rest of termchat needs: the text appended to session history, and
// (for file output) a normalized payload with a code-block classification
// used to pick a file extension.
package finalize
