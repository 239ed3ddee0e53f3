// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine implements the streaming response engine: it issues a
// chat-completion request, demultiplexes the SSE stream into reasoning
// and content channels, watches for a silently-offline provider, and
// supports mid-flight cancellation without losing partial output.
//
// One Engine serves one request at a time. The transport read loop, the
// liveness grace timer, and cancellation share a single context and a
// single ordered output sink; advisory notices go to a separate status
// surface and never enter the accumulator.
package engine
