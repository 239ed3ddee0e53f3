// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// collectSink records every sink write for order verification.
type collectSink struct {
	writes []string
}

func (c *collectSink) fn() Sink {
	return func(text string) { c.writes = append(c.writes, text) }
}

func (c *collectSink) joined() string {
	return strings.Join(c.writes, "")
}

func TestDemux_ContentThenReasoning(t *testing.T) {
	// Content arrives first, then the stream ends with a reasoning delta:
	// the marker starts its own line and no separator follows, since
	// content never resumes.
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("", "Hel")
	d.feed("", "lo")
	d.feed("note", "")

	assert.Equal(t, "Hello\n🧠 Reasoning: note", d.text())
	assert.Equal(t, d.text(), sink.joined(), "accumulator equals sink concatenation")
}

func TestDemux_ReasoningFirst(t *testing.T) {
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("thinking", "")
	d.feed(" hard", "")
	d.feed("", "Answer.")

	assert.Equal(t, "🧠 Reasoning: thinking hard\n\nAnswer.", d.text())
	assert.Equal(t, d.text(), sink.joined())
}

func TestDemux_MarkerEmittedOnce(t *testing.T) {
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("first", "")
	d.feed("", "content")
	d.feed("second", "")

	assert.Equal(t, 1, strings.Count(d.text(), ReasoningMarker),
		"marker must not be re-inserted on a later reasoning delta")
}

func TestDemux_SeparatorExactlyOncePerTransition(t *testing.T) {
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("r1", "")
	d.feed("", "c1")
	d.feed("", "c2")

	assert.Equal(t, "🧠 Reasoning: r1\n\nc1c2", d.text())
}

func TestDemux_BothDeltasSameChunk(t *testing.T) {
	// Reasoning is emitted before content when both arrive on one chunk.
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("why", "because")

	assert.Equal(t, "🧠 Reasoning: why\n\nbecause", d.text())
}

func TestDemux_EmptyDeltasIgnored(t *testing.T) {
	var sink collectSink
	d := newDemux(sink.fn(), nil)

	d.feed("", "")
	d.feed("", "x")
	d.feed("", "")

	assert.Equal(t, "x", d.text())
	assert.Equal(t, []string{"x"}, sink.writes)
}

func TestDemux_InlineDelimiterLoggedNotStripped(t *testing.T) {
	var lines []string
	status := func(format string, args ...any) {
		lines = append(lines, format)
	}

	d := newDemux(nil, status)
	d.feed("", "before <think>inline</think> after")
	d.feed("", "<thinking>again</thinking>")

	// The content passes through untouched.
	assert.Equal(t, "before <think>inline</think> after<thinking>again</thinking>", d.text())
	// Diagnostics fire once, not per chunk.
	assert.Len(t, lines, 1)
}

func TestDemux_NilSink(t *testing.T) {
	d := newDemux(nil, nil)
	d.feed("r", "c")
	assert.Equal(t, "🧠 Reasoning: r\n\nc", d.text())
}
