// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReader(t *testing.T) {
	raw := "data: {\"a\":1}\n\n" +
		": keep-alive comment\n" +
		"event: message\n" +
		"data: {\"b\":2}\n\n" +
		"data: [DONE]\n\n"

	r := newSSEReader(strings.NewReader(raw))

	first, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, first)

	second, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, second)

	third, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, doneSentinel, third)

	_, err = r.next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReader_CRLF(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: payload\r\n\r\n"))
	data, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "payload", data)
}

func TestSSEReader_UnterminatedFinalLine(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: tail"))
	data, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "tail", data)

	_, err = r.next()
	assert.Equal(t, io.EOF, err)
}

func TestParseChunk(t *testing.T) {
	chunk, ok := parseChunk(`{"choices":[{"delta":{"content":"hi","reasoning_content":"hm"}}]}`)
	require.True(t, ok)
	reasoning, content := chunk.deltas()
	assert.Equal(t, "hm", reasoning)
	assert.Equal(t, "hi", content)
	assert.False(t, chunk.finished())
}

func TestParseChunk_Malformed(t *testing.T) {
	_, ok := parseChunk(`{"choices":[{"delta":`)
	assert.False(t, ok)
}

func TestParseChunk_NoChoices(t *testing.T) {
	chunk, ok := parseChunk(`{"choices":[]}`)
	require.True(t, ok)
	reasoning, content := chunk.deltas()
	assert.Empty(t, reasoning)
	assert.Empty(t, content)
}

func TestParseChunk_FinishReason(t *testing.T) {
	chunk, ok := parseChunk(`{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	require.True(t, ok)
	assert.True(t, chunk.finished())
}
