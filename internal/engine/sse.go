// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel terminates an OpenAI-compatible SSE stream.
const doneSentinel = "[DONE]"

// =============================================================================
// SSE READER
// =============================================================================

// sseReader yields the data payloads of a Server-Sent-Events stream.
// Comment lines, event names, and blank keep-alive lines are skipped.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReader(r)}
}

// next returns the next non-empty data payload, or io.EOF when the
// stream ends. Transport errors pass through unchanged.
func (s *sseReader) next() (string, error) {
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			// A final unterminated line still counts if it carries data.
			if err == io.EOF && strings.HasPrefix(line, "data:") {
				if data := strings.TrimSpace(strings.TrimPrefix(line, "data:")); data != "" {
					return data, nil
				}
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		return data, nil
	}
}

// =============================================================================
// CHUNK FORMAT
// =============================================================================

// streamChunk mirrors one streamed chat-completion event. Only the delta
// fields matter; absence of either field is a valid "no delta this tick".
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// parseChunk decodes one SSE payload. A malformed payload returns ok=false
// and is skipped by the caller; it never aborts the stream.
func parseChunk(data string) (streamChunk, bool) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return streamChunk{}, false
	}
	return chunk, true
}

// deltas extracts the reasoning and content deltas from a chunk.
func (c streamChunk) deltas() (reasoning, content string) {
	if len(c.Choices) == 0 {
		return "", ""
	}
	return c.Choices[0].Delta.ReasoningContent, c.Choices[0].Delta.Content
}

// finished reports whether the chunk carries a finish reason.
func (c streamChunk) finished() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}
