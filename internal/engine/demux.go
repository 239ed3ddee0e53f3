// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"strings"

	"github.com/jeranaias/termchat/internal/finalize"
)

// ReasoningMarker opens the reasoning section in the output stream. It is
// written exactly once per response, before the first reasoning delta.
const ReasoningMarker = "🧠 Reasoning: "

// channelSeparator is inserted when content resumes after reasoning.
const channelSeparator = "\n\n"

// Sink receives ordered incremental output for live display.
type Sink func(text string)

// =============================================================================
// STREAM DEMULTIPLEXER
// =============================================================================

// demux turns the raw chunk sequence into one ordered logical text stream.
// Every write goes to both the caller's sink and the accumulator, in
// receipt order, so the accumulator always equals the concatenation of
// sink writes. When a chunk carries both deltas, reasoning is emitted
// before content.
type demux struct {
	sink   Sink
	status StatusFunc

	accum strings.Builder

	markerEmitted bool // reasoning marker written once
	inReasoning   bool // last emitted channel was reasoning
	warnedInline  bool
}

func newDemux(sink Sink, status StatusFunc) *demux {
	return &demux{sink: sink, status: status}
}

// feed processes the deltas of one chunk.
func (d *demux) feed(reasoning, content string) {
	if reasoning != "" {
		if !d.markerEmitted {
			// A marker after existing content starts its own line.
			if d.accum.Len() == 0 {
				d.emit(ReasoningMarker)
			} else {
				d.emit("\n" + ReasoningMarker)
			}
			d.markerEmitted = true
		}
		d.emit(reasoning)
		d.inReasoning = true
	}

	if content != "" {
		if d.inReasoning {
			d.emit(channelSeparator)
			d.inReasoning = false
		}
		// Delimiters embedded inside the content channel are logged, not
		// stripped: a tag can straddle a chunk boundary and truncating a
		// delta here would lose token fragments. The finalizer strips
		// complete blocks once the full text is available.
		if !d.warnedInline {
			if tag, found := finalize.InlineDelimiter(content); found {
				d.warnedInline = true
				if d.status != nil {
					d.status("detected inline %s delimiter in content stream", tag)
				}
			}
		}
		d.emit(content)
	}
}

// emit forwards text to the sink and the accumulator.
func (d *demux) emit(text string) {
	if d.sink != nil {
		d.sink(text)
	}
	d.accum.WriteString(text)
}

// text returns the accumulated output so far.
func (d *demux) text() string {
	return d.accum.String()
}
