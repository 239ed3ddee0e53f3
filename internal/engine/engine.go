// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/termchat/internal/provider"
	"github.com/jeranaias/termchat/internal/session"
	"github.com/jeranaias/termchat/internal/util"
)

// =============================================================================
// HTTP CLIENTS
// =============================================================================

// Shared HTTP clients. The stream client carries no timeout: streaming
// responses are open-ended and lifetime is controlled by the request
// context. The probe client is short-fused for side-channel checks.
var (
	streamClient = &http.Client{}
	probeClient  = &http.Client{Timeout: 10 * time.Second}
)

// =============================================================================
// TYPES
// =============================================================================

// StatusFunc receives human-readable advisory lines (liveness notices,
// diagnostic detections). It is a side channel distinct from the content
// sink and its output never enters the accumulator.
type StatusFunc func(format string, args ...any)

// Options tunes one engine instance.
type Options struct {
	// GracePeriod is how long to wait for the first chunk before the
	// liveness probe fires. Zero means DefaultGracePeriod.
	GracePeriod time.Duration

	// ProbeTimeout bounds the side-channel reachability probe.
	// Zero means DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// Status receives advisory lines. Nil disables them.
	Status StatusFunc
}

// Engine defaults.
const (
	DefaultGracePeriod  = 15 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Engine runs streaming chat-completion requests against one provider.
// One Engine serves one request at a time; concurrent requests for
// different sessions use separate Engine instances, so state like the
// model-announcement flag never leaks across sessions.
type Engine struct {
	provider provider.Provider
	opts     Options

	stream *http.Client
	probe  *http.Client

	// announced is per-engine so one session's banner does not suppress
	// another's.
	announced bool
}

// New creates an engine bound to a resolved provider.
func New(p provider.Provider, opts Options) *Engine {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &Engine{
		provider: p,
		opts:     opts,
		stream:   streamClient,
		probe:    probeClient,
	}
}

// Stats describes one completed or interrupted stream.
type Stats struct {
	TimeToFirstChunk time.Duration
	Total            time.Duration
	Chunks           int
}

// Artifact is the engine's output. When Cancelled is true, Text holds
// exactly the bytes received before the cancellation edge.
type Artifact struct {
	Text      string
	Cancelled bool
	Stats     Stats
}

// =============================================================================
// ERRORS
// =============================================================================

// UnreachableError reports a transport failure before any content
// arrived. It carries the provider name so callers can suggest switching.
type UnreachableError struct {
	Provider string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("provider %s unreachable: %v", e.Provider, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// RequestError reports a non-success HTTP status from the provider, such
// as a bad API key or an unknown model.
type RequestError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider %s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider %s returned HTTP %d", e.Provider, e.StatusCode)
}

// =============================================================================
// REQUEST
// =============================================================================

// chatRequest is the OpenAI-compatible streaming request body.
type chatRequest struct {
	Model    string            `json:"model"`
	Messages []session.Message `json:"messages"`
	Stream   bool              `json:"stream"`
}

// Run issues a streaming request with the given conversation and feeds
// ordered output to sink as it arrives.
//
// Return shapes, which callers must branch on explicitly:
//   - success: artifact with Cancelled=false and the full text;
//   - cancellation: artifact with Cancelled=true and the partial text —
//     this is not an error;
//   - transport failure after partial content: the partial text in a
//     success-shaped artifact, so progress is never lost to a late error;
//   - transport failure before any content: *UnreachableError;
//   - provider rejection (bad key, unknown model): *RequestError.
//
// When cancellation races with natural completion, completion wins if the
// stream's terminal event was fully processed before the cancel signal
// was observed; otherwise cancellation wins. The race is inherent to the
// two independent signals and the rule here makes it deterministic.
func (e *Engine) Run(ctx context.Context, messages []session.Message, sink Sink) (*Artifact, error) {
	start := time.Now()

	if !e.announced {
		e.announced = true
		e.statusf("using model %s via %s", e.provider.Model, e.provider.Name)
	}

	body, err := json.Marshal(chatRequest{
		Model:    e.provider.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.provider.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if e.provider.RequiresAuth && e.provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.provider.APIKey)
	}

	monitor := newLivenessMonitor(e.probe, e.provider.BaseURL, e.provider.Name,
		e.opts.GracePeriod, e.opts.ProbeTimeout, e.opts.Status)
	monitor.arm()
	defer monitor.cancel()

	d := newDemux(sink, e.opts.Status)

	resp, err := e.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return e.artifact(d, true, start, 0, time.Time{}), nil
		}
		return nil, &UnreachableError{Provider: e.provider.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RequestError{
			Provider:   e.provider.Name,
			StatusCode: resp.StatusCode,
			Body:       util.TruncateRunes(string(bytes.TrimSpace(snippet)), 200),
		}
	}

	reader := newSSEReader(resp.Body)
	chunks := 0
	eventSeen := false
	var firstChunk time.Time

	for {
		// Cancellation is observed between events: once signaled, no new
		// chunk processing occurs, even for data already buffered.
		select {
		case <-ctx.Done():
			return e.artifact(d, true, start, chunks, firstChunk), nil
		default:
		}

		data, err := reader.next()
		if err != nil {
			if err == io.EOF {
				// Natural end without a [DONE] sentinel.
				return e.artifact(d, false, start, chunks, firstChunk), nil
			}
			if ctx.Err() != nil {
				return e.artifact(d, true, start, chunks, firstChunk), nil
			}
			if d.text() != "" {
				// Partial progress survives a late transport error.
				e.statusf("stream from %s ended early: %v", e.provider.Name, err)
				return e.artifact(d, false, start, chunks, firstChunk), nil
			}
			return nil, &UnreachableError{Provider: e.provider.Name, Err: err}
		}

		// Any event disarms the monitor, malformed or not: bytes are
		// flowing, so the provider is not silently offline.
		if !eventSeen {
			eventSeen = true
			monitor.chunkReceived()
		}

		if data == doneSentinel {
			return e.artifact(d, false, start, chunks, firstChunk), nil
		}

		chunk, ok := parseChunk(data)
		if !ok {
			// Malformed chunks are skipped, never surfaced.
			continue
		}

		if chunks == 0 {
			firstChunk = time.Now()
		}
		chunks++

		reasoning, content := chunk.deltas()
		d.feed(reasoning, content)

		if chunk.finished() {
			return e.artifact(d, false, start, chunks, firstChunk), nil
		}
	}
}

// artifact assembles the return value from the demux accumulator.
func (e *Engine) artifact(d *demux, cancelled bool, start time.Time, chunks int, firstChunk time.Time) *Artifact {
	stats := Stats{Total: time.Since(start), Chunks: chunks}
	if !firstChunk.IsZero() {
		stats.TimeToFirstChunk = firstChunk.Sub(start)
	}
	return &Artifact{
		Text:      d.text(),
		Cancelled: cancelled,
		Stats:     stats,
	}
}

func (e *Engine) statusf(format string, args ...any) {
	if e.opts.Status != nil {
		e.opts.Status(format, args...)
	}
}
