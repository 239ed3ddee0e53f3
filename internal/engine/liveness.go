// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// LIVENESS MONITOR
// =============================================================================

// livenessState tracks the monitor's position in its lifecycle.
type livenessState int

const (
	livenessIdle livenessState = iota
	livenessArmed
	livenessChecking
	livenessOnline
	livenessOffline
	livenessChunkReceived
	livenessCancelled
)

// livenessMonitor detects an unresponsive provider without blocking or
// aborting the primary request. Armed on request start with a grace
// timer; if no chunk arrives before it fires, a single side-channel
// probe against the provider's model listing decides online vs offline.
// The outcome is advisory only: the main request is never auto-cancelled.
type livenessMonitor struct {
	mu    sync.Mutex
	state livenessState
	timer *time.Timer

	// once guards the probe: at most one per request, even if timer
	// callbacks race with disarming.
	once rate.Sometimes

	client       *http.Client
	baseURL      string
	providerName string
	grace        time.Duration
	probeTimeout time.Duration
	status       StatusFunc

	// probeDone closes when a fired probe finishes; tests sync on it.
	probeDone chan struct{}
}

func newLivenessMonitor(client *http.Client, baseURL, providerName string, grace, probeTimeout time.Duration, status StatusFunc) *livenessMonitor {
	return &livenessMonitor{
		state:        livenessIdle,
		once:         rate.Sometimes{First: 1},
		client:       client,
		baseURL:      baseURL,
		providerName: providerName,
		grace:        grace,
		probeTimeout: probeTimeout,
		status:       status,
		probeDone:    make(chan struct{}),
	}
}

// arm starts the grace timer. Called once, at request start.
func (m *livenessMonitor) arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != livenessIdle {
		return
	}
	m.state = livenessArmed
	m.timer = time.AfterFunc(m.grace, m.graceExpired)
}

// chunkReceived disarms the monitor: a real chunk arrived, so no probe is
// needed. A probe already in flight completes and its result is discarded.
func (m *livenessMonitor) chunkReceived() {
	m.disarm(livenessChunkReceived)
}

// cancel disarms the monitor because the request ended or was cancelled.
func (m *livenessMonitor) cancel() {
	m.disarm(livenessCancelled)
}

func (m *livenessMonitor) disarm(terminal livenessState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	switch m.state {
	case livenessArmed, livenessChecking, livenessIdle:
		m.state = terminal
	}
}

// graceExpired fires when the grace period elapses without a chunk.
func (m *livenessMonitor) graceExpired() {
	m.mu.Lock()
	if m.state != livenessArmed {
		m.mu.Unlock()
		return
	}
	m.state = livenessChecking
	m.mu.Unlock()

	m.once.Do(func() {
		go m.probe()
	})
}

// probe issues the one-shot reachability check. It runs on its own
// context so the main request's cancellation cannot starve it, and its
// result is discarded if the monitor reached a terminal state meanwhile.
func (m *livenessMonitor) probe() {
	defer close(m.probeDone)

	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()

	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", nil)
	if err == nil {
		resp, err := m.client.Do(req)
		if err == nil {
			resp.Body.Close()
			online = resp.StatusCode < 500
		}
	}

	m.mu.Lock()
	if m.state != livenessChecking {
		m.mu.Unlock()
		return
	}
	if online {
		m.state = livenessOnline
	} else {
		m.state = livenessOffline
	}
	m.mu.Unlock()

	if m.status == nil {
		return
	}
	if online {
		m.status("provider %s is online but slow to respond; still waiting", m.providerName)
	} else {
		m.status("provider %s appears unreachable; the request will keep waiting", m.providerName)
	}
}

// currentState returns the monitor's state for inspection.
func (m *livenessMonitor) currentState() livenessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
