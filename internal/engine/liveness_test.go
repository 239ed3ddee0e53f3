// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusRecorder captures advisory lines thread-safely.
type statusRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (s *statusRecorder) fn() StatusFunc {
	return func(format string, args ...any) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lines = append(s.lines, format)
	}
}

func (s *statusRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func TestLiveness_ProbeOnlineAfterGrace(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var status statusRecorder
	m := newLivenessMonitor(srv.Client(), srv.URL, "test", 5*time.Millisecond, time.Second, status.fn())
	m.arm()

	select {
	case <-m.probeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never fired")
	}

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, livenessOnline, m.currentState())
	assert.Equal(t, 1, status.count())
}

func TestLiveness_ProbeOffline(t *testing.T) {
	// A server that was shut down: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var status statusRecorder
	m := newLivenessMonitor(&http.Client{}, url, "test", 5*time.Millisecond, time.Second, status.fn())
	m.arm()

	select {
	case <-m.probeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never fired")
	}

	assert.Equal(t, livenessOffline, m.currentState())
	assert.Equal(t, 1, status.count())
}

func TestLiveness_ChunkBeforeGraceSkipsProbe(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	var status statusRecorder
	m := newLivenessMonitor(srv.Client(), srv.URL, "test", 50*time.Millisecond, time.Second, status.fn())
	m.arm()
	m.chunkReceived()

	// Wait well past the grace period; the disarmed timer must not probe.
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, int32(0), hits.Load())
	assert.Equal(t, livenessChunkReceived, m.currentState())
	assert.Equal(t, 0, status.count())
}

func TestLiveness_ProbeAtMostOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	var status statusRecorder
	m := newLivenessMonitor(srv.Client(), srv.URL, "test", time.Hour, time.Second, status.fn())
	m.arm()

	// Force the expiry path twice; only the first may probe.
	m.graceExpired()
	m.graceExpired()

	select {
	case <-m.probeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never fired")
	}

	assert.Equal(t, int32(1), hits.Load())
}

func TestLiveness_ResultDiscardedAfterDisarm(t *testing.T) {
	probeStarted := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(probeStarted)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var status statusRecorder
	m := newLivenessMonitor(srv.Client(), srv.URL, "test", time.Millisecond, 2*time.Second, status.fn())
	m.arm()

	<-probeStarted
	// A chunk arrives while the probe is in flight: the probe completes
	// but its result is discarded.
	m.chunkReceived()
	close(release)
	<-m.probeDone

	assert.Equal(t, livenessChunkReceived, m.currentState())
	assert.Equal(t, 0, status.count(), "no advisory after disarm")
}
