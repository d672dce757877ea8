// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package report

import (
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-certpin/pkg/pinning"
	"github.com/jeremyhahn/go-certpin/pkg/policy"
)

// dedupeKey identifies a report for rate limiting purposes: the same
// hostname failing the same way against the same pin set produces the
// same key for a given UTC day.
func dedupeKey(res pinning.Result, pol *policy.Policy, now time.Time) string {
	var b strings.Builder
	b.WriteString(res.Hostname)
	b.WriteByte('|')
	for _, pin := range pol.Pins {
		b.WriteString(pin.String())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(res.Outcome.String())
	b.WriteByte('|')
	b.WriteString(now.UTC().Format("2006-01-02"))
	return b.String()
}

// dedupeTable tracks which report keys have been sent within the rate
// window. Entries older than the window are evicted by a background
// sweeper so a repeatedly failing host becomes reportable again the
// next day.
type dedupeTable struct {
	mu      sync.Mutex
	sent    map[string]time.Time
	window  time.Duration
	stopCh  chan struct{}
	stopped sync.Once
}

// newDedupeTable creates a dedupe table and starts its sweeper. The
// sweeper runs every sweepInterval and evicts entries older than window.
func newDedupeTable(window, sweepInterval time.Duration) *dedupeTable {
	t := &dedupeTable{
		sent:   make(map[string]time.Time),
		window: window,
		stopCh: make(chan struct{}),
	}
	go t.sweep(sweepInterval)
	return t
}

// FirstSeen records the key and reports whether this is its first
// occurrence within the window. Only the first occurrence per key per
// window should be transmitted.
func (t *dedupeTable) FirstSeen(key string) bool {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if sentAt, ok := t.sent[key]; ok && now.Sub(sentAt) < t.window {
		return false
	}
	t.sent[key] = now
	return true
}

// Stop halts the background sweeper.
func (t *dedupeTable) Stop() {
	t.stopped.Do(func() { close(t.stopCh) })
}

func (t *dedupeTable) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.mu.Lock()
			now := time.Now()
			for key, sentAt := range t.sent {
				if now.Sub(sentAt) >= t.window {
					delete(t.sent, key)
				}
			}
			t.mu.Unlock()
		}
	}
}
