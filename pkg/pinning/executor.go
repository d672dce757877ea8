// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import "context"

// Executor schedules validation callbacks onto a caller-chosen execution
// context. The zero configuration runs callbacks synchronously on the
// validating goroutine.
type Executor interface {
	Execute(fn func())
}

// syncExecutor runs callbacks inline.
type syncExecutor struct{}

func (syncExecutor) Execute(fn func()) { fn() }

// LoopExecutor routes callbacks onto a channel drained by a single
// caller-owned goroutine, typically an application event loop. This
// keeps result processing off the TLS handshake goroutine and serializes
// it with the caller's own state mutation.
type LoopExecutor struct {
	fns chan func()
}

// NewLoopExecutor creates a LoopExecutor with the given queue depth.
// Depths below one are replaced with a default of 16.
func NewLoopExecutor(depth int) *LoopExecutor {
	if depth < 1 {
		depth = 16
	}
	return &LoopExecutor{fns: make(chan func(), depth)}
}

// Execute queues fn for the draining goroutine. It blocks when the
// queue is full, applying backpressure to the validating goroutine
// rather than dropping a security-relevant callback.
func (l *LoopExecutor) Execute(fn func()) {
	l.fns <- fn
}

// Run drains queued callbacks until the context is canceled.
func (l *LoopExecutor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.fns:
			fn()
		}
	}
}

// RunOnce executes a single queued callback if one is pending and
// reports whether it did. Useful for deterministic test pumping.
func (l *LoopExecutor) RunOnce() bool {
	select {
	case fn := <-l.fns:
		fn()
		return true
	default:
		return false
	}
}
