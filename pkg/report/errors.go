// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package report delivers pin validation failures to collector endpoints
// as JSON documents over HTTP POST. Delivery is fully decoupled from the
// connection path: submissions are enqueued without blocking, a single
// background worker sends them one at a time, duplicates within a rate
// window are suppressed, and every delivery error is logged and dropped.
// Nothing here ever propagates back to the validation caller.
package report

import "errors"

var (
	// ErrClosed is returned when a reporter is used after Close.
	ErrClosed = errors.New("report: reporter closed")
)
