// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinning evaluates server certificate chains against per-domain
// pinning policies. The validator consumes a hostname, the chain as
// presented by the transport (leaf first), and the system trust verdict
// produced by ordinary chain verification; it layers pin enforcement on
// top and reports the outcome as a value, never as an error. Failure is
// an expected, security-relevant result that callers must branch on.
package pinning

import "errors"

var (
	// ErrNoPolicyStore is returned when a Validator is constructed
	// without a policy store.
	ErrNoPolicyStore = errors.New("pinning: policy store is required")
)
