// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package policy models per-domain certificate pinning policies and
// resolves hostnames to their effective policy. A Store is immutable
// after construction, so concurrent lookups need no locking. Resolution
// is longest-suffix aware: an exact host match wins over an ancestor
// domain's policy, and ancestor policies only apply when they opt into
// subdomain coverage.
package policy

import "errors"

var (
	// ErrInvalidDomain is returned when a configured policy domain does
	// not normalize to a valid DNS name.
	ErrInvalidDomain = errors.New("policy: invalid domain")

	// ErrDuplicateDomain is returned when two policies are configured
	// for the same normalized domain.
	ErrDuplicateDomain = errors.New("policy: duplicate domain")

	// ErrNoPins is returned at load time when an enforcing policy has an
	// empty pin set. This is a configuration error: enforcing with no
	// pins would reject every connection to the domain.
	ErrNoPins = errors.New("policy: enforcing policy requires at least one pin")

	// ErrConfigRead is returned when a policy file cannot be read or parsed.
	ErrConfigRead = errors.New("policy: config read failed")
)
