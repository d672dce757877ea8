// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package dnspin derives SPKI pin sets from DANE TLSA records
// (RFC 6698). Operators who already publish TLSA records can bootstrap
// a pinning policy file from DNS instead of hand-copying digests: a
// TLSA record with selector SPKI and matching type SHA-256 carries
// exactly the digest a pinning policy needs.
package dnspin

import "errors"

var (
	// ErrResolverConfig is returned when the resolver configuration is
	// nil or the system resolver cannot be determined.
	ErrResolverConfig = errors.New("dnspin: invalid resolver configuration")

	// ErrInvalidHostname is returned for an empty or malformed hostname.
	ErrInvalidHostname = errors.New("dnspin: invalid hostname")

	// ErrInvalidPort is returned for port zero.
	ErrInvalidPort = errors.New("dnspin: invalid port")

	// ErrLookupFailed is returned when the TLSA DNS query fails.
	ErrLookupFailed = errors.New("dnspin: TLSA lookup failed")

	// ErrDNSSECRequired is returned when the resolver requires the
	// Authenticated Data flag and the response lacks it.
	ErrDNSSECRequired = errors.New("dnspin: response not DNSSEC authenticated")

	// ErrNoTLSARecords is returned when the query succeeds but yields
	// no TLSA records.
	ErrNoTLSARecords = errors.New("dnspin: no TLSA records found")

	// ErrNoUsableRecords is returned when TLSA records exist but none
	// carries an SPKI SHA-256 association usable as a pin.
	ErrNoUsableRecords = errors.New("dnspin: no TLSA records usable as SPKI pins")
)
