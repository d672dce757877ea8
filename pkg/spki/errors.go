// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package spki computes and caches SHA-256 digests of certificate
// SubjectPublicKeyInfo structures. The digest of a public key is the pin
// value used by per-domain pinning policies: a certificate chain satisfies
// a policy when at least one of its certificates hashes to a configured pin.
//
// Hashing is keyed by public-key identity (algorithm plus key bytes), not
// by certificate identity, so reissued certificates that carry the same
// key share a single cache entry. The cache may optionally be persisted
// to disk under a caller-supplied identifier; SPKI digests are permanent
// facts, so entries never expire.
package spki

import "errors"

var (
	// ErrInvalidPinFormat is returned when a pin string is neither
	// 64 hex characters nor the base64 encoding of 32 bytes.
	ErrInvalidPinFormat = errors.New("spki: invalid pin format")

	// ErrMalformedSPKI is returned when a SubjectPublicKeyInfo structure
	// cannot be parsed into an algorithm identifier and key bit string.
	ErrMalformedSPKI = errors.New("spki: malformed SubjectPublicKeyInfo")
)
