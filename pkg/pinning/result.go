// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"time"

	"github.com/jeremyhahn/go-certpin/pkg/policy"
)

// Outcome is the terminal result of a single validation call.
type Outcome int

const (
	// Success means a policy was resolved, the system trust verdict was
	// positive, and at least one chain certificate matched a pin.
	Success Outcome = iota

	// FailedNoMatchingPin means the chain verified under system trust
	// but no certificate's SPKI digest is in the policy's pin set.
	FailedNoMatchingPin

	// FailedInvalidCertificateChain means the system trust verdict was
	// itself a failure (or the chain was empty). Pins cannot override
	// an untrusted chain, so pin comparison is skipped.
	FailedInvalidCertificateChain

	// FailedUserDefinedTrustAnchor means the chain is anchored in a
	// user-installed trust root and the policy's bypass flag is set.
	// It is not enforced as a failure but stays distinguishable so
	// callers and reporters can special-case it.
	FailedUserDefinedTrustAnchor

	// NoPolicyForHostname means no policy resolved for the hostname;
	// validation is a pass-through with no enforcement and no report.
	NoPolicyForHostname
)

// outcomeNames are the stable string forms used in report payloads.
var outcomeNames = map[Outcome]string{
	Success:                       "success",
	FailedNoMatchingPin:           "failed-no-matching-pin",
	FailedInvalidCertificateChain: "failed-invalid-certificate-chain",
	FailedUserDefinedTrustAnchor:  "failed-user-defined-trust-anchor",
	NoPolicyForHostname:           "no-policy-for-hostname",
}

// String returns the stable serialized form of the outcome.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Failure reports whether the outcome represents a pin validation
// failure. NoPolicyForHostname and Success are not failures.
func (o Outcome) Failure() bool {
	switch o {
	case FailedNoMatchingPin, FailedInvalidCertificateChain, FailedUserDefinedTrustAnchor:
		return true
	default:
		return false
	}
}

// TrustVerdict is the system-level chain verification result supplied by
// the caller. It is produced upstream of this package by ordinary X.509
// path building against the platform trust store.
type TrustVerdict struct {
	// Trusted is true when system verification accepted the chain.
	Trusted bool

	// UserTrustAnchor is true when the chain's trust root is a
	// locally installed anchor rather than a platform CA.
	UserTrustAnchor bool

	// Reason optionally carries the system verifier's failure detail.
	Reason string
}

// Result is the immutable record of one validation call.
type Result struct {
	// Hostname is the hostname the connection was made to.
	Hostname string

	// NotedHostname is the domain whose policy applied, which differs
	// from Hostname when an ancestor policy matched via subdomain
	// inclusion. Empty when no policy resolved.
	NotedHostname string

	// Chain is the certificate chain as presented, leaf to root.
	Chain []*x509.Certificate

	// Verdict is the system trust verdict validation started from.
	Verdict TrustVerdict

	// Outcome is the terminal validation outcome.
	Outcome Outcome

	// Policy is the policy that was applied, nil when none resolved.
	Policy *policy.Policy

	// ValidatedAt is when the validation completed.
	ValidatedAt time.Time
}

// Enforced reports whether the caller should block the connection:
// the outcome is a real failure and the applied policy enforces pinning.
// A user-trust-anchor bypass is never enforced.
func (r Result) Enforced() bool {
	if r.Policy == nil || !r.Policy.Enforce {
		return false
	}
	switch r.Outcome {
	case FailedNoMatchingPin, FailedInvalidCertificateChain:
		return true
	default:
		return false
	}
}
