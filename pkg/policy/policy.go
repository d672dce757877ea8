// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package policy

import (
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// Policy is the pinning rule set for a single domain.
type Policy struct {
	// Domain is the normalized domain this policy was configured for.
	// Under subdomain inclusion this is the "noted hostname" of report
	// payloads, which may differ from the hostname being validated.
	Domain string

	// Pins is the set of trusted SPKI digests. A chain satisfies the
	// policy when any of its certificates hashes to one of these.
	Pins []spki.Digest

	// IncludeSubdomains extends the policy to all subdomains of Domain
	// that have no more specific policy of their own.
	IncludeSubdomains bool

	// Enforce indicates whether a pin failure should block the
	// connection. When false, failures are still reported but the
	// caller is expected to let the connection proceed.
	Enforce bool

	// Expires is the time after which the policy behaves as if it were
	// absent. The zero value means the policy never expires.
	Expires time.Time

	// ReportURIs lists collector endpoints for failure reports.
	ReportURIs []string

	// DisableDefaultReportURI suppresses the reporter's well-known
	// default collector for this policy.
	DisableDefaultReportURI bool

	// BypassUserTrustAnchors skips pin enforcement for chains anchored
	// in a trust root the device owner installed, rather than one
	// shipped by the platform.
	BypassUserTrustAnchors bool
}

// Expired reports whether the policy's expiration is set and in the past.
func (p *Policy) Expired(now time.Time) bool {
	return !p.Expires.IsZero() && p.Expires.Before(now)
}

// HasPin reports whether the digest is in the policy's pin set.
func (p *Policy) HasPin(d spki.Digest) bool {
	for _, pin := range p.Pins {
		if pin == d {
			return true
		}
	}
	return false
}

// NormalizeHostname canonicalizes a hostname for policy lookup:
// whitespace and the trailing root dot are stripped, the name is
// case-folded and IDNA-mapped to its ASCII form. The second return value
// is false when the input does not normalize to a plausible DNS name.
func NormalizeHostname(hostname string) (string, bool) {
	hostname = strings.TrimSpace(hostname)
	hostname = strings.TrimSuffix(hostname, ".")
	if hostname == "" {
		return "", false
	}

	ascii, err := idna.Lookup.ToASCII(strings.ToLower(hostname))
	if err != nil || ascii == "" {
		return "", false
	}
	return ascii, true
}
