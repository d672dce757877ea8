// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is an immutable mapping from normalized domain to Policy. It is
// built once and never mutated, so Resolve is safe for concurrent use
// without locking.
type Store struct {
	policies map[string]*Policy
	logger   *slog.Logger
}

// NewStore builds a Store from the given policies. Domains are
// normalized; duplicates and unnormalizable domains are rejected.
//
// An enforcing policy with an empty pin set is a configuration error the
// loader should have caught, but the store must not turn it into a
// blanket connection block: such a policy is downgraded to non-enforcing
// and a warning is logged.
func NewStore(policies []*Policy, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy_store")

	s := &Store{
		policies: make(map[string]*Policy, len(policies)),
		logger:   logger,
	}

	for _, p := range policies {
		if p == nil {
			continue
		}
		domain, ok := NormalizeHostname(p.Domain)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, p.Domain)
		}
		if _, exists := s.policies[domain]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDomain, domain)
		}

		stored := *p
		stored.Domain = domain
		if stored.Enforce && len(stored.Pins) == 0 {
			logger.Warn("enforcing policy has no pins, downgrading to non-enforcing", "domain", domain)
			stored.Enforce = false
		}
		s.policies[domain] = &stored
	}

	return s, nil
}

// Len reports the number of configured policies.
func (s *Store) Len() int {
	return len(s.policies)
}

// Resolve returns the effective policy for a hostname. The exact host is
// checked first; if it has no live policy, ancestor domains are walked
// one label at a time and the first ancestor whose policy includes
// subdomains wins. Expired policies behave as if absent. An ill-formed
// hostname resolves to no policy rather than an error: pin validation
// must never be the reason a connection fails on unrelated bad input.
func (s *Store) Resolve(hostname string) (*Policy, bool) {
	host, ok := NormalizeHostname(hostname)
	if !ok {
		return nil, false
	}
	now := time.Now()

	if p, exists := s.policies[host]; exists && !p.Expired(now) {
		return p, true
	}

	for {
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return nil, false
		}
		host = host[dot+1:]
		if p, exists := s.policies[host]; exists && p.IncludeSubdomains && !p.Expired(now) {
			return p, true
		}
	}
}
