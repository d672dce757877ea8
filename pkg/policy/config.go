// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// filePolicy is the YAML representation of a single domain policy.
type filePolicy struct {
	Domain                  string    `yaml:"domain"`
	Pins                    []string  `yaml:"pins"`
	IncludeSubdomains       bool      `yaml:"include_subdomains"`
	Enforce                 bool      `yaml:"enforce"`
	Expires                 time.Time `yaml:"expires"`
	ReportURIs              []string  `yaml:"report_uris"`
	DisableDefaultReportURI bool      `yaml:"disable_default_report_uri"`
	BypassUserTrustAnchors  bool      `yaml:"bypass_user_trust_anchors"`
}

// fileDoc is the top-level YAML policy document.
type fileDoc struct {
	Policies []filePolicy `yaml:"policies"`
}

// LoadFile reads a YAML policy file and builds a Store from it.
func LoadFile(path string, logger *slog.Logger) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}
	defer f.Close()
	return Load(f, logger)
}

// Load parses YAML policy configuration and builds a Store. Unlike
// NewStore, loading applies strict validation: an enforcing policy with
// no pins is rejected rather than downgraded, since a config file is the
// place to surface operator mistakes.
func Load(r io.Reader, logger *slog.Logger) (*Store, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	policies := make([]*Policy, 0, len(doc.Policies))
	for _, fp := range doc.Policies {
		if fp.Enforce && len(fp.Pins) == 0 {
			return nil, fmt.Errorf("%w: domain %q", ErrNoPins, fp.Domain)
		}

		pins := make([]spki.Digest, 0, len(fp.Pins))
		for _, raw := range fp.Pins {
			d, err := spki.ParsePin(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: domain %q: %w", ErrConfigRead, fp.Domain, err)
			}
			pins = append(pins, d)
		}

		policies = append(policies, &Policy{
			Domain:                  fp.Domain,
			Pins:                    pins,
			IncludeSubdomains:       fp.IncludeSubdomains,
			Enforce:                 fp.Enforce,
			Expires:                 fp.Expires,
			ReportURIs:              fp.ReportURIs,
			DisableDefaultReportURI: fp.DisableDefaultReportURI,
			BypassUserTrustAnchors:  fp.BypassUserTrustAnchors,
		})
	}

	return NewStore(policies, logger)
}
