// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package report

import (
	"encoding/pem"
	"time"

	"github.com/jeremyhahn/go-certpin/pkg/pinning"
	"github.com/jeremyhahn/go-certpin/pkg/policy"
)

// Payload is the JSON document POSTed to each collector endpoint. The
// field names form a stable wire schema; collectors parse reports from
// many application versions, so names never change.
type Payload struct {
	AppVersion                string   `json:"app-version,omitempty"`
	AppPlatform               string   `json:"app-platform,omitempty"`
	Hostname                  string   `json:"hostname"`
	Port                      int      `json:"port,omitempty"`
	NotedHostname             string   `json:"noted-hostname"`
	IncludeSubdomains         bool     `json:"include-subdomains"`
	EnforcePinning            bool     `json:"enforce-pinning"`
	KnownPins                 []string `json:"known-pins"`
	ValidatedCertificateChain []string `json:"validated-certificate-chain"`
	DateTime                  string   `json:"date-time"`
	ValidationResult          string   `json:"validation-result"`
}

// newPayload builds the report document for a validation result.
// Pins use the HPKP directive form; chain certificates are PEM-encoded.
func newPayload(res pinning.Result, pol *policy.Policy, appVersion, appPlatform string) Payload {
	pins := make([]string, 0, len(pol.Pins))
	for _, pin := range pol.Pins {
		pins = append(pins, `pin-sha256="`+pin.Base64()+`"`)
	}

	chain := make([]string, 0, len(res.Chain))
	for _, cert := range res.Chain {
		if cert == nil {
			continue
		}
		block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}
		chain = append(chain, string(pem.EncodeToMemory(block)))
	}

	validatedAt := res.ValidatedAt
	if validatedAt.IsZero() {
		validatedAt = time.Now()
	}

	return Payload{
		AppVersion:                appVersion,
		AppPlatform:               appPlatform,
		Hostname:                  res.Hostname,
		NotedHostname:             res.NotedHostname,
		IncludeSubdomains:         pol.IncludeSubdomains,
		EnforcePinning:            pol.Enforce,
		KnownPins:                 pins,
		ValidatedCertificateChain: chain,
		DateTime:                  validatedAt.UTC().Format(time.RFC3339),
		ValidationResult:          res.Outcome.String(),
	}
}
