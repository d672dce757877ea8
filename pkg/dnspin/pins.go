// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dnspin

import (
	"context"
	"crypto/sha256"

	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// Pins converts TLSA records into SPKI pin digests. Only records with
// selector SPKI and matching type SHA-256 carry data in pin form; the
// second return value counts records that were skipped for having any
// other selector, matching type, or a wrong-length digest, so callers
// can tell an empty derivation apart from an empty record set.
func Pins(records []*TLSARecord) ([]spki.Digest, int) {
	pins := make([]spki.Digest, 0, len(records))
	skipped := 0

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Selector != SelectorSPKI || rec.MatchingType != MatchingSHA256 || len(rec.CertData) != sha256.Size {
			skipped++
			continue
		}
		var d spki.Digest
		copy(d[:], rec.CertData)
		pins = append(pins, d)
	}
	return pins, skipped
}

// DerivePins resolves TLSA records for host:port and converts them to
// SPKI pins. ErrNoUsableRecords is returned when records exist but none
// is in SPKI SHA-256 form.
func DerivePins(ctx context.Context, r *Resolver, hostname string, port uint16) ([]spki.Digest, error) {
	records, err := r.LookupTLSA(ctx, hostname, port)
	if err != nil {
		return nil, err
	}

	pins, _ := Pins(records)
	if len(pins) == 0 {
		return nil, ErrNoUsableRecords
	}
	return pins, nil
}
