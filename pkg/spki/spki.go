// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spki

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	// hexPinLength is the length of a hex-encoded SHA-256 pin.
	hexPinLength = 64

	// base64PinLength is the length of a standard base64-encoded
	// SHA-256 pin including padding.
	base64PinLength = 44
)

// Digest is the SHA-256 hash of a DER-encoded SubjectPublicKeyInfo.
type Digest [sha256.Size]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Base64 returns the standard base64 encoding of the digest, the form
// used by HPKP-style pin directives.
func (d Digest) Base64() string {
	return base64.StdEncoding.EncodeToString(d[:])
}

// ParsePin parses a pin string into a Digest. Both encodings in common
// use are accepted: 64 hex characters, or the standard base64 encoding
// of 32 bytes (44 characters with padding). Surrounding whitespace and
// an optional "pin-sha256=" prefix with quotes are tolerated.
func ParsePin(s string) (Digest, error) {
	var d Digest

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "pin-sha256=")
	s = strings.Trim(s, `"`)

	switch len(s) {
	case hexPinLength:
		raw, err := hex.DecodeString(strings.ToLower(s))
		if err != nil {
			return d, fmt.Errorf("%w: %q", ErrInvalidPinFormat, s)
		}
		copy(d[:], raw)
		return d, nil
	case base64PinLength:
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil || len(raw) != sha256.Size {
			return d, fmt.Errorf("%w: %q", ErrInvalidPinFormat, s)
		}
		copy(d[:], raw)
		return d, nil
	default:
		return d, fmt.Errorf("%w: expected %d hex or %d base64 chars, got %d",
			ErrInvalidPinFormat, hexPinLength, base64PinLength, len(s))
	}
}

// Compute returns the SHA-256 digest of the certificate's
// SubjectPublicKeyInfo without consulting any cache.
func Compute(cert *x509.Certificate) Digest {
	return sha256.Sum256(cert.RawSubjectPublicKeyInfo)
}

// keyIdentity extracts the algorithm OID and subjectPublicKey bits from a
// DER SubjectPublicKeyInfo and returns them as an opaque identity string.
// Two certificates that carry the same public key produce the same
// identity even when the surrounding certificates differ.
//
//	SubjectPublicKeyInfo ::= SEQUENCE {
//	    algorithm        AlgorithmIdentifier,
//	    subjectPublicKey BIT STRING }
func keyIdentity(spkiDER []byte) (string, error) {
	input := cryptobyte.String(spkiDER)

	var spkiSeq cryptobyte.String
	if !input.ReadASN1(&spkiSeq, casn1.SEQUENCE) {
		return "", ErrMalformedSPKI
	}

	var algSeq cryptobyte.String
	if !spkiSeq.ReadASN1(&algSeq, casn1.SEQUENCE) {
		return "", ErrMalformedSPKI
	}
	var oid asn1.ObjectIdentifier
	if !algSeq.ReadASN1ObjectIdentifier(&oid) {
		return "", ErrMalformedSPKI
	}

	var key asn1.BitString
	if !spkiSeq.ReadASN1BitString(&key) {
		return "", ErrMalformedSPKI
	}

	return oid.String() + "|" + string(key.Bytes), nil
}
