// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed ECDSA P-256 certificate for testing.
func generateTestCert(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return certForKey(t, key, 1)
}

// certForKey creates a self-signed certificate carrying the given key.
func certForKey(t *testing.T, key *ecdsa.PrivateKey, serial int64) *x509.Certificate {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)
	return cert
}

func TestCompute(t *testing.T) {
	cert := generateTestCert(t)

	d := Compute(cert)

	expected := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	assert.Equal(t, Digest(expected), d)
	assert.Equal(t, hex.EncodeToString(expected[:]), d.String())
}

func TestCompute_DifferentKeys(t *testing.T) {
	cert1 := generateTestCert(t)
	cert2 := generateTestCert(t)

	assert.NotEqual(t, Compute(cert1), Compute(cert2))
}

func TestCompute_SameKeyDifferentCerts(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	cert1 := certForKey(t, key, 1)
	cert2 := certForKey(t, key, 2)

	// Reissued certificates with the same key carry the same pin.
	assert.Equal(t, Compute(cert1), Compute(cert2))
}

func TestParsePin_Hex(t *testing.T) {
	cert := generateTestCert(t)
	d := Compute(cert)

	parsed, err := ParsePin(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParsePin_HexUppercase(t *testing.T) {
	cert := generateTestCert(t)
	d := Compute(cert)

	parsed, err := ParsePin(strings.ToUpper(d.String()))
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParsePin_Base64(t *testing.T) {
	cert := generateTestCert(t)
	d := Compute(cert)

	parsed, err := ParsePin(d.Base64())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParsePin_DirectiveForm(t *testing.T) {
	cert := generateTestCert(t)
	d := Compute(cert)

	parsed, err := ParsePin(`pin-sha256="` + d.Base64() + `"`)
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParsePin_Whitespace(t *testing.T) {
	cert := generateTestCert(t)
	d := Compute(cert)

	parsed, err := ParsePin("  " + d.String() + "\n")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParsePin_Invalid(t *testing.T) {
	cases := []string{
		"",
		"deadbeef",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		"not base64 but forty-four characters long!!!",
	}
	for _, raw := range cases {
		_, err := ParsePin(raw)
		assert.ErrorIs(t, err, ErrInvalidPinFormat, "input %q", raw)
	}
}

func TestKeyIdentity_SameKey(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	cert1 := certForKey(t, key, 1)
	cert2 := certForKey(t, key, 2)

	id1, err := keyIdentity(cert1.RawSubjectPublicKeyInfo)
	require.NoError(t, err)
	id2, err := keyIdentity(cert2.RawSubjectPublicKeyInfo)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestKeyIdentity_DifferentKeys(t *testing.T) {
	cert1 := generateTestCert(t)
	cert2 := generateTestCert(t)

	id1, err := keyIdentity(cert1.RawSubjectPublicKeyInfo)
	require.NoError(t, err)
	id2, err := keyIdentity(cert2.RawSubjectPublicKeyInfo)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestKeyIdentity_Malformed(t *testing.T) {
	_, err := keyIdentity([]byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrMalformedSPKI)

	_, err = keyIdentity(nil)
	assert.ErrorIs(t, err, ErrMalformedSPKI)
}
