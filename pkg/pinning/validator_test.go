// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-certpin/pkg/policy"
	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// generateTestCert creates a self-signed ECDSA P-256 certificate for testing.
func generateTestCert(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)
	return cert
}

// recordingReporter captures Report invocations for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	results []Result
}

func (r *recordingReporter) Report(res Result, pol *policy.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// newTestValidator builds a validator over a single example.com policy
// that pins the given certificates.
func newTestValidator(t *testing.T, reporter Reporter, pinned ...*x509.Certificate) *Validator {
	t.Helper()

	pins := make([]spki.Digest, 0, len(pinned))
	for _, cert := range pinned {
		pins = append(pins, spki.Compute(cert))
	}

	store, err := policy.NewStore([]*policy.Policy{
		{
			Domain:            "example.com",
			Pins:              pins,
			IncludeSubdomains: true,
			Enforce:           true,
		},
	}, nil)
	require.NoError(t, err)

	v, err := NewValidator(&ValidatorConfig{
		Policies: store,
		Reporter: reporter,
	})
	require.NoError(t, err)
	return v
}

func TestNewValidator_RequiresStore(t *testing.T) {
	_, err := NewValidator(nil)
	assert.ErrorIs(t, err, ErrNoPolicyStore)

	_, err = NewValidator(&ValidatorConfig{})
	assert.ErrorIs(t, err, ErrNoPolicyStore)
}

func TestValidate_Success(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	res := v.Validate("example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})

	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, "example.com", res.NotedHostname)
	assert.False(t, res.Enforced())
	assert.False(t, res.ValidatedAt.IsZero())
}

func TestValidate_SubdomainUsesAncestorPolicy(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	res := v.Validate("api.example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})

	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, "api.example.com", res.Hostname)
	assert.Equal(t, "example.com", res.NotedHostname)
}

func TestValidate_MatchInIntermediate(t *testing.T) {
	leaf := generateTestCert(t)
	intermediate := generateTestCert(t)
	v := newTestValidator(t, nil, intermediate)

	res := v.Validate("example.com", []*x509.Certificate{leaf, intermediate}, TrustVerdict{Trusted: true})
	assert.Equal(t, Success, res.Outcome)
}

func TestValidate_NoMatchingPin(t *testing.T) {
	pinned := generateTestCert(t)
	presented := generateTestCert(t)
	v := newTestValidator(t, nil, pinned)

	res := v.Validate("example.com", []*x509.Certificate{presented}, TrustVerdict{Trusted: true})

	assert.Equal(t, FailedNoMatchingPin, res.Outcome)
	assert.True(t, res.Enforced())
}

func TestValidate_InvalidChainTrumpsPinMatch(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	// Even though the leaf's pin is configured, a failed system verdict
	// must yield an invalid-chain failure.
	res := v.Validate("example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: false, Reason: "expired"})

	assert.Equal(t, FailedInvalidCertificateChain, res.Outcome)
	assert.True(t, res.Enforced())
}

func TestValidate_EmptyChain(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	res := v.Validate("example.com", nil, TrustVerdict{Trusted: true})
	assert.Equal(t, FailedInvalidCertificateChain, res.Outcome)
}

func TestValidate_NilCertInChainSkipped(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	res := v.Validate("example.com", []*x509.Certificate{nil, leaf}, TrustVerdict{Trusted: true})
	assert.Equal(t, Success, res.Outcome)
}

func TestValidate_NoPolicyForHostname(t *testing.T) {
	leaf := generateTestCert(t)
	reporter := &recordingReporter{}
	v := newTestValidator(t, reporter, leaf)

	res := v.Validate("unpinned.org", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})

	assert.Equal(t, NoPolicyForHostname, res.Outcome)
	assert.Nil(t, res.Policy)
	assert.Empty(t, res.NotedHostname)
	assert.False(t, res.Enforced())
	// Pass-through results never reach the reporter.
	assert.Equal(t, 0, reporter.count())
}

func TestValidate_UserTrustAnchorBypass(t *testing.T) {
	leaf := generateTestCert(t)
	store, err := policy.NewStore([]*policy.Policy{
		{
			Domain:                 "example.com",
			Pins:                   []spki.Digest{spki.Compute(leaf)},
			Enforce:                true,
			BypassUserTrustAnchors: true,
		},
	}, nil)
	require.NoError(t, err)

	v, err := NewValidator(&ValidatorConfig{Policies: store})
	require.NoError(t, err)

	res := v.Validate("example.com", []*x509.Certificate{generateTestCert(t)},
		TrustVerdict{Trusted: true, UserTrustAnchor: true})

	assert.Equal(t, FailedUserDefinedTrustAnchor, res.Outcome)
	// Distinguished but never enforced.
	assert.False(t, res.Enforced())
}

func TestValidate_UserTrustAnchorWithoutBypassStillPinChecks(t *testing.T) {
	leaf := generateTestCert(t)
	v := newTestValidator(t, nil, leaf)

	res := v.Validate("example.com", []*x509.Certificate{leaf},
		TrustVerdict{Trusted: true, UserTrustAnchor: true})
	assert.Equal(t, Success, res.Outcome)
}

func TestValidate_FailureReachesReporter(t *testing.T) {
	pinned := generateTestCert(t)
	reporter := &recordingReporter{}
	v := newTestValidator(t, reporter, pinned)

	v.Validate("example.com", []*x509.Certificate{generateTestCert(t)}, TrustVerdict{Trusted: true})

	require.Equal(t, 1, reporter.count())
	assert.Equal(t, FailedNoMatchingPin, reporter.results[0].Outcome)
}

func TestValidate_SuccessAlsoHandedToReporter(t *testing.T) {
	// The reporter owns outcome filtering; the validator forwards every
	// result that carries a policy.
	leaf := generateTestCert(t)
	reporter := &recordingReporter{}
	v := newTestValidator(t, reporter, leaf)

	v.Validate("example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})
	assert.Equal(t, 1, reporter.count())
}

func TestValidate_CallbackSynchronousByDefault(t *testing.T) {
	leaf := generateTestCert(t)
	store, err := policy.NewStore([]*policy.Policy{
		{Domain: "example.com", Pins: []spki.Digest{spki.Compute(leaf)}, Enforce: true},
	}, nil)
	require.NoError(t, err)

	var got *Result
	v, err := NewValidator(&ValidatorConfig{
		Policies: store,
		Callback: func(res Result) { got = &res },
	})
	require.NoError(t, err)

	res := v.Validate("example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})

	require.NotNil(t, got)
	assert.Equal(t, res.Outcome, got.Outcome)
}

func TestValidate_CallbackOnLoopExecutor(t *testing.T) {
	leaf := generateTestCert(t)
	store, err := policy.NewStore([]*policy.Policy{
		{Domain: "example.com", Pins: []spki.Digest{spki.Compute(leaf)}, Enforce: true},
	}, nil)
	require.NoError(t, err)

	loop := NewLoopExecutor(4)
	var got *Result
	v, err := NewValidator(&ValidatorConfig{
		Policies: store,
		Callback: func(res Result) { got = &res },
		Executor: loop,
	})
	require.NoError(t, err)

	v.Validate("example.com", []*x509.Certificate{leaf}, TrustVerdict{Trusted: true})

	// Not delivered until the loop is pumped.
	assert.Nil(t, got)
	assert.True(t, loop.RunOnce())
	require.NotNil(t, got)
	assert.Equal(t, Success, got.Outcome)
	assert.False(t, loop.RunOnce())
}

func TestOutcome_Strings(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failed-no-matching-pin", FailedNoMatchingPin.String())
	assert.Equal(t, "failed-invalid-certificate-chain", FailedInvalidCertificateChain.String())
	assert.Equal(t, "failed-user-defined-trust-anchor", FailedUserDefinedTrustAnchor.String())
	assert.Equal(t, "no-policy-for-hostname", NoPolicyForHostname.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

func TestOutcome_Failure(t *testing.T) {
	assert.False(t, Success.Failure())
	assert.False(t, NoPolicyForHostname.Failure())
	assert.True(t, FailedNoMatchingPin.Failure())
	assert.True(t, FailedInvalidCertificateChain.Failure())
	assert.True(t, FailedUserDefinedTrustAnchor.Failure())
}

func TestResult_Enforced_NonEnforcingPolicy(t *testing.T) {
	res := Result{
		Outcome: FailedNoMatchingPin,
		Policy:  &policy.Policy{Domain: "example.com", Enforce: false},
	}
	assert.False(t, res.Enforced())
}
