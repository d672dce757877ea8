// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"log/slog"
	"time"

	"github.com/jeremyhahn/go-certpin/pkg/policy"
	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// Reporter consumes failed validation results for out-of-band delivery.
// pkg/report provides the production implementation; the interface lives
// here so the validator does not depend on the reporting transport.
type Reporter interface {
	// Report submits a validation result for background reporting.
	// It must never block on network I/O.
	Report(result Result, pol *policy.Policy)
}

// ValidatorConfig configures a Validator.
type ValidatorConfig struct {
	// Policies is the domain policy store. Required.
	Policies *policy.Store

	// Cache memoizes SPKI digests across validations. When nil a
	// memory-only cache is created.
	Cache *spki.Cache

	// Callback, when set, receives every validation result.
	Callback func(Result)

	// Executor is the execution context for Callback. When nil the
	// callback runs synchronously on the validating goroutine.
	Executor Executor

	// Reporter, when set, receives failed results for background
	// delivery. The reporter applies its own filtering and rate limits.
	Reporter Reporter

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validator evaluates certificate chains against domain pinning policies.
// Validation is synchronous and performs no network I/O; it is expected
// to run on whatever goroutine completes the TLS handshake, with any
// number of validations in flight concurrently.
type Validator struct {
	policies *policy.Store
	cache    *spki.Cache
	callback func(Result)
	executor Executor
	reporter Reporter
	logger   *slog.Logger
}

// NewValidator creates a Validator from the given configuration.
func NewValidator(cfg *ValidatorConfig) (*Validator, error) {
	if cfg == nil || cfg.Policies == nil {
		return nil, ErrNoPolicyStore
	}

	cache := cfg.Cache
	if cache == nil {
		cache = spki.NewCache(nil)
	}
	executor := cfg.Executor
	if executor == nil {
		executor = syncExecutor{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		policies: cfg.Policies,
		cache:    cache,
		callback: cfg.Callback,
		executor: executor,
		reporter: cfg.Reporter,
		logger:   logger.With("component", "pinning_validator"),
	}, nil
}

// Validate evaluates the chain for hostname under the resolved policy
// and returns the terminal result. It never returns an error: malformed
// input (an empty chain, an unresolvable hostname) maps to an outcome
// value, because the contract is that an invalid state is never silently
// treated as pinned success.
//
// The chain must be ordered leaf to root as presented by the transport.
func (v *Validator) Validate(hostname string, chain []*x509.Certificate, verdict TrustVerdict) Result {
	res := v.evaluate(hostname, chain, verdict)
	v.dispatch(res)
	return res
}

func (v *Validator) evaluate(hostname string, chain []*x509.Certificate, verdict TrustVerdict) Result {
	res := Result{
		Hostname:    hostname,
		Chain:       chain,
		Verdict:     verdict,
		ValidatedAt: time.Now(),
	}

	pol, ok := v.policies.Resolve(hostname)
	if !ok {
		res.Outcome = NoPolicyForHostname
		return res
	}
	res.Policy = pol
	res.NotedHostname = pol.Domain

	switch {
	case len(chain) == 0 || !verdict.Trusted:
		// A failed chain is a failure independent of pins.
		res.Outcome = FailedInvalidCertificateChain
	case pol.BypassUserTrustAnchors && verdict.UserTrustAnchor:
		res.Outcome = FailedUserDefinedTrustAnchor
	default:
		res.Outcome = FailedNoMatchingPin
		for _, cert := range chain {
			if cert == nil {
				continue
			}
			if pol.HasPin(v.cache.Hash(cert)) {
				res.Outcome = Success
				break
			}
		}
	}
	return res
}

// dispatch invokes the callback on the configured executor and hands
// failures to the reporter. Both are fire-and-forget from the
// validation caller's perspective.
func (v *Validator) dispatch(res Result) {
	if res.Outcome.Failure() {
		v.logger.Warn("pin validation failed",
			"hostname", res.Hostname,
			"noted_hostname", res.NotedHostname,
			"outcome", res.Outcome.String(),
			"enforced", res.Enforced())
	} else {
		v.logger.Debug("pin validation completed",
			"hostname", res.Hostname,
			"outcome", res.Outcome.String())
	}

	if v.callback != nil {
		v.executor.Execute(func() { v.callback(res) })
	}
	if v.reporter != nil && res.Policy != nil {
		v.reporter.Report(res, res.Policy)
	}
}
