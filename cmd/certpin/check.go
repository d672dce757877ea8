// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-certpin/pkg/pinning"
	"github.com/jeremyhahn/go-certpin/pkg/policy"
	"github.com/jeremyhahn/go-certpin/pkg/report"
	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

// checkCmd validates a live server against a policy file.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a live server against a pinning policy file",
	Long: `Connect to a TLS server, verify its chain against the system trust
store, then evaluate the chain against the policy resolved for the
hostname from a YAML policy file.

The exit status is non-zero only when the outcome is a failure under an
enforcing policy. Non-enforcing failures and hosts with no policy are
reported on stdout but exit zero.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("config", "", "path to YAML policy file (required)")
	checkCmd.Flags().String("addr", "", "server address as host:port (required)")
	checkCmd.Flags().Bool("report", false, "deliver failure reports to the policy's report URIs")
	checkCmd.Flags().String("cache-id", "", "persist SPKI digests under this cache identifier")
}

// runCheck performs one full validation of a live host.
func runCheck(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")
	enableReport, _ := cmd.Flags().GetBool("report")
	cacheID, _ := cmd.Flags().GetString("cache-id")

	if configPath == "" {
		return fmt.Errorf("%w: --config is required", ErrInvalidInput)
	}
	if addr == "" {
		return fmt.Errorf("%w: --addr is required", ErrInvalidInput)
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: --addr must be host:port: %w", ErrInvalidInput, err)
	}

	store, err := policy.LoadFile(configPath, slog.Default())
	if err != nil {
		return err
	}

	chain, err := fetchChain(addr)
	if err != nil {
		return err
	}
	verdict := systemVerdict(host, chain)

	cfg := &pinning.ValidatorConfig{
		Policies: store,
		Cache:    spki.NewCache(&spki.CacheConfig{Identifier: cacheID}),
	}
	var reporter *report.Reporter
	if enableReport {
		reporter = report.New(&report.Config{
			AppVersion:  resolveVersion(),
			AppPlatform: "certpin-cli",
			UserAgent:   "certpin/" + resolveVersion(),
		})
		defer reporter.Close()
		cfg.Reporter = reporter
	}

	validator, err := pinning.NewValidator(cfg)
	if err != nil {
		return err
	}

	res := validator.Validate(host, chain, verdict)
	fmt.Printf("host: %s\noutcome: %s\n", host, res.Outcome)
	if res.Policy != nil {
		fmt.Printf("policy: %s (enforce=%t)\n", res.NotedHostname, res.Policy.Enforce)
	}
	if verdict.Reason != "" {
		fmt.Printf("system-trust: %s\n", verdict.Reason)
	}

	if res.Enforced() {
		return fmt.Errorf("%w: %s", ErrPinValidationFailed, res.Outcome)
	}
	return nil
}

// systemVerdict verifies the presented chain against the system trust
// store and folds the result into the trust verdict consumed by the
// validator. User-installed anchor detection is not portable from here,
// so UserTrustAnchor is always false for CLI checks.
func systemVerdict(host string, chain []*x509.Certificate) pinning.TrustVerdict {
	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}

	_, err := chain[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Intermediates: intermediates,
	})
	if err != nil {
		return pinning.TrustVerdict{Trusted: false, Reason: err.Error()}
	}
	return pinning.TrustVerdict{Trusted: true}
}
