// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-certpin/pkg/dnspin"
	"github.com/jeremyhahn/go-certpin/pkg/spki"
)

const (
	// defaultDialTimeout is the default timeout for live handshake probes.
	defaultDialTimeout = 15 * time.Second

	// defaultDNSTimeout is the default timeout for TLSA derivation.
	defaultDNSTimeout = 10 * time.Second
)

// pinCmd is the parent command for pin operations.
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "SPKI pin operations",
	Long: `Tools for computing SPKI (Subject Public Key Info) SHA-256 pins.

Subcommands:
  show     - Compute pins from a PEM certificate file or bundle
  fetch    - Compute pins from a live TLS handshake
  from-dns - Derive pins from DANE TLSA records`,
}

// pinShowCmd computes pins from a PEM certificate file.
var pinShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show SPKI pins of a PEM certificate file",
	Long: `Compute and display the SHA-256 SubjectPublicKeyInfo digest of every
certificate in a PEM file or bundle. Pins are printed in both hex and
the base64 pin-sha256 directive form used by policy files.`,
	RunE: runPinShow,
}

// pinFetchCmd computes pins from a live TLS handshake.
var pinFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Show SPKI pins of a live server's certificate chain",
	Long: `Connect to a TLS server and display the SPKI pin of every certificate
it presents, leaf first. Certificate verification is skipped for this
observation: the output identifies what the server presented, it does
not vouch for it. Verify pins out-of-band before trusting them.`,
	RunE: runPinFetch,
}

// pinFromDNSCmd derives pins from DANE TLSA records.
var pinFromDNSCmd = &cobra.Command{
	Use:   "from-dns",
	Short: "Derive SPKI pins from DANE TLSA records",
	Long: `Resolve TLSA records for a host and port (RFC 6698) and convert those
with selector SPKI and matching type SHA-256 into pins. By default the
response must be DNSSEC authenticated (AD flag); --no-dnssec disables
that requirement for resolvers that do not validate.`,
	RunE: runPinFromDNS,
}

func init() {
	pinCmd.AddCommand(pinShowCmd)
	pinCmd.AddCommand(pinFetchCmd)
	pinCmd.AddCommand(pinFromDNSCmd)

	pinShowCmd.Flags().String("cert-file", "", "path to PEM certificate file (required)")

	pinFetchCmd.Flags().String("addr", "", "server address as host:port (required)")

	pinFromDNSCmd.Flags().String("host", "", "hostname to resolve TLSA records for (required)")
	pinFromDNSCmd.Flags().Uint16("port", 443, "service port for the TLSA owner name")
	pinFromDNSCmd.Flags().String("dns-server", "", "DNS resolver address (default: system resolver)")
	pinFromDNSCmd.Flags().Bool("no-dnssec", false, "do not require DNSSEC-authenticated responses")
}

// runPinShow prints the pins of every certificate in a PEM file.
func runPinShow(cmd *cobra.Command, args []string) error {
	certFile, _ := cmd.Flags().GetString("cert-file")
	if certFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}

	data, err := os.ReadFile(certFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}

	certs, err := parsePEMCertificates(data)
	if err != nil {
		return err
	}

	for _, cert := range certs {
		printPin(cert)
	}
	return nil
}

// runPinFetch connects to a TLS server and prints the pins of the
// presented chain.
func runPinFetch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		return fmt.Errorf("%w: --addr is required", ErrInvalidInput)
	}

	slog.Debug("probing server chain", "addr", addr)

	chain, err := fetchChain(addr)
	if err != nil {
		return err
	}

	for _, cert := range chain {
		printPin(cert)
	}
	return nil
}

// runPinFromDNS derives pins from TLSA records and prints them.
func runPinFromDNS(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetUint16("port")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	noDNSSEC, _ := cmd.Flags().GetBool("no-dnssec")

	if host == "" {
		return fmt.Errorf("%w: --host is required", ErrInvalidInput)
	}

	resolver, err := dnspin.NewResolver(&dnspin.ResolverConfig{
		Server:    dnsServer,
		RequireAD: !noDNSSEC,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeriveFailed, err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultDNSTimeout)
	defer cancel()

	pins, err := dnspin.DerivePins(ctx, resolver, host, port)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeriveFailed, err)
	}

	for _, pin := range pins {
		fmt.Printf("%s  pin-sha256=%q\n", pin.String(), pin.Base64())
	}
	return nil
}

// fetchChain performs a TLS handshake and returns the presented chain,
// leaf first. Verification is intentionally skipped: this is a probe of
// what the server presents, not a trust decision.
func fetchChain(addr string) ([]*x509.Certificate, error) {
	dialer := &tls.Dialer{
		Config: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // observation only, see doc comment
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	defer conn.Close()

	chain := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no certificates presented", ErrConnectFailed)
	}
	return chain, nil
}

// parsePEMCertificates parses every CERTIFICATE block in a PEM bundle.
func parsePEMCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no certificates found in file", ErrInvalidInput)
	}
	return certs, nil
}

// printPin writes one certificate's subject and pin forms to stdout.
func printPin(cert *x509.Certificate) {
	pin := spki.Compute(cert)
	fmt.Printf("%s  pin-sha256=%q  %s\n", pin.String(), pin.Base64(), cert.Subject.String())
}
