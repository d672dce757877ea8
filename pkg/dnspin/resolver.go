// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dnspin

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultTimeout is the default DNS query timeout.
	defaultTimeout = 5 * time.Second

	// defaultDNSPort is the standard DNS port.
	defaultDNSPort = "53"

	// defaultDoTPort is the standard DNS-over-TLS port.
	defaultDoTPort = "853"

	// maxHostnameLength is the DNS limit on a fully qualified name.
	maxHostnameLength = 253
)

// TLSA selector and matching-type values from RFC 6698 that matter for
// pin derivation.
const (
	// SelectorSPKI selects the DER SubjectPublicKeyInfo for matching.
	SelectorSPKI uint8 = 1

	// MatchingSHA256 associates a SHA-256 digest of the selected data.
	MatchingSHA256 uint8 = 1
)

// TLSARecord is a parsed TLSA resource record.
type TLSARecord struct {
	// Usage is the Certificate Usage field (0-3).
	Usage uint8

	// Selector is the Selector field (0-1).
	Selector uint8

	// MatchingType is the Matching Type field (0-2).
	MatchingType uint8

	// CertData is the Certificate Association Data.
	CertData []byte
}

// ResolverConfig configures the DNS resolver used for TLSA lookups.
type ResolverConfig struct {
	// Server is the DNS resolver address (e.g., "8.8.8.8:53"). When
	// empty, the system resolver from /etc/resolv.conf is used.
	Server string

	// UseTLS enables DNS-over-TLS on port 853.
	UseTLS bool

	// TLSServerName is the SNI value for DNS-over-TLS connections.
	TLSServerName string

	// RequireAD requires the Authenticated Data flag in responses,
	// indicating the resolver validated DNSSEC signatures. Pins
	// derived from unauthenticated DNS are only as trustworthy as the
	// network path, so this should stay on outside of tests.
	RequireAD bool

	// Timeout is the maximum duration for a DNS query.
	// Default: 5 seconds.
	Timeout time.Duration
}

// Resolver performs TLSA record lookups with optional DNSSEC validation
// and DNS-over-TLS support.
type Resolver struct {
	config *ResolverConfig
	client *dns.Client
	server string
}

// NewResolver creates a TLSA resolver, validating the configuration and
// applying defaults for unset fields.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, ErrResolverConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &dns.Client{Timeout: timeout}
	server := cfg.Server

	if cfg.UseTLS {
		client.Net = "tcp-tls"
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.TLSServerName != "" {
			tlsCfg.ServerName = cfg.TLSServerName
		}
		client.TLSConfig = tlsCfg
		if server != "" && !strings.Contains(server, ":") {
			server = server + ":" + defaultDoTPort
		}
	} else {
		client.Net = "udp"
		if server != "" && !strings.Contains(server, ":") {
			server = server + ":" + defaultDNSPort
		}
	}

	if server == "" {
		systemCfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrResolverConfig, err.Error())
		}
		if len(systemCfg.Servers) == 0 {
			return nil, fmt.Errorf("%w: no nameservers in /etc/resolv.conf", ErrResolverConfig)
		}
		port := systemCfg.Port
		if port == "" {
			port = defaultDNSPort
		}
		server = systemCfg.Servers[0] + ":" + port
	}

	return &Resolver{
		config: cfg,
		client: client,
		server: server,
	}, nil
}

// LookupTLSA queries DNS for TLSA records at "_<port>._tcp.<hostname>."
// per RFC 6698 Section 3. When RequireAD is set, the response must carry
// the Authenticated Data flag.
func (r *Resolver) LookupTLSA(ctx context.Context, hostname string, port uint16) ([]*TLSARecord, error) {
	if hostname == "" || strings.ContainsRune(hostname, 0) || len(hostname) > maxHostnameLength {
		return nil, ErrInvalidHostname
	}
	if port == 0 {
		return nil, ErrInvalidPort
	}

	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}
	qname := fmt.Sprintf("_%d._tcp.%s", port, hostname)

	msg := new(dns.Msg)
	msg.SetQuestion(qname, dns.TypeTLSA)
	msg.SetEdns0(4096, true) // DNSSEC OK bit
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, err.Error())
	}
	if resp == nil {
		return nil, ErrLookupFailed
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: rcode %s", ErrLookupFailed, dns.RcodeToString[resp.Rcode])
	}
	if r.config.RequireAD && !resp.AuthenticatedData {
		return nil, ErrDNSSECRequired
	}

	records := make([]*TLSARecord, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		tlsa, ok := rr.(*dns.TLSA)
		if !ok {
			continue
		}
		certData, err := hex.DecodeString(tlsa.Certificate)
		if err != nil {
			continue
		}
		records = append(records, &TLSARecord{
			Usage:        tlsa.Usage,
			Selector:     tlsa.Selector,
			MatchingType: tlsa.MatchingType,
			CertData:     certData,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoTLSARecords
	}
	return records, nil
}
