// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dnspin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver_NilConfig(t *testing.T) {
	_, err := NewResolver(nil)
	assert.ErrorIs(t, err, ErrResolverConfig)
}

func TestNewResolver_ExplicitServerGetsDefaultPort(t *testing.T) {
	r, err := NewResolver(&ResolverConfig{Server: "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:53", r.server)
	assert.Equal(t, "udp", r.client.Net)
}

func TestNewResolver_ServerWithPortKept(t *testing.T) {
	r, err := NewResolver(&ResolverConfig{Server: "192.0.2.1:5353"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:5353", r.server)
}

func TestNewResolver_DoTDefaults(t *testing.T) {
	r, err := NewResolver(&ResolverConfig{
		Server:        "192.0.2.1",
		UseTLS:        true,
		TLSServerName: "dns.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:853", r.server)
	assert.Equal(t, "tcp-tls", r.client.Net)
	require.NotNil(t, r.client.TLSConfig)
	assert.Equal(t, "dns.example.com", r.client.TLSConfig.ServerName)
}

func TestNewResolver_TimeoutDefault(t *testing.T) {
	r, err := NewResolver(&ResolverConfig{Server: "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, r.client.Timeout)

	r, err = NewResolver(&ResolverConfig{Server: "192.0.2.1", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Second, r.client.Timeout)
}

func TestLookupTLSA_InputValidation(t *testing.T) {
	r, err := NewResolver(&ResolverConfig{Server: "192.0.2.1"})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = r.LookupTLSA(ctx, "", 443)
	assert.ErrorIs(t, err, ErrInvalidHostname)

	_, err = r.LookupTLSA(ctx, "host\x00name", 443)
	assert.ErrorIs(t, err, ErrInvalidHostname)

	_, err = r.LookupTLSA(ctx, strings.Repeat("a", 300), 443)
	assert.ErrorIs(t, err, ErrInvalidHostname)

	_, err = r.LookupTLSA(ctx, "example.com", 0)
	assert.ErrorIs(t, err, ErrInvalidPort)
}
