// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spki

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// cacheSubdir is the directory under the user cache dir that holds
// persisted digest files.
const cacheSubdir = "certpin"

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Identifier names the persisted cache file. When empty the cache
	// is memory-only and nothing is written to disk.
	Identifier string

	// Dir overrides the directory used for persistence. When empty,
	// os.UserCacheDir()/certpin is used.
	Dir string

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache memoizes SPKI digests by public-key identity. It is safe for
// concurrent use: reads of cached entries take a shared lock, and a race
// computing the same digest twice is harmless since the result is
// identical. When constructed with an identifier, the cache is loaded
// from and written back to a JSON file so digests survive process
// restarts; every persistence failure degrades silently to memory-only
// operation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Digest

	path     string // empty means memory-only
	logger   *slog.Logger
	computes atomic.Int64
}

// NewCache creates a digest cache. A nil config yields a memory-only
// cache. When an identifier is configured, any previously persisted
// entries are loaded; corrupt or unreadable files are ignored and the
// cache starts fresh.
func NewCache(cfg *CacheConfig) *Cache {
	c := &Cache{
		entries: make(map[string]Digest),
		logger:  slog.Default(),
	}
	if cfg == nil {
		return c
	}
	if cfg.Logger != nil {
		c.logger = cfg.Logger
	}
	c.logger = c.logger.With("component", "spki_cache")

	if cfg.Identifier != "" {
		dir := cfg.Dir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				c.logger.Debug("no user cache dir, cache is memory-only", "error", err)
				return c
			}
			dir = filepath.Join(base, cacheSubdir)
		}
		c.path = filepath.Join(dir, cfg.Identifier+".json")
		c.load()
	}
	return c
}

// Hash returns the SPKI digest for the certificate's public key,
// computing and memoizing it on first sight of the key.
func (c *Cache) Hash(cert *x509.Certificate) Digest {
	key, err := keyIdentity(cert.RawSubjectPublicKeyInfo)
	if err != nil {
		// A key the parser cannot identify still hashes
		// deterministically; it just never caches.
		c.computes.Add(1)
		return Compute(cert)
	}

	c.mu.RLock()
	d, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return d
	}

	c.computes.Add(1)
	d = Compute(cert)

	c.mu.Lock()
	c.entries[key] = d
	c.mu.Unlock()

	c.persist()
	return d
}

// Len reports the number of distinct public keys cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// load reads the persisted cache file, if any. Entries that fail to
// decode are skipped.
func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Debug("ignoring corrupt cache file", "path", c.path, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for encKey, hexDigest := range stored {
		key, err := base64.StdEncoding.DecodeString(encKey)
		if err != nil {
			continue
		}
		raw, err := hex.DecodeString(hexDigest)
		if err != nil || len(raw) != len(Digest{}) {
			continue
		}
		var d Digest
		copy(d[:], raw)
		c.entries[string(key)] = d
	}
}

// persist writes a snapshot of the cache to disk. Failures are logged
// at debug and otherwise ignored.
func (c *Cache) persist() {
	if c.path == "" {
		return
	}

	c.mu.RLock()
	stored := make(map[string]string, len(c.entries))
	for key, d := range c.entries {
		stored[base64.StdEncoding.EncodeToString([]byte(key))] = d.String()
	}
	c.mu.RUnlock()

	data, err := json.Marshal(stored)
	if err != nil {
		c.logger.Debug("cache serialization failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		c.logger.Debug("cache dir creation failed", "path", c.path, "error", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		c.logger.Debug("cache write failed", "path", c.path, "error", err)
	}
}
