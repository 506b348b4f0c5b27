package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Fallbacks for zero-valued construction. Model responses and embeddings
// are safe to serve for an hour; they only change when the prompt or the
// corpus does.
const (
	memoryDefaultTTL     = 1 * time.Hour
	memoryDefaultCleanup = 10 * time.Minute
)

// MemoryCache holds fingerprinted model responses and ranked results in
// process, with TTL eviction.
type MemoryCache struct {
	entries    *gocache.Cache
	defaultTTL time.Duration
}

// NewMemoryCache creates a memory cache. Non-positive durations fall back
// to the package defaults.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = memoryDefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = memoryDefaultCleanup
	}
	return &MemoryCache{
		entries:    gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached bytes for a fingerprint
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.entries.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores bytes under a fingerprint. A non-positive TTL means the
// default TTL, never "keep forever": every entry must age out.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.entries.Set(key, value, ttl)
	return nil
}

// Delete removes one entry
func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}
