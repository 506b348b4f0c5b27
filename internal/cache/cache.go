package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for response caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Fingerprint generates a content-addressed cache key from the normalized
// parts of an expensive call: provider, model, operation, and the request
// payload. Identical requests always map to the same key.
func Fingerprint(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "masthead:v1:" + hex.EncodeToString(hash[:])
}
