// Package profilecache defines the cache contract used to short-circuit
// repeated profile lookups for the same access token. Values are opaque
// encoded profiles; keys are token digests computed by the caller, so a raw
// credential never reaches a cache backend.
package profilecache

import (
	"context"
	"time"
)

// Cache stores encoded profiles keyed by a token digest. Implementations
// must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value for key, or (nil, nil) when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key for at most ttl. A non-positive ttl is an
	// implementation-defined short default, never "forever".
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
