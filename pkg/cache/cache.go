// Package cache implements the Cache Layer (C3): a short-TTL key-value
// cache of last-fetched normalized payloads per feed source.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the default cache lifetime per source (spec.md §4.3).
const DefaultTTL = 900 * time.Second

// Cache is the consumed boundary interface: both Get and SetEx may
// fail, and callers MUST degrade to a live fetch rather than error when
// they do (spec.md §4.3, §6).
type Cache interface {
	// Get returns the cached bytes and true on a hit. A miss, or any
	// underlying failure, returns (nil, false) — never an error.
	Get(ctx context.Context, key string) ([]byte, bool)
	// SetEx stores value under key with the given TTL. Failures are
	// swallowed by the implementation; callers never need to check.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Key builds the canonical cache key for a source, matching the format
// fixed by original_source's WatchtowerProvider.get_cache_key().
func Key(sourceID string) string {
	return "watchtower:cache:" + sourceID
}
