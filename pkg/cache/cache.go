// Package cache stores pipeline outputs keyed by schema and input content.
//
// The CLI caches the JSON output of normalize and denormalize runs so that
// repeating a run over the same input and schema configs skips the engine.
// Backends implement [Cache]:
//
//   - [NullCache] stores nothing (caching disabled)
//   - [FileCache] stores entries as JSON files under a directory
//   - [RedisCache] stores entries in Redis
//   - [SQLiteCache] stores entries in a local SQLite database
//
// Keys come from a [Keyer]. The default keyer hashes its components, and
// [ScopedKeyer] prefixes every key with a namespace.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value cache with optional expiry.
type Cache interface {
	// Get returns the cached data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
