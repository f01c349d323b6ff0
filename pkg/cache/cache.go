// Package cache stores pipeline results keyed by content hashes.
//
// A schematic run is a pure function of its input network and options, so
// the [Runner] in package pipeline can skip every stage when the same pair
// was seen before. Backends:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [MemoryCache]: in-process LRU, for the API server
//   - [RedisCache]: shared across server instances
//
// [Open] picks a backend from a URL.
//
// [Runner]: github.com/matzehuels/transitmap/pkg/pipeline.Runner
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs for the entry types the pipeline writes.
const (
	TTLSchematic = 7 * 24 * time.Hour
	TTLArtifact  = 7 * 24 * time.Hour
)
