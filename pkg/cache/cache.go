// Package cache provides byte-level caching for pipeline stages.
//
// The pipeline caches extracted variant tables and rendered artifacts under
// keys derived from content hashes, so re-running an analysis after editing
// one experiment only re-reads that experiment's libraries.
//
// # Implementations
//
//   - [FileCache]: one JSON envelope per key under a directory (CLI)
//   - [NullCache]: never stores anything (--no-cache, tests)
//
// # Keys
//
// A [Keyer] turns stage inputs into keys. [DefaultKeyer] hashes the inputs
// with SHA-256; [ScopedKeyer] prefixes another keyer's keys.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources.
	Close() error
}

// TTLs per cached stage.
const (
	// TTLTable is the lifetime of an extracted library table. Keys include
	// the input file's content hash, so stale entries are never served;
	// the TTL only bounds disk usage.
	TTLTable = 30 * 24 * time.Hour

	// TTLArtifact is the lifetime of rendered artifacts.
	TTLArtifact = 7 * 24 * time.Hour
)
