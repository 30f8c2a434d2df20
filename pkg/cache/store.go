package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the persistence backend for cache entries.
//
// Implementations must make Put atomic: a concurrent Get observes
// either the previous entry or the new one, never a mixture, and a Put
// that returns an error leaves no partial entry behind.
type Store interface {
	// Get retrieves the entry for key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)

	// Put stores the entry under key, replacing any previous entry.
	Put(ctx context.Context, key CacheKey, entry *CacheEntry) error

	// Close releases the backend resources.
	Close() error
}
