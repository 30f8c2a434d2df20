// Package cache provides persistent caching of upstream API responses.
//
// A CacheKey canonicalizes the upstream host, escaped path, and query
// parameters so that semantically identical requests map to the same
// entry regardless of parameter order. A CacheEntry snapshots the full
// response (status, headers, body) and is stored through the Store
// interface, with two backends:
//
//   - LevelDBStore: embedded, durable, synchronous writes (default)
//   - RedisStore: external Redis, optional server-side TTL eviction
//
// # Basic Usage
//
//	store, err := cache.OpenLevelDB("/data/cache.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	key, err := cache.ParseKey("api.twelvedata.com", "/eod", "symbol=AAPL")
//	if err != nil {
//		return err
//	}
//
//	entry, err := store.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from upstream
//	}
//
// # HTTP Response Caching
//
//	// Snapshot an HTTP response into a cache entry
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//
//	// Store in cache
//	if err := store.Put(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - apicache_cache_hits_total{backend} - Cache hits
//   - apicache_cache_misses_total - Cache misses
//   - apicache_cache_errors_total{operation} - Cache operation errors
//
// # Consistency
//
// Both backends commit entries atomically: a Get concurrent with a Put
// observes the previous entry or the new one, never a torn mixture.
// LevelDB writes are synchronous, so an acknowledged Put survives a
// process crash. Freshness is the caller's concern; CacheEntry.IsStale
// compares the entry age against a TTL.
package cache
