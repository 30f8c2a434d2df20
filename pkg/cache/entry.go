package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a cached upstream response. Entries are
// immutable once written; a refresh overwrites the whole entry.
type CacheEntry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Header holds the end-to-end response headers
	Header http.Header `json:"header"`

	// Body is the response body
	Body []byte `json:"body"`

	// StoredAt is when we cached this response
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// IsStale reports whether the entry is older than ttl.
// A zero ttl means entries never go stale.
func (e *CacheEntry) IsStale(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return e.Age() > ttl
}
