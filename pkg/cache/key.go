package cache

import (
	"fmt"
	"net/url"
	"strings"
)

// CacheKey identifies a cached upstream response. Two requests that
// differ only in query parameter order map to the same key.
type CacheKey struct {
	// Host is the upstream host, lowercased.
	Host string

	// Path is the upstream path in escaped form, with a leading slash.
	Path string

	// Query holds the decoded query parameters.
	Query url.Values
}

// ParseKey derives the cache key for an inbound request. The path is
// taken in escaped form; the raw query is decoded with url.ParseQuery,
// and a malformed encoding is reported to the caller.
func ParseKey(host, escapedPath, rawQuery string) (CacheKey, error) {
	if host == "" {
		return CacheKey{}, fmt.Errorf("host is required")
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse query: %w", err)
	}

	if !strings.HasPrefix(escapedPath, "/") {
		escapedPath = "/" + escapedPath
	}

	return CacheKey{
		Host:  strings.ToLower(host),
		Path:  escapedPath,
		Query: query,
	}, nil
}

// String generates a deterministic cache key string.
// Format: <host>|<escaped-path>|<encoded-query>
//
// url.Values.Encode sorts parameter names and percent-encodes values,
// so the separator cannot occur inside a component and semantically
// identical requests collapse to one key. Repeated parameter names keep
// their original value order.
//
// Example:
//
//	api.twelvedata.com|/eod|apikey=k&symbol=AAPL
func (k CacheKey) String() string {
	return k.Host + "|" + k.Path + "|" + k.Query.Encode()
}
