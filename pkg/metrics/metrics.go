// Package metrics provides the centralized Prometheus metrics registry
// for apicache. All metrics are defined in their producing packages
// (proxy, cache, upstream) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by apicache.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/proxy):
//   - apicache_requests_total{outcome} (Counter): Proxied requests by outcome (hit, miss, bypass, forbidden, error, canceled)
//   - apicache_request_duration_seconds (Histogram): End-to-end request duration
//   - apicache_coalesced_requests_total (Counter): Requests whose response was shared with a concurrent identical request
//
// Cache Metrics (pkg/cache):
//   - apicache_cache_hits_total{backend} (Counter): Cache hits by backend (leveldb, redis)
//   - apicache_cache_misses_total (Counter): Cache misses
//   - apicache_cache_errors_total{operation} (Counter): Cache operation errors (get, put)
//
// Upstream Metrics (pkg/upstream):
//   - apicache_upstream_requests_total{status} (Counter): Upstream responses by HTTP status
//   - apicache_upstream_errors_total{kind} (Counter): Upstream transport errors by kind (timeout, network)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(apicache_cache_hits_total[5m])) /
//   (sum(rate(apicache_cache_hits_total[5m])) + sum(rate(apicache_cache_misses_total[5m])))
//
//   # Upstream Calls Saved by Coalescing
//   rate(apicache_coalesced_requests_total[5m])
//
//   # Upstream Error Rate
//   rate(apicache_upstream_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(apicache_request_duration_seconds_bucket[5m]))
