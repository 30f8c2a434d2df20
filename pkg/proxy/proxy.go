// Package proxy implements the caching reverse proxy: request parsing,
// allowlist enforcement, cache lookups, and single-flight coordination
// of upstream fetches.
//
// The inbound URL shape is /<upstream-host>/<upstream-path>?<query>,
// proxied to https://<upstream-host>/<upstream-path>?<query>. Requests
// for allowlisted hosts outside the cacheable prefixes pass straight
// through; cacheable requests are served from the store when a fresh
// entry exists, and otherwise trigger at most one upstream call per
// key, shared by every concurrent waiter.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/justin8/apicache/pkg/cache"
	"github.com/justin8/apicache/pkg/logging"
	"github.com/justin8/apicache/pkg/policy"
	"github.com/justin8/apicache/pkg/upstream"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Handler is the proxy HTTP handler.
type Handler struct {
	store     cache.Store
	upstream  *upstream.Client
	allowlist policy.Allowlist
	rules     *policy.Rules
	flight    singleflight.Group

	entryTTL     time.Duration
	failClosed   bool
	fetchTimeout time.Duration
	logger       zerolog.Logger
}

// Config holds the proxy configuration.
type Config struct {
	// Store persists cache entries.
	Store cache.Store

	// Upstream performs the outbound fetches.
	Upstream *upstream.Client

	// Allowlist restricts which hosts may be proxied.
	Allowlist policy.Allowlist

	// Rules decide cacheability and store vetting.
	Rules *policy.Rules

	// EntryTTL bounds entry freshness; zero means entries never go
	// stale.
	EntryTTL time.Duration

	// FailClosed turns cache read errors into 500 responses instead of
	// falling through to the upstream.
	FailClosed bool

	// FetchTimeout bounds the detached leader fetch. It should match
	// the upstream client timeout.
	FetchTimeout time.Duration
}

// New creates a proxy handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if cfg.Rules == nil {
		cfg.Rules = policy.NewRules(nil)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	return &Handler{
		store:        cfg.Store,
		upstream:     cfg.Upstream,
		allowlist:    cfg.Allowlist,
		rules:        cfg.Rules,
		entryTTL:     cfg.EntryTTL,
		failClosed:   cfg.FailClosed,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logging.NewLogger("proxy"),
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodGet {
		requestsTotal.WithLabelValues("error").Inc()
		w.Header().Set("Allow", http.MethodGet)
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	host, path, ok := splitTarget(r.URL.EscapedPath())
	if !ok {
		requestsTotal.WithLabelValues("error").Inc()
		h.writeError(w, http.StatusBadRequest, "missing upstream host in path")
		return
	}

	key, err := cache.ParseKey(host, path, r.URL.RawQuery)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		h.writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	logger := h.logger.With().
		Str("host", key.Host).
		Str("path", key.Path).
		Logger()

	if !h.allowlist.Permits(key.Host) {
		logger.Warn().Msg("Domain not allowed")
		requestsTotal.WithLabelValues("forbidden").Inc()
		h.writeError(w, http.StatusForbidden, "domain not allowed")
		return
	}

	if !h.rules.Cacheable(key.Host, key.Path) {
		h.serveBypass(w, r, key, logger)
		return
	}

	entry, err := h.store.Get(r.Context(), key)
	switch {
	case err == nil:
		if !entry.IsStale(h.entryTTL) {
			logger.Info().
				Int("status", entry.StatusCode).
				Dur("age", entry.Age()).
				Msg("Cache hit")
			requestsTotal.WithLabelValues("hit").Inc()
			h.writeResponse(w, entry.StatusCode, entry.Header, entry.Body, "HIT")
			return
		}
		logger.Debug().
			Dur("age", entry.Age()).
			Dur("ttl", h.entryTTL).
			Msg("Cache entry stale, refetching")

	case errors.Is(err, cache.ErrCacheMiss):
		logger.Debug().Str("cache_key", key.String()).Msg("Cache miss")

	default:
		if h.failClosed {
			logger.Error().Err(err).Msg("Cache read failed")
			requestsTotal.WithLabelValues("error").Inc()
			h.writeError(w, http.StatusInternalServerError, "cache unavailable")
			return
		}
		logger.Warn().Err(err).Msg("Cache read failed, proceeding to upstream")
	}

	h.serveMiss(w, r, key, logger)
}

// serveBypass proxies a non-cacheable request straight through, one
// upstream call per request.
func (h *Handler) serveBypass(w http.ResponseWriter, r *http.Request, key cache.CacheKey, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(r.Context(), h.fetchTimeout)
	defer cancel()

	result, err := h.upstream.Fetch(ctx, upstreamURL(key))
	if err != nil {
		h.writeFetchError(w, err, logger)
		return
	}

	logger.Info().Int("status", result.StatusCode).Msg("Proxied without caching")
	requestsTotal.WithLabelValues("bypass").Inc()
	h.writeResponse(w, result.StatusCode, result.Header, result.Body, "BYPASS")
}

// fetchOutcome is what a single-flight round delivers to its waiters.
type fetchOutcome struct {
	result *upstream.Result
	stored bool
}

// serveMiss runs the single-flight round for key. The first caller
// becomes the leader and executes the fetch; concurrent callers wait on
// the same channel and share the leader's outcome, success or failure.
func (h *Handler) serveMiss(w http.ResponseWriter, r *http.Request, key cache.CacheKey, logger zerolog.Logger) {
	ch := h.flight.DoChan(key.String(), func() (interface{}, error) {
		return h.fetchAndStore(key)
	})

	select {
	case res := <-ch:
		if res.Shared {
			coalescedTotal.Inc()
		}
		if res.Err != nil {
			h.writeFetchError(w, res.Err, logger)
			return
		}

		outcome := res.Val.(*fetchOutcome)
		logger.Info().
			Int("status", outcome.result.StatusCode).
			Bool("stored", outcome.stored).
			Bool("shared", res.Shared).
			Msg("Cache miss served from upstream")
		requestsTotal.WithLabelValues("miss").Inc()
		h.writeResponse(w, outcome.result.StatusCode, outcome.result.Header, outcome.result.Body, "MISS")

	case <-r.Context().Done():
		// This waiter is gone; the leader keeps running on its own
		// context so the round still completes for everyone else.
		logger.Debug().Msg("Client disconnected while waiting for fetch")
		requestsTotal.WithLabelValues("canceled").Inc()
	}
}

// fetchAndStore is the leader function of a single-flight round: one
// upstream fetch, the store decision, and the cache write. It runs on a
// detached context bounded only by the fetch timeout, so client
// disconnects never cancel it.
func (h *Handler) fetchAndStore(key cache.CacheKey) (*fetchOutcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.fetchTimeout)
	defer cancel()

	result, err := h.upstream.Fetch(ctx, upstreamURL(key))
	if err != nil {
		// Shared by every waiter of this round. Nothing is cached, so
		// the next request elects a fresh leader.
		return nil, err
	}

	if !h.rules.ShouldStore(key.Host, key.Path, result.StatusCode, result.Body) {
		return &fetchOutcome{result: result}, nil
	}

	entry := &cache.CacheEntry{
		StatusCode: result.StatusCode,
		Header:     result.Header,
		Body:       result.Body,
		StoredAt:   time.Now(),
	}
	if err := h.store.Put(ctx, key, entry); err != nil {
		// Durability is part of the contract: a response we could not
		// persist is reported as a failure, not served as a phantom hit.
		return nil, fmt.Errorf("store response: %w", err)
	}

	return &fetchOutcome{result: result, stored: true}, nil
}

// upstreamURL rebuilds the outbound URL from the canonical key.
func upstreamURL(key cache.CacheKey) string {
	u := "https://" + key.Host + key.Path
	if q := key.Query.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// splitTarget splits an escaped request path "/<host>/<rest>" into the
// upstream host and "/<rest>". A request without a host segment is not
// proxyable.
func splitTarget(escapedPath string) (host, path string, ok bool) {
	trimmed := strings.TrimPrefix(escapedPath, "/")
	if trimmed == "" {
		return "", "", false
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		if i == 0 {
			return "", "", false
		}
		return trimmed[:i], trimmed[i:], true
	}
	return trimmed, "/", true
}
