// Package upstream performs the outbound half of the proxy: single
// bounded GET requests against the metered APIs. It owns the HTTP
// client, the request headers, and the sanitization of response
// headers; it deliberately does not retry, so a cache miss costs at
// most one upstream call.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/justin8/apicache/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apicache_upstream_requests_total",
		Help: "Total upstream requests by status code",
	}, []string{"status"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apicache_upstream_errors_total",
		Help: "Total upstream transport errors by kind",
	}, []string{"kind"})
)

// Result is a fully-read upstream response with hop-by-hop headers
// removed. Non-2xx statuses are Results too; the caller decides how to
// relay them.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client fetches responses from upstream APIs.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// Config holds the fetcher configuration.
type Config struct {
	// Timeout bounds one round trip including reading the body.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "apicache/1.0",
	}
}

// New creates an upstream client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "apicache/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logging.NewLogger("upstream"),
	}
}

// Fetch performs one GET against rawURL and reads the body fully.
// Transport failures and timeouts return *Error; every received HTTP
// response, whatever its status, is a Result.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fetchError(rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fetchError(rawURL, err)
	}

	header := resp.Header.Clone()
	removeHopByHop(header)

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Upstream response")

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// fetchError classifies, counts, and wraps a transport failure.
func (c *Client) fetchError(rawURL string, err error) *Error {
	kind := classify(err)
	upstreamErrorsTotal.WithLabelValues(string(kind)).Inc()

	c.logger.Error().
		Err(err).
		Str("url", rawURL).
		Str("kind", string(kind)).
		Msg("Upstream request failed")

	return &Error{
		URL:  rawURL,
		Kind: kind,
		Err:  err,
	}
}
