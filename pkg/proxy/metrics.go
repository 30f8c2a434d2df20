package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal tracks proxied requests by outcome
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicache_requests_total",
			Help: "Total proxied requests by outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "bypass", "forbidden", "error", "canceled"
	)

	// requestDuration tracks end-to-end request latency
	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apicache_request_duration_seconds",
			Help:    "Proxied request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	// coalescedTotal tracks responses shared between concurrent
	// requests for the same key
	coalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apicache_coalesced_requests_total",
			Help: "Total requests whose response was shared with a concurrent identical request",
		},
	)
)
