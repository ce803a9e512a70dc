package feedcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks client cache hits
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_client_cache_hits_total",
			Help: "Total number of client cache hits",
		},
	)

	// cacheMisses tracks client cache misses (including disabled-TTL reads)
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_client_cache_misses_total",
			Help: "Total number of client cache misses",
		},
	)

	// cacheErrors tracks swallowed cache operation errors
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_client_cache_errors_total",
			Help: "Total number of swallowed cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
