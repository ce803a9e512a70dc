// Package metrics provides the centralized Prometheus registry for the
// feed gateway. All metrics are defined in their respective packages
// (gateway, license, upstream, ratelimit, feedcache, feedclient) to
// maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the feed gateway.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Gateway Metrics (pkg/gateway):
//   - feed_gateway_requests_total{class, plan, status} (Counter): Gateway requests by resource class, plan, and outcome
//   - feed_gateway_quota_clamps_total{plan} (Counter): Listing requests whose result count was clamped
//   - feed_gateway_request_duration_seconds{class} (Histogram): Gateway request duration by resource class
//
// License Metrics (pkg/license):
//   - feed_license_resolutions_total{plan} (Counter): License resolutions by resulting plan
//   - feed_license_resolution_failures_total (Counter): Resolutions that failed open to the free plan
//
// Upstream Metrics (pkg/upstream):
//   - feed_upstream_requests_total{path, status} (Counter): Upstream API requests by path and HTTP status
//   - feed_upstream_request_duration_seconds{path} (Histogram): Upstream request duration by path
//   - feed_upstream_errors_total{class} (Counter): Upstream failures by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - feed_upstream_rate_limit_remaining (Gauge): Requests remaining in the current upstream window
//   - feed_upstream_rate_limit_exhausted_total (Counter): Windows observed fully exhausted
//
// Client Cache Metrics (pkg/feedcache):
//   - feed_client_cache_hits_total (Counter): Cache hits
//   - feed_client_cache_misses_total (Counter): Cache misses
//   - feed_client_cache_errors_total{operation} (Counter): Cache operation errors
//
// Feed Load Metrics (pkg/feedclient):
//   - feed_client_loads_total{result} (Counter): Feed loads by result
//   - feed_client_load_duration_seconds (Histogram): Feed load duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(feed_client_cache_hits_total[5m])) /
//   (sum(rate(feed_client_cache_hits_total[5m])) + sum(rate(feed_client_cache_misses_total[5m])))
//
//   # Rate Limit Headroom
//   feed_upstream_rate_limit_remaining < 5
//
//   # Gateway Error Rate
//   sum(rate(feed_gateway_requests_total{status!~"2.."}[5m]))
//
//   # P95 Gateway Latency
//   histogram_quantile(0.95, rate(feed_gateway_request_duration_seconds_bucket[5m]))
//
//   # Clamp Rate by Plan
//   rate(feed_gateway_quota_clamps_total[5m])
