// Package upstream provides the authenticated HTTP client for the
// X (Twitter) API v2.
//
// The client surfaces upstream status, headers, and body uninterpreted.
// Non-2xx statuses are normal results for the gateway pipeline to
// interpret; only transport-level failure (DNS, connection reset,
// timeout) is an error.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production X API v2 base URL.
const DefaultBaseURL = "https://api.twitter.com/2"

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_requests_total",
		Help: "Total upstream API requests by path and status",
	}, []string{"path", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_upstream_request_duration_seconds",
		Help:    "Upstream API request duration in seconds by path",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_upstream_errors_total",
		Help: "Total upstream failures by error class",
	}, []string{"class"})
)

// Result is an uninterpreted upstream response. Body always holds valid
// JSON: a body that fails to parse degrades to an empty object.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// RateObserver receives upstream response headers after every call.
// Implementations must be non-blocking best-effort observers.
type RateObserver interface {
	Observe(ctx context.Context, path string, header http.Header)
}

// Config holds the upstream client configuration.
type Config struct {
	// BaseURL is the upstream API base (default: DefaultBaseURL).
	BaseURL string

	// BearerToken is the service credential attached to every request.
	// It is never exposed to callers.
	BearerToken string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// Observer, when set, receives response headers after each call.
	Observer RateObserver
}

// Client performs authenticated calls against the upstream API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	observer   RateObserver
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		token:    cfg.BearerToken,
		observer: cfg.Observer,
		logger:   log.With().Str("component", "upstream").Logger(),
	}, nil
}

// Call performs a single GET against the upstream resource path with the
// given query parameters. There is exactly one attempt per call; the
// caller owns any retry policy.
func (c *Client) Call(ctx context.Context, resourcePath string, params url.Values) (*Result, error) {
	target := c.baseURL + resourcePath
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(resourcePath).Observe(time.Since(startTime).Seconds())

	if err != nil {
		upstreamRequestsTotal.WithLabelValues(resourcePath, "network_error").Inc()
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		c.logger.Error().Err(err).Str("path", resourcePath).Msg("Upstream request failed")
		return nil, &Error{
			Class:   ErrorClassNetwork,
			Message: "request to " + resourcePath + " failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if c.observer != nil {
		c.observer.Observe(ctx, resourcePath, resp.Header)
	}

	upstreamRequestsTotal.WithLabelValues(resourcePath, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if class := ClassifyStatus(resp.StatusCode); class != "" {
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Status and headers already arrived; degrade the body instead
		// of failing the whole call.
		c.logger.Warn().Err(err).Str("path", resourcePath).Msg("Failed to read upstream body")
		body = nil
	}

	if !json.Valid(body) {
		if len(body) > 0 {
			c.logger.Warn().
				Str("path", resourcePath).
				Int("status", resp.StatusCode).
				Msg("Upstream body is not valid JSON, degrading to empty object")
		}
		body = []byte("{}")
	}

	c.logger.Debug().
		Str("path", resourcePath).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Upstream call completed")

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       json.RawMessage(body),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
