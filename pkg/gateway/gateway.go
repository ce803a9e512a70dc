// Package gateway implements the licensed access gateway pipeline:
// license resolution, tier quota enforcement, the upstream call,
// rate-limit translation, and cache-directive computation.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feedkit/x-feed-gateway/pkg/license"
	"github.com/feedkit/x-feed-gateway/pkg/upstream"
)

// Prometheus metrics for gateway requests.
var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_gateway_requests_total",
		Help: "Total gateway requests by resource class, plan, and status",
	}, []string{"class", "plan", "status"})

	gatewayQuotaClampsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_gateway_quota_clamps_total",
		Help: "Total listing requests whose result count was clamped, by plan",
	}, []string{"plan"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_gateway_request_duration_seconds",
		Help:    "Gateway request duration in seconds by resource class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"class"})
)

// defaultRetryAfterSeconds is used when upstream rate-limits without a
// retry-after header.
const defaultRetryAfterSeconds = 60

// ProxyRequest is the inbound request descriptor.
type ProxyRequest struct {
	// ResourcePath is the upstream-relative path, e.g. /users/42/tweets.
	ResourcePath string

	// LicenseKey is the caller's license key, possibly empty.
	LicenseKey string

	// CallerOrigin is the calling origin, possibly empty.
	CallerOrigin string

	// QueryParams are forwarded to upstream verbatim. The reserved
	// control parameters (path, license, ttl) are never present here.
	QueryParams url.Values

	// TTLOverrideSeconds, when positive, replaces the per-class default
	// cache directive.
	TTLOverrideSeconds int
}

// ProxyResponse is the pipeline result.
type ProxyResponse struct {
	// Status is the HTTP-equivalent status code.
	Status int

	// Body is the response payload, passed through uninterpreted on
	// success and structured on gateway-produced errors.
	Body json.RawMessage

	// CacheTTLSeconds is the advisory edge-cache directive. Zero means
	// no directive; it is only set on success.
	CacheTTLSeconds int

	// Entitlement is the resolved tier, echoed out-of-band.
	Entitlement license.Entitlement

	// RetryAfterSeconds is present only on upstream rate-limit.
	RetryAfterSeconds int
}

// LicenseResolver resolves a license key + origin to an entitlement.
type LicenseResolver interface {
	Resolve(ctx context.Context, key, origin string) license.Entitlement
}

// UpstreamCaller performs the authenticated upstream call.
type UpstreamCaller interface {
	Call(ctx context.Context, resourcePath string, params url.Values) (*upstream.Result, error)
}

// Handler orchestrates the gateway pipeline. It is stateless per
// request: no cross-request memory, no retries, a single upstream
// attempt per inbound call.
type Handler struct {
	resolver LicenseResolver
	upstream UpstreamCaller
	logger   zerolog.Logger
}

// NewHandler creates a gateway handler.
func NewHandler(resolver LicenseResolver, upstreamClient UpstreamCaller) (*Handler, error) {
	if resolver == nil {
		return nil, fmt.Errorf("license resolver is required")
	}
	if upstreamClient == nil {
		return nil, fmt.Errorf("upstream client is required")
	}

	return &Handler{
		resolver: resolver,
		upstream: upstreamClient,
		logger:   log.With().Str("component", "gateway").Logger(),
	}, nil
}

// Handle runs the pipeline for one request.
func (h *Handler) Handle(ctx context.Context, req ProxyRequest) ProxyResponse {
	class := ClassifyPath(req.ResourcePath)
	policy := PolicyFor(class)

	startTime := time.Now()
	defer func() {
		gatewayRequestDuration.WithLabelValues(string(class)).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: entitlement. Resolution fails open to free and never
	// errors, so the pipeline continues unconditionally.
	plan := h.resolver.Resolve(ctx, req.LicenseKey, req.CallerOrigin)

	// Step 2: quota enforcement, the single tier policy point.
	params := cloneValues(req.QueryParams)
	if policy.HasQuota() {
		h.clampResults(params, policy, plan)
	}

	// Step 3: one upstream attempt. The caller owns retries.
	result, err := h.upstream.Call(ctx, req.ResourcePath, params)
	if err != nil {
		gatewayRequestsTotal.WithLabelValues(string(class), string(plan), "bad_gateway").Inc()
		h.logger.Error().
			Err(err).
			Str("path", req.ResourcePath).
			Str("class", string(class)).
			Msg("Upstream transport failure")
		return ProxyResponse{
			Status:      http.StatusBadGateway,
			Body:        errorBody(err.Error()),
			Entitlement: plan,
		}
	}

	gatewayRequestsTotal.WithLabelValues(string(class), string(plan), strconv.Itoa(result.StatusCode)).Inc()

	// Step 4: rate-limit translation, distinct from generic failure.
	if result.StatusCode == http.StatusTooManyRequests {
		return h.rateLimited(req.ResourcePath, plan, result)
	}

	resp := ProxyResponse{
		Status:      result.StatusCode,
		Body:        result.Body,
		Entitlement: plan,
	}

	// Step 5: cache directive, success only. Error responses (429
	// included) never carry one.
	if result.StatusCode >= 200 && result.StatusCode < 300 {
		ttl := int(policy.DefaultTTL.Seconds())
		if req.TTLOverrideSeconds > 0 {
			ttl = req.TTLOverrideSeconds
		}
		resp.CacheTTLSeconds = ttl
	}

	h.logger.Debug().
		Str("path", req.ResourcePath).
		Str("class", string(class)).
		Str("plan", string(plan)).
		Int("status", result.StatusCode).
		Int("ttl", resp.CacheTTLSeconds).
		Dur("duration", time.Since(startTime)).
		Msg("Gateway request completed")

	return resp
}

// clampResults rewrites the result-count parameter in place. Free
// callers always get the free limit, whatever they asked for; pro
// callers are capped at the pro limit.
func (h *Handler) clampResults(params url.Values, policy Policy, plan license.Entitlement) {
	requested := policy.DefaultResults
	if v := params.Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			requested = n
		}
	}

	effective := policy.FreeLimit
	if plan == license.EntitlementPro {
		effective = requested
		if effective > policy.ProLimit {
			effective = policy.ProLimit
		}
	}

	if effective != requested {
		gatewayQuotaClampsTotal.WithLabelValues(string(plan)).Inc()
		h.logger.Debug().
			Str("plan", string(plan)).
			Int("requested", requested).
			Int("effective", effective).
			Msg("Result count clamped")
	}

	params.Set("max_results", strconv.Itoa(effective))
}

// rateLimited translates an upstream 429 into the caller-facing shape:
// a structured rate_limited body plus retry-after guidance.
func (h *Handler) rateLimited(path string, plan license.Entitlement, result *upstream.Result) ProxyResponse {
	retryAfter := defaultRetryAfterSeconds
	if v := result.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			retryAfter = n
		}
	}

	detail := "Too Many Requests"
	var upstreamBody struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(result.Body, &upstreamBody); err == nil && upstreamBody.Detail != "" {
		detail = upstreamBody.Detail
	}

	h.logger.Error().
		Str("path", path).
		Int("retry_after", retryAfter).
		Msg("Upstream rate limited")

	body, _ := json.Marshal(map[string]any{
		"error":      "rate_limited",
		"detail":     detail,
		"retryAfter": retryAfter,
	})

	return ProxyResponse{
		Status:            http.StatusTooManyRequests,
		Body:              body,
		Entitlement:       plan,
		RetryAfterSeconds: retryAfter,
	}
}

// errorBody builds the generic gateway error payload.
func errorBody(description string) json.RawMessage {
	body, _ := json.Marshal(map[string]string{"error": description})
	return body
}

// cloneValues copies query parameters so clamping never mutates the
// caller's map.
func cloneValues(src url.Values) url.Values {
	dst := make(url.Values, len(src))
	for key, values := range src {
		dst[key] = append([]string(nil), values...)
	}
	return dst
}
