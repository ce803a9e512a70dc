// Package license resolves license keys to access entitlements.
//
// Resolution is a single call to an external validation service. The
// resolver fails open: any transport failure, timeout, or malformed
// response yields the free entitlement. Errors never escalate to pro,
// and they never block the request that triggered resolution.
package license

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for license resolution.
var (
	licenseResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_license_resolutions_total",
		Help: "Total license resolutions by resulting plan",
	}, []string{"plan"})

	licenseResolutionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_license_resolution_failures_total",
		Help: "Total license resolutions that failed open to the free plan",
	})
)

// Entitlement is the resolved access tier for a single request.
// It is derived per request and never persisted.
type Entitlement string

const (
	// EntitlementFree is the unlicensed tier.
	EntitlementFree Entitlement = "free"

	// EntitlementPro is the licensed tier.
	EntitlementPro Entitlement = "pro"
)

// KeyPredicate decides whether a license key is valid. The validation
// rule is pluggable policy: a format check, a remote lookup, or a
// subscription-status check are all acceptable implementations.
type KeyPredicate func(key string) bool

// keyFormat is the placeholder validation rule: keys of the form
// PRO-ABCDEFGH. Replace with a real provider (Lemon Squeezy, Gumroad,
// Stripe, Keygen) for production use.
var keyFormat = regexp.MustCompile(`^PRO-[A-Z0-9]{8}$`)

// FormatPredicate is the placeholder KeyPredicate backing the license
// stub server.
func FormatPredicate(key string) bool {
	return keyFormat.MatchString(key)
}

// validationResponse is the wire format of the validation service.
type validationResponse struct {
	OK   bool   `json:"ok"`
	Plan string `json:"plan"`
}

// Resolver resolves license keys against an external validation service.
type Resolver struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewResolver creates a resolver for the given validation endpoint
// (e.g. "https://license.example.com/api/license").
func NewResolver(endpoint string) (*Resolver, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("validation endpoint is required")
	}

	return &Resolver{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: log.With().Str("component", "license").Logger(),
	}, nil
}

// Resolve maps a license key and calling origin to an entitlement.
// It never returns an error: the free tier is the answer to every
// failure mode, including an empty or malformed key.
func (r *Resolver) Resolve(ctx context.Context, key, origin string) Entitlement {
	q := url.Values{}
	q.Set("key", key)
	q.Set("host", origin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return r.failOpen(err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return r.failOpen(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r.failOpen(fmt.Errorf("validation service status %d", resp.StatusCode))
	}

	var body validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return r.failOpen(err)
	}

	plan := EntitlementFree
	if body.OK && body.Plan == string(EntitlementPro) {
		plan = EntitlementPro
	}

	licenseResolutionsTotal.WithLabelValues(string(plan)).Inc()
	r.logger.Debug().
		Str("plan", string(plan)).
		Str("origin", origin).
		Msg("License resolved")

	return plan
}

// failOpen records a resolution failure and returns the free tier.
// Failing closed would deny free-tier service during a validator
// outage, so the free answer is deliberate.
func (r *Resolver) failOpen(err error) Entitlement {
	licenseResolutionFailuresTotal.Inc()
	licenseResolutionsTotal.WithLabelValues(string(EntitlementFree)).Inc()
	r.logger.Warn().Err(err).Msg("License validation failed, falling back to free")
	return EntitlementFree
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (r *Resolver) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}
