// Package feedclient orchestrates the client-side fetch pipeline:
// author lookup, timeline listing, response caching, and normalization
// into display-ready feed items.
//
// Both fetch steps go through the access gateway, never to the upstream
// API directly, so the client needs no credentials. A load is
// all-or-nothing: any failed step aborts with a single error and no
// partial feed.
package feedclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feedkit/x-feed-gateway/pkg/feedcache"
	"github.com/feedkit/x-feed-gateway/pkg/gateway"
	"github.com/feedkit/x-feed-gateway/pkg/license"
	"github.com/feedkit/x-feed-gateway/pkg/timeline"
)

// Prometheus metrics for feed loads.
var (
	clientLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_client_loads_total",
		Help: "Total feed loads by result",
	}, []string{"result"})

	clientLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_client_load_duration_seconds",
		Help:    "Feed load duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})
)

var (
	// ErrUserNotFound indicates the author lookup succeeded but carried
	// no user record.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPosts indicates the timeline listing succeeded but carried
	// no post data.
	ErrNoPosts = errors.New("no posts found")
)

// Display count bounds. Requests outside the range are clamped, not
// rejected.
const (
	minDisplayCount = 1
	maxDisplayCount = 100
)

// LoadOptions configures a single feed load.
type LoadOptions struct {
	// Username is the author handle to load, without the @.
	Username string

	// DisplayCount is the number of items to keep after normalization,
	// clamped to [1, 100].
	DisplayCount int

	// CacheTTL bounds the age of acceptable cached responses. Zero or
	// negative disables the cache for this load.
	CacheTTL time.Duration

	// LicenseKey is forwarded to the gateway, possibly empty.
	LicenseKey string
}

// Feed is a fully loaded, normalized feed.
type Feed struct {
	// User is the resolved author of the feed.
	User timeline.Author

	// Items are the normalized posts, newest first as upstream returns
	// them, truncated to the requested display count.
	Items []timeline.FeedItem

	// Plan is the entitlement the gateway reported for this load. An
	// observed pro from either fetch step is sticky; loads served
	// entirely from cache report the free tier.
	Plan license.Entitlement
}

// Client loads feeds through an access gateway endpoint.
type Client struct {
	gatewayURL string
	httpClient *http.Client
	cache      *feedcache.Cache
	logger     zerolog.Logger
}

// New creates a feed client for the given gateway endpoint
// (e.g. "https://feeds.example.com/api/feed").
func New(gatewayURL string, cache *feedcache.Cache) (*Client, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("gateway URL is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	return &Client{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  cache,
		logger: log.With().Str("component", "feedclient").Logger(),
	}, nil
}

// userLookup is the wire shape of the author-lookup response.
type userLookup struct {
	Data timeline.Author `json:"data"`
}

// Load fetches, caches, and normalizes one author's feed.
func (c *Client) Load(ctx context.Context, opts LoadOptions) (*Feed, error) {
	if opts.Username == "" {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("username is required")
	}

	startTime := time.Now()
	defer func() {
		clientLoadDuration.Observe(time.Since(startTime).Seconds())
	}()

	count := clampDisplayCount(opts.DisplayCount)

	// Step 1: resolve the author.
	userRes, err := c.fetch(ctx, c.userURL(opts), opts.CacheTTL)
	if err != nil {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if userRes.status < 200 || userRes.status >= 300 {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("user %d", userRes.status)
	}

	var user userLookup
	if err := json.Unmarshal(userRes.payload, &user); err != nil {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if user.Data.ID == "" {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, ErrUserNotFound
	}

	// Step 2: list the timeline for the resolved author id.
	tweetsRes, err := c.fetch(ctx, c.tweetsURL(user.Data.ID, count, opts), opts.CacheTTL)
	if err != nil {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if tweetsRes.status < 200 || tweetsRes.status >= 300 {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("tweets %d", tweetsRes.status)
	}

	var raw timeline.RawTimeline
	if err := json.Unmarshal(tweetsRes.payload, &raw); err != nil {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}
	if raw.Data == nil {
		clientLoadsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoPosts
	}

	// Step 3: normalize and truncate.
	items := timeline.Normalize(&raw)
	if len(items) > count {
		items = items[:count]
	}

	// The plan merge is pro-sticky: an observed pro from either step
	// wins and a later free signal never downgrades it. Cache hits
	// observe no plan, so a fully cached load reports the free tier.
	plan := license.EntitlementFree
	if userRes.planSeen {
		plan = userRes.plan
	}
	if tweetsRes.planSeen && plan != license.EntitlementPro {
		plan = tweetsRes.plan
	}

	clientLoadsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug().
		Str("username", opts.Username).
		Int("items", len(items)).
		Str("plan", string(plan)).
		Dur("duration", time.Since(startTime)).
		Msg("Feed loaded")

	return &Feed{
		User:  user.Data,
		Items: items,
		Plan:  plan,
	}, nil
}

// fetchResult carries one gateway response, whether served from cache
// or over the wire.
type fetchResult struct {
	payload  json.RawMessage
	status   int
	plan     license.Entitlement
	planSeen bool
}

// fetch returns the payload for a gateway URL, consulting the cache
// first. Only successful responses are stored; error responses always
// surface live.
func (c *Client) fetch(ctx context.Context, rawURL string, ttl time.Duration) (*fetchResult, error) {
	if payload, ok := c.cache.Get(ctx, rawURL, ttl); ok {
		return &fetchResult{payload: payload, status: http.StatusOK}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	res := &fetchResult{
		payload: body,
		status:  resp.StatusCode,
	}
	if plan := resp.Header.Get(gateway.PlanHeader); plan != "" {
		res.plan = license.Entitlement(plan)
		res.planSeen = true
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.cache.Set(ctx, rawURL, body)
	}

	return res, nil
}

// userURL builds the gateway URL for the author lookup.
func (c *Client) userURL(opts LoadOptions) string {
	q := url.Values{}
	q.Set("path", "/users/by/username/"+opts.Username)
	q.Set("user.fields", "name,username,profile_image_url,verified")
	if opts.LicenseKey != "" {
		q.Set("license", opts.LicenseKey)
	}
	return c.gatewayURL + "?" + q.Encode()
}

// tweetsURL builds the gateway URL for the timeline listing.
func (c *Client) tweetsURL(userID string, count int, opts LoadOptions) string {
	q := url.Values{}
	q.Set("path", "/users/"+userID+"/tweets")
	q.Set("max_results", fmt.Sprintf("%d", count))
	q.Set("tweet.fields", "created_at,public_metrics,entities,attachments,possibly_sensitive,lang,author_id")
	q.Set("expansions", "attachments.media_keys,author_id")
	q.Set("media.fields", "media_key,type,url,preview_image_url,width,height,alt_text")
	q.Set("user.fields", "name,username")
	if opts.LicenseKey != "" {
		q.Set("license", opts.LicenseKey)
	}
	return c.gatewayURL + "?" + q.Encode()
}

// clampDisplayCount bounds the requested item count.
func clampDisplayCount(n int) int {
	if n < minDisplayCount {
		return minDisplayCount
	}
	if n > maxDisplayCount {
		return maxDisplayCount
	}
	return n
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
