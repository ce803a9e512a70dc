package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate-limit observation.
var (
	upstreamRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_upstream_rate_limit_remaining",
		Help: "Requests remaining in the current upstream rate-limit window",
	})

	upstreamRateLimitExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_upstream_rate_limit_exhausted_total",
		Help: "Total times an exhausted upstream rate-limit window was observed",
	})
)

// Observer records upstream rate-limit window state.
type Observer struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewObserver creates a rate-limit observer. The Redis client is
// optional: with a nil client the observer still updates metrics and
// logs, but state is not shared across replicas.
func NewObserver(redisClient *redis.Client, logger zerolog.Logger) *Observer {
	return &Observer{
		redis:  redisClient,
		logger: logger,
	}
}

// Observe parses rate-limit headers from an upstream response and
// records the window state. Responses without the headers are ignored.
// Observation is best-effort and never returns an error to the caller.
func (o *Observer) Observe(ctx context.Context, path string, headers http.Header) {
	remainStr := headers.Get("x-rate-limit-remaining")
	if remainStr == "" {
		return
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		o.logger.Debug().Err(err).Str("path", path).Msg("Unparseable x-rate-limit-remaining header")
		return
	}

	limit, _ := strconv.Atoi(headers.Get("x-rate-limit-limit"))

	var resetAt time.Time
	if resetStr := headers.Get("x-rate-limit-reset"); resetStr != "" {
		if resetEpoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetEpoch, 0)
		}
	}

	state := &WindowState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    resetAt,
		LastUpdate: time.Now(),
	}

	upstreamRateLimitRemaining.Set(float64(remain))
	if state.Exhausted() {
		upstreamRateLimitExhaustedTotal.Inc()
	}

	if err := o.store(ctx, state); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to store rate limit state in redis")
	}

	logEvent := o.logger.Debug()
	if state.Exhausted() {
		logEvent = o.logger.Error()
	} else if state.NearExhaustion() {
		logEvent = o.logger.Warn()
	}
	logEvent.
		Str("path", path).
		Int("remaining", remain).
		Int("limit", limit).
		Time("reset_at", resetAt).
		Msg("Upstream rate limit window observed")
}

// store persists the window state to Redis. No-op without a client.
func (o *Observer) store(ctx context.Context, state *WindowState) error {
	if o.redis == nil {
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := o.redis.Pipeline()
	pipe.Set(ctx, RedisKeyLimit, state.Limit, 0)
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return nil
}

// State retrieves the shared window state from Redis. Returns a fresh
// full window when no state has been observed yet or no Redis client
// is configured.
func (o *Observer) State(ctx context.Context) (*WindowState, error) {
	if o.redis == nil {
		return defaultState(), nil
	}

	remaining, err := o.redis.Get(ctx, RedisKeyRemaining).Int()
	if err == redis.Nil {
		return defaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := o.redis.Get(ctx, RedisKeyLimit).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetTimestamp, err := o.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := o.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	return &WindowState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}, nil
}

// defaultState assumes a healthy window until real headers arrive.
func defaultState() *WindowState {
	return &WindowState{
		Limit:      75,
		Remaining:  75,
		ResetAt:    time.Now().Add(15 * time.Minute),
		LastUpdate: time.Now(),
	}
}
