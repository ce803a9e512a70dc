// Package ratelimit observes the upstream X API rate-limit window.
// It parses the x-rate-limit-limit, x-rate-limit-remaining, and
// x-rate-limit-reset headers after every upstream call and keeps the
// latest window state in Redis so all gateway replicas share one view.
//
// The observer never gates requests: the gateway makes exactly one
// upstream attempt per inbound call and translates 429 responses for
// the caller. Tracking exists for observability only.
package ratelimit

import (
	"time"
)

// Redis keys for shared window state.
const (
	RedisKeyLimit          = "xfeed:rate_limit:limit"
	RedisKeyRemaining      = "xfeed:rate_limit:remaining"
	RedisKeyResetTimestamp = "xfeed:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "xfeed:rate_limit:last_update"
)

// RemainingWarningThreshold marks a window as near exhaustion. Below
// this many remaining requests the observer logs at warn level.
const RemainingWarningThreshold = 5

// WindowState represents the most recently observed upstream
// rate-limit window. The state is shared across gateway replicas via
// Redis.
type WindowState struct {
	// Limit is the request quota of the current window, from the
	// x-rate-limit-limit header.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window, from the
	// x-rate-limit-remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets, from the x-rate-limit-reset
	// header (epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last observed.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than the given duration.
func (s *WindowState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NearExhaustion returns true when the window is close to running out
// of requests.
func (s *WindowState) NearExhaustion() bool {
	return s.Remaining < RemainingWarningThreshold
}

// Exhausted returns true when the window has no requests left.
func (s *WindowState) Exhausted() bool {
	return s.Remaining <= 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *WindowState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
