package ratelimit

import (
	"testing"
	"time"
)

func TestWindowState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *WindowState
		maxAge   time.Duration
		expected bool
	}{
		{
			name: "fresh state",
			state: &WindowState{
				LastUpdate: time.Now(),
			},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name: "stale state",
			state: &WindowState{
				LastUpdate: time.Now().Add(-10 * time.Minute),
			},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name: "just under max age",
			state: &WindowState{
				LastUpdate: time.Now().Add(-4 * time.Minute),
			},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.state.IsStale(tt.maxAge)
			if result != tt.expected {
				t.Errorf("IsStale() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestWindowState_NearExhaustion(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{
			name:      "well above threshold",
			remaining: 50,
			expected:  false,
		},
		{
			name:      "at threshold",
			remaining: RemainingWarningThreshold,
			expected:  false,
		},
		{
			name:      "just below threshold",
			remaining: RemainingWarningThreshold - 1,
			expected:  true,
		},
		{
			name:      "zero remaining",
			remaining: 0,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &WindowState{Remaining: tt.remaining}
			if got := state.NearExhaustion(); got != tt.expected {
				t.Errorf("NearExhaustion() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWindowState_Exhausted(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{name: "requests left", remaining: 1, expected: false},
		{name: "zero remaining", remaining: 0, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &WindowState{Remaining: tt.remaining}
			if got := state.Exhausted(); got != tt.expected {
				t.Errorf("Exhausted() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWindowState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name    string
		resetAt time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "future reset",
			resetAt: time.Now().Add(10 * time.Minute),
			wantMin: 9 * time.Minute,
			wantMax: 11 * time.Minute,
		},
		{
			name:    "past reset",
			resetAt: time.Now().Add(-1 * time.Minute),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &WindowState{ResetAt: tt.resetAt}
			got := state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}
