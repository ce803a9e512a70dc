// Package testutil provides testing utilities for the feed gateway.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock X API server for testing.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastQuery         url.Values
	LastPath          string
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.Query()
		mock.LastPath = r.URL.Path
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
	m.LastPath = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler provides a default X-API-like 200 response.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("x-rate-limit-limit", "75")
	w.Header().Set("x-rate-limit-remaining", "74")
	w.Header().Set("x-rate-limit-reset", "1700000900")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data": {"id": "42", "name": "Example", "username": "example"}}`))
}

// NewUserResponse creates a profile-lookup response for the given id and
// username.
func NewUserResponse(id, username string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data": {"id": "` + id + `", "name": "Example User", "username": "` + username + `"}}`,
		Headers: map[string]string{
			"x-rate-limit-limit":     "75",
			"x-rate-limit-remaining": "74",
			"x-rate-limit-reset":     "1700000900",
		},
	}
}

// NewTimelineResponse creates a minimal one-post timeline response.
func NewTimelineResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: `{
			"data": [
				{"id": "1001", "text": "hello world", "author_id": "42",
				 "created_at": "2024-05-01T12:00:00Z",
				 "public_metrics": {"reply_count": 1, "like_count": 7}}
			],
			"includes": {"users": [{"id": "42", "name": "Example User", "username": "example"}]}
		}`,
		Headers: map[string]string{
			"x-rate-limit-limit":     "75",
			"x-rate-limit-remaining": "73",
			"x-rate-limit-reset":     "1700000900",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with a
// retry-after header.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Too Many Requests"}`,
		Headers: map[string]string{
			"retry-after":            retryAfter,
			"x-rate-limit-remaining": "0",
			"x-rate-limit-reset":     "1700000900",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
	}
}
