package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockLicense is a mock license validation server. It validates keys
// with the given predicate and records the last key/host pair it saw.
type MockLicense struct {
	server *httptest.Server
	mu     sync.RWMutex

	// Tracking
	RequestCount int
	LastKey      string
	LastHost     string

	// Fail, when set, makes every response a 500.
	Fail bool
}

// NewMockLicense creates a mock license server backed by the predicate.
func NewMockLicense(predicate func(key string) bool) *MockLicense {
	mock := &MockLicense{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastKey = r.URL.Query().Get("key")
		mock.LastHost = r.URL.Query().Get("host")
		fail := mock.Fail
		mock.mu.Unlock()

		if fail {
			http.Error(w, "validation backend down", http.StatusInternalServerError)
			return
		}

		ok := predicate(r.URL.Query().Get("key"))
		plan := "free"
		if ok {
			plan = "pro"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": ok, "plan": plan})
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockLicense) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockLicense) Close() {
	m.server.Close()
}

// SetFail toggles failure mode.
func (m *MockLicense) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}
