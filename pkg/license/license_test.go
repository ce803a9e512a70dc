package license

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFormatPredicate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{
			name: "valid key",
			key:  "PRO-ABCD1234",
			want: true,
		},
		{
			name: "empty key",
			key:  "",
			want: false,
		},
		{
			name: "lowercase suffix",
			key:  "PRO-abcd1234",
			want: false,
		},
		{
			name: "wrong prefix",
			key:  "FREE-ABCD1234",
			want: false,
		},
		{
			name: "suffix too short",
			key:  "PRO-ABCD123",
			want: false,
		},
		{
			name: "suffix too long",
			key:  "PRO-ABCD12345",
			want: false,
		},
		{
			name: "trailing garbage",
			key:  "PRO-ABCD1234X",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPredicate(tt.key); got != tt.want {
				t.Errorf("FormatPredicate(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestNewResolver_Validation(t *testing.T) {
	if _, err := NewResolver(""); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	if _, err := NewResolver("http://localhost/api/license"); err != nil {
		t.Errorf("Unexpected error for valid endpoint: %v", err)
	}
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected Entitlement
	}{
		{
			name:     "pro plan",
			status:   http.StatusOK,
			body:     `{"ok": true, "plan": "pro"}`,
			expected: EntitlementPro,
		},
		{
			name:     "free plan",
			status:   http.StatusOK,
			body:     `{"ok": false, "plan": "free"}`,
			expected: EntitlementFree,
		},
		{
			name:     "ok without pro plan",
			status:   http.StatusOK,
			body:     `{"ok": true, "plan": "free"}`,
			expected: EntitlementFree,
		},
		{
			name:     "malformed ok field",
			status:   http.StatusOK,
			body:     `{"ok": "yes", "plan": "pro"}`,
			expected: EntitlementFree,
		},
		{
			name:     "malformed body",
			status:   http.StatusOK,
			body:     `not json`,
			expected: EntitlementFree,
		},
		{
			name:     "validation service error",
			status:   http.StatusInternalServerError,
			body:     `{"error": "boom"}`,
			expected: EntitlementFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resolver, err := NewResolver(server.URL)
			if err != nil {
				t.Fatalf("NewResolver() error = %v", err)
			}

			got := resolver.Resolve(context.Background(), "PRO-ABCD1234", "example.com")
			if got != tt.expected {
				t.Errorf("Resolve() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResolver_Resolve_ForwardsKeyAndOrigin(t *testing.T) {
	var gotKey, gotHost string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotHost = r.URL.Query().Get("host")
		w.Write([]byte(`{"ok": true, "plan": "pro"}`))
	}))
	defer server.Close()

	resolver, err := NewResolver(server.URL)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	resolver.Resolve(context.Background(), "PRO-ABCD1234", "https://site.example")

	if gotKey != "PRO-ABCD1234" {
		t.Errorf("key = %q, want %q", gotKey, "PRO-ABCD1234")
	}
	if gotHost != "https://site.example" {
		t.Errorf("host = %q, want %q", gotHost, "https://site.example")
	}
}

func TestResolver_Resolve_TransportFailureFailsOpen(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	resolver, err := NewResolver(server.URL)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	got := resolver.Resolve(context.Background(), "PRO-ABCD1234", "")
	if got != EntitlementFree {
		t.Errorf("Resolve() on transport failure = %v, want %v", got, EntitlementFree)
	}
}

func TestResolver_Resolve_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"ok": true, "plan": "pro"}`))
	}))
	defer server.Close()

	resolver, err := NewResolver(server.URL)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	resolver.SetHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})

	got := resolver.Resolve(context.Background(), "PRO-ABCD1234", "")
	if got != EntitlementFree {
		t.Errorf("Resolve() on timeout = %v, want %v", got, EntitlementFree)
	}
}
