package gateway

import (
	"testing"
	"time"
)

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want ResourceClass
	}{
		{
			name: "user timeline",
			path: "/users/42/tweets",
			want: ClassListing,
		},
		{
			name: "profile lookup",
			path: "/users/by/username/foo",
			want: ClassProfile,
		},
		{
			name: "single tweet",
			path: "/tweets/1001",
			want: ClassPassthrough,
		},
		{
			name: "user lookup by id",
			path: "/users/42",
			want: ClassPassthrough,
		},
		{
			name: "empty path",
			path: "",
			want: ClassPassthrough,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPath(tt.path); got != tt.want {
				t.Errorf("ClassifyPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	listing := PolicyFor(ClassListing)
	if listing.FreeLimit != 5 {
		t.Errorf("listing FreeLimit = %d, want 5", listing.FreeLimit)
	}
	if listing.ProLimit != 100 {
		t.Errorf("listing ProLimit = %d, want 100", listing.ProLimit)
	}
	if listing.DefaultTTL != 15*time.Minute {
		t.Errorf("listing DefaultTTL = %v, want 15m", listing.DefaultTTL)
	}
	if !listing.HasQuota() {
		t.Error("listing policy must have a quota")
	}

	profile := PolicyFor(ClassProfile)
	if profile.DefaultTTL != time.Hour {
		t.Errorf("profile DefaultTTL = %v, want 1h", profile.DefaultTTL)
	}
	if profile.HasQuota() {
		t.Error("profile policy must not have a quota")
	}

	passthrough := PolicyFor(ClassPassthrough)
	if passthrough.HasQuota() {
		t.Error("passthrough policy must not have a quota")
	}
}
