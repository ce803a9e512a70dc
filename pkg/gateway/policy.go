package gateway

import (
	"strings"
	"time"
)

// ResourceClass categorizes upstream endpoints for quota and cache
// policy.
type ResourceClass string

const (
	// ClassListing covers count-limited collection endpoints
	// (a user's recent posts).
	ClassListing ResourceClass = "listing"

	// ClassProfile covers profile-lookup endpoints.
	ClassProfile ResourceClass = "profile"

	// ClassPassthrough covers everything else; no quota clamp applies.
	ClassPassthrough ResourceClass = "passthrough"
)

// Policy is the per-class tier policy. This table is the single point
// distinguishing the free and pro tiers; handlers must consult it
// instead of encoding limits locally.
type Policy struct {
	// FreeLimit is forced onto listing requests from free callers,
	// regardless of what they asked for.
	FreeLimit int

	// ProLimit caps listing requests from pro callers.
	ProLimit int

	// DefaultResults is used when a listing request names no count.
	DefaultResults int

	// DefaultTTL is the edge-cache directive applied to successful
	// responses without a caller override.
	DefaultTTL time.Duration
}

// policies maps every resource class to its tier policy.
var policies = map[ResourceClass]Policy{
	ClassListing: {
		FreeLimit:      5,
		ProLimit:       100,
		DefaultResults: 10,
		DefaultTTL:     15 * time.Minute,
	},
	ClassProfile: {
		DefaultTTL: time.Hour,
	},
	ClassPassthrough: {
		DefaultTTL: 15 * time.Minute,
	},
}

// ClassifyPath maps an upstream-relative resource path to its class.
// Profile lookups are matched before listings: /users/by/username/...
// would otherwise satisfy the listing prefix test.
func ClassifyPath(path string) ResourceClass {
	if strings.HasPrefix(path, "/users/by/username") {
		return ClassProfile
	}
	if strings.HasPrefix(path, "/users/") && strings.Contains(path, "/tweets") {
		return ClassListing
	}
	return ClassPassthrough
}

// PolicyFor returns the policy for a resource class.
func PolicyFor(class ResourceClass) Policy {
	return policies[class]
}

// HasQuota reports whether the class is subject to result-count
// clamping.
func (p Policy) HasQuota() bool {
	return p.FreeLimit > 0 || p.ProLimit > 0
}
