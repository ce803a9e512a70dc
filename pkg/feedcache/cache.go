// Package feedcache implements the client-side response cache.
//
// Entries are keyed by the fully-resolved request URL, so distinct
// parameterizations never collide. Each entry records when it was
// stored; an entry is usable iff now - storedAt < ttl, where the TTL is
// supplied by the reader. A TTL of zero (or less) disables caching
// entirely: every read is a miss.
//
// Caching is best-effort. Storage failures of any kind are swallowed
// and reported as a miss; they must never fail the calling fetch path.
package feedcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// keyPrefix namespaces cache keys. The version segment invalidates
// entries across incompatible payload revisions.
const keyPrefix = "xfeed:v3:"

// Entry is the stored envelope: when the payload was cached plus the
// payload itself.
type Entry struct {
	StoredAtMs int64           `json:"ts"`
	Payload    json.RawMessage `json:"data"`
}

// Fresh returns true if the entry is younger than ttl as of now.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	age := now.Sub(time.UnixMilli(e.StoredAtMs))
	return age < ttl
}

// Cache is a URL-keyed, age-expired response cache over a Store.
type Cache struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a cache over the given store.
func New(store Store) *Cache {
	return &Cache{
		store:  store,
		logger: log.With().Str("component", "feedcache").Logger(),
		now:    time.Now,
	}
}

// Get returns the cached payload for url if a fresh entry exists.
// ttl <= 0 is an unconditional miss, even immediately after Set.
func (c *Cache) Get(ctx context.Context, url string, ttl time.Duration) (json.RawMessage, bool) {
	if ttl <= 0 {
		return nil, false
	}

	key := keyPrefix + url

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if err != ErrNotFound {
			cacheErrors.WithLabelValues("get").Inc()
			c.logger.Debug().Err(err).Str("url", url).Msg("Cache get failed, treating as miss")
		}
		cacheMisses.Inc()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		cacheMisses.Inc()
		c.logger.Debug().Err(err).Str("url", url).Msg("Corrupt cache entry, treating as miss")
		return nil, false
	}

	if !entry.Fresh(c.now(), ttl) {
		// Stale entries are deleted lazily; there is no eviction sweep.
		if err := c.store.Delete(ctx, key); err != nil {
			cacheErrors.WithLabelValues("delete").Inc()
		}
		cacheMisses.Inc()
		return nil, false
	}

	cacheHits.Inc()
	c.logger.Debug().Str("url", url).Msg("Cache hit")
	return entry.Payload, true
}

// Set stores a payload for url. Best-effort: all failures are swallowed.
func (c *Cache) Set(ctx context.Context, url string, payload json.RawMessage) {
	entry := Entry{
		StoredAtMs: c.now().UnixMilli(),
		Payload:    payload,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		c.logger.Debug().Err(err).Str("url", url).Msg("Cache entry marshal failed, skipping store")
		return
	}

	// The store-level TTL is only a storage upper bound; readers decide
	// freshness from the entry timestamp against their own TTL.
	if err := c.store.Set(ctx, keyPrefix+url, raw, 24*time.Hour); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		c.logger.Debug().Err(err).Str("url", url).Msg("Cache set failed, continuing without cache")
	}
}

// SetClock overrides the time source (for testing).
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}
