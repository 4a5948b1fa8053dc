package bindings

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "bindings"

// Cached memoises a Provider for a TTL.  Concurrent sessions arriving
// while the cache is cold share a single fetch.
type Cached struct {
	src   Provider
	ttl   time.Duration
	cache *cache.Cache
	group singleflight.Group
}

// NewCached wraps src.  A non-positive ttl disables caching but still
// coalesces concurrent fetches.
func NewCached(src Provider, ttl time.Duration) *Cached {
	cleanup := 2 * ttl
	if ttl <= 0 {
		cleanup = 0
	}
	return &Cached{
		src:   src,
		ttl:   ttl,
		cache: cache.New(ttl, cleanup),
	}
}

// Bindings returns the cached bindings, fetching them if the entry is
// missing or expired.  Each caller receives its own copy.
func (c *Cached) Bindings(ctx context.Context) (map[string]any, error) {
	if v, ok := c.cache.Get(cacheKey); ok {
		return clone(v.(map[string]any)), nil
	}

	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v, nil
		}
		m, err := c.src.Bindings(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.cache.Set(cacheKey, m, c.ttl)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(map[string]any)), nil
}

// Invalidate drops the cached entry so the next session refetches.
func (c *Cached) Invalidate() {
	c.cache.Delete(cacheKey)
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
