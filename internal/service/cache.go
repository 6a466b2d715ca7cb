package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront/internal/cache"
)

// evictions counts cache evictions made by this process. A read snapshots it
// before loading from the store and drops its fill when a write evicted in
// the meantime, so a value loaded before a commit is not cached after it.
// Fills made by other instances are not covered and a stale entry from one
// of them lives until its TTL expires.
var evictions atomic.Uint64

// generation is the eviction count observed before a store read.
type generation uint64

// cacheAside wraps a cache.Cache so engines treat it as best effort: read
// errors become misses and write errors are only logged.
type cacheAside struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func newCacheAside(c cache.Cache, ttl time.Duration, logger *slog.Logger) cacheAside {
	if c == nil {
		c = cache.Noop{}
	}
	return cacheAside{cache: c, ttl: ttl, logger: logger}
}

// get reads key into dst. The returned generation must be passed to put
// when the caller fills the entry after a miss.
func (c cacheAside) get(ctx context.Context, key string, dst any) (generation, bool) {
	gen := generation(evictions.Load())
	ok, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return gen, false
	}
	return gen, ok
}

// put fills key with v unless an eviction happened since gen. An eviction
// that lands while the value is being written removes it again.
func (c cacheAside) put(ctx context.Context, gen generation, key string, v any) {
	if generation(evictions.Load()) != gen {
		return
	}
	if err := c.cache.Put(ctx, key, v, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if generation(evictions.Load()) != gen {
		c.evict(ctx, key)
	}
}

func (c cacheAside) evict(ctx context.Context, keys ...string) {
	evictions.Add(1)
	if err := c.cache.Evict(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "cache evict failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}
