package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cicerone/internal/sources"
	"cicerone/pkg/cache"
	"cicerone/pkg/logging"
)

const (
	cacheKeyPrefix  = "cicerone:source:"
	maxCacheEntries = 4096
)

func cacheKey(sourceID, query string) string {
	return cacheKeyPrefix + sourceID + ":" + sources.NormalizeQuery(query)
}

// memoryCached wraps a gatherer with the in-process read-through cache.
// Only successful results are stored; failures always retry on the next
// request. Concurrent fetches for the same key collapse to one upstream
// call.
type memoryCached struct {
	inner sources.Gatherer
	store *cache.Cache
}

// WithMemoryCache decorates a gatherer with a TTL-bounded in-memory cache.
func WithMemoryCache(inner sources.Gatherer, ttl time.Duration) sources.Gatherer {
	id := inner.ID()
	store := cache.New(cache.Options{TTL: ttl, MaxEntries: maxCacheEntries}, cache.Hooks{
		OnHit:   func(string) { cacheEvents.WithLabelValues(id, "hit").Inc() },
		OnMiss:  func(string) { cacheEvents.WithLabelValues(id, "miss").Inc() },
		OnStore: func(string) { cacheEvents.WithLabelValues(id, "store").Inc() },
	})
	return &memoryCached{inner: inner, store: store}
}

func (c *memoryCached) ID() string { return c.inner.ID() }

func (c *memoryCached) Fetch(ctx context.Context, query string) sources.Result {
	var last sources.Result
	v, err := c.store.Get(ctx, cacheKey(c.inner.ID(), query), func(ctx context.Context, _ string) (interface{}, error) {
		last = c.inner.Fetch(ctx, query)
		if !last.Succeeded {
			return nil, errors.New(last.Err)
		}
		return last, nil
	})
	if err == nil {
		if result, isResult := v.(sources.Result); isResult {
			return result
		}
	}
	if last.SourceID != "" {
		return last
	}
	// A concurrent caller's load failed on our behalf; its tag rode in on
	// the error.
	tag := "source_unavailable"
	if err != nil && err.Error() != "" {
		tag = err.Error()
	}
	return sources.Result{SourceID: c.inner.ID(), Err: tag}
}

// redisCached wraps a gatherer with a shared Redis store so replicas reuse
// each other's fetches. Store errors degrade to a plain fetch, never fail
// the request.
type redisCached struct {
	inner  sources.Gatherer
	client redis.UniversalClient
	ttl    time.Duration
	logger logging.Logger
}

// WithRedisCache decorates a gatherer with a Redis-backed source cache.
func WithRedisCache(inner sources.Gatherer, client redis.UniversalClient, ttl time.Duration, logger logging.Logger) sources.Gatherer {
	return &redisCached{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *redisCached) ID() string { return c.inner.ID() }

func (c *redisCached) Fetch(ctx context.Context, query string) sources.Result {
	key := cacheKey(c.inner.ID(), query)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached sources.Result
		if json.Unmarshal(data, &cached) == nil && cached.SourceID != "" {
			cacheEvents.WithLabelValues(c.inner.ID(), "hit").Inc()
			return cached
		}
		// Unreadable entry; fall through and replace it.
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).WithField("key", key).Debug("Source cache read failed")
	}
	cacheEvents.WithLabelValues(c.inner.ID(), "miss").Inc()

	result := c.inner.Fetch(ctx, query)
	if !result.Succeeded {
		return result
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return result
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Source cache write failed")
		return result
	}
	cacheEvents.WithLabelValues(c.inner.ID(), "store").Inc()
	return result
}
