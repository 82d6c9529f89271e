// Package cache implements the in-process source cache: a read-through
// TTL store with singleflight load deduplication and optional
// stale-while-revalidate. Failed loads are never stored, so callers
// always retry upstream on the next request.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	// TTL bounds how long a stored value serves as fresh. A zero TTL
	// stores entries that expire immediately.
	TTL time.Duration
	// StaleWhileRevalidate extends the window past TTL during which an
	// expired value still serves while one background reload runs.
	StaleWhileRevalidate time.Duration
	// MaxEntries caps the store; the oldest entries are dropped first.
	// Zero means unbounded.
	MaxEntries int
}

// Hooks receive the cache key on each event. Nil hooks are skipped.
type Hooks struct {
	OnHit   func(key string)
	OnMiss  func(key string)
	OnStale func(key string)
	OnStore func(key string)
}

type record struct {
	value     interface{}
	expiresAt time.Time
	staleAt   time.Time
}

type Cache struct {
	opts  Options
	hooks Hooks
	group singleflight.Group

	mu    sync.Mutex
	items map[string]*record
	order []string
}

func New(opts Options, hooks Hooks) *Cache {
	return &Cache{
		opts:  opts,
		hooks: hooks,
		items: make(map[string]*record),
	}
}

// Loader fetches the value for a key on a cache miss. A non-nil error
// marks the load as failed; failures are returned to every waiter and
// nothing is stored.
type Loader func(ctx context.Context, key string) (interface{}, error)

// Get returns the value for key, loading it through load on a miss.
// Concurrent gets for the same key collapse into a single upstream call.
func (c *Cache) Get(ctx context.Context, key string, load Loader) (interface{}, error) {
	now := time.Now()
	c.mu.Lock()
	if r, ok := c.items[key]; ok {
		switch {
		case now.Before(r.expiresAt):
			value := r.value
			c.mu.Unlock()
			fire(c.hooks.OnHit, key)
			return value, nil
		case now.Before(r.staleAt):
			value := r.value
			c.mu.Unlock()
			fire(c.hooks.OnStale, key)
			// Serve stale and refresh once in the background. The reload
			// must not die with the request that triggered it.
			refreshCtx := context.WithoutCancel(ctx)
			go func() {
				_, _, _ = c.group.Do("refresh:"+key, func() (interface{}, error) {
					if v, err := load(refreshCtx, key); err == nil {
						c.put(key, v)
					}
					return nil, nil
				})
			}()
			return value, nil
		default:
			c.drop(key)
			c.mu.Unlock()
		}
	} else {
		c.mu.Unlock()
	}

	fire(c.hooks.OnMiss, key)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A winner may have stored between our miss and joining the
		// flight; don't load twice for the same answer.
		c.mu.Lock()
		if r, ok := c.items[key]; ok && time.Now().Before(r.expiresAt) {
			value := r.value
			c.mu.Unlock()
			return value, nil
		}
		c.mu.Unlock()

		v, err := load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.put(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) put(key string, value interface{}) {
	now := time.Now()
	r := &record{value: value, expiresAt: now.Add(c.opts.TTL)}
	r.staleAt = r.expiresAt.Add(c.opts.StaleWhileRevalidate)

	c.mu.Lock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = r
	for c.opts.MaxEntries > 0 && len(c.items) > c.opts.MaxEntries && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
	}
	c.mu.Unlock()
	fire(c.hooks.OnStore, key)
}

// drop removes key; the caller holds c.mu.
func (c *Cache) drop(key string) {
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func fire(hook func(string), key string) {
	if hook != nil {
		hook(key)
	}
}
