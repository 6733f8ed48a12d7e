// Package cache implements a generic read-through cache with per-entry TTL,
// in-flight request coalescing, exact and pattern invalidation, and a
// subscribable invalidation stream.
//
// A Cache is an explicitly constructed object: create one per process with
// New, inject it into the readers that need it, and call Close on shutdown.
// The cache knows nothing about the values it stores.
//
// Semantics of Get(ctx, key, ttl, fetch):
//
//   - A stored entry whose age is strictly below ttl is returned without
//     calling fetch.
//   - Otherwise, if a fetch for key is already running, the caller joins it
//     and receives the same result. At most one fetch per key is outstanding.
//   - Otherwise fetch is started. Success is stored with storedAt = now;
//     failure is returned to every waiter and never stored.
//
// Fetches run detached from the initiating caller's cancellation so that one
// impatient caller cannot fail the others. A caller whose ctx ends stops
// waiting and gets ctx.Err(). The cache applies no timeout of its own: the
// fetch function is responsible for bounding itself.
package cache

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when New is not given WithDefaultTTL and a caller passes
// ttl <= 0.
const DefaultTTL = 5 * time.Second

// FetchFunc produces the value for a key on a cache miss.
type FetchFunc func(ctx context.Context) (any, error)

// Listener observes invalidated keys. It is an alias so plain
// func(string) values and interfaces declared with them match.
type Listener = func(key string)

type entry struct {
	data     any
	storedAt time.Time
}

// Cache is a concurrency-safe read-through cache. The zero value is not
// usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]uint64 // key -> token of the running fetch
	seq      uint64

	listeners map[uint64]Listener
	nextLID   uint64

	group      singleflight.Group
	now        func() time.Time
	defaultTTL time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultTTL sets the TTL applied when Get is called with ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// New constructs an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		inflight:   make(map[string]uint64),
		listeners:  make(map[uint64]Listener),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached value for key or loads it with fetch.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.storedAt) < ttl {
		c.mu.Unlock()
		cacheRequests.WithLabelValues("hit").Inc()
		return e.data, nil
	}
	// The token is taken under the same lock as the entry check, so an
	// Invalidate from here on always discards the result.
	token, joining := c.inflight[key]
	if !joining {
		c.seq++
		token = c.seq
		c.inflight[key] = token
	}
	c.mu.Unlock()

	if joining {
		cacheRequests.WithLabelValues("coalesced").Inc()
	} else {
		cacheRequests.WithLabelValues("miss").Inc()
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(detached, key, token, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			cacheRequests.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs fetch as the single leader for key and stores a successful result
// only while token still owns the key.
func (c *Cache) load(ctx context.Context, key string, token uint64, fetch FetchFunc) (any, error) {
	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] != token {
		// Invalidated or cleared mid-flight; a newer fetch may own the key now.
		return v, err
	}
	delete(c.inflight, key)
	if err == nil {
		c.entries[key] = entry{data: v, storedAt: c.now()}
	}
	return v, err
}

// Set stores data under key with storedAt = now, without calling a fetcher.
func (c *Cache) Set(key string, data any) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes key and any in-flight fetch marker for it, then notifies
// listeners with key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	c.dropLocked(key)
	ls := c.listenersLocked()
	c.mu.Unlock()

	cacheInvalidations.WithLabelValues("key").Inc()
	notify(ls, key)
}

// InvalidatePattern removes every stored or in-flight key matching the
// regular expression pattern and notifies listeners once per removed key.
// It returns the number of keys removed.
func (c *Cache) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("cache: invalid pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	seen := make(map[string]struct{})
	for k := range c.entries {
		if re.MatchString(k) {
			seen[k] = struct{}{}
		}
	}
	for k := range c.inflight {
		if re.MatchString(k) {
			seen[k] = struct{}{}
		}
	}
	removed := make([]string, 0, len(seen))
	for k := range seen {
		c.dropLocked(k)
		removed = append(removed, k)
	}
	ls := c.listenersLocked()
	c.mu.Unlock()

	cacheInvalidations.WithLabelValues("pattern").Add(float64(len(removed)))
	for _, k := range removed {
		notify(ls, k)
	}
	return len(removed), nil
}

// ClearAll drops every entry and in-flight marker without notifying listeners.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	for k := range c.inflight {
		c.group.Forget(k)
	}
	c.entries = make(map[string]entry)
	c.inflight = make(map[string]uint64)
	c.mu.Unlock()
}

// AddInvalidationListener registers fn to be called synchronously for every
// invalidated key. The returned function unregisters it and is safe to call
// more than once.
func (c *Cache) AddInvalidationListener(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextLID++
	id := c.nextLID
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Len reports the number of stored entries, live or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close clears the cache and detaches all listeners.
func (c *Cache) Close() {
	c.ClearAll()
	c.mu.Lock()
	c.listeners = make(map[uint64]Listener)
	c.mu.Unlock()
}

func (c *Cache) dropLocked(key string) {
	delete(c.entries, key)
	if _, ok := c.inflight[key]; ok {
		delete(c.inflight, key)
		c.group.Forget(key)
	}
}

func (c *Cache) listenersLocked() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}

func notify(ls []Listener, key string) {
	for _, l := range ls {
		l(key)
	}
}

// Fetch is the typed form of Cache.Get.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, v, zero)
	}
	return t, nil
}
