package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces a fresh value for a key.
type Loader[V any] func(ctx context.Context) (V, error)

// DefaultLoadTimeout bounds a single load.
const DefaultLoadTimeout = 2 * time.Minute

// TTL is an in-process cache of key → value with expiry. While a key is stale exactly
// one load runs; concurrent callers share its result. The load is detached from the
// caller that started it, so one cancelled request does not fail the others. When
// the loader fails and a previous value exists, the previous value is served.
type TTL[K comparable, V any] struct {
	mu          sync.Mutex
	ttl         time.Duration
	now         func() time.Time
	loadTimeout time.Duration
	items       map[K]*item[V]
	group       singleflight.Group
}

type item[V any] struct {
	val     V
	has     bool
	expires time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now         func() time.Time
	loadTimeout time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLoadTimeout caps how long one load may run.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) { o.loadTimeout = d }
}

// New returns a cache whose entries live for ttl.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{now: time.Now, loadTimeout: DefaultLoadTimeout}
	for _, fn := range opts {
		fn(&o)
	}
	return &TTL[K, V]{ttl: ttl, now: o.now, loadTimeout: o.loadTimeout, items: make(map[K]*item[V])}
}

// Get returns the cached value for key, calling load when it is missing or expired.
// Keys are grouped by their fmt %v form while a load is in flight.
func (c *TTL[K, V]) Get(ctx context.Context, key K, load Loader[V]) (V, error) {
	if v, ok := c.fresh(key); ok {
		return v, nil
	}
	ch := c.group.DoChan(fmt.Sprint(key), func() (any, error) {
		return c.refresh(ctx, key, load)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			var zero V
			return zero, r.Err
		}
		return r.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *TTL[K, V]) fresh(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok && it.has && c.now().Before(it.expires) {
		return it.val, true
	}
	var zero V
	return zero, false
}

func (c *TTL[K, V]) refresh(ctx context.Context, key K, load Loader[V]) (V, error) {
	// a flight that started right after another finished finds the new value
	if v, ok := c.fresh(key); ok {
		return v, nil
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()
	v, err := load(lctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		it = &item[V]{}
		c.items[key] = it
	}
	switch {
	case err == nil:
		it.val, it.has = v, true
		it.expires = c.now().Add(c.ttl)
		return v, nil
	case it.has:
		slog.Warn("cache: reload failed, serving stale value", "key", key, "error", err)
		return it.val, nil
	default:
		var zero V
		return zero, err
	}
}

// Peek returns the stored value regardless of expiry.
func (c *TTL[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok && it.has {
		return it.val, true
	}
	var zero V
	return zero, false
}

// Set stores a value with a fresh expiry.
func (c *TTL[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		it = &item[V]{}
		c.items[key] = it
	}
	it.val, it.has = v, true
	it.expires = c.now().Add(c.ttl)
}

// Invalidate expires key so the next Get reloads it.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[key]; ok {
		it.expires = time.Time{}
	}
}
