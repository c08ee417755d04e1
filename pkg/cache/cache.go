// Package cache memoizes built catalogs per key.
//
// Entries are immutable values replaced wholesale on every successful build.
// Concurrent misses on one key share a single build. A failed build leaves
// the previous entry in place. In stale-while-revalidate mode an expired
// entry is served immediately while one background build refreshes it.
//
// Storage is go-cache with expiry disabled: age is tracked here so expired
// entries stay available for stale reads.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
)

// Builder produces the value for a key.
type Builder func(ctx context.Context) (any, error)

// Result is what GetOrBuild hands back.
type Result struct {
	Value   any
	Cached  bool          // served from an existing entry
	Stale   bool          // the entry was past its TTL
	Age     time.Duration // age of the served entry; zero for a fresh build
	BuiltAt time.Time
}

// entry is never mutated after it is stored.
type entry struct {
	value   any
	builtAt time.Time
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Hits          int64    `json:"hits" yaml:"hits"`
	Misses        int64    `json:"misses" yaml:"misses"`
	StaleHits     int64    `json:"stale_hits" yaml:"stale_hits"`
	Builds        int64    `json:"builds" yaml:"builds"`
	BuildFailures int64    `json:"build_failures" yaml:"build_failures"`
	Entries       int      `json:"entries" yaml:"entries"`
	Keys          []string `json:"keys" yaml:"keys"`
}

// Cache is safe for concurrent use.
type Cache struct {
	store          *gocache.Cache
	group          singleflight.Group
	swr            bool
	rebuildTimeout time.Duration
	now            func() time.Time
	logger         *zerolog.Logger

	// pending holds the token of the latest build per key. Invalidate and
	// Clear drop matching tokens so builds started before them do not store
	// their results afterwards; builds of other keys are unaffected.
	mu      sync.Mutex
	pending map[string]uint64
	seq     uint64

	hits, misses, staleHits, builds, failures atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleWhileRevalidate serves expired entries while refreshing them in
// the background.
func WithStaleWhileRevalidate(enabled bool) Option {
	return func(c *Cache) { c.swr = enabled }
}

// WithRebuildTimeout bounds builds, which run detached from the caller's
// context.
func WithRebuildTimeout(d time.Duration) Option {
	return func(c *Cache) { c.rebuildTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the cache logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		store:          gocache.New(gocache.NoExpiration, constants.CacheCleanupInterval),
		pending:        make(map[string]uint64),
		rebuildTimeout: constants.RebuildTimeout,
		now:            time.Now,
		logger:         logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrBuild returns the entry for key when it is younger than ttl, and
// otherwise builds it. Only one build per key runs at a time; concurrent
// callers wait for it. Build failures are returned as
// *errors.CacheBuildError and leave any previous entry intact.
func (c *Cache) GetOrBuild(ctx context.Context, key string, ttl time.Duration, build Builder) (Result, error) {
	if e, ok := c.load(key); ok {
		age := c.now().Sub(e.builtAt)
		if age < ttl {
			c.hits.Add(1)
			return Result{Value: e.value, Cached: true, Age: age, BuiltAt: e.builtAt}, nil
		}
		if c.swr {
			c.staleHits.Add(1)
			c.refresh(ctx, key, build)
			return Result{Value: e.value, Cached: true, Stale: true, Age: age, BuiltAt: e.builtAt}, nil
		}
	}

	c.misses.Add(1)
	ch := c.group.DoChan(key, func() (any, error) {
		// a build that finished while we queued may already be fresh
		if e, ok := c.load(key); ok && c.now().Sub(e.builtAt) < ttl {
			return e, nil
		}
		return c.build(ctx, key, build)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		e := res.Val.(*entry)
		return Result{Value: e.value, BuiltAt: e.builtAt}, nil
	}
}

// Rebuild builds key now regardless of the entry's age. The entry is only
// replaced when the build succeeds; a build already running for key is
// shared.
func (c *Cache) Rebuild(ctx context.Context, key string, build Builder) (Result, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return c.build(ctx, key, build)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		e := res.Val.(*entry)
		return Result{Value: e.value, BuiltAt: e.builtAt}, nil
	}
}

// refresh starts one background build for key unless one is running.
func (c *Cache) refresh(ctx context.Context, key string, build Builder) {
	c.group.DoChan(key, func() (any, error) {
		e, err := c.build(ctx, key, build)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Background cache refresh failed")
		}
		return e, err
	})
}

// build runs the builder detached from the caller's cancellation and
// stores the result unless the cache was invalidated meanwhile.
func (c *Cache) build(ctx context.Context, key string, build Builder) (*entry, error) {
	token := c.begin(key)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.rebuildTimeout)
	defer cancel()

	c.builds.Add(1)
	start := c.now()
	value, err := build(ctx)
	if err != nil {
		c.finish(key, token, nil)
		c.failures.Add(1)
		return nil, errors.NewCacheBuildError(key, err)
	}

	e := &entry{value: value, builtAt: c.now()}
	c.finish(key, token, e)
	c.logger.Debug().
		Str("key", key).
		Dur("took", e.builtAt.Sub(start)).
		Msg("Cache entry built")
	return e, nil
}

// begin registers a build of key and returns its token.
func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.pending[key] = c.seq
	return c.seq
}

// finish stores e when the build identified by token is still current for
// key. A nil e only releases the token.
func (c *Cache) finish(key string, token uint64, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] != token {
		return
	}
	delete(c.pending, key)
	if e != nil {
		c.store.Set(key, e, gocache.NoExpiration)
	}
}

func (c *Cache) load(key string) (*entry, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	e, ok := v.(*entry)
	return e, ok
}

// Peek returns the current entry for key without building or counting.
func (c *Cache) Peek(key string) (Result, bool) {
	e, ok := c.load(key)
	if !ok {
		return Result{}, false
	}
	return Result{Value: e.value, Cached: true, Age: c.now().Sub(e.builtAt), BuiltAt: e.builtAt}, true
}

// Invalidate removes every key with the given prefix and reports how many
// were removed. An empty prefix removes everything.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.pending {
		if strings.HasPrefix(key, prefix) {
			delete(c.pending, key)
			c.group.Forget(key)
		}
	}
	n := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			c.group.Forget(key)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.pending {
		c.group.Forget(key)
	}
	clear(c.pending)
	for key := range c.store.Items() {
		c.group.Forget(key)
	}
	c.store.Flush()
}

// Stats returns the counters and the current keys in sorted order.
func (c *Cache) Stats() Stats {
	items := c.store.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		StaleHits:     c.staleHits.Load(),
		Builds:        c.builds.Load(),
		BuildFailures: c.failures.Load(),
		Entries:       len(keys),
		Keys:          keys,
	}
}
