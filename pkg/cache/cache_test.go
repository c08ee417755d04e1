package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/cache"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counter returns a builder that yields "v1", "v2", ... and counts calls.
func counter(calls *atomic.Int32) cache.Builder {
	return func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		return fmt.Sprintf("v%d", n), nil
	}
}

func TestSingleFlight(t *testing.T) {
	c := cache.New()

	var calls atomic.Int32
	release := make(chan struct{})
	build := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "catalog", nil
	}

	const callers = 50
	var wg sync.WaitGroup
	results := make([]cache.Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrBuild(context.Background(), "k", time.Minute, build)
		}(i)
	}

	// let every caller queue up behind the first build
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "catalog", results[i].Value)
	}
	assert.EqualValues(t, 1, c.Stats().Builds)
}

func TestFreshHit(t *testing.T) {
	clk := newClock()
	c := cache.New(cache.WithClock(clk.Now))
	var calls atomic.Int32

	first, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "v1", first.Value)

	clk.Advance(10 * time.Second)
	second, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.False(t, second.Stale)
	assert.Equal(t, 10*time.Second, second.Age)
	assert.Equal(t, first.BuiltAt, second.BuiltAt)
	assert.EqualValues(t, 1, calls.Load())

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestExpiredRebuilds(t *testing.T) {
	clk := newClock()
	c := cache.New(cache.WithClock(clk.Now))
	var calls atomic.Int32

	_, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)

	clk.Advance(time.Minute)
	res, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, "v2", res.Value)
}

func TestStaleWhileRevalidate(t *testing.T) {
	logging.DisableLoggingForTest(t)

	clk := newClock()
	c := cache.New(cache.WithClock(clk.Now), cache.WithStaleWhileRevalidate(true))
	var calls atomic.Int32

	_, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	res, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.True(t, res.Stale)
	assert.Equal(t, "v1", res.Value, "stale value served immediately")
	assert.Equal(t, 2*time.Minute, res.Age)

	assert.Eventually(t, func() bool {
		r, ok := c.Peek("k")
		return ok && r.Value == "v2"
	}, time.Second, 5*time.Millisecond, "background refresh replaces the entry")

	res, err = c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, "v2", res.Value)
	assert.False(t, res.Stale)
	assert.EqualValues(t, 1, c.Stats().StaleHits)
}

func TestBuildFailureKeepsEntry(t *testing.T) {
	clk := newClock()
	c := cache.New(cache.WithClock(clk.Now))
	var calls atomic.Int32

	_, err := c.GetOrBuild(context.Background(), "k", time.Minute, counter(&calls))
	require.NoError(t, err)

	clk.Advance(time.Hour)
	cause := errors.NewAllSourcesFailedError(nil)
	_, err = c.GetOrBuild(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return nil, cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCacheBuild)
	assert.ErrorIs(t, err, errors.ErrAllSourcesFailed)

	var buildErr *errors.CacheBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "k", buildErr.Key)

	prev, ok := c.Peek("k")
	require.True(t, ok, "previous entry is not evicted")
	assert.Equal(t, "v1", prev.Value)
	assert.EqualValues(t, 1, c.Stats().BuildFailures)
}

func TestRebuild(t *testing.T) {
	c := cache.New()
	var calls atomic.Int32

	_, err := c.GetOrBuild(context.Background(), "k", time.Hour, counter(&calls))
	require.NoError(t, err)

	res, err := c.Rebuild(context.Background(), "k", counter(&calls))
	require.NoError(t, err)
	assert.Equal(t, "v2", res.Value, "fresh entries are rebuilt on demand")

	_, err = c.Rebuild(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	assert.ErrorIs(t, err, errors.ErrCacheBuild)

	prev, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "v2", prev.Value)
}

func TestFirstBuildFailureCachesNothing(t *testing.T) {
	c := cache.New()
	_, err := c.GetOrBuild(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)
	_, ok := c.Peek("k")
	assert.False(t, ok)
}

func TestInvalidateAndClear(t *testing.T) {
	c := cache.New()
	var calls atomic.Int32
	for _, key := range []string{"catalog:all", "catalog:query:a", "catalog:query:b", "other"} {
		_, err := c.GetOrBuild(context.Background(), key, time.Minute, counter(&calls))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"catalog:all", "catalog:query:a", "catalog:query:b", "other"}, c.Stats().Keys)

	assert.Equal(t, 2, c.Invalidate("catalog:query:"))
	assert.Equal(t, []string{"catalog:all", "other"}, c.Stats().Keys)

	c.Clear()
	assert.Zero(t, c.Stats().Entries)

	res, err := c.GetOrBuild(context.Background(), "catalog:all", time.Minute, counter(&calls))
	require.NoError(t, err)
	assert.False(t, res.Cached, "cleared entries are rebuilt")
}

func TestClearDuringBuildDoesNotStore(t *testing.T) {
	c := cache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrBuild(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	c.Clear()
	close(release)
	<-done

	_, ok := c.Peek("k")
	assert.False(t, ok)
}

func TestInvalidateSparesOtherBuilds(t *testing.T) {
	c := cache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrBuild(context.Background(), "catalog:all", time.Minute, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "catalog", nil
		})
	}()

	<-started
	assert.Zero(t, c.Invalidate("catalog:query:"))
	close(release)
	<-done

	res, ok := c.Peek("catalog:all")
	require.True(t, ok, "a build outside the invalidated prefix is stored")
	assert.Equal(t, "catalog", res.Value)
}

func TestInvalidateDuringBuildDoesNotStore(t *testing.T) {
	c := cache.New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrBuild(context.Background(), "catalog:query:a", time.Minute, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "old view", nil
		})
	}()

	<-started
	c.Invalidate("catalog:query:")
	close(release)
	<-done

	_, ok := c.Peek("catalog:query:a")
	assert.False(t, ok)
}

func TestCallerCancellation(t *testing.T) {
	c := cache.New()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetOrBuild(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
