package aigo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo"
	"github.com/agentstation/aigo/internal/utils/ptr"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/query"
	"github.com/agentstation/aigo/pkg/sources"
)

// feed is an AA adapter whose records can be swapped between passes.
type feed struct {
	mu      sync.Mutex
	records []sources.Record
	err     error
	calls   atomic.Int32
}

func (f *feed) Name() string     { return "aa" }
func (f *feed) Tag() sources.Tag { return sources.TagAA }

func (f *feed) Fetch(ctx context.Context) (*sources.Batch, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &sources.Batch{Tag: sources.TagAA, Records: append([]sources.Record(nil), f.records...)}, nil
}

func (f *feed) set(records []sources.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func record(name, provider string, intelligence float64) sources.Record {
	return sources.Record{
		Tag:          sources.TagAA,
		RawName:      name,
		Provider:     provider,
		ProviderSlug: provider,
		Metrics:      sources.Metrics{sources.MetricIntelligence: intelligence},
		Status:       sources.StatusUnknown,
		ObservedAt:   utc.Time{Time: time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)},
	}
}

func records() []sources.Record {
	return []sources.Record{
		record("GPT-5 (high)", "openai", 68.5),
		record("Claude Opus 4.1", "anthropic", 59),
		record("o3", "openai", 67),
	}
}

func newAggregator(t *testing.T, f *feed, opts ...aigo.Option) aigo.Aggregator {
	t.Helper()
	logging.DisableLoggingForTest(t)
	agg, err := aigo.New(append([]aigo.Option{aigo.WithAA(f), aigo.WithLogger(logging.NewNopLogger())}, opts...)...)
	require.NoError(t, err)
	return agg
}

func TestSeedOnlyByDefault(t *testing.T) {
	logging.DisableLoggingForTest(t)

	agg, err := aigo.New()
	require.NoError(t, err)

	resp, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.Equal(t, "seed", resp.DataSource)
	assert.NotEmpty(t, resp.Models)
	assert.Contains(t, resp.FallbackReason, "live_aa")
	assert.Equal(t, constants.DefaultPageSize, resp.Limit)
}

func TestCatalogIsCached(t *testing.T) {
	f := &feed{records: records()}
	agg := newAggregator(t, f)

	first, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "live_aa", first.DataSource)
	assert.Empty(t, first.FallbackReason)
	assert.Equal(t, 3, first.Total)

	second, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.PassID, second.PassID)

	// a different query reuses the built catalog
	_, err = agg.Catalog(context.Background(), aigo.Request{Filters: query.Filters{Provider: "openai"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.calls.Load())

	stats := agg.CacheStats()
	assert.Equal(t, 3, stats.Entries)
	assert.Contains(t, stats.Keys, constants.CatalogCacheKey)
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
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

func TestViewsExpireWithCatalog(t *testing.T) {
	clk := &clock{now: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)}
	f := &feed{records: records()}
	agg := newAggregator(t, f, aigo.WithCacheTTL(time.Minute), aigo.WithClock(clk.Now))
	openai := aigo.Request{Filters: query.Filters{Provider: "openai"}}

	first, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)

	clk.Advance(50 * time.Second)
	view, err := agg.Catalog(context.Background(), openai)
	require.NoError(t, err)
	assert.True(t, view.Cached)
	assert.Equal(t, 50*time.Second, view.CacheAge, "age of the catalog, not of the view")
	assert.Equal(t, first.PassID, view.PassID)

	clk.Advance(50 * time.Second)
	again, err := agg.Catalog(context.Background(), openai)
	require.NoError(t, err)
	assert.False(t, again.Cached, "the view goes with its expired catalog")
	assert.Zero(t, again.CacheAge)
	assert.NotEqual(t, first.PassID, again.PassID)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestStaleCatalogIsFlagged(t *testing.T) {
	clk := &clock{now: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)}
	f := &feed{records: records()}
	agg := newAggregator(t, f,
		aigo.WithCacheTTL(time.Minute),
		aigo.WithStaleWhileRevalidate(true),
		aigo.WithClock(clk.Now),
	)

	first, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)

	clk.Advance(70 * time.Second)
	resp, err := agg.Catalog(context.Background(), aigo.Request{Filters: query.Filters{Provider: "openai"}})
	require.NoError(t, err)
	assert.Equal(t, first.PassID, resp.PassID)
	assert.True(t, resp.Cached)
	assert.True(t, resp.Stale)
	assert.Equal(t, 70*time.Second, resp.CacheAge)

	assert.Eventually(t, func() bool { return f.calls.Load() == 2 }, time.Second, 5*time.Millisecond,
		"the expired catalog is refreshed in the background")
}

func TestCatalogQuery(t *testing.T) {
	agg := newAggregator(t, &feed{records: records()})

	resp, err := agg.Catalog(context.Background(), aigo.Request{
		Filters: query.Filters{Intelligence: query.Range{Min: ptr.Float64(60)}},
		Sort:    query.Sort{Field: query.FieldIntelligence, Direction: query.Asc},
		Limit:   1,
		Offset:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Models, 1)
	assert.Equal(t, "gpt-5-high", resp.Models[0].ID)
}

func TestCatalogRejectsInvalidQuery(t *testing.T) {
	f := &feed{records: records()}
	agg := newAggregator(t, f)

	_, err := agg.Catalog(context.Background(), aigo.Request{Filters: query.Filters{AAOnly: true, DBOnly: true}})
	assert.True(t, errors.IsValidationError(err))

	_, err = agg.Catalog(context.Background(), aigo.Request{Sort: query.Sort{Field: "vibes"}})
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, f.calls.Load(), "invalid queries never build")
}

func TestModel(t *testing.T) {
	agg := newAggregator(t, &feed{records: records()})

	m, err := agg.Model(context.Background(), "GPT-5 (high)")
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-high", m.ID)

	m, err = agg.Model(context.Background(), "claude-opus-4-1")
	require.NoError(t, err)
	assert.Equal(t, "Claude Opus 4.1", m.Name)

	_, err = agg.Model(context.Background(), "gemini-9")
	assert.True(t, errors.IsNotFound(err))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestProviders(t *testing.T) {
	agg := newAggregator(t, &feed{records: records()})

	providers, err := agg.Providers(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "openai", providers[0].Slug)
	assert.Equal(t, 2, providers[0].ModelCount)
	assert.Equal(t, "anthropic", providers[1].Slug)
}

func TestRefresh(t *testing.T) {
	f := &feed{records: records()}
	agg := newAggregator(t, f, aigo.WithoutSeed())

	_, err := agg.Catalog(context.Background(), aigo.Request{Filters: query.Filters{Provider: "openai"}})
	require.NoError(t, err)

	f.set(append(records(), record("Grok 4", "xai", 65)), nil)
	require.NoError(t, agg.Refresh(context.Background()))
	assert.Equal(t, []string{constants.CatalogCacheKey}, agg.CacheStats().Keys, "views of the old catalog are dropped")

	resp, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)

	// a failed refresh keeps serving the last catalog
	f.set(nil, errors.NewAdapterError("aa", errors.KindParse, "bad feed", nil))
	err = agg.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCacheBuild)

	resp, err = agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)
	assert.True(t, resp.Cached)
}

func TestAllSourcesFailed(t *testing.T) {
	f := &feed{err: errors.NewAdapterError("aa", errors.KindEmpty, "no models", nil)}
	agg := newAggregator(t, f, aigo.WithoutSeed())

	_, err := agg.Catalog(context.Background(), aigo.Request{})
	require.Error(t, err)
	assert.True(t, errors.IsAllSourcesFailed(err))
	assert.ErrorIs(t, err, errors.ErrCacheBuild)
	assert.Zero(t, agg.CacheStats().Entries)
}

func TestClearAndInvalidate(t *testing.T) {
	f := &feed{records: records()}
	agg := newAggregator(t, f)

	_, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Invalidate(constants.QueryCachePrefix))

	agg.ClearCache()
	assert.Zero(t, agg.CacheStats().Entries)

	resp, err := agg.Catalog(context.Background(), aigo.Request{})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestInvalidOptions(t *testing.T) {
	_, err := aigo.New(aigo.WithCacheTTL(0))
	assert.True(t, errors.IsValidationError(err))

	_, err = aigo.New(aigo.WithAA(nil))
	assert.Error(t, err)

	_, err = aigo.New(aigo.WithAdapterTimeouts(time.Second, 0))
	assert.Error(t, err)
}
