// Package aigo aggregates AI model metadata from the Artificial Analysis
// feed and an operational database into one cached, queryable catalog.
//
// Catalogs are built by a fallback chain (live AA, database, snapshot, seed)
// and cached with single-flight builds. Queries filter, sort and page the
// cached catalog without touching the sources.
package aigo

import (
	"context"
	"time"

	"github.com/agentstation/utc"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/agentstation/aigo/pkg/cache"
	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/fallback"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/query"
)

// Aggregator serves the unified catalog.
type Aggregator interface {
	// Catalog returns one page of the filtered and sorted catalog
	Catalog(ctx context.Context, req Request) (*Response, error)

	// Model returns the model with the given slug, name or alias
	Model(ctx context.Context, slugOrAlias string) (*catalog.UnifiedModel, error)

	// Providers summarizes the catalog per provider
	Providers(ctx context.Context) ([]catalog.ProviderSummary, error)

	// Refresh rebuilds the catalog now, keeping the cached one on failure
	Refresh(ctx context.Context) error

	// ClearCache drops every cached entry
	ClearCache()

	// Invalidate drops cached entries whose key starts with prefix
	Invalidate(prefix string) int

	// CacheStats returns the cache counters
	CacheStats() cache.Stats
}

// Request selects a page of the catalog.
type Request struct {
	Filters query.Filters `json:"filters"`
	Sort    query.Sort    `json:"sort"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// Response is one page of the catalog plus how it was produced.
type Response struct {
	Models     []catalog.UnifiedModel `json:"models" yaml:"models"`
	Total      int                    `json:"total" yaml:"total"`
	Limit      int                    `json:"limit" yaml:"limit"`
	Offset     int                    `json:"offset" yaml:"offset"`
	Page       int                    `json:"page" yaml:"page"`
	TotalPages int                    `json:"total_pages" yaml:"total_pages"`

	DataSource     string        `json:"data_source" yaml:"data_source"`
	FallbackReason string        `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
	Warnings       []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Cached         bool          `json:"cached" yaml:"cached"`
	Stale          bool          `json:"stale" yaml:"stale"`
	CacheAge       time.Duration `json:"cache_age" yaml:"cache_age"`
	PassID         string        `json:"pass_id" yaml:"pass_id"`
	Timestamp      utc.Time      `json:"timestamp" yaml:"timestamp"`
}

type aggregator struct {
	chain  *fallback.Chain
	cache  *cache.Cache
	ttl    time.Duration
	logger *zerolog.Logger
}

// New creates an Aggregator. Without options it serves the bundled seed
// catalog only.
func New(opts ...Option) (Aggregator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errors.NewConfigError("aggregator", "applying options", err)
		}
	}

	return &aggregator{
		chain:  fallback.New(cfg.chainOptions()...),
		cache:  cache.New(cfg.cacheOptions()...),
		ttl:    cfg.ttl,
		logger: cfg.logger,
	}, nil
}

// Catalog filters, sorts and pages the cached catalog. Filtered views are
// cached per catalog pass, so a view never outlives the catalog it was built
// from. Cached, Stale and CacheAge describe the catalog entry.
func (a *aggregator) Catalog(ctx context.Context, req Request) (*Response, error) {
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}
	if err := req.Sort.Validate(); err != nil {
		return nil, err
	}

	cat, err := a.cache.GetOrBuild(ctx, constants.CatalogCacheKey, a.ttl, a.build)
	if err != nil {
		return nil, err
	}
	out := cat.Value.(*fallback.Outcome)

	key, err := viewKey(out.PassID, req)
	if err != nil {
		return nil, err
	}
	res, err := a.cache.GetOrBuild(ctx, key, a.ttl, func(context.Context) (any, error) {
		return query.Apply(out.Models, req.Filters, req.Sort)
	})
	if err != nil {
		return nil, err
	}

	page := query.Paginate(res.Value.([]catalog.UnifiedModel), req.Limit, req.Offset)
	return &Response{
		Models:         page.Models,
		Total:          page.Total,
		Limit:          page.Limit,
		Offset:         page.Offset,
		Page:           page.Page,
		TotalPages:     page.TotalPages,
		DataSource:     out.DataSource,
		FallbackReason: out.FallbackReason,
		Warnings:       out.Warnings,
		Cached:         cat.Cached,
		Stale:          cat.Stale,
		CacheAge:       cat.Age,
		PassID:         out.PassID,
		Timestamp:      utc.Now(),
	}, nil
}

// viewKey derives a stable cache key from the catalog pass and the query
// part of req.
func viewKey(passID string, req Request) (string, error) {
	data, err := sonic.ConfigStd.Marshal(struct {
		Filters query.Filters `json:"f"`
		Sort    query.Sort    `json:"s"`
	}{req.Filters, req.Sort})
	if err != nil {
		return "", errors.NewValidationError("request", req, err.Error())
	}
	return constants.QueryCachePrefix + passID + ":" + string(data), nil
}

// outcome returns the cached unfiltered catalog, building it when needed.
func (a *aggregator) outcome(ctx context.Context) (*fallback.Outcome, error) {
	res, err := a.cache.GetOrBuild(ctx, constants.CatalogCacheKey, a.ttl, a.build)
	if err != nil {
		return nil, err
	}
	return res.Value.(*fallback.Outcome), nil
}

// build runs one aggregation pass. Views of earlier passes are dropped once
// the new catalog exists.
func (a *aggregator) build(ctx context.Context) (any, error) {
	out, err := a.chain.Run(logging.WithLogger(ctx, a.logger))
	if err != nil {
		return nil, err
	}
	if n := a.cache.Invalidate(constants.QueryCachePrefix); n > 0 {
		a.logger.Debug().
			Int("views_dropped", n).
			Str("pass_id", out.PassID).
			Msg("Dropped views of previous catalog")
	}
	return out, nil
}

// Model looks a model up by id, name or alias.
func (a *aggregator) Model(ctx context.Context, slugOrAlias string) (*catalog.UnifiedModel, error) {
	if slugOrAlias == "" {
		return nil, errors.NewValidationError("model", slugOrAlias, "is required")
	}
	out, err := a.outcome(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out.Models {
		if out.Models[i].MatchesName(slugOrAlias) {
			m := out.Models[i]
			return &m, nil
		}
	}
	return nil, errors.NewNotFoundError("model", slugOrAlias)
}

// Providers summarizes the cached catalog per provider.
func (a *aggregator) Providers(ctx context.Context) ([]catalog.ProviderSummary, error) {
	out, err := a.outcome(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Providers(out.Models), nil
}

// Refresh rebuilds the catalog now. Views derived from the previous catalog
// are dropped by the rebuild.
func (a *aggregator) Refresh(ctx context.Context) error {
	res, err := a.cache.Rebuild(ctx, constants.CatalogCacheKey, a.build)
	if err != nil {
		return err
	}
	out := res.Value.(*fallback.Outcome)
	a.logger.Info().
		Str("data_source", out.DataSource).
		Str("pass_id", out.PassID).
		Msg("Catalog refreshed")
	return nil
}

func (a *aggregator) ClearCache() {
	a.cache.Clear()
}

func (a *aggregator) Invalidate(prefix string) int {
	return a.cache.Invalidate(prefix)
}

func (a *aggregator) CacheStats() cache.Stats {
	return a.cache.Stats()
}
