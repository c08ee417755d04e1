package aigo

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentstation/aigo/internal/snapshot"
	"github.com/agentstation/aigo/internal/sources/seed"
	"github.com/agentstation/aigo/pkg/cache"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/fallback"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/sources"
)

// Option is a function that configures an Aggregator
type Option func(*config) error

type config struct {
	aa          sources.Adapter
	db          sources.Adapter
	seed        sources.Adapter
	corrections sources.Adapter
	store       snapshot.Store

	aaTimeout time.Duration
	dbTimeout time.Duration

	ttl    time.Duration
	swr    bool
	now    func() time.Time
	logger *zerolog.Logger
	tp     trace.TracerProvider
}

func defaultConfig() *config {
	return &config{
		seed:      seed.New(),
		aaTimeout: constants.AAFetchTimeout,
		dbTimeout: constants.DatabaseFetchTimeout,
		ttl:       constants.CacheTTL,
		now:       time.Now,
		logger:    logging.Default(),
	}
}

// chainOptions wraps the live adapters with the timeout and retry guard.
// Seed and corrections are local reads and run unguarded.
func (c *config) chainOptions() []fallback.Option {
	opts := []fallback.Option{fallback.WithLogger(c.logger)}
	if c.aa != nil {
		opts = append(opts, fallback.WithAA(sources.Guard(c.aa, sources.DefaultGuardOptions(c.aaTimeout))))
	}
	if c.db != nil {
		opts = append(opts, fallback.WithDatabase(sources.Guard(c.db, sources.DefaultGuardOptions(c.dbTimeout))))
	}
	if c.seed != nil {
		opts = append(opts, fallback.WithSeed(c.seed))
	}
	if c.corrections != nil {
		opts = append(opts, fallback.WithCorrections(c.corrections))
	}
	if c.store != nil {
		opts = append(opts, fallback.WithSnapshotStore(c.store))
	}
	if c.tp != nil {
		opts = append(opts, fallback.WithTracerProvider(c.tp))
	}
	return opts
}

func (c *config) cacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithStaleWhileRevalidate(c.swr),
		cache.WithClock(c.now),
		cache.WithLogger(c.logger),
	}
}

// WithAA configures the Artificial Analysis adapter of the live tier.
func WithAA(adapter sources.Adapter) Option {
	return func(c *config) error {
		if adapter == nil {
			return errors.NewValidationError("aa", nil, "adapter is nil")
		}
		c.aa = adapter
		return nil
	}
}

// WithDatabase configures the operational database adapter.
func WithDatabase(adapter sources.Adapter) Option {
	return func(c *config) error {
		if adapter == nil {
			return errors.NewValidationError("database", nil, "adapter is nil")
		}
		c.db = adapter
		return nil
	}
}

// WithSeed replaces the bundled seed catalog of the last tier.
func WithSeed(adapter sources.Adapter) Option {
	return func(c *config) error {
		c.seed = adapter
		return nil
	}
}

// WithoutSeed disables the seed tier, so a pass fails when every other
// tier does.
func WithoutSeed() Option {
	return WithSeed(nil)
}

// WithCorrections configures the hand-maintained overrides applied to
// every pass.
func WithCorrections(adapter sources.Adapter) Option {
	return func(c *config) error {
		c.corrections = adapter
		return nil
	}
}

// WithSnapshotStore configures where the last good catalog is kept.
func WithSnapshotStore(store snapshot.Store) Option {
	return func(c *config) error {
		c.store = store
		return nil
	}
}

// WithAdapterTimeouts bounds each attempt of the AA and database adapters.
func WithAdapterTimeouts(aa, db time.Duration) Option {
	return func(c *config) error {
		if aa <= 0 || db <= 0 {
			return errors.NewValidationError("timeout", []time.Duration{aa, db}, "must be positive")
		}
		c.aaTimeout, c.dbTimeout = aa, db
		return nil
	}
}

// WithCacheTTL configures how long a built catalog is served as fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) error {
		if ttl <= 0 {
			return errors.NewValidationError("cache_ttl", ttl, "must be positive")
		}
		c.ttl = ttl
		return nil
	}
}

// WithStaleWhileRevalidate serves an expired catalog while a background
// build refreshes it.
func WithStaleWhileRevalidate(enabled bool) Option {
	return func(c *config) error {
		c.swr = enabled
		return nil
	}
}

// WithClock replaces time.Now for cache ages.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		c.now = now
		return nil
	}
}

// WithLogger configures the logger used by every component.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithTracerProvider configures the tracer for tier spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) error {
		c.tp = tp
		return nil
	}
}
