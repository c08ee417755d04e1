// Package database reads model rows from the internal relational store and
// normalizes them into source records. It only ever issues read queries;
// schema ownership and migrations live outside this module.
//
// Two database/sql drivers are registered: pgx for PostgreSQL in production
// and modernc sqlite for local files and tests.
package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/bytedance/sonic"

	// drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/sources"
)

// AdapterName is the adapter's name in logs and errors.
const AdapterName = "database"

// Open opens a read pool for driver, which may be "postgres", "pgx",
// "sqlite" or "sqlite3".
func Open(driver, dsn string) (*sql.DB, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, errors.NewConfigError("database", "open failed", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", errors.NewConfigError("database", "unsupported driver "+driver, nil)
	}
}

// Adapter is the database source adapter.
type Adapter struct {
	db              *sql.DB
	includeInactive bool
	suites          map[string]sources.Metric
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithInactive includes models flagged inactive.
func WithInactive() Option {
	return func(a *Adapter) {
		a.includeInactive = true
	}
}

// WithSuites maps benchmark suite slugs to metrics. The default maps
// "intelligence" and "speed".
func WithSuites(suites map[string]sources.Metric) Option {
	return func(a *Adapter) {
		a.suites = suites
	}
}

// New creates an adapter over an open pool.
func New(db *sql.DB, opts ...Option) *Adapter {
	a := &Adapter{
		db: db,
		suites: map[string]sources.Metric{
			"intelligence": sources.MetricIntelligence,
			"speed":        sources.MetricSpeed,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements sources.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// Tag implements sources.Adapter.
func (a *Adapter) Tag() sources.Tag { return sources.TagDatabase }

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(ctx context.Context) (*sources.Batch, error) {
	batch := &sources.Batch{Adapter: a.Name(), Tag: a.Tag(), FetchedAt: utc.Now()}

	rows, err := a.models(ctx, batch)
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	if err := a.attachStatus(ctx, rows, batch); err != nil {
		return nil, a.fail(ctx, err)
	}
	if err := a.attachPricing(ctx, rows, batch); err != nil {
		return nil, a.fail(ctx, err)
	}
	if err := a.attachBenchmarks(ctx, rows, batch); err != nil {
		return nil, a.fail(ctx, err)
	}

	for _, r := range rows.ordered {
		batch.Records = append(batch.Records, *r)
	}

	if batch.Skipped > 0 {
		logging.Ctx(ctx).Warn().
			Str("adapter", a.Name()).
			Int("skipped", batch.Skipped).
			Msg("Skipped malformed rows")
	}
	return batch, nil
}

func (a *Adapter) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.NewAdapterError(a.Name(), errors.KindTimeout, "query interrupted", err)
	}
	return errors.WrapAdapter(a.Name(), errors.KindNetwork, err)
}

// modelSet indexes records by model id in query order.
type modelSet struct {
	byID    map[string]*sources.Record
	ordered []*sources.Record
}

const modelsQuery = `
SELECT m.id, m.slug, m.name, m.description, m.modalities, m.capabilities,
       m.context_window, m.is_active, m.updated_at, p.slug, p.name
FROM models m
JOIN providers p ON p.id = m.provider_id
ORDER BY p.name, m.name, m.id`

func (a *Adapter) models(ctx context.Context, batch *sources.Batch) (*modelSet, error) {
	rows, err := a.db.QueryContext(ctx, modelsQuery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	set := &modelSet{byID: make(map[string]*sources.Record)}
	for rows.Next() {
		var (
			id, providerSlug, providerName string
			slug, name, description        sql.NullString
			modalities, capabilities       sql.NullString
			contextWindow                  sql.NullFloat64
			isActive                       sql.NullBool
			updatedAt                      nullTime
		)
		if err := rows.Scan(&id, &slug, &name, &description, &modalities, &capabilities,
			&contextWindow, &isActive, &updatedAt, &providerSlug, &providerName); err != nil {
			batch.Skip(errors.NewMalformedRecordError(a.Name(), id, "unscannable row: "+err.Error()))
			continue
		}

		if strings.TrimSpace(name.String) == "" && strings.TrimSpace(slug.String) == "" {
			batch.Skip(errors.NewMalformedRecordError(a.Name(), id, "missing name and slug"))
			continue
		}
		active := !isActive.Valid || isActive.Bool
		if !active && !a.includeInactive {
			continue
		}

		rec := &sources.Record{
			Tag:          sources.TagDatabase,
			RawName:      strings.TrimSpace(name.String),
			Slug:         strings.TrimSpace(slug.String),
			Provider:     providerName,
			ProviderSlug: providerSlug,
			Metrics:      sources.Metrics{},
			Status:       sources.StatusUnknown,
			Modalities:   jsonList(modalities),
			Capabilities: jsonList(capabilities),
			IsActive:     &active,
			Description:  description.String,
			ObservedAt:   utc.Time{Time: updatedAt.Time},
		}
		if contextWindow.Valid && contextWindow.Float64 > 0 {
			rec.Metrics[sources.MetricContextWindow] = contextWindow.Float64
		}
		set.byID[id] = rec
		set.ordered = append(set.ordered, rec)
	}
	return set, rows.Err()
}

// Rows are ordered newest first, but the latest row per model is picked in
// Go so drivers that sort NULL timestamps first cannot reorder the choice.
const statusQuery = `
SELECT model_id, status, availability, latency_p50, latency_p95, latency_p99, region, checked_at
FROM model_status
ORDER BY model_id, checked_at DESC NULLS LAST`

func (a *Adapter) attachStatus(ctx context.Context, set *modelSet, batch *sources.Batch) error {
	rows, err := a.db.QueryContext(ctx, statusQuery)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	picked := make(map[string]time.Time)
	for rows.Next() {
		var (
			modelID        string
			status, region sql.NullString
			availability   sql.NullFloat64
			p50, p95, p99  sql.NullFloat64
			checkedAt      nullTime
		)
		if err := rows.Scan(&modelID, &status, &availability, &p50, &p95, &p99, &region, &checkedAt); err != nil {
			batch.Skip(errors.NewMalformedRecordError(a.Name(), modelID, "unscannable status row: "+err.Error()))
			continue
		}
		rec, ok := set.byID[modelID]
		if !ok || !latest(picked, modelID, checkedAt) {
			continue
		}

		rec.Status = sources.ParseStatus(status.String)
		rec.Availability = nil
		if availability.Valid {
			v := availability.Float64
			rec.Availability = &v
		}
		rec.Latency = nil
		if p50.Valid || p95.Valid || p99.Valid {
			rec.Latency = &sources.Latency{P50: p50.Float64, P95: p95.Float64, P99: p99.Float64}
		}
		rec.Region = region.String
		if checkedAt.Time.After(rec.ObservedAt.Time) {
			rec.ObservedAt = utc.Time{Time: checkedAt.Time}
		}
	}
	return rows.Err()
}

const pricingQuery = `
SELECT model_id, input_per_million, output_per_million, effective_from
FROM pricing
WHERE effective_to IS NULL
ORDER BY model_id, effective_from DESC NULLS LAST`

func (a *Adapter) attachPricing(ctx context.Context, set *modelSet, batch *sources.Batch) error {
	rows, err := a.db.QueryContext(ctx, pricingQuery)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	picked := make(map[string]time.Time)
	for rows.Next() {
		var (
			modelID       string
			input, output sql.NullFloat64
			effectiveFrom nullTime
		)
		if err := rows.Scan(&modelID, &input, &output, &effectiveFrom); err != nil {
			batch.Skip(errors.NewMalformedRecordError(a.Name(), modelID, "unscannable pricing row: "+err.Error()))
			continue
		}
		rec, ok := set.byID[modelID]
		if !ok || !latest(picked, modelID, effectiveFrom) {
			continue
		}

		delete(rec.Metrics, sources.MetricInputPrice)
		delete(rec.Metrics, sources.MetricOutputPrice)
		if input.Valid && input.Float64 >= 0 {
			rec.Metrics[sources.MetricInputPrice] = input.Float64
		}
		if output.Valid && output.Float64 >= 0 {
			rec.Metrics[sources.MetricOutputPrice] = output.Float64
		}
	}
	return rows.Err()
}

const benchmarksQuery = `
SELECT bs.model_id, su.slug, bs.score_normalized, bs.evaluation_date
FROM benchmark_scores bs
JOIN benchmark_suites su ON su.id = bs.suite_id
ORDER BY bs.model_id, su.slug, bs.evaluation_date DESC NULLS LAST`

func (a *Adapter) attachBenchmarks(ctx context.Context, set *modelSet, batch *sources.Batch) error {
	rows, err := a.db.QueryContext(ctx, benchmarksQuery)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	picked := make(map[string]time.Time)
	for rows.Next() {
		var (
			modelID, suite string
			score          sql.NullFloat64
			evaluatedAt    nullTime
		)
		if err := rows.Scan(&modelID, &suite, &score, &evaluatedAt); err != nil {
			batch.Skip(errors.NewMalformedRecordError(a.Name(), modelID, "unscannable benchmark row: "+err.Error()))
			continue
		}
		metric, ok := a.suites[suite]
		if !ok {
			continue
		}
		rec, ok := set.byID[modelID]
		if !ok || !score.Valid || score.Float64 <= 0 {
			continue
		}
		if latest(picked, modelID+"\x00"+suite, evaluatedAt) {
			rec.Metrics[metric] = score.Float64
		}
	}
	return rows.Err()
}

// latest reports whether a row stamped at t replaces the row picked so far
// for key, and records it if so. Undated rows lose to dated ones; on equal
// stamps the first row wins.
func latest(picked map[string]time.Time, key string, t nullTime) bool {
	prev, seen := picked[key]
	if seen && !t.Time.After(prev) {
		return false
	}
	picked[key] = t.Time
	return true
}

func jsonList(s sql.NullString) []string {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil
	}
	var out []string
	if err := sonic.UnmarshalString(s.String, &out); err != nil {
		// tolerate comma separated values
		for _, part := range strings.Split(s.String, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
