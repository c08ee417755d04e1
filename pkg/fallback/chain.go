// Package fallback runs one aggregation pass over the ordered source tiers.
//
// The tiers are tried in order: live AA (with the database merged in when
// it also answers), the database alone, the last known good snapshot, and
// the bundled seed. The first tier that yields a non-empty catalog wins;
// results from different tiers are never combined. When every tier fails
// the pass returns an *errors.AllSourcesFailedError carrying each tier's
// error.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/aigo/internal/snapshot"
	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/merge"
	"github.com/agentstation/aigo/pkg/sources"
)

// Tier names one stage of the chain.
type Tier string

// Tiers in chain order.
const (
	TierLiveAA   Tier = "live_aa"
	TierDatabase Tier = "database"
	TierSnapshot Tier = "snapshot"
	TierSeed     Tier = "seed"
)

// Tiers returns the chain order.
func Tiers() []Tier {
	return []Tier{TierLiveAA, TierDatabase, TierSnapshot, TierSeed}
}

// Attempt records one tier invocation.
type Attempt struct {
	Tier     Tier          `json:"tier" yaml:"tier"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Err      error         `json:"-" yaml:"-"`
}

// Outcome is the result of a successful pass.
type Outcome struct {
	Models []catalog.UnifiedModel

	// Tier is the tier that produced Models; DataSource is its string form.
	Tier       Tier
	DataSource string

	// FallbackReason explains why earlier tiers were skipped. It is empty
	// when the primary tier answered.
	FallbackReason string

	Attempts []Attempt
	Warnings []string
	Report   merge.Report
	PassID   string
	BuiltAt  utc.Time
}

// Chain orchestrates the tiers. It is safe for concurrent use; each Run is
// an independent pass.
type Chain struct {
	aa          sources.Adapter
	db          sources.Adapter
	seed        sources.Adapter
	corrections sources.Adapter
	store       snapshot.Store
	engine      *merge.Engine
	logger      *zerolog.Logger
	tracer      trace.Tracer
}

// Option configures a Chain.
type Option func(*Chain)

// WithAA sets the AA adapter of the live tier.
func WithAA(a sources.Adapter) Option {
	return func(c *Chain) { c.aa = a }
}

// WithDatabase sets the database adapter.
func WithDatabase(a sources.Adapter) Option {
	return func(c *Chain) { c.db = a }
}

// WithSeed sets the seed adapter.
func WithSeed(a sources.Adapter) Option {
	return func(c *Chain) { c.seed = a }
}

// WithCorrections adds an override source to every merging tier.
func WithCorrections(a sources.Adapter) Option {
	return func(c *Chain) { c.corrections = a }
}

// WithSnapshotStore enables the snapshot tier and snapshot saves.
func WithSnapshotStore(s snapshot.Store) Option {
	return func(c *Chain) { c.store = s }
}

// WithEngine replaces the merge engine.
func WithEngine(e *merge.Engine) Option {
	return func(c *Chain) { c.engine = e }
}

// WithLogger sets the chain logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Chain) { c.logger = logger }
}

// WithTracerProvider sets the OpenTelemetry provider for tier spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Chain) { c.tracer = tp.Tracer(tracerName) }
}

const tracerName = "github.com/agentstation/aigo/pkg/fallback"

// New creates a chain. Unconfigured tiers fail with an empty adapter error
// so the chain moves past them.
func New(opts ...Option) *Chain {
	c := &Chain{
		logger: logging.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = merge.New(merge.WithLogger(c.logger))
	}
	return c
}

// pass is the per-run state shared by the tiers.
type pass struct {
	id          string
	db          *sources.Memo
	corrections []sources.Record
	warnings    []string
}

// tierResult is what a successful tier hands back.
type tierResult struct {
	models []catalog.UnifiedModel
	report merge.Report
}

// Run executes one pass.
func (c *Chain) Run(ctx context.Context) (*Outcome, error) {
	p := &pass{id: uuid.NewString()}
	ctx = logging.WithPassID(logging.WithLogger(ctx, c.logger), p.id)
	logger := logging.Ctx(ctx)

	if c.db != nil {
		p.db = sources.Memoize(c.db)
	}
	c.loadCorrections(ctx, p)

	tiers := []struct {
		tier Tier
		run  func(context.Context, *pass) (*tierResult, error)
	}{
		{TierLiveAA, c.runLive},
		{TierDatabase, c.runDatabase},
		{TierSnapshot, c.runSnapshot},
		{TierSeed, c.runSeed},
	}

	var (
		attempts []Attempt
		failures []errors.TierFailure
	)
	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := c.traced(ctx, p, t.tier, t.run)
		attempts = append(attempts, Attempt{Tier: t.tier, Duration: time.Since(start), Err: err})

		if err != nil {
			failures = append(failures, errors.TierFailure{Tier: string(t.tier), Err: err})
			logger.Warn().Err(err).Str("tier", string(t.tier)).Msg("Tier failed")
			continue
		}

		out := &Outcome{
			Models:         res.models,
			Tier:           t.tier,
			DataSource:     string(t.tier),
			FallbackReason: reason(failures),
			Attempts:       attempts,
			Warnings:       p.warnings,
			Report:         res.report,
			PassID:         p.id,
			BuiltAt:        utc.Now(),
		}
		if t.tier == TierLiveAA || t.tier == TierDatabase {
			c.saveSnapshot(ctx, t.tier, res.models)
		}

		event := logger.Info()
		if out.FallbackReason != "" {
			event = logger.Warn().Str("fallback_reason", out.FallbackReason)
		}
		event.Str("tier", out.DataSource).
			Int("models", len(out.Models)).
			Int("malformed", out.Report.Malformed).
			Int("aliases", len(out.Report.Aliases)).
			Msg("Catalog built")
		return out, nil
	}

	err := errors.NewAllSourcesFailedError(failures)
	logger.Error().Err(err).Msg("All sources failed")
	return nil, err
}

func (c *Chain) traced(ctx context.Context, p *pass, tier Tier, run func(context.Context, *pass) (*tierResult, error)) (*tierResult, error) {
	ctx, span := c.tracer.Start(ctx, "fallback."+string(tier),
		trace.WithAttributes(
			attribute.String("aigo.tier", string(tier)),
			attribute.String("aigo.pass_id", p.id),
		),
	)
	defer span.End()

	ctx = logging.WithTier(ctx, string(tier))
	res, err := run(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("aigo.models", len(res.models)))
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// reason summarizes the failures that led to a non-primary tier.
func reason(failures []errors.TierFailure) string {
	if len(failures) == 0 {
		return ""
	}
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

func notConfigured(tier Tier) error {
	return errors.NewAdapterError(string(tier), errors.KindEmpty, "not configured", nil)
}

func (c *Chain) loadCorrections(ctx context.Context, p *pass) {
	if c.corrections == nil {
		return
	}
	batch, err := c.corrections.Fetch(ctx)
	if err != nil {
		p.warnings = append(p.warnings, fmt.Sprintf("%s: %v", c.corrections.Name(), err))
		logging.Ctx(ctx).Warn().Err(err).Msg("Corrections unavailable")
		return
	}
	p.corrections = batch.Records
}

// runLive fetches AA and the database concurrently. The tier stands or
// falls with AA; the database only enriches it.
func (c *Chain) runLive(ctx context.Context, p *pass) (*tierResult, error) {
	if c.aa == nil {
		return nil, notConfigured(TierLiveAA)
	}

	var (
		g                errgroup.Group
		aaBatch, dbBatch *sources.Batch
		aaErr, dbErr     error
	)
	// errors are captured rather than returned so neither fetch is cut short
	g.Go(func() error {
		aaBatch, aaErr = c.aa.Fetch(logging.WithAdapter(ctx, c.aa.Name()))
		return nil
	})
	if p.db != nil {
		g.Go(func() error {
			dbBatch, dbErr = p.db.Fetch(logging.WithAdapter(ctx, p.db.Name()))
			return nil
		})
	}
	_ = g.Wait()

	if aaErr != nil {
		return nil, aaErr
	}
	if aaBatch.Len() == 0 {
		return nil, errors.NewAdapterError(c.aa.Name(), errors.KindEmpty, "no records", nil)
	}

	records := append([]sources.Record(nil), aaBatch.Records...)
	skipped := aaBatch.Skipped
	switch {
	case p.db == nil:
	case dbErr != nil:
		p.warnings = append(p.warnings, fmt.Sprintf("%s: %v", p.db.Name(), dbErr))
	case dbBatch != nil:
		records = append(records, dbBatch.Records...)
		skipped += dbBatch.Skipped
	}

	return c.merge(string(TierLiveAA), records, p, skipped)
}

func (c *Chain) runDatabase(ctx context.Context, p *pass) (*tierResult, error) {
	if p.db == nil {
		return nil, notConfigured(TierDatabase)
	}
	batch, err := p.db.Fetch(logging.WithAdapter(ctx, p.db.Name()))
	if err != nil {
		return nil, err
	}
	if batch.Len() == 0 {
		return nil, errors.NewAdapterError(p.db.Name(), errors.KindEmpty, "no records", nil)
	}
	return c.merge(string(TierDatabase), batch.Records, p, batch.Skipped)
}

func (c *Chain) runSnapshot(ctx context.Context, p *pass) (*tierResult, error) {
	if c.store == nil {
		return nil, notConfigured(TierSnapshot)
	}
	ctx, cancel := context.WithTimeout(ctx, constants.SnapshotTimeout)
	defer cancel()

	snap, err := c.store.Load(ctx)
	if err != nil {
		kind := errors.KindNetwork
		switch {
		case errors.IsNotFound(err):
			kind = errors.KindEmpty
		case errors.IsValidationError(err):
			kind = errors.KindParse
		case ctx.Err() != nil:
			kind = errors.KindTimeout
		}
		return nil, errors.WrapAdapter(string(TierSnapshot), kind, err)
	}
	if len(snap.Models) == 0 {
		return nil, errors.NewAdapterError(string(TierSnapshot), errors.KindEmpty, "snapshot has no models", nil)
	}

	p.warnings = append(p.warnings, fmt.Sprintf("serving snapshot saved at %s by tier %s",
		snap.SavedAt.Time.Format(constants.TimeFormatISO8601), snap.Tier))
	return &tierResult{
		models: snap.Models,
		report: merge.Report{Models: len(snap.Models)},
	}, nil
}

func (c *Chain) runSeed(ctx context.Context, p *pass) (*tierResult, error) {
	if c.seed == nil {
		return nil, notConfigured(TierSeed)
	}
	batch, err := c.seed.Fetch(logging.WithAdapter(ctx, c.seed.Name()))
	if err != nil {
		return nil, err
	}
	if batch.Len() == 0 {
		return nil, errors.NewAdapterError(c.seed.Name(), errors.KindEmpty, "no records", nil)
	}
	return c.merge(string(TierSeed), batch.Records, p, batch.Skipped)
}

// merge runs the engine over records plus any corrections. Adapter-level
// skips are added to the report's malformed count.
func (c *Chain) merge(source string, records []sources.Record, p *pass, skipped int) (*tierResult, error) {
	if len(p.corrections) > 0 {
		records = append(records, p.corrections...)
	}
	res := c.engine.Merge(records)
	res.Report.Malformed += skipped
	if len(res.Models) == 0 {
		return nil, errors.NewAdapterError(source, errors.KindEmpty, "merge produced no models", nil)
	}
	return &tierResult{models: res.Models, report: res.Report}, nil
}

func (c *Chain) saveSnapshot(ctx context.Context, tier Tier, models []catalog.UnifiedModel) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.SnapshotTimeout)
	defer cancel()

	if err := c.store.Save(ctx, snapshot.New(string(tier), models)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Snapshot save failed")
		return
	}
	logging.Ctx(ctx).Debug().Int("models", len(models)).Msg("Snapshot saved")
}
