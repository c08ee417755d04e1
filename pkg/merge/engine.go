// Package merge combines normalized source records into unified models.
//
// Records are grouped by canonical identity, each field is resolved from
// the most authoritative source that reports it, and the derived rank score
// is computed against the maxima observed in the same pass. The engine is a
// pure function of its input: the same records always produce the same
// models in the same order.
package merge

import (
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/sources"
)

// Report accounts for everything the pass did not turn into a model as-is.
type Report struct {
	Records              int                 `json:"records" yaml:"records"`
	Models               int                 `json:"models" yaml:"models"`
	Discarded            int                 `json:"discarded" yaml:"discarded"`
	Malformed            int                 `json:"malformed" yaml:"malformed"`
	UnmatchedCorrections int                 `json:"unmatched_corrections" yaml:"unmatched_corrections"`
	Aliases              []identity.Alias    `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Conflicts            []identity.Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Result is the output of one merge.
type Result struct {
	Models []catalog.UnifiedModel
	Report Report
}

// Engine merges records. It holds no per-pass state and is safe for
// concurrent use.
type Engine struct {
	authorities []Authority
	logger      *zerolog.Logger
	fuzzy       bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuthorities replaces the field precedence table.
func WithAuthorities(table []Authority) Option {
	return func(e *Engine) {
		e.authorities = table
	}
}

// WithLogger sets the logger passed to each pass's identity resolver.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithoutFuzzy disables token-level alias matching.
func WithoutFuzzy() Option {
	return func(e *Engine) {
		e.fuzzy = false
	}
}

// New creates a merge engine with the default authority table.
func New(opts ...Option) *Engine {
	e := &Engine{
		authorities: DefaultAuthorities(),
		logger:      logging.Default(),
		fuzzy:       true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// group is every record that resolved to one identity.
type group struct {
	id      *identity.Identity
	records []sources.Record
}

// Merge builds the unified catalog from records of any tags. It never fails
// as a whole: malformed records and unusable groups are counted in the
// report and left out.
func (e *Engine) Merge(records []sources.Record) *Result {
	opts := []identity.Option{identity.WithLogger(e.logger)}
	if !e.fuzzy {
		opts = append(opts, identity.WithoutFuzzy())
	}
	resolver := identity.NewResolver(opts...)
	report := Report{Records: len(records)}

	ordered := slices.Clone(records)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if ta, tb := tagRank(a.Tag), tagRank(b.Tag); ta != tb {
			return ta < tb
		}
		if a.RawName != b.RawName {
			return a.RawName < b.RawName
		}
		return a.Slug < b.Slug
	})

	groups := make(map[string]*group)
	var order []string
	for _, rec := range ordered {
		if rec.Tag == sources.TagCorrection {
			key := rec.Slug
			if key == "" {
				key = rec.RawName
			}
			id, ok := resolver.Lookup(key)
			if !ok {
				report.UnmatchedCorrections++
				e.logger.Debug().Str("model", key).Msg("Correction matches no model")
				continue
			}
			groups[id.Slug].records = append(groups[id.Slug].records, rec)
			continue
		}

		provider := rec.ProviderSlug
		if provider == "" {
			provider = rec.Provider
		}
		out := resolver.Resolve(identity.Input{
			RawName:    rec.RawName,
			Slug:       rec.Slug,
			Provider:   provider,
			ObservedAt: rec.ObservedAt.Time,
		})
		if out.Kind == identity.KindMalformed {
			report.Malformed++
			continue
		}
		g, ok := groups[out.Identity.Slug]
		if !ok {
			g = &group{id: out.Identity}
			groups[out.Identity.Slug] = g
			order = append(order, out.Identity.Slug)
		}
		g.records = append(g.records, rec)
	}

	models := make([]catalog.UnifiedModel, 0, len(order))
	for _, slug := range order {
		m, ok := e.build(groups[slug])
		if !ok {
			report.Discarded++
			continue
		}
		models = append(models, m)
	}

	scoreRanks(models)
	catalog.SortDefault(models)

	report.Models = len(models)
	report.Aliases = resolver.Aliases()
	report.Conflicts = resolver.Conflicts()
	return &Result{Models: models, Report: report}
}

func tagRank(t sources.Tag) int {
	switch t {
	case sources.TagAA:
		return 0
	case sources.TagDatabase:
		return 1
	case sources.TagCorrection:
		return 2
	default:
		return 3
	}
}

// build turns one group into a model. It reports false when the group has
// no name or no provider.
func (e *Engine) build(g *group) (catalog.UnifiedModel, bool) {
	byTag := make(map[sources.Tag][]sources.Record)
	for _, r := range g.records {
		byTag[r.Tag] = append(byTag[r.Tag], r)
	}
	// newest first; earlier records still fill gaps
	for _, recs := range byTag {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].ObservedAt.After(recs[j].ObservedAt)
		})
	}

	m := catalog.UnifiedModel{
		ID:           g.id.Slug,
		Name:         g.id.DisplayName,
		ProviderSlug: g.id.ProviderSlug,
		Status:       sources.StatusUnknown,
		IsActive:     true,
		Aliases:      slices.Clone(g.id.Aliases),
	}

	for _, tag := range sources.Tags() {
		if len(byTag[tag]) > 0 {
			m.Sources = append(m.Sources, tag)
		}
	}

	m.Provider = firstString(byTag[sources.TagAA], func(r sources.Record) string { return r.Provider })
	if m.Provider == "" {
		m.Provider = firstString(byTag[sources.TagDatabase], func(r sources.Record) string { return r.Provider })
	}
	if m.ProviderSlug == "" && m.Provider != "" {
		m.ProviderSlug = identity.Slugify(m.Provider)
	}
	if m.Provider == "" && m.ProviderSlug != "" {
		m.Provider = catalog.ProviderName(m.ProviderSlug)
	}
	if m.Name == "" || m.ProviderSlug == "" {
		e.logger.Debug().Str("slug", g.id.Slug).Msg("Discarding model without name or provider")
		return m, false
	}

	if recs := byTag[sources.TagAA]; len(recs) > 0 {
		m.AA = aaBundle(recs)
	}
	if recs := byTag[sources.TagDatabase]; len(recs) > 0 {
		m.DB = dbBundle(recs)
		m.Modalities = unionStrings(recs, func(r sources.Record) []string { return r.Modalities })
		m.Capabilities = unionStrings(recs, func(r sources.Record) []string { return r.Capabilities })
		m.Description = firstString(recs, func(r sources.Record) string { return r.Description })
		for _, r := range recs {
			if r.IsActive != nil {
				m.IsActive = *r.IsActive
				break
			}
		}
	}
	if recs := byTag[sources.TagCorrection]; len(recs) > 0 {
		m.Correction = correctionBundle(recs)
	}

	e.derive(&m)

	for _, r := range g.records {
		if r.ObservedAt.After(m.LastUpdated) {
			m.LastUpdated = r.ObservedAt
		}
	}
	return m, true
}

// derive fills the display fields from the bundles using the authority
// table. It is the only place derived fields are written.
func (e *Engine) derive(m *catalog.UnifiedModel) {
	resolve := func(field string, pick func(bundle) *float64) *float64 {
		for _, tag := range Precedence(field, e.authorities) {
			if b, ok := bundleOf(m, tag); ok {
				if v := pick(b); v != nil {
					c := *v
					return &c
				}
			}
		}
		return nil
	}

	m.Intelligence = resolve(FieldIntelligence, func(b bundle) *float64 { return b.intelligence })
	m.Speed = resolve(FieldSpeed, func(b bundle) *float64 { return b.speed })
	m.PriceInput = resolve(FieldInputPrice, func(b bundle) *float64 { return b.priceInput })
	m.PriceOutput = resolve(FieldOutputPrice, func(b bundle) *float64 { return b.priceOutput })
	m.ContextWindow = resolve(FieldContextWindow, func(b bundle) *float64 { return b.contextWindow })

	m.Status = sources.StatusUnknown
	m.Availability = nil
	if m.DB != nil && slices.Contains(Precedence(FieldStatus, e.authorities), sources.TagDatabase) {
		m.Status = m.DB.Status
	}
	if m.DB != nil && m.DB.Availability != nil && slices.Contains(Precedence(FieldAvailability, e.authorities), sources.TagDatabase) {
		v := *m.DB.Availability
		m.Availability = &v
	}
}

// bundle is the numeric view shared by the AA, DB and Correction bundles.
type bundle struct {
	intelligence, speed, priceInput, priceOutput, contextWindow *float64
}

func bundleOf(m *catalog.UnifiedModel, tag sources.Tag) (bundle, bool) {
	switch tag {
	case sources.TagAA:
		if m.AA != nil {
			return bundle{m.AA.Intelligence, m.AA.Speed, m.AA.PriceInput, m.AA.PriceOutput, m.AA.ContextWindow}, true
		}
	case sources.TagDatabase:
		if m.DB != nil {
			return bundle{m.DB.Intelligence, m.DB.Speed, m.DB.PriceInput, m.DB.PriceOutput, m.DB.ContextWindow}, true
		}
	case sources.TagCorrection:
		if m.Correction != nil {
			c := m.Correction
			return bundle{c.Intelligence, c.Speed, c.PriceInput, c.PriceOutput, c.ContextWindow}, true
		}
	}
	return bundle{}, false
}

// scoreRanks computes rankScore for every model against the pass maxima.
func scoreRanks(models []catalog.UnifiedModel) {
	var maxIntel, maxSpeed float64
	for i := range models {
		if v := models[i].Intelligence; v != nil && *v > maxIntel {
			maxIntel = *v
		}
		if v := models[i].Speed; v != nil && *v > maxSpeed {
			maxSpeed = *v
		}
	}

	for i := range models {
		models[i].RankScore = RankScore(&models[i], maxIntel, maxSpeed)
	}
}

// RankScore computes the composite score of a single model against given
// maxima. Unknown values contribute zero.
func RankScore(m *catalog.UnifiedModel, maxIntelligence, maxSpeed float64) float64 {
	return constants.RankWeightIntelligence*normalize(m.Intelligence, maxIntelligence) +
		constants.RankWeightStatus*m.Status.Weight()/constants.MaxStatusWeight +
		constants.RankWeightSpeed*normalize(m.Speed, maxSpeed)
}

func normalize(v *float64, max float64) float64 {
	if v == nil || max <= 0 || *v <= 0 {
		return 0
	}
	return *v / max
}

func aaBundle(recs []sources.Record) *catalog.AAMetrics {
	b := &catalog.AAMetrics{
		Intelligence:  latestMetric(recs, sources.MetricIntelligence),
		Speed:         latestMetric(recs, sources.MetricSpeed),
		PriceInput:    latestMetric(recs, sources.MetricInputPrice),
		PriceOutput:   latestMetric(recs, sources.MetricOutputPrice),
		ContextWindow: latestMetric(recs, sources.MetricContextWindow),
		Category:      firstString(recs, func(r sources.Record) string { return r.Category }),
		Trend:         firstString(recs, func(r sources.Record) string { return r.Trend }),
		LastUpdated:   recs[0].ObservedAt,
	}
	for _, r := range recs {
		if r.Rank > 0 {
			b.Rank = r.Rank
			break
		}
	}
	return b
}

func dbBundle(recs []sources.Record) *catalog.DBMetrics {
	b := &catalog.DBMetrics{
		Status:        sources.StatusUnknown,
		Intelligence:  latestMetric(recs, sources.MetricIntelligence),
		Speed:         latestMetric(recs, sources.MetricSpeed),
		PriceInput:    latestMetric(recs, sources.MetricInputPrice),
		PriceOutput:   latestMetric(recs, sources.MetricOutputPrice),
		ContextWindow: latestMetric(recs, sources.MetricContextWindow),
		Region:        firstString(recs, func(r sources.Record) string { return r.Region }),
		LastUpdated:   recs[0].ObservedAt,
	}
	for _, r := range recs {
		if r.Status != "" && r.Status != sources.StatusUnknown {
			b.Status = r.Status
			break
		}
	}
	for _, r := range recs {
		if r.Availability != nil {
			v := *r.Availability
			b.Availability = &v
			break
		}
	}
	for _, r := range recs {
		if r.Latency != nil {
			l := *r.Latency
			b.Latency = &l
			break
		}
	}
	return b
}

func correctionBundle(recs []sources.Record) *catalog.Correction {
	return &catalog.Correction{
		Intelligence:  latestMetric(recs, sources.MetricIntelligence),
		Speed:         latestMetric(recs, sources.MetricSpeed),
		PriceInput:    latestMetric(recs, sources.MetricInputPrice),
		PriceOutput:   latestMetric(recs, sources.MetricOutputPrice),
		ContextWindow: latestMetric(recs, sources.MetricContextWindow),
		Note:          firstString(recs, func(r sources.Record) string { return r.Description }),
	}
}

// latestMetric returns the value from the first record (newest) that has it.
func latestMetric(recs []sources.Record, metric sources.Metric) *float64 {
	for _, r := range recs {
		if v := r.Metrics.Ptr(metric); v != nil {
			return v
		}
	}
	return nil
}

func firstString(recs []sources.Record, get func(sources.Record) string) string {
	for _, r := range recs {
		if s := get(r); s != "" {
			return s
		}
	}
	return ""
}

func unionStrings(recs []sources.Record, get func(sources.Record) []string) []string {
	var out []string
	for _, r := range recs {
		for _, s := range get(r) {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
