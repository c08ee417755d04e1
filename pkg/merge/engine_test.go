package merge_test

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/merge"
	"github.com/agentstation/aigo/pkg/sources"
)

var day = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func at(d int) utc.Time { return utc.Time{Time: day.AddDate(0, 0, d)} }

var sameInstant = cmp.Comparer(func(a, b utc.Time) bool { return a.Equal(b) })

func aaRecord(name, provider string, m sources.Metrics) sources.Record {
	return sources.Record{Tag: sources.TagAA, RawName: name, Provider: provider, Metrics: m, ObservedAt: at(0)}
}

func dbRecord(name, provider string, status sources.Status, avail float64, m sources.Metrics) sources.Record {
	return sources.Record{
		Tag:          sources.TagDatabase,
		RawName:      name,
		Provider:     provider,
		Metrics:      m,
		Status:       status,
		Availability: &avail,
		ObservedAt:   at(0),
	}
}

func newEngine(t *testing.T) *merge.Engine {
	t.Helper()
	return merge.New(merge.WithLogger(logging.NewNopLogger()))
}

func find(t *testing.T, models []catalog.UnifiedModel, id string) catalog.UnifiedModel {
	t.Helper()
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("model %q not found", id)
	return catalog.UnifiedModel{}
}

func TestMergePrecedence(t *testing.T) {
	records := []sources.Record{
		aaRecord("GPT-5 (high)", "OpenAI", sources.Metrics{
			sources.MetricIntelligence: 68,
			sources.MetricInputPrice:   1.25,
		}),
		dbRecord("GPT-5 (high)", "OpenAI", sources.StatusDegraded, 97.5, sources.Metrics{
			sources.MetricIntelligence: 60,
			sources.MetricSpeed:        120,
			sources.MetricInputPrice:   2,
			sources.MetricOutputPrice:  10,
		}),
	}

	res := newEngine(t).Merge(records)
	require.Len(t, res.Models, 1)
	m := res.Models[0]

	assert.Equal(t, "gpt-5-high", m.ID)
	assert.Equal(t, []sources.Tag{sources.TagAA, sources.TagDatabase}, m.Sources)

	// AA wins where it reports, database fills the gaps
	assert.Equal(t, 68.0, *m.Intelligence)
	assert.Equal(t, 1.25, *m.PriceInput)
	assert.Equal(t, 120.0, *m.Speed)
	assert.Equal(t, 10.0, *m.PriceOutput)
	assert.Nil(t, m.ContextWindow)

	// telemetry only from the database
	assert.Equal(t, sources.StatusDegraded, m.Status)
	require.NotNil(t, m.Availability)
	assert.Equal(t, 97.5, *m.Availability)

	require.NotNil(t, m.AA)
	require.NotNil(t, m.DB)
	assert.Equal(t, 60.0, *m.DB.Intelligence)
}

func TestMergeDatabaseIntelligenceWhenAASilent(t *testing.T) {
	records := []sources.Record{
		aaRecord("Claude Opus 4.1", "Anthropic", sources.Metrics{sources.MetricSpeed: 40}),
		dbRecord("Claude Opus 4.1", "Anthropic", sources.StatusOperational, 99.9, sources.Metrics{sources.MetricIntelligence: 59}),
	}
	m := newEngine(t).Merge(records).Models[0]
	assert.Equal(t, 59.0, *m.Intelligence)
	assert.Equal(t, 40.0, *m.Speed)
}

func TestMergeAAOnlyHasUnknownStatus(t *testing.T) {
	m := newEngine(t).Merge([]sources.Record{
		aaRecord("Grok 4", "xAI", sources.Metrics{sources.MetricIntelligence: 65}),
	}).Models[0]

	assert.Equal(t, sources.StatusUnknown, m.Status)
	assert.Nil(t, m.Availability)
	assert.Nil(t, m.DB)
	assert.True(t, m.IsActive)
	assert.Equal(t, "xai", m.ProviderSlug)
}

func TestMergeCorrectionOverrides(t *testing.T) {
	records := []sources.Record{
		aaRecord("GPT-4o", "OpenAI", sources.Metrics{sources.MetricIntelligence: 30, sources.MetricSpeed: 90}),
		{Tag: sources.TagCorrection, Slug: "gpt-4o", Metrics: sources.Metrics{sources.MetricIntelligence: 41}, Description: "AA double-counted"},
		{Tag: sources.TagCorrection, Slug: "no-such-model", Metrics: sources.Metrics{sources.MetricSpeed: 1}},
	}
	res := newEngine(t).Merge(records)
	require.Len(t, res.Models, 1)
	m := res.Models[0]

	assert.Equal(t, 41.0, *m.Intelligence)
	assert.Equal(t, 90.0, *m.Speed)
	assert.Equal(t, 30.0, *m.AA.Intelligence)
	require.NotNil(t, m.Correction)
	assert.Equal(t, "AA double-counted", m.Correction.Note)
	assert.Contains(t, m.Sources, sources.TagCorrection)
	assert.Equal(t, 1, res.Report.UnmatchedCorrections)
}

func TestMergeNewestRecordWinsWithinTag(t *testing.T) {
	older := aaRecord("Gemini 2.5 Pro", "Google", sources.Metrics{
		sources.MetricIntelligence:  60,
		sources.MetricContextWindow: 1000000,
	})
	newer := aaRecord("Gemini 2.5 Pro Latest", "Google", sources.Metrics{sources.MetricIntelligence: 62})
	newer.ObservedAt = at(3)

	res := newEngine(t).Merge([]sources.Record{older, newer})
	require.Len(t, res.Models, 1)
	m := res.Models[0]

	assert.Equal(t, 62.0, *m.Intelligence)
	assert.Equal(t, 1000000.0, *m.ContextWindow)
	require.Len(t, res.Report.Aliases, 1)
	assert.Equal(t, at(3), m.LastUpdated)
}

func TestMergeJoinsDifferentlySpelledSlugs(t *testing.T) {
	aa := aaRecord("Claude Opus 4.1", "Anthropic", sources.Metrics{sources.MetricIntelligence: 59})
	db := dbRecord("Claude Opus 4.1", "Anthropic", sources.StatusOperational, 99.5, nil)
	db.Slug = "claude-opus-4-1"

	res := newEngine(t).Merge([]sources.Record{aa, db})
	require.Len(t, res.Models, 1)
	m := res.Models[0]

	assert.Equal(t, "claude-opus-4.1", m.ID)
	assert.Equal(t, []sources.Tag{sources.TagAA, sources.TagDatabase}, m.Sources)
	assert.Equal(t, sources.StatusOperational, m.Status)
	assert.True(t, m.MatchesName("claude-opus-4-1"))
}

func TestMergeDiscardsAndCountsMalformed(t *testing.T) {
	records := []sources.Record{
		aaRecord("", "OpenAI", nil),
		aaRecord("!!!", "OpenAI", nil),
		aaRecord("Orphan Model", "", sources.Metrics{sources.MetricIntelligence: 10}),
		aaRecord("Kept Model", "Acme", nil),
	}
	res := newEngine(t).Merge(records)

	assert.Equal(t, 2, res.Report.Malformed)
	assert.Equal(t, 1, res.Report.Discarded)
	require.Len(t, res.Models, 1)
	assert.Equal(t, "kept-model", res.Models[0].ID)
	assert.Nil(t, res.Models[0].Intelligence)
}

func TestMergeRankScore(t *testing.T) {
	records := []sources.Record{
		aaRecord("Alpha", "A", sources.Metrics{sources.MetricIntelligence: 80, sources.MetricSpeed: 200}),
		aaRecord("Beta", "B", sources.Metrics{sources.MetricIntelligence: 40, sources.MetricSpeed: 100}),
		dbRecord("Alpha", "A", sources.StatusOperational, 99, nil),
		dbRecord("Beta", "B", sources.StatusDown, 50, nil),
	}
	res := newEngine(t).Merge(records)

	alpha := find(t, res.Models, "alpha")
	beta := find(t, res.Models, "beta")
	assert.InDelta(t, 0.5*1+0.3*1+0.2*1, alpha.RankScore, 1e-9)
	assert.InDelta(t, 0.5*0.5+0+0.2*0.5, beta.RankScore, 1e-9)
}

func TestMergeDefaultOrder(t *testing.T) {
	records := []sources.Record{
		aaRecord("Zeta", "Z", nil),
		aaRecord("Mid", "M", sources.Metrics{sources.MetricIntelligence: 50}),
		aaRecord("Top", "T", sources.Metrics{sources.MetricIntelligence: 90}),
		aaRecord("Also Zero", "Z", nil),
	}
	res := newEngine(t).Merge(records)

	ids := make([]string, 0, len(res.Models))
	for _, m := range res.Models {
		ids = append(ids, m.ID)
	}
	// equal scores without intelligence fall back to name order
	assert.Equal(t, []string{"top", "mid", "also-zero", "zeta"}, ids)
}

func TestMergeIdempotent(t *testing.T) {
	records := []sources.Record{
		aaRecord("GPT-5 (high)", "OpenAI", sources.Metrics{sources.MetricIntelligence: 68, sources.MetricSpeed: 150}),
		aaRecord("GPT-5 (medium)", "OpenAI", sources.Metrics{sources.MetricIntelligence: 66}),
		aaRecord("Claude Opus 4.1", "Anthropic", sources.Metrics{sources.MetricIntelligence: 59}),
		dbRecord("Claude Opus 4.1", "Anthropic", sources.StatusOperational, 99.9, nil),
		dbRecord("Llama 4 Maverick", "Meta", sources.StatusDegraded, 92, sources.Metrics{sources.MetricIntelligence: 42}),
	}

	engine := newEngine(t)
	first := engine.Merge(records)
	second := engine.Merge(records)

	if diff := cmp.Diff(first.Models, second.Models, sameInstant); diff != "" {
		t.Errorf("merge is not idempotent (-first +second):\n%s", diff)
	}

	// input order does not change the output either
	reversed := make([]sources.Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	if diff := cmp.Diff(first.Models, engine.Merge(reversed).Models, sameInstant); diff != "" {
		t.Errorf("merge depends on input order (-first +reversed):\n%s", diff)
	}
}

func TestMergeDerivedFieldsDoNotAlias(t *testing.T) {
	m := newEngine(t).Merge([]sources.Record{
		aaRecord("Solo", "S", sources.Metrics{sources.MetricIntelligence: 10}),
	}).Models[0]

	*m.Intelligence = 99
	assert.Equal(t, 10.0, *m.AA.Intelligence)
}
