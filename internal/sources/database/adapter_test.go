package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/logging"
	"github.com/agentstation/aigo/pkg/sources"
)

func openFixture(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open("sqlite", filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile(filepath.Join("testdata", "schema.sql"))
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func record(t *testing.T, b *sources.Batch, slug string) sources.Record {
	t.Helper()
	for _, r := range b.Records {
		if r.Slug == slug {
			return r
		}
	}
	t.Fatalf("record %q not found", slug)
	return sources.Record{}
}

func TestFetch(t *testing.T) {
	logging.DisableLoggingForTest(t)

	a := New(openFixture(t))
	assert.Equal(t, AdapterName, a.Name())
	assert.Equal(t, sources.TagDatabase, a.Tag())

	batch, err := a.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Len(), "inactive model excluded")
	assert.Equal(t, 1, batch.Skipped, "nameless row skipped")
	assert.ErrorIs(t, batch.Malformed[0], errors.ErrMalformedRecord)

	// providers ordered by name
	assert.Equal(t, "claude-opus-4-1", batch.Records[0].Slug)
	assert.Equal(t, "gpt-5-high", batch.Records[1].Slug)

	gpt := record(t, batch, "gpt-5-high")
	assert.Equal(t, sources.TagDatabase, gpt.Tag)
	assert.Equal(t, "GPT-5 (high)", gpt.RawName)
	assert.Equal(t, "OpenAI", gpt.Provider)
	assert.Equal(t, "openai", gpt.ProviderSlug)
	assert.Equal(t, sources.StatusDegraded, gpt.Status, "latest status wins")
	require.NotNil(t, gpt.Availability)
	assert.Equal(t, 97.5, *gpt.Availability)
	require.NotNil(t, gpt.Latency)
	assert.Equal(t, sources.Latency{P50: 410, P95: 900, P99: 1500}, *gpt.Latency)
	assert.Equal(t, "us-east-1", gpt.Region)
	assert.Equal(t, 1.25, gpt.Metrics[sources.MetricInputPrice], "open pricing row wins")
	assert.Equal(t, 10.0, gpt.Metrics[sources.MetricOutputPrice])
	assert.Equal(t, 68.5, gpt.Metrics[sources.MetricIntelligence], "latest benchmark wins")
	assert.Equal(t, 140.0, gpt.Metrics[sources.MetricSpeed])
	assert.Equal(t, 400000.0, gpt.Metrics[sources.MetricContextWindow])
	assert.Equal(t, []string{"text", "image"}, gpt.Modalities)
	assert.Equal(t, []string{"tools", "json"}, gpt.Capabilities)
	assert.Equal(t, "Flagship reasoning model", gpt.Description)
	require.NotNil(t, gpt.IsActive)
	assert.True(t, *gpt.IsActive)
	assert.Equal(t, time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC), gpt.ObservedAt.Time)

	claude := record(t, batch, "claude-opus-4-1")
	assert.Equal(t, sources.StatusDown, claude.Status)
	assert.Nil(t, claude.Latency)
	assert.Equal(t, []string{"text"}, claude.Modalities)
	_, hasIntel := claude.Metrics.Get(sources.MetricIntelligence)
	assert.False(t, hasIntel, "zero benchmark score is not a measurement")
	assert.Equal(t, 15.0, claude.Metrics[sources.MetricInputPrice])
}

func TestFetchSkipsCorruptTelemetryRows(t *testing.T) {
	logging.DisableLoggingForTest(t)

	db := openFixture(t)
	for _, stmt := range []string{
		`INSERT INTO model_status (model_id, status, availability, checked_at) VALUES ('m1', 'operational', 'n/a', '2025-09-15 10:00:00')`,
		`INSERT INTO pricing (model_id, input_per_million, output_per_million, effective_from) VALUES ('m2', 'free', 1, '2025-09-10 00:00:00')`,
		`INSERT INTO benchmark_scores (model_id, suite_id, score_normalized, evaluation_date) VALUES ('m1', 's2', 'tbd', '2025-09-15 00:00:00')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	batch, err := New(db).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 4, batch.Skipped, "nameless model plus three corrupt rows")
	for _, err := range batch.Malformed {
		assert.ErrorIs(t, err, errors.ErrMalformedRecord)
	}

	gpt := record(t, batch, "gpt-5-high")
	assert.Equal(t, sources.StatusDegraded, gpt.Status, "corrupt newer row is ignored")
	assert.Equal(t, 140.0, gpt.Metrics[sources.MetricSpeed])
	claude := record(t, batch, "claude-opus-4-1")
	assert.Equal(t, 15.0, claude.Metrics[sources.MetricInputPrice])
}

func TestLatestPrefersDatedRows(t *testing.T) {
	day := func(d int) nullTime {
		return nullTime{Time: time.Date(2025, 9, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	picked := make(map[string]time.Time)

	assert.True(t, latest(picked, "m1", nullTime{}), "first row is taken even undated")
	assert.True(t, latest(picked, "m1", day(12)), "dated row beats undated")
	assert.False(t, latest(picked, "m1", day(1)))
	assert.False(t, latest(picked, "m1", day(12)), "first of equal stamps wins")
	assert.False(t, latest(picked, "m1", nullTime{}))
	assert.True(t, latest(picked, "m1", day(14)))
	assert.True(t, latest(picked, "m2", day(1)), "keys are independent")
}

func TestFetchWithInactive(t *testing.T) {
	logging.DisableLoggingForTest(t)

	batch, err := New(openFixture(t), WithInactive()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Len())

	turbo := record(t, batch, "gpt-3-5-turbo")
	require.NotNil(t, turbo.IsActive)
	assert.False(t, *turbo.IsActive)
	assert.Equal(t, sources.StatusUnknown, turbo.Status)
}

func TestFetchWithSuites(t *testing.T) {
	logging.DisableLoggingForTest(t)

	a := New(openFixture(t), WithSuites(map[string]sources.Metric{"mmlu": sources.MetricIntelligence}))
	batch, err := a.Fetch(context.Background())
	require.NoError(t, err)

	gpt := record(t, batch, "gpt-5-high")
	assert.Equal(t, 91.0, gpt.Metrics[sources.MetricIntelligence])
	_, hasSpeed := gpt.Metrics.Get(sources.MetricSpeed)
	assert.False(t, hasSpeed)
}

func TestFetchMissingSchema(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db).Fetch(context.Background())
	kind, ok := errors.AdapterKind(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindNetwork, kind)
}

func TestFetchCanceled(t *testing.T) {
	db := openFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(db).Fetch(ctx)
	kind, ok := errors.AdapterKind(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindTimeout, kind)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)

	for _, d := range []string{"postgres", "pgx", "sqlite3"} {
		name, err := driverName(d)
		require.NoError(t, err)
		assert.NotEmpty(t, name)
	}
}

func TestNullTimeScan(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
		ok   bool
	}{
		{nil, time.Time{}, false},
		{"2025-09-14 10:00:00", time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC), true},
		{[]byte("2025-09-14T10:00:00Z"), time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC), true},
		{"2025-09-14", time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC), true},
		{int64(0), time.Unix(0, 0).UTC(), true},
	}
	for _, tt := range tests {
		var nt nullTime
		require.NoError(t, nt.Scan(tt.in))
		assert.Equal(t, tt.ok, nt.Valid)
		assert.True(t, tt.want.Equal(nt.Time))
	}

	var nt nullTime
	assert.Error(t, nt.Scan("yesterday"))
	assert.Error(t, nt.Scan(3.5))
}
