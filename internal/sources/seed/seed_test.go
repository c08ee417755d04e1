package seed

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/sources"
)

func TestBundledSeed(t *testing.T) {
	a := New()
	assert.Equal(t, AdapterName, a.Name())
	assert.Equal(t, sources.TagAA, a.Tag())

	batch, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Positive(t, batch.Len())
	assert.Zero(t, batch.Skipped)

	for _, r := range batch.Records {
		assert.NotEmpty(t, r.RawName)
		assert.NotEmpty(t, r.ProviderSlug, r.RawName)
		_, ok := r.Metrics.Get(sources.MetricIntelligence)
		assert.True(t, ok, r.RawName)
	}
}

func TestCustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"feed.json":  {Data: []byte(`{"models":[{"name":"Grok 4","provider":"xAI","intelligence":65}]}`)},
		"empty.json": {Data: []byte(`{"models":[]}`)},
	}

	batch, err := New(WithFS(fsys, "feed.json")).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "xai", batch.Records[0].ProviderSlug)

	_, err = New(WithFS(fsys, "empty.json")).Fetch(context.Background())
	kind, ok := errors.AdapterKind(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindEmpty, kind)

	_, err = New(WithFS(fsys, "missing.json")).Fetch(context.Background())
	kind, _ = errors.AdapterKind(err)
	assert.Equal(t, errors.KindEmpty, kind)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
