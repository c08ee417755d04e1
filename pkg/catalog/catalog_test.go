package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/sources"
)

func f(v float64) *float64 { return &v }

func TestProviderName(t *testing.T) {
	assert.Equal(t, "Openai", catalog.ProviderName("openai"))
	assert.Equal(t, "Mistral Ai", catalog.ProviderName("mistral-ai"))
}

func TestProviders(t *testing.T) {
	models := []catalog.UnifiedModel{
		{ID: "a", Provider: "OpenAI", ProviderSlug: "openai", Status: sources.StatusOperational, Availability: f(99), Intelligence: f(70)},
		{ID: "b", Provider: "OpenAI", ProviderSlug: "openai", Status: sources.StatusDegraded, Availability: f(95)},
		{ID: "c", Provider: "", ProviderSlug: "x-ai", Status: sources.StatusUnknown},
	}

	got := catalog.Providers(models)
	require.Len(t, got, 2)

	assert.Equal(t, "openai", got[0].Slug)
	assert.Equal(t, 2, got[0].ModelCount)
	assert.Equal(t, 1, got[0].OperationalCount)
	require.NotNil(t, got[0].AverageAvailability)
	assert.InDelta(t, 97.0, *got[0].AverageAvailability, 1e-9)
	assert.InDelta(t, 70.0, *got[0].AverageIntelligence, 1e-9)

	assert.Equal(t, "X Ai", got[1].Name)
	assert.Nil(t, got[1].AverageAvailability)
}

func TestUnifiedModelHelpers(t *testing.T) {
	m := catalog.UnifiedModel{
		ID:      "claude-opus-4.1",
		Name:    "Claude Opus 4.1",
		Sources: []sources.Tag{sources.TagAA},
		AA:      &catalog.AAMetrics{},
		Aliases: []identity.Alias{{Name: "Claude Opus 4.1 (latest)", Slug: "claude-opus-4.1-latest"}},
	}

	assert.True(t, m.HasSource(sources.TagAA))
	assert.False(t, m.HasSource(sources.TagDatabase))
	assert.True(t, m.AAOnly())
	assert.False(t, m.DBOnly())

	assert.True(t, m.MatchesName("claude-opus-4.1"))
	assert.True(t, m.MatchesName("Claude Opus 4.1"))
	assert.True(t, m.MatchesName("claude opus 4.1 (latest)"))
	assert.True(t, m.MatchesName("claude-opus-4-1"), "dot and hyphen versions match")
	assert.False(t, m.MatchesName("claude-opus-4"))
	assert.False(t, m.MatchesName(""))
}
