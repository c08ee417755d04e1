package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/aigo/pkg/sources"
)

// ProviderSummary aggregates the models of one provider.
type ProviderSummary struct {
	Slug                string   `json:"slug" yaml:"slug"`
	Name                string   `json:"name" yaml:"name"`
	ModelCount          int      `json:"model_count" yaml:"model_count"`
	OperationalCount    int      `json:"operational_count" yaml:"operational_count"`
	AverageAvailability *float64 `json:"average_availability,omitempty" yaml:"average_availability,omitempty"`
	AverageIntelligence *float64 `json:"average_intelligence,omitempty" yaml:"average_intelligence,omitempty"`
}

// ProviderName returns a display name for a provider slug, e.g. "mistral-ai"
// becomes "Mistral Ai".
func ProviderName(slug string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
}

// Providers summarizes models per provider, sorted by model count
// descending and then by name.
func Providers(models []UnifiedModel) []ProviderSummary {
	type acc struct {
		summary          ProviderSummary
		availSum, intSum float64
		availN, intN     int
	}
	byProvider := make(map[string]*acc)

	for i := range models {
		m := &models[i]
		key := m.ProviderSlug
		a, ok := byProvider[key]
		if !ok {
			name := m.Provider
			if name == "" {
				name = ProviderName(key)
			}
			a = &acc{summary: ProviderSummary{Slug: key, Name: name}}
			byProvider[key] = a
		}
		a.summary.ModelCount++
		if m.Status == sources.StatusOperational {
			a.summary.OperationalCount++
		}
		if m.Availability != nil {
			a.availSum += *m.Availability
			a.availN++
		}
		if m.Intelligence != nil {
			a.intSum += *m.Intelligence
			a.intN++
		}
	}

	out := make([]ProviderSummary, 0, len(byProvider))
	for _, a := range byProvider {
		if a.availN > 0 {
			avg := a.availSum / float64(a.availN)
			a.summary.AverageAvailability = &avg
		}
		if a.intN > 0 {
			avg := a.intSum / float64(a.intN)
			a.summary.AverageIntelligence = &avg
		}
		out = append(out, a.summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelCount != out[j].ModelCount {
			return out[i].ModelCount > out[j].ModelCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
