// Package query filters, sorts and pages a built catalog. Every function is
// pure: inputs are never modified and results are fresh slices.
package query

import (
	"strings"

	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/sources"
)

// Range is an inclusive numeric range. A nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Bounded reports whether either bound is set.
func (r Range) Bounded() bool {
	return r.Min != nil || r.Max != nil
}

// Contains reports whether v lies in the range. An unknown value never
// satisfies a bounded range.
func (r Range) Contains(v *float64) bool {
	if !r.Bounded() {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	if r.Max != nil && *v > *r.Max {
		return false
	}
	return true
}

func (r Range) validate(field string) error {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return errors.NewValidationError(field, *r.Min, "min is greater than max")
	}
	return nil
}

// Filters are combined with AND. Zero values disable a filter.
type Filters struct {
	Provider      string         `json:"provider,omitempty" yaml:"provider,omitempty"`
	Status        sources.Status `json:"status,omitempty" yaml:"status,omitempty"`
	Intelligence  Range          `json:"intelligence" yaml:"intelligence"`
	Speed         Range          `json:"speed" yaml:"speed"`
	InputPrice    Range          `json:"input_price" yaml:"input_price"`
	ContextWindow Range          `json:"context_window" yaml:"context_window"`
	Search        string         `json:"search,omitempty" yaml:"search,omitempty"`

	Source     sources.Tag `json:"source,omitempty" yaml:"source,omitempty"`
	AAOnly     bool        `json:"aa_only,omitempty" yaml:"aa_only,omitempty"`
	DBOnly     bool        `json:"db_only,omitempty" yaml:"db_only,omitempty"`
	ActiveOnly bool        `json:"active_only,omitempty" yaml:"active_only,omitempty"`
	Modality   string      `json:"modality,omitempty" yaml:"modality,omitempty"`
	Capability string      `json:"capability,omitempty" yaml:"capability,omitempty"`

	// IDPattern matches model ids: a glob, or a regular expression when
	// prefixed with "re:".
	IDPattern string `json:"id_pattern,omitempty" yaml:"id_pattern,omitempty"`
}

// Validate checks ranges, enums and the id pattern.
func (f Filters) Validate() error {
	for field, r := range map[string]Range{
		"intelligence":   f.Intelligence,
		"speed":          f.Speed,
		"input_price":    f.InputPrice,
		"context_window": f.ContextWindow,
	} {
		if err := r.validate(field); err != nil {
			return err
		}
	}
	if f.Status != "" {
		switch f.Status {
		case sources.StatusOperational, sources.StatusDegraded, sources.StatusDown, sources.StatusUnknown:
		default:
			return errors.NewValidationError("status", f.Status, "unknown status")
		}
	}
	if f.Source != "" && !f.Source.IsValid() {
		return errors.NewValidationError("source", f.Source, "unknown source")
	}
	if f.AAOnly && f.DBOnly {
		return errors.NewValidationError("aa_only", true, "aa_only and db_only are exclusive")
	}
	if _, err := compilePattern(f.IDPattern); err != nil {
		return err
	}
	return nil
}

// Filter returns the models that pass every filter, in input order.
func Filter(models []catalog.UnifiedModel, f Filters) ([]catalog.UnifiedModel, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ids, _ := compilePattern(f.IDPattern)

	m := matcher{
		Filters:  f,
		provider: strings.ToLower(strings.TrimSpace(f.Provider)),
		search:   strings.ToLower(strings.TrimSpace(f.Search)),
		ids:      ids,
	}
	out := make([]catalog.UnifiedModel, 0, len(models))
	for i := range models {
		if m.matches(&models[i]) {
			out = append(out, models[i])
		}
	}
	return out, nil
}

// matcher holds the normalized filter inputs.
type matcher struct {
	Filters
	provider string
	search   string
	ids      *pattern
}

func (m *matcher) matches(model *catalog.UnifiedModel) bool {
	if m.provider != "" && !m.matchesProvider(model) {
		return false
	}
	if m.Status != "" && model.Status != m.Status {
		return false
	}
	if !m.Intelligence.Contains(model.Intelligence) ||
		!m.Speed.Contains(model.Speed) ||
		!m.InputPrice.Contains(model.PriceInput) ||
		!m.ContextWindow.Contains(model.ContextWindow) {
		return false
	}
	if m.search != "" && !m.matchesSearch(model) {
		return false
	}
	if m.Source != "" && !model.HasSource(m.Source) {
		return false
	}
	if m.AAOnly && !model.AAOnly() {
		return false
	}
	if m.DBOnly && !model.DBOnly() {
		return false
	}
	if m.ActiveOnly && !model.IsActive {
		return false
	}
	if m.Modality != "" && !containsFold(model.Modalities, m.Modality) {
		return false
	}
	if m.Capability != "" && !containsFold(model.Capabilities, m.Capability) {
		return false
	}
	if m.ids != nil && !m.ids.match(model.ID) {
		return false
	}
	return true
}

func (m *matcher) matchesProvider(model *catalog.UnifiedModel) bool {
	return strings.ToLower(model.Provider) == m.provider ||
		model.ProviderSlug == m.provider ||
		model.ProviderSlug == identity.Slugify(m.provider)
}

func (m *matcher) matchesSearch(model *catalog.UnifiedModel) bool {
	if strings.Contains(strings.ToLower(model.Name), m.search) ||
		strings.Contains(strings.ToLower(model.Provider), m.search) ||
		strings.Contains(model.ID, m.search) {
		return true
	}
	for _, a := range model.Aliases {
		if strings.Contains(strings.ToLower(a.Name), m.search) {
			return true
		}
	}
	return false
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
