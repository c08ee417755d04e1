// Package catalog defines the unified model entities produced by the merge
// engine. Values are built once per aggregation pass and never mutated
// afterwards; the next pass supersedes them.
package catalog

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/sources"
)

// AAMetrics is the bundle contributed by the AA feed.
type AAMetrics struct {
	Intelligence  *float64 `json:"intelligence,omitempty" yaml:"intelligence,omitempty"`
	Speed         *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	PriceInput    *float64 `json:"price_input,omitempty" yaml:"price_input,omitempty"`
	PriceOutput   *float64 `json:"price_output,omitempty" yaml:"price_output,omitempty"`
	ContextWindow *float64 `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Rank          int      `json:"rank,omitempty" yaml:"rank,omitempty"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Trend         string   `json:"trend,omitempty" yaml:"trend,omitempty"`
	LastUpdated   utc.Time `json:"last_updated" yaml:"last_updated"`
}

// DBMetrics is the bundle contributed by the internal database.
type DBMetrics struct {
	Status        sources.Status   `json:"status" yaml:"status"`
	Availability  *float64         `json:"availability,omitempty" yaml:"availability,omitempty"`
	Latency       *sources.Latency `json:"latency,omitempty" yaml:"latency,omitempty"`
	Region        string           `json:"region,omitempty" yaml:"region,omitempty"`
	Intelligence  *float64         `json:"intelligence,omitempty" yaml:"intelligence,omitempty"`
	Speed         *float64         `json:"speed,omitempty" yaml:"speed,omitempty"`
	PriceInput    *float64         `json:"price_input,omitempty" yaml:"price_input,omitempty"`
	PriceOutput   *float64         `json:"price_output,omitempty" yaml:"price_output,omitempty"`
	ContextWindow *float64         `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	LastUpdated   utc.Time         `json:"last_updated" yaml:"last_updated"`
}

// Correction is the bundle contributed by the hand-maintained overrides.
type Correction struct {
	Intelligence  *float64 `json:"intelligence,omitempty" yaml:"intelligence,omitempty"`
	Speed         *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	PriceInput    *float64 `json:"price_input,omitempty" yaml:"price_input,omitempty"`
	PriceOutput   *float64 `json:"price_output,omitempty" yaml:"price_output,omitempty"`
	ContextWindow *float64 `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Note          string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// UnifiedModel is the single consistent record of one model.
//
// The derived fields (Intelligence through RankScore) are computed only by
// the merge engine from the AA, DB and Correction bundles. A nil derived
// value means no source reported it.
type UnifiedModel struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Provider     string        `json:"provider" yaml:"provider"`
	ProviderSlug string        `json:"provider_slug" yaml:"provider_slug"`
	Sources      []sources.Tag `json:"sources" yaml:"sources"`

	AA         *AAMetrics  `json:"aa,omitempty" yaml:"aa,omitempty"`
	DB         *DBMetrics  `json:"db,omitempty" yaml:"db,omitempty"`
	Correction *Correction `json:"correction,omitempty" yaml:"correction,omitempty"`

	Intelligence  *float64       `json:"intelligence,omitempty" yaml:"intelligence,omitempty"`
	Speed         *float64       `json:"speed,omitempty" yaml:"speed,omitempty"`
	PriceInput    *float64       `json:"price_input,omitempty" yaml:"price_input,omitempty"`
	PriceOutput   *float64       `json:"price_output,omitempty" yaml:"price_output,omitempty"`
	ContextWindow *float64       `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Status        sources.Status `json:"status" yaml:"status"`
	Availability  *float64       `json:"availability,omitempty" yaml:"availability,omitempty"`
	RankScore     float64        `json:"rank_score" yaml:"rank_score"`

	Aliases      []identity.Alias `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Modalities   []string         `json:"modalities,omitempty" yaml:"modalities,omitempty"`
	Capabilities []string         `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	IsActive     bool             `json:"is_active" yaml:"is_active"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty"`
	LastUpdated  utc.Time         `json:"last_updated" yaml:"last_updated"`
}

// HasSource reports whether tag contributed to the model.
func (m *UnifiedModel) HasSource(tag sources.Tag) bool {
	for _, t := range m.Sources {
		if t == tag {
			return true
		}
	}
	return false
}

// AAOnly reports whether the model is known only from the AA feed.
func (m *UnifiedModel) AAOnly() bool {
	return m.AA != nil && m.DB == nil
}

// DBOnly reports whether the model is known only from the database.
func (m *UnifiedModel) DBOnly() bool {
	return m.DB != nil && m.AA == nil
}

// MatchesName reports whether name is the model's id, name or an alias.
// Version separators are compared loosely: "claude-opus-4-1" finds
// "claude-opus-4.1".
func (m *UnifiedModel) MatchesName(name string) bool {
	key := identity.MatchKey(name)
	if key == "" {
		return false
	}
	if identity.MatchKey(m.ID) == key || identity.MatchKey(m.Name) == key {
		return true
	}
	for _, a := range m.Aliases {
		if identity.MatchKey(a.Slug) == key || identity.MatchKey(a.Name) == key {
			return true
		}
	}
	return false
}
