package merge

import (
	"path/filepath"
	"sort"

	"github.com/agentstation/aigo/pkg/sources"
)

// Field names used in the authority table.
const (
	FieldIntelligence  = "intelligence"
	FieldSpeed         = "speed"
	FieldInputPrice    = "input_price"
	FieldOutputPrice   = "output_price"
	FieldContextWindow = "context_window"
	FieldStatus        = "status"
	FieldAvailability  = "availability"
	FieldLatency       = "latency"
	FieldRegion        = "region"
)

// Authority defines the priority of one source for a field pattern.
type Authority struct {
	Path     string      `json:"path" yaml:"path"`         // field name or pattern, e.g. "*_price"
	Source   sources.Tag `json:"source" yaml:"source"`     // which source may supply the field
	Priority int         `json:"priority" yaml:"priority"` // higher wins
}

// DefaultAuthorities returns the standard precedence table.
//
// Operational telemetry comes only from the database. Numeric metrics are
// resolved per field as correction, then AA, then database.
func DefaultAuthorities() []Authority {
	return []Authority{
		{Path: FieldStatus, Source: sources.TagDatabase, Priority: 100},
		{Path: FieldAvailability, Source: sources.TagDatabase, Priority: 100},
		{Path: FieldLatency, Source: sources.TagDatabase, Priority: 100},
		{Path: FieldRegion, Source: sources.TagDatabase, Priority: 100},

		{Path: FieldIntelligence, Source: sources.TagCorrection, Priority: 300},
		{Path: FieldIntelligence, Source: sources.TagAA, Priority: 200},
		{Path: FieldIntelligence, Source: sources.TagDatabase, Priority: 100},

		{Path: FieldSpeed, Source: sources.TagCorrection, Priority: 300},
		{Path: FieldSpeed, Source: sources.TagAA, Priority: 200},
		{Path: FieldSpeed, Source: sources.TagDatabase, Priority: 100},

		{Path: "*_price", Source: sources.TagCorrection, Priority: 300},
		{Path: "*_price", Source: sources.TagAA, Priority: 200},
		{Path: "*_price", Source: sources.TagDatabase, Priority: 100},

		{Path: FieldContextWindow, Source: sources.TagCorrection, Priority: 300},
		{Path: FieldContextWindow, Source: sources.TagAA, Priority: 200},
		{Path: FieldContextWindow, Source: sources.TagDatabase, Priority: 100},
	}
}

// Precedence returns the sources allowed to supply field, most
// authoritative first. More specific patterns win over wildcards at equal
// priority; a source appears at most once.
func Precedence(field string, table []Authority) []sources.Tag {
	matches := make([]Authority, 0, 4)
	for _, a := range table {
		if MatchesPattern(field, a.Path) {
			matches = append(matches, a)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return len(matches[i].Path) > len(matches[j].Path)
	})

	out := make([]sources.Tag, 0, len(matches))
	seen := make(map[sources.Tag]bool, len(matches))
	for _, a := range matches {
		if !seen[a.Source] {
			seen[a.Source] = true
			out = append(out, a.Source)
		}
	}
	return out
}

// MatchesPattern checks if a field name matches a pattern (supports * wildcards)
func MatchesPattern(field, pattern string) bool {
	if field == pattern {
		return true
	}
	matched, err := filepath.Match(pattern, field)
	return err == nil && matched
}
