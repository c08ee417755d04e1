// Package table converts catalog values to rows for tabular CLI output.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/aigo/pkg/cache"
	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/sources"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ModelsToTableData converts models to table format. Wide adds the
// availability, context and source columns.
func ModelsToTableData(models []catalog.UnifiedModel, wide bool) Data {
	headers := []string{"ID", "Name", "Provider", "Intelligence", "Speed", "Input $/1M", "Output $/1M", "Status"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "Availability", "Context", "Rank", "Sources")
		align = append(align, AlignRight, AlignRight, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(models))
	for i := range models {
		m := &models[i]
		row := []string{
			m.ID,
			m.Name,
			m.Provider,
			FormatFloat(m.Intelligence, 1),
			FormatFloat(m.Speed, 0),
			FormatPrice(m.PriceInput),
			FormatPrice(m.PriceOutput),
			string(m.Status),
		}
		if wide {
			row = append(row,
				FormatPercent(m.Availability),
				FormatTokens(m.ContextWindow),
				strconv.FormatFloat(m.RankScore, 'f', 3, 64),
				FormatSources(m.Sources),
			)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ModelDetails renders one model as property/value rows.
func ModelDetails(m *catalog.UnifiedModel) Data {
	rows := [][]string{
		{"ID", m.ID},
		{"Name", m.Name},
		{"Provider", m.Provider},
		{"Sources", FormatSources(m.Sources)},
		{"Status", string(m.Status)},
		{"Availability", FormatPercent(m.Availability)},
		{"Intelligence", FormatFloat(m.Intelligence, 1)},
		{"Speed (tok/s)", FormatFloat(m.Speed, 1)},
		{"Input $/1M", FormatPrice(m.PriceInput)},
		{"Output $/1M", FormatPrice(m.PriceOutput)},
		{"Context", FormatTokens(m.ContextWindow)},
		{"Rank Score", strconv.FormatFloat(m.RankScore, 'f', 3, 64)},
		{"Active", strconv.FormatBool(m.IsActive)},
		{"Modalities", orDash(strings.Join(m.Modalities, ", "))},
		{"Capabilities", orDash(strings.Join(m.Capabilities, ", "))},
		{"Aliases", orDash(formatAliases(m.Aliases))},
		{"Last Updated", m.LastUpdated.Format(constants.TimeFormatHuman)},
	}
	if m.Correction != nil && m.Correction.Note != "" {
		rows = append(rows, []string{"Correction", m.Correction.Note})
	}
	if m.Description != "" {
		rows = append(rows, []string{"Description", m.Description})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// ProvidersToTableData converts provider summaries to table format.
func ProvidersToTableData(providers []catalog.ProviderSummary) Data {
	rows := make([][]string, 0, len(providers))
	for _, p := range providers {
		rows = append(rows, []string{
			p.Slug,
			p.Name,
			strconv.Itoa(p.ModelCount),
			strconv.Itoa(p.OperationalCount),
			FormatPercent(p.AverageAvailability),
			FormatFloat(p.AverageIntelligence, 1),
		})
	}
	return Data{
		Headers:         []string{"Slug", "Name", "Models", "Operational", "Avg Availability", "Avg Intelligence"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// StatsToTableData renders cache counters.
func StatsToTableData(s cache.Stats) Data {
	return Data{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Entries", strconv.Itoa(s.Entries)},
			{"Hits", strconv.FormatInt(s.Hits, 10)},
			{"Misses", strconv.FormatInt(s.Misses, 10)},
			{"Stale Hits", strconv.FormatInt(s.StaleHits, 10)},
			{"Builds", strconv.FormatInt(s.Builds, 10)},
			{"Build Failures", strconv.FormatInt(s.BuildFailures, 10)},
			{"Keys", orDash(strings.Join(s.Keys, "\n"))},
		},
	}
}

// ResolutionsToTableData renders identity resolver outcomes.
func ResolutionsToTableData(names []string, outcomes []identity.Outcome) Data {
	rows := make([][]string, 0, len(outcomes))
	for i, o := range outcomes {
		slug, detail := "-", "-"
		if o.Identity != nil {
			slug = o.Identity.Slug
		}
		if o.Err != nil {
			detail = o.Err.Error()
		} else if o.Alias != nil {
			detail = fmt.Sprintf("alias of %s (%s)", o.Alias.Target, o.Alias.Reason)
		}
		rows = append(rows, []string{names[i], slug, string(o.Kind), detail})
	}
	return Data{Headers: []string{"Input", "Slug", "Result", "Detail"}, Rows: rows}
}

// FormatFloat formats an optional value with the given precision.
func FormatFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// FormatPrice formats a USD per 1M tokens price. Zero is a real price.
func FormatPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

// FormatPercent formats an availability percentage.
func FormatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// FormatTokens formats a context window.
func FormatTokens(v *float64) string {
	if v == nil || *v <= 0 {
		return "-"
	}
	return FormatNumber(int64(*v))
}

// FormatNumber formats large numbers with comma separators.
func FormatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatSources joins source tags.
func FormatSources(tags []sources.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return orDash(strings.Join(parts, ", "))
}

// FormatAge renders a cache age for humans.
func FormatAge(d time.Duration) string {
	if d <= 0 {
		return "fresh"
	}
	return d.Round(time.Second).String()
}

func formatAliases(aliases []identity.Alias) string {
	names := make([]string, len(aliases))
	for i, a := range aliases {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
