// Package sources defines the intermediate record shape shared by every
// source adapter and the contract adapters implement.
//
// Adapters own their raw formats (AA JSON, relational rows, correction YAML)
// and normalize each item into a Record tagged with the adapter's Tag. Items
// that cannot be normalized are skipped and counted in Batch.Skipped; only
// whole-fetch failures are returned as errors.
//
// Example usage:
//
//	adapter := sources.Guard(aa.NewFileAdapter(path), sources.GuardOptions{
//	    Timeout: 10 * time.Second,
//	    Retries: 1,
//	})
//	batch, err := adapter.Fetch(ctx)
package sources

import (
	"context"
	"slices"
	"strings"

	"github.com/agentstation/utc"
)

// Tag identifies which kind of source produced a record.
type Tag string

// String returns the string representation of a tag.
func (t Tag) String() string {
	return string(t)
}

// Known source tags.
const (
	TagAA         Tag = "aa"
	TagDatabase   Tag = "database"
	TagCorrection Tag = "correction"
)

// Tags returns all known tags in resolution order.
func Tags() []Tag {
	return []Tag{TagAA, TagDatabase, TagCorrection}
}

// IsValid returns true if the tag is one of the defined constants.
func (t Tag) IsValid() bool {
	return slices.Contains(Tags(), t)
}

// Metric names a numeric field a source can report.
type Metric string

// Numeric metrics carried in Record.Metrics.
const (
	MetricIntelligence  Metric = "intelligence"
	MetricSpeed         Metric = "speed"
	MetricInputPrice    Metric = "input_price"
	MetricOutputPrice   Metric = "output_price"
	MetricContextWindow Metric = "context_window"
)

// AllMetrics returns every metric in a fixed order.
func AllMetrics() []Metric {
	return []Metric{
		MetricIntelligence,
		MetricSpeed,
		MetricInputPrice,
		MetricOutputPrice,
		MetricContextWindow,
	}
}

// Metrics is a sparse set of numeric values. A missing key means the
// source is silent on that field; it never means zero.
type Metrics map[Metric]float64

// Get returns the value of m and whether it is present.
func (ms Metrics) Get(m Metric) (float64, bool) {
	v, ok := ms[m]
	return v, ok
}

// Ptr returns a pointer to a copy of the value of m, or nil.
func (ms Metrics) Ptr(m Metric) *float64 {
	if v, ok := ms[m]; ok {
		return &v
	}
	return nil
}

// Status is the operational status reported by the database.
type Status string

// Operational statuses.
const (
	StatusOperational Status = "operational"
	StatusDegraded    Status = "degraded"
	StatusDown        Status = "down"
	StatusUnknown     Status = "unknown"
)

// ParseStatus maps free-form status strings onto a Status.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "operational", "up", "ok", "healthy":
		return StatusOperational
	case "degraded", "partial", "partial_outage":
		return StatusDegraded
	case "down", "outage", "major_outage":
		return StatusDown
	default:
		return StatusUnknown
	}
}

// Weight returns the ordinal weight used by the rank score.
func (s Status) Weight() float64 {
	switch s {
	case StatusOperational:
		return 4
	case StatusDegraded:
		return 2
	case StatusDown:
		return 0
	default:
		return 1
	}
}

// Latency holds response latency percentiles in milliseconds.
type Latency struct {
	P50 float64 `json:"p50" yaml:"p50"`
	P95 float64 `json:"p95" yaml:"p95"`
	P99 float64 `json:"p99" yaml:"p99"`
}

// Record is the normalized intermediate shape of one raw source item.
// Records live for one aggregation pass and are never persisted.
type Record struct {
	Tag          Tag
	RawName      string
	Slug         string // explicit slug, optional
	Provider     string
	ProviderSlug string
	Metrics      Metrics
	ObservedAt   utc.Time

	// Operational telemetry (database only).
	Status       Status
	Availability *float64
	Latency      *Latency
	Region       string

	// AA extras.
	Rank     int
	Category string
	Trend    string

	// Database extras.
	Modalities   []string
	Capabilities []string
	IsActive     *bool
	Description  string
}

// Batch is the result of one successful adapter fetch.
type Batch struct {
	Adapter   string
	Tag       Tag
	Records   []Record
	Skipped   int     // malformed items dropped by the adapter
	Malformed []error // reasons for the skipped items
	FetchedAt utc.Time
}

// Len returns the number of usable records.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Skip records a malformed item.
func (b *Batch) Skip(err error) {
	b.Skipped++
	b.Malformed = append(b.Malformed, err)
}

// Adapter fetches raw items from one source and normalizes them.
// Fetch returns a *errors.AdapterError on whole-fetch failure.
type Adapter interface {
	// Name identifies the adapter instance in logs and errors
	Name() string

	// Tag returns the tag of every record this adapter produces
	Tag() Tag

	// Fetch retrieves and normalizes the source's records
	Fetch(ctx context.Context) (*Batch, error)
}
