// Package correction loads hand-maintained metric overrides from YAML.
// Overrides only adjust models that some other source already reports.
package correction

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/sources"
)

// AdapterName is the correction adapter's name.
const AdapterName = "corrections"

// Entry is one override in the corrections file.
type Entry struct {
	Model         string   `yaml:"model"`
	Intelligence  *float64 `yaml:"intelligence,omitempty"`
	Speed         *float64 `yaml:"speed,omitempty"`
	InputPrice    *float64 `yaml:"input_price,omitempty"`
	OutputPrice   *float64 `yaml:"output_price,omitempty"`
	ContextWindow *float64 `yaml:"context_window,omitempty"`
	Note          string   `yaml:"note,omitempty"`
	UpdatedAt     string   `yaml:"updated_at,omitempty"`
}

// File is the top-level document.
type File struct {
	Corrections []Entry `yaml:"corrections"`
}

// Adapter reads a corrections file.
type Adapter struct {
	path string
}

// New creates an adapter for the YAML file at path.
func New(path string) *Adapter {
	return &Adapter{path: path}
}

// Name implements sources.Adapter.
func (a *Adapter) Name() string { return AdapterName }

// Tag implements sources.Adapter.
func (a *Adapter) Tag() sources.Tag { return sources.TagCorrection }

// Fetch implements sources.Adapter. A missing file yields an empty batch
// rather than an error: having no corrections is the normal case.
func (a *Adapter) Fetch(ctx context.Context) (*sources.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &sources.Batch{Adapter: a.Name(), Tag: a.Tag(), FetchedAt: utc.Now()}, nil
		}
		return nil, errors.WrapAdapter(a.Name(), errors.KindNetwork, errors.WrapIO("read", a.path, err))
	}
	return Parse(data, time.Now())
}

// Parse decodes a corrections document. Entries without a model or with a
// negative value are skipped.
func Parse(data []byte, now time.Time) (*sources.Batch, error) {
	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewAdapterError(AdapterName, errors.KindParse, "invalid corrections file", err)
	}

	batch := &sources.Batch{Adapter: AdapterName, Tag: sources.TagCorrection, FetchedAt: utc.Time{Time: now}}
	for _, e := range doc.Corrections {
		rec, err := e.record(now)
		if err != nil {
			batch.Skip(err)
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func (e Entry) record(now time.Time) (sources.Record, error) {
	model := strings.TrimSpace(e.Model)
	if model == "" {
		return sources.Record{}, errors.NewMalformedRecordError(AdapterName, "", "missing model")
	}

	metrics := sources.Metrics{}
	for m, v := range map[sources.Metric]*float64{
		sources.MetricIntelligence:  e.Intelligence,
		sources.MetricSpeed:         e.Speed,
		sources.MetricInputPrice:    e.InputPrice,
		sources.MetricOutputPrice:   e.OutputPrice,
		sources.MetricContextWindow: e.ContextWindow,
	} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return sources.Record{}, errors.NewMalformedRecordError(AdapterName, model, "negative "+string(m))
		}
		metrics[m] = *v
	}
	if len(metrics) == 0 {
		return sources.Record{}, errors.NewMalformedRecordError(AdapterName, model, "no overrides")
	}

	observed := now
	if t, err := time.Parse(time.DateOnly, strings.TrimSpace(e.UpdatedAt)); err == nil {
		observed = t
	} else if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.UpdatedAt)); err == nil {
		observed = t.UTC()
	}

	return sources.Record{
		Tag:         sources.TagCorrection,
		RawName:     model,
		Slug:        model,
		Metrics:     metrics,
		Description: e.Note,
		ObservedAt:  utc.Time{Time: observed},
	}, nil
}
