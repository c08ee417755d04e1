// Package aa normalizes the Artificial Analysis model feed into source
// records. The feed arrives either as the static export ({"models": [...]})
// or from the live API, which wraps items in "models" or "data" or returns a
// bare array and names several fields differently. This package is the only
// place that knows both shapes.
package aa

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agentstation/utc"
	"github.com/bytedance/sonic"

	"github.com/agentstation/aigo/pkg/constants"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/identity"
	"github.com/agentstation/aigo/pkg/sources"
)

// number accepts a JSON number, a numeric string, or null.
type number struct {
	value float64
	ok    bool
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values decode as
// absent rather than failing the item.
func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*n = number{}
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = number{}
		return nil
	}
	*n = number{value: v, ok: true}
	return nil
}

type price struct {
	Input  number `json:"input"`
	Output number `json:"output"`
}

// item is the union of the static and live item shapes.
type item struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Provider string `json:"provider"`

	Intelligence      number `json:"intelligence"`
	IntelligenceScore number `json:"intelligenceScore"`
	IntelligenceSnake number `json:"intelligence_score"`
	OutputSpeed       number `json:"outputSpeed"`
	OutputSpeedSnake  number `json:"output_speed"`
	InputPrice        number `json:"inputPrice"`
	OutputPrice       number `json:"outputPrice"`
	Price             *price `json:"price"`
	ContextWindow     number `json:"contextWindow"`

	Rank        number `json:"rank"`
	Category    string `json:"category"`
	Trend       string `json:"trend"`
	LastUpdated string `json:"lastUpdated"`
}

type envelope struct {
	Models []json.RawMessage `json:"models"`
	Data   []json.RawMessage `json:"data"`
}

// Parse decodes an AA payload of either shape into a batch. Items that
// cannot be decoded or normalized are skipped and counted. An undecodable
// payload is a parse failure of the whole fetch.
func Parse(adapter string, data []byte, fetchedAt time.Time) (*sources.Batch, error) {
	batch := &sources.Batch{
		Adapter:   adapter,
		Tag:       sources.TagAA,
		FetchedAt: utc.Time{Time: fetchedAt},
	}

	raw, err := splitItems(data)
	if err != nil {
		return nil, errors.NewAdapterError(adapter, errors.KindParse, "invalid AA payload", err)
	}

	for _, msg := range raw {
		var it item
		if err := sonic.Unmarshal(msg, &it); err != nil {
			batch.Skip(errors.NewMalformedRecordError(adapter, "", "undecodable item: "+err.Error()))
			continue
		}
		rec, err := it.record(fetchedAt)
		if err != nil {
			batch.Skip(err)
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func splitItems(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := sonic.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var env envelope
	if err := sonic.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.Models != nil {
		return env.Models, nil
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return nil, errors.New(`payload has neither "models" nor "data"`)
}

// truncate shortens s to at most n runes for error messages.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// record normalizes one item. Zero intelligence, speed and context window
// mean "not measured"; zero prices are kept because free models exist.
func (it item) record(fetchedAt time.Time) (sources.Record, error) {
	name := strings.TrimSpace(it.Name)
	slug := strings.TrimSpace(it.Slug)
	if slug == "" {
		slug = strings.TrimSpace(it.ID)
	}
	if name == "" && slug == "" {
		return sources.Record{}, errors.NewMalformedRecordError("aa", "", "missing name and slug")
	}
	if utf8.RuneCountInString(name) > constants.MaxModelNameLength {
		return sources.Record{}, errors.NewMalformedRecordError("aa", truncate(name, 32), "name too long")
	}

	metrics := sources.Metrics{}
	setPositive(metrics, sources.MetricIntelligence, it.Intelligence, it.IntelligenceScore, it.IntelligenceSnake)
	setPositive(metrics, sources.MetricSpeed, it.OutputSpeed, it.OutputSpeedSnake)
	setPositive(metrics, sources.MetricContextWindow, it.ContextWindow)

	in, out := it.InputPrice, it.OutputPrice
	if it.Price != nil {
		in = first(in, it.Price.Input)
		out = first(out, it.Price.Output)
	}
	if in.ok {
		metrics[sources.MetricInputPrice] = in.value
	}
	if out.ok {
		metrics[sources.MetricOutputPrice] = out.value
	}

	for m, v := range metrics {
		if v < 0 {
			return sources.Record{}, errors.NewMalformedRecordError("aa", name, "negative "+string(m))
		}
	}

	provider := strings.TrimSpace(it.Provider)
	if provider == "" {
		provider = InferProvider(name + " " + slug)
	}

	observed := fetchedAt
	if t, ok := parseTime(it.LastUpdated); ok {
		observed = t
	}

	rec := sources.Record{
		Tag:          sources.TagAA,
		RawName:      name,
		Slug:         slug,
		Provider:     provider,
		ProviderSlug: identity.Slugify(provider),
		Metrics:      metrics,
		Category:     it.Category,
		Trend:        it.Trend,
		ObservedAt:   utc.Time{Time: observed},
	}
	if it.Rank.ok && it.Rank.value > 0 {
		rec.Rank = int(it.Rank.value)
	}
	return rec, nil
}

// setPositive stores the first candidate with a value above zero.
func setPositive(ms sources.Metrics, m sources.Metric, candidates ...number) {
	for _, c := range candidates {
		if c.ok && c.value != 0 {
			ms[m] = c.value
			return
		}
	}
}

func first(a, b number) number {
	if a.ok {
		return a
	}
	return b
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// providerHints maps name fragments to the provider that publishes them.
var providerHints = []struct {
	fragment string
	provider string
}{
	{"gpt", "OpenAI"},
	{"o1", "OpenAI"},
	{"o3", "OpenAI"},
	{"o4", "OpenAI"},
	{"claude", "Anthropic"},
	{"gemini", "Google"},
	{"gemma", "Google"},
	{"llama", "Meta"},
	{"mistral", "Mistral"},
	{"mixtral", "Mistral"},
	{"codestral", "Mistral"},
	{"grok", "xAI"},
	{"deepseek", "DeepSeek"},
	{"qwen", "Alibaba"},
	{"command", "Cohere"},
	{"nova", "Amazon"},
	{"phi", "Microsoft"},
	{"kimi", "Moonshot AI"},
}

// InferProvider guesses the provider from a model name when the feed
// omits it. It returns "" when nothing matches.
func InferProvider(name string) string {
	tokens := identity.Tokens(identity.Slugify(name))
	for _, hint := range providerHints {
		for _, tok := range tokens {
			if strings.HasPrefix(tok, hint.fragment) {
				return hint.provider
			}
		}
	}
	return ""
}
