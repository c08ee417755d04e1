package query

import (
	"sort"
	"strings"

	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/errors"
	"github.com/agentstation/aigo/pkg/sources"
)

// Field is a sortable model field.
type Field string

// Sortable fields.
const (
	FieldRankScore     Field = "rank_score"
	FieldIntelligence  Field = "intelligence"
	FieldSpeed         Field = "speed"
	FieldPriceInput    Field = "price_input"
	FieldPriceOutput   Field = "price_output"
	FieldContextWindow Field = "context_window"
	FieldAvailability  Field = "availability"
	FieldName          Field = "name"
	FieldProvider      Field = "provider"
	FieldStatus        Field = "status"
)

// Fields lists every sortable field.
func Fields() []Field {
	return []Field{
		FieldRankScore, FieldIntelligence, FieldSpeed, FieldPriceInput, FieldPriceOutput,
		FieldContextWindow, FieldAvailability, FieldName, FieldProvider, FieldStatus,
	}
}

// Direction is a sort direction.
type Direction string

// Directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort overrides the default order by one field. Ties fall back to the
// default order. An empty Direction uses the field's natural direction:
// ascending for names and prices, descending otherwise.
type Sort struct {
	Field     Field     `json:"field,omitempty" yaml:"field,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// ParseSort parses "field", "field:asc", "field:desc" or "-field".
func ParseSort(s string) (Sort, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Sort{}, nil
	}
	var out Sort
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		out = Sort{Field: Field(rest), Direction: Desc}
	} else if field, dir, ok := strings.Cut(s, ":"); ok {
		out = Sort{Field: Field(field), Direction: Direction(dir)}
	} else {
		out = Sort{Field: Field(s)}
	}
	return out, out.Validate()
}

// Validate checks the field and direction.
func (s Sort) Validate() error {
	if s.Field != "" {
		known := false
		for _, f := range Fields() {
			if s.Field == f {
				known = true
				break
			}
		}
		if !known {
			return errors.NewValidationError("sort", s.Field, "unknown sort field")
		}
	}
	switch s.Direction {
	case "", Asc, Desc:
		return nil
	default:
		return errors.NewValidationError("direction", s.Direction, "must be asc or desc")
	}
}

func (s Sort) direction() Direction {
	if s.Direction != "" {
		return s.Direction
	}
	switch s.Field {
	case FieldName, FieldProvider, FieldPriceInput, FieldPriceOutput:
		return Asc
	default:
		return Desc
	}
}

// Order returns a sorted copy of models.
func Order(models []catalog.UnifiedModel, s Sort) ([]catalog.UnifiedModel, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := make([]catalog.UnifiedModel, len(models))
	copy(out, models)
	sort.SliceStable(out, func(i, j int) bool {
		return s.less(&out[i], &out[j])
	})
	return out, nil
}

func (s Sort) less(a, b *catalog.UnifiedModel) bool {
	if s.Field == "" {
		return catalog.DefaultLess(a, b)
	}

	var c int
	switch s.Field {
	case FieldName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case FieldProvider:
		c = strings.Compare(strings.ToLower(a.Provider), strings.ToLower(b.Provider))
	default:
		va, vb := s.value(a), s.value(b)
		switch {
		case va == nil && vb == nil:
			return catalog.DefaultLess(a, b)
		case va == nil:
			return false
		case vb == nil:
			return true
		case *va < *vb:
			c = -1
		case *va > *vb:
			c = 1
		}
	}

	if c == 0 {
		return catalog.DefaultLess(a, b)
	}
	if s.direction() == Desc {
		return c > 0
	}
	return c < 0
}

// value returns the numeric sort key, nil when unknown.
func (s Sort) value(m *catalog.UnifiedModel) *float64 {
	switch s.Field {
	case FieldRankScore:
		v := m.RankScore
		return &v
	case FieldIntelligence:
		return m.Intelligence
	case FieldSpeed:
		return m.Speed
	case FieldPriceInput:
		return m.PriceInput
	case FieldPriceOutput:
		return m.PriceOutput
	case FieldContextWindow:
		return m.ContextWindow
	case FieldAvailability:
		return m.Availability
	case FieldStatus:
		if m.Status == "" || m.Status == sources.StatusUnknown {
			return nil
		}
		v := m.Status.Weight()
		return &v
	default:
		return nil
	}
}
