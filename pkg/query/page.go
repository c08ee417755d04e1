package query

import (
	"github.com/agentstation/aigo/pkg/catalog"
	"github.com/agentstation/aigo/pkg/constants"
)

// Page is one window of an ordered result.
type Page struct {
	Models     []catalog.UnifiedModel `json:"models" yaml:"models"`
	Total      int                    `json:"total" yaml:"total"`
	Limit      int                    `json:"limit" yaml:"limit"`
	Offset     int                    `json:"offset" yaml:"offset"`
	Page       int                    `json:"page" yaml:"page"`
	TotalPages int                    `json:"total_pages" yaml:"total_pages"`
}

// NormalizeLimit applies the default and the cap.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return constants.DefaultPageSize
	case limit > constants.MaxPageSize:
		return constants.MaxPageSize
	default:
		return limit
	}
}

// Paginate slices models. A non-positive limit uses the default page size,
// limits above the maximum are capped, and a negative offset is zero.
func Paginate(models []catalog.UnifiedModel, limit, offset int) Page {
	limit = NormalizeLimit(limit)
	if offset < 0 {
		offset = 0
	}
	total := len(models)

	p := Page{
		Models:     []catalog.UnifiedModel{},
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		Page:       offset/limit + 1,
		TotalPages: (total + limit - 1) / limit,
	}
	if offset < total {
		end := min(offset+limit, total)
		p.Models = append(p.Models, models[offset:end]...)
	}
	return p
}

// Apply filters then sorts.
func Apply(models []catalog.UnifiedModel, f Filters, s Sort) ([]catalog.UnifiedModel, error) {
	filtered, err := Filter(models, f)
	if err != nil {
		return nil, err
	}
	return Order(filtered, s)
}
