package catalog

import "sort"

// DefaultLess is the default catalog order: rank score descending, then
// intelligence descending with unknown last, then name and id ascending.
func DefaultLess(a, b *UnifiedModel) bool {
	if a.RankScore != b.RankScore {
		return a.RankScore > b.RankScore
	}
	if c := CompareKnown(a.Intelligence, b.Intelligence); c != 0 {
		return c > 0
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// CompareKnown compares two optional values where any known value ranks
// ahead of an unknown one. It returns 1 when a should come first in a
// descending order, -1 when b should, and 0 when equal or both unknown.
func CompareKnown(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}

// SortDefault sorts models in place by DefaultLess.
func SortDefault(models []UnifiedModel) {
	sort.SliceStable(models, func(i, j int) bool {
		return DefaultLess(&models[i], &models[j])
	})
}
