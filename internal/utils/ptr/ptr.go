// Package ptr builds pointers to literal values.
package ptr

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Float64 returns a pointer to f.
func Float64(f float64) *float64 {
	return &f
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Copy returns a pointer to a copy of *p, or nil.
func Copy[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Value returns *p, or def when p is nil.
func Value[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
