package util

// Ptr returns a pointer to the given value.
// Used for optional patch fields and nullable columns.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
