package utils

// Ptr returns a pointer to a copy of v, for optional API parameters.
func Ptr[T any](v T) *T {
	return &v
}
