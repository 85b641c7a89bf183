package util

import (
	"cmp"
	"maps"
	"slices"
)

// Ptr returns a pointer to v. Optional fields of the request and options
// types are pointers so that "unset" differs from the zero value.
func Ptr[T any](v T) *T {
	return &v
}

// SortedKeys returns the keys of m in ascending order, for deterministic
// header and query rendering.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
