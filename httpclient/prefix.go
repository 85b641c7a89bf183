package httpclient

import (
	"net/url"
	"strings"
)

// Wildcard is the PrefixMap key that matches any URI.
const Wildcard = "*"

type prefixEntry[T any] struct {
	prefix string
	value  T
}

// PrefixMap maps URI prefixes to values. The longest matching prefix wins;
// among equal lengths the first registered wins. The wildcard is used only
// when no prefix matches.
//
// A prefix is matched against the full URI and, for absolute URIs, against
// the path and query, so "/api" matches "https://host/api/x".
type PrefixMap[T any] struct {
	entries     []prefixEntry[T]
	wildcard    T
	hasWildcard bool
}

// Set registers value under prefix. Wildcard sets the fallback. Setting an
// existing prefix replaces its value in place.
func (m *PrefixMap[T]) Set(prefix string, value T) *PrefixMap[T] {
	if prefix == Wildcard {
		m.wildcard, m.hasWildcard = value, true
		return m
	}
	if prefix == "" {
		return m
	}
	for i := range m.entries {
		if m.entries[i].prefix == prefix {
			m.entries[i].value = value
			return m
		}
	}
	m.entries = append(m.entries, prefixEntry[T]{prefix: prefix, value: value})
	return m
}

// Len returns the number of entries, wildcard included.
func (m *PrefixMap[T]) Len() int {
	if m == nil {
		return 0
	}
	n := len(m.entries)
	if m.hasWildcard {
		n++
	}
	return n
}

// Prefixes returns the registered prefixes in order, without the wildcard.
func (m *PrefixMap[T]) Prefixes() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.prefix)
	}
	return out
}

// Values returns every value, wildcard last.
func (m *PrefixMap[T]) Values() []T {
	if m == nil {
		return nil
	}
	out := make([]T, 0, m.Len())
	for _, e := range m.entries {
		out = append(out, e.value)
	}
	if m.hasWildcard {
		out = append(out, m.wildcard)
	}
	return out
}

// Lookup resolves uri. An empty uri never matches.
func (m *PrefixMap[T]) Lookup(uri string) (T, bool) {
	var zero T
	if m == nil || strings.TrimSpace(uri) == "" {
		return zero, false
	}
	best := -1
	for i, e := range m.entries {
		if matchesPrefix(uri, e.prefix) && (best < 0 || len(e.prefix) > len(m.entries[best].prefix)) {
			best = i
		}
	}
	if best >= 0 {
		return m.entries[best].value, true
	}
	if m.hasWildcard {
		return m.wildcard, true
	}
	return zero, false
}

// HasPrefix reports whether any of prefixes matches uri.
func HasPrefix(uri string, prefixes []string) bool {
	if strings.TrimSpace(uri) == "" {
		return false
	}
	for _, p := range prefixes {
		if p != "" && matchesPrefix(uri, p) {
			return true
		}
	}
	return false
}

func matchesPrefix(uri, prefix string) bool {
	if strings.HasPrefix(uri, prefix) {
		return true
	}
	if u, err := url.Parse(uri); err == nil && u.IsAbs() {
		return strings.HasPrefix(u.RequestURI(), prefix)
	}
	return false
}
