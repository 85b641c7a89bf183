// Package overlay implements the force-flag primitive used to layer static
// and per-request values onto headers, cookies, query strings and form data.
//
// A non-forcing value only fills a slot that is still empty. A forcing
// value always wins.
package overlay

// Overlay is a value paired with its force flag.
type Overlay[T any] struct {
	Value T    `json:"value" yaml:"value" mapstructure:"value"`
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// Of returns an Overlay for v.
func Of[T any](v T, force bool) Overlay[T] {
	return Overlay[T]{Value: v, Force: force}
}

// Entry is a keyed Overlay.
type Entry[T any] struct {
	Key        string `json:"key" yaml:"key" mapstructure:"key"`
	Overlay[T] `mapstructure:",squash" yaml:",inline"`
}

// List is an ordered sequence of keyed overlays. Order is preserved on Apply
// so later entries see the effect of earlier ones.
type List[T any] []Entry[T]

// Add appends an entry and returns the list.
func (l *List[T]) Add(key string, value T, force bool) *List[T] {
	*l = append(*l, Entry[T]{Key: key, Overlay: Of(value, force)})
	return l
}

// Len returns the number of entries.
func (l List[T]) Len() int { return len(l) }

// Keys returns the entry keys in order. Duplicates are kept.
func (l List[T]) Keys() []string {
	keys := make([]string, 0, len(l))
	for _, e := range l {
		keys = append(keys, e.Key)
	}
	return keys
}

// Get returns the value of the last entry stored under key.
func (l List[T]) Get(key string) (T, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Key == key {
			return l[i].Value, true
		}
	}
	var zero T
	return zero, false
}

// Apply writes each entry through set. Entries with an empty key are
// skipped, as are non-forcing entries for which has reports the key present.
// has is evaluated per entry, so it observes values set by earlier entries.
func (l List[T]) Apply(has func(key string) bool, set func(key string, value T)) {
	for _, e := range l {
		if e.Key == "" {
			continue
		}
		if !e.Force && has(e.Key) {
			continue
		}
		set(e.Key, e.Value)
	}
}

// ApplyValue resolves a single overlay against the current value. It returns
// the overlay value when forcing or when current is empty, else current.
func ApplyValue[T any](current T, o Overlay[T], empty func(T) bool) T {
	if o.Force || empty(current) {
		return o.Value
	}
	return current
}
