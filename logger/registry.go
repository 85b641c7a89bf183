package logger

import (
	"slices"
	"sync"
)

// named maps client names to the loggers configured for them. Clients that
// never registered a logger share the global one, tagged with their name.
var named sync.Map

// Register makes l the logger returned by Get(name).
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Unregister forgets the logger stored under name.
func Unregister(name string) {
	named.Delete(name)
}

// Lookup returns the logger registered under name, if any.
func Lookup(name string) (*Logger, bool) {
	v, ok := named.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Logger), true
}

// Get returns the logger registered under name, falling back to the
// global logger with name as its component.
func Get(name string) *Logger {
	if l, ok := Lookup(name); ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// Registered lists the names with a logger of their own, sorted.
func Registered() []string {
	var names []string
	named.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}
