package content

import (
	stderrors "errors"
	"sync"
)

// MemoState is the load state of a Memo.
type MemoState int

const (
	Unread MemoState = iota
	Cached
	Failed
)

// Memo holds a value loaded at most once. A failed load leaves the memo
// Unread so the next Get tries again, unless the load returned an error
// wrapped with Fail. That error is kept and returned by every later Get.
type Memo[T any] struct {
	mu    sync.Mutex
	state MemoState
	value T
	err   error
}

type failure struct{ err error }

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

// Fail marks err as final for Memo.Get: the load is not retried.
func Fail(err error) error {
	if err == nil {
		return nil
	}
	return &failure{err: err}
}

// Get returns the cached value, running load first if nothing is cached.
func (m *Memo[T]) Get(load func() (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	switch m.state {
	case Cached:
		return m.value, nil
	case Failed:
		return zero, m.err
	}
	v, err := load()
	if err != nil {
		var f *failure
		if stderrors.As(err, &f) {
			m.state, m.err = Failed, f.err
			return zero, f.err
		}
		return zero, err
	}
	m.value, m.state = v, Cached
	return v, nil
}

// Set caches v, replacing any previous value or failure.
func (m *Memo[T]) Set(v T) {
	m.mu.Lock()
	m.value, m.state, m.err = v, Cached, nil
	m.mu.Unlock()
}

// Peek returns the cached value without loading.
func (m *Memo[T]) Peek() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.state == Cached
}

// State reports whether the value has been loaded.
func (m *Memo[T]) State() MemoState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
