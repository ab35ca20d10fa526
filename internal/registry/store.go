// Package registry holds values owned across runtime boundaries, keyed by
// the opaque IDs the managed side hands us.
//
// Each Store has its own mutex. Values are released after the mutex is
// dropped, so a release that calls back into the JVM never runs under a
// registry lock.
package registry

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrNotFound is returned when a key has no registered value.
var ErrNotFound = errors.New("registry: key not found")

// Releaser is an owned resource with a single release path.
type Releaser interface {
	Release()
}

// Store maps keys to owned values.
type Store[K comparable, V Releaser] struct {
	name string

	mu sync.Mutex
	m  map[K]V
}

// New creates an empty store. name shows up in log lines.
func New[K comparable, V Releaser](name string) *Store[K, V] {
	return &Store[K, V]{name: name, m: make(map[K]V)}
}

// Register stores v under k. A value already under k is replaced and
// released.
func (s *Store[K, V]) Register(k K, v V) (replaced bool) {
	s.mu.Lock()
	old, ok := s.m[k]
	s.m[k] = v
	s.mu.Unlock()

	if ok {
		slog.Info("registry: replaced entry", "store", s.name, "key", k)
		old.Release()
	}
	return ok
}

// Take removes the value under k and transfers its ownership to the caller.
// Only one caller can win a given value.
func (s *Store[K, V]) Take(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[k]
	if ok {
		delete(s.m, k)
	}
	return v, ok
}

// Deregister removes and releases the value under k. A missing key is a
// soft error: it is logged and nothing is released.
func (s *Store[K, V]) Deregister(k K) bool {
	v, ok := s.Take(k)
	if !ok {
		slog.Warn("registry: deregister of unknown key", "store", s.name, "key", k)
		return false
	}
	v.Release()
	return true
}

// With runs fn with the value under k while holding the store lock, so the
// value cannot be released concurrently. fn must not call into the JVM.
func (s *Store[K, V]) With(k K, fn func(V) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[k]
	if !ok {
		return ErrNotFound
	}
	return fn(v)
}

// Contains reports whether k is registered.
func (s *Store[K, V]) Contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[k]
	return ok
}

func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// ReleaseAll empties the store and releases every value once. It returns the
// number of values released.
func (s *Store[K, V]) ReleaseAll() int {
	vals := s.Drain()
	for _, v := range vals {
		v.Release()
	}
	if len(vals) > 0 {
		slog.Info("registry: released all entries", "store", s.name, "count", len(vals))
	}
	return len(vals)
}

// Drain empties the store and hands every value to the caller without
// releasing it.
func (s *Store[K, V]) Drain() []V {
	s.mu.Lock()
	old := s.m
	s.m = make(map[K]V)
	s.mu.Unlock()

	vals := make([]V, 0, len(old))
	for _, v := range old {
		vals = append(vals, v)
	}
	return vals
}
