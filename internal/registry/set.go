// Package registry provides the copy-on-write handle sets used for
// data, message, peer and connection listeners.
package registry

import (
	"sync"
	"sync/atomic"
)

// Set is a copy-on-write set of comparable handles. Writers are serialized
// by a mutex; readers take an immutable snapshot without locking, so a
// listener may add or remove handles while a dispatch over a snapshot is
// in progress.
//
// T must be comparable at runtime: for interface type parameters only
// pointer (or other comparable) dynamic types may be stored.
type Set[T comparable] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

// New returns an empty set.
func New[T comparable]() *Set[T] {
	return &Set[T]{}
}

// Snapshot returns the current members. The returned slice must not be modified.
func (s *Set[T]) Snapshot() []T {
	p := s.items.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Add inserts item and reports false if it was already present.
func (s *Set[T]) Add(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	for _, v := range cur {
		if v == item {
			return false
		}
	}

	next := make([]T, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, item)
	s.items.Store(&next)
	return true
}

// Contains reports whether item is present.
func (s *Set[T]) Contains(item T) bool {
	for _, v := range s.Snapshot() {
		if v == item {
			return true
		}
	}
	return false
}

// Remove deletes item and reports false if it was absent.
func (s *Set[T]) Remove(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	for i, v := range cur {
		if v != item {
			continue
		}
		next := make([]T, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		s.items.Store(&next)
		return true
	}
	return false
}

// Len returns the number of members.
func (s *Set[T]) Len() int {
	return len(s.Snapshot())
}

// Clear removes every member.
func (s *Set[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Store(nil)
}

// ForEach calls fn for every member of the current snapshot.
func (s *Set[T]) ForEach(fn func(T)) {
	for _, v := range s.Snapshot() {
		fn(v)
	}
}
