// Package dataflow provides abstract domains and a worklist fixed-point
// engine over a function's control flow graph.
//
// Domains are join semi-lattices. Join mutates the receiver in place and
// reports whether anything was added; the engine re-queues a block exactly
// when its entry state changed. All domains in this repository have finite
// height, which is what guarantees termination.
package dataflow

import (
	"maps"
	"slices"
)

// JoinResult reports whether a join changed the receiver.
type JoinResult bool

const (
	Unchanged JoinResult = false
	Changed   JoinResult = true
)

// Combine returns Changed if either operand is Changed. Both operands are
// already evaluated when Combine is called, so composite joins never skip a
// component.
func (r JoinResult) Combine(other JoinResult) JoinResult { return r || other }

// CombineAll folds Combine over results.
func CombineAll(results ...JoinResult) JoinResult {
	out := Unchanged
	for _, r := range results {
		out = out.Combine(r)
	}
	return out
}

func (r JoinResult) String() string {
	if r {
		return "changed"
	}
	return "unchanged"
}

// Domain is an abstract state. S is the concrete state type, normally a
// pointer so that Join can update it in place.
type Domain[S any] interface {
	Join(other S) JoinResult
	Clone() S
}

// Keyed is implemented by values that have a canonical string key.
type Keyed interface {
	Key() string
}

// SetDomain is the powerset lattice over T ordered by inclusion. Iteration
// order is the order of keys. The zero value is an empty set.
type SetDomain[T Keyed] struct {
	items map[string]T
}

// NewSetDomain returns a set holding items.
func NewSetDomain[T Keyed](items ...T) *SetDomain[T] {
	s := &SetDomain[T]{}
	for _, item := range items {
		s.Insert(item)
	}
	return s
}

// Insert adds item and reports whether it was new.
func (s *SetDomain[T]) Insert(item T) bool {
	key := item.Key()
	if _, ok := s.items[key]; ok {
		return false
	}
	if s.items == nil {
		s.items = make(map[string]T)
	}
	s.items[key] = item
	return true
}

// Extend inserts all items and reports whether any was new.
func (s *SetDomain[T]) Extend(items ...T) JoinResult {
	result := Unchanged
	for _, item := range items {
		if s.Insert(item) {
			result = Changed
		}
	}
	return result
}

// Contains reports whether item is in the set.
func (s *SetDomain[T]) Contains(item T) bool {
	_, ok := s.items[item.Key()]
	return ok
}

// Len returns the number of items.
func (s *SetDomain[T]) Len() int { return len(s.items) }

// IsEmpty reports whether the set is empty.
func (s *SetDomain[T]) IsEmpty() bool { return len(s.items) == 0 }

// Items returns the items ordered by key.
func (s *SetDomain[T]) Items() []T {
	keys := slices.Sorted(maps.Keys(s.items))
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = s.items[k]
	}
	return out
}

// Join adds every item of other.
func (s *SetDomain[T]) Join(other *SetDomain[T]) JoinResult {
	result := Unchanged
	for key, item := range other.items {
		if _, ok := s.items[key]; ok {
			continue
		}
		if s.items == nil {
			s.items = make(map[string]T, len(other.items))
		}
		s.items[key] = item
		result = Changed
	}
	return result
}

// Clone returns an independent copy.
func (s *SetDomain[T]) Clone() *SetDomain[T] {
	return &SetDomain[T]{items: maps.Clone(s.items)}
}

// Equal reports whether both sets hold the same keys.
func (s *SetDomain[T]) Equal(other *SetDomain[T]) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for key := range s.items {
		if _, ok := other.items[key]; !ok {
			return false
		}
	}
	return true
}

// IsSubset reports whether every item of s is in other.
func (s *SetDomain[T]) IsSubset(other *SetDomain[T]) bool {
	for key := range s.items {
		if _, ok := other.items[key]; !ok {
			return false
		}
	}
	return true
}
