// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement a set type as a `map[T]struct{}` but with better ergonomics.
package sets

import (
	"cmp"
	"slices"
)

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := Make[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// InsertSet inserts all elements of s2 into s, and returns whether any new element was added.
func (s Set[T]) InsertSet(s2 Set[T]) (changed bool) {
	for key := range s2 {
		if !s.Has(key) {
			s[key] = struct{}{}
			changed = true
		}
	}
	return
}

// Clone returns a shallow copy of the set.
func (s Set[T]) Clone() Set[T] {
	s2 := Make[T](len(s))
	for k := range s {
		s2[k] = struct{}{}
	}
	return s2
}

// Union returns a new set with the elements of both sets.
func (s Set[T]) Union(s2 Set[T]) Set[T] {
	union := s.Clone()
	union.InsertSet(s2)
	return union
}

// Sub returns `s - s2`, that is, all elements in `s` that are not in `s2`.
func (s Set[T]) Sub(s2 Set[T]) Set[T] {
	sub := Make[T]()
	for k := range s {
		if !s2.Has(k) {
			sub.Insert(k)
		}
	}
	return sub
}

// Equal returns whether s and s2 have the exact same elements.
func (s Set[T]) Equal(s2 Set[T]) bool {
	if len(s) != len(s2) {
		return false
	}
	for k := range s {
		if !s2.Has(k) {
			return false
		}
	}
	return true
}

// Single returns the only element of the set and true, or the zero value and false if the
// set doesn't have exactly one element.
func (s Set[T]) Single() (element T, ok bool) {
	if len(s) != 1 {
		return
	}
	for k := range s {
		element = k
	}
	return element, true
}

// SortedFunc returns the elements of the set sorted with the given comparison function.
// Sets are unordered, use this whenever a deterministic iteration order is needed.
func SortedFunc[T comparable](s Set[T], compare func(a, b T) int) []T {
	keys := make([]T, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

// Sorted returns the elements of a set of ordered keys in increasing order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	return SortedFunc(s, cmp.Compare[T])
}
