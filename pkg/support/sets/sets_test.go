// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	// Sets are created empty.
	s := Make[int](10)
	assert.Len(t, s, 0)

	// Check inserting and recovery.
	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	s2 := MakeWith(5, 7)
	s3 := s.Sub(s2)
	assert.Len(t, s3, 1)
	assert.True(t, s3.Has(3))

	u := s.Union(s2)
	assert.Equal(t, []int{3, 5, 7}, Sorted(u))
	assert.Len(t, s, 2, "Union must not change the receiver")

	c := s.Clone()
	assert.False(t, c.InsertSet(MakeWith(3)))
	assert.True(t, c.InsertSet(MakeWith(3, 11)))
	assert.Equal(t, []int{3, 7, 11}, Sorted(c))
	assert.False(t, s.Has(11))
}

func TestSingle(t *testing.T) {
	_, ok := Make[string]().Single()
	assert.False(t, ok)
	v, ok := MakeWith("a").Single()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = MakeWith("a", "b").Single()
	assert.False(t, ok)

	descending := SortedFunc(MakeWith(1, 4, 2), func(a, b int) int { return b - a })
	assert.Equal(t, []int{4, 2, 1}, descending)
	assert.True(t, MakeWith(1, 2).Equal(MakeWith(2, 1)))
}
