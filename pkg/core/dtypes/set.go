// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math/bits"
	"strings"
)

// Set of DType values, represented as a bitmask.
//
// A Set is used both as the declared graph type of a port (e.g. AnyFloat) and as the
// domain of admissible concrete types of a port during type resolution.
type Set uint32

// SetOf returns the Set with the given data types.
func SetOf(dtypes ...DType) Set {
	var s Set
	for _, dt := range dtypes {
		s |= 1 << uint(dt)
	}
	return s
}

// Exactly returns the singleton Set for a fixed (non-polymorphic) graph type.
func Exactly(dt DType) Set { return SetOf(dt) }

// Predefined polymorphic graph types.
var (
	// AnyFloat is the family of 32 bits floating point scalar and vectors.
	AnyFloat = SetOf(Float, Float2, Float3, Float4)

	// AnyFloatVector excludes the scalar from AnyFloat.
	AnyFloatVector = SetOf(Float2, Float3, Float4)

	// AnyHalf is the family of 16 bits floating point scalar and vectors.
	AnyHalf = SetOf(Half, Half2, Half3, Half4)

	// AnyInt is the family of signed integer scalar and vectors.
	AnyInt = SetOf(Int, Int2, Int3, Int4)

	// AnyFloatingPoint is AnyFloat and AnyHalf.
	AnyFloatingPoint = AnyFloat | AnyHalf

	// AnyNumeric includes every arithmetic type.
	AnyNumeric = AnyFloat | AnyHalf | AnyInt

	// AnyScalar includes the numeric scalar types.
	AnyScalar = SetOf(Float, Half, Int)

	// AnyField includes every texture (sampled field) type.
	AnyField = SetOf(Texture1D, Texture2D, Texture3D)
)

// Has returns whether dt is in the set.
func (s Set) Has(dt DType) bool {
	return dt.IsValid() && s&(1<<uint(dt)) != 0
}

// IsEmpty returns whether the set has no types.
func (s Set) IsEmpty() bool { return s == 0 }

// Len returns the number of types in the set.
func (s Set) Len() int { return bits.OnesCount32(uint32(s)) }

// IsSingleton returns whether the set has exactly one type.
func (s Set) IsSingleton() bool { return s.Len() == 1 }

// Single returns the only element of a singleton set, or InvalidDType otherwise.
func (s Set) Single() DType {
	if !s.IsSingleton() {
		return InvalidDType
	}
	return DType(bits.TrailingZeros32(uint32(s)))
}

// Intersect returns the types present in both sets.
func (s Set) Intersect(s2 Set) Set { return s & s2 }

// Union returns the types present in either set.
func (s Set) Union(s2 Set) Set { return s | s2 }

// Values returns the members of the set in preference (enum) order.
func (s Set) Values() []DType {
	values := make([]DType, 0, s.Len())
	for v := uint32(s); v != 0; v &= v - 1 {
		values = append(values, DType(bits.TrailingZeros32(v)))
	}
	return values
}

// Filter returns the subset of types for which keep returns true.
func (s Set) Filter(keep func(dt DType) bool) Set {
	var result Set
	for _, dt := range s.Values() {
		if keep(dt) {
			result |= 1 << uint(dt)
		}
	}
	return result
}

var namedSets = []struct {
	set  Set
	name string
}{
	{AnyNumeric, "any-numeric"},
	{AnyFloatingPoint, "any-floating-point"},
	{AnyFloat, "any-float"},
	{AnyFloatVector, "any-float-vector"},
	{AnyHalf, "any-half"},
	{AnyInt, "any-int"},
	{AnyScalar, "any-scalar"},
	{AnyField, "any-field"},
}

// String implements fmt.Stringer. Named polymorphic types are printed by name.
func (s Set) String() string {
	if s.IsSingleton() {
		return s.Single().String()
	}
	for _, named := range namedSets {
		if named.set == s {
			return named.name
		}
	}
	if s.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, s.Len())
	for _, dt := range s.Values() {
		parts = append(parts, dt.String())
	}
	return "{" + strings.Join(parts, "|") + "}"
}

// ParseSet parses a graph type name as printed by Set.String: either a concrete type name
// (e.g. "float3") or one of the named polymorphic types (e.g. "any-float").
func ParseSet(name string) (Set, bool) {
	for _, named := range namedSets {
		if named.name == name {
			return named.set, true
		}
	}
	if dt := FromString(name); dt.IsValid() {
		return Exactly(dt), true
	}
	return 0, false
}
