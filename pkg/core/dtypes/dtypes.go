// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes defines the concrete data types a port of a shader graph can hold, the
// polymorphic graph types (sets of concrete types) ports are declared with, and the
// computation domains used to classify how often a value may change.
package dtypes

import (
	"fmt"
)

// DType is a concrete data type assigned to a port after type resolution.
//
// The enum order is also the preference order: when more than one type is valid for a port,
// the type resolver tries lower values first.
type DType int8

const (
	InvalidDType DType = iota
	Float
	Float2
	Float3
	Float4
	Half
	Half2
	Half3
	Half4
	Int
	Int2
	Int3
	Int4
	Bool
	Texture1D
	Texture2D
	Texture3D

	// numDTypes is the number of valid DType values, including InvalidDType.
	numDTypes
)

var dtypeNames = [numDTypes]string{
	InvalidDType: "invalid",
	Float:        "float",
	Float2:       "float2",
	Float3:       "float3",
	Float4:       "float4",
	Half:         "half",
	Half2:        "half2",
	Half3:        "half3",
	Half4:        "half4",
	Int:          "int",
	Int2:         "int2",
	Int3:         "int3",
	Int4:         "int4",
	Bool:         "bool",
	Texture1D:    "texture1d",
	Texture2D:    "texture2d",
	Texture3D:    "texture3d",
}

// String implements fmt.Stringer.
func (dt DType) String() string {
	if !dt.IsValid() && dt != InvalidDType {
		return fmt.Sprintf("DType(%d)", int(dt))
	}
	return dtypeNames[dt]
}

// FromString returns the DType with the given name, or InvalidDType if there is none.
func FromString(name string) DType {
	for dt, dtName := range dtypeNames {
		if dtName == name {
			return DType(dt)
		}
	}
	return InvalidDType
}

// IsValid returns whether dt is one of the defined data types (InvalidDType is not valid).
func (dt DType) IsValid() bool {
	return dt > InvalidDType && dt < numDTypes
}

// IsFloat returns true for the 32 bits floating point scalar and vectors.
func (dt DType) IsFloat() bool { return dt >= Float && dt <= Float4 }

// IsHalf returns true for the 16 bits floating point scalar and vectors.
func (dt DType) IsHalf() bool { return dt >= Half && dt <= Half4 }

// IsInt returns true for signed 32 bits integer scalar and vectors.
func (dt DType) IsInt() bool { return dt >= Int && dt <= Int4 }

// IsFloatingPoint returns true for both single and half precision types.
func (dt DType) IsFloatingPoint() bool { return dt.IsFloat() || dt.IsHalf() }

// IsNumeric returns true for all arithmetic types (floating point and integer).
func (dt DType) IsNumeric() bool { return dt.IsFloatingPoint() || dt.IsInt() }

// IsTexture returns true for the sampled field (texture) types.
func (dt DType) IsTexture() bool { return dt >= Texture1D && dt <= Texture3D }

// IsVector returns whether dt is a numeric vector with 2 or more components.
func (dt DType) IsVector() bool { return dt.IsNumeric() && dt.Size() > 1 }

// Size returns the number of components of a numeric type (1 for scalars and bool),
// or the dimensionality of a texture type. It returns 0 for InvalidDType.
func (dt DType) Size() int {
	switch {
	case dt.IsFloat():
		return int(dt-Float) + 1
	case dt.IsHalf():
		return int(dt-Half) + 1
	case dt.IsInt():
		return int(dt-Int) + 1
	case dt.IsTexture():
		return int(dt-Texture1D) + 1
	case dt == Bool:
		return 1
	}
	return 0
}

// Scalar returns the scalar (single component) type of a numeric type, or dt itself for
// the other types.
func (dt DType) Scalar() DType {
	switch {
	case dt.IsFloat():
		return Float
	case dt.IsHalf():
		return Half
	case dt.IsInt():
		return Int
	}
	return dt
}

// WithSize returns the type of the same family as dt with the given number of components
// (or dimensions for textures). It returns InvalidDType if there is no such type.
func (dt DType) WithSize(size int) DType {
	if size < 1 || size > 4 {
		return InvalidDType
	}
	switch {
	case dt.IsFloat():
		return Float + DType(size-1)
	case dt.IsHalf():
		return Half + DType(size-1)
	case dt.IsInt():
		return Int + DType(size-1)
	case dt.IsTexture():
		if size > 3 {
			return InvalidDType
		}
		return Texture1D + DType(size-1)
	case dt == Bool && size == 1:
		return Bool
	}
	return InvalidDType
}

// ByteWidth returns the size in bytes of one component of the type (0 for opaque types).
func (dt DType) ByteWidth() int {
	switch {
	case dt.IsHalf():
		return 2
	case dt.IsFloat(), dt.IsInt(), dt == Bool:
		return 4
	}
	return 0
}
