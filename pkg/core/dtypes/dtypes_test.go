// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDType(t *testing.T) {
	assert.Equal(t, 3, Float3.Size())
	assert.Equal(t, 2, Texture2D.Size())
	assert.Equal(t, 1, Bool.Size())
	assert.Equal(t, Half, Half4.Scalar())
	assert.Equal(t, Int3, Int.WithSize(3))
	assert.Equal(t, Texture3D, Texture1D.WithSize(3))
	assert.Equal(t, InvalidDType, Texture1D.WithSize(4))
	assert.Equal(t, InvalidDType, Float.WithSize(5))
	assert.True(t, Float2.IsVector())
	assert.False(t, Float.IsVector())
	assert.Equal(t, 2, Half3.ByteWidth())
	assert.Equal(t, "float4", Float4.String())
	assert.Equal(t, Float4, FromString("float4"))
	assert.Equal(t, InvalidDType, FromString("double"))
}

func TestSet(t *testing.T) {
	require.Equal(t, []DType{Float, Float2, Float3, Float4}, AnyFloat.Values())
	assert.Equal(t, 4, AnyFloat.Len())
	assert.True(t, Exactly(Float3).IsSingleton())
	assert.Equal(t, Float3, Exactly(Float3).Single())
	assert.Equal(t, InvalidDType, AnyFloat.Single())
	assert.Equal(t, SetOf(Float), AnyFloat.Intersect(AnyScalar))
	assert.True(t, AnyNumeric.Has(Int2))
	assert.False(t, AnyFloat.Has(InvalidDType))
	assert.Equal(t, SetOf(Float2, Float4), AnyFloat.Filter(func(dt DType) bool { return dt.Size()%2 == 0 }))

	assert.Equal(t, "any-float", AnyFloat.String())
	assert.Equal(t, "float2", Exactly(Float2).String())
	assert.Equal(t, "{float|half}", SetOf(Half, Float).String())
	parsed, ok := ParseSet("any-field")
	require.True(t, ok)
	assert.Equal(t, AnyField, parsed)
	parsed, ok = ParseSet("half2")
	require.True(t, ok)
	assert.Equal(t, Exactly(Half2), parsed)
	_, ok = ParseSet("any-thing")
	assert.False(t, ok)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "constant", Constant.String())
	d := TimeVarying.Union(ModelDependent)
	assert.True(t, d.Includes(TimeVarying))
	assert.False(t, d.Includes(TransformDependent))
	assert.True(t, d.Includes(Constant))
	assert.Equal(t, "time-varying+model-dependent", d.String())
}
