// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"strings"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
)

// ConstantParams of an OpConstant node: up to 4 components of the given scalar type.
type ConstantParams struct {
	Values []float64

	// Scalar type of the components. If InvalidDType, it defaults to dtypes.Float.
	Scalar dtypes.DType
}

// DType returns the concrete type of the constant.
func (p ConstantParams) DType() dtypes.DType {
	scalar := p.Scalar
	if scalar == dtypes.InvalidDType {
		scalar = dtypes.Float
	}
	return scalar.WithSize(len(p.Values))
}

// CompareOp is the comparison performed by an OpCompare node.
type CompareOp int

const (
	CompareLess CompareOp = iota
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNotEqual
)

var compareOpNames = []string{"less", "less_equal", "greater", "greater_equal", "equal", "not_equal"}

func (op CompareOp) String() string {
	if op < 0 || int(op) >= len(compareOpNames) {
		return "CompareOp(?)"
	}
	return compareOpNames[op]
}

// CompareOpFromString returns the CompareOp of the given name, and false if it is not known.
func CompareOpFromString(name string) (CompareOp, bool) {
	for ii, n := range compareOpNames {
		if n == name {
			return CompareOp(ii), true
		}
	}
	return 0, false
}

// Eval evaluates the comparison, used for constant folding.
func (op CompareOp) Eval(a, b float64) bool {
	switch op {
	case CompareLess:
		return a < b
	case CompareLessEqual:
		return a <= b
	case CompareGreater:
		return a > b
	case CompareGreaterEqual:
		return a >= b
	case CompareEqual:
		return a == b
	case CompareNotEqual:
		return a != b
	}
	return false
}

// CompareParams of an OpCompare node.
type CompareParams struct {
	Op CompareOp
}

// SwizzleParams of an OpSwizzle node. Selector uses the letters "xyzw" or "rgba", 1 to 4 of them.
type SwizzleParams struct {
	Selector string
}

// Components returns the component index for each selector letter, or nil if the selector is invalid.
func (p SwizzleParams) Components() []int {
	if len(p.Selector) == 0 || len(p.Selector) > 4 {
		return nil
	}
	components := make([]int, len(p.Selector))
	for ii, r := range p.Selector {
		idx := strings.IndexRune("xyzw", r)
		if idx < 0 {
			idx = strings.IndexRune("rgba", r)
		}
		if idx < 0 {
			return nil
		}
		components[ii] = idx
	}
	return components
}

// CombineParams of an OpCombine node: the number of inputs combined into a vector (2 to 4).
type CombineParams struct {
	Count int
}

// MathExpressionParams of an OpMathExpression node: the expression source and the names of its
// variables, one input port per variable.
type MathExpressionParams struct {
	Expression string
	Inputs     []string
}

// TextureParams of an OpTexture node: an external texture bound by name.
type TextureParams struct {
	Name string
	Dim  int
}

// ComputeFieldParams of an OpComputeField root: the field is evaluated into a Dim-dimensional
// storage image with Resolution texels per axis.
type ComputeFieldParams struct {
	Dim        int
	Resolution int
}

// DefaultFieldResolution is used when ComputeFieldParams.Resolution is 0.
const DefaultFieldResolution = 256
