// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"math"

	"github.com/gomlx/shadergraph/pkg/compiler/branches"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/mathexpr"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// FoldCondition returns the function deciding the live arm of conditionals whose condition is
// known at compile time: a boolean constant, or a comparison of scalar constants (unconnected
// operands are 0). It is passed to branches.Label, so that dead arms are neither labeled nor
// generated.
func FoldCondition(g *graph.Graph) branches.LiveArmFn {
	return func(node *graph.Node) (arm int, ok bool) {
		if node.Op() != graph.OpConditional {
			return 0, false
		}
		producer := g.ProducerNode(node.Inputs()[0])
		if producer == nil {
			// Unconnected condition is false.
			return 1, true
		}
		var value bool
		switch producer.Op() {
		case graph.OpConstant:
			value = producer.Params().(graph.ConstantParams).Values[0] != 0
		case graph.OpCompare:
			a, aOK := scalarConstant(g, producer.Inputs()[0])
			b, bOK := scalarConstant(g, producer.Inputs()[1])
			if !aOK || !bOK {
				return 0, false
			}
			value = producer.Params().(graph.CompareParams).Op.Eval(a, b)
		default:
			return 0, false
		}
		if value {
			arm = 0
		} else {
			arm = 1
		}
		klog.V(2).Infof("codegen: condition of %s folds to %v", node, value)
		return arm, true
	}
}

// scalarConstant returns the value flowing into a scalar input when it is a constant node or
// unconnected, rounded to the precision of the constant's type.
func scalarConstant(g *graph.Graph, input graph.PortID) (float64, bool) {
	producer := g.ProducerNode(input)
	if producer == nil {
		return 0, true
	}
	if producer.Op() != graph.OpConstant {
		return 0, false
	}
	p := producer.Params().(graph.ConstantParams)
	if len(p.Values) != 1 {
		return 0, false
	}
	return roundTo(p.DType(), p.Values[0]), true
}

// roundTo rounds a value to the precision of the scalar type of dt.
func roundTo(dt dtypes.DType, r float64) float64 {
	switch {
	case dt.IsInt():
		return math.Trunc(r)
	case dt.IsHalf():
		return float64(float16.Fromfloat32(float32(r)).Float32())
	case dt.IsFloat():
		return float64(float32(r))
	}
	return r
}

// constantOperand returns the components of the value flowing into an input, if known at
// compile time.
func (c *Context) constantOperand(input graph.PortID) ([]float64, bool) {
	producer, found := c.g.Producer(input)
	if !found {
		return make([]float64, c.in.Types.Of(input).Size()), true
	}
	values, found := c.constants[producer]
	return values, found
}

// fold evaluates an element-wise arithmetic node whose operands are all constants, binding
// its output to the resulting constant. It returns false if the node can't be folded.
func (c *Context) fold(node *graph.Node, fn mathexpr.Function, dt dtypes.DType) bool {
	if fn == mathexpr.FuncNormalize {
		// Not element-wise.
		return false
	}
	operands := make([][]float64, len(node.Inputs()))
	for ii, input := range node.Inputs() {
		values, ok := c.constantOperand(input)
		if !ok {
			return false
		}
		operands[ii] = values
	}
	results := make([]float64, dt.Size())
	args := make([]float64, len(operands))
	for component := range results {
		for ii, values := range operands {
			args[ii] = values[0]
			if len(values) > 1 {
				args[ii] = values[component]
			}
		}
		if dt.IsInt() && fn == mathexpr.FuncDivide && args[1] == 0 {
			return false
		}
		r := roundTo(dt, mathexpr.Apply(fn, args...))
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return false
		}
		results[component] = r
	}
	out := node.Outputs()[0]
	c.bind(out, c.constant(dt, results...))
	c.constants[out] = results
	return true
}
