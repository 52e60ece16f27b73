// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphfile

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Parameter attributes of the node kinds that take parameters.

type constantAttrs struct {
	Values []float64 `hcl:"values"`
	Scalar *string   `hcl:"scalar,optional"`
}

type textureAttrs struct {
	Name *string `hcl:"name,optional"`
	Dim  int     `hcl:"dim"`
}

type compareAttrs struct {
	Operator string `hcl:"operator"`
}

type swizzleAttrs struct {
	Selector string `hcl:"selector"`
}

type combineAttrs struct {
	Count *int `hcl:"count,optional"`
}

type mathExpressionAttrs struct {
	Expression string   `hcl:"expression"`
	Variables  []string `hcl:"variables,optional"`
}

type computeFieldAttrs struct {
	Dim        int  `hcl:"dim"`
	Resolution *int `hcl:"resolution,optional"`
}

// buildNode creates the node of a block and collects its input connections in block.conns.
func buildNode(b *graph.Builder, block *nodeBlock) (*graph.Node, hcl.Diagnostics) {
	op, err := graph.OpTypeString(block.Op)
	if err != nil || op == graph.OpInvalid {
		return nil, hcl.Diagnostics{errorf(block.Range, "Unknown node kind", "node %q has unknown op %q, valid ops are %q",
			block.Name, block.Op, graph.OpTypeStrings()[1:])}
	}

	id := graph.DeriveNodeID("name:" + block.Name)
	if block.ID != nil {
		id, err = graph.ParseNodeID(*block.ID)
		if err != nil {
			return nil, hcl.Diagnostics{errorf(block.Range, "Invalid node id", "node %q: %v", block.Name, err)}
		}
	}

	conns, diags := parseInputs(block)
	if diags.HasErrors() {
		return nil, diags
	}
	block.conns = conns

	params, paramDiags := decodeParams(op, block)
	diags = diags.Extend(paramDiags)
	if diags.HasErrors() {
		return nil, diags
	}

	var node *graph.Node
	err = exceptions.TryCatch[error](func() { node = b.NodeWithID(id, block.Name, op, params) })
	if err != nil {
		return nil, diags.Append(errorf(block.Range, "Invalid node", "node %q: %v", block.Name, err))
	}
	return node, diags
}

// parseInputs parses the "inputs" attribute: an object mapping input names to references of
// the form <node> or <node>.<output>.
func parseInputs(block *nodeBlock) ([]connection, hcl.Diagnostics) {
	if block.Inputs == nil {
		return nil, nil
	}
	pairs, diags := hcl.ExprMap(block.Inputs.Expr)
	if diags.HasErrors() {
		return nil, diags
	}
	conns := make([]connection, 0, len(pairs))
	for _, pair := range pairs {
		key, keyDiags := pair.Key.Value(nil)
		diags = diags.Extend(keyDiags)
		if keyDiags.HasErrors() {
			continue
		}
		// Bare keywords, as the "true" and "false" arms of a conditional, are parsed as literals.
		key, err := convert.Convert(key, cty.String)
		if err != nil || key.IsNull() || !key.IsKnown() {
			diags = diags.Append(errorf(pair.Key.Range(), "Invalid input name", "input names of node %q must be strings", block.Name))
			continue
		}
		rng := pair.Value.Range()
		traversal, travDiags := hcl.AbsTraversalForExpr(pair.Value)
		if travDiags.HasErrors() {
			diags = diags.Append(errorf(rng, "Invalid reference", "input %q of node %q must reference a node output, e.g. noise.out", key.AsString(), block.Name))
			continue
		}
		conn := connection{input: key.AsString(), from: traversal.RootName(), rng: rng}
		switch len(traversal) {
		case 1:
		case 2:
			attr, ok := traversal[1].(hcl.TraverseAttr)
			if !ok {
				diags = diags.Append(errorf(rng, "Invalid reference", "input %q of node %q: output must be referenced by name", conn.input, block.Name))
				continue
			}
			conn.output = attr.Name
		default:
			diags = diags.Append(errorf(rng, "Invalid reference", "input %q of node %q: reference has too many parts", conn.input, block.Name))
			continue
		}
		conns = append(conns, conn)
	}
	return conns, diags
}

// decodeParams decodes the parameter attributes of a node block into the graph parameters of
// its kind. Node kinds without parameters accept no other attributes.
func decodeParams(op graph.OpType, block *nodeBlock) (any, hcl.Diagnostics) {
	switch op {
	case graph.OpConstant:
		var attrs constantAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		params := graph.ConstantParams{Values: attrs.Values}
		if attrs.Scalar != nil {
			params.Scalar = dtypes.FromString(*attrs.Scalar)
			if !params.Scalar.IsValid() || params.Scalar.IsTexture() || params.Scalar.Size() != 1 {
				return nil, hcl.Diagnostics{errorf(block.Range, "Invalid scalar type", "node %q: %q is not a scalar type", block.Name, *attrs.Scalar)}
			}
		}
		return params, nil

	case graph.OpTexture:
		var attrs textureAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		params := graph.TextureParams{Name: block.Name, Dim: attrs.Dim}
		if attrs.Name != nil {
			params.Name = *attrs.Name
		}
		return params, nil

	case graph.OpCompare:
		var attrs compareAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		cmp, found := graph.CompareOpFromString(attrs.Operator)
		if !found {
			return nil, hcl.Diagnostics{errorf(block.Range, "Invalid operator", "node %q: unknown comparison %q", block.Name, attrs.Operator)}
		}
		return graph.CompareParams{Op: cmp}, nil

	case graph.OpSwizzle:
		var attrs swizzleAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		return graph.SwizzleParams{Selector: attrs.Selector}, nil

	case graph.OpCombine:
		var attrs combineAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		if attrs.Count != nil {
			return graph.CombineParams{Count: *attrs.Count}, nil
		}
		// Defaults to the highest connected component.
		count := 2
		for _, conn := range block.conns {
			if idx := slices.Index([]string{"x", "y", "z", "w"}, conn.input); idx+1 > count {
				count = idx + 1
			}
		}
		return graph.CombineParams{Count: count}, nil

	case graph.OpMathExpression:
		var attrs mathExpressionAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		variables := attrs.Variables
		if variables == nil {
			for _, conn := range block.conns {
				variables = append(variables, conn.input)
			}
			slices.Sort(variables)
		}
		return graph.MathExpressionParams{Expression: attrs.Expression, Inputs: variables}, nil

	case graph.OpComputeField:
		var attrs computeFieldAttrs
		if diags := gohcl.DecodeBody(block.Remain, nil, &attrs); diags.HasErrors() {
			return nil, diags
		}
		params := graph.ComputeFieldParams{Dim: attrs.Dim}
		if attrs.Resolution != nil {
			params.Resolution = *attrs.Resolution
		}
		return params, nil
	}

	var none struct{}
	if diags := gohcl.DecodeBody(block.Remain, nil, &none); diags.HasErrors() {
		return nil, diags
	}
	return nil, nil
}
