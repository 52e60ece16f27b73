// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	var c1, c2, add, root *Node
	g, err := BuildFn(func(b *Builder) {
		c1 = b.Constant(1)
		c2 = b.Constant(2)
		add = b.Binary(OpAdd, c1, c2)
		root = b.Node(OpPreviewOutput, nil)
		b.ConnectNodes(add, "out", root, "color")
	})
	require.NoError(t, err)
	require.Equal(t, 4, g.NumNodes())
	assert.Equal(t, []*Node{c1, c2, add, root}, g.Nodes())
	assert.Equal(t, []*Node{root}, g.Roots())
	assert.Same(t, add, g.Node(add.ID()))

	// Ports: 1 per constant, 3 for add and 1 for the preview output.
	require.Equal(t, 6, g.NumPorts())
	a := g.Input(add, "a")
	p := g.Port(a)
	assert.Equal(t, Input, p.Direction())
	assert.Equal(t, dtypes.AnyNumeric, p.Type())
	assert.Equal(t, add.ID(), p.Node())
	assert.Equal(t, -1, p.Arm())

	from, found := g.Producer(a)
	require.True(t, found)
	assert.Equal(t, c1.Outputs()[0], from)
	assert.Same(t, c1, g.ProducerNode(a))
	assert.Equal(t, []PortID{a}, g.Consumers(from))
	_, found = g.Producer(from)
	assert.False(t, found, "Producer() of an output port")

	// The edge type is the intersection of its endpoints.
	edge := g.Edge(p.Edges()[0])
	assert.Equal(t, dtypes.Exactly(dtypes.Float), edge.Type())

	// Constant output is exact.
	assert.Equal(t, dtypes.Exactly(dtypes.Float), g.Port(c1.Outputs()[0]).Type())
	assert.Equal(t, InvalidPort, g.Input(add, "c"))
}

func TestNodeIDs(t *testing.T) {
	build := func() *Graph {
		b := NewBuilder()
		b.Constant(1)
		b.NamedNode("time", OpTime, nil)
		g, err := b.Build()
		require.NoError(t, err)
		return g
	}
	g0, g1 := build(), build()
	for ii := range g0.Nodes() {
		assert.Equal(t, g0.NodeAt(ii).ID(), g1.NodeAt(ii).ID(), "node ids must be stable")
	}
	assert.NotEqual(t, g0.NodeAt(0).ID(), g0.NodeAt(1).ID())
	assert.Equal(t, DeriveNodeID("name:time"), g0.NodeAt(1).ID())

	parsed, err := ParseNodeID(g0.NodeAt(1).ID().String())
	require.NoError(t, err)
	assert.Equal(t, g0.NodeAt(1).ID(), parsed)

	b := NewBuilder()
	id := DeriveNodeID("x")
	b.NodeWithID(id, "x", OpTime, nil)
	require.Panics(t, func() { b.NodeWithID(id, "y", OpTime, nil) })
}

func TestBuilderErrors(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(b *Builder)
	}{
		{"constant with no values", func(b *Builder) { b.Constant() }},
		{"constant with 5 values", func(b *Builder) { b.Constant(1, 2, 3, 4, 5) }},
		{"missing parameters", func(b *Builder) { b.Node(OpSwizzle, nil) }},
		{"unexpected parameters", func(b *Builder) { b.Node(OpAdd, SwizzleParams{Selector: "x"}) }},
		{"invalid swizzle", func(b *Builder) { b.Node(OpSwizzle, SwizzleParams{Selector: "xq"}) }},
		{"combine of 1", func(b *Builder) { b.Node(OpCombine, CombineParams{Count: 1}) }},
		{"duplicate expression variable", func(b *Builder) {
			b.Node(OpMathExpression, MathExpressionParams{Expression: "a+a", Inputs: []string{"a", "a"}})
		}},
		{"texture 4d", func(b *Builder) { b.Node(OpTexture, TextureParams{Name: "t", Dim: 4}) }},
		{"input already connected", func(b *Builder) {
			c0, c1 := b.Constant(1), b.Constant(2)
			neg := b.Node(OpNegate, nil)
			b.ConnectNodes(c0, "out", neg, "in")
			b.ConnectNodes(c1, "out", neg, "in")
		}},
		{"wrong direction", func(b *Builder) {
			c0 := b.Constant(1)
			neg := b.Node(OpNegate, nil)
			b.Connect(neg.Inputs()[0], c0.Outputs()[0])
		}},
		{"incompatible types", func(b *Builder) {
			c0 := b.Node(OpConstant, ConstantParams{Values: []float64{1}, Scalar: dtypes.Bool})
			b.Unary(OpSin, c0)
		}},
		{"self loop", func(b *Builder) {
			neg := b.Node(OpNegate, nil)
			b.Connect(neg.Outputs()[0], neg.Inputs()[0])
		}},
		{"unknown port name", func(b *Builder) {
			c0 := b.Constant(1)
			b.ConnectNodes(c0, "value", b.Node(OpNegate, nil), "in")
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildFn(tc.fn)
			require.Error(t, err)
		})
	}
}

func TestParametricPorts(t *testing.T) {
	b := NewBuilder()
	combine := b.Node(OpCombine, CombineParams{Count: 3})
	expr := b.Node(OpMathExpression, MathExpressionParams{Expression: "sin(u)*v", Inputs: []string{"u", "v"}})
	field := b.Node(OpComputeField, ComputeFieldParams{Dim: 3})
	tex := b.Node(OpTexture, TextureParams{Name: "albedo", Dim: 2})
	cond := b.Node(OpConditional, nil)
	g := b.Graph()

	assert.Len(t, combine.Inputs(), 3)
	assert.False(t, g.Port(combine.Outputs()[0]).Type().Has(dtypes.Float))
	assert.NotEqual(t, InvalidPort, g.Input(expr, "v"))
	assert.Equal(t, dtypes.AnyFloatingPoint, g.Port(g.Input(expr, "u")).Type())
	assert.Equal(t, dtypes.Exactly(dtypes.Texture3D), g.Port(field.Outputs()[0]).Type())
	assert.True(t, g.Port(field.Inputs()[0]).Required())
	assert.Equal(t, dtypes.Exactly(dtypes.Texture2D), g.Port(tex.Outputs()[0]).Type())
	assert.Equal(t, -1, g.Port(g.Input(cond, "condition")).Arm())
	assert.Equal(t, 0, g.Port(g.Input(cond, "true")).Arm())
	assert.Equal(t, 1, g.Port(g.Input(cond, "false")).Arm())
}

func TestOpType(t *testing.T) {
	assert.Equal(t, "preview_output", OpPreviewOutput.String())
	assert.Equal(t, "tex_coord", OpTexCoord.String())
	op, err := OpTypeString("math_expression")
	require.NoError(t, err)
	assert.Equal(t, OpMathExpression, op)
	_, err = OpTypeString("teapot")
	require.Error(t, err)

	for _, op := range OpTypeValues() {
		if op == OpInvalid {
			assert.False(t, op.IsValid())
			continue
		}
		assert.Truef(t, op.IsValid(), "%s has no definition", op)
	}
	assert.True(t, OpConditional.IsBranching())
	assert.False(t, OpMix.IsBranching())
	assert.Equal(t, ComputeStage, OpComputeField.StageKind())
	assert.Equal(t, RenderStage, OpMaterialOutput.StageKind())
	assert.False(t, OpAdd.IsRoot())
	assert.Equal(t, dtypes.TimeVarying, OpTime.Domain())
}

func TestValidate(t *testing.T) {
	newGraph := func() *Graph {
		b := NewBuilder()
		c := b.Constant(1)
		b.Unary(OpNegate, c)
		return b.Graph()
	}
	require.NoError(t, newGraph().Validate())

	g := newGraph()
	g.edges = append(g.edges, &Edge{id: 1, from: 0, to: 99})
	require.ErrorContains(t, g.Validate(), "dangling edge")

	g = newGraph()
	g.edges[0].from, g.edges[0].to = g.edges[0].to, g.edges[0].from
	require.ErrorContains(t, g.Validate(), "from an output to an input")

	g = newGraph()
	in := g.ports[g.nodes[1].inputs[0]]
	in.edges = append(in.edges, 0)
	require.ErrorContains(t, g.Validate(), "at most one")

	err := exceptions.TryCatch[error](func() { NewBuilder().NodeWithID(NodeID{}, "", OpInvalid, nil) })
	require.Error(t, err)
}
