// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typeresolve

import (
	"testing"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, fn func(b *graph.Builder)) *graph.Graph {
	g, err := graph.BuildFn(fn)
	require.NoError(t, err)
	return g
}

func resolve(t *testing.T, g *graph.Graph) (Assignment, Stats) {
	a, stats, err := Resolve(g, Options{})
	require.NoError(t, err)
	require.NoError(t, Check(g, a))
	return a, stats
}

func TestConstantsAdd(t *testing.T) {
	var add, root *graph.Node
	g := build(t, func(b *graph.Builder) {
		add = b.Binary(graph.OpAdd, b.Constant(1), b.Constant(2))
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(add, "out", root, "color")
	})
	a, stats := resolve(t, g)
	for _, p := range append(add.Inputs(), add.Outputs()...) {
		assert.Equal(t, dtypes.Float, a.Of(p))
	}
	assert.Equal(t, dtypes.Float, a.Of(root.Inputs()[0]))
	assert.Equal(t, 0, stats.SearchNodes, "singleton propagation should be enough")
}

func TestSearchPreference(t *testing.T) {
	// Unconnected polymorphic node: resolved by search to the preferred type.
	var neg *graph.Node
	g := build(t, func(b *graph.Builder) {
		neg = b.Node(graph.OpNegate, nil)
	})
	a, stats := resolve(t, g)
	assert.Equal(t, dtypes.Float, a.Of(neg.Inputs()[0]))
	assert.Equal(t, dtypes.Float, a.Of(neg.Outputs()[0]))
	assert.Equal(t, 1, stats.SearchNodes)
}

func TestCombineBacktracking(t *testing.T) {
	var combine *graph.Node
	g := build(t, func(b *graph.Builder) {
		combine = b.Node(graph.OpCombine, graph.CombineParams{Count: 2})
		root := b.Node(graph.OpMaterialOutput, nil)
		b.ConnectNodes(combine, "out", root, "base_color")
	})

	domains, err := Narrow(g)
	require.NoError(t, err)
	assert.Equal(t, dtypes.SetOf(dtypes.Float, dtypes.Float2), domains[combine.Inputs()[0]])
	assert.Equal(t, dtypes.SetOf(dtypes.Float, dtypes.Float2), domains[combine.Inputs()[1]])

	a, _ := resolve(t, g)
	assert.Equal(t, dtypes.Float, a.Of(combine.Inputs()[0]))
	assert.Equal(t, dtypes.Float2, a.Of(combine.Inputs()[1]))
	assert.Equal(t, dtypes.Float3, a.Of(combine.Outputs()[0]))
}

func TestNodeConstraints(t *testing.T) {
	var swizzle, combine, dot, sample, separate, length *graph.Node
	g := build(t, func(b *graph.Builder) {
		vec4 := b.Constant(1, 2, 3, 4)
		swizzle = b.Node(graph.OpSwizzle, graph.SwizzleParams{Selector: "zx"})
		b.ConnectNodes(vec4, "out", swizzle, "in")

		combine = b.Node(graph.OpCombine, graph.CombineParams{Count: 2})
		b.ConnectNodes(swizzle, "out", combine, "x")
		b.ConnectNodes(b.Constant(5), "out", combine, "y")

		dot = b.Binary(graph.OpDot, combine, combine)
		length = b.Unary(graph.OpLength, vec4)

		tex := b.Node(graph.OpTexture, graph.TextureParams{Name: "albedo", Dim: 2})
		sample = b.Node(graph.OpSample, nil)
		b.ConnectNodes(tex, "out", sample, "field")

		separate = b.Node(graph.OpSeparate, nil)
		b.ConnectNodes(combine, "out", separate, "in")
		b.ConnectNodes(separate, "z", b.Node(graph.OpNegate, nil), "in")
	})
	a, _ := resolve(t, g)
	assert.Equal(t, dtypes.Float2, a.Of(swizzle.Outputs()[0]))
	assert.Equal(t, dtypes.Float3, a.Of(combine.Outputs()[0]))
	assert.Equal(t, dtypes.Float, a.Of(dot.Outputs()[0]))
	assert.Equal(t, dtypes.Float, a.Of(length.Outputs()[0]))
	assert.Equal(t, dtypes.Float2, a.Of(sample.Inputs()[1]), "position follows the field dimension")
	for _, p := range separate.Outputs() {
		assert.Equal(t, dtypes.Float, a.Of(p))
	}
}

func TestUnsatisfiable(t *testing.T) {
	var add *graph.Node
	g := build(t, func(b *graph.Builder) {
		add = b.Binary(graph.OpAdd, b.Constant(1, 2, 3), b.Constant(1))
	})
	_, _, err := Resolve(g, Options{})
	require.Error(t, err)
	var unsatisfiable *UnsatisfiableError
	require.True(t, errors.As(err, &unsatisfiable))
	assert.Equal(t, add.ID(), unsatisfiable.Node)
	assert.False(t, unsatisfiable.BudgetExhausted)

	_, err = Narrow(g)
	require.Error(t, err)

	// Using the w component of a 2-component vector.
	g = build(t, func(b *graph.Builder) {
		separate := b.Node(graph.OpSeparate, nil)
		b.ConnectNodes(b.Constant(1, 2), "out", separate, "in")
		b.ConnectNodes(separate, "w", b.Node(graph.OpNegate, nil), "in")
	})
	_, _, err = Resolve(g, Options{})
	require.Error(t, err)
}

func TestSearchBudget(t *testing.T) {
	g := build(t, func(b *graph.Builder) {
		b.Node(graph.OpNegate, nil)
		b.Node(graph.OpNegate, nil)
	})
	_, stats, err := Resolve(g, Options{MaxSearchNodes: 1})
	require.Error(t, err)
	var unsatisfiable *UnsatisfiableError
	require.True(t, errors.As(err, &unsatisfiable))
	assert.True(t, unsatisfiable.BudgetExhausted)
	assert.Equal(t, 2, stats.SearchNodes)

	a, stats := resolve(t, g)
	assert.Equal(t, 2, stats.SearchNodes)
	assert.Len(t, a, g.NumPorts())
}

func TestDeterminism(t *testing.T) {
	newGraph := func() *graph.Graph {
		return build(t, func(b *graph.Builder) {
			mix := b.Node(graph.OpMix, nil)
			cond := b.Node(graph.OpConditional, nil)
			cmp := b.Node(graph.OpCompare, graph.CompareParams{Op: graph.CompareLess})
			b.ConnectNodes(b.Node(graph.OpTime, nil), "out", cmp, "a")
			b.ConnectNodes(cmp, "out", cond, "condition")
			b.ConnectNodes(mix, "out", cond, "true")
			b.ConnectNodes(b.Node(graph.OpNormal, nil), "out", mix, "a")
			b.ConnectNodes(cond, "out", b.Node(graph.OpSin, nil), "in")
		})
	}
	a0, _ := resolve(t, newGraph())
	a1, _ := resolve(t, newGraph())
	assert.Equal(t, a0, a1)
}

func TestCheck(t *testing.T) {
	var add *graph.Node
	g := build(t, func(b *graph.Builder) {
		add = b.Binary(graph.OpAdd, b.Constant(1), b.Constant(2))
	})
	a, _ := resolve(t, g)
	bad := append(Assignment(nil), a...)
	bad[add.Outputs()[0]] = dtypes.Float2
	require.ErrorContains(t, Check(g, bad), "violated")
	bad[add.Outputs()[0]] = dtypes.Bool
	require.ErrorContains(t, Check(g, bad), "not in its declared type")
	require.Error(t, Check(g, a[:2]))
}
