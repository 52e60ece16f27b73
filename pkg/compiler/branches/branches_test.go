// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package branches

import (
	"testing"

	"github.com/gomlx/shadergraph/pkg/compiler/schedule"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/support/sets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes ...*graph.Node) []graph.NodeID {
	result := make([]graph.NodeID, len(nodes))
	for ii, node := range nodes {
		result[ii] = node.ID()
	}
	return result
}

// conditionalGraph builds: root <- length <- conditional(time < 0.5, multiply(x, y), zero),
// plus a node that doesn't reach the root.
type conditionalGraph struct {
	g                                                    *graph.Graph
	x, y, mul, zero, time, half, cmp, cond, length, root *graph.Node
	unreachable                                          *graph.Node
}

func newConditionalGraph(t *testing.T) *conditionalGraph {
	cg := &conditionalGraph{}
	var err error
	cg.g, err = graph.BuildFn(func(b *graph.Builder) {
		cg.x = b.Constant(1, 2, 3)
		cg.y = b.Constant(4, 5, 6)
		cg.mul = b.Binary(graph.OpMultiply, cg.x, cg.y)
		cg.zero = b.Constant(0, 0, 0)
		cg.time = b.Node(graph.OpTime, nil)
		cg.half = b.Constant(0.5)
		cg.cmp = b.Node(graph.OpCompare, graph.CompareParams{Op: graph.CompareLess})
		b.ConnectNodes(cg.time, "out", cg.cmp, "a")
		b.ConnectNodes(cg.half, "out", cg.cmp, "b")
		cg.cond = b.Node(graph.OpConditional, nil)
		b.ConnectNodes(cg.cmp, "out", cg.cond, "condition")
		b.ConnectNodes(cg.mul, "out", cg.cond, "true")
		b.ConnectNodes(cg.zero, "out", cg.cond, "false")
		cg.length = b.Unary(graph.OpLength, cg.cond)
		cg.root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(cg.length, "out", cg.root, "color")
		cg.unreachable = b.Unary(graph.OpSin, cg.time)
	})
	require.NoError(t, err)
	return cg
}

func decompose(t *testing.T, l *Labels) *Region {
	order, err := schedule.Order(l.g, l.Nodes())
	require.NoError(t, err)
	r, err := Decompose(l, order)
	require.NoError(t, err)
	return r
}

func TestLabelAndDecompose(t *testing.T) {
	cg := newConditionalGraph(t)
	l := Label(cg.g, cg.root, nil)

	rootTag := Tag{Node: cg.root.ID(), Arm: RootArm}
	trueTag := Tag{Node: cg.cond.ID(), Arm: 0}
	falseTag := Tag{Node: cg.cond.ID(), Arm: 1}
	assert.Equal(t, []Tag{rootTag}, l.Tags(cg.length.ID()))
	assert.Equal(t, []Tag{rootTag}, l.Tags(cg.time.ID()))
	assert.Equal(t, []Tag{trueTag}, l.Tags(cg.x.ID()))
	assert.Equal(t, []Tag{trueTag}, l.Tags(cg.mul.ID()))
	assert.Equal(t, []Tag{falseTag}, l.Tags(cg.zero.ID()))
	assert.Nil(t, l.Tags(cg.unreachable.ID()))

	// Pruning.
	assert.Equal(t, []*graph.Node{cg.unreachable}, l.Pruned())
	assert.False(t, l.IsReachable(cg.unreachable.ID()))
	assert.Len(t, l.Nodes(), cg.g.NumNodes()-1)

	r := decompose(t, l)
	assert.Equal(t, ids(cg.time, cg.half, cg.cmp, cg.cond, cg.length, cg.root), r.Nodes)
	assert.Equal(t, ids(cg.x, cg.y, cg.mul), r.ArmNodes(cg.cond.ID(), 0))
	assert.Equal(t, ids(cg.zero), r.ArmNodes(cg.cond.ID(), 1))
	assert.Nil(t, r.ArmNodes(cg.cond.ID(), 2))

	// Partition completeness: every reachable node exactly once.
	all := r.All()
	assert.Len(t, all, len(l.Nodes()))
	assert.True(t, sets.MakeWith(all...).Equal(sets.MakeWith(ids(l.Nodes()...)...)))
}

func TestSharedBetweenArms(t *testing.T) {
	var shared, neg, cond, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		shared = b.Node(graph.OpPosition, nil)
		neg = b.Unary(graph.OpNegate, shared)
		cond = b.Node(graph.OpConditional, nil)
		b.ConnectNodes(b.Node(graph.OpConstant, graph.ConstantParams{Values: []float64{1}, Scalar: dtypes.Bool}), "out", cond, "condition")
		b.ConnectNodes(shared, "out", cond, "true")
		b.ConnectNodes(neg, "out", cond, "false")
		root = b.Node(graph.OpMaterialOutput, nil)
		b.ConnectNodes(cond, "out", root, "base_color")
	})
	require.NoError(t, err)
	l := Label(g, root, nil)
	assert.Equal(t, []Tag{{Node: cond.ID(), Arm: 0}, {Node: cond.ID(), Arm: 1}}, l.Tags(shared.ID()))
	r := decompose(t, l)
	assert.Contains(t, r.Nodes, shared.ID(), "node used by both arms stays in the shared list")
	assert.Equal(t, ids(neg), r.ArmNodes(cond.ID(), 1))
	assert.Empty(t, r.ArmNodes(cond.ID(), 0))
}

func TestNestedConditionals(t *testing.T) {
	var inner, outer, a, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		flag := b.Node(graph.OpConstant, graph.ConstantParams{Values: []float64{1}, Scalar: dtypes.Bool})
		inner = b.Node(graph.OpConditional, nil)
		b.ConnectNodes(flag, "out", inner, "condition")
		a = b.Node(graph.OpTime, nil)
		b.ConnectNodes(a, "out", inner, "true")
		outer = b.Node(graph.OpConditional, nil)
		b.ConnectNodes(flag, "out", outer, "condition")
		b.ConnectNodes(inner, "out", outer, "true")
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(outer, "out", root, "color")
	})
	require.NoError(t, err)
	l := Label(g, root, nil)
	r := decompose(t, l)
	assert.Equal(t, ids(inner), r.ArmNodes(outer.ID(), 0))
	assert.Equal(t, ids(a), r.ArmNodes(inner.ID(), 0))
	assert.Len(t, r.All(), len(l.Nodes()))
}

func TestFoldedBranch(t *testing.T) {
	cg := newConditionalGraph(t)
	l := Label(cg.g, cg.root, func(node *graph.Node) (int, bool) {
		return 1, node == cg.cond
	})
	arm, ok := l.FoldedArm(cg.cond.ID())
	require.True(t, ok)
	assert.Equal(t, 1, arm)
	for _, dead := range []*graph.Node{cg.x, cg.y, cg.mul, cg.cmp, cg.time, cg.half} {
		assert.Falsef(t, l.IsReachable(dead.ID()), "%s should have been pruned", dead)
	}
	r := decompose(t, l)
	assert.Equal(t, ids(cg.zero, cg.cond, cg.length, cg.root), r.Nodes)
}

func TestStageBoundaries(t *testing.T) {
	var time, field, sample, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		time = b.Node(graph.OpTime, nil)
		field = b.Node(graph.OpComputeField, graph.ComputeFieldParams{Dim: 2})
		b.ConnectNodes(time, "out", field, "value")
		sample = b.Node(graph.OpSample, nil)
		b.ConnectNodes(field, "field", sample, "field")
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(sample, "out", root, "color")
	})
	require.NoError(t, err)
	l := Label(g, root, nil)
	assert.Equal(t, ids(field), l.Boundaries())
	assert.True(t, l.IsReachable(field.ID()))
	assert.False(t, l.IsReachable(time.ID()), "inputs of another stage's root are not walked")

	l = Label(g, field, nil)
	assert.Equal(t, ids(time, field), ids(l.Nodes()...))
	assert.Empty(t, l.Boundaries())
}
