// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gomlx/shadergraph/pkg/compiler/codegen"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, g *graph.Graph, root *graph.Node, opts *Options) *Result {
	result, err := Compile(g, root.ID(), opts)
	require.NoError(t, err)
	return result
}

func findBinding(shader *Shader, name string) (Binding, bool) {
	for _, b := range shader.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func TestConstantAdd(t *testing.T) {
	var c1, c2, add, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		c1 = b.Constant(1)
		c2 = b.Constant(2)
		add = b.Binary(graph.OpAdd, c1, c2)
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(add, "out", root, "color")
	})
	require.NoError(t, err)
	result := mustCompile(t, g, root, nil)

	for _, port := range []graph.PortID{g.Input(add, "a"), g.Input(add, "b"), g.Output(add, "out")} {
		assert.Equal(t, dtypes.Float, result.Types.Of(port))
	}
	assert.Zero(t, result.Stats.SearchNodes, "singleton propagation alone resolves the types")
	assert.Empty(t, result.Pruned)
	require.Len(t, result.Stages, 1)
	stage := result.RootStage()
	assert.Equal(t, root.ID(), stage.ID)
	assert.Equal(t, []graph.NodeID{c1.ID(), c2.ID(), add.ID(), root.ID()}, stage.Nodes)
	assert.Equal(t, dtypes.Constant, stage.Domain)
	assert.NotZero(t, stage.Hash)

	require.Len(t, stage.Shaders, 2)
	vertex, fragment := stage.Shaders[0], stage.Shaders[1]
	assert.Equal(t, spirv.ExecutionModelVertex, vertex.Model())
	assert.Equal(t, spirv.ExecutionModelFragment, fragment.Model())
	assert.Contains(t, vertex.Source, "vertex main0_out main0(")
	assert.Contains(t, fragment.Source, "fragment main0_out main0(")
	assert.Equal(t, 1, strings.Count(fragment.Source, "1.0f + 2.0f"))

	color, found := findBinding(fragment, "color")
	require.True(t, found)
	assert.Equal(t, "output", color.Access)
	assert.Equal(t, 0, color.Index)
	assert.Equal(t, "float4", color.MSLType)
	globals, found := findBinding(fragment, "globals")
	require.True(t, found)
	assert.Equal(t, "uniform", globals.Access)
	assert.Equal(t, 0, globals.Index)
	assert.Equal(t, "std140", globals.Format)
	assert.NotEmpty(t, globals.Members)

	clip, found := findBinding(vertex, "clip_position")
	require.True(t, found)
	assert.Equal(t, "position", clip.BuiltIn)
	assert.Equal(t, -1, clip.Index)
}

func TestPruning(t *testing.T) {
	var unused, unusedSin, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		unused = b.Node(graph.OpTexture, graph.TextureParams{Name: "unused", Dim: 2})
		unusedSin = b.Unary(graph.OpSin, b.Node(graph.OpTime, nil))
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(b.Constant(0.5), "out", root, "color")
	})
	require.NoError(t, err)
	result := mustCompile(t, g, root, nil)

	require.Len(t, result.Stages, 1)
	stage := result.Stages[0]
	assert.Contains(t, result.Pruned, unused.ID())
	assert.Contains(t, result.Pruned, unusedSin.ID())
	assert.NotContains(t, stage.Nodes, unused.ID())
	assert.NotContains(t, stage.Nodes, unusedSin.ID())
	assert.Equal(t, dtypes.Constant, stage.Domain, "pruned time node doesn't make the stage time-varying")
	for _, shader := range stage.Shaders {
		for _, b := range shader.Bindings {
			assert.False(t, b.HasNode && b.Node == unused.ID(), "binding %q of a pruned node", b.Name)
		}
		assert.NotContains(t, shader.Source, "unused")
	}
}

// fieldGraph builds a preview sampling a 2D compute field.
func fieldGraph(t *testing.T) (g *graph.Graph, field, root *graph.Node) {
	var err error
	g, err = graph.BuildFn(func(b *graph.Builder) {
		field = b.NamedNode("noise", graph.OpComputeField, graph.ComputeFieldParams{Dim: 2, Resolution: 100})
		b.ConnectNodes(b.Unary(graph.OpSin, b.Node(graph.OpPosition, nil)), "out", field, "value")
		sample := b.Node(graph.OpSample, nil)
		b.ConnectNodes(field, "field", sample, "field")
		tinted := b.Binary(graph.OpMultiply, sample, b.Constant(1, 0.5, 0.5, 1))
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(tinted, "out", root, "color")
	})
	require.NoError(t, err)
	return
}

func TestComputeDependency(t *testing.T) {
	g, field, root := fieldGraph(t)
	result := mustCompile(t, g, root, nil)

	require.Len(t, result.Stages, 2)
	compute, render := result.Stages[0], result.Stages[1]
	assert.Equal(t, field.ID(), compute.ID)
	assert.Equal(t, graph.ComputeStage, compute.Kind)
	assert.Equal(t, root.ID(), render.ID)
	assert.Same(t, render, result.RootStage())
	assert.Same(t, compute, result.Stage(field.ID()))
	assert.Equal(t, []graph.NodeID{field.ID()}, render.Dependencies)
	assert.Equal(t, []graph.NodeID{root.ID()}, compute.Dependants)
	assert.Empty(t, render.Dependants)
	assert.True(t, compute.Domain.Includes(dtypes.TransformDependent))
	assert.True(t, render.Domain.Includes(dtypes.TransformDependent), "domain of a dependency is inherited")
	assert.NotEqual(t, compute.Hash, render.Hash)

	require.Len(t, compute.Shaders, 1)
	kernel := compute.Shaders[0]
	assert.Equal(t, [3]uint32{8, 8, 1}, kernel.LocalSize)
	assert.Contains(t, kernel.Source, "kernel void main0(")
	storage, found := findBinding(kernel, "noise")
	require.True(t, found)
	assert.Equal(t, "storage", storage.Access)
	assert.Equal(t, codegen.StorageImage, storage.Class)
	assert.Equal(t, "rgba32f", storage.Format)
	assert.Equal(t, 1, storage.Binding)
	assert.Equal(t, 0, storage.Index)
	assert.Equal(t, 2, storage.Dim)

	fragment := render.Shaders[1]
	image, found := findBinding(fragment, "noise")
	require.True(t, found)
	assert.Equal(t, "sampled", image.Access)
	assert.Equal(t, field.ID(), image.Node)
	assert.Equal(t, 0, image.Index)
	sampler, found := findBinding(fragment, "noise_sampler")
	require.True(t, found)
	assert.Equal(t, 0, sampler.Index)
	assert.Equal(t, 2, sampler.Binding)
	assert.Contains(t, fragment.Source, fmt.Sprintf("texture2d<float> %s [[texture(0)]]", image.MSLName))
	assert.Contains(t, fragment.Source, fmt.Sprintf(".sample(%s, ", sampler.MSLName))
}

func TestStageHashDependencies(t *testing.T) {
	compileWith := func(op graph.OpType) *Result {
		var root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			field := b.NamedNode("noise", graph.OpComputeField, graph.ComputeFieldParams{Dim: 2, Resolution: 100})
			b.ConnectNodes(b.Unary(op, b.Node(graph.OpPosition, nil)), "out", field, "value")
			sample := b.Node(graph.OpSample, nil)
			b.ConnectNodes(field, "field", sample, "field")
			root = b.Node(graph.OpPreviewOutput, nil)
			b.ConnectNodes(sample, "out", root, "color")
		})
		require.NoError(t, err)
		return mustCompile(t, g, root, nil)
	}
	withSin, withCos := compileWith(graph.OpSin), compileWith(graph.OpCos)
	require.Len(t, withSin.Stages, 2)
	require.Len(t, withCos.Stages, 2)
	assert.NotEqual(t, withSin.Stages[0].Hash, withCos.Stages[0].Hash)
	assert.NotEqual(t, withSin.RootStage().Hash, withCos.RootStage().Hash,
		"a stage's hash covers the hashes of its dependencies")
	assert.Equal(t, withSin.RootStage().Hash, compileWith(graph.OpSin).RootStage().Hash)
}

func TestDeterminism(t *testing.T) {
	g, _, root := fieldGraph(t)
	first := mustCompile(t, g, root, nil)
	second := mustCompile(t, g, root, nil)
	require.Len(t, second.Stages, len(first.Stages))
	for ii, stage := range first.Stages {
		other := second.Stages[ii]
		assert.Equal(t, stage.Hash, other.Hash)
		for jj, shader := range stage.Shaders {
			assert.Equal(t, shader.Body.Words, other.Shaders[jj].Body.Words)
			assert.Equal(t, shader.Source, other.Shaders[jj].Source)
			if diff := cmp.Diff(shader.Bindings, other.Shaders[jj].Bindings); diff != "" {
				t.Errorf("bindings of stage %s differ (-first +second):\n%s", stage.ID, diff)
			}
		}
	}
}

func TestConditionalStage(t *testing.T) {
	var mul, seven, root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		cmp := b.Node(graph.OpCompare, graph.CompareParams{Op: graph.CompareLess})
		b.ConnectNodes(b.Node(graph.OpTime, nil), "out", cmp, "a")
		b.ConnectNodes(b.Constant(0.5), "out", cmp, "b")
		mul = b.Binary(graph.OpMultiply, b.Constant(1, 2, 3), b.Constant(4, 5, 6))
		seven = b.Constant(7, 7, 7)
		cond := b.Node(graph.OpConditional, nil)
		b.ConnectNodes(cmp, "out", cond, "condition")
		b.ConnectNodes(mul, "out", cond, "true")
		b.ConnectNodes(seven, "out", cond, "false")
		length := b.Unary(graph.OpLength, cond)
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(length, "out", root, "color")
	})
	require.NoError(t, err)
	result := mustCompile(t, g, root, nil)
	stage := result.RootStage()
	assert.True(t, stage.Domain.Includes(dtypes.TimeVarying))
	src := stage.Shaders[1].Source
	assert.Contains(t, src, "if (")
	assert.Contains(t, src, "else")
	assert.Contains(t, src, "float3(1.0f, 2.0f, 3.0f) * float3(4.0f, 5.0f, 6.0f)")
	assert.Contains(t, src, "= float3(7.0f, 7.0f, 7.0f);")
	assert.Contains(t, src, "length(")
}

func TestErrors(t *testing.T) {
	t.Run("MissingRequiredInput", func(t *testing.T) {
		var root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			root = b.Node(graph.OpPreviewOutput, nil)
		})
		require.NoError(t, err)
		_, err = Compile(g, root.ID(), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, StructuralError))
		node, found := NodeOf(err)
		require.True(t, found)
		assert.Equal(t, root.ID(), node)
	})

	t.Run("UnknownRoot", func(t *testing.T) {
		g, _, _ := fieldGraph(t)
		_, err := Compile(g, graph.DeriveNodeID("missing"), nil)
		assert.True(t, IsKind(err, StructuralError))
	})

	t.Run("RootIsNotAnOutput", func(t *testing.T) {
		g, field, _ := fieldGraph(t)
		_, err := Compile(g, field.ID(), nil)
		assert.True(t, IsKind(err, StructuralError))
	})

	t.Run("TypeResolutionFailure", func(t *testing.T) {
		var root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			add := b.Binary(graph.OpAdd, b.Constant(1, 2), b.Constant(1, 2, 3))
			root = b.Node(graph.OpPreviewOutput, nil)
			b.ConnectNodes(add, "out", root, "color")
		})
		require.NoError(t, err)
		result, err := Compile(g, root.ID(), nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsKind(err, TypeResolutionFailure))
	})

	t.Run("UnsupportedConstruct", func(t *testing.T) {
		var sample, root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			texture := b.Node(graph.OpTexture, graph.TextureParams{Name: "ramp", Dim: 1})
			sample = b.Node(graph.OpSample, nil)
			b.ConnectNodes(texture, "out", sample, "field")
			root = b.Node(graph.OpPreviewOutput, nil)
			b.ConnectNodes(sample, "out", root, "color")
		})
		require.NoError(t, err)
		_, err = Compile(g, root.ID(), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, UnsupportedConstruct))
		node, found := NodeOf(err)
		require.True(t, found)
		assert.Equal(t, sample.ID(), node)
	})

	t.Run("InvalidMathExpression", func(t *testing.T) {
		var expr, root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			expr = b.Node(graph.OpMathExpression, graph.MathExpressionParams{Expression: "x * (", Inputs: []string{"x"}})
			b.ConnectNodes(b.Constant(1), "out", expr, "x")
			// Mismatched operands: type resolution would fail if it ran first.
			mismatched := b.Binary(graph.OpAdd, b.Constant(1, 2), b.Constant(1, 2, 3))
			root = b.Node(graph.OpPreviewOutput, nil)
			b.ConnectNodes(b.Binary(graph.OpMultiply, expr, mismatched), "out", root, "color")
		})
		require.NoError(t, err)
		result, err := Compile(g, root.ID(), nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsKind(err, StructuralError), "got %v", err)
		node, found := NodeOf(err)
		require.True(t, found)
		assert.Equal(t, expr.ID(), node)
	})

	t.Run("StageCycle", func(t *testing.T) {
		var root *graph.Node
		g, err := graph.BuildFn(func(b *graph.Builder) {
			a := b.NamedNode("a", graph.OpComputeField, graph.ComputeFieldParams{Dim: 2})
			c := b.NamedNode("c", graph.OpComputeField, graph.ComputeFieldParams{Dim: 2})
			sampleA, sampleC := b.Node(graph.OpSample, nil), b.Node(graph.OpSample, nil)
			b.ConnectNodes(a, "field", sampleA, "field")
			b.ConnectNodes(c, "field", sampleC, "field")
			b.ConnectNodes(sampleC, "out", a, "value")
			b.ConnectNodes(sampleA, "out", c, "value")
			preview := b.Node(graph.OpSample, nil)
			b.ConnectNodes(a, "field", preview, "field")
			root = b.Node(graph.OpPreviewOutput, nil)
			b.ConnectNodes(preview, "out", root, "color")
		})
		require.NoError(t, err)
		_, err = Compile(g, root.ID(), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, StructuralError))
	})
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.False(t, opts.FoldConstants)
	require.NoError(t, opts.Parse("fold_constants=true, max_search_nodes=50"))
	assert.True(t, opts.FoldConstants)
	assert.Equal(t, 50, opts.MaxSearchNodes)
	assert.Error(t, opts.Parse("fold_constants"))
	assert.Error(t, opts.Parse("fold_constants=maybe"))
	assert.Error(t, opts.Parse("unroll=true"))

	opts = DefaultOptions().WithMaxSearchNodes(7)
	t.Setenv(OptionsEnv, "fold_constants=1")
	require.NoError(t, opts.FromEnv())
	assert.True(t, opts.FoldConstants)
	assert.Equal(t, 7, opts.MaxSearchNodes)
	t.Setenv(OptionsEnv, "max_search_nodes=many")
	assert.Error(t, opts.FromEnv())
}

func TestFoldConstantsOption(t *testing.T) {
	var root *graph.Node
	g, err := graph.BuildFn(func(b *graph.Builder) {
		sum := b.Binary(graph.OpAdd, b.Constant(1), b.Constant(2))
		root = b.Node(graph.OpPreviewOutput, nil)
		b.ConnectNodes(sum, "out", root, "color")
	})
	require.NoError(t, err)
	plain := mustCompile(t, g, root, nil)
	folded := mustCompile(t, g, root, DefaultOptions().WithFoldConstants(true))
	assert.Contains(t, plain.RootStage().Shaders[1].Source, "1.0f + 2.0f")
	assert.NotContains(t, folded.RootStage().Shaders[1].Source, "1.0f + 2.0f")
	assert.Contains(t, folded.RootStage().Shaders[1].Source, "3.0f")
	assert.NotEqual(t, plain.RootStage().Hash, folded.RootStage().Hash)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics()
	metrics.MustRegister(registry)
	opts := DefaultOptions().WithMetrics(metrics)

	g, _, root := fieldGraph(t)
	mustCompile(t, g, root, opts)
	_, err := Compile(g, graph.DeriveNodeID("missing"), opts)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.stagesTotal.WithLabelValues("compute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.stagesTotal.WithLabelValues("render")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.compilationTime), "one series for success, one for the structural error")
	assert.Equal(t, "structural_error", resultLabel(err))
	assert.Equal(t, "success", resultLabel(nil))
}
