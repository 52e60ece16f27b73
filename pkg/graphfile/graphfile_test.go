// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/hashicorp/hcl/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fieldFile = `
output = "preview"

options {
  fold_constants   = true
  max_search_nodes = 500
}

node "position" {
  op = "position"
}

node "wave" {
  op     = "sin"
  inputs = { in = position }
}

node "noise" {
  op         = "compute_field"
  dim        = 2
  resolution = 64
  inputs     = { value = wave.out }
}

node "sample" {
  op     = "sample"
  inputs = { field = noise.field }
}

node "tint" {
  op     = "constant"
  values = [1, 0.5, 0.5, 1]
}

node "tinted" {
  op     = "multiply"
  inputs = { a = sample, b = tint }
}

node "preview" {
  op     = "preview_output"
  inputs = { "color" = tinted.out }
}
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(fieldFile), "field.hcl")
	require.NoError(t, err)
	g := f.Graph
	assert.Equal(t, 7, g.NumNodes())
	assert.Len(t, g.Edges(), 6)
	assert.Equal(t, graph.DeriveNodeID("name:preview"), f.Output)

	noise := g.Node(f.Nodes["noise"])
	require.NotNil(t, noise)
	assert.Equal(t, "noise", noise.Name())
	assert.Equal(t, graph.ComputeFieldParams{Dim: 2, Resolution: 64}, noise.Params())
	assert.Equal(t, graph.ConstantParams{Values: []float64{1, 0.5, 0.5, 1}}, g.Node(f.Nodes["tint"]).Params())
	tinted := g.Node(f.Nodes["tinted"])
	assert.Equal(t, g.Node(f.Nodes["sample"]), g.ProducerNode(g.Input(tinted, "a")))

	opts := compiler.DefaultOptions()
	f.ApplyOptions(opts)
	assert.True(t, opts.FoldConstants)
	assert.Equal(t, 500, opts.MaxSearchNodes)

	result, err := compiler.Compile(g, f.Output, opts)
	require.NoError(t, err)
	require.Len(t, result.Stages, 2)
	assert.Equal(t, f.Nodes["noise"], result.Stages[0].ID)
	assert.Equal(t, dtypes.Float4, result.Types.Of(g.Output(tinted, "out")))
}

func TestParams(t *testing.T) {
	f, err := Parse([]byte(`
node "uv" {
  op = "tex_coord"
}
node "parts" {
  op     = "separate"
  inputs = { in = uv }
}
node "one" {
  op     = "constant"
  values = [1]
}
node "color" {
  op     = "combine"
  inputs = { x = parts.x, y = parts.y, z = one, w = one }
}
node "bright" {
  op         = "math_expression"
  expression = "a * 2.0 + b"
  inputs     = { b = one, a = parts.x }
}
node "check" {
  op       = "compare"
  operator = "greater"
  inputs   = { a = bright, b = one }
}
node "picked" {
  op       = "swizzle"
  selector = "bgra"
  inputs   = { in = color }
}
node "choice" {
  op     = "conditional"
  inputs = { condition = check, true = picked, false = color }
}
node "albedo" {
  op   = "texture"
  name = "albedo_map"
  dim  = 2
  id   = "2b4ad5a4-7a61-4bd4-8a64-4b7f6d5fdc1e"
}
node "count" {
  op     = "constant"
  values = [3]
  scalar = "int"
}
node "out" {
  op     = "preview_output"
  inputs = { color = choice }
}
`), "params.hcl")
	require.NoError(t, err)
	g := f.Graph
	assert.Equal(t, f.Nodes["out"], f.Output, "single output is selected by default")
	assert.Equal(t, graph.CombineParams{Count: 4}, g.Node(f.Nodes["color"]).Params())
	assert.Equal(t, graph.MathExpressionParams{Expression: "a * 2.0 + b", Inputs: []string{"a", "b"}},
		g.Node(f.Nodes["bright"]).Params())
	assert.Equal(t, graph.CompareParams{Op: graph.CompareGreater}, g.Node(f.Nodes["check"]).Params())
	assert.Equal(t, graph.SwizzleParams{Selector: "bgra"}, g.Node(f.Nodes["picked"]).Params())
	assert.Equal(t, graph.TextureParams{Name: "albedo_map", Dim: 2}, g.Node(f.Nodes["albedo"]).Params())
	assert.Equal(t, "2b4ad5a4-7a61-4bd4-8a64-4b7f6d5fdc1e", f.Nodes["albedo"].String())
	assert.Equal(t, graph.ConstantParams{Values: []float64{3}, Scalar: dtypes.Int}, g.Node(f.Nodes["count"]).Params())
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct{ name, src, msg string }{
		{"Syntax", `node "a" {`, "failed to parse"},
		{"UnknownOp", `node "a" { op = "teleport" }`, `unknown op "teleport"`},
		{"UnknownNode", `
node "out" {
  op     = "preview_output"
  inputs = { color = missing.out }
}`, `undefined node "missing"`},
		{"Duplicate", `
node "a" { op = "time" }
node "a" { op = "time" }`, `defined more than once`},
		{"UnexpectedAttribute", `node "a" {
  op     = "time"
  values = [1]
}`, "Unsupported argument"},
		{"MissingParam", `node "a" { op = "compute_field" }`, `"dim" is required`},
		{"BadReference", `
node "t" { op = "time" }
node "out" {
  op     = "preview_output"
  inputs = { color = "t" }
}`, "must reference a node output"},
		{"IncompatiblePorts", `
node "uv" { op = "tex_coord" }
node "f" {
  op     = "compute_field"
  dim    = 2
  inputs = { value = uv }
}
node "out" {
  op     = "material_output"
  inputs = { base_color = f }
}`, "can't connect output"},
		{"UnknownInput", `
node "t" { op = "time" }
node "s" {
  op     = "sin"
  inputs = { x = t }
}`, `no input named "x"`},
		{"BadScalar", `node "c" {
  op     = "constant"
  values = [1]
  scalar = "float3"
}`, "is not a scalar type"},
		{"UnknownOutput", `
output = "nowhere"
node "t" { op = "time" }`, "output references undefined node nowhere"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
			var diags hcl.Diagnostics
			assert.True(t, errors.As(err, &diags), "errors are hcl.Diagnostics")
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.hcl")
	require.NoError(t, os.WriteFile(path, []byte(fieldFile), 0o644))
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, f.Graph.NumNodes())

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
