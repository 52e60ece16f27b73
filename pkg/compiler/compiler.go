// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package compiler compiles a shader graph into dependency-ordered stages, each with its SPIR-V
// bodies, their Metal Shading Language translation and the resource binding tables needed to
// bind buffers and textures to them.
//
// Compilation runs the passes in order: structural validation, stage discovery and branch
// labeling, type resolution, scheduling and decomposition, code generation and
// cross-compilation. It either returns every stage or fails with one *Error.
//
// Compilations share no state: it is safe to compile different graphs concurrently.
package compiler

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/shadergraph/pkg/compiler/branches"
	"github.com/gomlx/shadergraph/pkg/compiler/codegen"
	"github.com/gomlx/shadergraph/pkg/compiler/diag"
	"github.com/gomlx/shadergraph/pkg/compiler/schedule"
	"github.com/gomlx/shadergraph/pkg/compiler/typeresolve"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/mathexpr"
	"github.com/gomlx/shadergraph/pkg/msl"
	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/gomlx/shadergraph/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Result of a compilation.
type Result struct {
	// Root is the selected output node.
	Root graph.NodeID

	// Stages in dependency order: every stage comes after the stages it depends on, and the
	// stage of Root is the last one.
	Stages []*Stage

	// Types of every port of the graph.
	Types typeresolve.Assignment
	Stats typeresolve.Stats

	// Pruned are the nodes of the graph not emitted in any stage, in graph order.
	Pruned []graph.NodeID
}

// Stage returns the stage with the given root, or nil.
func (r *Result) Stage(id graph.NodeID) *Stage {
	for _, stage := range r.Stages {
		if stage.ID == id {
			return stage
		}
	}
	return nil
}

// RootStage returns the stage of the selected output node.
func (r *Result) RootStage() *Stage { return r.Stages[len(r.Stages)-1] }

// Stage is a compiled stage, with its shaders translated to MSL.
type Stage struct {
	*codegen.Stage

	// Shaders translating Stage.Bodies, in the same order.
	Shaders []*Shader
}

// Shader is one body of a stage, translated to MSL.
type Shader struct {
	Body *codegen.Body

	// Source of the MSL translation, with entry point msl.EntryPoint.
	Source string

	// Bindings of the resources declared by the body.
	Bindings []Binding

	// LocalSize of compute shaders.
	LocalSize [3]uint32
}

// Model is the execution model of the shader.
func (s *Shader) Model() spirv.ExecutionModel { return s.Body.Model }

// Binding describes one resource of a shader: how it was declared in SPIR-V and where the MSL
// entry point expects it.
type Binding struct {
	Name  string
	Class codegen.ResourceClass

	// Node that declared the resource, if HasNode.
	Node    graph.NodeID
	HasNode bool

	// Dim of fields, 0 otherwise.
	Dim int

	// Format of the declared resource, e.g. "rgba32f", "std140" or "float3".
	Format string

	// MSLName is the name of the resource in the MSL source. MSLType is the reflected MSL type
	// of stage variables and the struct name of uniform buffers.
	MSLName, MSLType string

	// Members of uniform buffers, with their MSL packing, e.g. "packed_float3".
	Members []msl.Member

	// Set and Binding are the SPIR-V descriptor set and binding of bound resources.
	Set, Binding int

	// Location of stage inputs and outputs, -1 for builtins and bound resources.
	Location int

	// Index is the MSL argument table index of bound resources, or the location of stage inputs
	// and outputs.
	Index int

	// Access is one of "uniform", "sampled", "storage", "input" or "output".
	Access string

	// BuiltIn is the MSL attribute of builtins.
	BuiltIn string
}

// compilation holds the state of one Compile call.
type compilation struct {
	g    *graph.Graph
	opts *Options

	labels map[graph.NodeID]*branches.Labels
	status map[graph.NodeID]int // 1: being discovered, 2: discovered.
	order  []graph.NodeID       // Stage roots in dependency order.
	stages map[graph.NodeID]*Stage
}

// Compile compiles the stages needed to render the output node root: the stage of root itself
// and the compute stages of every field it samples, transitively.
//
// If opts is nil, DefaultOptions are used. Errors are *Error values.
func Compile(g *graph.Graph, root graph.NodeID, opts *Options) (result *Result, err error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	start := time.Now()
	c := &compilation{
		g:      g,
		opts:   opts,
		labels: make(map[graph.NodeID]*branches.Labels),
		status: make(map[graph.NodeID]int),
		stages: make(map[graph.NodeID]*Stage),
	}
	result, err = c.compile(root)
	elapsed := time.Since(start)
	opts.Metrics.observe(elapsed, result, err)
	if err != nil {
		klog.V(1).Infof("compiler: compilation of %s failed after %s: %v", root, elapsed, err)
		return nil, err
	}
	if klog.V(1).Enabled() {
		var words int
		for _, stage := range result.Stages {
			for _, body := range stage.Bodies {
				words += len(body.Words)
			}
		}
		klog.Infof("compiler: compiled %s into %d stages (%s of SPIR-V) in %s",
			root, len(result.Stages), humanize.Bytes(uint64(4*words)), elapsed)
	}
	return result, nil
}

func (c *compilation) compile(rootID graph.NodeID) (*Result, error) {
	g := c.g
	if err := g.Validate(); err != nil {
		return nil, diag.Wrap(diag.StructuralError, err)
	}
	root := g.Node(rootID)
	if root == nil {
		return nil, diag.Errorf(diag.StructuralError, "root node %s is not in the graph", rootID)
	}
	if root.Op().StageKind() != graph.RenderStage {
		return nil, diag.NodeErrorf(diag.StructuralError, rootID, "%s is not an output node", root)
	}
	if err := c.discover(root); err != nil {
		return nil, err
	}

	types, stats, err := typeresolve.Resolve(g, typeresolve.Options{MaxSearchNodes: c.opts.MaxSearchNodes})
	if err != nil {
		var unsatisfiable *typeresolve.UnsatisfiableError
		if errors.As(err, &unsatisfiable) {
			return nil, diag.WrapNode(diag.TypeResolutionFailure, unsatisfiable.Node, err)
		}
		return nil, diag.Wrap(diag.TypeResolutionFailure, err)
	}

	// Schedule every stage before generating any code: structural errors come first.
	inputs := make([]codegen.Input, len(c.order))
	for ii, id := range c.order {
		labels := c.labels[id]
		order, err := schedule.Order(g, labels.Nodes())
		if err != nil {
			var cycle *schedule.CycleError
			if errors.As(err, &cycle) && len(cycle.Nodes) > 0 {
				return nil, diag.WrapNode(diag.StructuralError, cycle.Nodes[0], err)
			}
			return nil, diag.Wrap(diag.StructuralError, err)
		}
		region, err := branches.Decompose(labels, order)
		if err != nil {
			return nil, diag.WrapNode(diag.StructuralError, id, err)
		}
		inputs[ii] = codegen.Input{
			Graph: g, Types: types, Labels: labels, Order: order, Region: region,
			Options: codegen.Options{FoldConstants: c.opts.FoldConstants},
		}
	}

	result := &Result{Root: rootID, Types: types, Stats: stats}
	for ii, id := range c.order {
		stage, err := c.build(inputs[ii])
		if err != nil {
			return nil, err
		}
		c.stages[id] = stage
		result.Stages = append(result.Stages, stage)
	}
	for _, stage := range result.Stages {
		for _, dep := range stage.Dependencies {
			c.stages[dep].Dependants = append(c.stages[dep].Dependants, stage.ID)
		}
	}

	emitted := sets.Make[graph.NodeID]()
	for _, stage := range result.Stages {
		emitted.Insert(stage.Nodes...)
	}
	for _, node := range g.Nodes() {
		if !emitted.Has(node.ID()) {
			result.Pruned = append(result.Pruned, node.ID())
		}
	}
	return result, nil
}

// discover labels the stage of root and, first, the stages of the fields it samples. Stage
// roots are appended to c.order after their dependencies.
func (c *compilation) discover(root *graph.Node) error {
	id := root.ID()
	switch c.status[id] {
	case 1:
		return diag.NodeErrorf(diag.StructuralError, id, "%s samples its own output through other fields", root)
	case 2:
		return nil
	}
	c.status[id] = 1
	labels := branches.Label(c.g, root, codegen.FoldCondition(c.g))
	c.labels[id] = labels
	for _, node := range labels.Nodes() {
		if node != root && node.Op().IsRoot() {
			continue
		}
		for _, input := range node.Inputs() {
			port := c.g.Port(input)
			if port.Required() && !port.IsConnected() {
				return diag.NodeErrorf(diag.StructuralError, node.ID(), "required input %q of %s is not connected", port.Name(), node)
			}
		}
		if node.Op() == graph.OpMathExpression {
			p := node.Params().(graph.MathExpressionParams)
			if _, err := mathexpr.Parse(p.Expression, p.Inputs); err != nil {
				return diag.WrapNode(diag.StructuralError, node.ID(), err)
			}
		}
	}
	for _, dep := range labels.Boundaries() {
		if err := c.discover(c.g.Node(dep)); err != nil {
			return err
		}
	}
	c.status[id] = 2
	c.order = append(c.order, id)
	return nil
}

// build generates and cross-compiles one stage. Its dependencies must have been built.
func (c *compilation) build(in codegen.Input) (*Stage, error) {
	generated, err := codegen.Generate(in)
	if err != nil {
		return nil, err
	}
	stage := &Stage{Stage: generated}
	for _, dep := range stage.Dependencies {
		stage.Domain = stage.Domain.Union(c.stages[dep].Domain)
	}
	for _, body := range stage.Bodies {
		shader, err := crossCompile(body)
		if err != nil {
			return nil, err
		}
		stage.Shaders = append(stage.Shaders, shader)
	}
	stage.Hash = c.hash(stage)
	klog.V(1).Infof("compiler: %s", stage)
	return stage, nil
}

// hash of the stage bodies and of the hashes of its dependencies.
func (c *compilation) hash(stage *Stage) [32]byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(stage.Kind))
	for _, body := range stage.Bodies {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(body.Model))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(body.Words)))
		for _, word := range body.Words {
			buf = binary.LittleEndian.AppendUint32(buf, word)
		}
	}
	for _, dep := range stage.Dependencies {
		depHash := c.stages[dep].Hash
		buf = append(buf, depHash[:]...)
	}
	return sha256.Sum256(buf)
}

// crossCompile translates a body to MSL and merges the reflected bindings with the declared
// resources.
func crossCompile(body *codegen.Body) (*Shader, error) {
	translated, err := msl.Compile(body.Words)
	if err != nil {
		var mslErr *msl.Error
		if errors.As(err, &mslErr) {
			if node, found := body.Origins[mslErr.ID]; found {
				return nil, diag.WrapNode(diag.BackendCompilation, node, err)
			}
		}
		return nil, diag.Wrap(diag.BackendCompilation, err)
	}
	shader := &Shader{Body: body, Source: translated.Source, LocalSize: translated.LocalSize}
	for _, r := range body.Resources {
		reflected, found := translated.Binding(r.Variable)
		if !found {
			return nil, diag.Errorf(diag.BackendCompilation, "%s resource %q was not reflected", body.Model, r.Name)
		}
		shader.Bindings = append(shader.Bindings, Binding{
			Name:     r.Name,
			Class:    r.Class,
			Node:     r.Node,
			HasNode:  r.HasNode,
			Dim:      r.Dim,
			Format:   r.Format,
			MSLName:  reflected.Name,
			MSLType:  reflected.Format,
			Members:  reflected.Members,
			Set:      r.Set,
			Binding:  r.Binding,
			Location: r.Location,
			Index:    reflected.Index,
			Access:   reflected.Access(),
			BuiltIn:  reflected.BuiltIn,
		})
	}
	return shader, nil
}
