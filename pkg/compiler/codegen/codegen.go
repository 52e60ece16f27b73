// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package codegen emits the SPIR-V bodies of one stage: a render stage (vertex and fragment
// bodies) rooted at a preview or material output, or a compute stage rooted at a compute field.
//
// Generation runs two passes over the scheduled nodes of the stage: the install pass declares
// the global resources (uniform block, images, samplers, stage inputs and outputs) with
// bindings assigned in visitation order, and the write pass emits the instructions of each
// node, recursing into the arms of conditionals.
//
// All the mutable state of one generation lives in a Context: nothing is shared between stages
// or compilations.
package codegen

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/compiler/branches"
	"github.com/gomlx/shadergraph/pkg/compiler/diag"
	"github.com/gomlx/shadergraph/pkg/compiler/typeresolve"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options of the code generator.
type Options struct {
	// FoldConstants evaluates component-wise arithmetic over constant operands at compile time.
	// Dead branches of conditionals with a constant condition are always eliminated.
	FoldConstants bool
}

// Input of Generate: one stage, after type resolution, labeling, scheduling and decomposition.
type Input struct {
	Graph  *graph.Graph
	Types  typeresolve.Assignment
	Labels *branches.Labels

	// Order of the labeled nodes, as returned by the scheduler.
	Order []graph.NodeID

	Region  *branches.Region
	Options Options
}

// Local sizes of compute bodies, by field dimension.
var localSizes = map[int][3]int{
	2: {8, 8, 1},
	3: {4, 4, 4},
}

// fieldBinding holds the variables of a sampled or written field.
type fieldBinding struct {
	image, sampler uint32
	imageType      uint32
	dim            int
}

// Fragment stage input locations, matching the vertex body outputs.
const (
	locationPosition = iota
	locationNormal
	locationTexCoord
)

// Context of the generation of one body.
type Context struct {
	*module
	in   Input
	g    *graph.Graph
	root *graph.Node
	node *graph.Node // Node being generated.

	values    map[graph.PortID]uint32
	constants map[graph.PortID][]float64
	fields    map[graph.PortID]fieldBinding
	inputs    map[int]uint32
	outputs   map[string]uint32
	gid       uint32
	storage   fieldBinding

	dependencies []graph.NodeID
}

func newContext(in Input, model spirv.ExecutionModel) *Context {
	return &Context{
		module:    newModule(model),
		in:        in,
		g:         in.Graph,
		root:      in.Labels.Root(),
		values:    make(map[graph.PortID]uint32),
		constants: make(map[graph.PortID][]float64),
		fields:    make(map[graph.PortID]fieldBinding),
		inputs:    make(map[int]uint32),
		outputs:   make(map[string]uint32),
	}
}

// Generate emits the bodies of the stage rooted at in.Labels.Root().
//
// Errors are *diag.Error values: UnsupportedConstruct for node and type combinations that have
// no code generation rule, attributed to the offending node.
func Generate(in Input) (*Stage, error) {
	var stage *Stage
	err := exceptions.TryCatch[error](func() { stage = generate(in) })
	if err != nil {
		return nil, diag.Wrap(diag.UnsupportedConstruct, err)
	}
	return stage, nil
}

func generate(in Input) *Stage {
	root := in.Labels.Root()
	kind := root.Op().StageKind()
	stage := &Stage{ID: root.ID(), Kind: kind}
	for _, id := range in.Order {
		node := in.Graph.Node(id)
		if node != root && node.Op().IsRoot() {
			continue
		}
		stage.Nodes = append(stage.Nodes, id)
		stage.Domain = stage.Domain.Union(node.Domain())
	}

	var ctx *Context
	switch kind {
	case graph.RenderStage:
		ctx = newContext(in, spirv.ExecutionModelFragment)
		ctx.run()
		ctx.b.ExecutionMode(ctx.main, spirv.ExecutionModeOriginUpperLeft)
		stage.Bodies = []*Body{vertexBody(), ctx.body()}

	case graph.ComputeStage:
		p := root.Params().(graph.ComputeFieldParams)
		local, found := localSizes[p.Dim]
		if !found {
			panic(unsupportedf(root, "compute fields of dimension %d are not supported", p.Dim))
		}
		ctx = newContext(in, spirv.ExecutionModelGLCompute)
		ctx.run()
		ctx.b.ExecutionMode(ctx.main, spirv.ExecutionModeLocalSize, uint32(local[0]), uint32(local[1]), uint32(local[2]))
		resolution := p.Resolution
		if resolution == 0 {
			resolution = graph.DefaultFieldResolution
		}
		stage.Field = &Field{Dim: p.Dim, Resolution: resolution, LocalSize: local}
		stage.Bodies = []*Body{ctx.body()}

	default:
		panic(errors.Errorf("codegen: node %s is not a stage root", root))
	}
	stage.Dependencies = ctx.dependencies
	if klog.V(1).Enabled() {
		words := 0
		for _, body := range stage.Bodies {
			words += len(body.Words)
		}
		klog.Infof("codegen: %s: %d bodies, %d words", stage, len(stage.Bodies), words)
	}
	return stage
}

// run executes both passes over the stage and closes the entry point.
func (c *Context) run() {
	for _, id := range c.in.Order {
		c.install(c.g.Node(id))
	}
	c.node = nil
	c.beginMain()
	c.writeList(c.in.Region.Nodes)
	c.node = nil
	c.endMain()
}

func unsupportedf(node *graph.Node, format string, args ...any) *diag.Error {
	if node == nil {
		return diag.Errorf(diag.UnsupportedConstruct, format, args...)
	}
	return diag.NodeErrorf(diag.UnsupportedConstruct, node.ID(), "%s: "+format, append([]any{node}, args...)...)
}

// typeOfPort returns the SPIR-V type of the resolved type of a port.
func (c *Context) typeOfPort(p graph.PortID) uint32 {
	return c.typeOf(c.in.Types.Of(p))
}

// resultID returns the id holding the value of an output port, reserving one if needed.
func (c *Context) resultID(p graph.PortID) uint32 {
	if id, found := c.values[p]; found {
		return id
	}
	id := c.b.AllocID()
	c.values[p] = id
	return id
}

// bind makes an output port take an existing value.
func (c *Context) bind(p graph.PortID, id uint32) {
	if prev, found := c.values[p]; found && prev != id {
		panic(errors.Errorf("codegen: port %d of %s already has value %%%d", p, c.node, prev))
	}
	c.values[p] = id
}

// operand returns the value flowing into an input port: the value of its producer, or the
// zero value of its type if it is not connected.
func (c *Context) operand(input graph.PortID) uint32 {
	if producer, found := c.g.Producer(input); found {
		return c.resultID(producer)
	}
	return c.b.ConstantNull(c.typeOfPort(input))
}

// operandNamed returns the operand of the named input port of the current node.
func (c *Context) operandNamed(name string) uint32 {
	return c.operand(c.g.Input(c.node, name))
}

// emit emits an instruction with a new result id, attributed to the current node.
func (c *Context) emit(op spirv.OpCode, resultType uint32, args ...uint32) uint32 {
	id := c.b.Op(op, resultType, args...)
	c.origin(id)
	return id
}

// define emits the instruction computing an output port.
func (c *Context) define(p graph.PortID, op spirv.OpCode, resultType uint32, args ...uint32) {
	id := c.resultID(p)
	c.b.OpWithID(op, resultType, id, args...)
	c.origin(id)
}

func (c *Context) origin(id uint32) {
	if c.node != nil {
		c.origins[id] = c.node.ID()
	}
}

func (c *Context) isFragment() bool { return c.model == spirv.ExecutionModelFragment }

// one and zero float constants.
func (c *Context) one() uint32  { return c.constant(dtypes.Float, 1) }
func (c *Context) zero() uint32 { return c.constant(dtypes.Float, 0) }
