// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// nodeIDNamespace is used to derive deterministic NodeIDs for nodes created without one.
var nodeIDNamespace = uuid.MustParse("8a5f1c36-4a35-4c8f-9a3c-6a0e1b1f4c52")

// Builder creates a Graph.
//
// Errors while building (invalid parameters, connecting incompatible ports) panic with an error,
// following the exceptions model of github.com/gomlx/exceptions. Build (or exceptions.TryCatch
// at the caller) converts them back to an error.
type Builder struct {
	g     *Graph
	built bool
}

// NewBuilder returns a Builder for a new empty graph.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{nodeIndex: make(map[NodeID]*Node)}}
}

// DeriveNodeID returns a NodeID derived deterministically from the given key.
func DeriveNodeID(key string) NodeID {
	return NodeID(uuid.NewSHA1(nodeIDNamespace, []byte(key)))
}

func (b *Builder) assertNotBuilt() {
	if b.built {
		exceptions.Panicf("graph.Builder: graph already built, no more changes allowed")
	}
}

// Node creates a node with an id derived from its insertion index.
//
// The params must be of the type matching op (e.g. ConstantParams for OpConstant), or nil for
// node kinds that take no parameters.
func (b *Builder) Node(op OpType, params any) *Node {
	return b.NodeWithID(DeriveNodeID(fmt.Sprintf("node#%d", len(b.g.nodes))), "", op, params)
}

// NamedNode creates a node with an id derived from its name, which must be unique.
func (b *Builder) NamedNode(name string, op OpType, params any) *Node {
	return b.NodeWithID(DeriveNodeID("name:"+name), name, op, params)
}

// NodeWithID creates a node with the given identity, as stored by the caller.
func (b *Builder) NodeWithID(id NodeID, name string, op OpType, params any) *Node {
	b.assertNotBuilt()
	if !op.IsValid() {
		exceptions.Panicf("graph.Builder: invalid node kind %s", op)
	}
	if prev, found := b.g.nodeIndex[id]; found {
		exceptions.Panicf("graph.Builder: node id %s already used by %s", id, prev)
	}
	inputs, outputs := portDefs(op, params)
	g := b.g
	node := &Node{
		id:     id,
		index:  len(g.nodes),
		name:   name,
		op:     op,
		params: params,
	}
	arm := 0
	for ii, def := range inputs {
		port := b.newPort(node, Input, ii, def)
		if def.StartsBranch {
			port.arm = arm
			arm++
		}
		node.inputs = append(node.inputs, port.id)
	}
	for ii, def := range outputs {
		port := b.newPort(node, Output, ii, def)
		node.outputs = append(node.outputs, port.id)
	}
	g.nodes = append(g.nodes, node)
	g.nodeIndex[id] = node
	return node
}

func (b *Builder) newPort(node *Node, direction Direction, index int, def PortDef) *Port {
	port := &Port{
		id:        PortID(len(b.g.ports)),
		node:      node.id,
		nodeIndex: node.index,
		direction: direction,
		index:     index,
		arm:       -1,
		def:       def,
	}
	b.g.ports = append(b.g.ports, port)
	return port
}

// portDefs returns the ports of a node kind, taking into account its parameters.
func portDefs(op OpType, params any) (inputs, outputs []PortDef) {
	def := opDefs[op]
	inputs, outputs = def.inputs, def.outputs
	switch op {
	case OpConstant:
		p := mustParams[ConstantParams](op, params)
		if len(p.Values) < 1 || len(p.Values) > 4 {
			exceptions.Panicf("graph.Builder: constant must have 1 to 4 values, got %d", len(p.Values))
		}
		dtype := p.DType()
		if !dtype.IsValid() || dtype.IsTexture() {
			exceptions.Panicf("graph.Builder: constant of scalar %s with %d values is not supported", p.Scalar, len(p.Values))
		}
		outputs = outPort(dtypes.Exactly(dtype))

	case OpTexture:
		p := mustParams[TextureParams](op, params)
		if p.Dim < 1 || p.Dim > 3 {
			exceptions.Panicf("graph.Builder: texture %q has invalid dimension %d", p.Name, p.Dim)
		}
		outputs = outPort(dtypes.Exactly(dtypes.Texture1D.WithSize(p.Dim)))

	case OpCompare:
		mustParams[CompareParams](op, params)

	case OpSwizzle:
		p := mustParams[SwizzleParams](op, params)
		if p.Components() == nil {
			exceptions.Panicf("graph.Builder: invalid swizzle selector %q", p.Selector)
		}

	case OpCombine:
		p := mustParams[CombineParams](op, params)
		if p.Count < 2 || p.Count > 4 {
			exceptions.Panicf("graph.Builder: combine of %d components is not supported, it takes 2 to 4", p.Count)
		}
		for _, name := range []string{"x", "y", "z", "w"}[:p.Count] {
			inputs = append(inputs, PortDef{Name: name, Type: dtypes.AnyNumeric})
		}
		outputs = outPort(dtypes.AnyNumeric.Filter(func(dt dtypes.DType) bool { return dt.IsVector() }))

	case OpMathExpression:
		p := mustParams[MathExpressionParams](op, params)
		for ii, name := range p.Inputs {
			if name == "" || slices.Contains(p.Inputs[:ii], name) {
				exceptions.Panicf("graph.Builder: math expression variable #%d has empty or duplicate name %q", ii, name)
			}
			inputs = append(inputs, PortDef{Name: name, Type: dtypes.AnyFloatingPoint})
		}
		outputs = outPort(dtypes.AnyFloatingPoint)

	case OpComputeField:
		p := mustParams[ComputeFieldParams](op, params)
		if p.Dim < 1 || p.Dim > 3 {
			exceptions.Panicf("graph.Builder: compute field has invalid dimension %d", p.Dim)
		}
		if p.Resolution < 0 {
			exceptions.Panicf("graph.Builder: compute field has invalid resolution %d", p.Resolution)
		}
		inputs = []PortDef{{Name: "value", Type: dtypes.AnyFloat, Required: true}}
		outputs = []PortDef{{Name: "field", Type: dtypes.Exactly(dtypes.Texture1D.WithSize(p.Dim))}}

	default:
		if params != nil {
			exceptions.Panicf("graph.Builder: node kind %s takes no parameters, got %T", op, params)
		}
	}
	return
}

func mustParams[P any](op OpType, params any) P {
	p, ok := params.(P)
	if !ok {
		var zero P
		exceptions.Panicf("graph.Builder: node kind %s requires parameters of type %T, got %T", op, zero, params)
	}
	return p
}

// Connect creates an edge from an output port to an input port.
//
// An input port accepts at most one edge, and connecting ports whose declared graph types
// don't intersect is rejected.
func (b *Builder) Connect(from, to PortID) EdgeID {
	b.assertNotBuilt()
	g := b.g
	fromPort, toPort := g.Port(from), g.Port(to)
	if fromPort == nil || toPort == nil {
		exceptions.Panicf("graph.Builder: connect(%d, %d) references unknown ports", from, to)
	}
	if fromPort.direction != Output || toPort.direction != Input {
		exceptions.Panicf("graph.Builder: edges must go from an output to an input port, got %s %q -> %s %q",
			fromPort.direction, fromPort.Name(), toPort.direction, toPort.Name())
	}
	if fromPort.node == toPort.node {
		exceptions.Panicf("graph.Builder: node %s can't be connected to itself", g.PortNode(from))
	}
	if toPort.IsConnected() {
		exceptions.Panicf("graph.Builder: input %q of %s is already connected", toPort.Name(), g.PortNode(to))
	}
	typ := fromPort.Type().Intersect(toPort.Type())
	if typ.IsEmpty() {
		exceptions.Panicf("graph.Builder: can't connect output %q of %s (%s) to input %q of %s (%s)",
			fromPort.Name(), g.PortNode(from), fromPort.Type(), toPort.Name(), g.PortNode(to), toPort.Type())
	}
	edge := &Edge{id: EdgeID(len(g.edges)), from: from, to: to, typ: typ}
	g.edges = append(g.edges, edge)
	fromPort.edges = append(fromPort.edges, edge.id)
	toPort.edges = append(toPort.edges, edge.id)
	return edge.id
}

// ConnectNodes connects the named output of one node to the named input of another.
func (b *Builder) ConnectNodes(from *Node, output string, to *Node, input string) EdgeID {
	fromPort, toPort := b.g.Output(from, output), b.g.Input(to, input)
	if fromPort == InvalidPort {
		exceptions.Panicf("graph.Builder: %s has no output named %q", from, output)
	}
	if toPort == InvalidPort {
		exceptions.Panicf("graph.Builder: %s has no input named %q", to, input)
	}
	return b.Connect(fromPort, toPort)
}

// Graph returns the graph being built, for read access while building.
func (b *Builder) Graph() *Graph { return b.g }

// Build finalizes the graph and validates it. After Build the Builder can no longer be used.
func (b *Builder) Build() (*Graph, error) {
	if b.built {
		return nil, errors.New("graph.Builder: Build called more than once")
	}
	b.built = true
	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	return b.g, nil
}

// BuildFn runs fn with a new Builder, converting panics raised while building into an error,
// and returns the built graph.
func BuildFn(fn func(b *Builder)) (g *Graph, err error) {
	b := NewBuilder()
	err = exceptions.TryCatch[error](func() { fn(b) })
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// Convenience constructors.

// Constant creates an OpConstant node with float components.
func (b *Builder) Constant(values ...float64) *Node {
	return b.Node(OpConstant, ConstantParams{Values: values})
}

// Binary creates a binary arithmetic node (OpAdd, OpMultiply, ...) connected to the two given nodes' outputs.
func (b *Builder) Binary(op OpType, x, y *Node) *Node {
	if !op.IsBinaryArithmetic() && op != OpDot {
		exceptions.Panicf("graph.Builder: %s is not a binary operation", op)
	}
	node := b.Node(op, nil)
	b.Connect(x.outputs[0], node.inputs[0])
	b.Connect(y.outputs[0], node.inputs[1])
	return node
}

// Unary creates a unary node (OpNegate, OpSin, OpLength, ...) connected to the given node's first output.
func (b *Builder) Unary(op OpType, x *Node) *Node {
	if !op.IsUnaryArithmetic() && op != OpLength {
		exceptions.Panicf("graph.Builder: %s is not a unary operation", op)
	}
	node := b.Node(op, nil)
	b.Connect(x.outputs[0], node.inputs[0])
	return node
}
