// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph holds the shader graph intermediate representation: nodes, their input and
// output ports, and the edges connecting them.
//
// Nodes, ports and edges live in arenas owned by the Graph, and all cross-references are
// identifiers (NodeID, PortID and EdgeID) resolved through the Graph. A Graph is created
// with a Builder, and it is immutable once built.
package graph

import (
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/google/uuid"
)

// NodeID identifies a node. It is stable across recompilations of the same graph, and it is
// used by callers as a cache key.
type NodeID uuid.UUID

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// ParseNodeID parses the textual form of a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	return NodeID(u), err
}

// PortID indexes a port in the Graph's port arena.
type PortID int32

// InvalidPort is returned by lookups that don't find a port.
const InvalidPort PortID = -1

// EdgeID indexes an edge in the Graph's edge arena.
type EdgeID int32

// Direction of a port.
type Direction int8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Graph is an immutable shader graph.
type Graph struct {
	nodes     []*Node
	nodeIndex map[NodeID]*Node
	ports     []*Port
	edges     []*Edge
}

// Node is one node of a Graph. Its ports are ordered as declared by its OpType.
type Node struct {
	id      NodeID
	index   int
	name    string
	op      OpType
	params  any
	inputs  []PortID
	outputs []PortID
}

// Port of a node.
type Port struct {
	id        PortID
	node      NodeID
	nodeIndex int
	direction Direction
	index     int
	arm       int
	def       PortDef
	edges     []EdgeID
}

// Edge connects one output port to one input port.
type Edge struct {
	id       EdgeID
	from, to PortID
	typ      dtypes.Set
}

// NumNodes in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumPorts in the graph: valid PortID values are 0 to NumPorts()-1.
func (g *Graph) NumPorts() int { return len(g.ports) }

// Nodes returns the nodes in insertion order. The returned slice must not be modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node returns the node with the given id, or nil if it is not part of the graph.
func (g *Graph) Node(id NodeID) *Node { return g.nodeIndex[id] }

// NodeAt returns the node at the given insertion index.
func (g *Graph) NodeAt(index int) *Node { return g.nodes[index] }

// Port returns the port with the given id, or nil if it is out of range.
func (g *Graph) Port(id PortID) *Port {
	if id < 0 || int(id) >= len(g.ports) {
		return nil
	}
	return g.ports[id]
}

// Edges returns all edges of the graph. The returned slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

// Edge returns the edge with the given id, or nil if it is out of range.
func (g *Graph) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		return nil
	}
	return g.edges[id]
}

// PortNode returns the node owning the port.
func (g *Graph) PortNode(id PortID) *Node {
	return g.nodes[g.ports[id].nodeIndex]
}

// Producer follows the input port to the output port feeding it, if any.
func (g *Graph) Producer(input PortID) (output PortID, found bool) {
	p := g.Port(input)
	if p == nil || p.direction != Input || len(p.edges) == 0 {
		return InvalidPort, false
	}
	return g.edges[p.edges[0]].from, true
}

// ProducerNode returns the node feeding the given input port, or nil if it is not connected.
func (g *Graph) ProducerNode(input PortID) *Node {
	output, found := g.Producer(input)
	if !found {
		return nil
	}
	return g.PortNode(output)
}

// Consumers returns the input ports fed by the given output port, in edge creation order.
func (g *Graph) Consumers(output PortID) []PortID {
	p := g.Port(output)
	if p == nil || p.direction != Output {
		return nil
	}
	consumers := make([]PortID, 0, len(p.edges))
	for _, e := range p.edges {
		consumers = append(consumers, g.edges[e].to)
	}
	return consumers
}

// Roots returns the stage root nodes (preview, material and compute field outputs), in insertion order.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, node := range g.nodes {
		if node.op.IsRoot() {
			roots = append(roots, node)
		}
	}
	return roots
}

// ID of the node.
func (n *Node) ID() NodeID { return n.id }

// Index is the insertion order of the node in its graph.
func (n *Node) Index() int { return n.index }

// Name is an optional user given name, used in diagnostics.
func (n *Node) Name() string { return n.name }

// Op returns the kind of node.
func (n *Node) Op() OpType { return n.op }

// Params returns the node parameters, whose type depends on the OpType (e.g.: ConstantParams
// for OpConstant), or nil for node kinds without parameters.
func (n *Node) Params() any { return n.params }

// Inputs returns the ordered input ports.
func (n *Node) Inputs() []PortID { return n.inputs }

// Outputs returns the ordered output ports.
func (n *Node) Outputs() []PortID { return n.outputs }

// Domain returns the computation domain introduced by the node itself.
func (n *Node) Domain() dtypes.Domain { return n.op.Domain() }

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.name != "" {
		return fmt.Sprintf("%s %q (#%d)", n.op, n.name, n.index)
	}
	return fmt.Sprintf("%s #%d", n.op, n.index)
}

// Input returns the node's input port by name, or InvalidPort.
func (g *Graph) Input(n *Node, name string) PortID {
	return g.findPort(n.inputs, name)
}

// Output returns the node's output port by name, or InvalidPort.
func (g *Graph) Output(n *Node, name string) PortID {
	return g.findPort(n.outputs, name)
}

func (g *Graph) findPort(ports []PortID, name string) PortID {
	for _, p := range ports {
		if g.ports[p].def.Name == name {
			return p
		}
	}
	return InvalidPort
}

// ID of the port.
func (p *Port) ID() PortID { return p.id }

// Node owning the port.
func (p *Port) Node() NodeID { return p.node }

// Direction of the port.
func (p *Port) Direction() Direction { return p.direction }

// Index of the port among the node's inputs or outputs.
func (p *Port) Index() int { return p.index }

// Name of the port.
func (p *Port) Name() string { return p.def.Name }

// Type is the declared graph type of the port.
func (p *Port) Type() dtypes.Set { return p.def.Type }

// Required returns whether an input port must be connected.
func (p *Port) Required() bool { return p.def.Required }

// Arm returns the branch arm started by this input port, or -1 if it doesn't start a branch.
func (p *Port) Arm() int { return p.arm }

// Edges returns the edges attached to the port: at most one for inputs.
func (p *Port) Edges() []EdgeID { return p.edges }

// IsConnected returns whether there is any edge attached to the port.
func (p *Port) IsConnected() bool { return len(p.edges) > 0 }

// ID of the edge.
func (e *Edge) ID() EdgeID { return e.id }

// From is the output port feeding the edge.
func (e *Edge) From() PortID { return e.from }

// To is the input port fed by the edge.
func (e *Edge) To() PortID { return e.to }

// Type is the graph type of the edge: the intersection of the declared types of its endpoints.
// It is only informative, type resolution works on ports.
func (e *Edge) Type() dtypes.Set { return e.typ }
