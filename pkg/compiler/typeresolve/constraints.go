// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typeresolve

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
)

// Result of propagating a constraint.
type Result int

const (
	// Unchanged means the constraint holds for the current domains and narrowed nothing.
	Unchanged Result = iota

	// Dirty means the constraint narrowed some domains: constraints touching them must be re-evaluated.
	Dirty

	// Contradiction means some port was left with no admissible type.
	Contradiction
)

func (r Result) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Dirty:
		return "dirty"
	}
	return "contradiction"
}

// Constraint links the types of some ports.
type Constraint interface {
	// Ports touched by the constraint.
	Ports() []graph.PortID

	// Propagate narrows the domains of the constraint's ports to values that can still satisfy it.
	Propagate(s *State) Result

	// Node owning the constraint, used in diagnostics.
	Node() graph.NodeID

	fmt.Stringer
}

// narrowAll applies the narrowing to the ports and summarizes the result.
func narrowAll(s *State, ports []graph.PortID, allowed []dtypes.Set) Result {
	result := Unchanged
	for ii, p := range ports {
		before := s.Domain(p)
		if !s.Narrow(p, allowed[ii]) {
			return Contradiction
		}
		if s.Domain(p) != before {
			result = Dirty
		}
	}
	return result
}

// equal forces all its ports to the same type: edges, arithmetic operands and results,
// conditional arms.
type equal struct {
	node  graph.NodeID
	ports []graph.PortID
	what  string
}

func (c *equal) Ports() []graph.PortID { return c.ports }
func (c *equal) Node() graph.NodeID    { return c.node }
func (c *equal) String() string        { return fmt.Sprintf("%s: equal%v", c.what, c.ports) }

func (c *equal) Propagate(s *State) Result {
	common := s.Domain(c.ports[0])
	for _, p := range c.ports[1:] {
		common = common.Intersect(s.Domain(p))
	}
	if common.IsEmpty() {
		return Contradiction
	}
	result := Unchanged
	for _, p := range c.ports {
		before := s.Domain(p)
		s.Narrow(p, common)
		if s.Domain(p) != before {
			result = Dirty
		}
	}
	return result
}

// scalarOf forces scalar to be the scalar type of vector: results of length, dot, separate.
type scalarOf struct {
	node           graph.NodeID
	vector, scalar graph.PortID
	what           string
}

func (c *scalarOf) Ports() []graph.PortID { return []graph.PortID{c.vector, c.scalar} }
func (c *scalarOf) Node() graph.NodeID    { return c.node }
func (c *scalarOf) String() string {
	return fmt.Sprintf("%s: scalar(%d) == %d", c.what, c.vector, c.scalar)
}

func (c *scalarOf) Propagate(s *State) Result {
	var scalars dtypes.Set
	for _, dt := range s.Domain(c.vector).Values() {
		scalars |= dtypes.Exactly(dt.Scalar())
	}
	scalarDomain := s.Domain(c.scalar).Intersect(scalars)
	vectors := s.Domain(c.vector).Filter(func(dt dtypes.DType) bool { return scalarDomain.Has(dt.Scalar()) })
	return narrowAll(s, c.Ports(), []dtypes.Set{vectors, scalarDomain})
}

// minSize requires a type with more than minIndex components: a separate output in use, or
// the input of a swizzle selecting that component.
type minSize struct {
	node     graph.NodeID
	port     graph.PortID
	minIndex int
	what     string
}

func (c *minSize) Ports() []graph.PortID { return []graph.PortID{c.port} }
func (c *minSize) Node() graph.NodeID    { return c.node }
func (c *minSize) String() string {
	return fmt.Sprintf("%s: size(%d) > %d", c.what, c.port, c.minIndex)
}

func (c *minSize) Propagate(s *State) Result {
	allowed := s.Domain(c.port).Filter(func(dt dtypes.DType) bool { return dt.Size() > c.minIndex })
	return narrowAll(s, c.Ports(), []dtypes.Set{allowed})
}

// resized forces output to be of the same family as input with exactly size components: swizzles.
type resized struct {
	node          graph.NodeID
	input, output graph.PortID
	size          int
	what          string
}

func (c *resized) Ports() []graph.PortID { return []graph.PortID{c.input, c.output} }
func (c *resized) Node() graph.NodeID    { return c.node }
func (c *resized) String() string {
	return fmt.Sprintf("%s: %d == resize(%d, %d)", c.what, c.output, c.input, c.size)
}

func (c *resized) Propagate(s *State) Result {
	var outputs dtypes.Set
	for _, dt := range s.Domain(c.input).Values() {
		if resized := dt.WithSize(c.size); resized.IsValid() {
			outputs |= dtypes.Exactly(resized)
		}
	}
	outputs = outputs.Intersect(s.Domain(c.output))
	inputs := s.Domain(c.input).Filter(func(dt dtypes.DType) bool { return outputs.Has(dt.WithSize(c.size)) })
	return narrowAll(s, c.Ports(), []dtypes.Set{inputs, outputs})
}

// sameDimension forces a position port to have as many components as the dimensions of the
// sampled field.
type sameDimension struct {
	node            graph.NodeID
	field, position graph.PortID
}

func (c *sameDimension) Ports() []graph.PortID { return []graph.PortID{c.field, c.position} }
func (c *sameDimension) Node() graph.NodeID    { return c.node }
func (c *sameDimension) String() string {
	return fmt.Sprintf("sample: dims(%d) == size(%d)", c.field, c.position)
}

func (c *sameDimension) Propagate(s *State) Result {
	var sizes [5]bool
	for _, dt := range s.Domain(c.field).Values() {
		sizes[dt.Size()] = true
	}
	positions := s.Domain(c.position).Filter(func(dt dtypes.DType) bool { return sizes[dt.Size()] })
	sizes = [5]bool{}
	for _, dt := range positions.Values() {
		sizes[dt.Size()] = true
	}
	fields := s.Domain(c.field).Filter(func(dt dtypes.DType) bool { return sizes[dt.Size()] })
	return narrowAll(s, c.Ports(), []dtypes.Set{fields, positions})
}

// MaxRelationProduct bounds the number of tuples a relation enumerates while narrowing. Larger
// relations only check their ports once they are fully assigned.
const MaxRelationProduct = 1 << 14

// relation is a generic n-ary constraint given by a predicate over the ports' types. It narrows
// by enumerating the cartesian product of the current domains, keeping the values that appear in
// at least one satisfying tuple.
type relation struct {
	node      graph.NodeID
	ports     []graph.PortID
	predicate func(types []dtypes.DType) bool
	what      string
}

func (c *relation) Ports() []graph.PortID { return c.ports }
func (c *relation) Node() graph.NodeID    { return c.node }
func (c *relation) String() string        { return fmt.Sprintf("%s: relation%v", c.what, c.ports) }

func (c *relation) Propagate(s *State) Result {
	values := make([][]dtypes.DType, len(c.ports))
	product := 1
	for ii, p := range c.ports {
		values[ii] = s.Domain(p).Values()
		product *= len(values[ii])
		if product == 0 {
			return Contradiction
		}
	}
	if product > MaxRelationProduct {
		return Unchanged
	}
	supported := make([]dtypes.Set, len(c.ports))
	tuple := make([]dtypes.DType, len(c.ports))
	var enumerate func(ii int)
	enumerate = func(ii int) {
		if ii == len(c.ports) {
			if c.predicate(tuple) {
				for jj, dt := range tuple {
					supported[jj] |= dtypes.Exactly(dt)
				}
			}
			return
		}
		for _, dt := range values[ii] {
			tuple[ii] = dt
			enumerate(ii + 1)
		}
	}
	enumerate(0)
	return narrowAll(s, c.ports, supported)
}

// combineSizes is the predicate of OpCombine: all inputs share the scalar type of the output,
// and their sizes add up to the output's size.
func combineSizes(types []dtypes.DType) bool {
	output := types[len(types)-1]
	total := 0
	for _, dt := range types[:len(types)-1] {
		if dt.Scalar() != output.Scalar() {
			return false
		}
		total += dt.Size()
	}
	return total == output.Size()
}

// constraintsFor returns the constraints of the graph: one per edge, plus the ones
// contributed by each node kind.
func constraintsFor(g *graph.Graph) []Constraint {
	var constraints []Constraint
	for _, e := range g.Edges() {
		constraints = append(constraints, &equal{
			node:  g.PortNode(e.To()).ID(),
			ports: []graph.PortID{e.From(), e.To()},
			what:  "edge",
		})
	}
	for _, node := range g.Nodes() {
		constraints = append(constraints, nodeConstraints(g, node)...)
	}
	return constraints
}

func nodeConstraints(g *graph.Graph, node *graph.Node) []Constraint {
	id, op := node.ID(), node.Op()
	what := op.String()
	allPorts := func() []graph.PortID {
		return append(append([]graph.PortID(nil), node.Inputs()...), node.Outputs()...)
	}
	switch op {
	case graph.OpConstant, graph.OpTexture, graph.OpTime, graph.OpPosition, graph.OpNormal, graph.OpTexCoord,
		graph.OpComputeField, graph.OpPreviewOutput, graph.OpMaterialOutput:
		// Types fully given by the port declarations.
		return nil

	case graph.OpAdd, graph.OpSubtract, graph.OpMultiply, graph.OpDivide, graph.OpMin, graph.OpMax, graph.OpPower,
		graph.OpNegate, graph.OpAbs, graph.OpFloor, graph.OpFract, graph.OpSqrt, graph.OpSin, graph.OpCos,
		graph.OpNormalize, graph.OpMix, graph.OpMathExpression:
		return []Constraint{&equal{node: id, ports: allPorts(), what: what}}

	case graph.OpLength:
		return []Constraint{&scalarOf{node: id, vector: node.Inputs()[0], scalar: node.Outputs()[0], what: what}}

	case graph.OpDot:
		return []Constraint{
			&equal{node: id, ports: node.Inputs(), what: what},
			&scalarOf{node: id, vector: node.Inputs()[0], scalar: node.Outputs()[0], what: what},
		}

	case graph.OpCompare:
		return []Constraint{&equal{node: id, ports: node.Inputs(), what: what}}

	case graph.OpConditional:
		return []Constraint{&equal{node: id, ports: []graph.PortID{node.Inputs()[1], node.Inputs()[2], node.Outputs()[0]}, what: what}}

	case graph.OpSwizzle:
		components := node.Params().(graph.SwizzleParams).Components()
		maxComponent := 0
		for _, c := range components {
			maxComponent = max(maxComponent, c)
		}
		return []Constraint{
			&minSize{node: id, port: node.Inputs()[0], minIndex: maxComponent, what: what},
			&resized{node: id, input: node.Inputs()[0], output: node.Outputs()[0], size: len(components), what: what},
		}

	case graph.OpCombine:
		return []Constraint{&relation{node: id, ports: allPorts(), predicate: combineSizes, what: what}}

	case graph.OpSeparate:
		input := node.Inputs()[0]
		var constraints []Constraint
		for ii, output := range node.Outputs() {
			constraints = append(constraints, &scalarOf{node: id, vector: input, scalar: output, what: what})
			if g.Port(output).IsConnected() {
				constraints = append(constraints, &minSize{node: id, port: input, minIndex: ii, what: what})
			}
		}
		return constraints

	case graph.OpSample:
		return []Constraint{&sameDimension{node: id, field: node.Inputs()[0], position: node.Inputs()[1]}}
	}
	exceptions.Panicf("typeresolve: no constraints defined for node kind %s", op)
	return nil
}

// describe lists the constraints, one per line, for debugging.
func describe(constraints []Constraint) string {
	var sb strings.Builder
	for _, c := range constraints {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
