// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/pkg/errors"
)

// Validate checks the structural invariants of the graph: every edge connects an existing
// output port to an existing input port of another node, inputs have at most one incoming
// edge, and ports and edges reference each other consistently.
//
// Graphs created with Builder are valid by construction, Validate guards graphs assembled
// from persisted records.
func (g *Graph) Validate() error {
	for ii, node := range g.nodes {
		if node.index != ii {
			return errors.Errorf("node %s has index %d, but it is stored at position %d", node, node.index, ii)
		}
		if !node.op.IsValid() {
			return errors.Errorf("node %s has an unknown kind", node)
		}
		if g.nodeIndex[node.id] != node {
			return errors.Errorf("node %s is not indexed by its id %s", node, node.id)
		}
		for _, ports := range [][]PortID{node.inputs, node.outputs} {
			for _, pid := range ports {
				p := g.Port(pid)
				if p == nil || p.nodeIndex != ii || p.node != node.id {
					return errors.Errorf("node %s references port #%d owned by another node", node, pid)
				}
			}
		}
	}
	for _, p := range g.ports {
		if p.nodeIndex < 0 || p.nodeIndex >= len(g.nodes) {
			return errors.Errorf("port #%d %q belongs to no node", p.id, p.Name())
		}
		if p.direction == Input && len(p.edges) > 1 {
			return errors.Errorf("input %q of %s has %d incoming edges, at most one is allowed",
				p.Name(), g.PortNode(p.id), len(p.edges))
		}
		for _, eid := range p.edges {
			e := g.Edge(eid)
			if e == nil {
				return errors.Errorf("%s %q of %s references dangling edge #%d", p.direction, p.Name(), g.PortNode(p.id), eid)
			}
			if e.from != p.id && e.to != p.id {
				return errors.Errorf("%s %q of %s references edge #%d which is not attached to it",
					p.direction, p.Name(), g.PortNode(p.id), eid)
			}
		}
	}
	for _, e := range g.edges {
		from, to := g.Port(e.from), g.Port(e.to)
		if from == nil || to == nil {
			return errors.Errorf("dangling edge #%d (%d -> %d)", e.id, e.from, e.to)
		}
		if from.direction != Output || to.direction != Input {
			return errors.Errorf("edge #%d connects a %s to a %s, it must go from an output to an input",
				e.id, from.direction, to.direction)
		}
		if from.nodeIndex == to.nodeIndex {
			return errors.Errorf("edge #%d connects %s to itself", e.id, g.PortNode(e.from))
		}
	}
	return nil
}
