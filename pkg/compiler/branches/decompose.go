// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package branches

import (
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/pkg/errors"
)

// Region is the decomposed node list of a stage.
type Region struct {
	// Nodes is the shared list, evaluated unconditionally, in schedule order.
	Nodes []graph.NodeID

	// Arms maps each branching node to the private node list of each of its arms, in schedule
	// order. Arm lists may contain branching nodes themselves, whose arms are again in Arms.
	Arms map[graph.NodeID][][]graph.NodeID
}

// ArmNodes returns the private list of the given arm of a branching node.
func (r *Region) ArmNodes(branch graph.NodeID, arm int) []graph.NodeID {
	arms := r.Arms[branch]
	if arm < 0 || arm >= len(arms) {
		return nil
	}
	return arms[arm]
}

// All returns every node of the region: the shared list followed by the arm lists.
func (r *Region) All() []graph.NodeID {
	all := append([]graph.NodeID(nil), r.Nodes...)
	for _, id := range r.Nodes {
		all = r.appendArms(all, id)
	}
	return all
}

func (r *Region) appendArms(all []graph.NodeID, id graph.NodeID) []graph.NodeID {
	for _, arm := range r.Arms[id] {
		all = append(all, arm...)
		for _, inner := range arm {
			all = r.appendArms(all, inner)
		}
	}
	return all
}

// Decompose partitions the scheduled nodes of a stage: a node whose only tag is one arm of a
// branching node is moved to that arm's private list, keeping the relative order of the
// schedule. All other nodes stay in the shared list.
//
// order must hold each labeled node exactly once, in a valid topological order.
func Decompose(l *Labels, order []graph.NodeID) (*Region, error) {
	r := &Region{Arms: make(map[graph.NodeID][][]graph.NodeID)}
	for _, id := range order {
		node := l.g.Node(id)
		if node == nil || !l.IsReachable(id) {
			return nil, errors.Errorf("branches: scheduled node %s is not part of the labeled stage", id)
		}
		if node.Op().IsBranching() {
			numArms := 0
			for _, input := range node.Inputs() {
				if l.g.Port(input).Arm() >= 0 {
					numArms++
				}
			}
			r.Arms[id] = make([][]graph.NodeID, numArms)
		}
	}
	for _, id := range order {
		tag, ok := l.home(l.g.Node(id))
		if !ok {
			r.Nodes = append(r.Nodes, id)
			continue
		}
		arms, found := r.Arms[tag.Node]
		if !found {
			return nil, errors.Errorf("branches: node %s tagged with arm %d of %s, which is not scheduled",
				l.g.Node(id), tag.Arm, tag.Node)
		}
		arms[tag.Arm] = append(arms[tag.Arm], id)
	}
	return r, nil
}
