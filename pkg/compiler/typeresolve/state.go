// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package typeresolve

import (
	"slices"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
)

// State holds the domain (set of admissible concrete types) of every port, indexed by PortID.
//
// A State is a snapshot: the search clones it before assigning a value, so undoing an
// assignment is dropping the clone.
type State struct {
	domains []dtypes.Set

	// touched lists the ports narrowed since the last call to takeTouched.
	touched []graph.PortID
}

func newState(g *graph.Graph) *State {
	s := &State{domains: make([]dtypes.Set, g.NumPorts())}
	for ii := range s.domains {
		s.domains[ii] = g.Port(graph.PortID(ii)).Type()
	}
	return s
}

func (s *State) clone() *State {
	return &State{domains: slices.Clone(s.domains)}
}

// Domain returns the current domain of the port.
func (s *State) Domain(p graph.PortID) dtypes.Set {
	return s.domains[p]
}

// Narrow intersects the port's domain with the given set. It returns false if the domain becomes empty.
func (s *State) Narrow(p graph.PortID, allowed dtypes.Set) bool {
	current := s.domains[p]
	narrowed := current.Intersect(allowed)
	if narrowed != current {
		s.domains[p] = narrowed
		s.touched = append(s.touched, p)
	}
	return !narrowed.IsEmpty()
}

func (s *State) takeTouched() []graph.PortID {
	touched := s.touched
	s.touched = nil
	return touched
}

// isComplete returns whether every port has been assigned a single type.
func (s *State) isComplete() bool {
	for _, d := range s.domains {
		if !d.IsSingleton() {
			return false
		}
	}
	return true
}

// mostConstrained returns the unassigned port with the smallest domain, ties broken by the
// lowest PortID. It returns InvalidPort if all ports are assigned.
func (s *State) mostConstrained() graph.PortID {
	best, bestLen := graph.InvalidPort, 0
	for ii, d := range s.domains {
		n := d.Len()
		if n <= 1 {
			continue
		}
		if best == graph.InvalidPort || n < bestLen {
			best, bestLen = graph.PortID(ii), n
		}
	}
	return best
}
