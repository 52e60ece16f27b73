// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package typeresolve assigns one concrete type to every port of a graph whose ports are
// declared with polymorphic graph types.
//
// It works in two phases: constraint propagation (each constraint narrows the domains of its
// ports until a fixed point is reached), followed by a backtracking search over the ports left
// with more than one admissible type. The search picks the most constrained port first (ties
// broken by the lowest PortID) and tries its values in dtypes.Set.Values order, so the result
// is deterministic.
package typeresolve

import (
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultMaxSearchNodes is the default budget of search nodes.
const DefaultMaxSearchNodes = 10_000

// Options of the resolver.
type Options struct {
	// MaxSearchNodes bounds the number of partial assignments explored by the backtracking search.
	// If <= 0, DefaultMaxSearchNodes is used.
	MaxSearchNodes int
}

// Assignment maps each PortID to its concrete type.
type Assignment []dtypes.DType

// Of returns the concrete type of the port.
func (a Assignment) Of(p graph.PortID) dtypes.DType { return a[p] }

// Stats of one resolution.
type Stats struct {
	Constraints  int
	Propagations int
	SearchNodes  int
}

// UnsatisfiableError is returned when no type assignment satisfies all constraints.
type UnsatisfiableError struct {
	// Node where the contradiction was found, if it was found during the initial propagation.
	// Otherwise, it is the node of the first port the search had to branch on.
	Node graph.NodeID

	// Constraint that failed, if known.
	Constraint string

	// BudgetExhausted is set if the search gave up after Options.MaxSearchNodes.
	BudgetExhausted bool
}

func (e *UnsatisfiableError) Error() string {
	if e.BudgetExhausted {
		return fmt.Sprintf("types unsatisfiable: search budget exhausted at node %s", e.Node)
	}
	if e.Constraint != "" {
		return fmt.Sprintf("types unsatisfiable: no valid type assignment for node %s (%s)", e.Node, e.Constraint)
	}
	return fmt.Sprintf("types unsatisfiable: no valid type assignment for node %s", e.Node)
}

// engine runs propagation for a fixed graph and set of constraints.
type engine struct {
	g           *graph.Graph
	constraints []Constraint
	byPort      [][]int
	stats       Stats

	// failed is the last constraint that reported a contradiction.
	failed Constraint
}

func newEngine(g *graph.Graph) *engine {
	e := &engine{g: g, constraints: constraintsFor(g), byPort: make([][]int, g.NumPorts())}
	for ii, c := range e.constraints {
		for _, p := range c.Ports() {
			e.byPort[p] = append(e.byPort[p], ii)
		}
	}
	e.stats.Constraints = len(e.constraints)
	if klog.V(3).Enabled() {
		klog.Infof("typeresolve: %d constraints:\n%s", len(e.constraints), describe(e.constraints))
	}
	return e
}

// propagate runs the queued constraints until no domain changes, using a FIFO queue.
// If queue is nil, all constraints are evaluated.
func (e *engine) propagate(s *State, queue []int) bool {
	inQueue := make([]bool, len(e.constraints))
	if queue == nil {
		queue = make([]int, len(e.constraints))
		for ii := range queue {
			queue[ii] = ii
		}
	}
	for _, ci := range queue {
		inQueue[ci] = true
	}
	for len(queue) > 0 {
		ci := queue[0]
		queue = queue[1:]
		inQueue[ci] = false
		e.stats.Propagations++
		c := e.constraints[ci]
		switch c.Propagate(s) {
		case Contradiction:
			e.failed = c
			return false
		case Dirty:
			for _, p := range s.takeTouched() {
				for _, other := range e.byPort[p] {
					if other != ci && !inQueue[other] {
						inQueue[other] = true
						queue = append(queue, other)
					}
				}
			}
		}
	}
	return true
}

// constraintsOf returns the indices of the constraints touching the port.
func (e *engine) constraintsOf(p graph.PortID) []int {
	return append([]int(nil), e.byPort[p]...)
}

func (e *engine) unsatisfiable() *UnsatisfiableError {
	err := &UnsatisfiableError{}
	if e.failed != nil {
		err.Node = e.failed.Node()
		err.Constraint = e.failed.String()
	}
	return err
}

// Narrow runs constraint propagation only, and returns the domain of each port, indexed by
// PortID. It is used to display the admissible types of ports while a graph is being edited.
func Narrow(g *graph.Graph) ([]dtypes.Set, error) {
	e := newEngine(g)
	s := newState(g)
	if !e.propagate(s, nil) {
		return nil, e.unsatisfiable()
	}
	return s.domains, nil
}

// frame of the search stack: the parent snapshot (shared, read-only) and the value to try.
type frame struct {
	parent *State
	port   graph.PortID
	value  dtypes.DType
}

// Resolve assigns a concrete type to every port of the graph.
//
// It fails with an *UnsatisfiableError if no assignment satisfies all constraints, or if the
// search budget is exhausted.
func Resolve(g *graph.Graph, opts Options) (Assignment, Stats, error) {
	budget := opts.MaxSearchNodes
	if budget <= 0 {
		budget = DefaultMaxSearchNodes
	}
	e := newEngine(g)
	root := newState(g)
	if !e.propagate(root, nil) {
		return nil, e.stats, e.unsatisfiable()
	}
	root.takeTouched()

	var stack []frame
	pushChoices := func(s *State) {
		p := s.mostConstrained()
		values := s.Domain(p).Values()
		for ii := len(values) - 1; ii >= 0; ii-- {
			stack = append(stack, frame{parent: s, port: p, value: values[ii]})
		}
	}
	if root.isComplete() {
		return toAssignment(root), e.stats, nil
	}
	firstChoice := root.mostConstrained()
	pushChoices(root)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e.stats.SearchNodes++
		if e.stats.SearchNodes > budget {
			klog.V(1).Infof("typeresolve: search budget of %d nodes exhausted", budget)
			return nil, e.stats, &UnsatisfiableError{Node: g.PortNode(f.port).ID(), BudgetExhausted: true}
		}
		s := f.parent.clone()
		s.Narrow(f.port, dtypes.Exactly(f.value))
		s.takeTouched()
		if !e.propagate(s, e.constraintsOf(f.port)) {
			klog.V(2).Infof("typeresolve: port #%d = %s fails", f.port, f.value)
			continue
		}
		if s.isComplete() {
			klog.V(2).Infof("typeresolve: resolved %d ports after %d search nodes", g.NumPorts(), e.stats.SearchNodes)
			return toAssignment(s), e.stats, nil
		}
		pushChoices(s)
	}
	err := e.unsatisfiable()
	err.Node = g.PortNode(firstChoice).ID()
	return nil, e.stats, err
}

func toAssignment(s *State) Assignment {
	a := make(Assignment, len(s.domains))
	for ii, d := range s.domains {
		a[ii] = d.Single()
	}
	return a
}

// Check verifies that the assignment is sound for the graph: every port holds one of its
// declared types, and every constraint holds.
func Check(g *graph.Graph, a Assignment) error {
	if len(a) != g.NumPorts() {
		return errors.Errorf("assignment has %d ports, graph has %d", len(a), g.NumPorts())
	}
	s := &State{domains: make([]dtypes.Set, len(a))}
	for ii, dt := range a {
		port := g.Port(graph.PortID(ii))
		if !port.Type().Has(dt) {
			return errors.Errorf("port %q of %s assigned %s, not in its declared type %s",
				port.Name(), g.PortNode(port.ID()), dt, port.Type())
		}
		s.domains[ii] = dtypes.Exactly(dt)
	}
	for _, c := range constraintsFor(g) {
		if c.Propagate(s) != Unchanged {
			return errors.Errorf("constraint %s violated by assignment", c)
		}
	}
	return nil
}
