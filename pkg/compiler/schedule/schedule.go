// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package schedule orders the nodes of a stage so that every node comes after the nodes it
// depends on.
package schedule

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/gomlx/shadergraph/pkg/core/graph"
	"k8s.io/klog/v2"
)

// CycleError is returned when the nodes can't be ordered because of a dependency cycle.
type CycleError struct {
	// Nodes that could not be scheduled, in insertion order: the cycles and everything downstream of them.
	Nodes []graph.NodeID
	names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among %d nodes: %s", len(e.Nodes), strings.Join(e.names, ", "))
}

// readyQueue is a min-heap of node indices: ready nodes are taken by insertion order.
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// Order returns the given nodes in dependency order. Only edges between the given nodes are
// considered: producers outside the set are assumed to be available.
//
// Among the nodes ready at any time, the one inserted first in the graph is taken first, so
// the order is deterministic. If some nodes can't be scheduled, it returns a *CycleError.
func Order(g *graph.Graph, nodes []*graph.Node) ([]graph.NodeID, error) {
	inSet := make(map[int]bool, len(nodes))
	for _, node := range nodes {
		inSet[node.Index()] = true
	}

	// numPending[i] counts the unscheduled producers of node i: the same producer feeding
	// two inputs counts twice, and it is decremented once per edge.
	numPending := make(map[int]int, len(nodes))
	ready := &readyQueue{}
	for _, node := range nodes {
		count := 0
		for _, input := range node.Inputs() {
			if producer := g.ProducerNode(input); producer != nil && inSet[producer.Index()] {
				count++
			}
		}
		numPending[node.Index()] = count
		if count == 0 {
			heap.Push(ready, node.Index())
		}
	}

	order := make([]graph.NodeID, 0, len(nodes))
	for ready.Len() > 0 {
		node := g.NodeAt(heap.Pop(ready).(int))
		order = append(order, node.ID())
		for _, output := range node.Outputs() {
			for _, consumerPort := range g.Consumers(output) {
				consumer := g.PortNode(consumerPort)
				if !inSet[consumer.Index()] {
					continue
				}
				numPending[consumer.Index()]--
				if numPending[consumer.Index()] == 0 {
					heap.Push(ready, consumer.Index())
				}
			}
		}
	}

	if len(order) != len(nodes) {
		err := &CycleError{}
		for _, node := range g.Nodes() {
			if inSet[node.Index()] && numPending[node.Index()] > 0 {
				err.Nodes = append(err.Nodes, node.ID())
				err.names = append(err.names, node.String())
			}
		}
		return nil, err
	}
	klog.V(2).Infof("schedule: ordered %d nodes", len(order))
	return order, nil
}
