// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package branches labels the nodes of a stage with the conditional branches they are
// reachable from, prunes the nodes that don't contribute to the stage root, and decomposes
// the scheduled node list into a shared list plus one private list per conditional arm.
package branches

import (
	"cmp"
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/support/sets"
	"k8s.io/klog/v2"
)

// RootArm is the Arm of the tag of the stage root itself.
const RootArm = -1

// Tag marks a node as reachable from one arm of a branching node. The stage root carries
// the tag {root, RootArm}.
type Tag struct {
	Node graph.NodeID
	Arm  int
}

// IsArm returns whether the tag refers to a conditional arm, as opposed to the stage root.
func (t Tag) IsArm() bool { return t.Arm >= 0 }

func (t Tag) String() string {
	if t.Arm == RootArm {
		return fmt.Sprintf("root(%s)", t.Node)
	}
	return fmt.Sprintf("%s[%d]", t.Node, t.Arm)
}

// LiveArmFn returns the only arm that can be selected by a branching node, when it can be
// decided at compile time (the condition folds to a constant).
type LiveArmFn func(node *graph.Node) (arm int, ok bool)

// Labels of the nodes reachable from one stage root.
type Labels struct {
	g    *graph.Graph
	root *graph.Node
	tags []sets.Set[Tag] // Indexed by node index, nil for untagged nodes.

	// folded maps branching nodes with a single live arm to that arm.
	folded map[graph.NodeID]int

	// boundaries are nodes of other stages whose outputs are consumed by this one.
	boundaries []graph.NodeID
}

// Label walks backwards from the root through its input ports, tagging every node it reaches.
//
// Walking through an ordinary input port carries the tags of the consumer node; walking through
// a branch-starting input port of node C carries only the tag {C, arm}. Nodes reached through
// several paths get the union of the tags. The walk doesn't cross stage boundaries: other
// stage roots (compute fields) are tagged, but their inputs belong to their own stage.
//
// liveArm is optional: if given, branching nodes for which it returns an arm only propagate
// to that arm, and their condition is not walked.
func Label(g *graph.Graph, root *graph.Node, liveArm LiveArmFn) *Labels {
	l := &Labels{
		g:      g,
		root:   root,
		tags:   make([]sets.Set[Tag], g.NumNodes()),
		folded: make(map[graph.NodeID]int),
	}
	l.tags[root.Index()] = sets.MakeWith(Tag{Node: root.ID(), Arm: RootArm})
	queue := []*graph.Node{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node != root && node.Op().IsRoot() {
			continue
		}
		nodeTags := l.tags[node.Index()]
		live := -1
		if node.Op().IsBranching() && liveArm != nil {
			if arm, ok := liveArm(node); ok {
				live = arm
				l.folded[node.ID()] = arm
			}
		}
		for _, input := range node.Inputs() {
			producer := g.ProducerNode(input)
			if producer == nil {
				continue
			}
			port := g.Port(input)
			carried := nodeTags
			if port.Arm() >= 0 {
				carried = sets.MakeWith(Tag{Node: node.ID(), Arm: port.Arm()})
				if live >= 0 && port.Arm() != live {
					continue
				}
			} else if live >= 0 && node.Op() == graph.OpConditional {
				// Condition of a folded branch is not evaluated.
				continue
			}
			producerTags := l.tags[producer.Index()]
			if producerTags == nil {
				producerTags = sets.Make[Tag]()
				l.tags[producer.Index()] = producerTags
				if producer.Op().IsRoot() {
					l.boundaries = append(l.boundaries, producer.ID())
				}
			}
			if producerTags.InsertSet(carried) {
				queue = append(queue, producer)
			}
		}
	}
	if klog.V(2).Enabled() {
		klog.Infof("branches: root %s reaches %d of %d nodes", root, len(l.Nodes()), g.NumNodes())
	}
	return l
}

// Root of the labeled stage.
func (l *Labels) Root() *graph.Node { return l.root }

// Tags of the node, or nil if it is not reachable from the root.
func (l *Labels) Tags(id graph.NodeID) []Tag {
	node := l.g.Node(id)
	if node == nil || l.tags[node.Index()] == nil {
		return nil
	}
	return sets.SortedFunc(l.tags[node.Index()], compareTags(l.g))
}

func compareTags(g *graph.Graph) func(a, b Tag) int {
	return func(a, b Tag) int {
		if c := cmp.Compare(g.Node(a.Node).Index(), g.Node(b.Node).Index()); c != 0 {
			return c
		}
		return cmp.Compare(a.Arm, b.Arm)
	}
}

// IsReachable returns whether the node was tagged.
func (l *Labels) IsReachable(id graph.NodeID) bool {
	node := l.g.Node(id)
	return node != nil && l.tags[node.Index()] != nil
}

// Nodes returns the tagged nodes in insertion order: the nodes left after pruning.
func (l *Labels) Nodes() []*graph.Node {
	var nodes []*graph.Node
	for _, node := range l.g.Nodes() {
		if l.tags[node.Index()] != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Pruned returns the nodes of the graph that are not reachable from the root.
func (l *Labels) Pruned() []*graph.Node {
	var pruned []*graph.Node
	for _, node := range l.g.Nodes() {
		if l.tags[node.Index()] == nil {
			pruned = append(pruned, node)
		}
	}
	return pruned
}

// Boundaries returns the roots of other stages whose outputs are consumed by this stage, in
// the order they were reached.
func (l *Labels) Boundaries() []graph.NodeID { return l.boundaries }

// FoldedArm returns the only live arm of a branching node whose condition folded to a constant.
func (l *Labels) FoldedArm(id graph.NodeID) (arm int, ok bool) {
	arm, ok = l.folded[id]
	return
}

// home returns the tag of the arm where the node must be generated, or ok=false if it belongs
// to the enclosing (shared) list.
func (l *Labels) home(node *graph.Node) (tag Tag, ok bool) {
	tag, ok = l.tags[node.Index()].Single()
	if !ok || !tag.IsArm() {
		return Tag{}, false
	}
	if _, folded := l.folded[tag.Node]; folded {
		// Folded branches emit their live arm inline.
		return Tag{}, false
	}
	return tag, true
}
