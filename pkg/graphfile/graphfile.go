// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphfile loads shader graphs described in HCL files.
//
// A graph file lists the nodes of the graph, each with its kind, its parameters and the
// connections of its inputs, given as references to the producing node and output. Nodes may
// be given in any order:
//
//	output = "preview"
//
//	options {
//	  fold_constants = true
//	}
//
//	node "time" {
//	  op = "time"
//	}
//
//	node "wave" {
//	  op     = "sin"
//	  inputs = { in = time }
//	}
//
//	node "half" {
//	  op     = "constant"
//	  values = [0.5]
//	}
//
//	node "preview" {
//	  op     = "preview_output"
//	  inputs = { color = tint.out }
//	}
//
//	node "tint" {
//	  op     = "multiply"
//	  inputs = { a = half, b = wave.out }
//	}
//
// A reference with no output name ("time") connects the first output of the node. Node
// identities are derived from the node names, unless given explicitly with an "id" attribute.
package graphfile

import (
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/support/xslices"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// File is a loaded graph file.
type File struct {
	Graph *graph.Graph

	// Output is the node selected by the "output" attribute. If the attribute is not set and
	// the graph has a single preview or material output, that one is selected.
	Output graph.NodeID

	// Nodes by name.
	Nodes map[string]graph.NodeID

	options *fileOptions
}

// ApplyOptions applies the file's "options" block, if any, to opts.
func (f *File) ApplyOptions(opts *compiler.Options) {
	if f.options == nil {
		return
	}
	if f.options.FoldConstants != nil {
		opts.WithFoldConstants(*f.options.FoldConstants)
	}
	if f.options.MaxSearchNodes != nil {
		opts.WithMaxSearchNodes(*f.options.MaxSearchNodes)
	}
}

// fileRoot is the top-level structure of a graph file.
type fileRoot struct {
	Output  string       `hcl:"output,optional"`
	Options *fileOptions `hcl:"options,block"`
	Nodes   []*nodeBlock `hcl:"node,block"`
}

type fileOptions struct {
	FoldConstants  *bool `hcl:"fold_constants,optional"`
	MaxSearchNodes *int  `hcl:"max_search_nodes,optional"`
}

type nodeBlock struct {
	Name   string         `hcl:"name,label"`
	Op     string         `hcl:"op"`
	ID     *string        `hcl:"id,optional"`
	Inputs *hcl.Attribute `hcl:"inputs,optional"`
	Remain hcl.Body       `hcl:",remain"`
	Range  hcl.Range      // Range of the block, for diagnostics.
	conns  []connection
}

// connection of an input port to the output of another node.
type connection struct {
	input, from, output string
	rng                 hcl.Range
}

// Load reads and parses the graph file at path.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read graph file")
	}
	return Parse(src, path)
}

// Parse parses the contents of a graph file. The filename is only used in diagnostics.
//
// Errors are returned as hcl.Diagnostics, wrapped with the file name.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse graph file %s", filename)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode graph file %s", filename)
	}
	if blocks, _ := hclFile.Body.Content(rootSchema); blocks != nil {
		for ii, block := range blocks.Blocks.OfType("node") {
			if ii < len(root.Nodes) {
				root.Nodes[ii].Range = block.DefRange
			}
		}
	}

	f, diags := build(&root)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "invalid graph file %s", filename)
	}
	klog.V(1).Infof("graphfile: loaded %s: %d nodes, %d edges", filename, f.Graph.NumNodes(), len(f.Graph.Edges()))
	return f, nil
}

var rootSchema, _ = gohcl.ImpliedBodySchema(&fileRoot{})

// build creates the graph: first all the nodes, then the edges between them.
func build(root *fileRoot) (*File, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	f := &File{Nodes: make(map[string]graph.NodeID), options: root.Options}
	b := graph.NewBuilder()
	nodes := make(map[string]*graph.Node, len(root.Nodes))
	for _, block := range root.Nodes {
		if _, found := nodes[block.Name]; found {
			diags = diags.Append(errorf(block.Range, "Duplicate node", "node %q is defined more than once", block.Name))
			continue
		}
		node, nodeDiags := buildNode(b, block)
		diags = diags.Extend(nodeDiags)
		if node == nil {
			continue
		}
		nodes[block.Name] = node
		f.Nodes[block.Name] = node.ID()
	}
	if diags.HasErrors() {
		return nil, diags
	}

	for _, block := range root.Nodes {
		to := nodes[block.Name]
		for _, conn := range block.conns {
			from, found := nodes[conn.from]
			if !found {
				diags = diags.Append(errorf(conn.rng, "Unknown node", "input %q of node %q references undefined node %q", conn.input, block.Name, conn.from))
				continue
			}
			output := conn.output
			if output == "" {
				if len(from.Outputs()) == 0 {
					diags = diags.Append(errorf(conn.rng, "Invalid reference", "node %q has no outputs", conn.from))
					continue
				}
				output = b.Graph().Port(from.Outputs()[0]).Name()
			}
			err := exceptions.TryCatch[error](func() { b.ConnectNodes(from, output, to, conn.input) })
			if err != nil {
				diags = diags.Append(errorf(conn.rng, "Invalid connection", "%v", err))
			}
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	g, err := b.Build()
	if err != nil {
		return nil, diags.Append(&hcl.Diagnostic{Severity: hcl.DiagError, Summary: "Invalid graph", Detail: err.Error()})
	}
	f.Graph = g

	if root.Output != "" {
		id, found := f.Nodes[root.Output]
		if !found {
			return nil, diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown output",
				Detail:   "output references undefined node " + root.Output,
			})
		}
		f.Output = id
	} else {
		outputs := xslices.Filter(g.Nodes(), func(node *graph.Node) bool { return node.Op().StageKind() == graph.RenderStage })
		if len(outputs) == 1 {
			f.Output = outputs[0].ID()
		}
	}
	return f, diags
}

func errorf(rng hcl.Range, summary, format string, args ...any) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	}
}
