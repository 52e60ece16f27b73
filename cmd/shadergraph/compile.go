// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/graphfile"
	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/gomlx/shadergraph/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// compileFlags are shared by the commands that compile a graph file.
type compileFlags struct {
	output         string
	foldConstants  bool
	maxSearchNodes int
}

func (f *compileFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.output, "output", "", "Name of the output node to compile. Defaults to the file's \"output\" attribute.")
	flags.BoolVar(&f.foldConstants, "fold_constants", false, "Evaluate arithmetic over constants at compile time.")
	flags.IntVar(&f.maxSearchNodes, "max_search_nodes", 0, "Budget of the type resolution search.")
}

// compile loads the graph file and compiles the selected output.
func (f *compileFlags) compile(flags *pflag.FlagSet, path string) (*graphfile.File, *compiler.Result, error) {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return nil, nil, err
	}
	file, err := graphfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	opts := compiler.DefaultOptions()
	if err := opts.FromEnv(); err != nil {
		return nil, nil, err
	}
	file.ApplyOptions(opts)
	if flags.Changed("fold_constants") {
		opts.WithFoldConstants(f.foldConstants)
	}
	if flags.Changed("max_search_nodes") {
		opts.WithMaxSearchNodes(f.maxSearchNodes)
	}

	root := file.Output
	if f.output != "" {
		id, found := file.Nodes[f.output]
		if !found {
			return nil, nil, errors.Errorf("graph file %s has no node named %q", path, f.output)
		}
		root = id
	}
	if root == (graph.NodeID{}) {
		return nil, nil, errors.Errorf("graph file %s doesn't select an output, use --output", path)
	}
	result, err := compiler.Compile(file.Graph, root, opts)
	if err != nil {
		if node, found := compiler.NodeOf(err); found {
			if n := file.Graph.Node(node); n != nil && n.Name() != "" {
				err = errors.WithMessagef(err, "node %q", n.Name())
			}
		}
		return nil, nil, err
	}
	return file, result, nil
}

func newCompileCmd() *cobra.Command {
	var (
		flags                       compileFlags
		dumpSPIRV, dumpMSL, dumpAll bool
		outDir                      string
	)
	cmd := &cobra.Command{
		Use:   "compile <graph.hcl>",
		Short: "Compile a graph file and list its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, result, err := flags.compile(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Stages"))
			fmt.Fprintln(out, stagesTable(file, result).Render())
			fmt.Fprintln(out, titleStyle.Render("Bindings"))
			fmt.Fprintln(out, bindingsTable(file, result).Render())
			if len(result.Pruned) > 0 {
				fmt.Fprintf(out, "%d pruned nodes\n", len(result.Pruned))
			}

			for _, stage := range result.Stages {
				name := stageName(file, stage)
				for _, shader := range stage.Shaders {
					if err := printShader(out, name, shader, dumpSPIRV || dumpAll, dumpMSL || dumpAll); err != nil {
						return err
					}
					if outDir != "" {
						if err := writeShader(outDir, name, shader); err != nil {
							return err
						}
					}
				}
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&dumpSPIRV, "spirv", false, "Print the SPIR-V disassembly of every shader.")
	cmd.Flags().BoolVar(&dumpMSL, "msl", false, "Print the Metal Shading Language source of every shader.")
	cmd.Flags().BoolVar(&dumpAll, "all", false, "Same as --spirv --msl.")
	cmd.Flags().StringVar(&outDir, "out_dir", "", "If set, writes <stage>_<model>.spv and .metal files to this directory.")
	return cmd
}

// stageName returns the name of the stage root node, or its id if it has no name.
func stageName(file *graphfile.File, stage *compiler.Stage) string {
	if node := file.Graph.Node(stage.ID); node != nil && node.Name() != "" {
		return node.Name()
	}
	return stage.ID.String()
}

// printShader prints the SPIR-V disassembly and the MSL source of a shader, as selected.
func printShader(out io.Writer, name string, shader *compiler.Shader, withSPIRV, withMSL bool) error {
	if withSPIRV {
		m, err := spirv.Parse(shader.Body.Words)
		if err != nil {
			return errors.WithMessagef(err, "failed to disassemble %s %s", name, shader.Model())
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("SPIR-V: %s %s", name, shader.Model())))
		fmt.Fprint(out, spirv.Disassemble(m))
	}
	if withMSL {
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("MSL: %s %s", name, shader.Model())))
		fmt.Fprint(out, shader.Source)
	}
	return nil
}

func writeShader(dir, name string, shader *compiler.Shader) error {
	dir, err := fsutil.ReplaceTildeInDir(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory")
	}
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", name, shader.Model()))
	if err := os.WriteFile(base+".spv", spirv.WordsToBytes(shader.Body.Words), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write SPIR-V of %s", name)
	}
	if err := os.WriteFile(base+".metal", []byte(shader.Source), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write MSL of %s", name)
	}
	return nil
}
