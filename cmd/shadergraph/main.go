// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// shadergraph compiles shader graph files and reports the compiled stages.
//
// Usage:
//
//	shadergraph compile [flags] <graph.hcl>
//	shadergraph wedge [flags] <graph.hcl>
//
// Default compiler options are read from $SHADERGRAPH_OPTIONS (e.g.
// "fold_constants=true,max_search_nodes=50000"), then from the "options" block of the graph
// file, and finally from the command line flags.
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shadergraph",
		Short:         "shadergraph compiles shader node graphs to SPIR-V and Metal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var noColor bool
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		profile := termenv.NewOutput(cmd.OutOrStdout()).EnvColorProfile()
		if noColor {
			profile = termenv.Ascii
		}
		lipgloss.SetColorProfile(profile)
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no_color", false, "Disable colors in the tables.")
	addKlogFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newCompileCmd(), newWedgeCmd())
	return rootCmd
}

// addKlogFlags registers klog's flags (-v, -logtostderr, ...) on the command line.
func addKlogFlags(flags *pflag.FlagSet) {
	goFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(goFlags)
	flags.AddGoFlagSet(goFlags)
}

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}
