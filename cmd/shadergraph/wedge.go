// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/stages"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newWedgeCmd() *cobra.Command {
	var (
		flags          compileFlags
		time           float32
		model          string
		arguments      []string
		maxParallelism int
		progress       bool
	)
	cmd := &cobra.Command{
		Use:   "wedge <graph.hcl>",
		Short: "Print the wedge hash of every stage, in dispatch order",
		Long: "Compiles the graph file and dispatches its stages in dependency order, printing for each " +
			"one the hash of the stage evaluated with the given inputs. Inputs outside a stage's domain " +
			"don't change its hash.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, result, err := flags.compile(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			in := stages.Inputs{Time: time, Transform: [16]float32{0: 1, 5: 1, 10: 1, 15: 1}}
			if model != "" {
				if in.Model, err = uuid.Parse(model); err != nil {
					return errors.Wrapf(err, "invalid --model")
				}
			}
			for _, arg := range arguments {
				key, value, found := strings.Cut(arg, "=")
				if !found {
					return errors.Errorf("--arg %q is not in the form key=value", arg)
				}
				if in.Arguments == nil {
					in.Arguments = make(map[string]string)
				}
				in.Arguments[key] = value
			}

			var (
				mu  sync.Mutex
				bar *progressbar.ProgressBar
			)
			out := cmd.OutOrStdout()
			if progress {
				bar = progressbar.NewOptions(len(result.Stages),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("stages"),
					progressbar.OptionSetTheme(progressbar.ThemeASCII),
					progressbar.OptionShowCount())
			}
			err = stages.NewDispatcher(maxParallelism).Run(cmd.Context(), result.Stages,
				func(_ context.Context, stage *compiler.Stage) error {
					hash := stages.WedgeHash(stage, in)
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(out, "%s\t%s\t%s\n", stageName(file, stage), stage.Domain, hex.EncodeToString(hash[:]))
					if bar != nil {
						return bar.Add(1)
					}
					return nil
				})
			if bar != nil {
				_ = bar.Finish()
			}
			return err
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().Float32Var(&time, "time", 0, "Animation time, in seconds.")
	cmd.Flags().StringVar(&model, "model", "", "UUID of the shaded model.")
	cmd.Flags().StringArrayVar(&arguments, "arg", nil, "Caller argument key=value, may be repeated.")
	cmd.Flags().BoolVar(&progress, "progress", false, "Display a progress bar of the dispatched stages on stderr.")
	cmd.Flags().IntVar(&maxParallelism, "parallelism", 0, "Maximum number of stages dispatched in parallel, 0 for the number of CPUs.")
	return cmd
}
