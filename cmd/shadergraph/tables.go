// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/shadergraph/pkg/compiler"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/graphfile"
	"github.com/gomlx/shadergraph/pkg/support/xslices"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func newPlainTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				return headerRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				return s.Align(lipgloss.Left)
			}
			return s.Align(lipgloss.Right)
		})
}

func stagesTable(file *graphfile.File, result *compiler.Result) *lgtable.Table {
	table := newPlainTable("Stage", "Kind", "Domain", "Depends on", "Nodes", "Shaders", "Size", "Hash")
	for _, stage := range result.Stages {
		deps := xslices.Map(stage.Dependencies, func(dep graph.NodeID) string {
			return stageName(file, result.Stage(dep))
		})
		models := xslices.Map(stage.Shaders, func(shader *compiler.Shader) string { return shader.Model().String() })
		var size uint64
		for _, shader := range stage.Shaders {
			size += uint64(4 * len(shader.Body.Words))
		}
		kind := stage.Kind.String()
		if stage.Field != nil {
			kind = fmt.Sprintf("%s %dD@%d", kind, stage.Field.Dim, stage.Field.Resolution)
		}
		table.Row(
			stageName(file, stage), kind, stage.Domain.String(),
			strings.Join(deps, ", "),
			humanize.Comma(int64(len(stage.Nodes))),
			strings.Join(models, "+"),
			humanize.Bytes(size),
			hex.EncodeToString(stage.Hash[:6]),
		)
	}
	return table
}

func bindingsTable(file *graphfile.File, result *compiler.Result) *lgtable.Table {
	table := newPlainTable("Stage", "Shader", "Name", "Class", "Access", "Set/Binding", "MSL", "Index")
	for _, stage := range result.Stages {
		for _, shader := range stage.Shaders {
			for _, b := range shader.Bindings {
				setBinding := "-"
				if b.Class.IsBound() {
					setBinding = fmt.Sprintf("%d/%d", b.Set, b.Binding)
				}
				index := strconv.Itoa(b.Index)
				if b.BuiltIn != "" {
					index = b.BuiltIn
				}
				table.Row(stageName(file, stage), shader.Model().String(), b.Name, b.Class.String(), b.Access,
					setBinding, b.MSLType, index)
			}
		}
	}
	return table
}
