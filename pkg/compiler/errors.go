// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"github.com/gomlx/shadergraph/pkg/compiler/diag"
	"github.com/gomlx/shadergraph/pkg/core/graph"
)

// Error is the typed error returned by Compile. See package diag.
type Error = diag.Error

// Kind of compilation error.
type Kind = diag.Kind

const (
	TypeResolutionFailure = diag.TypeResolutionFailure
	StructuralError       = diag.StructuralError
	UnsupportedConstruct  = diag.UnsupportedConstruct
	BackendCompilation    = diag.BackendCompilation
)

// IsKind reports whether err is a compilation error of the given kind.
func IsKind(err error, kind Kind) bool { return diag.IsKind(err, kind) }

// NodeOf returns the node a compilation error is attributed to.
func NodeOf(err error) (graph.NodeID, bool) { return diag.NodeOf(err) }
