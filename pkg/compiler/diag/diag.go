// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package diag defines the typed errors of the shader graph compiler.
//
// Every compilation failure is an *Error of one Kind, optionally attributed to the node that
// caused it. None of them is retried: the caller decides whether to show them to the author of
// the graph or to treat them as defects.
package diag

import (
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/pkg/errors"
)

// Kind of compilation error.
type Kind int

const (
	// TypeResolutionFailure means no concrete type assignment satisfies the graph's constraints.
	TypeResolutionFailure Kind = iota + 1

	// StructuralError means the graph is malformed: dangling edges, cycles, missing required inputs.
	StructuralError

	// UnsupportedConstruct means a node and type combination has no code generation rule.
	UnsupportedConstruct

	// BackendCompilation means the cross-compiler rejected the emitted bytecode. It indicates a
	// code generation defect rather than a bad input graph.
	BackendCompilation
)

var kindNames = map[Kind]string{
	TypeResolutionFailure: "type resolution failure",
	StructuralError:       "structural error",
	UnsupportedConstruct:  "unsupported construct",
	BackendCompilation:    "backend compilation error",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a compilation error.
type Error struct {
	Kind Kind

	// Node that caused the error, if HasNode.
	Node    graph.NodeID
	HasNode bool

	Err error
}

func (e *Error) Error() string {
	if e.HasNode {
		return fmt.Sprintf("%s at node %s: %v", e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf creates an error not attributed to any node.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// NodeErrorf creates an error attributed to a node.
func NodeErrorf(kind Kind, node graph.NodeID, format string, args ...any) *Error {
	return &Error{Kind: kind, Node: node, HasNode: true, Err: errors.Errorf(format, args...)}
}

// Wrap classifies err. If err is already an *Error, it is returned unchanged.
func Wrap(kind Kind, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Err: err}
}

// WrapNode classifies err and attributes it to node, unless err is already an *Error.
func WrapNode(kind Kind, node graph.NodeID, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Node: node, HasNode: true, Err: err}
}

// KindOf returns the Kind of err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err (or any error in its chain) is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// NodeOf returns the node an error is attributed to.
func NodeOf(err error) (graph.NodeID, bool) {
	var e *Error
	if errors.As(err, &e) && e.HasNode {
		return e.Node, true
	}
	return graph.NodeID{}, false
}
