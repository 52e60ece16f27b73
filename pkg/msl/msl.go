// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package msl cross-compiles SPIR-V shader bodies to the Metal Shading Language, and reflects
// the resource bindings chosen for the Metal entry point.
//
// It handles the subset of SPIR-V emitted by the shadergraph code generator: a single entry
// point function with structured selections, the GLSL.std.450 instructions, uniform blocks,
// sampled and storage images and stage inputs and outputs.
package msl

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// EntryPoint is the name of the generated Metal function.
const EntryPoint = "main0"

// Class of a resource, as seen by the Metal entry point.
type Class int

const (
	UniformBuffer Class = iota
	SampledImage
	Sampler
	StorageImage
	StageInput
	StageOutput
)

var classNames = []string{"uniform_buffer", "sampled_image", "sampler", "storage_image", "stage_input", "stage_output"}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

// Access returns how resources of the class are accessed: "uniform", "sampled", "storage",
// "input" or "output".
func (c Class) Access() string {
	switch c {
	case UniformBuffer:
		return "uniform"
	case SampledImage, Sampler:
		return "sampled"
	case StorageImage:
		return "storage"
	case StageInput:
		return "input"
	}
	return "output"
}

// argumentTable is the Metal argument table ("buffer", "texture" or "sampler") of bound
// classes, or "" for stage inputs and outputs.
func (c Class) argumentTable() string {
	switch c {
	case UniformBuffer:
		return "buffer"
	case SampledImage, StorageImage:
		return "texture"
	case Sampler:
		return "sampler"
	}
	return ""
}

// Member of a uniform buffer.
type Member struct {
	Name   string
	Type   string // MSL type, e.g. "packed_float3".
	Offset int
}

// Binding reflects one resource of the compiled entry point.
type Binding struct {
	// Name of the resource in the MSL source.
	Name string

	// Variable is the SPIR-V result id of the resource's global variable.
	Variable uint32

	Class Class

	// Dim of images, 0 otherwise.
	Dim int

	// Format of storage images ("rgba32f"), MSL type of stage inputs and outputs, struct name
	// of uniform buffers.
	Format string

	// Members of uniform buffers.
	Members []Member

	// Set and Binding are the SPIR-V descriptor set and binding of bound classes.
	Set, Binding int

	// Index is the Metal argument table index of bound classes, the location of stage inputs
	// and outputs, or -1 for builtins.
	Index int

	// BuiltIn is the Metal attribute of builtins, e.g. "thread_position_in_grid".
	BuiltIn string
}

// Access returns how the resource is accessed.
func (b Binding) Access() string { return b.Class.Access() }

// Result of a cross-compilation.
type Result struct {
	Model    spirv.ExecutionModel
	Source   string
	Bindings []Binding

	// LocalSize of compute entry points.
	LocalSize [3]uint32
}

// Binding returns the reflection of the given SPIR-V variable.
func (r *Result) Binding(variable uint32) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Variable == variable {
			return b, true
		}
	}
	return Binding{}, false
}

// Error is a cross-compilation failure. ID is the SPIR-V result id of the offending
// instruction or variable, or 0 if it is not attributable to one.
type Error struct {
	ID  uint32
	Err error
}

func (e *Error) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("msl: %v", e.Err)
	}
	return fmt.Sprintf("msl: %%%d: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failf(id uint32, format string, args ...any) {
	panic(&Error{ID: id, Err: errors.Errorf(format, args...)})
}

// Compile cross-compiles a SPIR-V module. Failures are returned as *Error.
func Compile(words []uint32) (*Result, error) {
	m, err := spirv.Parse(words)
	if err != nil {
		return nil, &Error{Err: err}
	}
	var result *Result
	err = exceptions.TryCatch[error](func() {
		t := newTranslator(m)
		t.load()
		t.reflect()
		result = &Result{
			Model:     t.model,
			Source:    t.emit(),
			Bindings:  t.bindings,
			LocalSize: t.localSize,
		}
	})
	if err != nil {
		var mslErr *Error
		if !errors.As(err, &mslErr) {
			err = &Error{Err: err}
		}
		return nil, err
	}
	klog.V(2).Infof("msl: %s entry point with %d bindings, %d bytes of source", result.Model, len(result.Bindings), len(result.Source))
	return result, nil
}
