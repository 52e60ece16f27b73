// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/spirv"
)

// Stage is the unit of compiled output: the code of one stage root and everything it needs.
type Stage struct {
	// ID is the identity of the stage root node.
	ID graph.NodeID

	// Kind of the stage: render (vertex + fragment bodies) or compute (one body).
	Kind graph.StageKind

	// Domain is the union of the domains of the stage nodes. The compiler further merges the
	// domains of the dependencies.
	Domain dtypes.Domain

	// Dependencies are the compute stages whose output fields this stage samples.
	Dependencies []graph.NodeID

	// Dependants are the stages sampling this stage's output. Filled by the compiler.
	Dependants []graph.NodeID

	// Nodes emitted in the stage, in schedule order.
	Nodes []graph.NodeID

	// Bodies of the stage: vertex and fragment for render stages, compute for compute stages.
	Bodies []*Body

	// Field is set for compute stages: the shape of the written field.
	Field *Field

	// Hash of the stage content and of its dependencies' hashes. Filled by the compiler.
	Hash [32]byte
}

// Field written by a compute stage.
type Field struct {
	Dim        int
	Resolution int

	// LocalSize is the workgroup size of the compute body.
	LocalSize [3]int
}

// DispatchSize returns the number of workgroups to cover the field along each axis.
func (f *Field) DispatchSize() [3]int {
	var groups [3]int
	for axis := range groups {
		extent := 1
		if axis < f.Dim {
			extent = f.Resolution
		}
		groups[axis] = (extent + f.LocalSize[axis] - 1) / f.LocalSize[axis]
	}
	return groups
}

// Body returns the body with the given execution model, or nil.
func (s *Stage) Body(model spirv.ExecutionModel) *Body {
	for _, body := range s.Bodies {
		if body.Model == model {
			return body
		}
	}
	return nil
}

func (s *Stage) String() string {
	return fmt.Sprintf("stage %s (%s, domain %s, %d nodes, %d dependencies)",
		s.ID, s.Kind, s.Domain, len(s.Nodes), len(s.Dependencies))
}

// Body is one shader body of a stage: a complete SPIR-V module with one entry point.
type Body struct {
	Model spirv.ExecutionModel

	// Words of the SPIR-V module.
	Words []uint32

	// Resources declared by the module.
	Resources []Resource

	// Origins maps result ids to the node whose code produced them.
	Origins map[uint32]graph.NodeID
}

// ResourceClass is the kind of a declared resource.
type ResourceClass int

const (
	UniformBuffer ResourceClass = iota
	SampledImage
	Sampler
	StorageImage
	StageInput
	StageOutput
)

var resourceClassNames = []string{"uniform_buffer", "sampled_image", "sampler", "storage_image", "stage_input", "stage_output"}

func (c ResourceClass) String() string {
	if c < 0 || int(c) >= len(resourceClassNames) {
		return fmt.Sprintf("ResourceClass(%d)", int(c))
	}
	return resourceClassNames[c]
}

// Access returns how the resource is accessed by the shader.
func (c ResourceClass) Access() string {
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

// IsBound returns whether resources of this class have a (set, binding) pair. Stage inputs and
// outputs have locations or builtins instead.
func (c ResourceClass) IsBound() bool {
	return c != StageInput && c != StageOutput
}

// Resource declared by a body.
type Resource struct {
	Name  string
	Class ResourceClass

	// Variable is the result id of the global variable in the SPIR-V module.
	Variable uint32

	// Node that owns the resource (texture, sampled field or compute field root), if HasNode.
	Node    graph.NodeID
	HasNode bool

	// Dim is the dimensionality of images, 0 for other classes.
	Dim int

	// DType of stage inputs and outputs.
	DType dtypes.DType

	// Format of images ("rgba32f") or layout of buffers ("std140").
	Format string

	// Set and Binding of bound classes.
	Set, Binding int

	// Location of stage inputs and outputs, -1 for builtins.
	Location int

	// BuiltIn name of builtin stage inputs and outputs.
	BuiltIn string
}
