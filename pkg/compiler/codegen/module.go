// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/spirv"
)

// Members of the Globals uniform block, std140 layout.
const (
	globalsViewProjection = iota
	globalsModel
	globalsExtent
	globalsTime
)

var globalsMembers = []struct {
	name   string
	offset uint32
}{
	{"view_projection", 0},
	{"model", 64},
	{"extent", 128},
	{"time", 140},
}

// module holds the parts of a SPIR-V module shared by every body kind: the header
// declarations, the Globals block and the interface variables of the entry point.
type module struct {
	b     *spirv.Builder
	model spirv.ExecutionModel
	glsl  uint32
	main  uint32
	label uint32 // Current block.

	globals     uint32
	interfaces  []uint32
	resources   []Resource
	nextBinding int
	origins     map[uint32]graph.NodeID
}

func newModule(model spirv.ExecutionModel) *module {
	m := &module{
		b:       spirv.NewBuilder(spirv.Version1_3),
		model:   model,
		origins: make(map[uint32]graph.NodeID),
	}
	m.b.Capability(spirv.CapabilityShader)
	m.glsl = m.b.ExtInstImport(spirv.GLSLStd450)
	m.b.MemoryModel(spirv.AddressingLogical, spirv.MemoryModelGLSL450)
	m.main = m.b.AllocID()
	m.b.Name(m.main, "main")
	m.declareGlobals()
	return m
}

// typeOf returns the SPIR-V type of a value type.
func (m *module) typeOf(dt dtypes.DType) uint32 {
	var scalar uint32
	switch {
	case dt.IsFloat():
		scalar = m.b.TypeFloat(32)
	case dt.IsHalf():
		m.b.Capability(spirv.CapabilityFloat16)
		scalar = m.b.TypeFloat(16)
	case dt.IsInt():
		scalar = m.b.TypeInt(32, true)
	case dt == dtypes.Bool:
		return m.b.TypeBool()
	default:
		panic(unsupportedf(nil, "no value representation for type %s", dt))
	}
	if dt.Size() == 1 {
		return scalar
	}
	return m.b.TypeVector(scalar, uint32(dt.Size()))
}

func (m *module) float32Type() uint32 { return m.b.TypeFloat(32) }

func (m *module) uintType(size int) uint32 {
	u32 := m.b.TypeInt(32, false)
	if size == 1 {
		return u32
	}
	return m.b.TypeVector(u32, uint32(size))
}

// scalarConstant returns the constant of the given scalar type.
func (m *module) scalarConstant(scalar dtypes.DType, value float64) uint32 {
	typ := m.typeOf(scalar)
	switch {
	case scalar == dtypes.Float:
		return m.b.ConstantFloat32(typ, float32(value))
	case scalar == dtypes.Half:
		return m.b.ConstantFloat16(typ, float32(value))
	case scalar == dtypes.Int:
		return m.b.ConstantInt32(typ, int32(value))
	case scalar == dtypes.Bool:
		return m.b.ConstantBool(typ, value != 0)
	}
	panic(unsupportedf(nil, "no constants of type %s", scalar))
}

// constant returns the constant of type dt with the given components. A single value is
// replicated to every component.
func (m *module) constant(dt dtypes.DType, values ...float64) uint32 {
	if dt.Size() == 1 {
		return m.scalarConstant(dt, values[0])
	}
	components := make([]uint32, dt.Size())
	for ii := range components {
		v := values[0]
		if len(values) > 1 {
			v = values[ii]
		}
		components[ii] = m.scalarConstant(dt.Scalar(), v)
	}
	return m.b.ConstantComposite(m.typeOf(dt), components...)
}

func (m *module) indexConstant(idx int) uint32 {
	return m.b.ConstantInt32(m.b.TypeInt(32, true), int32(idx))
}

// declareGlobals declares the Globals uniform block at (set 0, binding 0).
func (m *module) declareGlobals() {
	b := m.b
	f32 := b.TypeFloat(32)
	vec3 := b.TypeVector(f32, 3)
	vec4 := b.TypeVector(f32, 4)
	mat4 := b.TypeMatrix(vec4, 4)
	block := b.TypeStruct(mat4, mat4, vec3, f32)
	b.Name(block, "Globals")
	b.Decorate(block, spirv.DecorationBlock)
	for ii, member := range globalsMembers {
		b.MemberName(block, uint32(ii), member.name)
		b.MemberDecorate(block, uint32(ii), spirv.DecorationOffset, member.offset)
		if ii == globalsViewProjection || ii == globalsModel {
			b.MemberDecorate(block, uint32(ii), spirv.DecorationColMajor)
			b.MemberDecorate(block, uint32(ii), spirv.DecorationMatrixStride, 16)
		}
	}
	m.globals = b.GlobalVariable(b.TypePointer(spirv.StorageClassUniform, block), spirv.StorageClassUniform)
	b.Name(m.globals, "globals")
	b.Decorate(m.globals, spirv.DecorationDescriptorSet, 0)
	b.Decorate(m.globals, spirv.DecorationBinding, 0)
	m.resources = append(m.resources, Resource{
		Name: "globals", Class: UniformBuffer, Variable: m.globals, Format: "std140", Location: -1,
	})
	m.nextBinding = 1
}

// loadGlobal loads one member of the Globals block.
func (m *module) loadGlobal(member int) uint32 {
	b := m.b
	f32 := b.TypeFloat(32)
	var typ uint32
	switch member {
	case globalsViewProjection, globalsModel:
		typ = b.TypeMatrix(b.TypeVector(f32, 4), 4)
	case globalsExtent:
		typ = b.TypeVector(f32, 3)
	default:
		typ = f32
	}
	ptr := b.Op(spirv.OpAccessChain, b.TypePointer(spirv.StorageClassUniform, typ), m.globals, m.indexConstant(member))
	return b.Op(spirv.OpLoad, typ, ptr)
}

// stageVariable declares a stage input or output at the given location, or a builtin if
// location is negative.
func (m *module) stageVariable(class ResourceClass, name string, dt dtypes.DType, typ uint32, location int, builtIn spirv.BuiltIn, builtInName string) uint32 {
	storage := spirv.StorageClassInput
	if class == StageOutput {
		storage = spirv.StorageClassOutput
	}
	v := m.b.GlobalVariable(m.b.TypePointer(storage, typ), storage)
	m.b.Name(v, name)
	if location >= 0 {
		m.b.Decorate(v, spirv.DecorationLocation, uint32(location))
		builtInName = ""
	} else {
		m.b.Decorate(v, spirv.DecorationBuiltIn, uint32(builtIn))
	}
	m.interfaces = append(m.interfaces, v)
	m.resources = append(m.resources, Resource{
		Name: name, Class: class, Variable: v, DType: dt, Format: formatOf(dt),
		Location: location, BuiltIn: builtInName,
	})
	return v
}

// boundVariable declares a UniformConstant variable with the next (set 0) binding.
func (m *module) boundVariable(typ uint32, r Resource) uint32 {
	v := m.b.GlobalVariable(m.b.TypePointer(spirv.StorageClassUniformConstant, typ), spirv.StorageClassUniformConstant)
	m.b.Name(v, r.Name)
	m.b.Decorate(v, spirv.DecorationDescriptorSet, 0)
	m.b.Decorate(v, spirv.DecorationBinding, uint32(m.nextBinding))
	r.Variable = v
	r.Binding = m.nextBinding
	r.Location = -1
	m.nextBinding++
	m.resources = append(m.resources, r)
	if r.HasNode {
		m.origins[v] = r.Node
	}
	return v
}

// beginMain starts the entry point function and its first block.
func (m *module) beginMain() {
	b := m.b
	void := b.TypeVoid()
	b.Function(m.main, void, b.TypeFunction(void))
	m.label = b.AllocID()
	b.Label(m.label)
}

// endMain returns from the entry point and declares it.
func (m *module) endMain() {
	m.b.Void(spirv.OpReturn)
	m.b.FunctionEnd()
	m.b.EntryPoint(m.model, m.main, "main", m.interfaces...)
}

func (m *module) body() *Body {
	return &Body{
		Model:     m.model,
		Words:     m.b.Words(),
		Resources: m.resources,
		Origins:   m.origins,
	}
}

// formatOf returns the packing name of a value type.
func formatOf(dt dtypes.DType) string {
	if dt == dtypes.InvalidDType {
		return ""
	}
	return dt.String()
}
