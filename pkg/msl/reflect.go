// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package msl

import (
	"cmp"
	"slices"

	"github.com/gomlx/shadergraph/pkg/spirv"
)

// builtIns maps SPIR-V builtins to their MSL name and attribute.
var builtIns = map[spirv.BuiltIn]struct{ name, attribute string }{
	spirv.BuiltInPosition:           {"gl_Position", "position"},
	spirv.BuiltInFragCoord:          {"gl_FragCoord", "position"},
	spirv.BuiltInGlobalInvocationID: {"gl_GlobalInvocationID", "thread_position_in_grid"},
}

// reflect classifies the global variables and assigns their Metal indices: each argument
// table (buffers, textures, samplers) is filled in ascending (set, binding) order, and stage
// inputs and outputs keep their locations.
func (t *translator) reflect() {
	for _, v := range t.variables {
		pointer := t.typeOf(v.pointer)
		if pointer.kind != kindPointer {
			failf(v.id, "variable type is not a pointer")
		}
		pointee := t.typeOf(pointer.element)
		b := Binding{Variable: v.id, Index: -1}
		switch v.storage {
		case spirv.StorageClassUniform:
			if pointee.kind != kindStruct {
				failf(v.id, "uniform variable is not a block")
			}
			b.Class = UniformBuffer
			b.Format = t.typeName(pointer.element)
			for ii := range pointee.members {
				offset, _ := t.memberOffset(pointer.element, ii)
				b.Members = append(b.Members, Member{
					Name: t.memberName(pointer.element, ii), Type: t.memberType(pointer.element, ii), Offset: offset,
				})
			}

		case spirv.StorageClassUniformConstant:
			switch pointee.kind {
			case kindImage:
				b.Class = SampledImage
				if pointee.sampled == 2 {
					b.Class = StorageImage
				}
				b.Dim = dimOf(pointee.dim)
				if pointee.format == spirv.ImageFormatRgba32f {
					b.Format = "rgba32f"
				}
			case kindSampler:
				b.Class = Sampler
			default:
				failf(v.id, "unsupported uniform constant variable")
			}

		case spirv.StorageClassInput, spirv.StorageClassOutput:
			b.Class = StageInput
			if v.storage == spirv.StorageClassOutput {
				b.Class = StageOutput
			}
			b.Format = t.typeName(pointer.element)
			if location, found := t.decoration(v.id, spirv.DecorationLocation); found {
				b.Index = int(location[0])
			} else if builtIn, found := t.decoration(v.id, spirv.DecorationBuiltIn); found {
				info, known := builtIns[spirv.BuiltIn(builtIn[0])]
				if !known {
					failf(v.id, "unsupported builtin %d", builtIn[0])
				}
				b.BuiltIn = info.attribute
				t.identifiers[v.id] = info.name
			} else {
				failf(v.id, "stage variable has neither location nor builtin")
			}

		default:
			failf(v.id, "unsupported storage class %d", v.storage)
		}
		if b.Class.argumentTable() != "" {
			set, setFound := t.decoration(v.id, spirv.DecorationDescriptorSet)
			binding, bindingFound := t.decoration(v.id, spirv.DecorationBinding)
			if !setFound || !bindingFound {
				failf(v.id, "%s has no descriptor set and binding", b.Class)
			}
			b.Set, b.Binding = int(set[0]), int(binding[0])
		}
		if b.BuiltIn == "" {
			b.Name = t.identifier(v.id, "var")
		} else {
			b.Name = t.identifiers[v.id]
		}
		t.bindings = append(t.bindings, b)
	}

	for _, table := range []string{"buffer", "texture", "sampler"} {
		var indices []int
		for ii, b := range t.bindings {
			if b.Class.argumentTable() == table {
				indices = append(indices, ii)
			}
		}
		slices.SortStableFunc(indices, func(a, b int) int {
			ba, bb := t.bindings[a], t.bindings[b]
			if c := cmp.Compare(ba.Set, bb.Set); c != 0 {
				return c
			}
			return cmp.Compare(ba.Binding, bb.Binding)
		})
		for index, ii := range indices {
			t.bindings[ii].Index = index
		}
	}
}

// bindingsOf returns the bindings of the given class in Metal index order.
func (t *translator) bindingsOf(class Class) []Binding {
	var result []Binding
	for _, b := range t.bindings {
		if b.Class == class {
			result = append(result, b)
		}
	}
	slices.SortStableFunc(result, func(a, b Binding) int { return cmp.Compare(a.Index, b.Index) })
	return result
}
