// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/spirv"
)

// vertexBody generates the vertex body shared by all render stages: it transforms the mesh
// vertex by the model and view-projection matrices, and passes the world position, normal and
// texture coordinates to the fragment body.
func vertexBody() *Body {
	m := newModule(spirv.ExecutionModelVertex)
	b := m.b
	vec2, vec3, vec4 := m.typeOf(dtypes.Float2), m.typeOf(dtypes.Float3), m.typeOf(dtypes.Float4)

	var inputs, outputs [3]uint32
	for location := locationPosition; location <= locationTexCoord; location++ {
		def := stageInputs[location]
		typ := m.typeOf(def.dt)
		inputs[location] = m.stageVariable(StageInput, "in_"+def.name, def.dt, typ, location, 0, "")
		outputs[location] = m.stageVariable(StageOutput, def.name, def.dt, typ, location, 0, "")
	}
	clip := m.stageVariable(StageOutput, "clip_position", dtypes.Float4, vec4, -1, spirv.BuiltInPosition, "position")

	m.beginMain()
	one := m.constant(dtypes.Float, 1)
	zero := m.constant(dtypes.Float, 0)
	model := m.loadGlobal(globalsModel)
	viewProjection := m.loadGlobal(globalsViewProjection)

	position := b.Op(spirv.OpLoad, vec3, inputs[locationPosition])
	world := b.Op(spirv.OpMatrixTimesVector, vec4, model, b.Op(spirv.OpCompositeConstruct, vec4, position, one))
	b.Void(spirv.OpStore, clip, b.Op(spirv.OpMatrixTimesVector, vec4, viewProjection, world))
	b.Void(spirv.OpStore, outputs[locationPosition], b.Op(spirv.OpVectorShuffle, vec3, world, world, 0, 1, 2))

	normal := b.Op(spirv.OpLoad, vec3, inputs[locationNormal])
	worldNormal := b.Op(spirv.OpMatrixTimesVector, vec4, model, b.Op(spirv.OpCompositeConstruct, vec4, normal, zero))
	b.Void(spirv.OpStore, outputs[locationNormal], b.Op(spirv.OpVectorShuffle, vec3, worldNormal, worldNormal, 0, 1, 2))

	b.Void(spirv.OpStore, outputs[locationTexCoord], b.Op(spirv.OpLoad, vec2, inputs[locationTexCoord]))
	m.endMain()
	return m.body()
}
