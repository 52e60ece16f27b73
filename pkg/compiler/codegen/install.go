// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"

	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/spirv"
)

// install declares the global resources a node needs. Nodes are visited once, in schedule
// order, so bindings are stable for a fixed graph.
func (c *Context) install(node *graph.Node) {
	c.node = node
	switch node.Op() {
	case graph.OpTexture:
		p := node.Params().(graph.TextureParams)
		c.declareSampledField(node, p.Name, p.Dim, "")

	case graph.OpComputeField:
		p := node.Params().(graph.ComputeFieldParams)
		if node == c.root {
			c.declareStorageField(node, p.Dim)
			c.invocationID()
			return
		}
		c.declareSampledField(node, fieldName(node), p.Dim, "rgba32f")
		c.dependencies = append(c.dependencies, node.ID())

	case graph.OpPosition:
		if c.isFragment() {
			c.stageInput(locationPosition)
		} else {
			c.invocationID()
		}

	case graph.OpNormal, graph.OpTexCoord:
		if !c.isFragment() {
			panic(unsupportedf(node, "%s is only available in render stages", node.Op()))
		}
		if node.Op() == graph.OpNormal {
			c.stageInput(locationNormal)
		} else {
			c.stageInput(locationTexCoord)
		}

	case graph.OpSample:
		dim := c.in.Types.Of(node.Inputs()[0]).Size()
		if dim < 2 {
			panic(unsupportedf(node, "sampling a %dD field is not supported", dim))
		}
		if !c.g.Port(node.Inputs()[1]).IsConnected() {
			switch {
			case !c.isFragment():
				c.invocationID()
			case dim == 2:
				c.stageInput(locationTexCoord)
			default:
				c.stageInput(locationPosition)
			}
		}

	case graph.OpPreviewOutput:
		c.declareOutput("color", dtypes.Float4, 0)

	case graph.OpMaterialOutput:
		c.declareOutput("base_color", dtypes.Float4, 0)
		c.declareOutput("roughness", dtypes.Float, 1)
		c.declareOutput("emission", dtypes.Float3, 2)
	}
}

func fieldName(node *graph.Node) string {
	if node.Name() != "" {
		return node.Name()
	}
	return fmt.Sprintf("field%d", node.Index())
}

func spirvDim(dim int) spirv.Dim {
	switch dim {
	case 1:
		return spirv.Dim1D
	case 2:
		return spirv.Dim2D
	}
	return spirv.Dim3D
}

// declareSampledField declares the image and sampler bound to the output of a texture or of a
// compute field consumed by this stage.
func (c *Context) declareSampledField(node *graph.Node, name string, dim int, format string) {
	out := node.Outputs()[0]
	if _, found := c.fields[out]; found {
		return
	}
	if dim == 1 {
		c.b.Capability(spirv.CapabilitySampled1D)
	}
	imageType := c.b.TypeImage(c.float32Type(), spirvDim(dim), 1, spirv.ImageFormatUnknown)
	resource := Resource{Name: name, Node: node.ID(), HasNode: true, Dim: dim, Format: format}
	resource.Class = SampledImage
	image := c.boundVariable(imageType, resource)
	resource.Name = name + "_sampler"
	resource.Class = Sampler
	resource.Dim = 0
	resource.Format = ""
	sampler := c.boundVariable(c.b.TypeSampler(), resource)
	c.fields[out] = fieldBinding{image: image, sampler: sampler, imageType: imageType, dim: dim}
}

// declareStorageField declares the storage image written by a compute stage.
func (c *Context) declareStorageField(node *graph.Node, dim int) {
	imageType := c.b.TypeImage(c.float32Type(), spirvDim(dim), 2, spirv.ImageFormatRgba32f)
	image := c.boundVariable(imageType, Resource{
		Name: fieldName(node), Class: StorageImage, Node: node.ID(), HasNode: true, Dim: dim, Format: "rgba32f",
	})
	c.b.Decorate(image, spirv.DecorationNonReadable)
	c.storage = fieldBinding{image: image, imageType: imageType, dim: dim}
}

var stageInputs = map[int]struct {
	name string
	dt   dtypes.DType
}{
	locationPosition: {"position", dtypes.Float3},
	locationNormal:   {"normal", dtypes.Float3},
	locationTexCoord: {"texcoord", dtypes.Float2},
}

// stageInput returns the fragment input at the given location, declaring it on first use.
func (c *Context) stageInput(location int) uint32 {
	if v, found := c.inputs[location]; found {
		return v
	}
	def := stageInputs[location]
	v := c.stageVariable(StageInput, def.name, def.dt, c.typeOf(def.dt), location, 0, "")
	c.inputs[location] = v
	return v
}

// invocationID returns the compute invocation id builtin, declaring it on first use.
func (c *Context) invocationID() uint32 {
	if c.gid == 0 {
		c.gid = c.stageVariable(StageInput, "gid", dtypes.InvalidDType, c.uintType(3), -1,
			spirv.BuiltInGlobalInvocationID, "global_invocation_id")
		c.resources[len(c.resources)-1].Format = "uint3"
	}
	return c.gid
}

func (c *Context) declareOutput(name string, dt dtypes.DType, location int) {
	c.outputs[name] = c.stageVariable(StageOutput, name, dt, c.typeOf(dt), location, 0, "")
}
