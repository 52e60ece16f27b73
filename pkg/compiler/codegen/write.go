// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"github.com/gomlx/shadergraph/pkg/compiler/diag"
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
	"github.com/gomlx/shadergraph/pkg/core/graph"
	"github.com/gomlx/shadergraph/pkg/mathexpr"
	"github.com/gomlx/shadergraph/pkg/spirv"
)

// writeList emits the nodes of a (shared or arm) list, in order.
func (c *Context) writeList(ids []graph.NodeID) {
	for _, id := range ids {
		c.write(c.g.Node(id))
	}
}

// write emits the instructions of one node.
func (c *Context) write(node *graph.Node) {
	c.node = node
	op := node.Op()
	switch op {
	case graph.OpConstant:
		p := node.Params().(graph.ConstantParams)
		dt := p.DType()
		out := node.Outputs()[0]
		c.bind(out, c.constant(dt, p.Values...))
		c.constants[out] = p.Values

	case graph.OpTexture:
		// Bound by the install pass.

	case graph.OpTime:
		time := c.loadGlobal(globalsTime)
		c.origin(time)
		c.bind(node.Outputs()[0], time)

	case graph.OpPosition:
		out := node.Outputs()[0]
		if c.isFragment() {
			c.define(out, spirv.OpLoad, c.typeOf(dtypes.Float3), c.inputs[locationPosition])
			return
		}
		c.bind(out, c.fieldCoordinate(3))

	case graph.OpNormal:
		c.define(node.Outputs()[0], spirv.OpLoad, c.typeOf(dtypes.Float3), c.inputs[locationNormal])

	case graph.OpTexCoord:
		c.define(node.Outputs()[0], spirv.OpLoad, c.typeOf(dtypes.Float2), c.inputs[locationTexCoord])

	case graph.OpAdd, graph.OpSubtract, graph.OpMultiply, graph.OpDivide, graph.OpMin, graph.OpMax, graph.OpPower,
		graph.OpNegate, graph.OpAbs, graph.OpFloor, graph.OpFract, graph.OpSqrt, graph.OpSin, graph.OpCos,
		graph.OpNormalize, graph.OpMix:
		c.writeArithmetic(node)

	case graph.OpLength:
		out := node.Outputs()[0]
		c.define(out, spirv.OpExtInst, c.typeOfPort(out), c.glsl, spirv.GLSLLength, c.operand(node.Inputs()[0]))

	case graph.OpDot:
		out := node.Outputs()[0]
		a, b := c.operand(node.Inputs()[0]), c.operand(node.Inputs()[1])
		if c.in.Types.Of(node.Inputs()[0]).IsVector() {
			c.define(out, spirv.OpDot, c.typeOfPort(out), a, b)
		} else {
			c.define(out, spirv.OpFMul, c.typeOfPort(out), a, b)
		}

	case graph.OpCompare:
		c.writeCompare(node)

	case graph.OpConditional:
		c.writeConditional(node)

	case graph.OpSwizzle:
		c.writeSwizzle(node)

	case graph.OpCombine:
		out := node.Outputs()[0]
		args := make([]uint32, len(node.Inputs()))
		for ii, input := range node.Inputs() {
			args[ii] = c.operand(input)
		}
		c.define(out, spirv.OpCompositeConstruct, c.typeOfPort(out), args...)

	case graph.OpSeparate:
		input := node.Inputs()[0]
		value := c.operand(input)
		size := c.in.Types.Of(input).Size()
		for ii, out := range node.Outputs() {
			if !c.g.Port(out).IsConnected() || ii >= size {
				continue
			}
			if size == 1 {
				c.bind(out, value)
				continue
			}
			c.define(out, spirv.OpCompositeExtract, c.typeOfPort(out), value, uint32(ii))
		}

	case graph.OpMathExpression:
		c.writeMathExpression(node)

	case graph.OpSample:
		c.writeSample(node)

	case graph.OpComputeField:
		if node == c.root {
			c.writeField(node)
		}

	case graph.OpPreviewOutput:
		color := node.Inputs()[0]
		c.store(c.outputs["color"], c.toFloat4(c.operand(color), c.in.Types.Of(color)))

	case graph.OpMaterialOutput:
		baseColor := c.g.Input(node, "base_color")
		c.store(c.outputs["base_color"], c.toFloat4(c.operand(baseColor), c.in.Types.Of(baseColor)))
		c.store(c.outputs["roughness"], c.operandNamed("roughness"))
		c.store(c.outputs["emission"], c.operandNamed("emission"))

	default:
		panic(unsupportedf(node, "no code generation rule for node kind %s", op))
	}
}

func (c *Context) store(pointer, value uint32) {
	c.b.Void(spirv.OpStore, pointer, value)
}

// opFunctions maps element-wise arithmetic node kinds to their function.
var opFunctions = map[graph.OpType]mathexpr.Function{
	graph.OpAdd:       mathexpr.FuncAdd,
	graph.OpSubtract:  mathexpr.FuncSubtract,
	graph.OpMultiply:  mathexpr.FuncMultiply,
	graph.OpDivide:    mathexpr.FuncDivide,
	graph.OpMin:       mathexpr.FuncMin,
	graph.OpMax:       mathexpr.FuncMax,
	graph.OpPower:     mathexpr.FuncPow,
	graph.OpNegate:    mathexpr.FuncNegate,
	graph.OpAbs:       mathexpr.FuncAbs,
	graph.OpFloor:     mathexpr.FuncFloor,
	graph.OpFract:     mathexpr.FuncFract,
	graph.OpSqrt:      mathexpr.FuncSqrt,
	graph.OpSin:       mathexpr.FuncSin,
	graph.OpCos:       mathexpr.FuncCos,
	graph.OpNormalize: mathexpr.FuncNormalize,
	graph.OpMix:       mathexpr.FuncMix,
}

func (c *Context) writeArithmetic(node *graph.Node) {
	fn := opFunctions[node.Op()]
	out := node.Outputs()[0]
	dt := c.in.Types.Of(out)
	if c.in.Options.FoldConstants && c.fold(node, fn, dt) {
		return
	}
	args := make([]uint32, len(node.Inputs()))
	for ii, input := range node.Inputs() {
		args[ii] = c.operand(input)
	}
	c.apply(c.resultID(out), fn, dt, args...)
}

// instruction selection of arithmetic functions: opcode (or GLSL.std.450 instruction) for
// floating point and integer operands. A zero entry means the combination is not supported.
type arithmeticRule struct {
	float, int         spirv.OpCode
	glslFloat, glslInt uint32
}

var arithmeticRules = map[mathexpr.Function]arithmeticRule{
	mathexpr.FuncAdd:       {float: spirv.OpFAdd, int: spirv.OpIAdd},
	mathexpr.FuncSubtract:  {float: spirv.OpFSub, int: spirv.OpISub},
	mathexpr.FuncMultiply:  {float: spirv.OpFMul, int: spirv.OpIMul},
	mathexpr.FuncDivide:    {float: spirv.OpFDiv, int: spirv.OpSDiv},
	mathexpr.FuncNegate:    {float: spirv.OpFNegate, int: spirv.OpSNegate},
	mathexpr.FuncAbs:       {glslFloat: spirv.GLSLFAbs, glslInt: spirv.GLSLSAbs},
	mathexpr.FuncMin:       {glslFloat: spirv.GLSLFMin, glslInt: spirv.GLSLSMin},
	mathexpr.FuncMax:       {glslFloat: spirv.GLSLFMax, glslInt: spirv.GLSLSMax},
	mathexpr.FuncFloor:     {glslFloat: spirv.GLSLFloor},
	mathexpr.FuncFract:     {glslFloat: spirv.GLSLFract},
	mathexpr.FuncSqrt:      {glslFloat: spirv.GLSLSqrt},
	mathexpr.FuncSin:       {glslFloat: spirv.GLSLSin},
	mathexpr.FuncCos:       {glslFloat: spirv.GLSLCos},
	mathexpr.FuncPow:       {glslFloat: spirv.GLSLPow},
	mathexpr.FuncMix:       {glslFloat: spirv.GLSLFMix},
	mathexpr.FuncNormalize: {glslFloat: spirv.GLSLNormalize},
}

// apply emits the arithmetic function fn over operands of type dt, with the given result id.
func (c *Context) apply(id uint32, fn mathexpr.Function, dt dtypes.DType, args ...uint32) {
	rule, found := arithmeticRules[fn]
	if !found {
		panic(unsupportedf(c.node, "no code generation rule for function %q", fn))
	}
	op, glsl := rule.float, rule.glslFloat
	if dt.IsInt() {
		op, glsl = rule.int, rule.glslInt
	}
	typ := c.typeOf(dt)
	switch {
	case op != 0:
		c.b.OpWithID(op, typ, id, args...)
	case glsl != 0:
		c.b.OpWithID(spirv.OpExtInst, typ, id, append([]uint32{c.glsl, glsl}, args...)...)
	default:
		panic(unsupportedf(c.node, "function %q is not defined for type %s", fn, dt))
	}
	c.origin(id)
}

var compareRules = map[graph.CompareOp][2]spirv.OpCode{
	graph.CompareLess:         {spirv.OpFOrdLessThan, spirv.OpSLessThan},
	graph.CompareLessEqual:    {spirv.OpFOrdLessThanEqual, spirv.OpSLessThanEqual},
	graph.CompareGreater:      {spirv.OpFOrdGreaterThan, spirv.OpSGreaterThan},
	graph.CompareGreaterEqual: {spirv.OpFOrdGreaterThanEqual, spirv.OpSGreaterThanEqual},
	graph.CompareEqual:        {spirv.OpFOrdEqual, spirv.OpIEqual},
	graph.CompareNotEqual:     {spirv.OpFOrdNotEqual, spirv.OpINotEqual},
}

func (c *Context) writeCompare(node *graph.Node) {
	p := node.Params().(graph.CompareParams)
	rule, found := compareRules[p.Op]
	if !found {
		panic(unsupportedf(node, "unknown comparison %s", p.Op))
	}
	op := rule[0]
	if c.in.Types.Of(node.Inputs()[0]).IsInt() {
		op = rule[1]
	}
	c.define(node.Outputs()[0], op, c.b.TypeBool(), c.operand(node.Inputs()[0]), c.operand(node.Inputs()[1]))
}

// writeConditional emits a structured selection: each arm's private nodes in their own block,
// and a phi at the merge block. Conditionals with a folded condition take the live arm's value.
func (c *Context) writeConditional(node *graph.Node) {
	out := node.Outputs()[0]
	var arms []graph.PortID
	for _, input := range node.Inputs() {
		if c.g.Port(input).Arm() >= 0 {
			arms = append(arms, input)
		}
	}
	if live, folded := c.in.Labels.FoldedArm(node.ID()); folded {
		c.bind(out, c.operand(arms[live]))
		return
	}
	if len(arms) != 2 {
		panic(unsupportedf(node, "conditionals with %d arms are not supported", len(arms)))
	}
	condition := c.operand(node.Inputs()[0])
	merge := c.b.AllocID()
	labels := []uint32{c.b.AllocID(), c.b.AllocID()}
	c.b.Void(spirv.OpSelectionMerge, merge, 0)
	c.b.Void(spirv.OpBranchConditional, condition, labels[0], labels[1])

	phi := make([]uint32, 0, 2*len(arms))
	for arm, input := range arms {
		c.label = labels[arm]
		c.b.Label(c.label)
		c.writeList(c.in.Region.ArmNodes(node.ID(), arm))
		c.node = node
		phi = append(phi, c.operand(input), c.label)
		c.b.Void(spirv.OpBranch, merge)
	}
	c.label = merge
	c.b.Label(merge)
	c.define(out, spirv.OpPhi, c.typeOfPort(out), phi...)
}

func (c *Context) writeSwizzle(node *graph.Node) {
	components := node.Params().(graph.SwizzleParams).Components()
	input, out := node.Inputs()[0], node.Outputs()[0]
	value := c.operand(input)
	typ := c.typeOfPort(out)
	inSize := c.in.Types.Of(input).Size()
	switch {
	case inSize == 1 && len(components) == 1:
		c.bind(out, value)
	case inSize == 1:
		args := make([]uint32, len(components))
		for ii := range args {
			args[ii] = value
		}
		c.define(out, spirv.OpCompositeConstruct, typ, args...)
	case len(components) == 1:
		c.define(out, spirv.OpCompositeExtract, typ, value, uint32(components[0]))
	default:
		args := []uint32{value, value}
		for _, component := range components {
			args = append(args, uint32(component))
		}
		c.define(out, spirv.OpVectorShuffle, typ, args...)
	}
}

func (c *Context) writeMathExpression(node *graph.Node) {
	p := node.Params().(graph.MathExpressionParams)
	expr, err := mathexpr.Parse(p.Expression, p.Inputs)
	if err != nil {
		panic(diag.WrapNode(diag.StructuralError, node.ID(), err))
	}
	out := node.Outputs()[0]
	dt := c.in.Types.Of(out)
	if expr.Kind != mathexpr.KindCall {
		c.bind(out, c.lowerExpr(expr, dt, 0))
		return
	}
	c.lowerExpr(expr, dt, c.resultID(out))
}

// lowerExpr emits the code of an expression of type dt. Calls use the given result id, or a
// new one if id is 0.
func (c *Context) lowerExpr(expr *mathexpr.Expr, dt dtypes.DType, id uint32) uint32 {
	switch expr.Kind {
	case mathexpr.KindNumber:
		return c.constant(dt, expr.Value)
	case mathexpr.KindVariable:
		return c.operandNamed(expr.Name)
	}
	args := make([]uint32, len(expr.Args))
	for ii, arg := range expr.Args {
		args[ii] = c.lowerExpr(arg, dt, 0)
	}
	if id == 0 {
		id = c.b.AllocID()
	}
	c.apply(id, expr.Func, dt, args...)
	return id
}

func (c *Context) writeSample(node *graph.Node) {
	fieldInput, position := node.Inputs()[0], node.Inputs()[1]
	producer, _ := c.g.Producer(fieldInput)
	field, found := c.fields[producer]
	if !found {
		panic(unsupportedf(node, "field input is not bound to a texture or compute field"))
	}
	var coordinate uint32
	switch {
	case c.g.Port(position).IsConnected():
		coordinate = c.operand(position)
	case !c.isFragment():
		coordinate = c.fieldCoordinate(field.dim)
	case field.dim == 2:
		coordinate = c.emit(spirv.OpLoad, c.typeOf(dtypes.Float2), c.inputs[locationTexCoord])
	default:
		coordinate = c.emit(spirv.OpLoad, c.typeOf(dtypes.Float3), c.inputs[locationPosition])
	}
	image := c.emit(spirv.OpLoad, field.imageType, field.image)
	sampler := c.emit(spirv.OpLoad, c.b.TypeSampler(), field.sampler)
	sampled := c.emit(spirv.OpSampledImage, c.b.TypeSampledImage(field.imageType), image, sampler)
	out := node.Outputs()[0]
	if c.isFragment() {
		c.define(out, spirv.OpImageSampleImplicitLod, c.typeOf(dtypes.Float4), sampled, coordinate)
		return
	}
	c.define(out, spirv.OpImageSampleExplicitLod, c.typeOf(dtypes.Float4), sampled, coordinate,
		spirv.ImageOperandsLod, c.zero())
}

// fieldCoordinate returns the normalized coordinate of the texel of the current compute
// invocation, (gid + 0.5) / extent, truncated to dim components.
func (c *Context) fieldCoordinate(dim int) uint32 {
	float3 := c.typeOf(dtypes.Float3)
	gid := c.emit(spirv.OpLoad, c.uintType(3), c.gid)
	texel := c.emit(spirv.OpConvertUToF, float3, gid)
	center := c.emit(spirv.OpFAdd, float3, texel, c.constant(dtypes.Float3, 0.5))
	extent := c.loadGlobal(globalsExtent)
	c.origin(extent)
	coordinate := c.emit(spirv.OpFDiv, float3, center, extent)
	if dim == 3 {
		return coordinate
	}
	return c.emit(spirv.OpVectorShuffle, c.typeOf(dtypes.Float2), coordinate, coordinate, 0, 1)
}

// toFloat4 expands a float value to a float4: scalars are replicated to rgb, missing
// components are 0 and alpha is 1.
func (c *Context) toFloat4(value uint32, dt dtypes.DType) uint32 {
	float4 := c.typeOf(dtypes.Float4)
	switch dt.Size() {
	case 1:
		return c.emit(spirv.OpCompositeConstruct, float4, value, value, value, c.one())
	case 2:
		return c.emit(spirv.OpCompositeConstruct, float4, value, c.zero(), c.one())
	case 3:
		return c.emit(spirv.OpCompositeConstruct, float4, value, c.one())
	}
	return value
}

// writeField writes the value of the current invocation's texel to the storage image.
func (c *Context) writeField(node *graph.Node) {
	value := node.Inputs()[0]
	texel := c.toFloat4(c.operand(value), c.in.Types.Of(value))
	image := c.emit(spirv.OpLoad, c.storage.imageType, c.storage.image)
	gid := c.emit(spirv.OpLoad, c.uintType(3), c.gid)
	coordinate := gid
	if c.storage.dim == 2 {
		coordinate = c.emit(spirv.OpVectorShuffle, c.uintType(2), gid, gid, 0, 1)
	}
	c.b.Void(spirv.OpImageWrite, image, coordinate, texel)
}
