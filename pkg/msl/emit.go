// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package msl

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/shadergraph/pkg/spirv"
)

// emitter writes the MSL source of a loaded and reflected module.
type emitter struct {
	*translator
	sb     strings.Builder
	indent int

	exprs      map[uint32]string // Expressions of values and pointers.
	valueTypes map[uint32]uint32 // Types of values.
	pointees   map[uint32]uint32 // Pointee types of pointers.
	packed     map[uint32]bool   // Pointers to packed_float3 members.
	sampled    map[uint32][2]string
	visited    map[uint32]bool

	hasInputs, hasOutputs bool
}

var binaryOperators = map[spirv.OpCode]string{
	spirv.OpFAdd: "+", spirv.OpIAdd: "+",
	spirv.OpFSub: "-", spirv.OpISub: "-",
	spirv.OpFMul: "*", spirv.OpIMul: "*", spirv.OpVectorTimesScalar: "*",
	spirv.OpMatrixTimesVector: "*", spirv.OpMatrixTimesMatrix: "*",
	spirv.OpFDiv: "/", spirv.OpSDiv: "/",
	spirv.OpFOrdEqual: "==", spirv.OpIEqual: "==",
	spirv.OpFOrdNotEqual: "!=", spirv.OpINotEqual: "!=",
	spirv.OpFOrdLessThan: "<", spirv.OpSLessThan: "<",
	spirv.OpFOrdLessThanEqual: "<=", spirv.OpSLessThanEqual: "<=",
	spirv.OpFOrdGreaterThan: ">", spirv.OpSGreaterThan: ">",
	spirv.OpFOrdGreaterThanEqual: ">=", spirv.OpSGreaterThanEqual: ">=",
}

var glslFunctions = map[uint32]string{
	spirv.GLSLFAbs: "abs", spirv.GLSLSAbs: "abs", spirv.GLSLFloor: "floor", spirv.GLSLFract: "fract",
	spirv.GLSLSin: "sin", spirv.GLSLCos: "cos", spirv.GLSLPow: "pow", spirv.GLSLSqrt: "sqrt",
	spirv.GLSLFMin: "fmin", spirv.GLSLSMin: "min", spirv.GLSLFMax: "fmax", spirv.GLSLSMax: "max",
	spirv.GLSLFMix: "mix", spirv.GLSLLength: "length", spirv.GLSLNormalize: "normalize",
}

// scalarGLSLFunctions replace the vector-only functions when applied to scalars.
var scalarGLSLFunctions = map[uint32]string{
	spirv.GLSLLength:    "abs",
	spirv.GLSLNormalize: "sign",
}

const swizzleLetters = "xyzw"

func (t *translator) emit() string {
	e := &emitter{
		translator: t,
		exprs:      make(map[uint32]string),
		valueTypes: make(map[uint32]uint32),
		pointees:   make(map[uint32]uint32),
		packed:     make(map[uint32]bool),
		sampled:    make(map[uint32][2]string),
		visited:    make(map[uint32]bool),
	}
	for _, v := range t.variables {
		e.pointees[v.id] = t.typeOf(v.pointer).element
	}
	e.line("#include <metal_stdlib>")
	e.line("#include <simd/simd.h>")
	e.line("")
	e.line("using namespace metal;")
	e.line("")
	e.blockStructs()
	e.stageStructs()
	e.entryPoint()
	return e.sb.String()
}

func (e *emitter) line(format string, args ...any) {
	if format == "" {
		e.sb.WriteByte('\n')
		return
	}
	e.sb.WriteString(strings.Repeat("    ", e.indent))
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

func (e *emitter) blockStructs() {
	for _, b := range e.bindingsOf(UniformBuffer) {
		e.line("struct %s", b.Format)
		e.line("{")
		for _, member := range b.Members {
			e.line("    %s %s;", member.Type, member.Name)
		}
		e.line("};")
		e.line("")
	}
}

// stageStructs declares main0_in and main0_out with the stage inputs and outputs.
func (e *emitter) stageStructs() {
	var inputs, outputs []string
	stageBindings := append(e.bindingsOf(StageOutput), e.bindingsOf(StageInput)...)
	for _, b := range stageBindings {
		switch {
		case b.Class == StageInput && b.BuiltIn == "thread_position_in_grid":
			e.exprs[b.Variable] = b.Name
		case b.Class == StageInput:
			attribute := fmt.Sprintf("user(locn%d)", b.Index)
			switch {
			case b.BuiltIn != "":
				attribute = b.BuiltIn
			case e.model == spirv.ExecutionModelVertex:
				attribute = fmt.Sprintf("attribute(%d)", b.Index)
			}
			inputs = append(inputs, fmt.Sprintf("%s %s [[%s]];", b.Format, b.Name, attribute))
			e.exprs[b.Variable] = "in." + b.Name
		case b.Class == StageOutput:
			attribute := fmt.Sprintf("user(locn%d)", b.Index)
			switch {
			case b.BuiltIn != "":
				attribute = b.BuiltIn
			case e.model == spirv.ExecutionModelFragment:
				attribute = fmt.Sprintf("color(%d)", b.Index)
			}
			outputs = append(outputs, fmt.Sprintf("%s %s [[%s]];", b.Format, b.Name, attribute))
			e.exprs[b.Variable] = "out." + b.Name
		}
	}
	for _, s := range []struct {
		name    string
		members []string
	}{{"main0_out", outputs}, {"main0_in", inputs}} {
		if len(s.members) == 0 {
			continue
		}
		e.line("struct %s", s.name)
		e.line("{")
		for _, member := range s.members {
			e.line("    %s", member)
		}
		e.line("};")
		e.line("")
	}
	e.hasInputs, e.hasOutputs = len(inputs) > 0, len(outputs) > 0
}

func (e *emitter) entryPoint() {
	var params []string
	if e.hasInputs {
		params = append(params, "main0_in in [[stage_in]]")
	}
	for _, b := range e.bindingsOf(UniformBuffer) {
		params = append(params, fmt.Sprintf("constant %s& %s [[buffer(%d)]]", b.Format, b.Name, b.Index))
		e.exprs[b.Variable] = b.Name
	}
	for _, b := range e.textures() {
		params = append(params, fmt.Sprintf("%s %s [[texture(%d)]]", e.typeName(e.pointees[b.Variable]), b.Name, b.Index))
		e.exprs[b.Variable] = b.Name
	}
	for _, b := range e.bindingsOf(Sampler) {
		params = append(params, fmt.Sprintf("sampler %s [[sampler(%d)]]", b.Name, b.Index))
		e.exprs[b.Variable] = b.Name
	}
	for _, b := range e.bindingsOf(StageInput) {
		if b.BuiltIn == "thread_position_in_grid" {
			params = append(params, fmt.Sprintf("%s %s [[%s]]", b.Format, b.Name, b.BuiltIn))
		}
	}

	qualifier := map[spirv.ExecutionModel]string{
		spirv.ExecutionModelVertex:    "vertex",
		spirv.ExecutionModelFragment:  "fragment",
		spirv.ExecutionModelGLCompute: "kernel",
	}[e.model]
	if qualifier == "" {
		failf(e.entry, "unsupported execution model %s", e.model)
	}
	result := "void"
	if e.hasOutputs {
		result = "main0_out"
	}
	e.line("%s %s %s(%s)", qualifier, result, EntryPoint, strings.Join(params, ", "))
	e.line("{")
	e.indent++
	if e.hasOutputs {
		e.line("main0_out out = {};")
	}
	for _, label := range e.order {
		for _, phi := range e.blocks[label].phis {
			name := fmt.Sprintf("_%d", phi.Result())
			e.line("%s %s;", e.typeName(phi.ResultType()), name)
			e.exprs[phi.Result()] = name
			e.valueTypes[phi.Result()] = phi.ResultType()
		}
	}
	e.emitFrom(e.first, 0)
	e.indent--
	e.line("}")
}

// textures returns the sampled and storage images in Metal index order.
func (e *emitter) textures() []Binding {
	var result []Binding
	for _, b := range e.bindings {
		if b.Class.argumentTable() == "texture" {
			result = append(result, b)
		}
	}
	slices.SortFunc(result, func(a, b Binding) int { return cmp.Compare(a.Index, b.Index) })
	return result
}

// emitFrom emits the blocks starting at label, following the structured control flow, until
// the block until is reached.
func (e *emitter) emitFrom(label, until uint32) {
	for label != until {
		b, found := e.blocks[label]
		if !found {
			failf(label, "branch to undefined block")
		}
		if e.visited[label] {
			failf(label, "unstructured control flow: block reached twice")
		}
		e.visited[label] = true
		for _, inst := range b.instructions {
			e.instruction(inst)
		}
		term := b.terminator
		switch term.Opcode {
		case spirv.OpReturn:
			if e.hasOutputs {
				e.line("return out;")
			} else {
				e.line("return;")
			}
			return
		case spirv.OpBranch:
			target := term.Operands[0]
			e.assignPhis(label, target)
			label = target
		case spirv.OpBranchConditional:
			if b.merge == 0 {
				failf(label, "conditional branch without a selection merge")
			}
			e.line("if (%s)", e.value(term.Operands[0]))
			e.arm(label, term.Operands[1], b.merge)
			e.line("else")
			e.arm(label, term.Operands[2], b.merge)
			label = b.merge
		default:
			failf(label, "unsupported block terminator %s", term.Opcode)
		}
	}
}

func (e *emitter) arm(from, target, merge uint32) {
	e.line("{")
	e.indent++
	if target == merge {
		e.assignPhis(from, merge)
	} else {
		e.emitFrom(target, merge)
	}
	e.indent--
	e.line("}")
}

// assignPhis assigns the phi variables of target with the values coming from block from.
func (e *emitter) assignPhis(from, target uint32) {
	b, found := e.blocks[target]
	if !found {
		return
	}
	for _, phi := range b.phis {
		args := phi.Args()
		for ii := 0; ii+1 < len(args); ii += 2 {
			if args[ii+1] == from {
				e.line("%s = %s;", e.exprs[phi.Result()], e.value(args[ii]))
			}
		}
	}
}

// value returns the expression of an id.
func (e *emitter) value(id uint32) string {
	if expr, found := e.exprs[id]; found {
		return expr
	}
	if _, found := e.constants[id]; found {
		return e.literal(id)
	}
	failf(id, "use of undefined id")
	return ""
}

func (e *emitter) valueType(id uint32) uint32 {
	if typ, found := e.valueTypes[id]; found {
		return typ
	}
	if c, found := e.constants[id]; found {
		return c.typ
	}
	failf(id, "type of id is unknown")
	return 0
}

func (e *emitter) isScalar(id uint32) bool {
	kind := e.typeOf(e.valueType(id)).kind
	return kind == kindFloat || kind == kindInt || kind == kindBool
}

// declare assigns the expression of an instruction to a new local.
func (e *emitter) declare(inst spirv.Instruction, expr string) {
	id := inst.Result()
	name := fmt.Sprintf("_%d", id)
	e.line("%s %s = %s;", e.typeName(inst.ResultType()), name, expr)
	e.exprs[id] = name
	e.valueTypes[id] = inst.ResultType()
}

func (e *emitter) values(ids []uint32) string {
	parts := make([]string, len(ids))
	for ii, id := range ids {
		parts[ii] = e.value(id)
	}
	return strings.Join(parts, ", ")
}

// instruction emits one non-terminator instruction.
func (e *emitter) instruction(inst spirv.Instruction) {
	id := inst.Result()
	args := inst.Args()
	if op, found := binaryOperators[inst.Opcode]; found {
		e.declare(inst, fmt.Sprintf("%s %s %s", e.value(args[0]), op, e.value(args[1])))
		return
	}
	switch inst.Opcode {
	case spirv.OpLoad:
		switch e.typeOf(inst.ResultType()).kind {
		case kindImage, kindSampler, kindSampledImage:
			e.exprs[id] = e.value(args[0])
			return
		}
		expr := e.value(args[0])
		if e.packed[args[0]] {
			expr = "float3(" + expr + ")"
		}
		e.declare(inst, expr)

	case spirv.OpStore:
		e.line("%s = %s;", e.value(args[0]), e.value(args[1]))

	case spirv.OpAccessChain:
		e.accessChain(inst)

	case spirv.OpFNegate, spirv.OpSNegate:
		e.declare(inst, "-"+e.value(args[0]))

	case spirv.OpConvertUToF, spirv.OpConvertSToF, spirv.OpFConvert, spirv.OpCompositeConstruct:
		e.declare(inst, e.typeName(inst.ResultType())+"("+e.values(args)+")")

	case spirv.OpCompositeExtract:
		expr := e.value(args[0])
		typ := e.valueType(args[0])
		for _, index := range args[1:] {
			info := e.typeOf(typ)
			switch info.kind {
			case kindVector:
				expr += "." + string(swizzleLetters[index])
			case kindMatrix:
				expr += fmt.Sprintf("[%d]", index)
			case kindStruct:
				expr += "." + e.memberName(typ, int(index))
				typ = info.members[index]
				continue
			default:
				failf(id, "composite extract from a non composite")
			}
			typ = info.element
		}
		e.declare(inst, expr)

	case spirv.OpVectorShuffle:
		e.declare(inst, e.shuffle(inst))

	case spirv.OpDot:
		e.declare(inst, fmt.Sprintf("dot(%s, %s)", e.value(args[0]), e.value(args[1])))

	case spirv.OpSelect:
		e.declare(inst, fmt.Sprintf("%s ? %s : %s", e.value(args[0]), e.value(args[1]), e.value(args[2])))

	case spirv.OpExtInst:
		if _, found := e.imports[args[0]]; !found {
			failf(id, "unknown extended instruction set")
		}
		fn, found := glslFunctions[args[1]]
		if !found {
			failf(id, "unsupported GLSL.std.450 instruction %d", args[1])
		}
		if scalarFn, found := scalarGLSLFunctions[args[1]]; found && e.isScalar(args[2]) {
			fn = scalarFn
		}
		e.declare(inst, fn+"("+e.values(args[2:])+")")

	case spirv.OpSampledImage:
		e.sampled[id] = [2]string{e.value(args[0]), e.value(args[1])}

	case spirv.OpImageSampleImplicitLod, spirv.OpImageSampleExplicitLod:
		pair, found := e.sampled[args[0]]
		if !found {
			failf(id, "sampling from an unknown sampled image")
		}
		expr := fmt.Sprintf("%s.sample(%s, %s", pair[0], pair[1], e.value(args[1]))
		if inst.Opcode == spirv.OpImageSampleExplicitLod {
			if len(args) < 4 || args[2]&spirv.ImageOperandsLod == 0 {
				failf(id, "explicit lod sampling without a lod operand")
			}
			expr += fmt.Sprintf(", level(%s)", e.value(args[3]))
		}
		e.declare(inst, expr+")")

	case spirv.OpImageWrite:
		e.line("%s.write(%s, %s);", e.value(args[0]), e.value(args[2]), e.value(args[1]))

	default:
		failf(id, "unsupported instruction %s", inst.Opcode)
	}
}

func (e *emitter) accessChain(inst spirv.Instruction) {
	args := inst.Args()
	base := args[0]
	expr := e.value(base)
	typ, found := e.pointees[base]
	if !found {
		failf(inst.Result(), "access chain base is not a pointer")
	}
	packed := false
	for _, index := range args[1:] {
		info := e.typeOf(typ)
		switch info.kind {
		case kindStruct:
			member := int(e.constantValue(index))
			if member >= len(info.members) {
				failf(inst.Result(), "struct member %d out of range", member)
			}
			expr += "." + e.memberName(typ, member)
			packed = e.isPackedFloat3(typ, member)
			typ = info.members[member]
		case kindVector, kindMatrix:
			expr += "[" + e.value(index) + "]"
			packed = false
			typ = info.element
		default:
			failf(inst.Result(), "access chain into a non composite")
		}
	}
	id := inst.Result()
	e.exprs[id] = expr
	e.pointees[id] = typ
	e.packed[id] = packed
}

func (e *emitter) shuffle(inst spirv.Instruction) string {
	args := inst.Args()
	v1, v2 := args[0], args[1]
	size1 := e.typeOf(e.valueType(v1)).count
	components := args[2:]
	sameVector := v1 == v2
	allFirst := true
	for _, c := range components {
		if c >= size1 && !sameVector {
			allFirst = false
		}
	}
	if allFirst {
		var sb strings.Builder
		for _, c := range components {
			sb.WriteByte(swizzleLetters[c%size1])
		}
		return e.value(v1) + "." + sb.String()
	}
	parts := make([]string, len(components))
	for ii, c := range components {
		switch {
		case c == 0xFFFFFFFF:
			parts[ii] = "0"
		case c < size1:
			parts[ii] = e.value(v1) + "." + string(swizzleLetters[c])
		default:
			parts[ii] = e.value(v2) + "." + string(swizzleLetters[c-size1])
		}
	}
	return e.typeName(inst.ResultType()) + "(" + strings.Join(parts, ", ") + ")"
}
