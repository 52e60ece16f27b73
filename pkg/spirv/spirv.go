// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package spirv builds, parses and disassembles SPIR-V binary modules: the bytecode emitted by
// the shader graph compiler for each stage body.
//
// Only the subset of the instruction set used by the compiler is named here, but Parse accepts
// any well-formed module.
package spirv

import "fmt"

// MagicNumber is the first word of every SPIR-V module.
const MagicNumber = 0x07230203

// GeneratorID is written in the header's generator word: tool id 0 (unregistered), version 1.
const GeneratorID = 0x00000001

// Version of the SPIR-V specification a module conforms to.
type Version struct {
	Major, Minor uint8
}

// Version1_3 is the version emitted by the compiler.
var Version1_3 = Version{1, 3}

// Word returns the header encoding of the version.
func (v Version) Word() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

func versionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}

// OpCode of an instruction.
type OpCode uint16

const (
	OpNop                     OpCode = 0
	OpUndef                   OpCode = 1
	OpSource                  OpCode = 3
	OpName                    OpCode = 5
	OpMemberName              OpCode = 6
	OpString                  OpCode = 7
	OpExtension               OpCode = 10
	OpExtInstImport           OpCode = 11
	OpExtInst                 OpCode = 12
	OpMemoryModel             OpCode = 14
	OpEntryPoint              OpCode = 15
	OpExecutionMode           OpCode = 16
	OpCapability              OpCode = 17
	OpTypeVoid                OpCode = 19
	OpTypeBool                OpCode = 20
	OpTypeInt                 OpCode = 21
	OpTypeFloat               OpCode = 22
	OpTypeVector              OpCode = 23
	OpTypeMatrix              OpCode = 24
	OpTypeImage               OpCode = 25
	OpTypeSampler             OpCode = 26
	OpTypeSampledImage        OpCode = 27
	OpTypeArray               OpCode = 28
	OpTypeStruct              OpCode = 30
	OpTypePointer             OpCode = 32
	OpTypeFunction            OpCode = 33
	OpConstantTrue            OpCode = 41
	OpConstantFalse           OpCode = 42
	OpConstant                OpCode = 43
	OpConstantComposite       OpCode = 44
	OpConstantNull            OpCode = 46
	OpFunction                OpCode = 54
	OpFunctionParameter       OpCode = 55
	OpFunctionEnd             OpCode = 56
	OpVariable                OpCode = 59
	OpLoad                    OpCode = 61
	OpStore                   OpCode = 62
	OpAccessChain             OpCode = 65
	OpDecorate                OpCode = 71
	OpMemberDecorate          OpCode = 72
	OpVectorShuffle           OpCode = 79
	OpCompositeConstruct      OpCode = 80
	OpCompositeExtract        OpCode = 81
	OpSampledImage            OpCode = 86
	OpImageSampleImplicitLod  OpCode = 87
	OpImageSampleExplicitLod  OpCode = 88
	OpImageWrite              OpCode = 99
	OpConvertSToF             OpCode = 111
	OpConvertUToF             OpCode = 112
	OpFConvert                OpCode = 115
	OpSNegate                 OpCode = 126
	OpFNegate                 OpCode = 127
	OpIAdd                    OpCode = 128
	OpFAdd                    OpCode = 129
	OpISub                    OpCode = 130
	OpFSub                    OpCode = 131
	OpIMul                    OpCode = 132
	OpFMul                    OpCode = 133
	OpSDiv                    OpCode = 135
	OpFDiv                    OpCode = 136
	OpVectorTimesScalar       OpCode = 142
	OpMatrixTimesVector       OpCode = 145
	OpMatrixTimesMatrix       OpCode = 146
	OpDot                     OpCode = 148
	OpSelect                  OpCode = 169
	OpIEqual                  OpCode = 170
	OpINotEqual               OpCode = 171
	OpSGreaterThan            OpCode = 173
	OpSGreaterThanEqual       OpCode = 175
	OpSLessThan               OpCode = 177
	OpSLessThanEqual          OpCode = 179
	OpFOrdEqual               OpCode = 180
	OpFOrdNotEqual            OpCode = 182
	OpFOrdLessThan            OpCode = 184
	OpFOrdGreaterThan         OpCode = 186
	OpFOrdLessThanEqual       OpCode = 188
	OpFOrdGreaterThanEqual    OpCode = 190
	OpPhi                     OpCode = 245
	OpLoopMerge               OpCode = 246
	OpSelectionMerge          OpCode = 247
	OpLabel                   OpCode = 248
	OpBranch                  OpCode = 249
	OpBranchConditional       OpCode = 250
	OpKill                    OpCode = 252
	OpReturn                  OpCode = 253
	OpReturnValue             OpCode = 254
)

// opInfo describes the layout of an instruction's operands.
type opInfo struct {
	name       string
	resultType bool
	result     bool
}

var opInfos = map[OpCode]opInfo{
	OpNop:                    {"OpNop", false, false},
	OpUndef:                  {"OpUndef", true, true},
	OpSource:                 {"OpSource", false, false},
	OpName:                   {"OpName", false, false},
	OpMemberName:             {"OpMemberName", false, false},
	OpString:                 {"OpString", false, true},
	OpExtension:              {"OpExtension", false, false},
	OpExtInstImport:          {"OpExtInstImport", false, true},
	OpExtInst:                {"OpExtInst", true, true},
	OpMemoryModel:            {"OpMemoryModel", false, false},
	OpEntryPoint:             {"OpEntryPoint", false, false},
	OpExecutionMode:          {"OpExecutionMode", false, false},
	OpCapability:             {"OpCapability", false, false},
	OpTypeVoid:               {"OpTypeVoid", false, true},
	OpTypeBool:               {"OpTypeBool", false, true},
	OpTypeInt:                {"OpTypeInt", false, true},
	OpTypeFloat:              {"OpTypeFloat", false, true},
	OpTypeVector:             {"OpTypeVector", false, true},
	OpTypeMatrix:             {"OpTypeMatrix", false, true},
	OpTypeImage:              {"OpTypeImage", false, true},
	OpTypeSampler:            {"OpTypeSampler", false, true},
	OpTypeSampledImage:       {"OpTypeSampledImage", false, true},
	OpTypeArray:              {"OpTypeArray", false, true},
	OpTypeStruct:             {"OpTypeStruct", false, true},
	OpTypePointer:            {"OpTypePointer", false, true},
	OpTypeFunction:           {"OpTypeFunction", false, true},
	OpConstantTrue:           {"OpConstantTrue", true, true},
	OpConstantFalse:          {"OpConstantFalse", true, true},
	OpConstant:               {"OpConstant", true, true},
	OpConstantComposite:      {"OpConstantComposite", true, true},
	OpConstantNull:           {"OpConstantNull", true, true},
	OpFunction:               {"OpFunction", true, true},
	OpFunctionParameter:      {"OpFunctionParameter", true, true},
	OpFunctionEnd:            {"OpFunctionEnd", false, false},
	OpVariable:               {"OpVariable", true, true},
	OpLoad:                   {"OpLoad", true, true},
	OpStore:                  {"OpStore", false, false},
	OpAccessChain:            {"OpAccessChain", true, true},
	OpDecorate:               {"OpDecorate", false, false},
	OpMemberDecorate:         {"OpMemberDecorate", false, false},
	OpVectorShuffle:          {"OpVectorShuffle", true, true},
	OpCompositeConstruct:     {"OpCompositeConstruct", true, true},
	OpCompositeExtract:       {"OpCompositeExtract", true, true},
	OpSampledImage:           {"OpSampledImage", true, true},
	OpImageSampleImplicitLod: {"OpImageSampleImplicitLod", true, true},
	OpImageSampleExplicitLod: {"OpImageSampleExplicitLod", true, true},
	OpImageWrite:             {"OpImageWrite", false, false},
	OpConvertSToF:            {"OpConvertSToF", true, true},
	OpConvertUToF:            {"OpConvertUToF", true, true},
	OpFConvert:               {"OpFConvert", true, true},
	OpSNegate:                {"OpSNegate", true, true},
	OpFNegate:                {"OpFNegate", true, true},
	OpIAdd:                   {"OpIAdd", true, true},
	OpFAdd:                   {"OpFAdd", true, true},
	OpISub:                   {"OpISub", true, true},
	OpFSub:                   {"OpFSub", true, true},
	OpIMul:                   {"OpIMul", true, true},
	OpFMul:                   {"OpFMul", true, true},
	OpSDiv:                   {"OpSDiv", true, true},
	OpFDiv:                   {"OpFDiv", true, true},
	OpVectorTimesScalar:      {"OpVectorTimesScalar", true, true},
	OpMatrixTimesVector:      {"OpMatrixTimesVector", true, true},
	OpMatrixTimesMatrix:      {"OpMatrixTimesMatrix", true, true},
	OpDot:                    {"OpDot", true, true},
	OpSelect:                 {"OpSelect", true, true},
	OpIEqual:                 {"OpIEqual", true, true},
	OpINotEqual:              {"OpINotEqual", true, true},
	OpSGreaterThan:           {"OpSGreaterThan", true, true},
	OpSGreaterThanEqual:      {"OpSGreaterThanEqual", true, true},
	OpSLessThan:              {"OpSLessThan", true, true},
	OpSLessThanEqual:         {"OpSLessThanEqual", true, true},
	OpFOrdEqual:              {"OpFOrdEqual", true, true},
	OpFOrdNotEqual:           {"OpFOrdNotEqual", true, true},
	OpFOrdLessThan:           {"OpFOrdLessThan", true, true},
	OpFOrdGreaterThan:        {"OpFOrdGreaterThan", true, true},
	OpFOrdLessThanEqual:      {"OpFOrdLessThanEqual", true, true},
	OpFOrdGreaterThanEqual:   {"OpFOrdGreaterThanEqual", true, true},
	OpPhi:                    {"OpPhi", true, true},
	OpLoopMerge:              {"OpLoopMerge", false, false},
	OpSelectionMerge:         {"OpSelectionMerge", false, false},
	OpLabel:                  {"OpLabel", false, true},
	OpBranch:                 {"OpBranch", false, false},
	OpBranchConditional:      {"OpBranchConditional", false, false},
	OpKill:                   {"OpKill", false, false},
	OpReturn:                 {"OpReturn", false, false},
	OpReturnValue:            {"OpReturnValue", false, false},
}

func (op OpCode) String() string {
	if info, found := opInfos[op]; found {
		return info.name
	}
	return fmt.Sprintf("Op%d", uint16(op))
}

// IsKnown returns whether the opcode is one this package knows the operand layout of.
func (op OpCode) IsKnown() bool {
	_, found := opInfos[op]
	return found
}

// Capability declared by a module.
type Capability uint32

const (
	CapabilityShader    Capability = 1
	CapabilityFloat16   Capability = 9
	CapabilitySampled1D Capability = 43
)

// AddressingModel of OpMemoryModel.
type AddressingModel uint32

const AddressingLogical AddressingModel = 0

// MemoryModel of OpMemoryModel.
type MemoryModel uint32

const MemoryModelGLSL450 MemoryModel = 1

// ExecutionModel of an entry point.
type ExecutionModel uint32

const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

func (m ExecutionModel) String() string {
	switch m {
	case ExecutionModelVertex:
		return "vertex"
	case ExecutionModelFragment:
		return "fragment"
	case ExecutionModelGLCompute:
		return "compute"
	}
	return fmt.Sprintf("ExecutionModel(%d)", uint32(m))
}

// ExecutionMode of an entry point.
type ExecutionMode uint32

const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeLocalSize       ExecutionMode = 17
)

// StorageClass of pointers and variables.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassFunction        StorageClass = 7
)

// Decoration of an id or struct member.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationColMajor      Decoration = 5
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn variables, used with DecorationBuiltIn.
type BuiltIn uint32

const (
	BuiltInPosition           BuiltIn = 0
	BuiltInFragCoord          BuiltIn = 15
	BuiltInGlobalInvocationID BuiltIn = 28
)

// Dim of an image type.
type Dim uint32

const (
	Dim1D Dim = 0
	Dim2D Dim = 1
	Dim3D Dim = 2
)

// ImageFormat of storage images.
type ImageFormat uint32

const (
	ImageFormatUnknown ImageFormat = 0
	ImageFormatRgba32f ImageFormat = 1
)

// ImageOperands mask of image sampling instructions.
const ImageOperandsLod uint32 = 0x2

// GLSL.std.450 extended instruction set.
const (
	GLSLStd450 = "GLSL.std.450"

	GLSLFAbs      = 4
	GLSLSAbs      = 5
	GLSLFloor     = 8
	GLSLFract     = 10
	GLSLSin       = 13
	GLSLCos       = 14
	GLSLPow       = 26
	GLSLSqrt      = 31
	GLSLFMin      = 37
	GLSLSMin      = 39
	GLSLFMax      = 40
	GLSLSMax      = 42
	GLSLFMix      = 46
	GLSLLength    = 66
	GLSLNormalize = 69
)

var glslNames = map[uint32]string{
	GLSLFAbs: "FAbs", GLSLSAbs: "SAbs", GLSLFloor: "Floor", GLSLFract: "Fract", GLSLSin: "Sin", GLSLCos: "Cos",
	GLSLPow: "Pow", GLSLSqrt: "Sqrt", GLSLFMin: "FMin", GLSLSMin: "SMin", GLSLFMax: "FMax", GLSLSMax: "SMax",
	GLSLFMix: "FMix", GLSLLength: "Length", GLSLNormalize: "Normalize",
}

// GLSLName returns the name of a GLSL.std.450 instruction, or "" if unknown.
func GLSLName(instruction uint32) string { return glslNames[instruction] }
