// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spirv

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// Instruction is one decoded instruction: the opcode and its operand words (result type and
// result id included, when the opcode has them).
type Instruction struct {
	Opcode   OpCode
	Operands []uint32
}

// Encode returns the words of the instruction, starting with the word count and opcode word.
func (inst Instruction) Encode() []uint32 {
	wordCount := uint32(len(inst.Operands) + 1)
	words := make([]uint32, 0, wordCount)
	words = append(words, wordCount<<16|uint32(inst.Opcode))
	return append(words, inst.Operands...)
}

// ResultType returns the result type id, or 0 if the instruction has none.
func (inst Instruction) ResultType() uint32 {
	if info := opInfos[inst.Opcode]; info.resultType && len(inst.Operands) > 0 {
		return inst.Operands[0]
	}
	return 0
}

// Result returns the result id, or 0 if the instruction has none.
func (inst Instruction) Result() uint32 {
	info := opInfos[inst.Opcode]
	if !info.result {
		return 0
	}
	idx := 0
	if info.resultType {
		idx = 1
	}
	if idx >= len(inst.Operands) {
		return 0
	}
	return inst.Operands[idx]
}

// Args returns the operands after the result type and result id.
func (inst Instruction) Args() []uint32 {
	info := opInfos[inst.Opcode]
	skip := 0
	if info.resultType {
		skip++
	}
	if info.result {
		skip++
	}
	if skip > len(inst.Operands) {
		return nil
	}
	return inst.Operands[skip:]
}

// stringWords encodes a null-terminated UTF-8 string padded to a word boundary.
func stringWords(s string) []uint32 {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	words := make([]uint32, len(bytes)/4)
	for ii := range words {
		words[ii] = binary.LittleEndian.Uint32(bytes[ii*4:])
	}
	return words
}

// DecodeString decodes a literal string operand, and returns the number of words it used.
func DecodeString(words []uint32) (s string, numWords int) {
	var sb strings.Builder
	for ii, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String(), ii + 1
			}
			sb.WriteByte(c)
		}
	}
	return sb.String(), len(words)
}

// section of a module, in the order mandated by the logical layout.
type section int

const (
	sectionCapabilities section = iota
	sectionExtensions
	sectionExtInstImports
	sectionMemoryModel
	sectionEntryPoints
	sectionExecutionModes
	sectionDebug
	sectionAnnotations
	sectionTypes // Types, constants and global variables.
	sectionFunctions
	numSections
)

// Builder builds a SPIR-V module. Instructions are appended to the section their opcode
// belongs to, and the sections are concatenated in the logical layout order by Words.
//
// Types and constants are deduplicated: asking twice for the same type returns the same id.
type Builder struct {
	version   Version
	generator uint32
	nextID    uint32
	sections  [numSections][]Instruction
	cache     map[string]uint32
}

// NewBuilder creates a builder for an empty module.
func NewBuilder(version Version) *Builder {
	return &Builder{
		version:   version,
		generator: GeneratorID,
		nextID:    1,
		cache:     make(map[string]uint32),
	}
}

// AllocID reserves a new result id.
func (b *Builder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound is the current id bound: all ids used are lower than it.
func (b *Builder) Bound() uint32 { return b.nextID }

func (b *Builder) add(s section, op OpCode, operands ...uint32) {
	b.sections[s] = append(b.sections[s], Instruction{Opcode: op, Operands: operands})
}

// cached returns the id of an already declared type or constant, or declares it with a new id.
// The new id is inserted at position resultIdx of the operands.
func (b *Builder) cached(op OpCode, resultIdx int, operands ...uint32) uint32 {
	key := fmt.Sprint(op, operands)
	if id, found := b.cache[key]; found {
		return id
	}
	id := b.AllocID()
	words := make([]uint32, 0, len(operands)+1)
	words = append(words, operands[:resultIdx]...)
	words = append(words, id)
	words = append(words, operands[resultIdx:]...)
	b.add(sectionTypes, op, words...)
	b.cache[key] = id
	return id
}

// Capability declares a capability, once.
func (b *Builder) Capability(c Capability) {
	for _, inst := range b.sections[sectionCapabilities] {
		if inst.Operands[0] == uint32(c) {
			return
		}
	}
	b.add(sectionCapabilities, OpCapability, uint32(c))
}

// Extension declares an extension.
func (b *Builder) Extension(name string) {
	b.add(sectionExtensions, OpExtension, stringWords(name)...)
}

// ExtInstImport imports an extended instruction set, once, and returns its id.
func (b *Builder) ExtInstImport(name string) uint32 {
	key := "import:" + name
	if id, found := b.cache[key]; found {
		return id
	}
	id := b.AllocID()
	b.add(sectionExtInstImports, OpExtInstImport, append([]uint32{id}, stringWords(name)...)...)
	b.cache[key] = id
	return id
}

// MemoryModel sets the module's single memory model declaration.
func (b *Builder) MemoryModel(addressing AddressingModel, memory MemoryModel) {
	b.sections[sectionMemoryModel] = []Instruction{{Opcode: OpMemoryModel, Operands: []uint32{uint32(addressing), uint32(memory)}}}
}

// EntryPoint declares an entry point and the global variables in its interface.
func (b *Builder) EntryPoint(model ExecutionModel, function uint32, name string, interfaces ...uint32) {
	operands := []uint32{uint32(model), function}
	operands = append(operands, stringWords(name)...)
	operands = append(operands, interfaces...)
	b.add(sectionEntryPoints, OpEntryPoint, operands...)
}

// ExecutionMode declares an execution mode of an entry point.
func (b *Builder) ExecutionMode(function uint32, mode ExecutionMode, params ...uint32) {
	b.add(sectionExecutionModes, OpExecutionMode, append([]uint32{function, uint32(mode)}, params...)...)
}

// Name attaches a debug name to an id.
func (b *Builder) Name(id uint32, name string) {
	b.add(sectionDebug, OpName, append([]uint32{id}, stringWords(name)...)...)
}

// MemberName attaches a debug name to a struct member.
func (b *Builder) MemberName(structID, member uint32, name string) {
	b.add(sectionDebug, OpMemberName, append([]uint32{structID, member}, stringWords(name)...)...)
}

// Decorate adds a decoration to an id.
func (b *Builder) Decorate(id uint32, decoration Decoration, params ...uint32) {
	b.add(sectionAnnotations, OpDecorate, append([]uint32{id, uint32(decoration)}, params...)...)
}

// MemberDecorate adds a decoration to a struct member.
func (b *Builder) MemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	b.add(sectionAnnotations, OpMemberDecorate, append([]uint32{structID, member, uint32(decoration)}, params...)...)
}

// TypeVoid returns the void type.
func (b *Builder) TypeVoid() uint32 { return b.cached(OpTypeVoid, 0) }

// TypeBool returns the boolean type.
func (b *Builder) TypeBool() uint32 { return b.cached(OpTypeBool, 0) }

// TypeInt returns an integer type of the given width.
func (b *Builder) TypeInt(width uint32, signed bool) uint32 {
	var signedness uint32
	if signed {
		signedness = 1
	}
	return b.cached(OpTypeInt, 0, width, signedness)
}

// TypeFloat returns a floating point type of the given width.
func (b *Builder) TypeFloat(width uint32) uint32 { return b.cached(OpTypeFloat, 0, width) }

// TypeVector returns a vector type.
func (b *Builder) TypeVector(component, count uint32) uint32 {
	return b.cached(OpTypeVector, 0, component, count)
}

// TypeMatrix returns a matrix type of the given column type.
func (b *Builder) TypeMatrix(column, columns uint32) uint32 {
	return b.cached(OpTypeMatrix, 0, column, columns)
}

// TypeImage returns an image type. sampled is 1 for images used with a sampler and 2 for
// storage images.
func (b *Builder) TypeImage(sampledType uint32, dim Dim, sampled uint32, format ImageFormat) uint32 {
	// Operands: sampled type, dim, depth, arrayed, multisampled, sampled, format.
	return b.cached(OpTypeImage, 0, sampledType, uint32(dim), 0, 0, 0, sampled, uint32(format))
}

// TypeSampler returns the sampler type.
func (b *Builder) TypeSampler() uint32 { return b.cached(OpTypeSampler, 0) }

// TypeSampledImage returns the combined image-sampler type of an image type.
func (b *Builder) TypeSampledImage(image uint32) uint32 {
	return b.cached(OpTypeSampledImage, 0, image)
}

// TypeStruct declares a new struct type. Structs are never deduplicated, since they are
// decorated individually.
func (b *Builder) TypeStruct(members ...uint32) uint32 {
	id := b.AllocID()
	b.add(sectionTypes, OpTypeStruct, append([]uint32{id}, members...)...)
	return id
}

// TypePointer returns a pointer type.
func (b *Builder) TypePointer(storage StorageClass, pointee uint32) uint32 {
	return b.cached(OpTypePointer, 0, uint32(storage), pointee)
}

// TypeFunction returns a function type.
func (b *Builder) TypeFunction(result uint32, params ...uint32) uint32 {
	return b.cached(OpTypeFunction, 0, append([]uint32{result}, params...)...)
}

// Constant returns a scalar constant with the given literal words.
func (b *Builder) Constant(typ uint32, literal ...uint32) uint32 {
	return b.cached(OpConstant, 1, append([]uint32{typ}, literal...)...)
}

// ConstantFloat32 returns a 32 bits float constant.
func (b *Builder) ConstantFloat32(typ uint32, value float32) uint32 {
	return b.Constant(typ, math.Float32bits(value))
}

// ConstantFloat16 returns a 16 bits float constant, stored in the low bits of the literal word.
func (b *Builder) ConstantFloat16(typ uint32, value float32) uint32 {
	return b.Constant(typ, uint32(float16.Fromfloat32(value).Bits()))
}

// ConstantInt32 returns a 32 bits signed integer constant.
func (b *Builder) ConstantInt32(typ uint32, value int32) uint32 {
	return b.Constant(typ, uint32(value))
}

// ConstantBool returns OpConstantTrue or OpConstantFalse.
func (b *Builder) ConstantBool(typ uint32, value bool) uint32 {
	if value {
		return b.cached(OpConstantTrue, 1, typ)
	}
	return b.cached(OpConstantFalse, 1, typ)
}

// ConstantComposite returns a composite constant.
func (b *Builder) ConstantComposite(typ uint32, constituents ...uint32) uint32 {
	return b.cached(OpConstantComposite, 1, append([]uint32{typ}, constituents...)...)
}

// ConstantNull returns the zero value of the type.
func (b *Builder) ConstantNull(typ uint32) uint32 {
	return b.cached(OpConstantNull, 1, typ)
}

// GlobalVariable declares a module scope variable. pointerType must be a pointer type of the
// same storage class.
func (b *Builder) GlobalVariable(pointerType uint32, storage StorageClass) uint32 {
	id := b.AllocID()
	b.add(sectionTypes, OpVariable, pointerType, id, uint32(storage))
	return id
}

// Function starts a function definition with the given (reserved) id.
func (b *Builder) Function(id, resultType, functionType uint32) {
	b.add(sectionFunctions, OpFunction, resultType, id, 0, functionType)
}

// FunctionEnd ends the current function definition.
func (b *Builder) FunctionEnd() { b.add(sectionFunctions, OpFunctionEnd) }

// Label starts a block with the given (reserved) label id.
func (b *Builder) Label(id uint32) { b.add(sectionFunctions, OpLabel, id) }

// Op emits a function body instruction with a result, and returns the new result id.
func (b *Builder) Op(op OpCode, resultType uint32, args ...uint32) uint32 {
	id := b.AllocID()
	b.OpWithID(op, resultType, id, args...)
	return id
}

// OpWithID emits a function body instruction with a previously reserved result id.
func (b *Builder) OpWithID(op OpCode, resultType, id uint32, args ...uint32) {
	b.add(sectionFunctions, op, append([]uint32{resultType, id}, args...)...)
}

// Void emits a function body instruction without result.
func (b *Builder) Void(op OpCode, args ...uint32) {
	b.add(sectionFunctions, op, args...)
}

// ExtInst emits an extended instruction.
func (b *Builder) ExtInst(resultType, set, instruction uint32, args ...uint32) uint32 {
	return b.Op(OpExtInst, resultType, append([]uint32{set, instruction}, args...)...)
}

// Words serializes the module: the header followed by all sections in layout order.
func (b *Builder) Words() []uint32 {
	words := []uint32{MagicNumber, b.version.Word(), b.generator, b.nextID, 0}
	for _, instructions := range b.sections {
		for _, inst := range instructions {
			words = append(words, inst.Encode()...)
		}
	}
	return words
}

// Bytes serializes the module as a little-endian byte stream.
func (b *Builder) Bytes() []byte {
	return WordsToBytes(b.Words())
}

// WordsToBytes converts words to a little-endian byte stream.
func WordsToBytes(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for ii, w := range words {
		binary.LittleEndian.PutUint32(buf[4*ii:], w)
	}
	return buf
}
