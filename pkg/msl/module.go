// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package msl

import (
	"github.com/gomlx/shadergraph/pkg/spirv"
)

type typeKind int

const (
	kindVoid typeKind = iota
	kindBool
	kindInt
	kindFloat
	kindVector
	kindMatrix
	kindImage
	kindSampler
	kindSampledImage
	kindStruct
	kindPointer
	kindFunction
)

// typeInfo of a SPIR-V type declaration.
type typeInfo struct {
	kind   typeKind
	width  uint32
	signed bool

	// element is the component type of vectors, column type of matrices, pointee of pointers,
	// image type of sampled images and sampled type of images.
	element uint32
	count   uint32

	dim     spirv.Dim
	sampled uint32
	format  spirv.ImageFormat

	members []uint32
	storage spirv.StorageClass
}

type constant struct {
	op       spirv.OpCode
	typ      uint32
	operands []uint32 // Literal words, or constituents of composites.
}

type variable struct {
	id, pointer uint32
	storage     spirv.StorageClass
}

type decorations map[spirv.Decoration][]uint32

// block is a basic block of the entry point function.
type block struct {
	label        uint32
	instructions []spirv.Instruction
	merge        uint32 // Merge block of a selection header, or 0.
	terminator   spirv.Instruction
	phis         []spirv.Instruction
}

// translator holds the tables of one module, and the state of its translation.
type translator struct {
	m *spirv.Module

	names             map[uint32]string
	memberNames       map[uint32]map[uint32]string
	decorations       map[uint32]decorations
	memberDecorations map[uint32]map[uint32]decorations
	types             map[uint32]*typeInfo
	constants         map[uint32]constant
	variables         []variable
	imports           map[uint32]string

	model     spirv.ExecutionModel
	entry     uint32
	hasEntry  bool
	localSize [3]uint32

	function uint32
	blocks   map[uint32]*block
	order    []uint32 // Labels in module order.
	first    uint32   // Entry block.

	bindings    []Binding
	identifiers map[uint32]string
	used        map[string]bool
}

func newTranslator(m *spirv.Module) *translator {
	return &translator{
		m:                 m,
		names:             make(map[uint32]string),
		memberNames:       make(map[uint32]map[uint32]string),
		decorations:       make(map[uint32]decorations),
		memberDecorations: make(map[uint32]map[uint32]decorations),
		types:             make(map[uint32]*typeInfo),
		constants:         make(map[uint32]constant),
		imports:           make(map[uint32]string),
		blocks:            make(map[uint32]*block),
		identifiers:       make(map[uint32]string),
		used:              make(map[string]bool),
	}
}

// load builds the tables of the module.
func (t *translator) load() {
	var current *block
	inFunction := false
	for _, inst := range t.m.Instructions {
		ops := inst.Operands
		if inFunction {
			current = t.loadFunctionInstruction(inst, current)
			if inst.Opcode == spirv.OpFunctionEnd {
				inFunction = false
			}
			continue
		}
		switch inst.Opcode {
		case spirv.OpCapability, spirv.OpMemoryModel, spirv.OpSource, spirv.OpExtension:
			// Nothing to translate.

		case spirv.OpExtInstImport:
			name, _ := spirv.DecodeString(ops[1:])
			if name != spirv.GLSLStd450 {
				failf(ops[0], "unsupported extended instruction set %q", name)
			}
			t.imports[ops[0]] = name

		case spirv.OpEntryPoint:
			if t.hasEntry {
				failf(ops[1], "modules with more than one entry point are not supported")
			}
			t.hasEntry = true
			t.model = spirv.ExecutionModel(ops[0])
			t.entry = ops[1]

		case spirv.OpExecutionMode:
			if spirv.ExecutionMode(ops[1]) == spirv.ExecutionModeLocalSize && len(ops) >= 5 {
				copy(t.localSize[:], ops[2:5])
			}

		case spirv.OpName:
			t.names[ops[0]], _ = spirv.DecodeString(ops[1:])

		case spirv.OpMemberName:
			if t.memberNames[ops[0]] == nil {
				t.memberNames[ops[0]] = make(map[uint32]string)
			}
			t.memberNames[ops[0]][ops[1]], _ = spirv.DecodeString(ops[2:])

		case spirv.OpDecorate:
			if t.decorations[ops[0]] == nil {
				t.decorations[ops[0]] = make(decorations)
			}
			t.decorations[ops[0]][spirv.Decoration(ops[1])] = ops[2:]

		case spirv.OpMemberDecorate:
			members := t.memberDecorations[ops[0]]
			if members == nil {
				members = make(map[uint32]decorations)
				t.memberDecorations[ops[0]] = members
			}
			if members[ops[1]] == nil {
				members[ops[1]] = make(decorations)
			}
			members[ops[1]][spirv.Decoration(ops[2])] = ops[3:]

		case spirv.OpTypeVoid:
			t.types[ops[0]] = &typeInfo{kind: kindVoid}
		case spirv.OpTypeBool:
			t.types[ops[0]] = &typeInfo{kind: kindBool}
		case spirv.OpTypeInt:
			t.types[ops[0]] = &typeInfo{kind: kindInt, width: ops[1], signed: ops[2] != 0}
		case spirv.OpTypeFloat:
			t.types[ops[0]] = &typeInfo{kind: kindFloat, width: ops[1]}
		case spirv.OpTypeVector:
			t.types[ops[0]] = &typeInfo{kind: kindVector, element: ops[1], count: ops[2]}
		case spirv.OpTypeMatrix:
			t.types[ops[0]] = &typeInfo{kind: kindMatrix, element: ops[1], count: ops[2]}
		case spirv.OpTypeImage:
			t.types[ops[0]] = &typeInfo{
				kind: kindImage, element: ops[1], dim: spirv.Dim(ops[2]), sampled: ops[6], format: spirv.ImageFormat(ops[7]),
			}
		case spirv.OpTypeSampler:
			t.types[ops[0]] = &typeInfo{kind: kindSampler}
		case spirv.OpTypeSampledImage:
			t.types[ops[0]] = &typeInfo{kind: kindSampledImage, element: ops[1]}
		case spirv.OpTypeStruct:
			t.types[ops[0]] = &typeInfo{kind: kindStruct, members: ops[1:]}
		case spirv.OpTypePointer:
			t.types[ops[0]] = &typeInfo{kind: kindPointer, storage: spirv.StorageClass(ops[1]), element: ops[2]}
		case spirv.OpTypeFunction:
			t.types[ops[0]] = &typeInfo{kind: kindFunction, element: ops[1]}

		case spirv.OpConstant, spirv.OpConstantComposite:
			t.constants[ops[1]] = constant{op: inst.Opcode, typ: ops[0], operands: ops[2:]}
		case spirv.OpConstantTrue, spirv.OpConstantFalse, spirv.OpConstantNull:
			t.constants[ops[1]] = constant{op: inst.Opcode, typ: ops[0]}

		case spirv.OpVariable:
			t.variables = append(t.variables, variable{id: ops[1], pointer: ops[0], storage: spirv.StorageClass(ops[2])})

		case spirv.OpFunction:
			if t.function != 0 {
				failf(ops[1], "modules with more than one function are not supported")
			}
			t.function = ops[1]
			inFunction = true

		default:
			failf(inst.Result(), "unsupported global instruction %s", inst.Opcode)
		}
	}
	if !t.hasEntry {
		failf(0, "module has no entry point")
	}
	if t.entry != t.function {
		failf(t.entry, "entry point function is not defined")
	}
	if t.first == 0 {
		failf(t.function, "entry point function has no blocks")
	}
}

// loadFunctionInstruction splits the function body into blocks.
func (t *translator) loadFunctionInstruction(inst spirv.Instruction, current *block) *block {
	switch inst.Opcode {
	case spirv.OpFunctionEnd:
		if current != nil {
			failf(current.label, "block is not terminated")
		}
		return nil
	case spirv.OpLabel:
		if current != nil {
			failf(current.label, "block is not terminated")
		}
		b := &block{label: inst.Operands[0]}
		t.blocks[b.label] = b
		t.order = append(t.order, b.label)
		if t.first == 0 {
			t.first = b.label
		}
		return b
	}
	if current == nil {
		failf(inst.Result(), "instruction %s outside of a block", inst.Opcode)
	}
	switch inst.Opcode {
	case spirv.OpVariable, spirv.OpFunctionParameter:
		failf(inst.Result(), "function scope %s is not supported", inst.Opcode)
	case spirv.OpLoopMerge:
		failf(0, "loops are not supported")
	case spirv.OpSelectionMerge:
		current.merge = inst.Operands[0]
	case spirv.OpPhi:
		current.phis = append(current.phis, inst)
	case spirv.OpBranch, spirv.OpBranchConditional, spirv.OpReturn, spirv.OpReturnValue, spirv.OpKill:
		current.terminator = inst
		return nil
	default:
		current.instructions = append(current.instructions, inst)
	}
	return current
}

func (t *translator) typeOf(id uint32) *typeInfo {
	info, found := t.types[id]
	if !found {
		failf(id, "undefined type")
	}
	return info
}

func (t *translator) decoration(id uint32, d spirv.Decoration) ([]uint32, bool) {
	params, found := t.decorations[id][d]
	return params, found
}

// constantValue returns the literal value of a 32 bits integer constant.
func (t *translator) constantValue(id uint32) uint32 {
	c, found := t.constants[id]
	if !found || c.op != spirv.OpConstant || len(c.operands) != 1 {
		failf(id, "expected an integer constant")
	}
	return c.operands[0]
}
