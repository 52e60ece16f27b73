// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spirv

import (
	"fmt"
	"strings"
)

// stringOperand lists the opcodes with a literal string operand, and the index of its first word
// among the operands.
var stringOperand = map[OpCode]int{
	OpName:          1,
	OpMemberName:    2,
	OpString:        1,
	OpExtension:     0,
	OpExtInstImport: 1,
	OpEntryPoint:    2,
}

// Disassemble renders the module in a textual form similar to the one of spirv-dis:
//
//	%7 = OpFAdd %2 %5 %6
//
// Ids are printed with a "%" prefix, literals as numbers and literal strings quoted.
func Disassemble(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n; Version: %s\n; Generator: %#x\n; Bound: %d\n", m.Version, m.Generator, m.Bound)
	for _, inst := range m.Instructions {
		sb.WriteString(disassembleInstruction(inst))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func disassembleInstruction(inst Instruction) string {
	var parts []string
	info, known := opInfos[inst.Opcode]
	operands := inst.Operands
	if known && info.result {
		if id := inst.Result(); id != 0 {
			parts = append(parts, fmt.Sprintf("%%%d =", id))
		}
	}
	parts = append(parts, inst.Opcode.String())
	if known && info.resultType && len(operands) > 0 {
		parts = append(parts, fmt.Sprintf("%%%d", operands[0]))
	}
	args := operands
	if known {
		args = inst.Args()
	}
	argOffset := len(operands) - len(args)
	strIdx, hasString := stringOperand[inst.Opcode]
	for ii := 0; ii < len(args); ii++ {
		operandIdx := argOffset + ii
		switch {
		case hasString && operandIdx == strIdx:
			s, n := DecodeString(args[ii:])
			parts = append(parts, fmt.Sprintf("%q", s))
			ii += n - 1
		case isIDOperand(inst.Opcode, operandIdx):
			parts = append(parts, fmt.Sprintf("%%%d", args[ii]))
		case inst.Opcode == OpExtInst && ii == 1:
			if name := GLSLName(args[ii]); name != "" {
				parts = append(parts, name)
			} else {
				parts = append(parts, fmt.Sprint(args[ii]))
			}
		default:
			parts = append(parts, fmt.Sprint(args[ii]))
		}
	}
	return strings.Join(parts, " ")
}

// isIDOperand returns whether the operand at the given index (counting the result type and
// result id) is an id rather than a literal. It is only used for printing.
func isIDOperand(op OpCode, idx int) bool {
	switch op {
	case OpCapability, OpMemoryModel, OpSource, OpTypeFloat, OpTypeInt, OpConstant:
		return false
	case OpExecutionMode, OpSelectionMerge, OpLoopMerge, OpDecorate, OpMemberDecorate, OpName, OpMemberName:
		return idx == 0
	case OpEntryPoint:
		return idx == 1 || idx > 2
	case OpTypeVector, OpTypeMatrix, OpTypeImage:
		return idx == 1
	case OpTypePointer:
		return idx == 2
	case OpVariable:
		return idx < 2
	case OpFunction:
		return idx != 2
	case OpVectorShuffle:
		return idx < 4
	case OpCompositeExtract:
		return idx < 3
	case OpExtInst:
		return idx != 3
	case OpImageSampleExplicitLod:
		return idx != 4
	}
	return true
}
