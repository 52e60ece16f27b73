// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spirv

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Module is a parsed SPIR-V module.
type Module struct {
	Version      Version
	Generator    uint32
	Bound        uint32
	Instructions []Instruction
}

// ParseError reports malformed bytecode at a word offset.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("spirv: malformed module at word %d: %s", e.Offset, e.Msg)
}

// BytesToWords converts a little-endian byte stream to words.
func BytesToWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("spirv: byte stream of %d bytes is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for ii := range words {
		words[ii] = binary.LittleEndian.Uint32(data[4*ii:])
	}
	return words, nil
}

// Parse decodes the header and instruction stream of a module.
//
// It checks the framing of the stream (magic number, word counts, ids within the bound), not
// the semantics of the instructions.
func Parse(words []uint32) (*Module, error) {
	if len(words) < 5 {
		return nil, &ParseError{Offset: 0, Msg: "truncated header"}
	}
	if words[0] != MagicNumber {
		return nil, &ParseError{Offset: 0, Msg: "bad magic number"}
	}
	m := &Module{
		Version:   versionFromWord(words[1]),
		Generator: words[2],
		Bound:     words[3],
	}
	for offset := 5; offset < len(words); {
		wordCount := int(words[offset] >> 16)
		op := OpCode(words[offset] & 0xFFFF)
		if wordCount == 0 {
			return nil, &ParseError{Offset: offset, Msg: "instruction with zero word count"}
		}
		if offset+wordCount > len(words) {
			return nil, &ParseError{Offset: offset, Msg: op.String() + " extends past the end of the module"}
		}
		inst := Instruction{Opcode: op, Operands: words[offset+1 : offset+wordCount]}
		if id := inst.Result(); id != 0 && id >= m.Bound {
			return nil, &ParseError{Offset: offset, Msg: op.String() + " result id out of bound"}
		}
		m.Instructions = append(m.Instructions, inst)
		offset += wordCount
	}
	return m, nil
}

// ByResult indexes the instructions that define result ids.
func (m *Module) ByResult() map[uint32]Instruction {
	defs := make(map[uint32]Instruction, len(m.Instructions))
	for _, inst := range m.Instructions {
		if id := inst.Result(); id != 0 {
			defs[id] = inst
		}
	}
	return defs
}

// Count returns how many instructions with the given opcode the module has.
func (m *Module) Count(op OpCode) int {
	count := 0
	for _, inst := range m.Instructions {
		if inst.Opcode == op {
			count++
		}
	}
	return count
}

// Filter returns the instructions with the given opcode, in module order.
func (m *Module) Filter(op OpCode) []Instruction {
	var result []Instruction
	for _, inst := range m.Instructions {
		if inst.Opcode == op {
			result = append(result, inst)
		}
	}
	return result
}
