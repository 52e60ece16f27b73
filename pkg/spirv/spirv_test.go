// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spirv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAdd builds a minimal fragment module adding two float constants.
func buildAdd() (b *Builder, add uint32) {
	b = NewBuilder(Version1_3)
	b.Capability(CapabilityShader)
	b.Capability(CapabilityShader)
	glsl := b.ExtInstImport(GLSLStd450)
	b.MemoryModel(AddressingLogical, MemoryModelGLSL450)
	main := b.AllocID()
	b.EntryPoint(ExecutionModelFragment, main, "main")
	b.ExecutionMode(main, ExecutionModeOriginUpperLeft)
	b.Name(main, "main")

	void := b.TypeVoid()
	fnType := b.TypeFunction(void)
	f32 := b.TypeFloat(32)
	one := b.ConstantFloat32(f32, 1)
	two := b.ConstantFloat32(f32, 2)

	b.Function(main, void, fnType)
	b.Label(b.AllocID())
	add = b.Op(OpFAdd, f32, one, two)
	b.ExtInst(f32, glsl, GLSLSin, add)
	b.Void(OpReturn)
	b.FunctionEnd()
	return b, add
}

func TestBuilder(t *testing.T) {
	b, add := buildAdd()
	words := b.Words()
	require.Greater(t, len(words), 5)
	assert.Equal(t, uint32(MagicNumber), words[0])
	assert.Equal(t, uint32(0x00010300), words[1])
	assert.Equal(t, b.Bound(), words[3])
	assert.Less(t, add, b.Bound())

	// Types and constants are deduplicated.
	f32 := b.TypeFloat(32)
	assert.Equal(t, f32, b.TypeFloat(32))
	assert.Equal(t, b.ConstantFloat32(f32, 1), b.ConstantFloat32(f32, 1))
	assert.NotEqual(t, b.ConstantFloat32(f32, 1), b.ConstantFloat32(f32, 2))

	m, err := Parse(words)
	require.NoError(t, err)
	assert.Equal(t, Version1_3, m.Version)
	assert.Equal(t, 1, m.Count(OpCapability), "capabilities are declared once")
	assert.Equal(t, 1, m.Count(OpFAdd))

	// Logical layout: capability first, then the import, memory model and entry point.
	require.GreaterOrEqual(t, len(m.Instructions), 4)
	assert.Equal(t, OpCapability, m.Instructions[0].Opcode)
	assert.Equal(t, OpExtInstImport, m.Instructions[1].Opcode)
	assert.Equal(t, OpMemoryModel, m.Instructions[2].Opcode)
	assert.Equal(t, OpEntryPoint, m.Instructions[3].Opcode)

	fadd := m.Filter(OpFAdd)[0]
	assert.Equal(t, add, fadd.Result())
	assert.Equal(t, f32, fadd.ResultType())
	assert.Len(t, fadd.Args(), 2)
	assert.Equal(t, OpFAdd, m.ByResult()[add].Opcode)

	bytesWords, err := BytesToWords(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, words, bytesWords)
	_, err = BytesToWords([]byte{1, 2, 3})
	require.Error(t, err)

	// Structs are never deduplicated, and each one raises the id bound.
	bound := b.Bound()
	s1, s2 := b.TypeStruct(f32), b.TypeStruct(f32)
	assert.NotEqual(t, s1, s2)
	assert.Equal(t, bound+2, b.Bound())
	assert.Len(t, b.Words(), len(words)+6)
}

func TestStrings(t *testing.T) {
	for _, s := range []string{"", "abc", "main", "GLSL.std.450"} {
		words := stringWords(s)
		assert.Equal(t, len(s)/4+1, len(words), "string %q", s)
		decoded, n := DecodeString(append(words, 0xFFFFFFFF))
		assert.Equal(t, s, decoded)
		assert.Equal(t, len(words), n)
	}
}

func TestDisassemble(t *testing.T) {
	b, add := buildAdd()
	m, err := Parse(b.Words())
	require.NoError(t, err)
	text := Disassemble(m)
	assert.Contains(t, text, "OpCapability 1\n")
	assert.Contains(t, text, `OpExtInstImport "GLSL.std.450"`)
	assert.Contains(t, text, `OpEntryPoint 4 %2 "main"`)
	assert.Contains(t, text, "OpTypeFloat 32\n")
	assert.Contains(t, text, "OpConstant %5 1065353216\n")
	assert.Contains(t, text, "= OpExtInst %5 %1 Sin %")
	assert.Regexp(t, fmt.Sprintf(`%%%d = OpFAdd %%5 %%\d+ %%\d+`, add), text)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]uint32{MagicNumber, 0})
	require.ErrorContains(t, err, "truncated header")
	_, err = Parse([]uint32{0xdeadbeef, 0, 0, 0, 0})
	require.ErrorContains(t, err, "magic")
	_, err = Parse([]uint32{MagicNumber, 0x10300, 0, 10, 0, 3<<16 | uint32(OpTypeFloat), 1})
	require.ErrorContains(t, err, "past the end")
	_, err = Parse([]uint32{MagicNumber, 0x10300, 0, 2, 0, 3<<16 | uint32(OpTypeFloat), 5, 32})
	require.ErrorContains(t, err, "out of bound")
	_, err = Parse([]uint32{MagicNumber, 0x10300, 0, 2, 0, 0})
	require.ErrorContains(t, err, "zero word count")
}
