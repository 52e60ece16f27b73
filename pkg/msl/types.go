// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package msl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/gomlx/shadergraph/pkg/spirv"
	"github.com/x448/float16"
)

var dimNames = map[spirv.Dim]string{spirv.Dim1D: "1d", spirv.Dim2D: "2d", spirv.Dim3D: "3d"}

func dimOf(d spirv.Dim) int {
	switch d {
	case spirv.Dim1D:
		return 1
	case spirv.Dim2D:
		return 2
	}
	return 3
}

// typeName returns the MSL name of a type.
func (t *translator) typeName(id uint32) string {
	info := t.typeOf(id)
	switch info.kind {
	case kindVoid:
		return "void"
	case kindBool:
		return "bool"
	case kindInt:
		switch {
		case info.width == 16 && info.signed:
			return "short"
		case info.width == 16:
			return "ushort"
		case info.signed:
			return "int"
		}
		return "uint"
	case kindFloat:
		if info.width == 16 {
			return "half"
		}
		return "float"
	case kindVector:
		return fmt.Sprintf("%s%d", t.typeName(info.element), info.count)
	case kindMatrix:
		column := t.typeOf(info.element)
		return fmt.Sprintf("%s%dx%d", t.typeName(column.element), info.count, column.count)
	case kindImage:
		dim, found := dimNames[info.dim]
		if !found {
			failf(id, "unsupported image dimension %d", info.dim)
		}
		access := ""
		if info.sampled == 2 {
			access = ", access::write"
		}
		return fmt.Sprintf("texture%s<%s%s>", dim, t.typeName(info.element), access)
	case kindSampler:
		return "sampler"
	case kindStruct:
		return t.identifier(id, "Struct")
	}
	failf(id, "type has no MSL representation")
	return ""
}

// isPackedFloat3 returns whether a struct member is a float3 followed by a member packed in
// its 4th component, as std140 allows. MSL float3 members take 16 bytes, so it must be declared
// packed_float3.
func (t *translator) isPackedFloat3(structID uint32, member int) bool {
	info := t.typeOf(structID)
	typ := t.typeOf(info.members[member])
	if typ.kind != kindVector || typ.count != 3 || t.typeOf(typ.element).kind != kindFloat || t.typeOf(typ.element).width != 32 {
		return false
	}
	if member+1 >= len(info.members) {
		return false
	}
	offset, found := t.memberOffset(structID, member)
	next, nextFound := t.memberOffset(structID, member+1)
	return found && nextFound && next-offset == 12
}

func (t *translator) memberOffset(structID uint32, member int) (int, bool) {
	params, found := t.memberDecorations[structID][uint32(member)][spirv.DecorationOffset]
	if !found || len(params) == 0 {
		return 0, false
	}
	return int(params[0]), true
}

func (t *translator) memberType(structID uint32, member int) string {
	if t.isPackedFloat3(structID, member) {
		return "packed_float3"
	}
	return t.typeName(t.typeOf(structID).members[member])
}

func (t *translator) memberName(structID uint32, member int) string {
	if name := t.memberNames[structID][uint32(member)]; name != "" {
		return sanitize(name)
	}
	return fmt.Sprintf("m%d", member)
}

// literal returns the MSL expression of a constant.
func (t *translator) literal(id uint32) string {
	c := t.constants[id]
	switch c.op {
	case spirv.OpConstantTrue:
		return "true"
	case spirv.OpConstantFalse:
		return "false"
	case spirv.OpConstantNull:
		return t.zero(c.typ)
	case spirv.OpConstantComposite:
		parts := make([]string, len(c.operands))
		for ii, constituent := range c.operands {
			parts[ii] = t.literal(constituent)
		}
		return t.typeName(c.typ) + "(" + strings.Join(parts, ", ") + ")"
	}
	info := t.typeOf(c.typ)
	word := c.operands[0]
	switch {
	case info.kind == kindFloat && info.width == 16:
		return floatLiteral(float16.Frombits(uint16(word)).Float32(), "h")
	case info.kind == kindFloat:
		return floatLiteral(math.Float32frombits(word), "f")
	case info.kind == kindInt && info.signed:
		return strconv.Itoa(int(int32(word)))
	case info.kind == kindInt:
		return strconv.FormatUint(uint64(word), 10) + "u"
	}
	failf(id, "unsupported constant of type %s", t.typeName(c.typ))
	return ""
}

func (t *translator) zero(typ uint32) string {
	info := t.typeOf(typ)
	switch info.kind {
	case kindBool:
		return "false"
	case kindStruct:
		return t.typeName(typ) + "{}"
	}
	return t.typeName(typ) + "(0)"
}

func floatLiteral(f float32, suffix string) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NAN"
	case math.IsInf(float64(f), 1):
		return "INFINITY"
	case math.IsInf(float64(f), -1):
		return "(-INFINITY)"
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s + suffix
}

// reserved are MSL keywords and names used by the generated code.
var reserved = map[string]bool{
	"main0": true, "main0_in": true, "main0_out": true, "in": true, "out": true,
	"kernel": true, "vertex": true, "fragment": true, "constant": true, "device": true, "thread": true,
	"threadgroup": true, "texture": true, "sampler": true, "float": true, "half": true, "int": true,
	"uint": true, "bool": true, "struct": true, "return": true, "if": true, "else": true, "using": true,
	"namespace": true, "metal": true, "sample": true, "write": true, "read": true, "level": true,
}

// sanitize turns a debug name into a valid MSL identifier.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	s := sb.String()
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "v" + s
	}
	if reserved[s] || strings.HasPrefix(s, "gl_") {
		s += "_"
	}
	return s
}

// identifier returns the unique MSL name of a global id, derived from its debug name.
func (t *translator) identifier(id uint32, fallback string) string {
	if name, found := t.identifiers[id]; found {
		return name
	}
	name := t.names[id]
	if name == "" {
		name = fmt.Sprintf("%s%d", fallback, id)
	}
	name = sanitize(name)
	if t.used[name] {
		name = fmt.Sprintf("%s_%d", name, id)
	}
	t.used[name] = true
	t.identifiers[id] = name
	return name
}
