// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/shadergraph/pkg/core/dtypes"
)

// OpType is the closed enum of node kinds offered by the editor's node palette.
//
// Every compiler pass switches exhaustively over OpType: adding a kind requires adding its
// port definitions (opDefs), its type constraints, its branch behavior and its code
// generation rule.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=Op -transform=snake -output=gen_optype_enumer.go optype.go

const (
	OpInvalid OpType = iota

	// Sources.
	OpConstant
	OpTexture
	OpTime
	OpPosition
	OpNormal
	OpTexCoord

	// Binary arithmetic: all inputs and the output share one type.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpMin
	OpMax
	OpPower

	// Unary arithmetic: input and output share one type.
	OpNegate
	OpAbs
	OpFloor
	OpFract
	OpSqrt
	OpSin
	OpCos
	OpNormalize

	// Reductions to a scalar.
	OpLength
	OpDot

	OpMix
	OpCompare
	OpConditional
	OpSwizzle
	OpCombine
	OpSeparate
	OpMathExpression
	OpSample

	// Stage roots.
	OpComputeField
	OpPreviewOutput
	OpMaterialOutput
)

// PortDef describes a port of a node kind.
type PortDef struct {
	Name string

	// Type is the declared graph type, possibly polymorphic.
	Type dtypes.Set

	// Required inputs must be connected: roots refuse to compile without them.
	Required bool

	// StartsBranch marks an input of a branch-introducing node: the sub-graph feeding it
	// is only evaluated when the corresponding arm is selected. Arms are numbered in
	// order of declaration among the branch-starting inputs.
	StartsBranch bool
}

// StageKind of a root node.
type StageKind int

const (
	// NotARoot is the StageKind of nodes that don't start a stage.
	NotARoot StageKind = iota

	// RenderStage roots generate a vertex and a fragment shader body.
	RenderStage

	// ComputeStage roots generate a compute shader body writing a field (storage image).
	ComputeStage
)

func (k StageKind) String() string {
	switch k {
	case RenderStage:
		return "render"
	case ComputeStage:
		return "compute"
	}
	return "none"
}

// opDef holds the static information of a node kind. Node kinds whose ports depend on the
// node's parameters (Constant, Combine, MathExpression, Texture, ComputeField) fill
// them in Builder.
type opDef struct {
	inputs  []PortDef
	outputs []PortDef
	domain  dtypes.Domain
	stage   StageKind
}

var (
	outPort = func(t dtypes.Set) []PortDef { return []PortDef{{Name: "out", Type: t}} }
	inPort  = func(t dtypes.Set) []PortDef { return []PortDef{{Name: "in", Type: t}} }
	abPorts = func(t dtypes.Set) []PortDef { return []PortDef{{Name: "a", Type: t}, {Name: "b", Type: t}} }
)

var opDefs = map[OpType]opDef{
	OpConstant:  {},
	OpTexture:   {},
	OpTime:      {outputs: outPort(dtypes.Exactly(dtypes.Float)), domain: dtypes.TimeVarying},
	OpPosition:  {outputs: outPort(dtypes.Exactly(dtypes.Float3)), domain: dtypes.TransformDependent},
	OpNormal:    {outputs: outPort(dtypes.Exactly(dtypes.Float3)), domain: dtypes.ModelDependent},
	OpTexCoord:  {outputs: outPort(dtypes.Exactly(dtypes.Float2)), domain: dtypes.ModelDependent},
	OpAdd:       {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpSubtract:  {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpMultiply:  {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpDivide:    {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpMin:       {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpMax:       {inputs: abPorts(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpPower:     {inputs: abPorts(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpNegate:    {inputs: inPort(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpAbs:       {inputs: inPort(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpFloor:     {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpFract:     {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpSqrt:      {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpSin:       {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpCos:       {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpNormalize: {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.AnyFloatingPoint)},
	OpLength:    {inputs: inPort(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.SetOf(dtypes.Float, dtypes.Half))},
	OpDot:       {inputs: abPorts(dtypes.AnyFloatingPoint), outputs: outPort(dtypes.SetOf(dtypes.Float, dtypes.Half))},
	OpMix: {
		inputs: []PortDef{
			{Name: "a", Type: dtypes.AnyFloatingPoint},
			{Name: "b", Type: dtypes.AnyFloatingPoint},
			{Name: "t", Type: dtypes.AnyFloatingPoint},
		},
		outputs: outPort(dtypes.AnyFloatingPoint),
	},
	OpCompare: {inputs: abPorts(dtypes.AnyScalar), outputs: outPort(dtypes.Exactly(dtypes.Bool))},
	OpConditional: {
		inputs: []PortDef{
			{Name: "condition", Type: dtypes.Exactly(dtypes.Bool), Required: true},
			{Name: "true", Type: dtypes.AnyNumeric, StartsBranch: true},
			{Name: "false", Type: dtypes.AnyNumeric, StartsBranch: true},
		},
		outputs: outPort(dtypes.AnyNumeric),
	},
	OpSwizzle:        {inputs: inPort(dtypes.AnyNumeric), outputs: outPort(dtypes.AnyNumeric)},
	OpCombine:        {},
	OpSeparate: {
		inputs: inPort(dtypes.AnyNumeric),
		outputs: []PortDef{
			{Name: "x", Type: dtypes.AnyScalar},
			{Name: "y", Type: dtypes.AnyScalar},
			{Name: "z", Type: dtypes.AnyScalar},
			{Name: "w", Type: dtypes.AnyScalar},
		},
	},
	OpMathExpression: {},
	OpSample: {
		inputs: []PortDef{
			{Name: "field", Type: dtypes.AnyField, Required: true},
			{Name: "position", Type: dtypes.AnyFloat},
		},
		outputs: outPort(dtypes.Exactly(dtypes.Float4)),
	},
	OpComputeField: {stage: ComputeStage},
	OpPreviewOutput: {
		inputs: []PortDef{{Name: "color", Type: dtypes.AnyFloat, Required: true}},
		stage:  RenderStage,
	},
	OpMaterialOutput: {
		inputs: []PortDef{
			{Name: "base_color", Type: dtypes.Exactly(dtypes.Float3), Required: true},
			{Name: "roughness", Type: dtypes.Exactly(dtypes.Float)},
			{Name: "emission", Type: dtypes.Exactly(dtypes.Float3)},
		},
		stage: RenderStage,
	},
}

// IsValid returns whether the op type is one of the known node kinds.
func (op OpType) IsValid() bool {
	_, found := opDefs[op]
	return found
}

// Domain returns the computation domain introduced by nodes of this kind.
func (op OpType) Domain() dtypes.Domain {
	return opDefs[op].domain
}

// StageKind returns the kind of stage started by roots of this kind, or NotARoot.
func (op OpType) StageKind() StageKind {
	return opDefs[op].stage
}

// IsRoot returns whether nodes of this kind are roots of a compiled stage.
func (op OpType) IsRoot() bool {
	return op.StageKind() != NotARoot
}

// IsBranching returns whether nodes of this kind introduce conditional branches.
func (op OpType) IsBranching() bool {
	for _, def := range opDefs[op].inputs {
		if def.StartsBranch {
			return true
		}
	}
	return false
}

// IsBinaryArithmetic returns whether the op takes two operands of the same type and returns
// a value of that same type.
func (op OpType) IsBinaryArithmetic() bool {
	return op >= OpAdd && op <= OpPower
}

// IsUnaryArithmetic returns whether the op takes one operand and returns a value of the same type.
func (op OpType) IsUnaryArithmetic() bool {
	return op >= OpNegate && op <= OpNormalize
}
