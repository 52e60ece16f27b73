// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package mathexpr parses the formulas of math-expression nodes, such as "mix(a, b, 0.5) * sin(t)".
//
// The syntax is the arithmetic subset of CEL (parsed with github.com/google/cel-go): numeric
// literals, the variables of the node, the operators + - * / (and unary -), parenthesis and a
// fixed set of functions that preserve the type of their operands.
package mathexpr

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/pkg/errors"
)

// Kind of expression node.
type Kind int

const (
	KindNumber Kind = iota
	KindVariable
	KindCall
)

// Function applied by a KindCall expression. Operators are functions too.
type Function string

const (
	FuncAdd       Function = "+"
	FuncSubtract  Function = "-"
	FuncMultiply  Function = "*"
	FuncDivide    Function = "/"
	FuncNegate    Function = "neg"
	FuncSin       Function = "sin"
	FuncCos       Function = "cos"
	FuncAbs       Function = "abs"
	FuncFloor     Function = "floor"
	FuncFract     Function = "fract"
	FuncSqrt      Function = "sqrt"
	FuncPow       Function = "pow"
	FuncMin       Function = "min"
	FuncMax       Function = "max"
	FuncMix       Function = "mix"
	FuncNormalize Function = "normalize"
)

// arity of each function.
var arity = map[Function]int{
	FuncAdd: 2, FuncSubtract: 2, FuncMultiply: 2, FuncDivide: 2, FuncNegate: 1,
	FuncSin: 1, FuncCos: 1, FuncAbs: 1, FuncFloor: 1, FuncFract: 1, FuncSqrt: 1,
	FuncPow: 2, FuncMin: 2, FuncMax: 2, FuncMix: 3, FuncNormalize: 1,
}

var celOperators = map[string]Function{
	operators.Add:      FuncAdd,
	operators.Subtract: FuncSubtract,
	operators.Multiply: FuncMultiply,
	operators.Divide:   FuncDivide,
	operators.Negate:   FuncNegate,
}

// Expr is a node of a parsed expression.
type Expr struct {
	Kind Kind

	// Value of a KindNumber.
	Value float64

	// Name of a KindVariable.
	Name string

	// Func and Args of a KindCall.
	Func Function
	Args []*Expr
}

// String renders the expression in a fully parenthesized form.
func (e *Expr) String() string {
	switch e.Kind {
	case KindNumber:
		return fmt.Sprint(e.Value)
	case KindVariable:
		return e.Name
	}
	if e.Func == FuncNegate {
		return "-" + e.Args[0].String()
	}
	args := make([]string, len(e.Args))
	for ii, arg := range e.Args {
		args[ii] = arg.String()
	}
	if len(e.Args) == 2 && strings.ContainsAny(string(e.Func), "+-*/") {
		return "(" + args[0] + " " + string(e.Func) + " " + args[1] + ")"
	}
	return string(e.Func) + "(" + strings.Join(args, ", ") + ")"
}

var celEnv = sync.OnceValues(func() (*cel.Env, error) { return cel.NewEnv() })

// Parse parses the expression. Every identifier must be one of the given variables.
func Parse(source string, variables []string) (*Expr, error) {
	env, err := celEnv()
	if err != nil {
		return nil, errors.Wrap(err, "mathexpr: failed to create CEL environment")
	}
	ast, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "mathexpr: failed to parse %q", source)
	}
	expr, err := convert(ast.NativeRep().Expr(), variables)
	if err != nil {
		return nil, errors.WithMessagef(err, "mathexpr: invalid expression %q", source)
	}
	return expr, nil
}

func convert(e celast.Expr, variables []string) (*Expr, error) {
	switch e.Kind() {
	case celast.LiteralKind:
		switch v := e.AsLiteral().(type) {
		case types.Double:
			return &Expr{Kind: KindNumber, Value: float64(v)}, nil
		case types.Int:
			return &Expr{Kind: KindNumber, Value: float64(v)}, nil
		case types.Uint:
			return &Expr{Kind: KindNumber, Value: float64(v)}, nil
		}
		return nil, errors.Errorf("unsupported literal %v", e.AsLiteral())

	case celast.IdentKind:
		name := e.AsIdent()
		if !slices.Contains(variables, name) {
			return nil, errors.Errorf("unknown variable %q, expected one of %v", name, variables)
		}
		return &Expr{Kind: KindVariable, Name: name}, nil

	case celast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			return nil, errors.Errorf("member function %q not supported", call.FunctionName())
		}
		fn, isOperator := celOperators[call.FunctionName()]
		if !isOperator {
			fn = Function(call.FunctionName())
		}
		want, found := arity[fn]
		if !found {
			return nil, errors.Errorf("unknown function %q", call.FunctionName())
		}
		if len(call.Args()) != want {
			return nil, errors.Errorf("function %q takes %d arguments, got %d", fn, want, len(call.Args()))
		}
		result := &Expr{Kind: KindCall, Func: fn}
		for _, arg := range call.Args() {
			converted, err := convert(arg, variables)
			if err != nil {
				return nil, err
			}
			result.Args = append(result.Args, converted)
		}
		return result, nil
	}
	return nil, errors.Errorf("unsupported construct in expression")
}

// Variables returns the names of the variables used by the expression, sorted.
func (e *Expr) Variables() []string {
	var names []string
	e.walk(func(sub *Expr) {
		if sub.Kind == KindVariable && !slices.Contains(names, sub.Name) {
			names = append(names, sub.Name)
		}
	})
	slices.Sort(names)
	return names
}

func (e *Expr) walk(fn func(*Expr)) {
	fn(e)
	for _, arg := range e.Args {
		arg.walk(fn)
	}
}

// Apply evaluates a function over scalar values, with the same semantics as the generated code.
func Apply(fn Function, args ...float64) float64 {
	switch fn {
	case FuncAdd:
		return args[0] + args[1]
	case FuncSubtract:
		return args[0] - args[1]
	case FuncMultiply:
		return args[0] * args[1]
	case FuncDivide:
		return args[0] / args[1]
	case FuncNegate:
		return -args[0]
	case FuncSin:
		return math.Sin(args[0])
	case FuncCos:
		return math.Cos(args[0])
	case FuncAbs:
		return math.Abs(args[0])
	case FuncFloor:
		return math.Floor(args[0])
	case FuncFract:
		return args[0] - math.Floor(args[0])
	case FuncSqrt:
		return math.Sqrt(args[0])
	case FuncPow:
		return math.Pow(args[0], args[1])
	case FuncMin:
		return math.Min(args[0], args[1])
	case FuncMax:
		return math.Max(args[0], args[1])
	case FuncMix:
		return args[0]*(1-args[2]) + args[1]*args[2]
	case FuncNormalize:
		switch {
		case args[0] > 0:
			return 1
		case args[0] < 0:
			return -1
		}
		return 0
	}
	return math.NaN()
}

// Eval evaluates the expression with scalar values for the variables.
func (e *Expr) Eval(vars map[string]float64) (float64, error) {
	switch e.Kind {
	case KindNumber:
		return e.Value, nil
	case KindVariable:
		v, found := vars[e.Name]
		if !found {
			return 0, errors.Errorf("mathexpr: variable %q has no value", e.Name)
		}
		return v, nil
	}
	args := make([]float64, len(e.Args))
	for ii, arg := range e.Args {
		v, err := arg.Eval(vars)
		if err != nil {
			return 0, err
		}
		args[ii] = v
	}
	return Apply(e.Func, args...), nil
}
