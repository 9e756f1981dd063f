package scribec

import "fmt"

// primitiveTypeTable enumerates every concrete primitive type the
// lexer's keyword table produces (spec.md §4.1); SeedPrimitiveOperators
// registers a member-function table for each one rather than a single
// generic "Int"/"Flt" entry, since operator dispatch keys on the
// exact TypeID (spec.md §4.4's ScopeStack.typeFns).
func primitiveTypeTable() []Type {
	return []Type{
		NewIntType(1, false),
		NewIntType(8, true), NewIntType(8, false),
		NewIntType(16, true), NewIntType(16, false),
		NewIntType(32, true), NewIntType(32, false),
		NewIntType(64, true), NewIntType(64, false),
		NewFltType(32), NewFltType(64),
	}
}

func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case *FltVal:
		return n.Val, true
	case *IntVal:
		return float64(n.Val), true
	}
	return 0, false
}

func asInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case *IntVal:
		return n.Val, true
	case *FltVal:
		return int64(n.Val), true
	}
	return 0, false
}

func boolVal(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return &IntVal{Val: i, Contains_: ContainsTrue}
}

// binOpHandler builds an IVALUE handler for a primitive type: it
// reads both operands as whichever native representation the result
// kind needs, applies fn, and re-wraps the result matching t's kind
// (spec.md §4.6).
func binOpHandler(t Type, intFn func(a, b int64) int64, fltFn func(a, b float64) float64) func(*ValueAssign, []Value) (Value, error) {
	_, isFlt := t.(*FltType)
	return func(va *ValueAssign, args []Value) (Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("binary operator expects 2 arguments, got %d", len(args))
		}
		if isFlt {
			a, _ := asFloat(args[0])
			b, _ := asFloat(args[1])
			return &FltVal{Val: fltFn(a, b), Contains_: ContainsTrue}, nil
		}
		a, _ := asInt(args[0])
		b, _ := asInt(args[1])
		return &IntVal{Val: intFn(a, b), Contains_: ContainsTrue}, nil
	}
}

func cmpOpHandler(t Type, intFn func(a, b int64) bool, fltFn func(a, b float64) bool) func(*ValueAssign, []Value) (Value, error) {
	_, isFlt := t.(*FltType)
	return func(va *ValueAssign, args []Value) (Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("comparison operator expects 2 arguments, got %d", len(args))
		}
		if isFlt {
			a, _ := asFloat(args[0])
			b, _ := asFloat(args[1])
			return boolVal(fltFn(a, b)), nil
		}
		a, _ := asInt(args[0])
		b, _ := asInt(args[1])
		return boolVal(intFn(a, b)), nil
	}
}

func unaryOpHandler(t Type, intFn func(a int64) int64, fltFn func(a float64) float64) func(*ValueAssign, []Value) (Value, error) {
	_, isFlt := t.(*FltType)
	return func(va *ValueAssign, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("unary operator expects 1 argument, got %d", len(args))
		}
		if isFlt {
			a, _ := asFloat(args[0])
			return &FltVal{Val: fltFn(a), Contains_: ContainsTrue}, nil
		}
		a, _ := asInt(args[0])
		return &IntVal{Val: intFn(a), Contains_: ContainsTrue}, nil
	}
}

// SeedPrimitiveOperators registers the arithmetic, comparison,
// bitwise, shift, and unary `__op__` member functions every
// primitive type needs so that TypeAssign's operator-to-call
// rewriting (spec.md §4.5) always finds a fallback when no
// user-defined operator shadows it (spec.md §4.4 "ValueManager seeds
// primitives at startup").
func SeedPrimitiveOperators(ctx *Context, scope *ScopeStack) {
	boolTy := Type(NewIntType(1, false))
	for _, t := range primitiveTypeTable() {
		_, isFlt := t.(*FltType)

		seedBinary(ctx, scope, t, t, "__add__", binOpHandler(t, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }))
		seedBinary(ctx, scope, t, t, "__sub__", binOpHandler(t, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }))
		seedBinary(ctx, scope, t, t, "__mul__", binOpHandler(t, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }))
		seedBinary(ctx, scope, t, t, "__div__", binOpHandler(t, func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a / b
		}, func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		}))

		seedBinary(ctx, scope, t, boolTy, "__eq__", cmpOpHandler(t, func(a, b int64) bool { return a == b }, func(a, b float64) bool { return a == b }))
		seedBinary(ctx, scope, t, boolTy, "__ne__", cmpOpHandler(t, func(a, b int64) bool { return a != b }, func(a, b float64) bool { return a != b }))
		seedBinary(ctx, scope, t, boolTy, "__lt__", cmpOpHandler(t, func(a, b int64) bool { return a < b }, func(a, b float64) bool { return a < b }))
		seedBinary(ctx, scope, t, boolTy, "__gt__", cmpOpHandler(t, func(a, b int64) bool { return a > b }, func(a, b float64) bool { return a > b }))
		seedBinary(ctx, scope, t, boolTy, "__le__", cmpOpHandler(t, func(a, b int64) bool { return a <= b }, func(a, b float64) bool { return a <= b }))
		seedBinary(ctx, scope, t, boolTy, "__ge__", cmpOpHandler(t, func(a, b int64) bool { return a >= b }, func(a, b float64) bool { return a >= b }))

		seedUnary(ctx, scope, t, t, "__neg__", unaryOpHandler(t, func(a int64) int64 { return -a }, func(a float64) float64 { return -a }))

		if isFlt {
			continue // mod/bitwise/shift/bnot are integer-only
		}
		seedBinary(ctx, scope, t, t, "__mod__", binOpHandler(t, func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a % b
		}, nil))
		seedBinary(ctx, scope, t, t, "__and__", binOpHandler(t, func(a, b int64) int64 { return a & b }, nil))
		seedBinary(ctx, scope, t, t, "__or__", binOpHandler(t, func(a, b int64) int64 { return a | b }, nil))
		seedBinary(ctx, scope, t, t, "__xor__", binOpHandler(t, func(a, b int64) int64 { return a ^ b }, nil))
		seedBinary(ctx, scope, t, t, "__shl__", binOpHandler(t, func(a, b int64) int64 { return a << uint(b) }, nil))
		seedBinary(ctx, scope, t, t, "__shr__", binOpHandler(t, func(a, b int64) int64 { return a >> uint(b) }, nil))
		seedUnary(ctx, scope, t, t, "__bnot__", unaryOpHandler(t, func(a int64) int64 { return ^a }, nil))
		seedUnary(ctx, scope, t, boolTy, "__not__", func() func(*ValueAssign, []Value) (Value, error) {
			return func(va *ValueAssign, args []Value) (Value, error) {
				a, _ := asInt(args[0])
				return boolVal(a == 0), nil
			}
		}())
		seedUnary(ctx, scope, t, t, "__inc__", unaryOpHandler(t, func(a int64) int64 { return a + 1 }, nil))
		seedUnary(ctx, scope, t, t, "__dec__", unaryOpHandler(t, func(a int64) int64 { return a - 1 }, nil))
	}
}

func seedBinary(ctx *Context, scope *ScopeStack, operand, ret Type, name string, handler func(*ValueAssign, []Value) (Value, error)) {
	def := &IntrinsicDef{Name: name, Tag: IVALUE, Value: handler}
	ft := &FuncType{ArgNames: []string{"lhs", "rhs"}, ArgTypes: []Type{operand, operand}, Ret: ret, Intrinsic: def, IntrinType: IVALUE}
	id := ctx.Values.Intern(&FuncVal{Ty: ft, Contains_: ContainsPerma})
	scope.DeclareTypeFn(operand, name, id)
}

func seedUnary(ctx *Context, scope *ScopeStack, operand, ret Type, name string, handler func(*ValueAssign, []Value) (Value, error)) {
	def := &IntrinsicDef{Name: name, Tag: IVALUE, Value: handler}
	ft := &FuncType{ArgNames: []string{"self"}, ArgTypes: []Type{operand}, Ret: ret, Intrinsic: def, IntrinType: IVALUE}
	id := ctx.Values.Intern(&FuncVal{Ty: ft, Contains_: ContainsPerma})
	scope.DeclareTypeFn(operand, name, id)
}
