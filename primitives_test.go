package scribec

import "testing"

// TestSeedPrimitiveOperatorsArithmetic exercises the fallback `__add__`
// seeded for i64 (spec.md §4.4's "ValueManager seeds primitives at
// startup"), confirming the handler actually computes the sum rather
// than just being registered.
func TestSeedPrimitiveOperatorsArithmetic(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	scope := NewScopeStack(ctx.Types)
	SeedPrimitiveOperators(ctx, scope)

	i64 := Type(NewIntType(64, true))
	fnID, ok := scope.TypeFn(i64, "__add__")
	if !ok {
		t.Fatal("i64 has no seeded __add__ operator")
	}
	fv, ok := ctx.Values.Get(fnID).(*FuncVal)
	if !ok {
		t.Fatalf("__add__ value = %T, want *FuncVal", ctx.Values.Get(fnID))
	}
	va := NewValueAssign(ctx, scope, 64)
	result, err := fv.Ty.Intrinsic.Value(va, []Value{&IntVal{Val: 3}, &IntVal{Val: 4}})
	if err != nil {
		t.Fatalf("__add__ handler error: %v", err)
	}
	iv, ok := result.(*IntVal)
	if !ok || iv.Val != 7 {
		t.Fatalf("3 __add__ 4 = %v, want IntVal{7}", result)
	}
}

// TestSeedPrimitiveOperatorsFloatDivision checks the float variant of
// a binary handler picks the float branch and guards division by
// zero rather than panicking (spec.md §4.4).
func TestSeedPrimitiveOperatorsFloatDivision(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	scope := NewScopeStack(ctx.Types)
	SeedPrimitiveOperators(ctx, scope)

	f64 := Type(NewFltType(64))
	fnID, ok := scope.TypeFn(f64, "__div__")
	if !ok {
		t.Fatal("f64 has no seeded __div__ operator")
	}
	fv := ctx.Values.Get(fnID).(*FuncVal)
	va := NewValueAssign(ctx, scope, 64)

	result, err := fv.Ty.Intrinsic.Value(va, []Value{&FltVal{Val: 6}, &FltVal{Val: 0}})
	if err != nil {
		t.Fatalf("__div__ handler error: %v", err)
	}
	fvOut, ok := result.(*FltVal)
	if !ok || fvOut.Val != 0 {
		t.Fatalf("6.0 __div__ 0.0 = %v, want FltVal{0} (guarded, not Inf/NaN)", result)
	}
}

// TestSeedPrimitiveOperatorsBitwiseIntOnly checks integer-only
// operators (bitwise/shift/mod) are never seeded for float types.
func TestSeedPrimitiveOperatorsBitwiseIntOnly(t *testing.T) {
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	scope := NewScopeStack(ctx.Types)
	SeedPrimitiveOperators(ctx, scope)

	f64 := Type(NewFltType(64))
	if _, ok := scope.TypeFn(f64, "__and__"); ok {
		t.Fatal("f64 should not have a seeded __and__ operator")
	}
	i32 := Type(NewIntType(32, true))
	if _, ok := scope.TypeFn(i32, "__and__"); !ok {
		t.Fatal("i32 should have a seeded __and__ operator")
	}
}
