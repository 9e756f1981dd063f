package scribec

import "testing"

// TestIntegerPromotionCoercion exercises spec.md §4.6's "choose a
// superior type" rule: mixing an int literal and a float literal
// promotes the whole expression (and the var it's bound to) to the
// float type.
func TestIntegerPromotionCoercion(t *testing.T) {
	_, top, _ := compileModule(t, "let x = 1 + 2.0;")

	x := findVar(top, "x")
	if x == nil {
		t.Fatal("var x not found")
	}
	ft, ok := (*x.CastTo()).(*FltType)
	if !ok {
		t.Fatalf("x's CastTo = %T, want *FltType", *x.CastTo())
	}
	if ft.Bits != 32 {
		t.Fatalf("x's FltType.Bits = %d, want 32", ft.Bits)
	}
}

// TestIntLiteralTypesAsI32 covers spec.md §8 scenario 2's `a` typing:
// a bare int literal within range interns as i32, not i64.
func TestIntLiteralTypesAsI32(t *testing.T) {
	_, top, _ := compileModule(t, "let a = 3;")

	a := findVar(top, "a")
	if a == nil {
		t.Fatal("var a not found")
	}
	it, ok := (*a.CastTo()).(*IntType)
	if !ok {
		t.Fatalf("a's CastTo = %T, want *IntType", *a.CastTo())
	}
	if it.Bits != 32 || !it.Signed {
		t.Fatalf("a's IntType = {Bits:%d Signed:%v}, want {Bits:32 Signed:true}", it.Bits, it.Signed)
	}
}

// TestCallSiteGetsDefaultReturnValue checks the §3.3 invariant: a
// non-structural post-TypeAssign node always carries a ValueID, and
// for a call site specifically that value is the return type's
// default (§4.5 "Calls").
func TestCallSiteGetsDefaultReturnValue(t *testing.T) {
	ctx, top, _ := compileModule(t, `
fn add(a in i64, b in i64) -> i64 {
	return a + b;
}
let r = add(1, 2);
`)
	r := findVar(top, "r")
	if r == nil {
		t.Fatal("var r not found")
	}
	call, ok := r.Val.(*CallInfoStmt)
	if !ok {
		t.Fatalf("r.Val = %T, want *CallInfoStmt", r.Val)
	}
	if call.ValueID() == 0 {
		t.Fatal("call site has no ValueID, violates spec.md §3.3 invariant")
	}
	v := ctx.Values.Get(call.ValueID())
	if v == nil {
		t.Fatal("call site's ValueID does not resolve in the value registry")
	}
	iv, ok := v.(*IntVal)
	if !ok {
		t.Fatalf("call site's default value = %T, want *IntVal", v)
	}
	if iv.Val != 0 {
		t.Fatalf("call site's default value = %d, want 0", iv.Val)
	}
}

// TestValueAssignEvaluatesCall drives ValueAssign directly over the
// resolved tree to confirm it recomputes the real return value on
// demand rather than relying on TypeAssign's eagerly-set default.
func TestValueAssignEvaluatesCall(t *testing.T) {
	ctx, top, ta := compileModule(t, `
fn add(a in i64, b in i64) -> i64 {
	return a + b;
}
let r = add(1, 2);
`)
	r := findVar(top, "r")
	if r == nil {
		t.Fatal("var r not found")
	}
	v, err := ta.valueAssign.Eval(r.Val)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	iv, ok := v.(*IntVal)
	if !ok {
		t.Fatalf("evaluated value = %T, want *IntVal", v)
	}
	if iv.Val != 3 {
		t.Fatalf("add(1, 2) evaluated to %d, want 3", iv.Val)
	}
	_ = ctx
}

// TestValueAssignLoop checks a for-loop accumulator runs to
// completion and yields the expected sum, exercising evalFor's
// break/continue bookkeeping and evalAssign's compound operator.
func TestValueAssignLoop(t *testing.T) {
	_, top, ta := compileModule(t, `
fn sum(n in i64) -> i64 {
	let total in i64 = 0;
	let i in i64 = 0;
	for i = 0; i < n; i += 1 {
		total += i;
	}
	return total;
}
let r = sum(5);
`)
	r := findVar(top, "r")
	if r == nil {
		t.Fatal("var r not found")
	}
	v, err := ta.valueAssign.Eval(r.Val)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	iv, ok := v.(*IntVal)
	if !ok {
		t.Fatalf("evaluated value = %T, want *IntVal", v)
	}
	if iv.Val != 10 {
		t.Fatalf("sum(5) evaluated to %d, want 10 (0+1+2+3+4)", iv.Val)
	}
}
