package scribec

import "testing"

// TestCleanupStripsUnusedFunction exercises spec.md §4.7's dead-code
// pruning: a function nothing calls is dropped, while main survives
// even at Used == 0 since it's the entry point.
func TestCleanupStripsUnusedFunction(t *testing.T) {
	ctx, top, _ := compileModule(t, `
fn unused() -> i64 {
	return 1;
}
fn main() -> i64 {
	return 0;
}
`)
	NewSimplify(ctx).Run(top)
	NewCleanup(ctx).Run(top)

	if findFnDef(top, "unused") != nil {
		t.Fatal("unused function survived Cleanup")
	}
	if findFnDef(top, "main") == nil {
		t.Fatal("main was stripped by Cleanup despite Used == 0")
	}
}

// TestCleanupKeepsCalledFunction checks the counterpart: a function a
// live call site references keeps its Used counter above zero and
// survives.
func TestCleanupKeepsCalledFunction(t *testing.T) {
	ctx, top, _ := compileModule(t, `
fn helper() -> i64 {
	return 7;
}
fn main() -> i64 {
	return helper();
}
`)
	NewSimplify(ctx).Run(top)
	NewCleanup(ctx).Run(top)

	if findFnDef(top, "helper") == nil {
		t.Fatal("helper function was wrongly stripped despite being called from main")
	}
}

// TestCollapseInlineCondTrueArm checks spec.md §4.5/§4.7's inline-if
// elision: a comptime-true condition collapses the whole construct
// down to the winning arm's one statement.
func TestCollapseInlineCondTrueArm(t *testing.T) {
	ctx, top, _ := compileModule(t, `
fn main() -> i64 {
	inline if 1 {
		return 11;
	} else {
		return 22;
	}
}
`)
	s := NewSimplify(ctx)
	main := findFnDef(top, "main")
	if main == nil {
		t.Fatal("main not found")
	}
	main.Body.Stmts = s.simplifyStmts(main.Body.Stmts)

	if len(main.Body.Stmts) != 1 {
		t.Fatalf("main body has %d statements after collapse, want 1", len(main.Body.Stmts))
	}
	ret, ok := main.Body.Stmts[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("collapsed statement = %T, want *ReturnStmt", main.Body.Stmts[0])
	}
	iv, ok := ctx.Values.Get(ret.Expr.ValueID()).(*IntVal)
	if !ok || iv.Val != 11 {
		t.Fatalf("collapsed return value = %v, want IntVal{11}", ctx.Values.Get(ret.Expr.ValueID()))
	}
}

// TestCollapseSingleStatementBlock checks that a plain (non-top)
// block holding exactly one statement collapses to that statement
// directly (spec.md §4.7).
func TestCollapseSingleStatementBlock(t *testing.T) {
	inner := &ReturnStmt{StmtBase: newBase(&Context{}, KindReturn, ModuleLoc{})}
	b := &BlockStmt{StmtBase: newBase(&Context{}, KindBlock, ModuleLoc{}), Stmts: []Stmt{inner}}

	got := collapseSingle(b)
	if got != Stmt(inner) {
		t.Fatalf("collapseSingle did not return the sole inner statement, got %T", got)
	}
}

// TestCollapseSingleStatementBlockKeepsTop checks the module-top block
// is never collapsed even with a single statement.
func TestCollapseSingleStatementBlockKeepsTop(t *testing.T) {
	inner := &ReturnStmt{StmtBase: newBase(&Context{}, KindReturn, ModuleLoc{})}
	b := &BlockStmt{StmtBase: newBase(&Context{}, KindBlock, ModuleLoc{}), Stmts: []Stmt{inner}, IsTop: true}

	got := collapseSingle(b)
	if got != Stmt(b) {
		t.Fatal("collapseSingle collapsed the module-top block")
	}
}
