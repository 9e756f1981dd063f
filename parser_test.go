package scribec

import "testing"

// parseOnly lexes and parses src without running TypeAssign, for tests
// that need to inspect the raw defer-hoisted / desugared tree shape.
func parseOnly(t *testing.T, src string) *BlockStmt {
	t.Helper()
	mods := NewModuleLocRegistry()
	diags := NewDiagnostics(mods, 64)
	ctx := NewContext(mods, diags)
	modID := mods.Intern("test.sc", []byte(src))
	toks := NewLexer(modID, []byte(src), diags).Lex()
	p := NewParser(ctx, modID, toks)
	top, err := p.ParseModule()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return top
}

// printArg returns the integer literal argument of a `print(N)` call
// statement, or -1 if s isn't shaped like one.
func printArg(s Stmt) int {
	call, ok := s.(*CallInfoStmt)
	if !ok {
		return -1
	}
	callee, ok := call.Callee.(*SimpleStmt)
	if !ok || callee.Name != "print" || len(call.Args) != 1 {
		return -1
	}
	arg, ok := call.Args[0].(*SimpleStmt)
	if !ok {
		return -1
	}
	return int(arg.Payload.Int)
}

// TestDeferOrdering covers spec.md §8 scenario 4: a function-scoped
// defer, a block-scoped defer, and another function-scoped defer, all
// hoisted before `return` in reverse lexical order of encounter, with
// the block-scoped one also appended at its own block's exit.
func TestDeferOrdering(t *testing.T) {
	src := `fn f(): i32 {
		defer print(1);
		{
			defer print(2);
		}
		defer print(3);
		return 0;
	}`
	top := parseOnly(t, src)
	fn := findFnDef(top, "f")
	if fn == nil {
		t.Fatalf("fn f not found")
	}
	body := fn.Body

	// The nested block should have hoisted print(2) at its own exit.
	var inner *BlockStmt
	for _, s := range body.Stmts {
		if b, ok := s.(*BlockStmt); ok {
			inner = b
		}
	}
	if inner == nil {
		t.Fatalf("nested block not found in function body")
	}
	if len(inner.Stmts) != 1 || printArg(inner.Stmts[0]) != 2 {
		t.Fatalf("expected nested block to contain hoisted print(2), got %#v", inner.Stmts)
	}

	// Before the `return`, both outstanding function-scoped defers
	// (1 and 3) must be hoisted in reverse order of encounter: 3, 1.
	var order []int
	sawReturn := false
	for _, s := range body.Stmts {
		if n := printArg(s); n >= 0 {
			order = append(order, n)
		}
		if _, ok := s.(*ReturnStmt); ok {
			sawReturn = true
			break
		}
	}
	if !sawReturn {
		t.Fatalf("no return statement found in function body")
	}
	if len(order) != 2 || order[0] != 3 || order[1] != 1 {
		t.Fatalf("expected hoisted defer order [3 1] before return, got %v", order)
	}
}

// TestDeferOrderingSkipsOuterFunction ensures hoisting at a nested
// function literal's return doesn't reach past its own floor into an
// enclosing function's still-open defer frame.
func TestDeferOrderingSkipsOuterFunction(t *testing.T) {
	src := `fn outer(): i32 {
		defer print(9);
		let inner = fn(): i32 {
			defer print(5);
			return 1;
		};
		return 0;
	}`
	top := parseOnly(t, src)
	outer := findFnDef(top, "outer")
	if outer == nil {
		t.Fatalf("fn outer not found")
	}

	var innerFn *FnDefStmt
	Inspect(outer.Body, func(s Stmt) bool {
		if f, ok := s.(*FnDefStmt); ok {
			innerFn = f
			return false
		}
		return true
	})
	if innerFn == nil {
		t.Fatalf("nested fn literal not found")
	}
	var innerOrder []int
	for _, s := range innerFn.Body.Stmts {
		if n := printArg(s); n >= 0 {
			innerOrder = append(innerOrder, n)
		}
	}
	if len(innerOrder) != 1 || innerOrder[0] != 5 {
		t.Fatalf("inner fn's return should only hoist its own defer(5), got %v", innerOrder)
	}

	// outer's own return (after the `let inner = ...;` statement) must
	// still hoist print(9), not skip it because a nested function was
	// parsed in between.
	var outerOrder []int
	for _, s := range outer.Body.Stmts {
		if n := printArg(s); n >= 0 {
			outerOrder = append(outerOrder, n)
		}
	}
	if len(outerOrder) != 1 || outerOrder[0] != 9 {
		t.Fatalf("outer fn's return should hoist print(9), got %v", outerOrder)
	}
}

// TestDeferStmtDoesNotSurviveParser covers spec.md §9's "Defer as a
// parse-time transformation": a `defer` with no following `return`
// must not leave a *DeferStmt node in the block (TypeAssign has no
// case for it and would fail with an internal-error on any survivor).
func TestDeferStmtDoesNotSurviveParser(t *testing.T) {
	src := `fn f() {
		defer noop();
		use(1);
	}`
	top := parseOnly(t, src)
	fn := findFnDef(top, "f")
	if fn == nil {
		t.Fatalf("fn f not found")
	}
	Inspect(fn.Body, func(s Stmt) bool {
		if _, ok := s.(*DeferStmt); ok {
			t.Fatalf("a *DeferStmt node survived into the block: %#v", s)
		}
		return true
	})
	// The deferred call must still appear, hoisted to the block's end.
	if len(fn.Body.Stmts) != 2 {
		t.Fatalf("expected 2 statements (use(1), hoisted noop()), got %d: %#v", len(fn.Body.Stmts), fn.Body.Stmts)
	}
	if printArgNamed(fn.Body.Stmts[0], "use") != 1 {
		t.Fatalf("expected use(1) first, got %#v", fn.Body.Stmts[0])
	}
	if _, ok := fn.Body.Stmts[1].(*CallInfoStmt); !ok {
		t.Fatalf("expected hoisted noop() call as the block's last statement, got %T", fn.Body.Stmts[1])
	}
}

// printArgNamed is like printArg but for an arbitrary callee name.
func printArgNamed(s Stmt, name string) int {
	call, ok := s.(*CallInfoStmt)
	if !ok {
		return -1
	}
	callee, ok := call.Callee.(*SimpleStmt)
	if !ok || callee.Name != name || len(call.Args) != 1 {
		return -1
	}
	arg, ok := call.Args[0].(*SimpleStmt)
	if !ok {
		return -1
	}
	return int(arg.Payload.Int)
}

// TestForInDesugaring covers spec.md §4.2's for-in rewrite into a
// begin/end/next/at loop over a synthetic `_interm` binding.
func TestForInDesugaring(t *testing.T) {
	src := `fn f() {
		for it in xs {
			use(it);
		}
	}`
	top := parseOnly(t, src)
	fn := findFnDef(top, "f")
	if fn == nil {
		t.Fatalf("fn f not found")
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected for-in to desugar to a single enclosing block/var, got %d stmts", len(fn.Body.Stmts))
	}
	blk, ok := fn.Body.Stmts[0].(*BlockStmt)
	if !ok {
		t.Fatalf("expected desugared for-in to be wrapped in a block, got %T", fn.Body.Stmts[0])
	}
	var sawInterm, sawFor bool
	for _, s := range blk.Stmts {
		if d, ok := s.(*VarDeclStmt); ok && len(d.Vars) == 1 && d.Vars[0].Name == "_interm_it" {
			sawInterm = true
		}
		if f, ok := s.(*ForStmt); ok {
			sawFor = true
			if f.Init == nil || f.Cond == nil || f.Incr == nil {
				t.Fatalf("expected desugared for to have init/cond/incr all set, got %#v", f)
			}
		}
	}
	if !sawInterm || !sawFor {
		t.Fatalf("expected an intermediate let-binding and a desugared for loop, stmts=%#v", blk.Stmts)
	}
}

// TestWhileDesugaring covers spec.md §4.2: `while cond { body }` becomes
// `for ;; cond; { body }` (empty init/incr, cond as the loop condition).
func TestWhileDesugaring(t *testing.T) {
	src := `fn f() {
		while true {
			noop();
		}
	}`
	top := parseOnly(t, src)
	fn := findFnDef(top, "f")
	if fn == nil {
		t.Fatalf("fn f not found")
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected a single desugared for loop, got %d stmts", len(fn.Body.Stmts))
	}
	forStmt, ok := fn.Body.Stmts[0].(*ForStmt)
	if !ok {
		t.Fatalf("expected while to desugar to a ForStmt, got %T", fn.Body.Stmts[0])
	}
	if forStmt.Init != nil || forStmt.Incr != nil {
		t.Fatalf("expected while-desugared for to have no init/incr, got init=%#v incr=%#v", forStmt.Init, forStmt.Incr)
	}
	if forStmt.Cond == nil {
		t.Fatalf("expected while-desugared for to carry the condition")
	}
}
