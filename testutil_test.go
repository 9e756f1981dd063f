package scribec

import "testing"

// compileModule lexes, parses, and type-assigns src as a standalone
// module (no @import), returning the pieces a test needs to inspect
// values/types or run further passes. It fails the test immediately
// on any lex/parse/type-assign error since these tests are meant to
// exercise successful compiles.
func compileModule(t *testing.T, src string) (*Context, *BlockStmt, *TypeAssign) {
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
	top.IsTop = true

	ta := NewTypeAssign(ctx, modID, nil)
	additional, err := ta.Run(top)
	if err != nil {
		t.Fatalf("type-assign error: %v\n%s", err, diags.Render())
	}
	top.Stmts = append(top.Stmts, additional...)
	if diags.HasErrors() {
		t.Fatalf("type-assign diagnostics:\n%s", diags.Render())
	}
	return ctx, top, ta
}

// findVar locates the top-level VarStmt bound to name, unwrapping a
// VarDeclStmt wrapper if the declaration was written as part of one.
func findVar(top *BlockStmt, name string) *VarStmt {
	var found *VarStmt
	Inspect(top, func(s Stmt) bool {
		if v, ok := s.(*VarStmt); ok && v.Name == name {
			found = v
			return false
		}
		return true
	})
	return found
}

func findFnDef(top *BlockStmt, name string) *FnDefStmt {
	var found *FnDefStmt
	Inspect(top, func(s Stmt) bool {
		if f, ok := s.(*FnDefStmt); ok && f.Name == name {
			found = f
			return false
		}
		return true
	})
	return found
}
