package scribec

// Simplify collapses the constructs TypeAssign left in place purely
// so the tree stayed walkable (inline if, imported VarDecls,
// uncalled generic signatures) into their final shape (spec.md §4.7).
// It runs once, on the main module's top block after every imported
// module has been spliced into it, and before Cleanup.
type Simplify struct {
	ctx *Context
}

func NewSimplify(ctx *Context) *Simplify { return &Simplify{ctx: ctx} }

// Run rewrites top's statement list in place; dropped entries are
// simply omitted from the possibly shorter list.
func (s *Simplify) Run(top *BlockStmt) {
	top.Stmts = s.simplifyStmts(top.Stmts)
}

func (s *Simplify) simplifyStmts(stmts []Stmt) []Stmt {
	out := stmts[:0]
	for _, st := range stmts {
		if rep := s.simplify(st); rep != nil {
			out = append(out, rep)
		}
	}
	return out
}

// simplify returns the replacement for st, or nil to drop it entirely.
func (s *Simplify) simplify(st Stmt) Stmt {
	switch n := st.(type) {
	case *BlockStmt:
		n.Stmts = s.simplifyStmts(n.Stmts)
		return collapseSingle(n)
	case *VarStmt:
		if v := s.ctx.Values.Get(n.ValueID()); v == nil {
			return nil
		}
		return n
	case *VarDeclStmt:
		if n.IsImport {
			return nil
		}
		n.Vars = s.simplifyVarDeclVars(n.Vars)
		if len(n.Vars) == 0 {
			return nil
		}
		return n
	case *FnSigStmt:
		// A bare top-level FnSigStmt only ever appears as a template
		// declaration that nothing called; Cleanup's Used counter lives
		// on FnDefStmt, so an uncalled generic signature with no
		// attached body is simplified away here instead.
		if n.IsTemplate {
			return nil
		}
		return n
	case *StructStmt:
		return nil // struct declarations carry no runtime statement
	case *FnDefStmt:
		n.Body.Stmts = s.simplifyStmts(n.Body.Stmts)
		return n
	case *CondStmt:
		if n.IsInline {
			return s.collapseInlineCond(n)
		}
		for i := range n.Cases {
			n.Cases[i].Block.Stmts = s.simplifyStmts(n.Cases[i].Block.Stmts)
		}
		return n
	case *ForStmt:
		if n.IsInline {
			return s.unrollInlineFor(n)
		}
		n.Body.Stmts = s.simplifyStmts(n.Body.Stmts)
		return n
	default:
		return st
	}
}

func (s *Simplify) simplifyVarDeclVars(vars []*VarStmt) []*VarStmt {
	out := vars[:0]
	for _, v := range vars {
		if s.ctx.Values.Get(v.ValueID()) == nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// collapseSingle mirrors spec.md §4.7 "single-statement blocks
// collapse to their one statement" — any block holding exactly one
// statement, of any kind, is replaced by that statement directly;
// the module-top block and any block with DeferFrame entries still
// pending are never collapsed.
func collapseSingle(b *BlockStmt) Stmt {
	if b.IsTop || len(b.DeferFrame) > 0 {
		return b
	}
	if len(b.Stmts) == 1 {
		return b.Stmts[0]
	}
	return b
}

// collapseInlineCond replaces an `inline if` with the statements of
// whichever arm's condition is a known-true comptime value, dropping
// the construct entirely if no arm is selected (spec.md §4.5/§4.7).
func (s *Simplify) collapseInlineCond(c *CondStmt) Stmt {
	for _, cs := range c.Cases {
		if cs.Cond != nil {
			v := s.ctx.Values.Get(cs.Cond.ValueID())
			iv, ok := v.(*IntVal)
			if !ok || iv.Val == 0 {
				continue
			}
		}
		cs.Block.Stmts = s.simplifyStmts(cs.Block.Stmts)
		return collapseSingle(cs.Block)
	}
	return nil
}

// unrollInlineFor simplifies the body of an `inline for` and keeps the
// loop itself as it is: no iterations are unrolled, here or in
// TypeAssign, so the loop stays an ordinary ForStmt.
func (s *Simplify) unrollInlineFor(f *ForStmt) Stmt {
	f.Body.Stmts = s.simplifyStmts(f.Body.Stmts)
	return f
}

// Cleanup is the final pruning pass: it erases function definitions
// nothing ever called, using the Used counter TypeAssign maintained at
// every call dispatch, and variable declarations left with no
// variables (spec.md §4.7).
type Cleanup struct {
	ctx *Context
}

func NewCleanup(ctx *Context) *Cleanup { return &Cleanup{ctx: ctx} }

func (c *Cleanup) Run(top *BlockStmt) {
	top.Stmts = c.cleanStmts(top.Stmts)
}

func (c *Cleanup) cleanStmts(stmts []Stmt) []Stmt {
	out := stmts[:0]
	for _, st := range stmts {
		switch n := st.(type) {
		case *FnDefStmt:
			// An exported/entry-point name (main, or anything marked
			// extern-visible via the Global mask) survives even with
			// Used == 0; everything else dead-strips.
			if n.Used == 0 && n.Name != "main" && !n.Mask().Has(MaskGlobal) {
				continue
			}
			n.Body.Stmts = c.cleanStmts(n.Body.Stmts)
			out = append(out, n)
		case *VarDeclStmt:
			if len(n.Vars) == 0 {
				continue
			}
			out = append(out, n)
		case *BlockStmt:
			n.Stmts = c.cleanStmts(n.Stmts)
			out = append(out, n)
		case *CondStmt:
			for i := range n.Cases {
				n.Cases[i].Block.Stmts = c.cleanStmts(n.Cases[i].Block.Stmts)
			}
			out = append(out, n)
		case *ForStmt:
			n.Body.Stmts = c.cleanStmts(n.Body.Stmts)
			out = append(out, n)
		default:
			out = append(out, st)
		}
	}
	return out
}
