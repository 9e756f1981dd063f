package scribec

// CloneStmt deep-copies a Stmt subtree, assigning every cloned node a
// fresh id from ctx's allocator. Needed by template instantiation
// and defer hoisting, which both need an
// independently mutable copy of a statement that already went through
// part of TypeAssign once (grounded on the original compiler's
// StmtClone: https://, see original_source/src/Parser/StmtClone.cpp).
func CloneStmt(ctx *Context, s Stmt) Stmt {
	if s == nil {
		return nil
	}
	switch n := s.(type) {
	case *BlockStmt:
		out := &BlockStmt{StmtBase: cloneBase(ctx, n.StmtBase), IsTop: n.IsTop}
		for _, st := range n.Stmts {
			out.Stmts = append(out.Stmts, CloneStmt(ctx, st))
		}
		return out
	case *TypeStmt:
		return &TypeStmt{StmtBase: cloneBase(ctx, n.StmtBase), Ty: n.Ty}
	case *SimpleStmt:
		return &SimpleStmt{StmtBase: cloneBase(ctx, n.StmtBase), Tok: n.Tok, Name: n.Name, Payload: n.Payload}
	case *ExprStmt:
		return &ExprStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), Op: n.Op, Prefix: n.Prefix,
			Lhs: CloneStmt(ctx, n.Lhs), Rhs: CloneStmt(ctx, n.Rhs),
		}
	case *CallInfoStmt:
		out := &CallInfoStmt{StmtBase: cloneBase(ctx, n.StmtBase), Callee: CloneStmt(ctx, n.Callee)}
		for _, a := range n.Args {
			out.Args = append(out.Args, CloneStmt(ctx, a))
		}
		return out
	case *VarStmt:
		return &VarStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name, MangledName: n.MangledName,
			AppliedModuleID: n.AppliedModuleID, TypeExpr: CloneStmt(ctx, n.TypeExpr),
			InType: n.InType, Val: CloneStmt(ctx, n.Val), IsTemplate: n.IsTemplate,
		}
	case *FnSigStmt:
		out := &FnSigStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), Variadic: n.Variadic, VariadicName: n.VariadicName,
			IsTemplate: n.IsTemplate, Intrinsic: n.Intrinsic, SigType: n.SigType,
			RetTypeExpr: CloneStmt(ctx, n.RetTypeExpr),
		}
		for _, p := range n.Params {
			out.Params = append(out.Params, CloneStmt(ctx, p).(*VarDeclStmt))
		}
		return out
	case *FnDefStmt:
		return &FnDefStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name,
			Sig: CloneStmt(ctx, n.Sig).(*FnSigStmt), Body: CloneStmt(ctx, n.Body).(*BlockStmt),
		}
	case *HeaderStmt:
		return &HeaderStmt{StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name}
	case *LibStmt:
		return &LibStmt{StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name}
	case *ExternStmt:
		return &ExternStmt{StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name, Sig: CloneStmt(ctx, n.Sig).(*FnSigStmt)}
	case *EnumStmt:
		out := &EnumStmt{StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name, Tags: append([]string{}, n.Tags...), Ty: n.Ty}
		for _, v := range n.Values {
			out.Values = append(out.Values, CloneStmt(ctx, v))
		}
		return out
	case *StructStmt:
		out := &StructStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), Name: n.Name,
			FieldNames: append([]string{}, n.FieldNames...), IsExtern: n.IsExtern, Ty: n.Ty,
			TemplateNames: append([]string{}, n.TemplateNames...),
		}
		for _, ft := range n.FieldTypes {
			out.FieldTypes = append(out.FieldTypes, CloneStmt(ctx, ft))
		}
		return out
	case *VarDeclStmt:
		out := &VarDeclStmt{StmtBase: cloneBase(ctx, n.StmtBase), IsImport: n.IsImport}
		for _, v := range n.Vars {
			out.Vars = append(out.Vars, CloneStmt(ctx, v).(*VarStmt))
		}
		return out
	case *CondStmt:
		out := &CondStmt{StmtBase: cloneBase(ctx, n.StmtBase), IsInline: n.IsInline}
		for _, c := range n.Cases {
			var block *BlockStmt
			if c.Block != nil {
				block = CloneStmt(ctx, c.Block).(*BlockStmt)
			}
			out.Cases = append(out.Cases, CondCase{Cond: CloneStmt(ctx, c.Cond), Block: block})
		}
		return out
	case *ForStmt:
		out := &ForStmt{
			StmtBase: cloneBase(ctx, n.StmtBase), IsInline: n.IsInline,
			Init: CloneStmt(ctx, n.Init), Cond: CloneStmt(ctx, n.Cond), Incr: CloneStmt(ctx, n.Incr),
		}
		if n.Body != nil {
			out.Body = CloneStmt(ctx, n.Body).(*BlockStmt)
		}
		return out
	case *ReturnStmt:
		return &ReturnStmt{StmtBase: cloneBase(ctx, n.StmtBase), Expr: CloneStmt(ctx, n.Expr)}
	case *ContinueStmt:
		return &ContinueStmt{StmtBase: cloneBase(ctx, n.StmtBase)}
	case *BreakStmt:
		return &BreakStmt{StmtBase: cloneBase(ctx, n.StmtBase)}
	case *DeferStmt:
		return &DeferStmt{StmtBase: cloneBase(ctx, n.StmtBase), Expr: CloneStmt(ctx, n.Expr), Inserted: n.Inserted}
	default:
		return s
	}
}

// cloneBase copies everything except identity: clones get a fresh id
// and a reset value binding, since they represent a distinct
// occurrence of the same source text (template specialization,
// hoisted defer call).
func cloneBase(ctx *Context, b StmtBase) StmtBase {
	attrs := make(map[string]string, len(b.attrs))
	for k, v := range b.attrs {
		attrs[k] = v
	}
	return StmtBase{
		id: ctx.stmtIDs.next_(), kind: b.kind, loc: b.loc, attrs: attrs,
		derefCount: b.derefCount, mask: b.mask, castTo: b.castTo, castMask: b.castMask,
	}
}
