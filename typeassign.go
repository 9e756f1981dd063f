package scribec

import (
	"fmt"
	"math"
)

// TypeAssign is the pass that walks a module's parsed tree once,
// resolving every name, rewriting operator expressions into member
// function calls, instantiating templates at their call sites, and
// attaching a ValueID (and, where a cast is implied, a CastTo) to
// every value-carrying node. It is the largest single pass, mirroring
// spec.md §4.3-§4.5.
type TypeAssign struct {
	ctx      *Context
	moduleID ModuleID
	orch     *Orchestrator
	intr     *IntrinsicRegistry
	scope    *ScopeStack

	valueAssign *ValueAssign

	fnStack []*FnDefStmt
	// additionalTop collects statements that must be spliced onto the
	// module's top-level block: template specializations (spec.md
	// §4.5.1). Imported modules are spliced by the Orchestrator instead.
	additionalTop []Stmt

	comptimeDepth int

	// templatesInFlight dedupes in-progress template instantiations by
	// (varName, TemplateID) so mutually-templated recursive calls
	// reuse the in-progress instance instead of recursing forever
	// (spec.md §4.5.1 step 1).
	templatesInFlight map[string]bool
}

// NewTypeAssign builds a pass bound to one module, sharing the
// orchestrator (for @import), an intrinsic registry of the core
// builtins, and a scope whose type-function table is seeded with every
// primitive operator.
func NewTypeAssign(ctx *Context, moduleID ModuleID, orch *Orchestrator) *TypeAssign {
	scope := NewScopeStack(ctx.Types)
	ta := &TypeAssign{
		ctx: ctx, moduleID: moduleID, orch: orch, intr: NewIntrinsicRegistry(), scope: scope,
		templatesInFlight: map[string]bool{},
	}
	maxDepth := 2048
	if orch != nil && orch.cfg != nil {
		maxDepth = orch.cfg.GetInt("comptime.max_depth")
	}
	ta.valueAssign = NewValueAssign(ctx, scope, maxDepth)
	SeedPrimitiveOperators(ctx, scope)
	return ta
}

// Run type-assigns every statement in top's block, then returns the
// template specializations discovered along the way, which the caller
// appends at module scope.
func (ta *TypeAssign) Run(top *BlockStmt) ([]Stmt, error) {
	for i, s := range top.Stmts {
		resolved, err := ta.resolveNode(s)
		if err != nil {
			return nil, err
		}
		top.Stmts[i] = resolved
	}
	return ta.additionalTop, nil
}

func (ta *TypeAssign) errf(loc ModuleLoc, format string, args ...interface{}) error {
	ta.ctx.Diags.Error(loc, format, args...)
	return fmt.Errorf("%s: %s", ta.ctx.Mods.Format(loc), fmt.Sprintf(format, args...))
}

// resolveNode is the one entry point every child slot is routed
// through: it rewrites `@intrinsic(...)` call sites into their
// replacement node first (spec.md §4.8's intrinsic dispatch table),
// then dispatches the (possibly unchanged) node to its kind-specific
// visitor. The returned Stmt is what the caller must store back into
// whatever field held the original node.
func (ta *TypeAssign) resolveNode(s Stmt) (Stmt, error) {
	if s == nil {
		return nil, nil
	}
	if c, ok := s.(*CallInfoStmt); ok {
		if callee, ok := c.Callee.(*SimpleStmt); ok && callee.Tok == TokAt {
			def, ok := ta.intr.Lookup(callee.Name)
			if !ok {
				return nil, ta.errf(c.Loc(), "unknown intrinsic '@%s'", callee.Name)
			}
			if def.Parse == nil {
				return nil, ta.errf(c.Loc(), "intrinsic '@%s' cannot be used here", callee.Name)
			}
			replacement, err := def.Parse(ta, c)
			if err != nil {
				return nil, ta.errf(c.Loc(), "%v", err)
			}
			return replacement, nil
		}
	}
	if err := ta.visit(s); err != nil {
		return nil, err
	}
	return s, nil
}

// visit dispatches on the concrete Stmt variant, resolving types and
// attaching a ValueID to every value-carrying node it touches. It
// never replaces s itself; callers that need replacement go through
// resolveNode.
func (ta *TypeAssign) visit(s Stmt) error {
	if s == nil {
		return nil
	}
	switch n := s.(type) {
	case *BlockStmt:
		return ta.visitBlock(n)
	case *SimpleStmt:
		return ta.visitSimple(n)
	case *TypeStmt:
		return nil // already resolved by the parser (primitive keyword)
	case *ExprStmt:
		return ta.visitExpr(n)
	case *CallInfoStmt:
		return ta.visitCall(n)
	case *VarDeclStmt:
		return ta.visitVarDecl(n)
	case *VarStmt:
		return ta.visitVar(n)
	case *FnDefStmt:
		return ta.visitFnDef(n)
	case *StructStmt:
		return ta.visitStruct(n)
	case *EnumStmt:
		return ta.visitEnum(n)
	case *ExternStmt:
		return ta.visitExtern(n)
	case *HeaderStmt, *LibStmt:
		return nil
	case *CondStmt:
		return ta.visitCond(n)
	case *ForStmt:
		return ta.visitFor(n)
	case *ReturnStmt:
		return ta.visitReturn(n)
	case *ContinueStmt, *BreakStmt:
		return nil
	default:
		return ta.errf(s.Loc(), "internal: unhandled statement kind in type assignment")
	}
}

func (ta *TypeAssign) visitBlock(b *BlockStmt) error {
	ta.scope.PushBlock()
	defer ta.scope.PopBlock()
	for i, s := range b.Stmts {
		resolved, err := ta.resolveNode(s)
		if err != nil {
			return err
		}
		b.Stmts[i] = resolved
	}
	return nil
}

func (ta *TypeAssign) valueOf(s Stmt) Value {
	if s == nil {
		return nil
	}
	return ta.ctx.Values.Get(s.ValueID())
}

// typeOfStmt returns the resolved Type a value-carrying node settled
// on: its CastTo if one was imposed, else the type implied by its
// interned Value.
func (ta *TypeAssign) typeOfStmt(s Stmt) Type {
	if s == nil {
		return NewVoidType()
	}
	if s.CastTo() != nil {
		return *s.CastTo()
	}
	return typeOfValue(ta.valueOf(s))
}

// intLiteralType picks the narrowest signed integer type an interned
// literal value fits: i32 when it fits the signed 32-bit range, i64
// otherwise (original_source/src/Passes/TypeAssign.cpp:180-186 — an
// INT literal is interned as i32 unless its magnitude needs i64).
func intLiteralType(val int64) Type {
	if val >= math.MinInt32 && val <= math.MaxInt32 {
		return NewIntType(32, true)
	}
	return NewIntType(64, true)
}

func typeOfValue(v Value) Type {
	switch vv := v.(type) {
	case nil:
		return NewVoidType()
	case *IntVal:
		return intLiteralType(vv.Val)
	case *FltVal:
		return NewFltType(32)
	case *VecVal:
		elem := Type(NewIntType(8, false))
		if len(vv.Items) > 0 {
			elem = typeOfValue(vv.Items[0])
		}
		return NewPtrType(elem, len(vv.Items), false)
	case *StructVal:
		fts := make([]Type, 0, len(vv.Order))
		fns := make([]string, 0, len(vv.Order))
		for _, name := range vv.Order {
			fns = append(fns, name)
			fts = append(fts, typeOfValue(vv.Fields[name]))
		}
		return &StructType{FieldNames: fns, FieldTypes: fts}
	case *FuncVal:
		return vv.Ty
	case *TypeVal:
		return vv.Ty
	case *RefVal:
		t := typeOfValue(vv.Pointee)
		return NewPtrType(t, 1, false)
	case *NamespaceVal:
		return NewVoidType()
	default:
		return NewVoidType()
	}
}

// visitSimple resolves literals directly to interned Values and
// identifiers through scope lookup (spec.md §4.5's name resolution,
// including the mangled-then-bare lookup order).
func (ta *TypeAssign) visitSimple(n *SimpleStmt) error {
	switch n.Tok {
	case TokInt:
		n.SetValueID(ta.ctx.Values.Intern(&IntVal{Val: n.Payload.Int, Contains_: ContainsPerma}))
		n.SetCastTo(typePtr(intLiteralType(n.Payload.Int)))
	case TokFlt:
		n.SetValueID(ta.ctx.Values.Intern(&FltVal{Val: n.Payload.Flt, Contains_: ContainsPerma}))
		n.SetCastTo(typePtr(NewFltType(32)))
	case TokStr, TokAtom:
		n.SetValueID(ta.ctx.Values.Intern(NewStringVec(n.Payload.Str, ContainsPerma)))
		n.SetCastTo(typePtr(Type(NewPtrType(NewIntType(8, false), len(n.Payload.Str), false))))
	case TokChar:
		var b byte
		if len(n.Payload.Str) > 0 {
			b = n.Payload.Str[0]
		}
		n.SetValueID(ta.ctx.Values.Intern(&IntVal{Val: int64(b), Contains_: ContainsPerma}))
		n.SetCastTo(typePtr(NewIntType(8, true)))
	case TokTrue, TokFalse:
		iv := int64(0)
		if n.Tok == TokTrue {
			iv = 1
		}
		n.SetValueID(ta.ctx.Values.Intern(&IntVal{Val: iv, Contains_: ContainsPerma}))
		n.SetCastTo(typePtr(NewIntType(1, false)))
	case TokNil:
		n.SetValueID(ta.ctx.Values.Intern(&VecVal{Contains_: ContainsPerma}))
		n.SetCastTo(typePtr(Type(NewPtrType(NewVoidType(), 1, false))))
	case TokIdent:
		return ta.resolveIdent(n)
	default:
		return ta.errf(n.Loc(), "unhandled literal kind")
	}
	return nil
}

// resolveIdent implements the mangled-name-first lookup order:
// `<name>_<moduleId>` is tried before the bare name, so a local
// re-declaration can never silently shadow an imported symbol's
// mangled form (spec.md §4.5 "Member access"/name resolution).
func (ta *TypeAssign) resolveIdent(n *SimpleStmt) error {
	mangled := fmt.Sprintf("%s_%d", n.Name, ta.moduleID)
	if id, decl, ok := ta.scope.Lookup(mangled); ok {
		n.SetValueID(id)
		if decl != nil {
			n.SetCastTo(typePtr(ta.typeOfStmt(decl)))
		}
		return nil
	}
	if id, decl, ok := ta.scope.Lookup(n.Name); ok {
		n.SetValueID(id)
		if decl != nil {
			n.SetCastTo(typePtr(ta.typeOfStmt(decl)))
		}
		return nil
	}
	return ta.errf(n.Loc(), "undeclared identifier '%s'", n.Name)
}

// resolveTypeArg resolves s as a type-producing expression (either
// already a TypeStmt from the parser's primitive keywords, or a name
// that evaluates to a TypeVal).
func (ta *TypeAssign) resolveTypeArg(s Stmt) (Type, error) {
	if ts, ok := s.(*TypeStmt); ok {
		return *ts.Ty, nil
	}
	resolved, err := ta.resolveNode(s)
	if err != nil {
		return nil, err
	}
	if ts, ok := resolved.(*TypeStmt); ok {
		return *ts.Ty, nil
	}
	if v := ta.valueOf(resolved); v != nil {
		if tv, ok := v.(*TypeVal); ok {
			return tv.Ty, nil
		}
	}
	return nil, ta.errf(s.Loc(), "expected a type expression")
}

// visitVarDecl binds every VarStmt it contains into the current scope
// frame, mangling the name with the owning module id unless the
// declaration already carries a mangled name (re-visited import
// splice).
func (ta *TypeAssign) visitVarDecl(d *VarDeclStmt) error {
	for _, v := range d.Vars {
		if err := ta.visitVar(v); err != nil {
			return err
		}
	}
	// A declaration binding only @import namespaces is marked so that
	// Simplify strips it once member accesses have been resolved.
	d.IsImport = len(d.Vars) > 0
	for _, v := range d.Vars {
		if _, ok := ta.ctx.Values.Get(v.ValueID()).(*NamespaceVal); !ok {
			d.IsImport = false
		}
	}
	return nil
}

// visitVar resolves an explicit `in <expr>` type expression first (so
// `let n in T = fn...` can inject T's `self` receiver before the
// function literal itself is type-assigned), then the value
// expression, then binds the mangled and bare names (spec.md §4.5
// name mangling, §3.4 "Let-in").
func (ta *TypeAssign) visitVar(v *VarStmt) error {
	if v.TypeExpr != nil && v.InType == nil {
		ownerTy, err := ta.resolveTypeArg(v.TypeExpr)
		if err != nil {
			return err
		}
		v.InType = typePtr(ownerTy)
		if fn, ok := v.Val.(*FnDefStmt); ok {
			injectSelfParam(ta.ctx, fn, ownerTy)
		}
	}
	if v.Val != nil {
		resolved, err := ta.resolveNode(v.Val)
		if err != nil {
			return err
		}
		v.Val = resolved
		v.SetValueID(v.Val.ValueID())
		v.SetCastTo(typePtr(ta.typeOfStmt(v.Val)))
	} else if v.InType != nil {
		dv, err := ta.ctx.Types.ToDefaultValue(ta.ctx.Values, *v.InType, ContainsFalse, 0)
		if err != nil {
			return ta.errf(v.Loc(), "%v", err)
		}
		v.SetValueID(ta.ctx.Values.Intern(dv))
		v.SetCastTo(v.InType)
	}
	if !v.AppliedModuleID {
		v.MangledName = fmt.Sprintf("%s_%d", v.Name, ta.moduleID)
		v.AppliedModuleID = true
	}
	if v.InType != nil {
		if _, ok := ta.valueOf(v).(*FuncVal); ok {
			if !ta.scope.DeclareTypeFn(*v.InType, v.Name, v.ValueID()) {
				return ta.errf(v.Loc(), "duplicate member function '%s'", v.Name)
			}
			return nil
		}
	}
	if !ta.scope.Declare(v.MangledName, v.ValueID(), v) {
		return ta.errf(v.Loc(), "duplicate declaration of '%s'", v.Name)
	}
	ta.scope.Declare(v.Name, v.ValueID(), v)
	return nil
}

// injectSelfParam gives a `let n in Type = fn(...) {...}` member
// function an implicit first parameter binding the receiver
// (spec.md §3.4 "Let-in").
func injectSelfParam(ctx *Context, fn *FnDefStmt, owner Type) {
	self := &VarStmt{StmtBase: newBase(ctx, KindVar, fn.Loc()), Name: "self"}
	ptrTy := Type(NewPtrType(owner, 1, false))
	self.InType = &ptrTy
	if len(fn.Sig.Params) == 0 {
		fn.Sig.Params = []*VarDeclStmt{{StmtBase: newBase(ctx, KindVarDecl, fn.Loc())}}
	}
	fn.Sig.Params[0].Vars = append([]*VarStmt{self}, fn.Sig.Params[0].Vars...)
}

// visitFnDef resolves the signature's parameter and return types,
// declares the function itself (so it can recurse and so siblings can
// call it forward), then visits the body in a fresh function frame.
// A template signature is deferred: its body is only visited once per
// call-site specialization (spec.md §4.5.1).
func (ta *TypeAssign) visitFnDef(f *FnDefStmt) error {
	sigTy, err := ta.buildSig(f.Sig)
	if err != nil {
		return err
	}
	f.Sig.SigType = typePtr(sigTy)
	fv := &FuncVal{Ty: sigTy, Def: f, Contains_: ContainsPerma}
	f.SetValueID(ta.ctx.Values.Intern(fv))
	if f.Name != "" {
		mangled := fmt.Sprintf("%s_%d", f.Name, ta.moduleID)
		ta.scope.Declare(mangled, f.ValueID(), f)
		ta.scope.Declare(f.Name, f.ValueID(), f)
	}
	if f.Sig.IsTemplate {
		return nil // body visited lazily at each specialization
	}
	return ta.visitFnBody(f, sigTy)
}

func (ta *TypeAssign) visitFnBody(f *FnDefStmt, sigTy *FuncType) error {
	ta.scope.PushFunction()
	defer ta.scope.PopFunction()
	f.Sig.ParamValueIDs = make([]ValueID, len(sigTy.ArgNames))
	for i, pname := range sigTy.ArgNames {
		pv := ta.ctx.Values.Intern(&VoidVal{})
		if dv, err := ta.ctx.Types.ToDefaultValue(ta.ctx.Values, sigTy.ArgTypes[i], ContainsFalse, 0); err == nil {
			ta.ctx.Values.Set(pv, dv)
		}
		ta.scope.Declare(pname, pv, nil)
		f.Sig.ParamValueIDs[i] = pv
	}
	ta.fnStack = append(ta.fnStack, f)
	defer func() { ta.fnStack = ta.fnStack[:len(ta.fnStack)-1] }()
	return ta.visitBlock(f.Body)
}

// paramType resolves a parameter's declared type: already-bound
// InType (used for the injected `self` receiver), an explicit
// `in <expr>`, or `any` when no type was written at all (spec.md
// §4.3 createCall treats an untyped/`any` parameter as the template
// marker).
func paramType(ta *TypeAssign, v *VarStmt) (Type, error) {
	if v.InType != nil {
		return *v.InType, nil
	}
	if v.TypeExpr == nil {
		return NewAnyType(), nil
	}
	return ta.resolveTypeArg(v.TypeExpr)
}

func (ta *TypeAssign) buildSig(sig *FnSigStmt) (*FuncType, error) {
	ft := &FuncType{}
	for _, decl := range sig.Params {
		for _, v := range decl.Vars {
			pt, err := paramType(ta, v)
			if err != nil {
				return nil, err
			}
			v.InType = typePtr(pt)
			ft.ArgNames = append(ft.ArgNames, v.Name)
			ft.ArgTypes = append(ft.ArgTypes, pt)
			ft.ArgComptime = append(ft.ArgComptime, v.Mask().Has(MaskComptime))
			ft.ArgRef = append(ft.ArgRef, v.Mask().Has(MaskRef))
			if _, isAny := pt.(*AnyType); isAny {
				sig.IsTemplate = true
			}
		}
	}
	if sig.Variadic {
		ft.IsVariadic = true
		ft.ArgNames = append(ft.ArgNames, sig.VariadicName)
		ft.ArgTypes = append(ft.ArgTypes, &VariadicType{})
	}
	if sig.RetTypeExpr != nil {
		rt, err := ta.resolveTypeArg(sig.RetTypeExpr)
		if err != nil {
			return nil, err
		}
		ft.Ret = rt
	} else {
		ft.Ret = NewAnyType()
	}
	if sig.Intrinsic != nil {
		ft.Intrinsic = sig.Intrinsic
		ft.IntrinType = sig.Intrinsic.Tag
	}
	return ft, nil
}

func (ta *TypeAssign) visitStruct(s *StructStmt) error {
	st := &StructType{Name: s.Name, FieldNames: append([]string{}, s.FieldNames...), IsExtern: s.IsExtern, TemplateNames: append([]string{}, s.TemplateNames...)}
	for range s.TemplateNames {
		st.Templates = append(st.Templates, ta.ctx.Types.NewTypeTyHole())
	}
	ta.scope.PushBlock()
	for i, tn := range s.TemplateNames {
		sv := &VarStmt{}
		id := ta.ctx.Values.Intern(&TypeVal{Ty: st.Templates[i], Contains_: ContainsPerma})
		ta.scope.Declare(tn, id, sv)
	}
	for _, ft := range s.FieldTypes {
		t, err := ta.resolveTypeArg(ft)
		if err != nil {
			ta.scope.PopBlock()
			return err
		}
		st.FieldTypes = append(st.FieldTypes, t)
	}
	ta.scope.PopBlock()
	s.Ty = typePtr(st)
	id := ta.ctx.Values.Intern(&TypeVal{Ty: st, Contains_: ContainsPerma})
	s.SetValueID(id)
	ta.scope.Declare(s.Name, id, s)
	return nil
}

func (ta *TypeAssign) visitEnum(e *EnumStmt) error {
	et := NewIntType(64, true)
	e.Ty = typePtr(Type(et))
	next := int64(0)
	for i, tag := range e.Tags {
		if e.Values[i] != nil {
			resolved, err := ta.resolveNode(e.Values[i])
			if err != nil {
				return err
			}
			e.Values[i] = resolved
			if iv, ok := ta.valueOf(resolved).(*IntVal); ok {
				next = iv.Val
			}
		}
		id := ta.ctx.Values.Intern(&IntVal{Val: next, Contains_: ContainsPerma})
		ta.scope.Declare(fmt.Sprintf("%s.%s", e.Name, tag), id, e)
		next++
	}
	return nil
}

func (ta *TypeAssign) visitExtern(ex *ExternStmt) error {
	sigTy, err := ta.buildSig(ex.Sig)
	if err != nil {
		return err
	}
	sigTy.IsExtern = true
	ex.Sig.SigType = typePtr(sigTy)
	fv := &FuncVal{Ty: sigTy, Contains_: ContainsPerma}
	ex.SetValueID(ta.ctx.Values.Intern(fv))
	mangled := fmt.Sprintf("%s_%d", ex.Name, ta.moduleID)
	ta.scope.Declare(mangled, ex.ValueID(), ex)
	ta.scope.Declare(ex.Name, ex.ValueID(), ex)
	return nil
}

// visitExpr rewrites operator expressions into a call against the
// left operand's `__op__` member function, falling back to a seeded
// primitive operator (spec.md §4.5 operator-to-call rewriting).
func (ta *TypeAssign) visitExpr(e *ExprStmt) error {
	if e.Op == TokDot || e.Op == TokArrow {
		return ta.visitMember(e)
	}
	lhs, err := ta.resolveNode(e.Lhs)
	if err != nil {
		return err
	}
	e.Lhs = lhs
	if e.Rhs != nil {
		rhs, err := ta.resolveNode(e.Rhs)
		if err != nil {
			return err
		}
		e.Rhs = rhs
	}
	if assignOps[e.Op] {
		return ta.visitAssign(e)
	}
	lt := ta.typeOfStmt(e.Lhs)
	opName := operatorMemberName(e.Op, e.Prefix)
	if opName == "" {
		e.SetValueID(e.Lhs.ValueID())
		e.SetCastTo(typePtr(lt))
		return nil
	}
	// Primitive arithmetic/compare coercion: between two primitives,
	// cast the inferior side up to the superior type before dispatch
	// (spec.md §4.5 "Comparison/arithmetic coercion").
	dispatchTy := lt
	if e.Rhs != nil {
		rt := ta.typeOfStmt(e.Rhs)
		if isPrimitiveNumeric(lt) && isPrimitiveNumeric(rt) {
			superior := pickSuperiorType(lt, rt)
			if ta.ctx.Types.ID(superior) != ta.ctx.Types.ID(lt) {
				e.Lhs.SetCastTo(typePtr(superior))
			}
			if ta.ctx.Types.ID(superior) != ta.ctx.Types.ID(rt) {
				e.Rhs.SetCastTo(typePtr(superior))
			}
			dispatchTy = superior
		}
	}
	if fnID, ok := ta.scope.TypeFn(dispatchTy, opName); ok {
		return ta.dispatchOperator(e, fnID)
	}
	return ta.errf(e.Loc(), "type %s has no operator '%s'", dispatchTy.String(), opName)
}

// isPrimitiveNumeric reports whether t is an Int or Flt type (spec.md
// §4.5's coercion rule only ever applies between two primitives).
func isPrimitiveNumeric(t Type) bool {
	switch t.(type) {
	case *IntType, *FltType:
		return true
	default:
		return false
	}
}

// pickSuperiorType implements spec.md §4.5's "choose a superior
// type" rule: float beats int, wider beats narrower, unsigned beats
// signed at the same width.
func pickSuperiorType(a, b Type) Type {
	af, aIsFlt := a.(*FltType)
	bf, bIsFlt := b.(*FltType)
	switch {
	case aIsFlt && bIsFlt:
		if af.Bits >= bf.Bits {
			return a
		}
		return b
	case aIsFlt:
		return a
	case bIsFlt:
		return b
	}
	ai, aok := a.(*IntType)
	bi, bok := b.(*IntType)
	if !aok || !bok {
		return a
	}
	if ai.Bits != bi.Bits {
		if ai.Bits > bi.Bits {
			return a
		}
		return b
	}
	if ai.Signed != bi.Signed {
		if !ai.Signed {
			return a
		}
		return b
	}
	return a
}

func (ta *TypeAssign) visitAssign(e *ExprStmt) error {
	e.SetValueID(e.Lhs.ValueID())
	e.SetCastTo(typePtr(ta.typeOfStmt(e.Lhs)))
	if e.Op == TokAssign {
		ta.ctx.Values.Set(e.Lhs.ValueID(), ta.valueOf(e.Rhs))
	}
	return nil
}

func (ta *TypeAssign) visitMember(e *ExprStmt) error {
	lhs, err := ta.resolveNode(e.Lhs)
	if err != nil {
		return err
	}
	e.Lhs = lhs
	rhsName, ok := e.Rhs.(*SimpleStmt)
	if !ok {
		return ta.errf(e.Loc(), "member access expects an identifier")
	}
	if ns, ok := ta.valueOf(e.Lhs).(*NamespaceVal); ok {
		mangled := fmt.Sprintf("%s_%d", rhsName.Name, ns.ModuleID)
		if id, decl, ok := ta.scope.Lookup(mangled); ok {
			e.SetValueID(id)
			if decl != nil {
				e.SetCastTo(typePtr(ta.typeOfStmt(decl)))
			}
			return nil
		}
		return ta.errf(e.Loc(), "'%s' is not declared in module '%s'", rhsName.Name, ns.ModuleTag)
	}
	lt := ta.typeOfStmt(e.Lhs)
	if st, ok := lt.(*StructType); ok {
		for i, fn := range st.FieldNames {
			if fn == rhsName.Name {
				e.SetCastTo(typePtr(st.FieldTypes[i]))
				if sv, ok := ta.valueOf(e.Lhs).(*StructVal); ok {
					e.SetValueID(ta.ctx.Values.Intern(sv.Fields[fn]))
				}
				return nil
			}
		}
	}
	if fnID, ok := ta.scope.TypeFn(lt, rhsName.Name); ok {
		e.SetValueID(fnID)
		if fv, ok := ta.ctx.Values.Get(fnID).(*FuncVal); ok {
			e.SetCastTo(typePtr(Type(fv.Ty)))
		}
		return nil
	}
	return ta.errf(e.Loc(), "type %s has no member '%s'", lt.String(), rhsName.Name)
}

func operatorMemberName(op TokenKind, prefix bool) string {
	switch op {
	case TokPlus:
		return "__add__"
	case TokMinus:
		if prefix {
			return "__neg__"
		}
		return "__sub__"
	case TokStar:
		if prefix {
			return "__deref__"
		}
		return "__mul__"
	case TokSlash:
		return "__div__"
	case TokPercent:
		return "__mod__"
	case TokAmp:
		if prefix {
			return "__addr__"
		}
		return "__and__"
	case TokPipe:
		return "__or__"
	case TokCaret:
		return "__xor__"
	case TokShl:
		return "__shl__"
	case TokShr:
		return "__shr__"
	case TokEq:
		return "__eq__"
	case TokNeq:
		return "__ne__"
	case TokLt:
		return "__lt__"
	case TokGt:
		return "__gt__"
	case TokLe:
		return "__le__"
	case TokGe:
		return "__ge__"
	case TokBang:
		return "__not__"
	case TokTilde:
		return "__bnot__"
	case TokLBracket:
		return "__index__"
	case TokPlusPlus:
		return "__inc__"
	case TokMinusMinus:
		return "__dec__"
	}
	return ""
}

// dispatchOperator runs the resolved operator member function as an
// ordinary call, bumping its `used` counter the same as a
// syntactically explicit call (SPEC_FULL.md supplemented semantics).
func (ta *TypeAssign) dispatchOperator(e *ExprStmt, fnID ValueID) error {
	args := []Stmt{e.Lhs}
	if e.Rhs != nil {
		args = append(args, e.Rhs)
	}
	return ta.callResolved(e, fnID, args)
}

// visitCall handles an ordinary call after its callee and arguments
// have already been resolved by resolveNode/visitExpr. Intrinsic
// dispatch happens earlier, in resolveNode.
func (ta *TypeAssign) visitCall(c *CallInfoStmt) error {
	callee, err := ta.resolveNode(c.Callee)
	if err != nil {
		return err
	}
	c.Callee = callee
	for i, a := range c.Args {
		resolved, err := ta.resolveNode(a)
		if err != nil {
			return err
		}
		c.Args[i] = resolved
	}
	return ta.callResolved(c, c.Callee.ValueID(), c.Args)
}

// callResolved binds a call site (whether written as `f(x)` or
// rewritten from an operator) to the callee's FuncType, instantiating
// a template specialization on first use of a given argument shape,
// binding comptime parameters through ValueAssign, and bumping the
// target's `used` counter (spec.md §4.5, §4.5.1, §4.6).
func (ta *TypeAssign) callResolved(site Stmt, calleeID ValueID, args []Stmt) error {
	fv, ok := ta.ctx.Values.Get(calleeID).(*FuncVal)
	if !ok {
		return ta.errf(site.Loc(), "call target is not a function")
	}
	argTypes := make([]Type, len(args))
	for i, a := range args {
		argTypes[i] = ta.typeOfStmt(a)
	}

	// createCall always runs, producing a specialized clone even for an
	// ordinary non-template function (spec.md §4.5 "Calls").
	spec, ok := ta.ctx.Types.CreateCall(fv.Ty, argTypes)
	if !ok {
		return ta.errf(site.Loc(), "no matching specialization for call")
	}

	// A comptime-marked parameter is evaluated through the value pass
	// right away so its concrete value is available to template
	// instantiation and to any IPARSE intrinsic this call dispatches to
	// (spec.md §4.5 "Calls").
	for i, a := range args {
		if i < len(spec.ArgComptime) && spec.ArgComptime[i] {
			v, err := ta.valueAssign.Eval(a)
			if err != nil {
				return ta.errf(a.Loc(), "comptime argument error: %v", err)
			}
			a.SetValueID(ta.ctx.Values.Intern(v))
		}
	}

	if fv.Def != nil {
		fv.Def.Used++
		if fv.Def.Sig.IsTemplate {
			dedupeKey := fmt.Sprintf("%s:%x", fv.Def.Name, spec.TemplateID)
			if _, inFlight := ta.templatesInFlight[dedupeKey]; !inFlight {
				ta.templatesInFlight[dedupeKey] = true
				if err := ta.instantiateTemplate(fv.Def, spec); err != nil {
					delete(ta.templatesInFlight, dedupeKey)
					return err
				}
			}
		}
	}

	// The call site's own value is the default value of the return
	// type; ValueAssign recomputes the real value on demand rather
	// than TypeAssign eagerly interpreting every call (spec.md §4.5
	// "set the expression's result value to the default value of the
	// return type").
	dv, err := ta.ctx.Types.ToDefaultValue(ta.ctx.Values, spec.Ret, ContainsFalse, 0)
	if err != nil {
		return ta.errf(site.Loc(), "%v", err)
	}
	site.SetValueID(ta.ctx.Values.Intern(dv))
	site.SetCastTo(typePtr(spec.Ret))
	return nil
}

// instantiateTemplate clones a template function's body once per
// distinct specialization, binds its now-concrete parameter types,
// visits the clone under the specialized signature, and appends the
// clone to additionalTop so Simplify/Cleanup and code generation see
// it as an ordinary, fully resolved function (spec.md §4.5.1).
func (ta *TypeAssign) instantiateTemplate(tmpl *FnDefStmt, spec *FuncType) error {
	clone := CloneStmt(ta.ctx, tmpl).(*FnDefStmt)
	clone.Name = fmt.Sprintf("%s__spec%d", tmpl.Name, spec.SpecID)
	clone.Sig.IsTemplate = false
	clone.Sig.SigType = typePtr(Type(spec))

	idx := 0
	for _, decl := range clone.Sig.Params {
		for _, v := range decl.Vars {
			if idx < len(spec.ArgTypes) {
				v.InType = typePtr(spec.ArgTypes[idx])
			}
			idx++
		}
	}

	fv := &FuncVal{Ty: spec, Def: clone, Contains_: ContainsPerma}
	clone.SetValueID(ta.ctx.Values.Intern(fv))
	mangled := fmt.Sprintf("%s_%d", clone.Name, ta.moduleID)
	ta.scope.Declare(mangled, clone.ValueID(), clone)
	if err := ta.visitFnBody(clone, spec); err != nil {
		return err
	}
	ta.additionalTop = append(ta.additionalTop, clone)
	return nil
}

// visitCond resolves every case's condition; `inline if` is left for
// Simplify to collapse once the condition's comptime value is known
// (spec.md §4.5, §4.7).
func (ta *TypeAssign) visitCond(c *CondStmt) error {
	for i := range c.Cases {
		if c.Cases[i].Cond != nil {
			resolved, err := ta.resolveNode(c.Cases[i].Cond)
			if err != nil {
				return err
			}
			c.Cases[i].Cond = resolved
		}
		if err := ta.visitBlock(c.Cases[i].Block); err != nil {
			return err
		}
	}
	return nil
}

func (ta *TypeAssign) visitFor(f *ForStmt) error {
	ta.scope.PushBlock()
	defer ta.scope.PopBlock()
	if f.Init != nil {
		if err := ta.visit(f.Init); err != nil {
			return err
		}
	}
	if f.Cond != nil {
		resolved, err := ta.resolveNode(f.Cond)
		if err != nil {
			return err
		}
		f.Cond = resolved
	}
	if f.Incr != nil {
		resolved, err := ta.resolveNode(f.Incr)
		if err != nil {
			return err
		}
		f.Incr = resolved
	}
	return ta.visitBlock(f.Body)
}

// visitReturn resolves the return expression and, on a function whose
// declared return type is `any`, fixes the function's return type to
// the shape of its first concrete return (spec.md §4.5 "Any-return
// rewrite-on-first-return").
func (ta *TypeAssign) visitReturn(r *ReturnStmt) error {
	if r.Expr == nil {
		return nil
	}
	resolved, err := ta.resolveNode(r.Expr)
	if err != nil {
		return err
	}
	r.Expr = resolved
	if len(ta.fnStack) == 0 {
		return nil
	}
	fn := ta.fnStack[len(ta.fnStack)-1]
	if fn.Sig.SigType == nil {
		return nil
	}
	ft := (*fn.Sig.SigType).(*FuncType)
	if _, isAny := ft.Ret.(*AnyType); isAny {
		ft.Ret = ta.typeOfStmt(r.Expr)
	} else if ok, _ := ta.ctx.Types.IsCompatible(ft.Ret, ta.typeOfStmt(r.Expr)); !ok {
		return ta.errf(r.Loc(), "return type mismatch in '%s'", fn.Name)
	}
	return nil
}
