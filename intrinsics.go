package scribec

import "fmt"

// typePtr takes a Type's address through an interface-typed local,
// matching StmtBase's *Type fields (castTo, TypeStmt.Ty).
func typePtr(t Type) *Type { return &t }

// IntrinsicDef is a builtin function, modeled as (argument spec, tag,
// handler) per spec.md §9's Design Notes. IPARSE intrinsics run
// during TypeAssign and may rewrite the call site's Stmt; IVALUE
// intrinsics run during ValueAssign and only ever produce a Value.
type IntrinsicDef struct {
	Name string
	Tag  IntrinsicTag

	// Parse runs immediately when TypeAssign resolves a call to this
	// intrinsic. It may return a replacement Stmt for the call site
	// (e.g. `@import` splices in a NamespaceVal-producing node).
	Parse func(ta *TypeAssign, call *CallInfoStmt) (Stmt, error)

	// Value runs when ValueAssign reaches a call dispatched to this
	// intrinsic (including the seeded primitive operators).
	Value func(va *ValueAssign, args []Value) (Value, error)
}

// IntrinsicRegistry is the builtin-function table: parse-time
// (IPARSE) or value-time (IVALUE) (spec.md §2, §4.8's table row 8).
type IntrinsicRegistry struct {
	defs map[string]*IntrinsicDef
}

// NewIntrinsicRegistry returns a registry seeded with the core
// intrinsics named in spec.md §1 and SPEC_FULL.md's recovered list.
func NewIntrinsicRegistry() *IntrinsicRegistry {
	r := &IntrinsicRegistry{defs: map[string]*IntrinsicDef{}}
	r.registerCore()
	return r
}

func (r *IntrinsicRegistry) register(def *IntrinsicDef) { r.defs[def.Name] = def }

// Lookup resolves an `@name` intrinsic call target.
func (r *IntrinsicRegistry) Lookup(name string) (*IntrinsicDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

func (r *IntrinsicRegistry) registerCore() {
	r.register(&IntrinsicDef{Name: "import", Tag: IPARSE, Parse: intrinsicImport})
	r.register(&IntrinsicDef{Name: "sizeOf", Tag: IPARSE, Parse: intrinsicSizeOf})
	r.register(&IntrinsicDef{Name: "typeOf", Tag: IPARSE, Parse: intrinsicTypeOf})
	r.register(&IntrinsicDef{Name: "as", Tag: IPARSE, Parse: intrinsicAs})
	r.register(&IntrinsicDef{Name: "array", Tag: IPARSE, Parse: intrinsicArray})
	r.register(&IntrinsicDef{Name: "compileError", Tag: IPARSE, Parse: intrinsicCompileError})
	r.register(&IntrinsicDef{Name: "isComptime", Tag: IPARSE, Parse: intrinsicIsComptime})
	r.register(&IntrinsicDef{Name: "valueOf", Tag: IPARSE, Parse: intrinsicValueOf})
	r.register(&IntrinsicDef{Name: "ptr", Tag: IPARSE, Parse: intrinsicPtr})
}

// --- @import(path) ---
//
// Recursively loads and type-assigns another module through the
// orchestrator, then collapses the call site into a NamespaceVal
// carrying that module's id (spec.md §4.5 "Member access",
// §4.8 "Orchestrator").
func intrinsicImport(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@import expects exactly one string argument, got %d", len(call.Args))
	}
	pathArg, ok := call.Args[0].(*SimpleStmt)
	if !ok || pathArg.Tok != TokStr {
		return nil, fmt.Errorf("@import's argument must be a string literal")
	}
	modID, err := ta.orch.importModule(ta.moduleID, pathArg.Payload.Str)
	if err != nil {
		return nil, err
	}
	tag := ta.orch.moduleTag(modID)
	nsVal := &NamespaceVal{ModuleTag: tag, ModuleID: modID, Contains_: ContainsPerma}
	id := ta.ctx.Values.Intern(nsVal)
	ns := &SimpleStmt{StmtBase: newBase(ta.ctx, KindSimple, call.Loc()), Tok: TokIdent, Name: tag}
	ns.SetValueID(id)
	return ns, nil
}

// --- @sizeOf(Type|expr) ---
func intrinsicSizeOf(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@sizeOf expects exactly one argument")
	}
	t, err := ta.resolveTypeArg(call.Args[0])
	if err != nil {
		return nil, err
	}
	size := sizeOfType(t)
	out := &SimpleStmt{StmtBase: newBase(ta.ctx, KindSimple, call.Loc()), Tok: TokInt}
	out.SetValueID(ta.ctx.Values.Intern(&IntVal{Val: int64(size), Contains_: ContainsPerma}))
	out.SetCastTo(typePtr(NewIntType(64, false)))
	return out, nil
}

func sizeOfType(t Type) int {
	switch v := t.(type) {
	case *IntType:
		return v.Bits / 8
	case *FltType:
		return v.Bits / 8
	case *VoidType:
		return 0
	case *PtrType:
		return 8
	case *StructType:
		total := 0
		for _, ft := range v.FieldTypes {
			total += sizeOfType(ft)
		}
		return total
	default:
		return 8
	}
}

// --- @typeOf(expr) ---
func intrinsicTypeOf(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@typeOf expects exactly one argument")
	}
	arg := call.Args[0]
	if err := ta.visit(arg); err != nil {
		return nil, err
	}
	t := ta.typeOfStmt(arg)
	out := &TypeStmt{StmtBase: newBase(ta.ctx, KindType, call.Loc()), Ty: typePtr(t)}
	out.SetValueID(ta.ctx.Values.Intern(&TypeVal{Ty: t, Contains_: ContainsPerma}))
	return out, nil
}

// --- @as(expr, Type) ---
func intrinsicAs(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("@as expects exactly two arguments: expr, Type")
	}
	expr := call.Args[0]
	if err := ta.visit(expr); err != nil {
		return nil, err
	}
	target, err := ta.resolveTypeArg(call.Args[1])
	if err != nil {
		return nil, err
	}
	expr.SetCastTo(typePtr(target))
	return expr, nil
}

// --- @array(Type, count) ---
func intrinsicArray(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("@array expects exactly two arguments: Type, count")
	}
	elem, err := ta.resolveTypeArg(call.Args[0])
	if err != nil {
		return nil, err
	}
	countStmt := call.Args[1]
	if err := ta.visit(countStmt); err != nil {
		return nil, err
	}
	cv := ta.ctx.Values.Get(countStmt.ValueID())
	iv, ok := cv.(*IntVal)
	if !ok {
		return nil, fmt.Errorf("@array's count argument must be a compile-time integer")
	}
	arrTy := NewPtrType(elem, int(iv.Val), false)
	out := &TypeStmt{StmtBase: newBase(ta.ctx, KindType, call.Loc()), Ty: typePtr(arrTy)}
	out.SetValueID(ta.ctx.Values.Intern(&TypeVal{Ty: arrTy, Contains_: ContainsPerma}))
	return out, nil
}

// --- @compileError(msg...) ---
//
// A user-driven fatal error (spec.md §1, §7): always reports, never
// recoverable by continuing the subtree.
func intrinsicCompileError(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	msg := ""
	for _, a := range call.Args {
		if s, ok := a.(*SimpleStmt); ok && s.Tok == TokStr {
			msg += s.Payload.Str
		}
	}
	return nil, fmt.Errorf("compileError: %s", msg)
}

// --- @isComptime(expr) ---
func intrinsicIsComptime(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@isComptime expects exactly one argument")
	}
	arg := call.Args[0]
	if err := ta.visit(arg); err != nil {
		return nil, err
	}
	isComptime := arg.Mask().Has(MaskComptime) || ta.ctx.Values.Get(arg.ValueID()) != nil && ta.ctx.Values.Get(arg.ValueID()).Contains() == ContainsPerma
	var iv int64
	if isComptime {
		iv = 1
	}
	out := &SimpleStmt{StmtBase: newBase(ta.ctx, KindSimple, call.Loc()), Tok: TokInt}
	out.SetValueID(ta.ctx.Values.Intern(&IntVal{Val: iv, Contains_: ContainsPerma}))
	out.SetCastTo(typePtr(NewIntType(1, false)))
	return out, nil
}

// --- @valueOf(expr) ---
//
// Forces expr through ValueAssign immediately, at the point where the
// intrinsic call is type-assigned.
func intrinsicValueOf(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@valueOf expects exactly one argument")
	}
	arg := call.Args[0]
	if err := ta.visit(arg); err != nil {
		return nil, err
	}
	v, err := ta.valueAssign.Eval(arg)
	if err != nil {
		return nil, err
	}
	arg.SetValueID(ta.ctx.Values.Intern(v))
	return arg, nil
}

// --- @ptr(expr) ---
func intrinsicPtr(ta *TypeAssign, call *CallInfoStmt) (Stmt, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("@ptr expects exactly one argument")
	}
	arg := call.Args[0]
	if err := ta.visit(arg); err != nil {
		return nil, err
	}
	t := ta.typeOfStmt(arg)
	ptrTy := NewPtrType(t, 1, false)
	out := &ExprStmt{StmtBase: newBase(ta.ctx, KindExpr, call.Loc()), Op: TokAmp, Lhs: arg}
	rv := &RefVal{Pointee: ta.ctx.Values.Get(arg.ValueID()), Contains_: ContainsTrue}
	out.SetValueID(ta.ctx.Values.Intern(rv))
	out.SetCastTo(typePtr(ptrTy))
	return out, nil
}
