package scribec

import "fmt"

// ValueAssign is the comptime interpreter (spec.md §4.6). It walks
// the same Stmt graph TypeAssign already resolved rather than
// lowering to a second representation, reusing the shared ScopeStack
// (and, through it, the ValueRegistry ids that parameter identifiers
// inside a function body were already resolved to) so binding an
// argument at call time is a plain ctx.Values.Set at that id.
type ValueAssign struct {
	ctx   *Context
	scope *ScopeStack

	maxDepth int
	depth    int

	// returning/breaking/continuing unwind through enclosing blocks
	// exactly as described in spec.md §4.6; For loops consume
	// breaking/continuing, function calls consume returning.
	returning   bool
	returnValue Value
	breaking    bool
	continuing  bool
}

// NewValueAssign builds a comptime interpreter sharing ctx and scope
// with the owning TypeAssign pass. maxDepth bounds runaway comptime
// recursion with a diagnostic rather than a Go stack overflow
// (SPEC_FULL.md's supplemented "Comptime recursion-depth guard").
func NewValueAssign(ctx *Context, scope *ScopeStack, maxDepth int) *ValueAssign {
	if maxDepth <= 0 {
		maxDepth = 2048
	}
	return &ValueAssign{ctx: ctx, scope: scope, maxDepth: maxDepth}
}

// Eval interprets s and returns its value, applying any CastTo
// coercion TypeAssign recorded on it (spec.md §4.5's arithmetic
// coercion feeds back into §4.6's interpreter through this cast).
func (va *ValueAssign) Eval(s Stmt) (Value, error) {
	if s == nil {
		return &VoidVal{}, nil
	}
	v, err := va.eval(s)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = &VoidVal{}
	}
	if ct := s.CastTo(); ct != nil {
		v = castValue(v, *ct)
	}
	return v, nil
}

// castValue re-represents v under t when both are primitive numeric
// kinds (the only coercion TypeAssign ever imposes); every other
// combination passes v through unchanged; e.g. a pointer CastTo is a
// reinterpretation the backend handles, not a value-assign concern.
func castValue(v Value, t Type) Value {
	switch tt := t.(type) {
	case *IntType:
		if iv, ok := v.(*IntVal); ok {
			return &IntVal{Val: truncateInt(iv.Val, tt.Bits, tt.Signed), Contains_: iv.Contains_}
		}
		if fv, ok := v.(*FltVal); ok {
			return &IntVal{Val: truncateInt(int64(fv.Val), tt.Bits, tt.Signed), Contains_: fv.Contains_}
		}
	case *FltType:
		if fv, ok := v.(*FltVal); ok {
			return &FltVal{Val: fv.Val, Contains_: fv.Contains_}
		}
		if iv, ok := v.(*IntVal); ok {
			return &FltVal{Val: float64(iv.Val), Contains_: iv.Contains_}
		}
	}
	return v
}

func truncateInt(v int64, bits int, signed bool) int64 {
	if bits >= 64 {
		return v
	}
	mask := int64(1)<<uint(bits) - 1
	v &= mask
	if signed && v&(int64(1)<<uint(bits-1)) != 0 {
		v -= int64(1) << uint(bits)
	}
	return v
}

func (va *ValueAssign) eval(s Stmt) (Value, error) {
	switch n := s.(type) {
	case *SimpleStmt, *TypeStmt:
		return va.ctx.Values.Get(s.ValueID()), nil
	case *ExprStmt:
		return va.evalExpr(n)
	case *CallInfoStmt:
		return va.evalCall(n)
	case *VarStmt:
		return va.evalVar(n)
	case *VarDeclStmt:
		for _, v := range n.Vars {
			if _, err := va.evalVar(v); err != nil {
				return nil, err
			}
		}
		return &VoidVal{}, nil
	case *BlockStmt:
		return va.evalBlock(n)
	case *CondStmt:
		return va.evalCond(n)
	case *ForStmt:
		return va.evalFor(n)
	case *ReturnStmt:
		return va.evalReturn(n)
	case *ContinueStmt:
		va.continuing = true
		return &VoidVal{}, nil
	case *BreakStmt:
		va.breaking = true
		return &VoidVal{}, nil
	default:
		return va.ctx.Values.Get(s.ValueID()), nil
	}
}

// evalBlock runs every statement in order, stopping early once a
// return/break/continue flag is raised so the flag can unwind through
// the enclosing block unchanged (spec.md §4.6).
func (va *ValueAssign) evalBlock(b *BlockStmt) (Value, error) {
	var last Value = &VoidVal{}
	for _, s := range b.Stmts {
		v, err := va.eval(s)
		if err != nil {
			return nil, err
		}
		last = v
		if va.returning || va.breaking || va.continuing {
			break
		}
	}
	return last, nil
}

func (va *ValueAssign) evalVar(v *VarStmt) (Value, error) {
	if v.Val == nil {
		return va.ctx.Values.Get(v.ValueID()), nil
	}
	val, err := va.Eval(v.Val)
	if err != nil {
		return nil, err
	}
	va.ctx.Values.Set(v.ValueID(), val)
	return val, nil
}

// evalExpr re-derives the same operator dispatch TypeAssign performed
// to compute the expression's type, this time to actually run the
// operation: member access was already collapsed to a plain value
// reference by TypeAssign, so only operator rewriting and assignment
// need interpreting here.
func (va *ValueAssign) evalExpr(e *ExprStmt) (Value, error) {
	if e.Op == TokDot || e.Op == TokArrow {
		return va.ctx.Values.Get(e.ValueID()), nil
	}
	if assignOps[e.Op] {
		return va.evalAssign(e)
	}
	lv, err := va.Eval(e.Lhs)
	if err != nil {
		return nil, err
	}
	var rv Value
	if e.Rhs != nil {
		rv, err = va.Eval(e.Rhs)
		if err != nil {
			return nil, err
		}
	}
	opName := operatorMemberName(e.Op, e.Prefix)
	if opName == "" {
		return lv, nil
	}
	lt := typeOfValue(lv)
	if e.Lhs != nil && e.Lhs.CastTo() != nil {
		lt = *e.Lhs.CastTo()
	}
	fnID, ok := va.scope.TypeFn(lt, opName)
	if !ok {
		return nil, fmt.Errorf("value-assign: type %s has no operator '%s'", lt.String(), opName)
	}
	args := []Value{lv}
	if rv != nil {
		args = append(args, rv)
	}
	return va.callFuncValue(fnID, args)
}

// evalAssign computes the right-hand value (applying the compound
// operator first, e.g. `+=`), writes it through the left-hand side's
// ValueID, and returns it as the expression's own value.
func (va *ValueAssign) evalAssign(e *ExprStmt) (Value, error) {
	rv, err := va.Eval(e.Rhs)
	if err != nil {
		return nil, err
	}
	if e.Op != TokAssign {
		lv, err := va.Eval(e.Lhs)
		if err != nil {
			return nil, err
		}
		opName := compoundAssignOp(e.Op)
		lt := typeOfValue(lv)
		fnID, ok := va.scope.TypeFn(lt, opName)
		if !ok {
			return nil, fmt.Errorf("value-assign: type %s has no operator '%s'", lt.String(), opName)
		}
		rv, err = va.callFuncValue(fnID, []Value{lv, rv})
		if err != nil {
			return nil, err
		}
	}
	va.ctx.Values.Set(e.Lhs.ValueID(), rv)
	if rf, ok := va.ctx.Values.Get(e.Lhs.ValueID()).(*RefVal); ok {
		rf.Pointee = rv
	}
	return rv, nil
}

func compoundAssignOp(op TokenKind) string {
	switch op {
	case TokPlusEq:
		return "__add__"
	case TokMinusEq:
		return "__sub__"
	case TokStarEq:
		return "__mul__"
	case TokSlashEq:
		return "__div__"
	case TokPercentEq:
		return "__mod__"
	case TokAmpEq:
		return "__and__"
	case TokPipeEq:
		return "__or__"
	case TokCaretEq:
		return "__xor__"
	case TokShlEq:
		return "__shl__"
	case TokShrEq:
		return "__shr__"
	}
	return ""
}

// evalCall evaluates every argument, dispatches to either a seeded
// IVALUE intrinsic or a user function body, and writes the result
// back through any Ref-masked parameter to the caller's original
// argument value (spec.md §4.6: "Reference parameters write back to
// the caller's values").
func (va *ValueAssign) evalCall(c *CallInfoStmt) (Value, error) {
	fv, ok := va.ctx.Values.Get(c.Callee.ValueID()).(*FuncVal)
	if !ok {
		// Already collapsed to a concrete value by an IPARSE intrinsic
		// (e.g. @sizeOf, @typeOf): nothing left to interpret.
		return va.ctx.Values.Get(c.ValueID()), nil
	}
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := va.Eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	result, err := va.callFuncValue2(fv, args)
	if err != nil {
		return nil, err
	}
	if fv.Def != nil {
		for i, isRef := range fv.Ty.ArgRef {
			if !isRef || i >= len(c.Args) || i >= len(fv.Def.Sig.ParamValueIDs) {
				continue
			}
			final := va.ctx.Values.Get(fv.Def.Sig.ParamValueIDs[i])
			va.ctx.Values.Set(c.Args[i].ValueID(), final)
		}
	}
	return result, nil
}

func (va *ValueAssign) callFuncValue(fnID ValueID, args []Value) (Value, error) {
	fv, ok := va.ctx.Values.Get(fnID).(*FuncVal)
	if !ok {
		return nil, fmt.Errorf("value-assign: callee is not a function")
	}
	return va.callFuncValue2(fv, args)
}

func (va *ValueAssign) callFuncValue2(fv *FuncVal, args []Value) (Value, error) {
	if fv.Ty.Intrinsic != nil && fv.Ty.IntrinType == IVALUE {
		return fv.Ty.Intrinsic.Value(va, args)
	}
	if fv.Def != nil {
		return va.callUserFunction(fv.Def, fv.Ty, args)
	}
	return va.ctx.Types.ToDefaultValue(va.ctx.Values, fv.Ty.Ret, ContainsFalse, 0)
}

// callUserFunction binds args to the function's already-interned
// parameter ValueIDs, saving/restoring the previous contents so
// reentrant and recursive comptime calls don't clobber an
// in-progress outer call's locals (spec.md §4.6, and the
// recursion-depth guard from SPEC_FULL.md).
func (va *ValueAssign) callUserFunction(def *FnDefStmt, ty *FuncType, args []Value) (Value, error) {
	va.depth++
	if va.depth > va.maxDepth {
		va.depth--
		return nil, fmt.Errorf("comptime call depth exceeded %d in '%s'", va.maxDepth, def.Name)
	}
	defer func() { va.depth-- }()

	ids := def.Sig.ParamValueIDs
	saved := make([]Value, len(ids))
	for i, id := range ids {
		saved[i] = va.ctx.Values.Get(id)
	}
	fixed := len(ids)
	if ty.IsVariadic {
		fixed--
	}
	for i := 0; i < fixed && i < len(ids); i++ {
		if i < len(args) {
			va.ctx.Values.Set(ids[i], args[i])
		}
	}
	if ty.IsVariadic && fixed >= 0 && fixed < len(ids) {
		rest := []Value{}
		if len(args) > fixed {
			rest = append(rest, args[fixed:]...)
		}
		va.ctx.Values.Set(ids[fixed], &VecVal{Items: rest, Contains_: ContainsTrue})
	}
	defer func() {
		for i, id := range ids {
			va.ctx.Values.Set(id, saved[i])
		}
	}()

	prevReturning, prevReturnValue := va.returning, va.returnValue
	va.returning, va.returnValue = false, nil
	_, err := va.evalBlock(def.Body)
	result := va.returnValue
	va.returning, va.returnValue = prevReturning, prevReturnValue
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &VoidVal{}
	}
	return result, nil
}

// evalCond chooses the first truthy case, matching the plain (not
// inline) if/elif/else runtime semantics (spec.md §4.6). An inline
// if reached during TypeAssign, before Simplify collapses it, is
// evaluated the same way, and an inline for runs as an ordinary loop.
func (va *ValueAssign) evalCond(c *CondStmt) (Value, error) {
	for _, cs := range c.Cases {
		if cs.Cond == nil {
			return va.evalBlock(cs.Block)
		}
		v, err := va.Eval(cs.Cond)
		if err != nil {
			return nil, err
		}
		if isTruthy(v) {
			return va.evalBlock(cs.Block)
		}
	}
	return &VoidVal{}, nil
}

func isTruthy(v Value) bool {
	switch n := v.(type) {
	case *IntVal:
		return n.Val != 0
	case *FltVal:
		return n.Val != 0
	case nil:
		return false
	default:
		return true
	}
}

// evalFor iterates while Cond is truthy, consuming break/continue at
// the loop boundary (spec.md §4.6).
func (va *ValueAssign) evalFor(f *ForStmt) (Value, error) {
	if f.Init != nil {
		if _, err := va.eval(f.Init); err != nil {
			return nil, err
		}
	}
	for {
		if f.Cond != nil {
			cv, err := va.Eval(f.Cond)
			if err != nil {
				return nil, err
			}
			if !isTruthy(cv) {
				break
			}
		}
		if _, err := va.evalBlock(f.Body); err != nil {
			return nil, err
		}
		if va.returning {
			break
		}
		if va.breaking {
			va.breaking = false
			break
		}
		va.continuing = false
		if f.Incr != nil {
			if _, err := va.eval(f.Incr); err != nil {
				return nil, err
			}
		}
	}
	return &VoidVal{}, nil
}

func (va *ValueAssign) evalReturn(r *ReturnStmt) (Value, error) {
	var v Value = &VoidVal{}
	if r.Expr != nil {
		var err error
		v, err = va.Eval(r.Expr)
		if err != nil {
			return nil, err
		}
	}
	va.returning = true
	va.returnValue = v
	return v, nil
}
