package scribec

import "fmt"

// precedence table for binary operators, highest number binds
// tightest (spec.md §4.2's levels 01-17, collapsed to the operators
// this dialect actually has).
var binPrec = map[TokenKind]int{
	TokOrOr: 1, TokAndAnd: 2,
	TokPipe: 3, TokCaret: 4, TokAmp: 5,
	TokEq: 6, TokNeq: 6,
	TokLt: 7, TokGt: 7, TokLe: 7, TokGe: 7,
	TokShl: 8, TokShr: 8,
	TokPlus: 9, TokMinus: 9,
	TokStar: 10, TokSlash: 10, TokPercent: 10,
}

var assignOps = map[TokenKind]bool{
	TokAssign: true, TokPlusEq: true, TokMinusEq: true, TokStarEq: true, TokSlashEq: true,
	TokPercentEq: true, TokAmpEq: true, TokPipeEq: true, TokCaretEq: true, TokShlEq: true, TokShrEq: true,
}

// Parser is a hand-rolled recursive-descent + precedence-climbing
// parser over a flat Lexeme stream, in the style of the teacher's own
// single-struct, method-per-production parser (base_parser.go before
// it was trimmed down to this domain's grammar).
type Parser struct {
	ctx      *Context
	moduleID ModuleID
	toks     []Lexeme

	pos int

	// deferStack holds one frame per currently-open block; `defer`
	// pushes its expr onto the innermost frame, and block exit hoists
	// the frame's exprs before any return and at the end of the block
	// unless the block already ends in a return (spec.md §4.2).
	deferStack [][]Stmt

	// fnFloors marks, for each currently-open function body, the
	// deferStack index of that function's outermost frame. `return`
	// hoists every frame from the top of deferStack down to (and
	// including) the innermost floor — the whole function's
	// outstanding defers, not just the current block's.
	fnFloors []int
}

func NewParser(ctx *Context, moduleID ModuleID, toks []Lexeme) *Parser {
	return &Parser{ctx: ctx, moduleID: moduleID, toks: toks}
}

func (p *Parser) cur() Lexeme {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) Lexeme {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) at(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) advance() Lexeme {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) match(k TokenKind) (Lexeme, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return Lexeme{}, false
}

func (p *Parser) expect(k TokenKind, what string) (Lexeme, error) {
	if tok, ok := p.match(k); ok {
		return tok, nil
	}
	return Lexeme{}, fmt.Errorf("%s: expected %s, got %s", p.ctx.Mods.Format(p.cur().Loc), what, p.cur().Kind.String())
}

func (p *Parser) errf(loc ModuleLoc, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", p.ctx.Mods.Format(loc), fmt.Sprintf(format, args...))
}

// ParseModule parses the whole token stream as one top-level block.
func (p *Parser) ParseModule() (*BlockStmt, error) {
	loc := p.cur().Loc
	top := &BlockStmt{StmtBase: newBase(p.ctx, KindBlock, loc), IsTop: true}
	p.deferStack = append(p.deferStack, nil)
	for !p.at(TokEOF) {
		s, err := p.parseTopLevelStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			top.Stmts = append(top.Stmts, s)
		}
	}
	top.DeferFrame = p.popDeferFrame()
	return top, nil
}

func (p *Parser) pushDeferFrame()    { p.deferStack = append(p.deferStack, nil) }
func (p *Parser) popDeferFrame() []Stmt {
	n := len(p.deferStack) - 1
	frame := p.deferStack[n]
	p.deferStack = p.deferStack[:n]
	return frame
}

func (p *Parser) parseTopLevelStmt() (Stmt, error) {
	attrs, err := p.maybeParseAttrs()
	if err != nil {
		return nil, err
	}
	switch p.cur().Kind {
	case TokLet:
		s, err := p.parseLet()
		return p.withAttrs(s, attrs), err
	case TokFn:
		s, err := p.parseFnDef("")
		return p.withAttrs(s, attrs), err
	case TokStruct:
		s, err := p.parseStruct(false)
		return p.withAttrs(s, attrs), err
	case TokExtern:
		s, err := p.parseExtern()
		return p.withAttrs(s, attrs), err
	case TokEnum:
		s, err := p.parseEnum()
		return p.withAttrs(s, attrs), err
	case TokIdent:
		switch p.cur().Payload.Str {
		case "header":
			return p.parseHeader()
		case "lib":
			return p.parseLib()
		}
	}
	return p.parseStmt()
}

func (p *Parser) withAttrs(s Stmt, attrs map[string]string) Stmt {
	if s == nil || len(attrs) == 0 {
		return s
	}
	for k, v := range attrs {
		s.Attrs()[k] = v
	}
	return s
}

// maybeParseAttrs parses an optional `#[k=v, k]` prefix.
func (p *Parser) maybeParseAttrs() (map[string]string, error) {
	if !p.at(TokHash) {
		return nil, nil
	}
	p.advance()
	if _, err := p.expect(TokLBracket, "'['"); err != nil {
		return nil, err
	}
	attrs := map[string]string{}
	for !p.at(TokRBracket) {
		key, err := p.expect(TokIdent, "attribute name")
		if err != nil {
			return nil, err
		}
		val := ""
		if _, ok := p.match(TokAssign); ok {
			v, err := p.expect(TokStr, "attribute value")
			if err != nil {
				return nil, err
			}
			val = v.Payload.Str
		}
		attrs[key.Payload.Str] = val
		if _, ok := p.match(TokComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokRBracket, "']'"); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	attrs, err := p.maybeParseAttrs()
	if err != nil {
		return nil, err
	}
	var s Stmt
	switch p.cur().Kind {
	case TokLBrace:
		s, err = p.parseBlock()
	case TokLet:
		s, err = p.parseLet()
	case TokFn:
		s, err = p.parseFnDef("")
	case TokStruct:
		s, err = p.parseStruct(false)
	case TokEnum:
		s, err = p.parseEnum()
	case TokExtern:
		s, err = p.parseExtern()
	case TokIf:
		s, err = p.parseIf(false)
	case TokInline:
		s, err = p.parseInline()
	case TokFor:
		s, err = p.parseFor()
	case TokWhile:
		s, err = p.parseWhile()
	case TokReturn:
		s, err = p.parseReturn()
	case TokContinue:
		loc := p.advance().Loc
		if _, err = p.expect(TokSemi, "';'"); err != nil {
			return nil, err
		}
		s = &ContinueStmt{StmtBase: newBase(p.ctx, KindContinue, loc)}
	case TokBreak:
		loc := p.advance().Loc
		if _, err = p.expect(TokSemi, "';'"); err != nil {
			return nil, err
		}
		s = &BreakStmt{StmtBase: newBase(p.ctx, KindBreak, loc)}
	case TokDefer:
		s, err = p.parseDefer()
	default:
		s, err = p.parseExprStmt()
	}
	return p.withAttrs(s, attrs), err
}

func (p *Parser) parseBlock() (*BlockStmt, error) {
	loc := p.cur().Loc
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	p.pushDeferFrame()
	blk := &BlockStmt{StmtBase: newBase(p.ctx, KindBlock, loc)}
	for !p.at(TokRBrace) && !p.at(TokEOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if ret, ok := s.(*ReturnStmt); ok {
			blk.Stmts = append(blk.Stmts, p.hoistedDeferCalls()...)
			blk.Stmts = append(blk.Stmts, ret)
			continue
		}
		if _, ok := s.(*DeferStmt); ok {
			// already recorded into the current defer frame by
			// parseDefer; the node itself never survives past the
			// parser (spec.md §9 "Defer as a parse-time
			// transformation").
			continue
		}
		if s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	blk.DeferFrame = p.popDeferFrame()
	// A trailing `return` already has every outstanding defer hoisted
	// in front of it, so the frame is only appended when control can
	// fall off the end of the block.
	endsInReturn := false
	if n := len(blk.Stmts); n > 0 {
		_, endsInReturn = blk.Stmts[n-1].(*ReturnStmt)
	}
	if !endsInReturn {
		blk.Stmts = append(blk.Stmts, cloneDeferCalls(p.ctx, blk.DeferFrame)...)
	}
	return blk, nil
}

// hoistedDeferCalls clones every outstanding defer expression across
// the whole function — not just the current block's frame — for
// insertion right before a `return` (spec.md §4.2: "on return, all
// outstanding deferred statements (whole function) are cloned and
// appended before the return"). Frames are walked innermost-first,
// each in reverse insertion order, so the combined result is the
// reverse lexical order of encounter (§8 scenario 4).
func (p *Parser) hoistedDeferCalls() []Stmt {
	if len(p.deferStack) == 0 {
		return nil
	}
	floor := 0
	if len(p.fnFloors) > 0 {
		floor = p.fnFloors[len(p.fnFloors)-1]
	}
	var out []Stmt
	for i := len(p.deferStack) - 1; i >= floor; i-- {
		out = append(out, cloneDeferCalls(p.ctx, p.deferStack[i])...)
	}
	return out
}

func (p *Parser) pushFnFloor() { p.fnFloors = append(p.fnFloors, len(p.deferStack)) }
func (p *Parser) popFnFloor()  { p.fnFloors = p.fnFloors[:len(p.fnFloors)-1] }

func cloneDeferCalls(ctx *Context, frame []Stmt) []Stmt {
	out := make([]Stmt, 0, len(frame))
	for i := len(frame) - 1; i >= 0; i-- {
		out = append(out, CloneStmt(ctx, frame[i]))
	}
	return out
}

func (p *Parser) parseDefer() (Stmt, error) {
	loc := p.advance().Loc
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	ds := &DeferStmt{StmtBase: newBase(p.ctx, KindDefer, loc), Expr: expr}
	if len(p.deferStack) > 0 {
		top := len(p.deferStack) - 1
		p.deferStack[top] = append(p.deferStack[top], expr)
	}
	return ds, nil
}

// parseLet parses `let a = expr, b in T = fn...;` declarations.
func (p *Parser) parseLet() (Stmt, error) {
	loc := p.advance().Loc
	decl := &VarDeclStmt{StmtBase: newBase(p.ctx, KindVarDecl, loc)}
	for {
		v, err := p.parseOneVar()
		if err != nil {
			return nil, err
		}
		decl.Vars = append(decl.Vars, v)
		if _, ok := p.match(TokComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseOneVar() (*VarStmt, error) {
	nameTok, err := p.expect(TokIdent, "identifier")
	if err != nil {
		return nil, err
	}
	v := &VarStmt{StmtBase: newBase(p.ctx, KindVar, nameTok.Loc), Name: nameTok.Payload.Str}
	if _, ok := p.match(TokColon); ok {
		if _, ok2 := p.match(TokComptime); ok2 {
			v.SetMask(v.Mask() | MaskComptime)
		}
	}
	if _, ok := p.match(TokIn); ok {
		typeExpr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		v.TypeExpr = typeExpr
	}
	if _, ok := p.match(TokAssign); ok {
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		v.Val = val
	}
	return v, nil
}

func (p *Parser) parseFnSig() (*FnSigStmt, error) {
	loc := p.cur().Loc
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	sig := &FnSigStmt{StmtBase: newBase(p.ctx, KindFnSig, loc)}
	decl := &VarDeclStmt{StmtBase: newBase(p.ctx, KindVarDecl, loc)}
	for !p.at(TokRParen) {
		if _, ok := p.match(TokEllipsis); ok {
			sig.Variadic = true
			if tok, ok2 := p.match(TokIdent); ok2 {
				sig.VariadicName = tok.Payload.Str
			}
			break
		}
		v, err := p.parseOneVar()
		if err != nil {
			return nil, err
		}
		decl.Vars = append(decl.Vars, v)
		if _, ok := p.match(TokComma); !ok {
			break
		}
	}
	sig.Params = []*VarDeclStmt{decl}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	_, hasRet := p.match(TokArrow)
	if !hasRet {
		_, hasRet = p.match(TokColon)
	}
	if hasRet {
		ret, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		sig.RetTypeExpr = ret
	}
	// Whether this signature is a template is only knowable once parameter
	// types are resolved against `any` (spec.md §4.3 createCall); TypeAssign
	// finalizes sig.IsTemplate in buildSig.
	return sig, nil
}

func (p *Parser) parseFnDef(forcedName string) (Stmt, error) {
	loc := p.advance().Loc
	name := forcedName
	if name == "" {
		if tok, ok := p.match(TokIdent); ok {
			name = tok.Payload.Str
		}
	}
	sig, err := p.parseFnSig()
	if err != nil {
		return nil, err
	}
	p.pushFnFloor()
	body, err := p.parseBlock()
	p.popFnFloor()
	if err != nil {
		return nil, err
	}
	return &FnDefStmt{StmtBase: newBase(p.ctx, KindFnDef, loc), Name: name, Sig: sig, Body: body}, nil
}

func (p *Parser) parseStruct(isExtern bool) (Stmt, error) {
	loc := p.advance().Loc
	nameTok, err := p.expect(TokIdent, "struct name")
	if err != nil {
		return nil, err
	}
	st := &StructStmt{StmtBase: newBase(p.ctx, KindStruct, loc), Name: nameTok.Payload.Str, IsExtern: isExtern}
	if _, ok := p.match(TokLt); ok {
		for !p.at(TokGt) {
			tn, err := p.expect(TokIdent, "template parameter")
			if err != nil {
				return nil, err
			}
			st.TemplateNames = append(st.TemplateNames, tn.Payload.Str)
			if _, ok := p.match(TokComma); !ok {
				break
			}
		}
		if _, err := p.expect(TokGt, "'>'"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	for !p.at(TokRBrace) {
		fname, err := p.expect(TokIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return nil, err
		}
		ftype, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		st.FieldNames = append(st.FieldNames, fname.Payload.Str)
		st.FieldTypes = append(st.FieldTypes, ftype)
		if _, ok := p.match(TokComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Parser) parseEnum() (Stmt, error) {
	loc := p.advance().Loc
	nameTok, err := p.expect(TokIdent, "enum name")
	if err != nil {
		return nil, err
	}
	en := &EnumStmt{StmtBase: newBase(p.ctx, KindEnum, loc), Name: nameTok.Payload.Str}
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	for !p.at(TokRBrace) {
		tagTok, err := p.expect(TokIdent, "enum tag")
		if err != nil {
			return nil, err
		}
		en.Tags = append(en.Tags, tagTok.Payload.Str)
		var val Stmt
		if _, ok := p.match(TokAssign); ok {
			val, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		en.Values = append(en.Values, val)
		if _, ok := p.match(TokComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return en, nil
}

func (p *Parser) parseExtern() (Stmt, error) {
	loc := p.advance().Loc
	if p.at(TokStruct) {
		return p.parseStruct(true)
	}
	if _, ok := p.match(TokFn); !ok {
		return nil, p.errf(loc, "expected 'fn' or 'struct' after 'extern'")
	}
	nameTok, err := p.expect(TokIdent, "function name")
	if err != nil {
		return nil, err
	}
	sig, err := p.parseFnSig()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &ExternStmt{StmtBase: newBase(p.ctx, KindExtern, loc), Name: nameTok.Payload.Str, Sig: sig}, nil
}

func (p *Parser) parseHeader() (Stmt, error) {
	loc := p.advance().Loc
	nameTok, err := p.expect(TokStr, "header name string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &HeaderStmt{StmtBase: newBase(p.ctx, KindHeader, loc), Name: nameTok.Payload.Str}, nil
}

func (p *Parser) parseLib() (Stmt, error) {
	loc := p.advance().Loc
	nameTok, err := p.expect(TokStr, "lib name string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return &LibStmt{StmtBase: newBase(p.ctx, KindLib, loc), Name: nameTok.Payload.Str}, nil
}

func (p *Parser) parseIf(inline bool) (Stmt, error) {
	loc := p.advance().Loc
	cs := &CondStmt{StmtBase: newBase(p.ctx, KindCond, loc), IsInline: inline}
	for {
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		cs.Cases = append(cs.Cases, CondCase{Cond: cond, Block: block})
		if _, ok := p.match(TokElif); ok {
			continue
		}
		if _, ok := p.match(TokElse); ok {
			if p.at(TokIf) {
				p.advance()
				continue
			}
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			cs.Cases = append(cs.Cases, CondCase{Cond: nil, Block: block})
		}
		break
	}
	return cs, nil
}

// parseInline handles the `inline if` / `inline for` prefix
// (spec.md §4.2, §4.5).
func (p *Parser) parseInline() (Stmt, error) {
	p.advance()
	switch p.cur().Kind {
	case TokIf:
		return p.parseIf(true)
	case TokFor:
		return p.parseForInline(true)
	}
	return nil, p.errf(p.cur().Loc, "'inline' must be followed by 'if' or 'for'")
}

func (p *Parser) parseFor() (Stmt, error) { return p.parseForInline(false) }

// parseForInline parses both the C-style `for init; cond; incr {}`
// form and the `for x in iterable {}` form, desugaring the latter
// into synthetic `_interm`/`_it` bindings over the former
// (spec.md §4.2 "for-in desugaring").
func (p *Parser) parseForInline(inline bool) (Stmt, error) {
	loc := p.advance().Loc

	if p.at(TokIdent) && p.peekAt(1).Kind == TokIn {
		itName := p.advance().Payload.Str
		p.advance() // 'in'
		iterable, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return p.desugarForIn(loc, itName, iterable, body, inline), nil
	}

	var init, cond, incr Stmt
	var err error
	if !p.at(TokSemi) {
		init, err = p.parseSimpleForClause()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	if !p.at(TokSemi) {
		cond, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	if !p.at(TokLBrace) {
		incr, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{StmtBase: newBase(p.ctx, KindFor, loc), Init: init, Cond: cond, Incr: incr, Body: body, IsInline: inline}, nil
}

func (p *Parser) parseSimpleForClause() (Stmt, error) {
	if p.at(TokLet) {
		return p.parseLet()
	}
	return p.parseExprStmtNoSemi()
}

// desugarForIn rewrites `for it in iterable { body }` into (spec.md
// §4.2, verbatim):
//
//	let _interm = iterable;
//	for let _it = _interm.begin(); _it != _interm.end(); _it = _interm.next(_it) {
//	    let it = _interm.at(_it);
//	    body
//	}
//
// wrapped in an enclosing block, with every synthetic name suffixed by
// the user's loop variable name to stay unique across nested loops.
func (p *Parser) desugarForIn(loc ModuleLoc, itName string, iterable Stmt, body *BlockStmt, inline bool) Stmt {
	intermName := "_interm_" + itName
	cursorName := "_it_" + itName

	ident := func(name string) Stmt {
		return &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, loc), Tok: TokIdent, Name: name}
	}
	member := func(recv Stmt, name string) Stmt {
		return &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, loc), Op: TokDot, Lhs: recv, Rhs: ident(name)}
	}
	call := func(callee Stmt, args ...Stmt) Stmt {
		return &CallInfoStmt{StmtBase: newBase(p.ctx, KindCallInfo, loc), Callee: callee, Args: args}
	}

	interm := &VarStmt{StmtBase: newBase(p.ctx, KindVar, loc), Name: intermName, Val: iterable}
	intermDecl := &VarDeclStmt{StmtBase: newBase(p.ctx, KindVarDecl, loc), Vars: []*VarStmt{interm}}

	cursor := &VarStmt{StmtBase: newBase(p.ctx, KindVar, loc), Name: cursorName,
		Val: call(member(ident(intermName), "begin"))}
	init := &VarDeclStmt{StmtBase: newBase(p.ctx, KindVarDecl, loc), Vars: []*VarStmt{cursor}}

	cond := &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, loc), Op: TokNeq,
		Lhs: ident(cursorName), Rhs: call(member(ident(intermName), "end"))}
	incr := &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, loc), Op: TokAssign,
		Lhs: ident(cursorName), Rhs: call(member(ident(intermName), "next"), ident(cursorName))}

	itBind := &VarDeclStmt{StmtBase: newBase(p.ctx, KindVarDecl, loc),
		Vars: []*VarStmt{{StmtBase: newBase(p.ctx, KindVar, loc), Name: itName,
			Val: call(member(ident(intermName), "at"), ident(cursorName))}}}
	body.Stmts = append([]Stmt{itBind}, body.Stmts...)

	forStmt := &ForStmt{StmtBase: newBase(p.ctx, KindFor, loc), Init: init, Cond: cond, Incr: incr, Body: body, IsInline: inline}
	return &BlockStmt{StmtBase: newBase(p.ctx, KindBlock, loc), Stmts: []Stmt{intermDecl, forStmt}}
}

// parseWhile desugars `while cond {}` into `for ;cond; {}` (spec.md
// §4.2).
func (p *Parser) parseWhile() (Stmt, error) {
	loc := p.advance().Loc
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{StmtBase: newBase(p.ctx, KindFor, loc), Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	loc := p.advance().Loc
	rs := &ReturnStmt{StmtBase: newBase(p.ctx, KindReturn, loc)}
	if !p.at(TokSemi) {
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		rs.Expr = expr
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return rs, nil
}

func (p *Parser) parseExprStmt() (Stmt, error) {
	s, err := p.parseExprStmtNoSemi()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi, "';'"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseExprStmtNoSemi() (Stmt, error) { return p.parseExpr(0) }

// parseExpr is precedence-climbing over binPrec, with assignment
// (lowest, right-associative) handled as a special case above it.
func (p *Parser) parseExpr(minPrec int) (Stmt, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if assignOps[p.cur().Kind] && minPrec == 0 {
		op := p.advance()
		rhs, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, op.Loc), Op: op.Kind, Lhs: lhs, Rhs: rhs}, nil
	}
	for {
		prec, ok := binPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		op := p.advance()
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, op.Loc), Op: op.Kind, Lhs: lhs, Rhs: rhs}
	}
}

func (p *Parser) parseUnary() (Stmt, error) {
	switch p.cur().Kind {
	case TokMinus, TokBang, TokTilde, TokAmp, TokStar, TokPlusPlus, TokMinusMinus:
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op.Kind == TokMinus {
			if lit, ok := operand.(*SimpleStmt); ok {
				switch lit.Tok {
				case TokInt:
					lit.Payload.Int = -lit.Payload.Int
					return lit, nil
				case TokFlt:
					lit.Payload.Flt = -lit.Payload.Flt
					return lit, nil
				}
			}
		}
		return &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, op.Loc), Op: op.Kind, Lhs: operand, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Stmt, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case TokLParen:
			p.advance()
			call := &CallInfoStmt{StmtBase: newBase(p.ctx, KindCallInfo, expr.Loc()), Callee: expr}
			for !p.at(TokRParen) {
				arg, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
				if _, ok := p.match(TokComma); !ok {
					break
				}
			}
			if _, err := p.expect(TokRParen, "')'"); err != nil {
				return nil, err
			}
			expr = call
		case TokDot, TokArrow:
			op := p.advance()
			nameTok, err := p.expect(TokIdent, "member name")
			if err != nil {
				return nil, err
			}
			member := &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, nameTok.Loc), Tok: TokIdent, Name: nameTok.Payload.Str}
			expr = &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, op.Loc), Op: op.Kind, Lhs: expr, Rhs: member}
		case TokAtom:
			// The lexer folds `.name` into one atom lexeme, so `a.b`
			// written without spaces arrives here as member access.
			atom := p.advance()
			member := &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, atom.Loc), Tok: TokIdent, Name: atom.Payload.Str}
			expr = &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, atom.Loc), Op: TokDot, Lhs: expr, Rhs: member}
		case TokLBracket:
			p.advance()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket, "']'"); err != nil {
				return nil, err
			}
			expr = &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, expr.Loc()), Op: TokLBracket, Lhs: expr, Rhs: idx}
		case TokPlusPlus, TokMinusMinus:
			op := p.advance()
			expr = &ExprStmt{StmtBase: newBase(p.ctx, KindExpr, op.Loc), Op: op.Kind, Lhs: expr, Prefix: false}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Stmt, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokInt, TokFlt, TokStr, TokChar, TokTrue, TokFalse, TokNil:
		p.advance()
		return &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, tok.Loc), Tok: tok.Kind, Payload: tok.Payload}, nil
	case TokIdent:
		p.advance()
		return &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, tok.Loc), Tok: TokIdent, Name: tok.Payload.Str}, nil
	case TokAtom:
		p.advance()
		return &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, tok.Loc), Tok: TokAtom, Payload: tok.Payload}, nil
	case TokAt:
		p.advance()
		nameTok, err := p.expect(TokIdent, "intrinsic name")
		if err != nil {
			return nil, err
		}
		callee := &SimpleStmt{StmtBase: newBase(p.ctx, KindSimple, tok.Loc), Tok: TokAt, Name: nameTok.Payload.Str}
		if _, err := p.expect(TokLParen, "'('"); err != nil {
			return nil, err
		}
		call := &CallInfoStmt{StmtBase: newBase(p.ctx, KindCallInfo, tok.Loc), Callee: callee}
		for !p.at(TokRParen) {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if _, ok := p.match(TokComma); !ok {
				break
			}
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return call, nil
	case TokLParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case TokFn:
		p.advance()
		sig, err := p.parseFnSig()
		if err != nil {
			return nil, err
		}
		p.pushFnFloor()
		body, err := p.parseBlock()
		p.popFnFloor()
		if err != nil {
			return nil, err
		}
		return &FnDefStmt{StmtBase: newBase(p.ctx, KindFnDef, tok.Loc), Sig: sig, Body: body}, nil
	case TokTyI1, TokTyI8, TokTyI16, TokTyI32, TokTyI64, TokTyU8, TokTyU16, TokTyU32, TokTyU64,
		TokTyF32, TokTyF64, TokTyVoid, TokTyAny, TokTyType:
		p.advance()
		return &TypeStmt{StmtBase: newBase(p.ctx, KindType, tok.Loc), Ty: primitiveTypeFor(tok.Kind)}, nil
	}
	return nil, p.errf(tok.Loc, "unexpected token %s in expression", tok.Kind.String())
}

func primitiveTypeFor(k TokenKind) *Type {
	var t Type
	switch k {
	case TokTyI1:
		t = NewIntType(1, true)
	case TokTyI8:
		t = NewIntType(8, true)
	case TokTyI16:
		t = NewIntType(16, true)
	case TokTyI32:
		t = NewIntType(32, true)
	case TokTyI64:
		t = NewIntType(64, true)
	case TokTyU8:
		t = NewIntType(8, false)
	case TokTyU16:
		t = NewIntType(16, false)
	case TokTyU32:
		t = NewIntType(32, false)
	case TokTyU64:
		t = NewIntType(64, false)
	case TokTyF32:
		t = NewFltType(32)
	case TokTyF64:
		t = NewFltType(64)
	case TokTyVoid:
		t = NewVoidType()
	case TokTyAny:
		t = NewAnyType()
	case TokTyType:
		t = Type(&TypeTyType{})
	}
	return &t
}
