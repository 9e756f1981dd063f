package scribec

import (
	"fmt"
	"strings"
)

// TokenKind enumerates every lexeme kind the lexer can produce.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokAtom // .identifier, treated as a string atom
	TokInt
	TokFlt
	TokStr
	TokChar

	// keywords
	TokLet
	TokFn
	TokIf
	TokElif
	TokElse
	TokFor
	TokIn
	TokWhile
	TokReturn
	TokContinue
	TokBreak
	TokDefer
	TokStruct
	TokEnum
	TokExtern
	TokInline
	TokComptime
	TokStatic
	TokConst
	TokVolatile
	TokGlobal
	TokOr
	TokTrue
	TokFalse
	TokNil

	// primitive type keywords
	TokTyI1
	TokTyI8
	TokTyI16
	TokTyI32
	TokTyI64
	TokTyU8
	TokTyU16
	TokTyU32
	TokTyU64
	TokTyF32
	TokTyF64
	TokTyVoid
	TokTyAny
	TokTyType

	// punctuation / operators
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokLBracket
	TokRBracket
	TokComma
	TokSemi
	TokColon
	TokQuestion
	TokDot
	TokDotDot
	TokEllipsis
	TokArrow
	TokAt
	TokHash

	TokAssign
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokAmp
	TokPipe
	TokCaret
	TokTilde
	TokBang
	TokLt
	TokGt

	TokPlusEq
	TokMinusEq
	TokStarEq
	TokSlashEq
	TokPercentEq
	TokAmpEq
	TokPipeEq
	TokCaretEq
	TokShl
	TokShr
	TokShlEq
	TokShrEq

	TokEq
	TokNeq
	TokLe
	TokGe
	TokAndAnd
	TokOrOr

	TokPlusPlus
	TokMinusMinus
)

var keywords = map[string]TokenKind{
	"let": TokLet, "fn": TokFn, "if": TokIf, "elif": TokElif, "else": TokElse,
	"for": TokFor, "in": TokIn, "while": TokWhile, "return": TokReturn,
	"continue": TokContinue, "break": TokBreak, "defer": TokDefer,
	"struct": TokStruct, "enum": TokEnum, "extern": TokExtern,
	"inline": TokInline, "comptime": TokComptime, "static": TokStatic,
	"const": TokConst, "volatile": TokVolatile, "global": TokGlobal, "or": TokOr,
	"true": TokTrue, "false": TokFalse, "nil": TokNil,
	"i1": TokTyI1, "i8": TokTyI8, "i16": TokTyI16, "i32": TokTyI32, "i64": TokTyI64,
	"u8": TokTyU8, "u16": TokTyU16, "u32": TokTyU32, "u64": TokTyU64,
	"f32": TokTyF32, "f64": TokTyF64, "void": TokTyVoid, "any": TokTyAny, "type": TokTyType,
}

// LexPayload carries the optional literal value attached to a lexeme.
// Exactly one of the fields is meaningful, selected by the owning
// Lexeme's Kind.
type LexPayload struct {
	Str string
	Int int64
	Flt float64
}

// Lexeme is a token, its source location, and its (optional) literal
// payload.
type Lexeme struct {
	Loc     ModuleLoc
	Kind    TokenKind
	Payload LexPayload
}

// Lexer turns a module's UTF-8 source bytes into a flat slice of
// Lexeme, implicitly terminated by a TokEOF.
type Lexer struct {
	moduleID ModuleID
	src      []byte
	pos      int
	diags    *Diagnostics
}

// NewLexer returns a Lexer over src, attributing every produced
// Lexeme's location to moduleID.
func NewLexer(moduleID ModuleID, src []byte, diags *Diagnostics) *Lexer {
	return &Lexer{moduleID: moduleID, src: src, diags: diags}
}

func (l *Lexer) loc(offset int) ModuleLoc {
	return ModuleLoc{ModuleID: l.moduleID, Offset: uint32(offset)}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	b := l.peek()
	l.pos++
	return b
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

// Lex tokenizes the whole source and returns the lexeme stream,
// terminated by a TokEOF entry.
func (l *Lexer) Lex() []Lexeme {
	var out []Lexeme
	for {
		l.skipTrivia()
		if l.eof() {
			out = append(out, Lexeme{Loc: l.loc(l.pos), Kind: TokEOF})
			return out
		}
		start := l.pos
		lex, ok := l.next()
		if ok {
			out = append(out, lex)
		}
		if l.pos == start {
			// Defensive: never let a bad byte stall the lexer.
			l.advance()
		}
	}
}

func (l *Lexer) skipTrivia() {
	for !l.eof() {
		switch c := l.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.pos
	l.advance()
	l.advance()
	depth := 1
	for !l.eof() && depth > 0 {
		switch {
		case l.peek() == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek() == '*' && l.peekAt(1) == '/':
			l.advance()
			l.advance()
			depth--
		default:
			l.advance()
		}
	}
	if depth != 0 {
		l.diags.Error(l.loc(start), "unterminated block comment")
	}
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

func (l *Lexer) next() (Lexeme, bool) {
	start := l.pos
	c := l.peek()

	switch {
	case isDigit(c):
		return l.lexNumber(start), true
	case c == '.' && isDigit(l.peekAt(1)):
		return l.lexNumber(start), true
	case isIdentStart(c):
		return l.lexIdentOrKeyword(start), true
	case c == '.' && isIdentStart(l.peekAt(1)):
		l.advance() // consume '.'
		id := l.scanIdent()
		return Lexeme{Loc: l.loc(start), Kind: TokAtom, Payload: LexPayload{Str: id}}, true
	case c == '"' || c == '\'' || c == '`':
		return l.lexStringLike(start, c), true
	default:
		return l.lexOperator(start), true
	}
}

func (l *Lexer) scanIdent() string {
	start := l.pos
	for !l.eof() && isIdentCont(l.peek()) {
		l.advance()
	}
	return string(l.src[start:l.pos])
}

func (l *Lexer) lexIdentOrKeyword(start int) Lexeme {
	name := l.scanIdent()
	if kw, ok := keywords[name]; ok {
		return Lexeme{Loc: l.loc(start), Kind: kw, Payload: LexPayload{Str: name}}
	}
	return Lexeme{Loc: l.loc(start), Kind: TokIdent, Payload: LexPayload{Str: name}}
}

func (l *Lexer) lexNumber(start int) Lexeme {
	base := 10
	switch {
	case l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X'):
		l.advance()
		l.advance()
		base = 16
	case l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B'):
		l.advance()
		l.advance()
		base = 2
	case l.peek() == '0' && isDigit(l.peekAt(1)):
		l.advance()
		base = 8
	}

	digitsStart := l.pos
	isFlt := false
	for !l.eof() {
		c := l.peek()
		if c == '.' && base == 10 && isDigit(l.peekAt(1)) && !isFlt {
			isFlt = true
			l.advance()
			continue
		}
		if !isValidDigit(c, base) {
			break
		}
		l.advance()
	}
	text := string(l.src[digitsStart:l.pos])
	if text == "" {
		l.diags.Error(l.loc(start), "invalid numeric literal: no digits after base prefix")
		return Lexeme{Loc: l.loc(start), Kind: TokInt, Payload: LexPayload{Int: 0}}
	}

	if isFlt {
		f, err := parseFloatDigits(text)
		if err != nil {
			l.diags.Error(l.loc(start), "invalid float literal %q", text)
		}
		return Lexeme{Loc: l.loc(start), Kind: TokFlt, Payload: LexPayload{Flt: f}}
	}

	iv, err := parseIntDigits(text, base)
	if err != nil {
		l.diags.Error(l.loc(start), "invalid digit for base %d in %q", base, text)
	}
	return Lexeme{Loc: l.loc(start), Kind: TokInt, Payload: LexPayload{Int: iv}}
}

func isValidDigit(c byte, base int) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	default:
		return isDigit(c)
	}
}

func parseIntDigits(text string, base int) (int64, error) {
	var v int64
	for _, c := range []byte(text) {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return v, fmt.Errorf("bad digit %q", c)
		}
		if int(d) >= base {
			return v, fmt.Errorf("digit %q out of range for base %d", c, base)
		}
		v = v*int64(base) + d
	}
	return v, nil
}

func parseFloatDigits(text string) (float64, error) {
	var whole, frac string
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		whole, frac = text[:idx], text[idx+1:]
	} else {
		whole = text
	}
	iv, err := parseIntDigits(whole, 10)
	if err != nil {
		return 0, err
	}
	f := float64(iv)
	if frac != "" {
		fv, err := parseIntDigits(frac, 10)
		if err != nil {
			return 0, err
		}
		div := 1.0
		for range frac {
			div *= 10
		}
		f += float64(fv) / div
	}
	return f, nil
}

var escapeTable = map[byte]byte{
	'0': 0, 'a': 7, 'b': 8, 'e': 27, 'f': 12, 'n': '\n', 'r': '\r',
	't': '\t', 'v': 11, '\\': '\\',
}

func (l *Lexer) lexStringLike(start int, quote byte) Lexeme {
	l.advance() // opening quote
	var sb strings.Builder
	raw := quote == '`'
	closed := false
	for !l.eof() {
		c := l.peek()
		if c == quote {
			l.advance()
			closed = true
			break
		}
		if !raw && c == '\\' {
			l.advance()
			esc := l.advance()
			if esc == quote {
				sb.WriteByte(quote)
				continue
			}
			if repl, ok := escapeTable[esc]; ok {
				sb.WriteByte(repl)
				continue
			}
			l.diags.Error(l.loc(l.pos-1), "invalid escape sequence '\\%c'", esc)
			continue
		}
		sb.WriteByte(l.advance())
	}
	if !closed {
		l.diags.Error(l.loc(start), "unterminated string/char literal")
	}

	kind := TokStr
	if quote == '\'' {
		kind = TokChar
		s := sb.String()
		if len([]rune(s)) != 1 {
			l.diags.Error(l.loc(start), "character literal must contain exactly one code point, got %q", s)
		}
	}
	return Lexeme{Loc: l.loc(start), Kind: kind, Payload: LexPayload{Str: sb.String()}}
}

type opEntry struct {
	text string
	kind TokenKind
}

// Ordered longest-match-first.
var operatorTable = []opEntry{
	{"...", TokEllipsis},
	{"<<=", TokShlEq},
	{">>=", TokShrEq},
	{"->", TokArrow},
	{"..", TokDotDot},
	{"==", TokEq},
	{"!=", TokNeq},
	{"<=", TokLe},
	{">=", TokGe},
	{"&&", TokAndAnd},
	{"||", TokOrOr},
	{"++", TokPlusPlus},
	{"--", TokMinusMinus},
	{"+=", TokPlusEq},
	{"-=", TokMinusEq},
	{"*=", TokStarEq},
	{"/=", TokSlashEq},
	{"%=", TokPercentEq},
	{"&=", TokAmpEq},
	{"|=", TokPipeEq},
	{"^=", TokCaretEq},
	{"<<", TokShl},
	{">>", TokShr},
	{"(", TokLParen},
	{")", TokRParen},
	{"{", TokLBrace},
	{"}", TokRBrace},
	{"[", TokLBracket},
	{"]", TokRBracket},
	{",", TokComma},
	{";", TokSemi},
	{":", TokColon},
	{"?", TokQuestion},
	{".", TokDot},
	{"@", TokAt},
	{"#", TokHash},
	{"=", TokAssign},
	{"+", TokPlus},
	{"-", TokMinus},
	{"*", TokStar},
	{"/", TokSlash},
	{"%", TokPercent},
	{"&", TokAmp},
	{"|", TokPipe},
	{"^", TokCaret},
	{"~", TokTilde},
	{"!", TokBang},
	{"<", TokLt},
	{">", TokGt},
}

func (l *Lexer) lexOperator(start int) Lexeme {
	rest := l.src[start:]
	for _, e := range operatorTable {
		if strings.HasPrefix(string(rest), e.text) {
			l.pos += len(e.text)
			return Lexeme{Loc: l.loc(start), Kind: e.kind}
		}
	}
	l.diags.Error(l.loc(start), "unknown operator starting at %q", string(rest[:min(1, len(rest))]))
	l.advance()
	return Lexeme{Loc: l.loc(start), Kind: TokEOF}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// String renders a TokenKind's name for diagnostics ("expected X, got Y").
func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("tok(%d)", int(k))
}

var tokenNames = map[TokenKind]string{
	TokEOF: "EOF", TokIdent: "identifier", TokAtom: "atom", TokInt: "int literal",
	TokFlt: "float literal", TokStr: "string literal", TokChar: "char literal",
	TokLet: "let", TokFn: "fn", TokIf: "if", TokElif: "elif", TokElse: "else",
	TokFor: "for", TokIn: "in", TokWhile: "while", TokReturn: "return",
	TokContinue: "continue", TokBreak: "break", TokDefer: "defer",
	TokStruct: "struct", TokEnum: "enum", TokExtern: "extern", TokInline: "inline",
	TokComptime: "comptime", TokStatic: "static", TokConst: "const",
	TokVolatile: "volatile", TokGlobal: "global", TokOr: "or",
	TokTrue: "true", TokFalse: "false", TokNil: "nil",
	TokLParen: "(", TokRParen: ")", TokLBrace: "{", TokRBrace: "}",
	TokLBracket: "[", TokRBracket: "]", TokComma: ",", TokSemi: ";",
	TokColon: ":", TokQuestion: "?", TokDot: ".", TokDotDot: "..",
	TokEllipsis: "...", TokArrow: "->", TokAt: "@", TokAssign: "=",
}
