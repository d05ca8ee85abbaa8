// Package iltext implements the textual IL format: a Lexer/Parser pair
// that reads the grammar in spec §4.3.1 into an *il.Module, and a
// Printer that serializes a Module back to canonical text (spec §4.3.3).
package iltext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/logging"
)

// Parser builds an il.Module from a pre-tokenized source. It parses in
// two passes per module: first every extern/global and every function's
// *signature* (recording each function body's token range), then each
// function body — so a call's result type, which depends on the
// callee's signature, resolves correctly regardless of declaration
// order (spec §4.3.2 makes no ordering guarantee among top-level items).
type Parser struct {
	toks   []Token
	pos    int
	fileID uint32
}

// ParseModule parses src (attributed to fileID for diagnostics) into a
// Module, or returns a diagnostic on the first error (spec §4.3.2: no
// statement-level recovery).
func ParseModule(src string, fileID uint32) (*il.Module, *diag.Diag) {
	logging.Debugf("parse", "file %d: %d bytes", fileID, len(src))
	p := &Parser{toks: tokenize(src), fileID: fileID}
	return p.parseModule()
}

func tokenize(src string) []Token {
	lex := NewLexer(src)
	var toks []Token
	for {
		tok := lex.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(k int) Token {
	idx := p.pos + k
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) loc() diag.SourceLoc {
	t := p.cur()
	return diag.SourceLoc{FileID: p.fileID, Line: t.Line, Col: t.Col}
}

func (p *Parser) errorf(code, format string, args ...any) *diag.Diag {
	return diag.Newf(code, p.loc(), format, args...)
}

func (p *Parser) expect(tt TokenType) (Token, *diag.Diag) {
	if p.cur().Type != tt {
		return Token{}, p.errorf(diag.PAR001, "expected %s, found %s %q", tt, p.cur().Type, p.cur().Literal)
	}
	return p.advance(), nil
}

type parseErr struct{ d *diag.Diag }

func (e parseErr) Error() string { return e.d.Error() }

// abort is used internally to unwind a deep recursive-descent call
// stack to parseModule on the first error, matching the "abort on
// first error" contract (spec §4.3.2).
func abort(d *diag.Diag) { panic(parseErr{d}) }

func (p *Parser) parseModule() (m *il.Module, errDiag *diag.Diag) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(parseErr); ok {
				m, errDiag = nil, pe.d
				return
			}
			panic(r)
		}
	}()

	if _, err := p.expect(KwIl); err != nil {
		abort(err)
	}
	version := p.parseVersion()

	mod := &il.Module{Version: version}
	type pendingFunc struct {
		idx        int
		start, end int // token range of the body, exclusive of braces
	}
	var pending []pendingFunc

	for p.cur().Type != EOF {
		switch p.cur().Type {
		case KwExtern:
			mod.Externs = append(mod.Externs, p.parseExtern())
		case KwGlobal:
			mod.Globals = append(mod.Globals, p.parseGlobal())
		case KwFunc:
			fn, start, end := p.parseFunctionSignature()
			mod.Functions = append(mod.Functions, fn)
			pending = append(pending, pendingFunc{idx: len(mod.Functions) - 1, start: start, end: end})
		default:
			abort(p.errorf(diag.PAR007, "expected 'extern', 'global', or 'func', found %q", p.cur().Literal))
		}
	}

	for _, pf := range pending {
		fp := &funcParser{
			Parser:  &Parser{toks: p.toks, fileID: p.fileID, pos: pf.start},
			end:     pf.end,
			mod:     mod,
			curFunc: &mod.Functions[pf.idx],
		}
		mod.Functions[pf.idx].Blocks = fp.parseBlocks()
	}

	return mod, nil
}

func (p *Parser) parseVersion() string {
	tok := p.cur()
	if tok.Type != INT && tok.Type != FLOAT {
		abort(p.errorf(diag.PAR007, "malformed version string, found %q", tok.Literal))
	}
	p.advance()
	var sb strings.Builder
	sb.WriteString(tok.Literal)
	for p.cur().Type == DOT {
		p.advance()
		part, err := p.expect(INT)
		if err != nil {
			abort(err)
		}
		sb.WriteByte('.')
		sb.WriteString(part.Literal)
	}
	return sb.String()
}

func (p *Parser) parseType() il.Type {
	tok, err := p.expect(IDENT)
	if err != nil {
		abort(err)
	}
	ty, ok := il.ParseType(tok.Literal)
	if !ok {
		abort(&diag.Diag{Severity: diag.Error, Code: diag.PAR006, Message: fmt.Sprintf("unknown type %q", tok.Literal), Loc: diag.SourceLoc{FileID: p.fileID, Line: tok.Line, Col: tok.Col}})
	}
	return ty
}

func (p *Parser) parseTypeList() []il.Type {
	var tys []il.Type
	if p.cur().Type == RPAREN {
		return tys
	}
	tys = append(tys, p.parseType())
	for p.cur().Type == COMMA {
		p.advance()
		tys = append(tys, p.parseType())
	}
	return tys
}

func (p *Parser) parseExtern() il.Extern {
	p.advance() // 'extern'
	name, err := p.expect(ATNAME)
	if err != nil {
		abort(err)
	}
	if _, err := p.expect(LPAREN); err != nil {
		abort(err)
	}
	params := p.parseTypeList()
	if _, err := p.expect(RPAREN); err != nil {
		abort(err)
	}
	if _, err := p.expect(ARROW); err != nil {
		abort(err)
	}
	ret := p.parseType()
	return il.Extern{Name: name.Literal, RetTy: ret, Params: params}
}

func (p *Parser) parseGlobal() il.Global {
	p.advance() // 'global'
	name, err := p.expect(ATNAME)
	if err != nil {
		abort(err)
	}
	if _, err := p.expect(COLON); err != nil {
		abort(err)
	}
	ty := p.parseType()
	g := il.Global{Name: name.Literal, Ty: ty}
	if p.cur().Type == ASSIGN {
		p.advance()
		v := p.parseValueNoCtx()
		g.Init = v.String()
		g.HasInit = true
	}
	return g
}

// parseNamedParamList parses "(%name: ty, ...)" without the surrounding
// parens (caller consumes those) into a slice of (name, type) pairs.
func (p *Parser) parseNamedParamList() []il.FuncParam {
	var params []il.FuncParam
	if p.cur().Type == RPAREN {
		return params
	}
	for {
		name, err := p.expect(PCTNAME)
		if err != nil {
			abort(err)
		}
		if _, err := p.expect(COLON); err != nil {
			abort(err)
		}
		ty := p.parseType()
		params = append(params, il.FuncParam{Name: name.Literal, Ty: ty})
		if p.cur().Type != COMMA {
			break
		}
		p.advance()
	}
	return params
}

// parseFunctionSignature parses "func @name(params) -> ret {" and then
// skips the brace-balanced body, returning the function shell plus the
// token range of its body (exclusive of the braces).
func (p *Parser) parseFunctionSignature() (il.Function, int, int) {
	p.advance() // 'func'
	name, err := p.expect(ATNAME)
	if err != nil {
		abort(err)
	}
	if _, err := p.expect(LPAREN); err != nil {
		abort(err)
	}
	params := p.parseNamedParamList()
	if _, err := p.expect(RPAREN); err != nil {
		abort(err)
	}
	if _, err := p.expect(ARROW); err != nil {
		abort(err)
	}
	ret := p.parseType()
	if _, err := p.expect(LBRACE); err != nil {
		abort(err)
	}
	start := p.pos
	depth := 1
	for depth > 0 {
		switch p.cur().Type {
		case LBRACE:
			depth++
		case RBRACE:
			depth--
		case EOF:
			abort(p.errorf(diag.PAR002, "unterminated function body for @%s", name.Literal))
		}
		if depth == 0 {
			break
		}
		p.advance()
	}
	end := p.pos
	p.advance() // consume closing '}'
	return il.Function{Name: name.Literal, RetTy: ret, Params: params}, start, end
}

// funcParser parses a single function's body (its block list) once all
// module-level signatures are known, so call-result types resolve.
type funcParser struct {
	*Parser
	end int

	nameToValue map[string]il.Value
	idCounter   uint32
	curFunc     *il.Function
	mod         *il.Module
}

func (fp *funcParser) declareOrReuse(name string, ty il.Type) il.Value {
	if v, ok := fp.nameToValue[name]; ok {
		return v // reused id: a genuine duplicate-definition, left for the verifier to flag
	}
	v := il.Temp(fp.idCounter, ty)
	fp.idCounter++
	fp.nameToValue[name] = v
	return v
}

func (fp *funcParser) resolve(name string) (il.Value, bool) {
	v, ok := fp.nameToValue[name]
	return v, ok
}

func (fp *funcParser) atEnd() bool { return fp.pos >= fp.end }

func (fp *funcParser) parseBlocks() []il.BasicBlock {
	fp.nameToValue = map[string]il.Value{}
	fp.idCounter = 0
	var blocks []il.BasicBlock
	first := true
	for !fp.atEnd() {
		blocks = append(blocks, fp.parseBlock(first))
		first = false
	}
	return blocks
}

// blockHeaderAhead reports whether the parser is positioned at the
// start of a new block header (IDENT [ "(" paramlist ")" ] ":"),
// without consuming any tokens.
func (fp *funcParser) blockHeaderAhead() bool {
	if fp.cur().Type != IDENT {
		return false
	}
	k := 1
	if fp.peekAt(k).Type == LPAREN {
		depth := 1
		k++
		for depth > 0 {
			switch fp.peekAt(k).Type {
			case LPAREN:
				depth++
			case RPAREN:
				depth--
			case EOF:
				return false
			}
			k++
		}
	}
	return fp.peekAt(k).Type == COLON
}

func (fp *funcParser) parseBlock(isEntry bool) il.BasicBlock {
	label, err := fp.expect(IDENT)
	if err != nil {
		abort(err)
	}
	var params []il.Param
	if fp.cur().Type == LPAREN {
		fp.advance()
		for _, np := range fp.parseNamedParamList() {
			v := fp.declareOrReuse(np.Name, np.Ty)
			params = append(params, il.Param{Name: np.Name, Ty: np.Ty, ID: v.ID})
		}
		if _, err := fp.expect(RPAREN); err != nil {
			abort(err)
		}
	} else if isEntry {
		for _, fparam := range fp.curFunc.Params {
			v := fp.declareOrReuse(fparam.Name, fparam.Ty)
			params = append(params, il.Param{Name: fparam.Name, Ty: fparam.Ty, ID: v.ID})
		}
	}
	if _, err := fp.expect(COLON); err != nil {
		abort(err)
	}

	block := il.BasicBlock{Label: label.Literal, Params: params}
	curLoc := diag.SourceLoc{}
	for !fp.atEnd() && !fp.blockHeaderAhead() {
		if fp.cur().Type == DOT {
			curLoc = fp.parseLocDirective()
			continue
		}
		instr := fp.parseInstr()
		instr.Loc = curLoc
		block.Instrs = append(block.Instrs, instr)
	}
	return block
}

func (fp *funcParser) parseLocDirective() diag.SourceLoc {
	fp.advance() // '.'
	kw, err := fp.expect(IDENT)
	if err != nil || kw.Literal != "loc" {
		abort(fp.errorf(diag.PAR002, "malformed .loc directive"))
	}
	fileTok, err := fp.expect(INT)
	if err != nil {
		abort(err)
	}
	lineTok, err := fp.expect(INT)
	if err != nil {
		abort(err)
	}
	colTok, err := fp.expect(INT)
	if err != nil {
		abort(err)
	}
	fileID, _ := strconv.ParseUint(fileTok.Literal, 10, 32)
	line, _ := strconv.ParseUint(lineTok.Literal, 10, 32)
	col, _ := strconv.ParseUint(colTok.Literal, 10, 32)
	return diag.SourceLoc{FileID: uint32(fileID), Line: uint32(line), Col: uint32(col)}
}

// parseValueNoCtx parses a value with no specific expected type hint
// (used for global initializers); integer literals default to i64.
func (p *Parser) parseValueNoCtx() il.Value {
	return p.parseValueWithHint(il.TI64)
}

func (p *Parser) parseValueWithHint(hint il.Type) il.Value {
	tok := p.cur()
	switch tok.Type {
	case INT:
		p.advance()
		n, _ := strconv.ParseInt(tok.Literal, 10, 64)
		ty := hint
		if !ty.IsInteger() {
			ty = il.TI64
		}
		return il.ConstInt(n, ty)
	case FLOAT:
		p.advance()
		f, _ := strconv.ParseFloat(tok.Literal, 64)
		return il.ConstFloat(f)
	case STRING:
		p.advance()
		return il.ConstStr(tok.Literal)
	case ATNAME:
		p.advance()
		return il.GlobalRef(tok.Literal)
	case KwNull:
		p.advance()
		return il.NullPtr
	default:
		abort(p.errorf(diag.PAR001, "expected a value, found %s %q", tok.Type, tok.Literal))
		return il.Value{}
	}
}

func (fp *funcParser) parseValue(hint il.Type) il.Value {
	if fp.cur().Type == PCTNAME {
		name := fp.cur().Literal
		v, ok := fp.resolve(name)
		if !ok {
			abort(fp.errorf(diag.PAR005, "undefined id %%%s", name))
		}
		fp.advance()
		return v
	}
	return fp.parseValueWithHint(hint)
}

type branchTarget struct {
	label string
	args  []il.Value
}

func (fp *funcParser) parseBranchTarget() branchTarget {
	label, err := fp.expect(IDENT)
	if err != nil {
		abort(err)
	}
	bt := branchTarget{label: label.Literal}
	if fp.cur().Type == LPAREN {
		fp.advance()
		if fp.cur().Type != RPAREN {
			bt.args = append(bt.args, fp.parseValue(il.TI64))
			for fp.cur().Type == COMMA {
				fp.advance()
				bt.args = append(bt.args, fp.parseValue(il.TI64))
			}
		}
		if _, err := fp.expect(RPAREN); err != nil {
			abort(err)
		}
	}
	return bt
}

func (fp *funcParser) parseInstr() il.Instr {
	var resultName string
	hasResultTok := false
	if fp.cur().Type == PCTNAME {
		resultName = fp.cur().Literal
		hasResultTok = true
		fp.advance()
		if _, err := fp.expect(ASSIGN); err != nil {
			abort(err)
		}
	}

	mnTok, err := fp.expect(IDENT)
	if err != nil {
		abort(err)
	}
	op, ok := il.LookupMnemonic(mnTok.Literal)
	if !ok {
		abort(&diag.Diag{Severity: diag.Error, Code: diag.PAR003, Message: fmt.Sprintf("unknown opcode %q", mnTok.Literal), Loc: diag.SourceLoc{FileID: fp.fileID, Line: mnTok.Line, Col: mnTok.Col}})
	}
	info, _ := il.LookupOpcode(op)

	instr := il.Instr{Op: op}

	switch op {
	case il.OpRet:
		if canStartValue(fp.cur().Type) {
			instr.Args = []il.Value{fp.parseValue(fp.curFunc.RetTy)}
		}
	case il.OpTrap:
		// no operands
	case il.OpBr:
		t := fp.parseBranchTarget()
		instr.Succs = []string{t.label}
		instr.BrArgs = [][]il.Value{t.args}
	case il.OpCBr:
		pred := fp.parseValue(il.TI1)
		if _, err := fp.expect(COMMA); err != nil {
			abort(err)
		}
		t1 := fp.parseBranchTarget()
		if _, err := fp.expect(COMMA); err != nil {
			abort(err)
		}
		t2 := fp.parseBranchTarget()
		instr.Args = []il.Value{pred}
		instr.Succs = []string{t1.label, t2.label}
		instr.BrArgs = [][]il.Value{t1.args, t2.args}
	case il.OpAlloca:
		size := fp.parseValue(il.TI64)
		instr.Args = []il.Value{size}
		instr.ResultTy = il.TPtr
	case il.OpLoad:
		ty := fp.parseType()
		ptr := fp.parseValue(il.TPtr)
		instr.Args = []il.Value{ptr}
		instr.ResultTy = ty
	case il.OpStore:
		ty := fp.parseType()
		ptr := fp.parseValue(il.TPtr)
		if _, err := fp.expect(COMMA); err != nil {
			abort(err)
		}
		val := fp.parseValue(ty)
		instr.Args = []il.Value{ptr, val}
	case il.OpSIToFP, il.OpFPToSI, il.OpTrunc, il.OpSExt:
		ty := fp.parseType()
		var srcHint il.Type
		switch op {
		case il.OpSIToFP:
			srcHint = il.TI64
		case il.OpFPToSI:
			srcHint = il.TF64
		default:
			srcHint = il.TI64
		}
		src := fp.parseValue(srcHint)
		instr.Args = []il.Value{src}
		instr.ResultTy = ty
	case il.OpCall:
		callee, err := fp.expect(ATNAME)
		if err != nil {
			abort(err)
		}
		instr.Callee = callee.Literal
		if _, err := fp.expect(LPAREN); err != nil {
			abort(err)
		}
		ret, params, known := fp.mod.CalleeSignature(callee.Literal)
		var args []il.Value
		i := 0
		if fp.cur().Type != RPAREN {
			for {
				hint := il.TI64
				if known && i < len(params) {
					hint = params[i]
				}
				args = append(args, fp.parseValue(hint))
				i++
				if fp.cur().Type != COMMA {
					break
				}
				fp.advance()
			}
		}
		if _, err := fp.expect(RPAREN); err != nil {
			abort(err)
		}
		instr.Args = args
		if known {
			instr.ResultTy = ret
		} else {
			instr.ResultTy = il.TI64 // unresolved callee: verifier reports STR011
		}
	default:
		// Generic fixed-arity opcodes: arithmetic, bitwise, comparisons.
		var args []il.Value
		first := true
		want := info.MaxOperands
		hint := genericHint(info.OperandCat)
		for (want < 0 || len(args) < want) && (first || fp.cur().Type == COMMA) {
			if !first {
				fp.advance() // comma
			}
			if len(args) > 0 {
				hint = args[0].Type() // later operands follow operand0's resolved type
			}
			args = append(args, fp.parseValue(hint))
			first = false
		}
		instr.Args = args
		switch info.ResultKind {
		case il.ResultFixedCat:
			instr.ResultTy = catType(info.ResultCat)
		case il.ResultOperand0:
			if len(args) > 0 {
				instr.ResultTy = args[0].Type()
			}
		}
	}

	if info.ResultKind == il.ResultFixedCat && info.ResultCat != il.CatNone && instr.ResultTy == (il.Type{}) {
		instr.ResultTy = catType(info.ResultCat)
	}

	instr.HasResult = hasResultTok
	if hasResultTok {
		v := fp.declareOrReuse(resultName, instr.ResultTy)
		instr.ResultID = v.ID
	}
	return instr
}

func canStartValue(tt TokenType) bool {
	switch tt {
	case PCTNAME, INT, FLOAT, STRING, ATNAME, KwNull:
		return true
	default:
		return false
	}
}

func genericHint(cat il.Category) il.Type {
	switch cat {
	case il.CatFloat:
		return il.TF64
	case il.CatI1:
		return il.TI1
	default:
		return il.TI64
	}
}

func catType(cat il.Category) il.Type {
	switch cat {
	case il.CatI1:
		return il.TI1
	case il.CatInt:
		return il.TI64
	case il.CatFloat:
		return il.TF64
	case il.CatPtr:
		return il.TPtr
	case il.CatStr:
		return il.TStr
	default:
		return il.Type{}
	}
}
