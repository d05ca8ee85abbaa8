package basiclower

import (
	"sort"

	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/il"
)

// setupLocals allocates one stack slot per local the entry block will
// ever need (spec §4.9.3 step 2): one for each formal parameter,
// initialized from its incoming block-parameter value; one for every
// other scanned scalar, zero-initialized to match classic BASIC's
// implicit default value; one ptr slot per array, left null until its
// DIM statement runs; one ptr slot per file handle, left null until
// its OPEN statement runs. Every local is conservatively a stack slot
// here — Mem2Reg promotes the ones that qualify back to SSA registers.
func (b *funcBuilder) setupLocals(params []basicast.Param, scan *scanResult) {
	entryIdx := b.newBlock("entry")
	b.switchTo(entryIdx)

	entryParams := make([]il.Param, len(params))
	for i, p := range params {
		ty := basicast.TypeSuffix(p.Name)
		entryParams[i] = il.Param{Name: p.Name, Ty: ty, ID: b.id()}
	}
	b.blocks[entryIdx].Params = entryParams

	paramSet := make(map[string]bool, len(params))
	for i, p := range params {
		slot := b.allocaVar(p.Name, entryParams[i].Ty)
		b.store(slot.Ptr, il.Temp(entryParams[i].ID, entryParams[i].Ty))
		paramSet[p.Name] = true
	}

	var names []string
	for name := range scan.vars {
		if !paramSet[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		ty := basicast.TypeSuffix(name)
		slot := b.allocaVar(name, ty)
		b.store(slot.Ptr, zeroValue(ty))
	}

	var arrNames []string
	for name := range scan.arrays {
		arrNames = append(arrNames, name)
	}
	sort.Strings(arrNames)
	for _, name := range arrNames {
		elemTy := basicast.TypeSuffix(name)
		slot := b.allocaArray(name, elemTy)
		b.store(slot.Ptr, il.NullPtr)
	}

	var handleNames []string
	for name := range scan.fileHandles {
		handleNames = append(handleNames, name)
	}
	sort.Strings(handleNames)
	for _, name := range handleNames {
		slot := b.allocaVar(name, il.TPtr)
		b.store(slot.Ptr, il.NullPtr)
	}
}

func (b *funcBuilder) lowerStmts(stmts []basicast.Stmt) {
	for _, s := range stmts {
		b.lowerStmt(s)
	}
}

func (b *funcBuilder) lowerStmt(stmt basicast.Stmt) {
	switch s := stmt.(type) {
	case *basicast.LabelStmt:
		label := sanitizeLabel(s.Name)
		b.fallthroughTo(label)
		idx := b.newBlock(label)
		b.switchTo(idx)
	case *basicast.GotoStmt:
		b.emit(il.Instr{Op: il.OpBr, Succs: []string{sanitizeLabel(s.Target)}, BrArgs: [][]il.Value{nil}, Loc: s.Loc()})
	case *basicast.LetStmt:
		b.lowerAssign(s.Target, s.Value, s.Loc())
	case *basicast.IfStmt:
		b.lowerIf(s)
	case *basicast.ForStmt:
		b.lowerFor(s)
	case *basicast.WhileStmt:
		b.lowerWhile(s)
	case *basicast.PrintStmt:
		b.lowerPrint(s.Args, s.Loc())
	case *basicast.InputStmt:
		b.lowerInput(s.Target, s.Loc())
	case *basicast.DimStmt:
		b.lowerDim(s)
	case *basicast.ReturnStmt:
		b.lowerReturn(s)
	case *basicast.CallStmt:
		b.lowerCallStmt(s)
	case *basicast.OpenStmt:
		b.lowerOpen(s)
	case *basicast.CloseStmt:
		handle := b.lowerExpr(s.Handle)
		b.callHelperVoid("rt_file_close", []il.Value{handle}, s.Loc())
	case *basicast.PrintFileStmt:
		b.lowerPrintFile(s)
	case *basicast.LineInputFileStmt:
		b.lowerLineInputFile(s)
	default:
		assertf(stmt.Loc(), "basiclower: unhandled statement %T", stmt)
	}
}

func (b *funcBuilder) lowerAssign(target basicast.Lvalue, value basicast.Expr, loc il.SourceLoc) {
	v := b.lowerExpr(value)
	b.assignLvalue(target, v, loc)
}

// assignLvalue stores v into target, parsing it from text first when v
// is a raw string read from the terminal or a file and target is
// numeric (used by INPUT and LINE INPUT#; a plain LET already passes a
// value of the right IL type and the coerce calls below are no-ops).
func (b *funcBuilder) assignLvalue(target basicast.Lvalue, v il.Value, loc il.SourceLoc) {
	switch t := target.(type) {
	case *basicast.Ident:
		slot, ok := b.vars[t.Name]
		if !ok {
			assertf(loc, "basiclower: assignment to undeclared variable %s", t.Name)
		}
		if v.Type() == il.TStr && slot.Ty != il.TStr {
			v = b.parseText(v, slot.Ty, loc)
		}
		b.store(slot.Ptr, b.coerce(v, slot.Ty, loc))
	case *basicast.IndexExpr:
		slot, ok := b.vars[t.Name]
		if !ok || !slot.IsArray {
			assertf(loc, "basiclower: assignment to undeclared array %s", t.Name)
		}
		if v.Type() == il.TStr && slot.ElemTy != il.TStr {
			v = b.parseText(v, slot.ElemTy, loc)
		}
		b.storeArrayElem(t, v, loc)
	default:
		assertf(loc, "basiclower: unsupported assignment target %T", target)
	}
}

func (b *funcBuilder) parseText(raw il.Value, want il.Type, loc il.SourceLoc) il.Value {
	if want == il.TF64 {
		return b.callHelper("rt_parse_float", []il.Value{raw}, loc)
	}
	return b.callHelper("rt_parse_int", []il.Value{raw}, loc)
}

func (b *funcBuilder) lowerIf(s *basicast.IfStmt) {
	joinLabel := b.namer.Label("if.join")
	b.lowerIfChain(s.Cond, s.Then, s.ElseIfs, s.Else, joinLabel, s.Loc())

	joinIdx := b.newBlock(joinLabel)
	b.switchTo(joinIdx)
}

// lowerIfChain lowers one IF/ELSEIF arm and recurses for the rest of
// the chain as the else branch, so an arbitrarily long ELSEIF chain
// shares a single join block (spec §4.9.5).
func (b *funcBuilder) lowerIfChain(cond basicast.Expr, then []basicast.Stmt, elseIfs []basicast.ElseIfClause, els []basicast.Stmt, joinLabel string, loc il.SourceLoc) {
	cv := b.lowerExpr(cond)

	thenLabel := b.namer.Label("if.then")
	elseLabel := b.namer.Label("if.else")
	thenIdx := b.newBlock(thenLabel)
	elseIdx := b.newBlock(elseLabel)
	b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{cv}, Succs: []string{thenLabel, elseLabel}, BrArgs: [][]il.Value{nil, nil}, Loc: loc})

	b.switchTo(thenIdx)
	b.lowerStmts(then)
	b.fallthroughTo(joinLabel)

	b.switchTo(elseIdx)
	if len(elseIfs) > 0 {
		b.lowerIfChain(elseIfs[0].Cond, elseIfs[0].Body, elseIfs[1:], els, joinLabel, loc)
		return
	}
	b.lowerStmts(els)
	b.fallthroughTo(joinLabel)
}

func oneOfInt() il.Value { return il.ConstInt(1, il.TI64) }

// literalStepSign reports the statically-known sign of a FOR's STEP
// clause when it is a literal (or absent, defaulting to +1), so the
// common case gets a single comparison rather than a runtime sign
// check.
func literalStepSign(step basicast.Expr) (ascending bool, known bool) {
	switch n := step.(type) {
	case nil:
		return true, true
	case *basicast.IntLit:
		return n.Value >= 0, true
	case *basicast.FloatLit:
		return n.Value >= 0, true
	default:
		return false, false
	}
}

func (b *funcBuilder) forContinueCond(iv, to, step il.Value, stepNode basicast.Expr, ty il.Type, loc il.SourceLoc) il.Value {
	if ascending, known := literalStepSign(stepNode); known {
		if ty == il.TF64 {
			if ascending {
				return b.arith(il.OpFCmpLe, iv, to, loc)
			}
			return b.arith(il.OpFCmpGe, iv, to, loc)
		}
		if ascending {
			return b.arith(il.OpICmpLe, iv, to, loc)
		}
		return b.arith(il.OpICmpGe, iv, to, loc)
	}

	// STEP's direction is only known at runtime: test its sign and
	// merge in whichever comparison applies, rather than assuming
	// ascending iteration.
	var ascend, lte, gte il.Value
	if ty == il.TF64 {
		ascend = b.arith(il.OpFCmpGe, step, il.ConstFloat(0), loc)
		lte = b.arith(il.OpFCmpLe, iv, to, loc)
		gte = b.arith(il.OpFCmpGe, iv, to, loc)
	} else {
		ascend = b.arith(il.OpICmpGe, step, il.ConstInt(0, ty), loc)
		lte = b.arith(il.OpICmpLe, iv, to, loc)
		gte = b.arith(il.OpICmpGe, iv, to, loc)
	}
	return b.selectValue(ascend, lte, gte, "for.dir", loc)
}

func (b *funcBuilder) arithForType(intOp, floatOp il.Opcode, lhs, rhs il.Value, ty il.Type, loc il.SourceLoc) il.Value {
	if ty == il.TF64 {
		return b.arith(floatOp, lhs, rhs, loc)
	}
	return b.arith(intOp, lhs, rhs, loc)
}

// lowerFor lowers FOR/NEXT into a preheader that evaluates the bounds
// once, a header block parameterized by the current induction value,
// and a body that branches back to the header with the next value
// (spec §4.9.5).
func (b *funcBuilder) lowerFor(s *basicast.ForStmt) {
	loc := s.Loc()
	slot, ok := b.vars[s.Var]
	if !ok {
		assertf(loc, "basiclower: FOR over undeclared variable %s", s.Var)
	}
	varTy := slot.Ty

	from := b.coerce(b.lowerExpr(s.From), varTy, loc)
	to := b.coerce(b.lowerExpr(s.To), varTy, loc)
	var step il.Value
	if s.Step != nil {
		step = b.coerce(b.lowerExpr(s.Step), varTy, loc)
	} else {
		step = oneOf(varTy)
	}

	headerLabel := b.namer.Label("for.header")
	bodyLabel := b.namer.Label("for.body")
	exitLabel := b.namer.Label("for.exit")

	headerIdx := b.newBlock(headerLabel)
	ivID := b.id()
	b.blocks[headerIdx].Params = []il.Param{{Name: "i", Ty: varTy, ID: ivID}}
	iv := il.Temp(ivID, varTy)

	b.emit(il.Instr{Op: il.OpBr, Succs: []string{headerLabel}, BrArgs: [][]il.Value{{from}}, Loc: loc})

	bodyIdx := b.newBlock(bodyLabel)
	exitIdx := b.newBlock(exitLabel)

	b.switchTo(headerIdx)
	cond := b.forContinueCond(iv, to, step, s.Step, varTy, loc)
	b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{cond}, Succs: []string{bodyLabel, exitLabel}, BrArgs: [][]il.Value{nil, nil}, Loc: loc})

	b.switchTo(bodyIdx)
	b.store(slot.Ptr, iv)
	b.lowerStmts(s.Body)
	next := b.arithForType(il.OpAdd, il.OpFAdd, iv, step, varTy, loc)
	b.emit(il.Instr{Op: il.OpBr, Succs: []string{headerLabel}, BrArgs: [][]il.Value{{next}}, Loc: loc})

	b.switchTo(exitIdx)
	b.store(slot.Ptr, iv)
}

func (b *funcBuilder) lowerWhile(s *basicast.WhileStmt) {
	loc := s.Loc()
	headerLabel := b.namer.Label("while.header")
	bodyLabel := b.namer.Label("while.body")
	exitLabel := b.namer.Label("while.exit")

	headerIdx := b.newBlock(headerLabel)
	bodyIdx := b.newBlock(bodyLabel)
	exitIdx := b.newBlock(exitLabel)

	b.fallthroughTo(headerLabel)

	b.switchTo(headerIdx)
	cond := b.lowerExpr(s.Cond)
	b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{cond}, Succs: []string{bodyLabel, exitLabel}, BrArgs: [][]il.Value{nil, nil}, Loc: loc})

	b.switchTo(bodyIdx)
	b.lowerStmts(s.Body)
	b.fallthroughTo(headerLabel)

	b.switchTo(exitIdx)
}

func printHelperFor(ty il.Type) string {
	switch ty {
	case il.TF64:
		return "rt_print_f64"
	case il.TStr:
		return "rt_print_str"
	default:
		return "rt_print_i64"
	}
}

func (b *funcBuilder) lowerPrint(args []basicast.Expr, loc il.SourceLoc) {
	for _, a := range args {
		v := b.lowerExpr(a)
		b.callHelperVoid(printHelperFor(v.Type()), []il.Value{v}, loc)
	}
}

func (b *funcBuilder) lowerInput(target basicast.Lvalue, loc il.SourceLoc) {
	line := b.callHelper("rt_input_line", nil, loc)
	b.assignLvalue(target, line, loc)
}

// lowerDim allocates the runtime array buffer when control reaches the
// DIM statement (classic BASIC dimensions at run time, not at
// declaration-scan time): DIM A(N) yields indices 0..N, i.e. N+1
// elements. Arrays are one-dimensional only (see arrays.go); a
// declaration naming more than one dimension is a hard lowering error,
// since no registered runtime helper expresses a multi-dimensional
// array.
func (b *funcBuilder) lowerDim(s *basicast.DimStmt) {
	slot, ok := b.vars[s.Name]
	if !ok || !slot.IsArray {
		assertf(s.Loc(), "basiclower: DIM of undeclared array %s", s.Name)
	}
	if len(s.Dims) != 1 {
		abort(diagLow003(s))
	}
	size := b.toInt(b.lowerExpr(s.Dims[0]), s.Loc())
	count := b.arith(il.OpAdd, size, oneOfInt(), s.Loc())
	ptr := b.callHelper(arrAllocHelper(slot.ElemTy), []il.Value{count}, s.Loc())
	b.store(slot.Ptr, ptr)
}

func (b *funcBuilder) lowerReturn(s *basicast.ReturnStmt) {
	if s.Value == nil {
		b.emit(il.Instr{Op: il.OpRet, Loc: s.Loc()})
		return
	}
	v := b.coerce(b.lowerExpr(s.Value), b.retTy, s.Loc())
	b.emit(il.Instr{Op: il.OpRet, Args: []il.Value{v}, Loc: s.Loc()})
}

func (b *funcBuilder) lowerCallStmt(s *basicast.CallStmt) {
	if s.Builtin {
		b.lowerBuiltin(s.Name, s.Args, s.Loc())
		return
	}
	sig, ok := b.mod.sigs[s.Name]
	if !ok {
		assertf(s.Loc(), "basiclower: call to undeclared procedure %s", s.Name)
	}
	args := make([]il.Value, len(s.Args))
	for i, a := range s.Args {
		args[i] = b.coerce(b.lowerExpr(a), sig.Params[i], s.Loc())
	}
	b.emit(il.Instr{Op: il.OpCall, Callee: s.Name, Args: args, Loc: s.Loc()})
}

// fileModeCode maps a BASIC OPEN mode letter to the integer the
// rt_file_open helper expects as its second argument: this encoding is
// our own convention (the runtime ABI only fixes the signature's
// types, not the meaning of the mode operand), documented alongside
// the runtime's own file-mode handling.
func fileModeCode(mode string) int64 {
	switch mode {
	case "O":
		return 1
	case "A":
		return 2
	default:
		return 0
	}
}

func (b *funcBuilder) lowerOpen(s *basicast.OpenStmt) {
	path := b.lowerExpr(s.Path)
	mode := il.ConstInt(fileModeCode(s.Mode), il.TI64)
	handle := b.callHelper("rt_file_open", []il.Value{path, mode}, s.Loc())
	switch t := s.Handle.(type) {
	case *basicast.Ident:
		slot, ok := b.vars[t.Name]
		if !ok {
			assertf(s.Loc(), "basiclower: OPEN into undeclared variable %s", t.Name)
		}
		b.store(slot.Ptr, handle)
	default:
		assertf(s.Loc(), "basiclower: OPEN handle target must be a simple variable")
	}
}

func (b *funcBuilder) toPrintableStr(v il.Value, loc il.SourceLoc) il.Value {
	switch v.Type() {
	case il.TStr:
		return v
	case il.TF64:
		return b.callHelper("rt_fmt_float", []il.Value{v}, loc)
	default:
		return b.callHelper("rt_fmt_int", []il.Value{b.toInt(v, loc)}, loc)
	}
}

func (b *funcBuilder) lowerPrintFile(s *basicast.PrintFileStmt) {
	handle := b.lowerExpr(s.Handle)
	for _, a := range s.Args {
		v := b.lowerExpr(a)
		str := b.toPrintableStr(v, s.Loc())
		b.callHelperVoid("rt_file_write", []il.Value{handle, str}, s.Loc())
	}
}

func (b *funcBuilder) lowerLineInputFile(s *basicast.LineInputFileStmt) {
	handle := b.lowerExpr(s.Handle)
	line := b.callHelper("rt_file_read_line", []il.Value{handle}, s.Loc())
	b.assignLvalue(s.Target, line, s.Loc())
}
