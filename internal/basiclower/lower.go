package basiclower

import (
	"fmt"
	"sort"

	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilrt"
)

// lowerErr unwinds a deep statement/expression recursion back to the
// top-level Lower call on the first internal-invariant failure,
// mirroring iltext's parseErr/abort (spec §4.9.6: an inconsistency
// found during lowering is a bug, not a user error, and is surfaced as
// an assertion-style diagnostic with a SourceLoc rather than a bare
// panic).
type lowerErr struct{ d *diag.Diag }

func (e lowerErr) Error() string { return e.d.Error() }

func abort(d *diag.Diag) { panic(lowerErr{d}) }

func assertf(loc il.SourceLoc, format string, args ...interface{}) {
	abort(diag.Newf(diag.INT003, loc, format, args...))
}

// procSig is the external signature of a declared SUB or FUNCTION,
// built for every procedure before any body is lowered so calls can
// resolve forward and mutually recursive references (mirrors iltext's
// two-pass signatures-then-bodies parsing).
type procSig struct {
	RetTy  il.Type
	Params []il.Type
}

// moduleLowering is shared, read-mostly state across every procedure
// lowered in one module: the signature table used to resolve calls,
// and the set of runtime helper names actually invoked, from which the
// final Extern list is synthesized (spec §4.9.2: the extern list names
// exactly the helpers used, no more).
type moduleLowering struct {
	sigs         map[string]procSig
	needExterns  map[string]bool
	boundsChecks bool
}

func (ml *moduleLowering) require(name string) {
	ml.needExterns[name] = true
}

// varSlot is one local's stack slot. Ptr is always a TPtr alloca
// result; Ty is the type of the value stored through it — a scalar
// type for an ordinary variable, TPtr for both an array handle and a
// file handle (IsArray distinguishes the two).
type varSlot struct {
	Ptr     il.Value
	Ty      il.Type
	IsArray bool
	ElemTy  il.Type
}

// funcBuilder accumulates one procedure's blocks into its own private
// slice, tracking the current block by index and re-fetching &b.blocks
// [idx] fresh on every use rather than caching a pointer across an
// append — the same pointer-invalidation discipline as the transform
// package's loopsimplify/licm passes.
type funcBuilder struct {
	mod    *moduleLowering
	vars   map[string]*varSlot
	blocks []il.BasicBlock
	curIdx int
	nextID uint32
	namer  *BlockNamer
	retTy  il.Type
}

func newFuncBuilder(mod *moduleLowering, retTy il.Type) *funcBuilder {
	return &funcBuilder{
		mod:   mod,
		vars:  map[string]*varSlot{},
		namer: NewBlockNamer(),
		retTy: retTy,
	}
}

func (b *funcBuilder) id() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *funcBuilder) cur() *il.BasicBlock {
	return &b.blocks[b.curIdx]
}

// newBlock appends an empty block named label and returns its index;
// it does not switch to it.
func (b *funcBuilder) newBlock(label string) int {
	b.blocks = append(b.blocks, il.BasicBlock{Label: label})
	return len(b.blocks) - 1
}

func (b *funcBuilder) switchTo(idx int) {
	b.curIdx = idx
}

// emit appends instr to the current block. If the current block
// already ends in a terminator (dead code with no intervening user
// label — e.g. statements following an unconditional GOTO or RETURN),
// a fresh block is opened first instead of corrupting the terminated
// one; SimplifyCFG's unreachable-block pass prunes it later.
func (b *funcBuilder) emit(instr il.Instr) {
	blk := b.cur()
	if len(blk.Instrs) > 0 {
		if last := blk.Terminator(); last != nil && last.IsTerminator() {
			idx := b.newBlock(b.namer.Label("unreachable"))
			b.switchTo(idx)
			blk = b.cur()
		}
	}
	blk.Instrs = append(blk.Instrs, instr)
}

// fallthroughTo branches the current block to label with no
// arguments, unless the current block already has a terminator (the
// preceding statement already diverted control away, e.g. a GOTO
// immediately before a label with no other statement between them).
func (b *funcBuilder) fallthroughTo(label string) {
	blk := b.cur()
	if len(blk.Instrs) > 0 {
		if last := blk.Terminator(); last != nil && last.IsTerminator() {
			return
		}
	}
	blk.Instrs = append(blk.Instrs, il.Instr{Op: il.OpBr, Succs: []string{label}, BrArgs: [][]il.Value{nil}})
}

func (b *funcBuilder) alloca(size int64, loc il.SourceLoc) il.Value {
	id := b.id()
	b.emit(il.Instr{Op: il.OpAlloca, Args: []il.Value{il.ConstInt(size, il.TI64)}, HasResult: true, ResultID: id, ResultTy: il.TPtr, Loc: loc})
	return il.Temp(id, il.TPtr)
}

func (b *funcBuilder) load(ptr il.Value, ty il.Type) il.Value {
	id := b.id()
	b.emit(il.Instr{Op: il.OpLoad, Args: []il.Value{ptr}, HasResult: true, ResultID: id, ResultTy: ty})
	return il.Temp(id, ty)
}

func (b *funcBuilder) store(ptr, val il.Value) {
	b.emit(il.Instr{Op: il.OpStore, Args: []il.Value{ptr, val}})
}

func (b *funcBuilder) arith(op il.Opcode, lhs, rhs il.Value, loc il.SourceLoc) il.Value {
	info, ok := il.LookupOpcode(op)
	if !ok {
		assertf(loc, "basiclower: %v is not a registered opcode", op)
	}
	resTy := lhs.Type()
	if info.ResultKind == il.ResultFixedCat {
		resTy = il.TI1
	}
	id := b.id()
	b.emit(il.Instr{Op: op, Args: []il.Value{lhs, rhs}, HasResult: true, ResultID: id, ResultTy: resTy, Loc: loc})
	return il.Temp(id, resTy)
}

func (b *funcBuilder) unary(op il.Opcode, x il.Value, loc il.SourceLoc) il.Value {
	id := b.id()
	b.emit(il.Instr{Op: op, Args: []il.Value{x}, HasResult: true, ResultID: id, ResultTy: x.Type(), Loc: loc})
	return il.Temp(id, x.Type())
}

func (b *funcBuilder) allocaVar(name string, ty il.Type) *varSlot {
	ptr := b.alloca(8, il.SourceLoc{})
	slot := &varSlot{Ptr: ptr, Ty: ty}
	b.vars[name] = slot
	return slot
}

func (b *funcBuilder) allocaArray(name string, elemTy il.Type) *varSlot {
	ptr := b.alloca(8, il.SourceLoc{})
	slot := &varSlot{Ptr: ptr, Ty: il.TPtr, IsArray: true, ElemTy: elemTy}
	b.vars[name] = slot
	return slot
}

func (b *funcBuilder) callHelper(name string, args []il.Value, loc il.SourceLoc) il.Value {
	sig, ok := ilrt.Lookup(name)
	if !ok {
		assertf(loc, "basiclower: %s is not a registered runtime helper", name)
	}
	b.mod.require(name)
	id := b.id()
	b.emit(il.Instr{Op: il.OpCall, Callee: name, Args: args, HasResult: true, ResultID: id, ResultTy: sig.Ret, Loc: loc})
	return il.Temp(id, sig.Ret)
}

func (b *funcBuilder) callHelperVoid(name string, args []il.Value, loc il.SourceLoc) {
	if _, ok := ilrt.Lookup(name); !ok {
		assertf(loc, "basiclower: %s is not a registered runtime helper", name)
	}
	b.mod.require(name)
	b.emit(il.Instr{Op: il.OpCall, Callee: name, Args: args, Loc: loc})
}

func (b *funcBuilder) toFloat(v il.Value, loc il.SourceLoc) il.Value {
	if v.Type() == il.TF64 {
		return v
	}
	id := b.id()
	b.emit(il.Instr{Op: il.OpSIToFP, Args: []il.Value{v}, HasResult: true, ResultID: id, ResultTy: il.TF64, Loc: loc})
	return il.Temp(id, il.TF64)
}

func (b *funcBuilder) toInt(v il.Value, loc il.SourceLoc) il.Value {
	if v.Type() != il.TF64 {
		return v
	}
	id := b.id()
	b.emit(il.Instr{Op: il.OpFPToSI, Args: []il.Value{v}, HasResult: true, ResultID: id, ResultTy: il.TI64, Loc: loc})
	return il.Temp(id, il.TI64)
}

// coerce converts v to want, the only legal mismatches being the
// int<->float promotions lowering itself introduces; anything else
// indicates the frontend let an ill-typed AST through, which scan was
// supposed to have made impossible.
func (b *funcBuilder) coerce(v il.Value, want il.Type, loc il.SourceLoc) il.Value {
	if v.Type() == want {
		return v
	}
	switch {
	case want == il.TF64 && v.Type() != il.TF64:
		return b.toFloat(v, loc)
	case want != il.TF64 && v.Type() == il.TF64:
		return b.toInt(v, loc)
	default:
		assertf(loc, "basiclower: cannot coerce %s to %s", v.Type(), want)
		return v
	}
}

// selectValue merges whenTrue/whenFalse by control flow rather than a
// bitwise/arithmetic combine: the IL has no select opcode, and an i1
// operand cannot feed most arithmetic ops at all (CatInt excludes i1;
// only CatI1 admits it, per the verifier's category table), so any
// "pick one of two values" lowering goes through a cbr and a
// one-parameter join block.
func (b *funcBuilder) selectValue(cond, whenTrue, whenFalse il.Value, hint string, loc il.SourceLoc) il.Value {
	ty := whenTrue.Type()
	tLabel := b.namer.Label(hint + ".t")
	fLabel := b.namer.Label(hint + ".f")
	jLabel := b.namer.Label(hint + ".j")
	tIdx := b.newBlock(tLabel)
	fIdx := b.newBlock(fLabel)
	jIdx := b.newBlock(jLabel)

	resID := b.id()
	b.blocks[jIdx].Params = []il.Param{{Name: "v", Ty: ty, ID: resID}}

	b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{cond}, Succs: []string{tLabel, fLabel}, BrArgs: [][]il.Value{nil, nil}, Loc: loc})

	b.switchTo(tIdx)
	b.emit(il.Instr{Op: il.OpBr, Succs: []string{jLabel}, BrArgs: [][]il.Value{{whenTrue}}, Loc: loc})

	b.switchTo(fIdx)
	b.emit(il.Instr{Op: il.OpBr, Succs: []string{jLabel}, BrArgs: [][]il.Value{{whenFalse}}, Loc: loc})

	b.switchTo(jIdx)
	return il.Temp(resID, ty)
}

// materializeBool produces an i1 value from a branch condition: the
// cbr-and-join shape selectValue already implements, specialized to a
// pair of literal i1 constants. Used by NOT and by `<>` on strings,
// which must negate rt_str_eq's result this way rather than with
// il.OpXor (i1 is CatI1, not CatInt; OpXor requires CatInt operands).
func (b *funcBuilder) materializeBool(cond il.Value, hint string, trueVal, falseVal int64, loc il.SourceLoc) il.Value {
	return b.selectValue(cond, il.ConstInt(trueVal, il.TI1), il.ConstInt(falseVal, il.TI1), hint, loc)
}

// checkDivisorNonZero guards integer `/`, `\`, and MOD with a trap
// block reached when divisor is zero, using the IL's own trap
// terminator rather than the rt_trap runtime helper — this is a
// domain-level precondition the IL itself can express, not a
// side-effecting call.
func (b *funcBuilder) checkDivisorNonZero(divisor il.Value, loc il.SourceLoc) {
	isZero := b.arith(il.OpICmpEq, divisor, il.ConstInt(0, divisor.Type()), loc)
	trapLabel := b.namer.Label("div0")
	okLabel := b.namer.Label("div_ok")
	trapIdx := b.newBlock(trapLabel)
	okIdx := b.newBlock(okLabel)
	b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{isZero}, Succs: []string{trapLabel, okLabel}, BrArgs: [][]il.Value{nil, nil}, Loc: loc})

	b.switchTo(trapIdx)
	b.emit(il.Instr{Op: il.OpTrap, Loc: loc})

	b.switchTo(okIdx)
}

func (b *funcBuilder) finish() {
	blk := b.cur()
	if len(blk.Instrs) > 0 {
		if last := blk.Terminator(); last != nil && last.IsTerminator() {
			return
		}
	}
	if b.retTy == il.TVoid {
		b.emit(il.Instr{Op: il.OpRet})
		return
	}
	b.emit(il.Instr{Op: il.OpRet, Args: []il.Value{zeroValue(b.retTy)}})
}

func zeroValue(ty il.Type) il.Value {
	switch ty {
	case il.TF64:
		return il.ConstFloat(0)
	case il.TStr:
		return il.ConstStr("")
	case il.TPtr:
		return il.NullPtr
	default:
		return il.ConstInt(0, ty)
	}
}

func oneOf(ty il.Type) il.Value {
	if ty == il.TF64 {
		return il.ConstFloat(1)
	}
	return il.ConstInt(1, ty)
}

// sanitizeLabel derives a block label for a user-declared GOTO target,
// namespaced away from BlockNamer's dotted synthetic labels ("if.then.0"
// etc.) so a user label can never collide with one.
func sanitizeLabel(name string) string {
	return "L_" + name
}

func procSigOf(p *basicast.Procedure) procSig {
	retTy := il.TVoid
	if p.Kind == basicast.ProcFunction {
		retTy = basicast.TypeSuffix(p.Name)
	}
	params := make([]il.Type, len(p.Params))
	for i, pr := range p.Params {
		params[i] = basicast.TypeSuffix(pr.Name)
	}
	return procSig{RetTy: retTy, Params: params}
}

func synthesizeExterns(need map[string]bool) []il.Extern {
	names := make([]string, 0, len(need))
	for n := range need {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]il.Extern, 0, len(names))
	for _, n := range names {
		sig, ok := ilrt.Lookup(n)
		if !ok {
			panic(fmt.Sprintf("basiclower: required helper %s is not registered", n))
		}
		out = append(out, il.Extern{Name: n, RetTy: sig.Ret, Params: sig.Params})
	}
	return out
}
