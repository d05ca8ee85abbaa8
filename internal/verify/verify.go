// Package verify implements the IL verifier (spec §4.5): a set of
// structural, control-flow, and ABI checks every module must pass
// before it can be handed to the pass manager or back end. Verify
// never mutates the module; it reports every violation it finds in a
// single pass rather than stopping at the first (unlike the parser's
// abort-on-first-error policy — by the time a module reaches here, it
// is already syntactically well-formed, so collecting all structural
// complaints at once is more useful to the caller).
package verify

import (
	"fmt"
	"sort"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilrt"
	"github.com/viper-lang/viper/internal/logging"
)

// Module runs every check in spec §4.5.1 against m and returns every
// diagnostic found, in deterministic order (globals/externs first,
// then functions in declaration order, then blocks/instructions in
// declaration order within each function).
func Module(m *il.Module) []*diag.Diag {
	logging.Debugf("verify", "%d functions, %d externs, %d globals", len(m.Functions), len(m.Externs), len(m.Globals))
	v := &verifier{mod: m}
	v.checkTopLevelNames()
	v.checkABI()
	for fi := range m.Functions {
		v.checkFunction(fi)
	}
	return v.diags
}

type verifier struct {
	mod   *il.Module
	diags []*diag.Diag
}

func (v *verifier) report(code, format string, args ...any) {
	v.diags = append(v.diags, diag.Newf(code, diag.SourceLoc{}, format, args...))
}

// checkTopLevelNames enforces uniqueness within each of the three
// top-level namespaces: externs, globals, functions (spec §4.5.1 step
// 1's opening clause; names across namespaces are allowed to collide
// with each other since call resolution and global references use
// disjoint syntactic forms).
func (v *verifier) checkTopLevelNames() {
	seen := map[string]bool{}
	for _, e := range v.mod.Externs {
		if seen[e.Name] {
			v.report(diag.STR001, "duplicate extern name @%s", e.Name)
		}
		seen[e.Name] = true
	}
	seen = map[string]bool{}
	for _, g := range v.mod.Globals {
		if seen[g.Name] {
			v.report(diag.STR001, "duplicate global name @%s", g.Name)
		}
		seen[g.Name] = true
	}
	seen = map[string]bool{}
	for _, f := range v.mod.Functions {
		if seen[f.Name] {
			v.report(diag.STR001, "duplicate function name @%s", f.Name)
		}
		seen[f.Name] = true
	}
}

// checkABI cross-checks every extern declaration against the runtime
// signature registry (spec §4.5.1 step 1, §3.7.6): an extern whose
// name is registered must match the registry's signature exactly. An
// extern whose name is NOT registered is not itself an error — a
// module may declare its own externs unrelated to the standard
// runtime facilities — only a mismatch against a REGISTERED name is.
func (v *verifier) checkABI() {
	for _, e := range v.mod.Externs {
		want, ok := ilrt.Lookup(e.Name)
		if !ok {
			continue
		}
		got := ilrt.Signature{Ret: e.RetTy, Params: append([]il.Type(nil), e.Params...)}
		if !got.Equal(want) {
			v.report(diag.ABI001, "extern @%s declared as %s but the runtime registry requires %s", e.Name, got.String(), want.String())
		}
	}
}

func (v *verifier) checkFunction(fi int) {
	fn := &v.mod.Functions[fi]

	if len(fn.Blocks) == 0 {
		v.report(diag.STR002, "function @%s has no blocks", fn.Name)
		return
	}

	// Step 2/3: block names unique, params distinct and not previously
	// defined; step: build the id -> (defining block, declared type)
	// map, erroring on any collision.
	blockNames := map[string]bool{}
	idType := map[uint32]il.Type{}
	idDefined := map[uint32]bool{}
	defineID := func(id uint32, ty il.Type, where string) {
		if idDefined[id] {
			v.report(diag.STR001, "function @%s: id %%t%d is defined more than once (%s)", fn.Name, id, where)
			return
		}
		idDefined[id] = true
		idType[id] = ty
	}

	if fn.Entry() != nil {
		if len(fn.Entry().Params) != len(fn.Params) {
			v.report(diag.STR003, "function @%s: entry block has %d parameters, function declares %d", fn.Name, len(fn.Entry().Params), len(fn.Params))
		} else {
			for i, p := range fn.Entry().Params {
				if p.Ty != fn.Params[i].Ty {
					v.report(diag.STR004, "function @%s: entry block parameter %d has type %s, function declares %s", fn.Name, i, p.Ty, fn.Params[i].Ty)
				}
			}
		}
	}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		if blockNames[blk.Label] {
			v.report(diag.PAR004, "function @%s: duplicate block label %q", fn.Name, blk.Label)
		}
		blockNames[blk.Label] = true

		for _, p := range blk.Params {
			defineID(p.ID, p.Ty, fmt.Sprintf("block %s parameter %%%s", blk.Label, p.Name))
		}
		for ii := range blk.Instrs {
			instr := &blk.Instrs[ii]
			if instr.HasResult {
				defineID(instr.ResultID, instr.ResultTy, fmt.Sprintf("block %s instruction %d", blk.Label, ii))
			}
		}
	}

	// Step: every block ends in exactly one terminator, which is its
	// last instruction; no non-terminator instruction appears after it
	// (equivalently: only the last instruction may be a terminator).
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		if len(blk.Instrs) == 0 {
			v.report(diag.STR002, "function @%s: block %s is empty (missing terminator)", fn.Name, blk.Label)
			continue
		}
		for ii := range blk.Instrs {
			isLast := ii == len(blk.Instrs)-1
			isTerm := blk.Instrs[ii].IsTerminator()
			if isTerm && !isLast {
				v.report(diag.STR002, "function @%s: block %s has a terminator before its last instruction", fn.Name, blk.Label)
			}
			if !isTerm && isLast {
				v.report(diag.STR002, "function @%s: block %s does not end in a terminator", fn.Name, blk.Label)
			}
		}
	}

	// Step: per-instruction opcode contract (operand count/category,
	// result type) and call checks.
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			v.checkInstr(fn, blk, &blk.Instrs[ii])
		}
	}

	// Step: control-flow checks — every successor label must name a
	// block in this function, and branch-argument vectors must match
	// the target's parameter arity and types.
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		term := blk.Terminator()
		if term == nil {
			continue
		}
		for si, label := range term.Succs {
			target, ok := fn.BlockByLabel(label)
			if !ok {
				v.report(diag.STR007, "function @%s: block %s branches to undefined label %s", fn.Name, blk.Label, label)
				continue
			}
			args := term.BrArgs[si]
			if len(args) != len(target.Params) {
				v.report(diag.STR003, "function @%s: branch from %s to %s passes %d arguments, target expects %d", fn.Name, blk.Label, label, len(args), len(target.Params))
				continue
			}
			for ai, a := range args {
				if a.Type() != target.Params[ai].Ty {
					v.report(diag.STR004, "function @%s: branch from %s to %s argument %d has type %s, target parameter expects %s", fn.Name, blk.Label, label, ai, a.Type(), target.Params[ai].Ty)
				}
			}
		}
	}

	// Step: dominance — every use of a temp must be dominated by its
	// definition (spec §4.5.1, the SSA discipline's central invariant).
	v.checkDominance(fn, idType)
}

var catOf = map[il.Kind]il.Category{
	il.I1: il.CatI1, il.I16: il.CatInt, il.I32: il.CatInt, il.I64: il.CatInt,
	il.F64: il.CatFloat, il.Ptr: il.CatPtr, il.Str: il.CatStr,
}

func matchesCategory(ty il.Type, cat il.Category) bool {
	switch cat {
	case il.CatAny, il.CatNone:
		return true
	default:
		return catOf[ty.Kind] == cat
	}
}

func (v *verifier) checkInstr(fn *il.Function, blk *il.BasicBlock, instr *il.Instr) {
	info, ok := il.LookupOpcode(instr.Op)
	if !ok {
		v.report(diag.PAR003, "function @%s, block %s: unknown opcode %d", fn.Name, blk.Label, instr.Op)
		return
	}

	if instr.Op == il.OpCall {
		v.checkCall(fn, blk, instr)
		return
	}

	n := len(instr.Args)
	if n < info.MinOperands || (info.MaxOperands >= 0 && n > info.MaxOperands) {
		v.report(diag.STR008, "function @%s, block %s: %s expects %d..%d operands, got %d", fn.Name, blk.Label, info.Name, info.MinOperands, info.MaxOperands, n)
		return
	}
	for _, a := range instr.Args {
		if !matchesCategory(a.Type(), info.OperandCat) {
			v.report(diag.STR008, "function @%s, block %s: %s operand has type %s, expected category %v", fn.Name, blk.Label, info.Name, a.Type(), info.OperandCat)
		}
	}
	if info.ResultKind == il.ResultOperand0 && len(instr.Args) >= 2 {
		for _, a := range instr.Args[1:] {
			if a.Type() != instr.Args[0].Type() {
				v.report(diag.STR008, "function @%s, block %s: %s operands have mismatched types %s and %s", fn.Name, blk.Label, info.Name, instr.Args[0].Type(), a.Type())
			}
		}
	}
	if instr.Op == il.OpAlloca && instr.ResultTy != il.TPtr {
		v.report(diag.STR008, "function @%s, block %s: alloca must produce ptr, got %s", fn.Name, blk.Label, instr.ResultTy)
	}
}

func (v *verifier) checkCall(fn *il.Function, blk *il.BasicBlock, instr *il.Instr) {
	ret, params, ok := v.mod.CalleeSignature(instr.Callee)
	if !ok {
		v.report(diag.STR011, "function @%s, block %s: call to unresolved callee @%s", fn.Name, blk.Label, instr.Callee)
		return
	}
	if len(instr.Args) != len(params) {
		v.report(diag.STR005, "function @%s, block %s: call to @%s passes %d arguments, expects %d", fn.Name, blk.Label, instr.Callee, len(instr.Args), len(params))
	} else {
		for i, a := range instr.Args {
			if a.Type() != params[i] {
				v.report(diag.STR006, "function @%s, block %s: call to @%s argument %d has type %s, expects %s", fn.Name, blk.Label, instr.Callee, i, a.Type(), params[i])
			}
		}
	}
	if ret.Kind == il.Void && instr.HasResult {
		v.report(diag.STR010, "function @%s, block %s: call to @%s returns void but produces a result id", fn.Name, blk.Label, instr.Callee)
	}
	if ret.Kind != il.Void && instr.HasResult && instr.ResultTy != ret {
		v.report(diag.STR006, "function @%s, block %s: call to @%s result declared as %s, callee returns %s", fn.Name, blk.Label, instr.Callee, instr.ResultTy, ret)
	}
}

// checkDominance verifies that every use of a temp is dominated by its
// definition: a use within the defining block must follow the
// definition in instruction order (or be a branch argument of the
// block's own terminator, which always follows every earlier
// instruction); a use in a different block requires that block to be
// strictly dominated by the defining block.
func (v *verifier) checkDominance(fn *il.Function, idType map[uint32]il.Type) {
	defBlock := map[uint32]int{}
	defPos := map[uint32]int{} // instruction index within defBlock, or -1 for a block parameter
	for bi := range fn.Blocks {
		for _, p := range fn.Blocks[bi].Params {
			defBlock[p.ID] = bi
			defPos[p.ID] = -1
		}
		for ii, instr := range fn.Blocks[bi].Instrs {
			if instr.HasResult {
				defBlock[instr.ResultID] = bi
				defPos[instr.ResultID] = ii
			}
		}
	}

	cfg := analysis.BuildCFG(fn)
	dom := analysis.BuildDominators(cfg)

	checkUse := func(useBlock, usePos int, val il.Value) {
		if val.Kind != il.VTemp {
			return
		}
		db, known := defBlock[val.ID]
		if !known {
			v.report(diag.STR009, "function @%s: use of undefined id %%t%d in block %s", fn.Name, val.ID, fn.Blocks[useBlock].Label)
			return
		}
		if db == useBlock {
			if defPos[val.ID] == -1 {
				return // block parameter: defined before every instruction
			}
			if defPos[val.ID] <= usePos {
				return
			}
			v.report(diag.STR009, "function @%s: use of %%t%d in block %s precedes its definition", fn.Name, val.ID, fn.Blocks[useBlock].Label)
			return
		}
		if !dom.StrictlyDominates(db, useBlock) {
			v.report(diag.STR009, "function @%s: use of %%t%d in block %s is not dominated by its definition in block %s", fn.Name, val.ID, fn.Blocks[useBlock].Label, fn.Blocks[db].Label)
		}
	}

	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			for _, a := range instr.Args {
				checkUse(bi, ii, a)
			}
			for _, args := range instr.BrArgs {
				for _, a := range args {
					checkUse(bi, ii, a)
				}
			}
		}
	}
}

// AllDiagsSortedByCode is a convenience for tests and CLI output that
// want a deterministic secondary order when two diagnostics share a
// source location (they all currently carry the zero SourceLoc, so
// code order is the only stable tiebreaker available pre-source-map
// integration).
func AllDiagsSortedByCode(ds []*diag.Diag) []*diag.Diag {
	out := append([]*diag.Diag(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
