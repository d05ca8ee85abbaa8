package transform

import (
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(PeepholePass{})
}

// PeepholePass applies local algebraic simplifications (spec §4.8.5):
// additive/multiplicative identity folds, self-subtraction to zero,
// and conditional-branch-on-constant or identical-target collapse to
// an unconditional branch. Each rewrite erases the instruction whose
// result it replaces, tidying away whatever was single-use by
// construction.
type PeepholePass struct{}

func (PeepholePass) Name() string        { return "peephole" }
func (PeepholePass) Description() string { return "local algebraic simplification of single-use operands" }
func (PeepholePass) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators}
}

func (PeepholePass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	type replacement struct {
		from uint32
		to   il.Value
	}
	var repls []replacement
	erase := map[uint32]bool{}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			instr := &blk.Instrs[ii]
			if !instr.HasResult || len(instr.Args) != 2 {
				continue
			}
			a, b := instr.Args[0], instr.Args[1]

			var to il.Value
			ok := false
			switch instr.Op {
			case il.OpAdd:
				switch {
				case isZero(a):
					to, ok = b, true
				case isZero(b):
					to, ok = a, true
				}
			case il.OpFAdd:
				switch {
				case isFZero(a):
					to, ok = b, true
				case isFZero(b):
					to, ok = a, true
				}
			case il.OpSub:
				if isZero(b) {
					to, ok = a, true
				} else if a == b {
					to, ok = il.ConstInt(0, instr.ResultTy), true
				}
			case il.OpFSub:
				if isFZero(b) {
					to, ok = a, true
				}
			case il.OpMul:
				switch {
				case isOne(b):
					to, ok = a, true
				case isOne(a):
					to, ok = b, true
				case isZero(a) || isZero(b):
					to, ok = il.ConstInt(0, instr.ResultTy), true
				}
			case il.OpFMul:
				switch {
				case isFOne(b):
					to, ok = a, true
				case isFOne(a):
					to, ok = b, true
				}
			case il.OpSDiv, il.OpFDiv:
				if isOne(b) || isFOne(b) {
					to, ok = a, true
				}
			}
			if ok {
				repls = append(repls, replacement{from: instr.ResultID, to: to})
				erase[instr.ResultID] = true
			}
		}
	}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			for _, r := range repls {
				blk.Instrs[ii].ReplaceUses(r.from, r.to)
			}
		}
	}

	branchChanged := foldConstantBranches(fn)

	changed := len(repls) > 0 || branchChanged
	if len(repls) == 0 && !branchChanged {
		return false
	}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			if instr.HasResult && erase[instr.ResultID] {
				continue
			}
			kept = append(kept, instr)
		}
		blk.Instrs = kept
	}

	return changed
}

// foldConstantBranches collapses cbr with a constant predicate to an
// unconditional br to the live target, and cbr with identical then/else
// targets and matching branch-argument shapes to a plain br.
func foldConstantBranches(fn *il.Function) bool {
	changed := false
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		term := blk.Terminator()
		if term == nil || term.Op != il.OpCBr {
			continue
		}
		if term.Succs[0] == term.Succs[1] && sameBrArgs(term.BrArgs[0], term.BrArgs[1]) {
			term.Op = il.OpBr
			term.Args = nil
			term.Succs = term.Succs[:1]
			term.BrArgs = term.BrArgs[:1]
			changed = true
			continue
		}
		if term.Args[0].IsConst() {
			taken := 1
			if term.Args[0].Int != 0 {
				taken = 0
			}
			term.Op = il.OpBr
			term.Args = nil
			term.Succs = []string{term.Succs[taken]}
			term.BrArgs = [][]il.Value{term.BrArgs[taken]}
			changed = true
		}
	}
	return changed
}

func sameBrArgs(a, b []il.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isZero(v il.Value) bool  { return v.Kind == il.VConstInt && v.Int == 0 }
func isOne(v il.Value) bool   { return v.Kind == il.VConstInt && v.Int == 1 }
func isFZero(v il.Value) bool { return v.Kind == il.VConstFloat && v.Float == 0 }
func isFOne(v il.Value) bool  { return v.Kind == il.VConstFloat && v.Float == 1 }
